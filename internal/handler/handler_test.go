package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/mmcdole/gofeed"
	"github.com/redis/go-redis/v9"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/agentstats"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/content"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/engagement"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/feed"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/handler"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/storage"
)

const testContent = `posts:
  - slug: hello-world
    title: Hello, World
    summary: The first post.
    published_at: 2026-01-10T09:00:00Z
  - slug: go-generics-notes
    title: Notes on Go generics
    summary: Field notes from a refactor.
    published_at: 2026-03-02T18:30:00Z
`

func loadTestStore(t *testing.T) *content.Store {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "posts.yml"), []byte(testContent), 0o600); err != nil {
		t.Fatal(err)
	}

	store, err := content.Load(dir)
	if err != nil {
		t.Fatalf("loading content: %v", err)
	}
	return store
}

func newFeedRouter(t *testing.T) *gin.Engine {
	t.Helper()

	builder := feed.NewBuilder(feed.Options{
		Title:   "dcyfr.labs",
		SiteURL: "https://dcyfr.dev",
	}, logger.NewNop())
	h := handler.NewFeedHandler(builder, loadTestStore(t), nil, logger.NewNop(), 20, 100)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/feed.xml", h.Serve(feed.FormatRSS))
	router.GET("/rss.xml", h.Serve(feed.FormatRSS))
	router.GET("/atom.xml", h.Serve(feed.FormatAtom))
	router.GET("/feed.json", h.Serve(feed.FormatJSON))
	return router
}

func TestFeedHandler_ServesRSS(t *testing.T) {
	router := newFeedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feed.xml", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/rss+xml") {
		t.Errorf("Content-Type = %q, want application/rss+xml", ct)
	}

	parsed, err := gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("parsing RSS output: %v", err)
	}
	if len(parsed.Items) != 2 {
		t.Errorf("items = %d, want 2", len(parsed.Items))
	}
}

func TestFeedHandler_ServesAtomAndJSON(t *testing.T) {
	router := newFeedRouter(t)

	for _, path := range []string{"/atom.xml", "/feed.json"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("%s: status = %d, want %d", path, w.Code, http.StatusOK)
		}
		if _, err := gofeed.NewParser().ParseString(w.Body.String()); err != nil {
			t.Errorf("%s: parsing output: %v", path, err)
		}
	}
}

func TestFeedHandler_LimitQueryParam(t *testing.T) {
	router := newFeedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rss.xml?limit=1", http.NoBody)
	router.ServeHTTP(w, req)

	parsed, err := gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("parsing RSS output: %v", err)
	}
	if len(parsed.Items) != 1 {
		t.Errorf("items = %d, want 1 with limit=1", len(parsed.Items))
	}
}

func TestFeedHandler_UnsupportedFormatReturns500(t *testing.T) {
	builder := feed.NewBuilder(feed.Options{
		Title:   "dcyfr.labs",
		SiteURL: "https://dcyfr.dev",
	}, logger.NewNop())
	h := handler.NewFeedHandler(builder, loadTestStore(t), nil, logger.NewNop(), 20, 100)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/feed.weird", h.Serve(feed.Format("weird")))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/feed.weird", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestFeedHandler_InvalidLimitFallsBackToDefault(t *testing.T) {
	router := newFeedRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/rss.xml?limit=banana", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	parsed, err := gofeed.NewParser().ParseString(w.Body.String())
	if err != nil {
		t.Fatalf("parsing RSS output: %v", err)
	}
	if len(parsed.Items) != 2 {
		t.Errorf("items = %d, want 2", len(parsed.Items))
	}
}

func newBookmarkRouter(t *testing.T) (*gin.Engine, *miniredis.Miniredis, *storage.Buffer) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	counter := engagement.NewRedisCounter(client, "test", logger.NewNop())
	buffer := storage.NewBuffer(16)
	h := handler.NewBookmarkHandler(counter, buffer, nil, logger.NewNop())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/bookmarks/:type/:slug", h.Add)
	router.DELETE("/api/bookmarks/:type/:slug", h.Remove)
	router.GET("/api/bookmarks/:type/:slug", h.Count)
	return router, mr, buffer
}

func bookmarkCount(t *testing.T, body string) int64 {
	t.Helper()

	var resp struct {
		Count int64 `json:"count"`
	}
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("decoding response %q: %v", body, err)
	}
	return resp.Count
}

func TestBookmarkHandler_AddRemoveRoundTrip(t *testing.T) {
	router, _, buffer := newBookmarkRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bookmarks/post/hello-world", http.NoBody)
	req.Header.Set("User-Agent", "Mozilla/5.0")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("add status = %d, want %d (body %q)", w.Code, http.StatusOK, w.Body.String())
	}
	if got := bookmarkCount(t, w.Body.String()); got != 1 {
		t.Errorf("count after add = %d, want 1", got)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/api/bookmarks/post/hello-world", http.NoBody)
	router.ServeHTTP(w, req)

	if got := bookmarkCount(t, w.Body.String()); got != 0 {
		t.Errorf("count after remove = %d, want 0", got)
	}

	if buffer.Len() != 2 {
		t.Errorf("buffered events = %d, want 2", buffer.Len())
	}
}

func TestBookmarkHandler_RemoveClampsAtZero(t *testing.T) {
	router, _, _ := newBookmarkRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/bookmarks/post/never-bookmarked", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := bookmarkCount(t, w.Body.String()); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
}

func TestBookmarkHandler_CountReadsZeroForAbsentKey(t *testing.T) {
	router, _, _ := newBookmarkRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/bookmarks/project/site-api", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if got := bookmarkCount(t, w.Body.String()); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
}

func TestBookmarkHandler_RejectsUnknownContentType(t *testing.T) {
	router, _, _ := newBookmarkRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bookmarks/widget/hello-world", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestBookmarkHandler_RedisDownReturns503(t *testing.T) {
	router, mr, buffer := newBookmarkRouter(t)
	mr.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bookmarks/post/hello-world", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
	if buffer.Len() != 0 {
		t.Errorf("buffered events = %d, want 0 after failed increment", buffer.Len())
	}
}

func newAdminRouter(t *testing.T) (*gin.Engine, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tracker := agentstats.NewTracker(client, "test", 30, logger.NewNop())
	counter := engagement.NewRedisCounter(client, "test", logger.NewNop())
	h := handler.NewAdminHandler(tracker, counter, loadTestStore(t), logger.NewNop())

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/api/admin/stats/agents", h.AgentStats)
	router.GET("/api/admin/stats/bookmarks", h.BookmarkStats)
	return router, mr
}

func TestAdminHandler_AgentStatsRejectsBadDays(t *testing.T) {
	router, _ := newAdminRouter(t)

	for _, days := range []string{"0", "-1", "banana", "365"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/admin/stats/agents?days="+days, http.NoBody)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("days=%s: status = %d, want %d", days, w.Code, http.StatusBadRequest)
		}
	}
}

func TestAdminHandler_AgentStatsDefaultWindow(t *testing.T) {
	router, _ := newAdminRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats/agents", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, http.StatusOK, w.Body.String())
	}

	var stats agentstats.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decoding stats: %v", err)
	}
	if stats.Days != 7 {
		t.Errorf("days = %d, want 7", stats.Days)
	}
}

func TestAdminHandler_BookmarkStatsAggregates(t *testing.T) {
	router, mr := newAdminRouter(t)

	// Seed counters the way the bookmark handler would.
	require := func(err error) {
		if err != nil {
			t.Fatal(err)
		}
	}
	require(mr.Set("test:bookmarks:post:hello-world", "3"))
	require(mr.Set("test:bookmarks:post:go-generics-notes", "2"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats/bookmarks", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, http.StatusOK, w.Body.String())
	}

	var report struct {
		Items []struct {
			Slug  string `json:"slug"`
			Count int64  `json:"count"`
		} `json:"items"`
		Total int64 `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if report.Total != 5 {
		t.Errorf("total = %d, want 5", report.Total)
	}
	if len(report.Items) != 2 {
		t.Errorf("items = %d, want 2", len(report.Items))
	}
}

func TestAdminHandler_BookmarkStatsRedisDownReturns503(t *testing.T) {
	router, mr := newAdminRouter(t)
	mr.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats/bookmarks", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusServiceUnavailable)
	}
}
