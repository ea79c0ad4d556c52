package httpserver_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/httpserver"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	router := gin.New()
	router.Use(httpserver.RecoveryMiddleware(log))
	router.Use(httpserver.RequestIDMiddleware())
	router.Use(httpserver.LoggerMiddleware(log))
	return router
}

func TestRequestIDMiddleware_GeneratesID(t *testing.T) {
	t.Parallel()

	router := newTestRouter()
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("X-Request-ID response header is empty, want a generated ID")
	}
}

func TestRequestIDMiddleware_PreservesExistingID(t *testing.T) {
	t.Parallel()

	const inboundID = "trace-from-upstream-abc123"

	router := newTestRouter()
	var gotCtxID string
	router.GET("/test", func(c *gin.Context) {
		gotCtxID = c.GetString("request_id")
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("X-Request-ID", inboundID)
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != inboundID {
		t.Errorf("response X-Request-ID = %q, want %q", got, inboundID)
	}
	if gotCtxID != inboundID {
		t.Errorf("context request_id = %q, want %q", gotCtxID, inboundID)
	}
}

func TestRecoveryMiddleware_Returns500OnPanic(t *testing.T) {
	t.Parallel()

	router := newTestRouter()
	router.GET("/panic", func(_ *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/panic", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}

func TestCORSMiddleware_AllowsConfiguredOrigin(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(httpserver.CORSMiddleware(httpserver.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://dcyfr.dev"},
	}))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Origin", "https://dcyfr.dev")
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://dcyfr.dev" {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "https://dcyfr.dev")
	}
}

func TestCORSMiddleware_OmitsHeadersForUnknownOrigin(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(httpserver.CORSMiddleware(httpserver.CORSConfig{
		Enabled:        true,
		AllowedOrigins: []string{"https://dcyfr.dev"},
	}))
	router.GET("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Origin", "https://evil.example")
	router.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Access-Control-Allow-Origin = %q, want empty", got)
	}
}

func TestCORSMiddleware_HandlesPreflight(t *testing.T) {
	t.Parallel()

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(httpserver.CORSMiddleware(httpserver.CORSConfig{Enabled: true}))
	router.POST("/test", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/test", http.NoBody)
	req.Header.Set("Origin", "https://anywhere.example")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want %d", w.Code, http.StatusNoContent)
	}
}

func signedAdminToken(t *testing.T, secret string, expires time.Time) string {
	t.Helper()

	claims := &httpserver.AdminClaims{
		Sub: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return token
}

func newAdminRouter(secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/admin", httpserver.AdminAuth(secret), func(c *gin.Context) {
		claims, ok := httpserver.GetAdminClaims(c)
		if !ok {
			c.String(http.StatusInternalServerError, "no claims")
			return
		}
		c.String(http.StatusOK, claims.Sub)
	})
	return router
}

func TestAdminAuth_AcceptsValidToken(t *testing.T) {
	t.Parallel()

	const secret = "test-secret"
	router := newAdminRouter(secret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+signedAdminToken(t, secret, time.Now().Add(time.Hour)))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d (body %q)", w.Code, http.StatusOK, w.Body.String())
	}
	if w.Body.String() != "admin" {
		t.Errorf("subject = %q, want %q", w.Body.String(), "admin")
	}
}

func TestAdminAuth_RejectsMissingHeader(t *testing.T) {
	t.Parallel()

	router := newAdminRouter("test-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", http.NoBody)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAdminAuth_RejectsWrongSecret(t *testing.T) {
	t.Parallel()

	router := newAdminRouter("test-secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+signedAdminToken(t, "other-secret", time.Now().Add(time.Hour)))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAdminAuth_RejectsExpiredToken(t *testing.T) {
	t.Parallel()

	const secret = "test-secret"
	router := newAdminRouter(secret)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+signedAdminToken(t, secret, time.Now().Add(-time.Hour)))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
