package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/feed"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/handler"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/httpserver"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/metrics"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/middleware"
)

// RouteDeps carries the handlers and middleware dependencies for route setup.
type RouteDeps struct {
	Feeds     *handler.FeedHandler
	Bookmarks *handler.BookmarkHandler
	Admin     *handler.AdminHandler

	AgentDetect gin.HandlerFunc
	Metrics     *metrics.Metrics

	AdminSecret     string
	MaxWritesPerMin int
	RateLimitWindow time.Duration
}

// SetupRoutes configures all API routes.
// Health routes are registered separately alongside the server build.
func SetupRoutes(router *gin.Engine, deps RouteDeps) {
	if deps.Metrics != nil {
		router.Use(deps.Metrics.RequestMiddleware())
	}
	if deps.AgentDetect != nil {
		router.Use(deps.AgentDetect)
	}

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Syndication feeds. /feed.xml is the canonical RSS path, /rss.xml
	// an alias kept for existing subscribers.
	router.GET("/feed.xml", deps.Feeds.Serve(feed.FormatRSS))
	router.GET("/rss.xml", deps.Feeds.Serve(feed.FormatRSS))
	router.GET("/atom.xml", deps.Feeds.Serve(feed.FormatAtom))
	router.GET("/feed.json", deps.Feeds.Serve(feed.FormatJSON))

	bookmarks := router.Group("/api/bookmarks")
	bookmarks.GET("/:type/:slug", deps.Bookmarks.Count)

	// Writes are rate limited per IP so one client cannot inflate counters.
	writes := bookmarks.Group("")
	writes.Use(middleware.RateLimiter(deps.MaxWritesPerMin, deps.RateLimitWindow))
	writes.POST("/:type/:slug", deps.Bookmarks.Add)
	writes.DELETE("/:type/:slug", deps.Bookmarks.Remove)

	admin := router.Group("/api/admin")
	admin.Use(httpserver.AdminAuth(deps.AdminSecret))
	admin.GET("/stats/agents", deps.Admin.AgentStats)
	admin.GET("/stats/bookmarks", deps.Admin.BookmarkStats)
}
