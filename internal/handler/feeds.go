// Package handler contains the HTTP handlers for the site API.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/content"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/feed"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/metrics"
)

// FeedHandler serves the syndication feed routes.
type FeedHandler struct {
	builder      *feed.Builder
	store        *content.Store
	metrics      *metrics.Metrics
	logger       logger.Logger
	defaultLimit int
	maxLimit     int
}

// NewFeedHandler creates a FeedHandler with the given dependencies.
func NewFeedHandler(
	builder *feed.Builder,
	store *content.Store,
	m *metrics.Metrics,
	log logger.Logger,
	defaultLimit, maxLimit int,
) *FeedHandler {
	return &FeedHandler{
		builder:      builder,
		store:        store,
		metrics:      m,
		logger:       log,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Serve returns a handler producing the feed document for one format.
// A serialization failure degrades to a valid empty feed rather than an
// error page, so feed readers never see a broken document.
func (h *FeedHandler) Serve(format feed.Format) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := h.parseLimit(c)

		doc, err := h.builder.Build(c.Request.Context(), h.store.All(), format, limit)
		if err != nil {
			var genErr *feed.GenerationError
			if !errors.As(err, &genErr) {
				// Only an unwired format reaches here; that is a routing
				// bug, not a client error.
				h.logger.Error("Feed request for unsupported format",
					logger.String("format", string(format)),
					logger.Error(err),
				)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}

			h.logger.Error("Feed generation failed, serving empty feed",
				logger.String("format", string(format)),
				logger.Error(err),
			)
			doc = h.builder.Empty(format)
		}

		if h.metrics != nil {
			served := limit
			if total := h.store.Len(); total < served {
				served = total
			}
			h.metrics.RecordFeed(string(format), served)
		}

		c.Data(http.StatusOK, feed.ContentTypes[format], []byte(doc))
	}
}

// parseLimit reads the limit query parameter, clamped to [1, maxLimit].
// Absent or unparseable values fall back to the default.
func (h *FeedHandler) parseLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return h.defaultLimit
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return h.defaultLimit
	}
	if limit > h.maxLimit {
		return h.maxLimit
	}
	return limit
}
