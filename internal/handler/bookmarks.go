package handler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/domain"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/engagement"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/metrics"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/storage"
)

// uaHashLength is the number of hex characters kept from the user-agent hash.
const uaHashLength = 12

// BookmarkHandler serves the bookmark counter routes.
type BookmarkHandler struct {
	counter engagement.Counter
	buffer  *storage.Buffer
	metrics *metrics.Metrics
	logger  logger.Logger
}

// NewBookmarkHandler creates a BookmarkHandler with the given dependencies.
func NewBookmarkHandler(
	counter engagement.Counter,
	buffer *storage.Buffer,
	m *metrics.Metrics,
	log logger.Logger,
) *BookmarkHandler {
	return &BookmarkHandler{
		counter: counter,
		buffer:  buffer,
		metrics: m,
		logger:  log,
	}
}

// bookmarkResponse is the JSON body for all bookmark counter endpoints.
type bookmarkResponse struct {
	ContentType domain.ContentType `json:"content_type"`
	Slug        string             `json:"slug"`
	Count       int64              `json:"count"`
}

// Add increments the bookmark counter and archives the event.
func (h *BookmarkHandler) Add(c *gin.Context) {
	h.mutate(c, domain.ActionBookmarkAdd, h.counter.Increment)
}

// Remove decrements the bookmark counter, clamped at zero, and archives
// the event.
func (h *BookmarkHandler) Remove(c *gin.Context) {
	h.mutate(c, domain.ActionBookmarkRemove, h.counter.Decrement)
}

// Count reads the current bookmark count. An absent counter reads as zero.
func (h *BookmarkHandler) Count(c *gin.Context) {
	ct, slug, ok := parseBookmarkParams(c)
	if !ok {
		return
	}

	count, err := h.counter.Get(c.Request.Context(), ct, slug)
	if err != nil {
		h.respondCounterError(c, "get", err)
		return
	}

	c.JSON(http.StatusOK, bookmarkResponse{ContentType: ct, Slug: slug, Count: count})
}

type counterOp func(ctx context.Context, ct domain.ContentType, slug string) (int64, error)

func (h *BookmarkHandler) mutate(c *gin.Context, action domain.EngagementAction, op counterOp) {
	ct, slug, ok := parseBookmarkParams(c)
	if !ok {
		return
	}

	count, err := op(c.Request.Context(), ct, slug)
	if h.metrics != nil {
		h.metrics.RecordBookmarkOp(string(action), err)
	}
	if err != nil {
		h.respondCounterError(c, string(action), err)
		return
	}

	h.enqueueEvent(ct, slug, action, c.Request.UserAgent())

	c.JSON(http.StatusOK, bookmarkResponse{ContentType: ct, Slug: slug, Count: count})
}

// enqueueEvent builds an EngagementEvent and sends it to the archive buffer.
// A full buffer drops the event; the live counter is already updated.
func (h *BookmarkHandler) enqueueEvent(ct domain.ContentType, slug string, action domain.EngagementAction, userAgent string) {
	event := domain.EngagementEvent{
		ID:            uuid.NewString(),
		ContentType:   ct,
		Slug:          slug,
		Action:        action,
		UserAgentHash: hashUA(userAgent),
		OccurredAt:    time.Now().UTC(),
	}
	if !h.buffer.Send(event) {
		if h.metrics != nil {
			h.metrics.EventsDropped.Inc()
		}
		h.logger.Warn("Engagement event buffer full, dropping event",
			logger.String("slug", slug),
			logger.String("action", string(action)),
		)
		return
	}
	if h.metrics != nil {
		h.metrics.EventsBuffered.Inc()
	}
}

func (h *BookmarkHandler) respondCounterError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, engagement.ErrInvalidKey):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, engagement.ErrUnavailable):
		if h.metrics != nil {
			h.metrics.CounterUnavailable.Inc()
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "bookmark counters temporarily unavailable"})
	default:
		h.logger.Error("Bookmark counter operation failed",
			logger.String("op", op),
			logger.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// parseBookmarkParams reads and validates the :type and :slug path params.
// Writes a 400 response and returns ok=false on invalid input.
func parseBookmarkParams(c *gin.Context) (domain.ContentType, string, bool) {
	ct, ok := domain.ParseContentType(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown content type"})
		return "", "", false
	}

	slug := c.Param("slug")
	if slug == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing slug"})
		return "", "", false
	}

	return ct, slug, true
}

// hashUA returns a truncated SHA-256 hash of the user agent. Raw user
// agents are never stored.
func hashUA(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(userAgent))
	return hex.EncodeToString(sum[:])[:uaHashLength]
}
