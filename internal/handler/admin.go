package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/agentstats"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/content"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/domain"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/engagement"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
)

// Default and maximum window for the agent stats query.
const (
	defaultStatsDays = 7
	maxStatsDays     = 90
)

// AdminHandler serves the authenticated dashboard endpoints.
type AdminHandler struct {
	tracker *agentstats.Tracker
	counter engagement.Counter
	store   *content.Store
	logger  logger.Logger
}

// NewAdminHandler creates an AdminHandler with the given dependencies.
func NewAdminHandler(
	tracker *agentstats.Tracker,
	counter engagement.Counter,
	store *content.Store,
	log logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		tracker: tracker,
		counter: counter,
		store:   store,
		logger:  log,
	}
}

// AgentStats reports AI agent usage over the last N days (?days=N).
func (h *AdminHandler) AgentStats(c *gin.Context) {
	days := defaultStatsDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > maxStatsDays {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "days must be an integer between 1 and 90",
			})
			return
		}
		days = parsed
	}

	stats, err := h.tracker.Stats(c.Request.Context(), days)
	if err != nil {
		h.logger.Error("Agent stats query failed", logger.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "agent stats temporarily unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// bookmarkCount is one content item's bookmark total.
type bookmarkCount struct {
	ContentType domain.ContentType `json:"content_type"`
	Slug        string             `json:"slug"`
	Title       string             `json:"title"`
	Count       int64              `json:"count"`
}

// bookmarkReport aggregates bookmark counts across all published content.
type bookmarkReport struct {
	Items       []bookmarkCount `json:"items"`
	Total       int64           `json:"total"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// BookmarkStats reports bookmark counts for every known content item.
func (h *AdminHandler) BookmarkStats(c *gin.Context) {
	ctx := c.Request.Context()
	items := h.store.All()

	report := bookmarkReport{
		Items:       make([]bookmarkCount, 0, len(items)),
		GeneratedAt: time.Now().UTC(),
	}

	for _, item := range items {
		count, err := h.counter.Get(ctx, item.Type, item.Slug)
		if err != nil {
			h.logger.Error("Bookmark stats query failed",
				logger.String("slug", item.Slug),
				logger.Error(err),
			)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "bookmark stats temporarily unavailable",
			})
			return
		}

		report.Items = append(report.Items, bookmarkCount{
			ContentType: item.Type,
			Slug:        item.Slug,
			Title:       item.Title,
			Count:       count,
		})
		report.Total += count
	}

	c.JSON(http.StatusOK, report)
}
