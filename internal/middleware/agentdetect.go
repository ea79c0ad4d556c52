// Package middleware provides request middleware specific to the site API.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/agentstats"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/metrics"
)

// AgentContextKey is the gin context key holding the detected AI agent name.
const AgentContextKey = "ai_agent"

// AgentDetect identifies AI crawler traffic by User-Agent and records it
// against the usage tracker. Detection never blocks or fails the request;
// a tracker error only produces a warning.
func AgentDetect(tracker *agentstats.Tracker, m *metrics.Metrics, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		agent, ok := agentstats.Identify(c.Request.UserAgent())
		if ok {
			c.Set(AgentContextKey, agent)

			if m != nil {
				m.RecordAgentVisit(agent)
			}
			if err := tracker.Record(c.Request.Context(), agent); err != nil {
				log.Warn("Failed to record agent visit",
					logger.String("agent", agent),
					logger.Error(err),
				)
			}
		}

		c.Next()
	}
}

// DetectedAgent returns the AI agent name set by AgentDetect, if any.
func DetectedAgent(c *gin.Context) (string, bool) {
	v, exists := c.Get(AgentContextKey)
	if !exists {
		return "", false
	}

	agent, ok := v.(string)
	return agent, ok
}
