package agentstats

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
)

// dayFormat is the date layout used in daily counter keys.
const dayFormat = "2006-01-02"

// hoursPerDay converts retention days to a key TTL.
const hoursPerDay = 24

// AgentCount is one agent's usage over the queried window.
type AgentCount struct {
	Agent  string           `json:"agent"`
	Total  int64            `json:"total"`
	Window int64            `json:"window"`
	ByDay  map[string]int64 `json:"by_day,omitempty"`
}

// Stats is the aggregated AI agent usage report.
type Stats struct {
	Days        int          `json:"days"`
	Agents      []AgentCount `json:"agents"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// Keys builds namespaced Redis keys for agent counters.
type Keys struct {
	prefix string
}

// NewKeys creates a Keys instance with the given environment prefix.
func NewKeys(prefix string) *Keys {
	return &Keys{prefix: prefix}
}

// Daily returns the per-day counter key for an agent.
func (k *Keys) Daily(agent string, day time.Time) string {
	return fmt.Sprintf("%s:agents:%s:%s", k.prefix, agent, day.UTC().Format(dayFormat))
}

// Total returns the all-time counter key for an agent.
func (k *Keys) Total(agent string) string {
	return fmt.Sprintf("%s:agents:total:%s", k.prefix, agent)
}

// RollupMarker returns the once-per-day guard key for the rollup job.
func (k *Keys) RollupMarker(day time.Time) string {
	return fmt.Sprintf("%s:agents:rollup:%s", k.prefix, day.UTC().Format(dayFormat))
}

// Tracker records and aggregates AI agent hits in Redis.
type Tracker struct {
	client    redis.UniversalClient
	keys      *Keys
	logger    logger.Logger
	retention time.Duration
	now       func() time.Time
}

// NewTracker creates a Tracker. retentionDays bounds how long daily keys
// are kept; totals never expire.
func NewTracker(client redis.UniversalClient, keyPrefix string, retentionDays int, log logger.Logger) *Tracker {
	return &Tracker{
		client:    client,
		keys:      NewKeys(keyPrefix),
		logger:    log,
		retention: time.Duration(retentionDays) * hoursPerDay * time.Hour,
		now:       time.Now,
	}
}

// WithClock overrides the tracker clock. Tests use it to pin days.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// Record increments today's counter for the agent. Failures are logged
// and returned but callers (the detection middleware) treat them as
// non-fatal: tracking never blocks a request.
func (t *Tracker) Record(ctx context.Context, agent string) error {
	key := t.keys.Daily(agent, t.now())

	pipe := t.client.Pipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, t.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		t.logger.Warn("Failed to record agent hit",
			logger.String("agent", agent),
			logger.String("redis_key", key),
			logger.Error(err),
		)
		return fmt.Errorf("record agent hit: %w", err)
	}

	return nil
}

// Stats aggregates per-agent counts over the last days days, plus the
// all-time totals. Missing keys read as zero; aggregation errors degrade
// to an empty report rather than failing the dashboard.
func (t *Tracker) Stats(ctx context.Context, days int) (*Stats, error) {
	if days < 1 {
		days = 1
	}

	agents := KnownAgents()
	sort.Strings(agents)

	pipe := t.client.Pipeline()

	dailyCmds := make(map[string]map[string]*redis.StringCmd, len(agents))
	totalCmds := make(map[string]*redis.StringCmd, len(agents))
	rolledCmds := make(map[string]*redis.IntCmd, days)

	today := t.now()
	windowDays := make([]string, 0, days)
	for offset := range days {
		day := today.AddDate(0, 0, -offset)
		label := day.UTC().Format(dayFormat)
		windowDays = append(windowDays, label)
		rolledCmds[label] = pipe.Exists(ctx, t.keys.RollupMarker(day))
	}

	for _, agent := range agents {
		dailyCmds[agent] = make(map[string]*redis.StringCmd, days)
		for offset := range days {
			day := today.AddDate(0, 0, -offset)
			dailyCmds[agent][day.UTC().Format(dayFormat)] = pipe.Get(ctx, t.keys.Daily(agent, day))
		}
		totalCmds[agent] = pipe.Get(ctx, t.keys.Total(agent))
	}

	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("aggregate agent stats: %w", err)
	}

	// Days already folded into the totals by Rollup. Their daily keys
	// still exist for windowed queries and must not be counted twice.
	rolled := make(map[string]bool, days)
	for _, day := range windowDays {
		if n, err := rolledCmds[day].Result(); err == nil && n > 0 {
			rolled[day] = true
		}
	}

	stats := &Stats{
		Days:        days,
		Agents:      make([]AgentCount, 0, len(agents)),
		GeneratedAt: today.UTC(),
	}

	for _, agent := range agents {
		count := AgentCount{Agent: agent, ByDay: make(map[string]int64, days)}

		var unrolled int64
		for day, cmd := range dailyCmds[agent] {
			if v, err := cmd.Int64(); err == nil && v > 0 {
				count.ByDay[day] = v
				count.Window += v
				if !rolled[day] {
					unrolled += v
				}
			}
		}
		if v, err := totalCmds[agent].Int64(); err == nil {
			count.Total = v
		}
		count.Total += unrolled

		if count.Window == 0 && count.Total == 0 {
			count.ByDay = nil
		}

		stats.Agents = append(stats.Agents, count)
	}

	return stats, nil
}

// Rollup folds the previous day's counts into the all-time totals. The
// daily keys are left in place for windowed queries; their TTL from
// Record expires them after the retention period. A marker key ensures
// each day is rolled up at most once even if the job fires twice, and
// tells Stats which daily keys are already in the totals.
func (t *Tracker) Rollup(ctx context.Context) error {
	yesterday := t.now().AddDate(0, 0, -1)

	ok, err := t.client.SetNX(ctx, t.keys.RollupMarker(yesterday), t.now().UTC().Format(time.RFC3339), t.retention).Result()
	if err != nil {
		return fmt.Errorf("acquire rollup marker: %w", err)
	}
	if !ok {
		t.logger.Debug("Agent stats rollup already done",
			logger.String("day", yesterday.UTC().Format(dayFormat)),
		)
		return nil
	}

	var rolled int

	for _, agent := range KnownAgents() {
		count, err := t.client.Get(ctx, t.keys.Daily(agent, yesterday)).Int64()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return fmt.Errorf("read daily count for %s: %w", agent, err)
		}

		if err := t.client.IncrBy(ctx, t.keys.Total(agent), count).Err(); err != nil {
			return fmt.Errorf("roll up %s: %w", agent, err)
		}
		rolled++
	}

	t.logger.Info("Agent stats rollup complete",
		logger.String("day", yesterday.UTC().Format(dayFormat)),
		logger.Int("agents", rolled),
	)

	return nil
}
