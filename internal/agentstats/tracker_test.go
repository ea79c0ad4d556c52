package agentstats_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/agentstats"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
)

var trackerNow = time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)

func setupTracker(t *testing.T) (*agentstats.Tracker, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tracker := agentstats.NewTracker(client, "site:test", 30, logger.NewNop()).
		WithClock(func() time.Time { return trackerNow })
	return tracker, mr
}

func TestIdentify(t *testing.T) {
	cases := []struct {
		ua    string
		agent string
		ok    bool
	}{
		{"Mozilla/5.0 (compatible; GPTBot/1.2; +https://openai.com/gptbot)", "gptbot", true},
		{"Mozilla/5.0 (compatible; ClaudeBot/1.0; +claudebot@anthropic.com)", "claudebot", true},
		{"Mozilla/5.0 (compatible; PerplexityBot/1.0)", "perplexitybot", true},
		{"CCBot/2.0 (https://commoncrawl.org/faq/)", "ccbot", true},
		{"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36", "", false},
		{"", "", false},
	}

	for _, tc := range cases {
		agent, ok := agentstats.Identify(tc.ua)
		assert.Equal(t, tc.ok, ok, "ua=%q", tc.ua)
		assert.Equal(t, tc.agent, agent, "ua=%q", tc.ua)
	}
}

func TestRecordAndStats(t *testing.T) {
	tracker, _ := setupTracker(t)
	ctx := context.Background()

	for range 3 {
		require.NoError(t, tracker.Record(ctx, "gptbot"))
	}
	require.NoError(t, tracker.Record(ctx, "claudebot"))

	stats, err := tracker.Stats(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, 7, stats.Days)

	byAgent := make(map[string]agentstats.AgentCount, len(stats.Agents))
	for _, a := range stats.Agents {
		byAgent[a.Agent] = a
	}

	assert.Equal(t, int64(3), byAgent["gptbot"].Window)
	assert.Equal(t, int64(3), byAgent["gptbot"].Total)
	assert.Equal(t, int64(1), byAgent["claudebot"].Window)
	assert.Equal(t, int64(0), byAgent["perplexitybot"].Window)
	assert.Nil(t, byAgent["perplexitybot"].ByDay)
}

func TestRecord_SetsRetentionTTL(t *testing.T) {
	tracker, mr := setupTracker(t)

	require.NoError(t, tracker.Record(context.Background(), "gptbot"))

	key := "site:test:agents:gptbot:2026-05-20"
	require.True(t, mr.Exists(key))
	assert.Greater(t, mr.TTL(key), time.Duration(0))
}

func TestRollup_FoldsYesterdayIntoTotals(t *testing.T) {
	tracker, mr := setupTracker(t)
	ctx := context.Background()

	// Seed yesterday's counts directly.
	yesterdayKey := "site:test:agents:gptbot:2026-05-19"
	require.NoError(t, mr.Set(yesterdayKey, "5"))

	require.NoError(t, tracker.Rollup(ctx))

	total, err := mr.Get("site:test:agents:total:gptbot")
	require.NoError(t, err)
	assert.Equal(t, "5", total)
	assert.True(t, mr.Exists(yesterdayKey), "daily key must survive rollup for windowed queries")

	// A second rollup for the same day is a no-op.
	require.NoError(t, mr.Set(yesterdayKey, "9"))
	require.NoError(t, tracker.Rollup(ctx))
	total, err = mr.Get("site:test:agents:total:gptbot")
	require.NoError(t, err)
	assert.Equal(t, "5", total)
}

func TestStats_WindowSpansRolledDays(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clock := time.Date(2026, 5, 19, 23, 0, 0, 0, time.UTC)
	tracker := agentstats.NewTracker(client, "site:test", 30, logger.NewNop()).
		WithClock(func() time.Time { return clock })
	ctx := context.Background()

	// Five hits on day one.
	for range 5 {
		require.NoError(t, tracker.Record(ctx, "claudebot"))
	}

	// Next morning the rollup job runs, then two more hits land.
	clock = trackerNow
	require.NoError(t, tracker.Rollup(ctx))
	for range 2 {
		require.NoError(t, tracker.Record(ctx, "claudebot"))
	}

	stats, err := tracker.Stats(ctx, 7)
	require.NoError(t, err)

	var claude agentstats.AgentCount
	for _, a := range stats.Agents {
		if a.Agent == "claudebot" {
			claude = a
		}
	}

	assert.Equal(t, int64(7), claude.Window, "window must include rolled days")
	assert.Equal(t, int64(7), claude.Total, "rolled days must not be double counted")
	assert.Equal(t, int64(5), claude.ByDay["2026-05-19"])
	assert.Equal(t, int64(2), claude.ByDay["2026-05-20"])
}

func TestStats_UnreachableRedis(t *testing.T) {
	tracker, mr := setupTracker(t)
	mr.Close()

	_, err := tracker.Stats(context.Background(), 7)
	assert.Error(t, err)
}
