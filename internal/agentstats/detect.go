// Package agentstats tracks AI crawler traffic for the admin dashboard.
//
// Detection matches request User-Agent strings against known AI agent
// substrings; per-agent counts are kept in Redis as daily keys with a
// retention TTL, plus an all-time total maintained by the daily rollup.
package agentstats

import "strings"

// agentPatterns maps lowercase User-Agent substrings to canonical agent
// names. Ordering does not matter; first match wins.
var agentPatterns = map[string]string{
	"gptbot":             "gptbot",
	"chatgpt-user":       "chatgpt-user",
	"oai-searchbot":      "oai-searchbot",
	"claudebot":          "claudebot",
	"claude-web":         "claude-web",
	"anthropic-ai":       "anthropic-ai",
	"perplexitybot":      "perplexitybot",
	"google-extended":    "google-extended",
	"ccbot":              "ccbot",
	"bytespider":         "bytespider",
	"meta-externalagent": "meta-externalagent",
	"amazonbot":          "amazonbot",
	"applebot-extended":  "applebot-extended",
	"cohere-ai":          "cohere-ai",
	"mistralai":          "mistralai",
}

// Identify returns the canonical AI agent name for a User-Agent string,
// or false when the request does not come from a known AI crawler.
func Identify(userAgent string) (string, bool) {
	ua := strings.ToLower(userAgent)
	if ua == "" {
		return "", false
	}

	for pattern, name := range agentPatterns {
		if strings.Contains(ua, pattern) {
			return name, true
		}
	}

	return "", false
}

// KnownAgents returns the canonical names of all tracked AI agents.
func KnownAgents() []string {
	names := make([]string, 0, len(agentPatterns))
	seen := make(map[string]struct{}, len(agentPatterns))
	for _, name := range agentPatterns {
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
