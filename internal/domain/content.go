// Package domain holds the core types shared across the site API.
package domain

import (
	"strings"
	"time"
)

// ContentType identifies the kind of content an engagement or feed item
// refers to.
type ContentType string

// Known content types.
const (
	TypePost     ContentType = "post"
	TypeProject  ContentType = "project"
	TypeActivity ContentType = "activity"
)

// Valid reports whether the content type is one of the known values.
func (t ContentType) Valid() bool {
	switch t {
	case TypePost, TypeProject, TypeActivity:
		return true
	}
	return false
}

// ParseContentType converts a string to a ContentType.
// Returns false when the value is not a known type.
func ParseContentType(s string) (ContentType, bool) {
	t := ContentType(strings.ToLower(s))
	return t, t.Valid()
}

// Link is a labeled external reference attached to a content item.
type Link struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url"   yaml:"url"`
}

// ContentItem is a single publishable entry (blog post or project).
// Items are immutable once loaded from the content files.
type ContentItem struct {
	Slug        string      `json:"slug"                  yaml:"slug"`
	Type        ContentType `json:"type"                  yaml:"type"`
	Title       string      `json:"title"                 yaml:"title"`
	Summary     string      `json:"summary"               yaml:"summary"`
	Body        string      `json:"body,omitempty"        yaml:"body"`
	PublishedAt time.Time   `json:"published_at"          yaml:"published_at"`
	Tags        []string    `json:"tags,omitempty"        yaml:"tags"`
	Image       string      `json:"image,omitempty"       yaml:"image"`
	Links       []Link      `json:"links,omitempty"       yaml:"links"`
	Draft       bool        `json:"draft,omitempty"       yaml:"draft"`
}

// Path segments for item permalinks by content type.
const (
	postPathPrefix    = "/blog/"
	projectPathPrefix = "/projects/"
)

// Permalink returns the canonical URL of the item under the given site URL.
func (c ContentItem) Permalink(siteURL string) string {
	base := strings.TrimSuffix(siteURL, "/")
	switch c.Type {
	case TypeProject:
		return base + projectPathPrefix + c.Slug
	default:
		return base + postPathPrefix + c.Slug
	}
}
