// Package feed generates RSS 2.0, Atom 1.0, and JSON Feed 1.1 documents
// from the site's content items.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/domain"
	"github.com/dcyfr/dcyfr-labs-sub013/internal/logger"
)

// Format selects the output document type.
type Format string

// Supported feed formats.
const (
	FormatRSS  Format = "rss"
	FormatAtom Format = "atom"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned when Build is called with an unsupported format.
var ErrUnknownFormat = errors.New("unknown feed format")

// defaultLimit is the item cap used when Options.Limit is zero.
const defaultLimit = 20

// Feed paths by format, appended to the site URL for self links.
var feedPaths = map[Format]string{
	FormatRSS:  "/rss.xml",
	FormatAtom: "/atom.xml",
	FormatJSON: "/feed.json",
}

// ContentTypes maps each format to its response Content-Type header value.
var ContentTypes = map[Format]string{
	FormatRSS:  "application/rss+xml; charset=utf-8",
	FormatAtom: "application/atom+xml; charset=utf-8",
	FormatJSON: "application/feed+json; charset=utf-8",
}

// GenerationError wraps a serialization failure so callers can fall back
// to an empty feed instead of failing the request.
type GenerationError struct {
	Format Format
	Err    error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate %s feed: %v", e.Format, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Renderer converts a content body (markdown source) to HTML for
// full-content feeds.
type Renderer interface {
	RenderHTML(ctx context.Context, source string) (string, error)
}

// Visibility decides whether an item appears in public output.
type Visibility func(domain.ContentItem) bool

// Options configures feed metadata and item selection.
type Options struct {
	Title       string
	Description string
	SiteURL     string
	Language    string
	Author      string
	// Limit caps the number of items per document. Zero means the default.
	Limit int
	// Now supplies the current time; nil means time.Now. Tests override it.
	Now func() time.Time
}

// Builder produces serialized feed documents. It is safe for concurrent
// use; Build has no side effects beyond logging.
type Builder struct {
	opts     Options
	visible  Visibility
	renderer Renderer
	log      logger.Logger
}

// NewBuilder creates a Builder with the default visibility predicate,
// which excludes drafts and future-dated items.
func NewBuilder(opts Options, log logger.Logger) *Builder {
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	b := &Builder{opts: opts, log: log}
	b.visible = b.defaultVisibility
	return b
}

// WithVisibility replaces the visibility predicate.
func (b *Builder) WithVisibility(pred Visibility) *Builder {
	b.visible = pred
	return b
}

// WithRenderer enables full-content feeds using the given body renderer.
func (b *Builder) WithRenderer(r Renderer) *Builder {
	b.renderer = r
	return b
}

// Build serializes the publishable subset of items in the given format.
// Items are filtered, sorted by publish date descending, and truncated to
// the configured limit. maxItems overrides the configured limit when
// positive.
func (b *Builder) Build(ctx context.Context, items []domain.ContentItem, format Format, maxItems int) (string, error) {
	selected := b.selectItems(items, maxItems)
	entries := b.buildEntries(ctx, selected)

	switch format {
	case FormatRSS:
		return b.buildRSS(entries)
	case FormatAtom:
		return b.buildAtom(entries)
	case FormatJSON:
		return b.buildJSON(entries)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Empty returns a structurally valid feed with no items. Used as the
// degraded response when Build fails.
func (b *Builder) Empty(format Format) string {
	var doc string
	var err error

	switch format {
	case FormatAtom:
		doc, err = b.buildAtom(nil)
	case FormatJSON:
		doc, err = b.buildJSON(nil)
	default:
		doc, err = b.buildRSS(nil)
	}
	if err != nil {
		// Serializing static structs cannot realistically fail; keep the
		// fallback total anyway.
		return ""
	}
	return doc
}

// defaultVisibility excludes drafts and items published after now.
func (b *Builder) defaultVisibility(item domain.ContentItem) bool {
	if item.Draft {
		return false
	}
	return !item.PublishedAt.After(b.opts.Now())
}

// selectItems filters, sorts (newest first, stable), and truncates items.
// Items missing a slug or title are skipped with a warning rather than
// failing the whole feed.
func (b *Builder) selectItems(items []domain.ContentItem, maxItems int) []domain.ContentItem {
	limit := b.opts.Limit
	if maxItems > 0 {
		limit = maxItems
	}

	selected := make([]domain.ContentItem, 0, len(items))
	for _, item := range items {
		if item.Slug == "" || item.Title == "" {
			b.log.Warn("Skipping malformed content item",
				logger.String("slug", item.Slug),
				logger.String("title", item.Title),
			)
			continue
		}
		if !b.visible(item) {
			continue
		}
		selected = append(selected, item)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].PublishedAt.After(selected[j].PublishedAt)
	})

	if len(selected) > limit {
		selected = selected[:limit]
	}

	return selected
}

// entry is a format-independent feed entry with resolved permalink and
// optional rendered content.
type entry struct {
	item        domain.ContentItem
	link        string
	contentHTML string
}

// buildEntries resolves permalinks and, when a renderer is configured,
// converts item bodies to HTML. A renderer failure skips content for that
// item only.
func (b *Builder) buildEntries(ctx context.Context, items []domain.ContentItem) []entry {
	entries := make([]entry, 0, len(items))

	for _, item := range items {
		e := entry{item: item, link: item.Permalink(b.opts.SiteURL)}

		if b.renderer != nil && item.Body != "" {
			html, err := b.renderer.RenderHTML(ctx, item.Body)
			if err != nil {
				b.log.Warn("Failed to render item body, emitting summary only",
					logger.String("slug", item.Slug),
					logger.Error(err),
				)
			} else {
				e.contentHTML = html
			}
		}

		entries = append(entries, e)
	}

	return entries
}

// updatedAt returns the newest publish time among entries, or now for an
// empty feed.
func (b *Builder) updatedAt(entries []entry) time.Time {
	if len(entries) == 0 {
		return b.opts.Now()
	}
	return entries[0].item.PublishedAt
}

// feedURL returns the absolute self URL for the given format.
func (b *Builder) feedURL(format Format) string {
	return b.opts.SiteURL + feedPaths[format]
}
