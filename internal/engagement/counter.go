// Package engagement maintains per-content bookmark counters in Redis.
//
// Counters are the site's only mutable public state. All mutation happens
// through Redis atomic primitives so concurrent requests never lose
// updates, and every failure degrades to ErrUnavailable instead of
// surfacing a transport error to the request pipeline.
package engagement

import (
	"context"
	"errors"
	"fmt"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/domain"
)

// ErrUnavailable indicates the backing cache is unreachable or timed out.
// Callers translate it to a degraded (503) response.
var ErrUnavailable = errors.New("bookmark counters unavailable")

// ErrInvalidKey indicates a bad content type or empty slug.
var ErrInvalidKey = errors.New("invalid counter key")

// Counter exposes the bookmark counter operations.
type Counter interface {
	// Increment atomically adds one and returns the new count.
	Increment(ctx context.Context, ct domain.ContentType, slug string) (int64, error)
	// Decrement atomically subtracts one, clamped at zero, and returns
	// the new count.
	Decrement(ctx context.Context, ct domain.ContentType, slug string) (int64, error)
	// Get returns the current count. An absent counter reads as zero.
	Get(ctx context.Context, ct domain.ContentType, slug string) (int64, error)
}

// Keys builds namespaced Redis keys for bookmark counters. The prefix
// separates deployment environments (e.g. "site:prod" vs "site:preview").
type Keys struct {
	prefix string
}

// NewKeys creates a Keys instance with the given environment prefix.
func NewKeys(prefix string) *Keys {
	return &Keys{prefix: prefix}
}

// Bookmarks returns the counter key for a content item.
func (k *Keys) Bookmarks(ct domain.ContentType, slug string) string {
	return fmt.Sprintf("%s:bookmarks:%s:%s", k.prefix, ct, slug)
}

// validateKey rejects unknown content types and empty slugs before any
// Redis round-trip.
func validateKey(ct domain.ContentType, slug string) error {
	if !ct.Valid() {
		return fmt.Errorf("%w: content type %q", ErrInvalidKey, ct)
	}
	if slug == "" {
		return fmt.Errorf("%w: empty slug", ErrInvalidKey)
	}
	return nil
}
