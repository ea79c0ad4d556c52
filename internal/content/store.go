// Package content loads the site's posts and projects from the in-repo
// YAML content files and serves them as immutable slices.
package content

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dcyfr/dcyfr-labs-sub013/internal/domain"
)

// Content file names inside the content directory.
const (
	postsFile    = "posts.yml"
	projectsFile = "projects.yml"
)

// postsDocument is the root of posts.yml.
type postsDocument struct {
	Posts []domain.ContentItem `yaml:"posts"`
}

// projectsDocument is the root of projects.yml.
type projectsDocument struct {
	Projects []domain.ContentItem `yaml:"projects"`
}

// Store holds all loaded content items, sorted newest first.
// It is read-only after Load and safe for concurrent use.
type Store struct {
	items []domain.ContentItem
}

// Load reads the content directory and validates every item.
// A missing file is treated as an empty section (a site without projects
// is fine); a malformed file or item is an error.
func Load(dir string) (*Store, error) {
	var posts postsDocument
	if err := loadFile(filepath.Join(dir, postsFile), &posts); err != nil {
		return nil, err
	}

	var projects projectsDocument
	if err := loadFile(filepath.Join(dir, projectsFile), &projects); err != nil {
		return nil, err
	}

	items := make([]domain.ContentItem, 0, len(posts.Posts)+len(projects.Projects))
	items = append(items, withType(posts.Posts, domain.TypePost)...)
	items = append(items, withType(projects.Projects, domain.TypeProject)...)

	if err := validate(items); err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	return &Store{items: items}, nil
}

// loadFile unmarshals one YAML content file into doc.
func loadFile(path string, doc any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read content file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, doc); err != nil {
		return fmt.Errorf("parse content file %s: %w", path, err)
	}

	return nil
}

// withType stamps the content type on every item in the section.
func withType(items []domain.ContentItem, ct domain.ContentType) []domain.ContentItem {
	for i := range items {
		items[i].Type = ct
	}
	return items
}

// validate checks required fields and slug uniqueness per content type.
func validate(items []domain.ContentItem) error {
	seen := make(map[string]struct{}, len(items))

	for i := range items {
		item := &items[i]
		if item.Slug == "" {
			return fmt.Errorf("content item %d (%s): missing slug", i, item.Type)
		}
		if item.Title == "" {
			return fmt.Errorf("content item %q: missing title", item.Slug)
		}
		if item.PublishedAt.IsZero() {
			return fmt.Errorf("content item %q: missing published_at", item.Slug)
		}

		key := string(item.Type) + "/" + item.Slug
		if _, dup := seen[key]; dup {
			return fmt.Errorf("duplicate content slug %q for type %s", item.Slug, item.Type)
		}
		seen[key] = struct{}{}
	}

	return nil
}

// All returns every loaded item, newest first.
func (s *Store) All() []domain.ContentItem {
	out := make([]domain.ContentItem, len(s.items))
	copy(out, s.items)
	return out
}

// ByType returns items of one content type, newest first.
func (s *Store) ByType(ct domain.ContentType) []domain.ContentItem {
	out := make([]domain.ContentItem, 0, len(s.items))
	for _, item := range s.items {
		if item.Type == ct {
			out = append(out, item)
		}
	}
	return out
}

// Find looks up a single item by type and slug.
func (s *Store) Find(ct domain.ContentType, slug string) (domain.ContentItem, bool) {
	for _, item := range s.items {
		if item.Type == ct && item.Slug == slug {
			return item, true
		}
	}
	return domain.ContentItem{}, false
}

// Len returns the number of loaded items.
func (s *Store) Len() int {
	return len(s.items)
}
