package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// jsonFeedVersion is the JSON Feed 1.1 version URL.
const jsonFeedVersion = "https://jsonfeed.org/version/1.1"

// jsonDocument is the top-level JSON Feed object.
type jsonDocument struct {
	Version     string       `json:"version"`
	Title       string       `json:"title"`
	HomePageURL string       `json:"home_page_url,omitempty"`
	FeedURL     string       `json:"feed_url,omitempty"`
	Description string       `json:"description,omitempty"`
	Language    string       `json:"language,omitempty"`
	Authors     []jsonAuthor `json:"authors,omitempty"`
	Items       []jsonItem   `json:"items"`
}

// jsonAuthor is a JSON Feed 1.1 author object.
type jsonAuthor struct {
	Name string `json:"name"`
}

// jsonItem is a single feed item. JSON Feed requires content_html or
// content_text; the summary doubles as content_text when no rendered body
// is available.
type jsonItem struct {
	ID            string   `json:"id"`
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary,omitempty"`
	ContentHTML   string   `json:"content_html,omitempty"`
	ContentText   string   `json:"content_text,omitempty"`
	Image         string   `json:"image,omitempty"`
	DatePublished string   `json:"date_published"`
	Tags          []string `json:"tags,omitempty"`
}

// buildJSON serializes entries as a JSON Feed 1.1 document.
func (b *Builder) buildJSON(entries []entry) (string, error) {
	doc := jsonDocument{
		Version:     jsonFeedVersion,
		Title:       b.opts.Title,
		HomePageURL: b.opts.SiteURL,
		FeedURL:     b.feedURL(FormatJSON),
		Description: b.opts.Description,
		Language:    b.opts.Language,
		Items:       make([]jsonItem, 0, len(entries)),
	}

	if b.opts.Author != "" {
		doc.Authors = []jsonAuthor{{Name: b.opts.Author}}
	}

	for _, e := range entries {
		item := jsonItem{
			ID:            e.link,
			URL:           e.link,
			Title:         e.item.Title,
			Summary:       e.item.Summary,
			Image:         e.item.Image,
			DatePublished: e.item.PublishedAt.Format(time.RFC3339),
			Tags:          e.item.Tags,
		}

		switch {
		case e.contentHTML != "":
			item.ContentHTML = e.contentHTML
		case e.item.Summary != "":
			item.ContentText = e.item.Summary
		default:
			// Every item must carry content_html or content_text.
			item.ContentText = e.item.Title
		}

		doc.Items = append(doc.Items, item)
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &GenerationError{Format: FormatJSON, Err: fmt.Errorf("marshal json: %w", err)}
	}

	return string(out) + "\n", nil
}
