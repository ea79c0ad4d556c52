package feed

import (
	"encoding/xml"
	"time"
)

// atomNamespace is the Atom 1.0 XML namespace.
const atomNamespace = "http://www.w3.org/2005/Atom"

// atomDocument is the root <feed> element.
type atomDocument struct {
	XMLName xml.Name    `xml:"feed"`
	XMLNS   string      `xml:"xmlns,attr"`
	ID      string      `xml:"id"`
	Title   string      `xml:"title"`
	Updated string      `xml:"updated"`
	Author  *atomAuthor `xml:"author,omitempty"`
	Links   []atomLink  `xml:"link"`
	Entries []atomEntry `xml:"entry"`
}

// atomAuthor is the feed-level author.
type atomAuthor struct {
	Name string `xml:"name"`
}

// atomLink is a <link> element with rel/type attributes.
type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr,omitempty"`
	Type string `xml:"type,attr,omitempty"`
}

// atomEntry is a single <entry>.
type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Link       atomLink       `xml:"link"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
	Summary    *atomText      `xml:"summary,omitempty"`
	Content    *atomText      `xml:"content,omitempty"`
	Categories []atomCategory `xml:"category,omitempty"`
}

// atomText is a text construct with an optional type attribute.
type atomText struct {
	Type  string `xml:"type,attr,omitempty"`
	Value string `xml:",chardata"`
}

// atomCategory is a <category> element; Atom carries the tag in the term
// attribute.
type atomCategory struct {
	Term string `xml:"term,attr"`
}

// buildAtom serializes entries as an Atom 1.0 document.
func (b *Builder) buildAtom(entries []entry) (string, error) {
	doc := atomDocument{
		XMLNS:   atomNamespace,
		ID:      b.opts.SiteURL + "/",
		Title:   b.opts.Title,
		Updated: b.updatedAt(entries).Format(time.RFC3339),
		Links: []atomLink{
			{Href: b.feedURL(FormatAtom), Rel: "self", Type: "application/atom+xml"},
			{Href: b.opts.SiteURL, Rel: "alternate", Type: "text/html"},
		},
		Entries: make([]atomEntry, 0, len(entries)),
	}

	if b.opts.Author != "" {
		doc.Author = &atomAuthor{Name: b.opts.Author}
	}

	for _, e := range entries {
		published := e.item.PublishedAt.Format(time.RFC3339)

		ae := atomEntry{
			ID:        e.link,
			Title:     e.item.Title,
			Link:      atomLink{Href: e.link, Rel: "alternate", Type: "text/html"},
			Published: published,
			Updated:   published,
		}

		if e.item.Summary != "" {
			ae.Summary = &atomText{Value: e.item.Summary}
		}
		if e.contentHTML != "" {
			ae.Content = &atomText{Type: "html", Value: e.contentHTML}
		}
		for _, tag := range e.item.Tags {
			ae.Categories = append(ae.Categories, atomCategory{Term: tag})
		}

		doc.Entries = append(doc.Entries, ae)
	}

	return marshalXML(doc, FormatAtom)
}
