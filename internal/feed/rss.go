package feed

import (
	"encoding/xml"
	"fmt"
	"time"
)

// contentNamespace is the RSS content module namespace, declared only when
// full-content entries are present.
const contentNamespace = "http://purl.org/rss/1.0/modules/content/"

// rssDocument is the root <rss> element.
type rssDocument struct {
	XMLName      xml.Name   `xml:"rss"`
	Version      string     `xml:"version,attr"`
	ContentXMLNS string     `xml:"xmlns:content,attr,omitempty"`
	Channel      rssChannel `xml:"channel"`
}

// rssChannel holds the channel-level metadata and items.
type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

// rssItem is a single <item> entry.
type rssItem struct {
	Title       string      `xml:"title"`
	Link        string      `xml:"link"`
	GUID        rssGUID     `xml:"guid"`
	PubDate     string      `xml:"pubDate"`
	Description string      `xml:"description,omitempty"`
	Categories  []string    `xml:"category,omitempty"`
	Content     *rssContent `xml:",omitempty"`
}

// rssGUID is the item GUID; permalinks double as the GUID.
type rssGUID struct {
	XMLName     xml.Name `xml:"guid"`
	IsPermaLink bool     `xml:"isPermaLink,attr"`
	Value       string   `xml:",chardata"`
}

// rssContent carries rendered HTML in the content module's encoded element.
type rssContent struct {
	XMLName xml.Name `xml:"content:encoded"`
	Value   string   `xml:",cdata"`
}

// buildRSS serializes entries as an RSS 2.0 document.
func (b *Builder) buildRSS(entries []entry) (string, error) {
	doc := rssDocument{
		Version: "2.0",
		Channel: rssChannel{
			Title:         b.opts.Title,
			Link:          b.opts.SiteURL,
			Description:   b.opts.Description,
			Language:      b.opts.Language,
			LastBuildDate: b.updatedAt(entries).Format(time.RFC1123Z),
			Items:         make([]rssItem, 0, len(entries)),
		},
	}

	for _, e := range entries {
		item := rssItem{
			Title:       e.item.Title,
			Link:        e.link,
			GUID:        rssGUID{IsPermaLink: true, Value: e.link},
			PubDate:     e.item.PublishedAt.Format(time.RFC1123Z),
			Description: e.item.Summary,
			Categories:  e.item.Tags,
		}

		if e.contentHTML != "" {
			doc.ContentXMLNS = contentNamespace
			item.Content = &rssContent{Value: e.contentHTML}
		}

		doc.Channel.Items = append(doc.Channel.Items, item)
	}

	return marshalXML(doc, FormatRSS)
}

// marshalXML serializes an XML document with the standard header, wrapping
// failures as GenerationError.
func marshalXML(doc any, format Format) (string, error) {
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &GenerationError{Format: format, Err: fmt.Errorf("marshal xml: %w", err)}
	}
	return xml.Header + string(out) + "\n", nil
}
