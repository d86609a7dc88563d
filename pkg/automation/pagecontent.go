package automation

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// PageContent is the structured extraction of one page, as returned by
// get_page_content and stored in the tab context store. Its Text and Forms
// are always sanitized before it leaves this package.
type PageContent struct {
	Title    string      `json:"title"`
	URL      string      `json:"url"`
	Text     string      `json:"text"`
	Headings []Heading   `json:"headings"`
	Forms    []FormField `json:"forms,omitempty"`
	Meta     PageMeta    `json:"meta"`
}

// Heading is one entry of the page's heading outline.
type Heading struct {
	Tag  string `json:"tag"`
	Text string `json:"text"`
}

// FormField describes one form control on the page. Sensitive values are
// replaced with a redaction marker before the descriptor is returned.
type FormField struct {
	Type        string `json:"type"`
	Name        string `json:"name,omitempty"`
	ID          string `json:"id,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Value       string `json:"value,omitempty"`
}

// PageMeta carries document metadata: description, canonical URL, and social
// tags.
type PageMeta struct {
	Description   string `json:"description,omitempty"`
	Canonical     string `json:"canonical,omitempty"`
	OGTitle       string `json:"ogTitle,omitempty"`
	OGDescription string `json:"ogDescription,omitempty"`
	OGImage       string `json:"ogImage,omitempty"`
}

// headingTags in outline order.
var headingTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

// ExtractPageContent parses a page's HTML into structured content. The
// sanitization pass (redacting sensitive form values, emails, and long digit
// runs) always runs; callers never see raw extracted text.
func ExtractPageContent(htmlText, pageURL string, includeForms bool) PageContent {
	content := PageContent{URL: pageURL, Headings: []Heading{}}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		return content
	}

	content.Title = cleanText(doc.Find("title").First().Text())
	content.Meta = extractMeta(doc)

	if root, err := html.Parse(strings.NewReader(htmlText)); err == nil {
		content.Text = RedactText(visibleText(root))
	}

	doc.Find(strings.Join(headingTags, ", ")).Each(func(_ int, sel *goquery.Selection) {
		text := cleanText(sel.Text())
		if text == "" {
			return
		}
		content.Headings = append(content.Headings, Heading{
			Tag:  goquery.NodeName(sel),
			Text: RedactText(text),
		})
	})

	if includeForms {
		content.Forms = extractForms(doc)
	}

	return content
}

func extractMeta(doc *goquery.Document) PageMeta {
	meta := PageMeta{}
	metaContent := func(selector string) string {
		v, _ := doc.Find(selector).First().Attr("content")
		return cleanText(v)
	}
	meta.Description = metaContent(`meta[name="description"]`)
	meta.OGTitle = metaContent(`meta[property="og:title"]`)
	meta.OGDescription = metaContent(`meta[property="og:description"]`)
	meta.OGImage = metaContent(`meta[property="og:image"]`)
	if href, ok := doc.Find(`link[rel="canonical"]`).First().Attr("href"); ok {
		meta.Canonical = strings.TrimSpace(href)
	}
	return meta
}

// extractForms collects form control descriptors, redacted field by field.
func extractForms(doc *goquery.Document) []FormField {
	fields := make([]FormField, 0)
	doc.Find("input, textarea, select").Each(func(_ int, sel *goquery.Selection) {
		field := FormField{
			Type:        strings.ToLower(attrOr(sel, "type", goquery.NodeName(sel))),
			Name:        attrOr(sel, "name", ""),
			ID:          attrOr(sel, "id", ""),
			Placeholder: attrOr(sel, "placeholder", ""),
			Value:       attrOr(sel, "value", ""),
		}
		if field.Type == "hidden" {
			return
		}
		fields = append(fields, RedactFormField(field))
	})
	return fields
}

func attrOr(sel *goquery.Selection, name, def string) string {
	if v, ok := sel.Attr(name); ok {
		return v
	}
	return def
}

// skippedElements are non-content elements excluded from the visible-text
// walk.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
	"head":     true,
	"iframe":   true,
	"svg":      true,
}

// visibleText walks the parsed document collecting text node content,
// skipping script/style and other non-content subtrees, and collapses
// whitespace.
func visibleText(n *html.Node) string {
	var builder strings.Builder
	collectText(n, &builder)
	return cleanText(builder.String())
}

func collectText(n *html.Node, builder *strings.Builder) {
	if n.Type == html.CommentNode {
		return
	}
	if n.Type == html.ElementNode && skippedElements[strings.ToLower(n.Data)] {
		return
	}
	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			builder.WriteString(text)
			builder.WriteByte(' ')
		}
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, builder)
	}
}
