package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are removed before text extraction.
const noiseSelectors = "script, style, noscript, template, svg, iframe, nav, footer, aside, form, .ad, .advertisement, .sidebar"

// mainSelectors are tried in order to find the primary content; body is the fallback.
var mainSelectors = []string{"main", "article", "[role=main]", "#content", "#main", ".content", ".post", ".entry"}

var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true, "main": true, "header": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "ul": true, "ol": true, "dl": true, "dt": true, "dd": true,
	"table": true, "tr": true, "blockquote": true, "pre": true, "br": true, "hr": true,
	"figure": true, "figcaption": true,
}

// extractHTML returns the page title and readable body text.
func extractHTML(content []byte) (title, text string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", "", fmt.Errorf("parse HTML: %w", err)
	}
	title = strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find(noiseSelectors).Remove()

	var root *goquery.Selection
	for _, sel := range mainSelectors {
		if s := doc.Find(sel); s.Length() > 0 {
			root = s.First()
			break
		}
	}
	if root == nil {
		root = doc.Find("body")
	}
	if root.Length() == 0 {
		root = doc.Selection
	}

	var b strings.Builder
	writeText(root, &b)
	return title, b.String(), nil
}

// writeText walks sel's children, writing text nodes and a newline after block elements.
func writeText(sel *goquery.Selection, b *strings.Builder) {
	sel.Contents().Each(func(_ int, s *goquery.Selection) {
		name := goquery.NodeName(s)
		switch name {
		case "#text":
			b.WriteString(s.Text())
		case "#comment":
		default:
			writeText(s, b)
			if blockTags[name] {
				b.WriteByte('\n')
			} else if name == "td" || name == "th" {
				b.WriteByte('\t')
			}
		}
	})
}
