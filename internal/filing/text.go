// Package filing extracts constraint language and a business description
// from the text of an annual report.
package filing

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// inline XBRL header carries hidden contexts and units
	hiddenSelector = "script, style, head, [hidden], ix\\:header, [style*='display:none'], [style*='display: none']"
	blockSelector  = "p, div, br, tr, td, th, li, h1, h2, h3, h4, h5, h6, table"

	reScriptStyle = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	reTag         = regexp.MustCompile(`<[^>]+>`)
)

// HTMLToText renders a filing document as whitespace-collapsed plain text.
// Input without markup is only collapsed.
func HTMLToText(doc string) string {
	if !strings.Contains(doc, "<") {
		return collapse(doc)
	}

	parsed, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return collapse(stripTags(doc))
	}

	parsed.Find(hiddenSelector).Remove()
	// keep block boundaries so paragraphs do not run together
	parsed.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml(" ")
	})

	return collapse(parsed.Text())
}

func stripTags(doc string) string {
	doc = reScriptStyle.ReplaceAllString(doc, " ")
	return reTag.ReplaceAllString(doc, " ")
}

// collapse also folds nbsp, which unicode.IsSpace covers
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
