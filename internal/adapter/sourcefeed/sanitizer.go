package sourcefeed

import (
	"strings"

	"digest-orchestrator/internal/usecase"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// HTMLSanitizer reduces feed item bodies to plain text: scripts, styles and
// markup stripped, whitespace collapsed. Keyword extraction and prompt
// assembly both assume text, not HTML.
type HTMLSanitizer struct {
	policy *bluemonday.Policy
}

func NewHTMLSanitizer() *HTMLSanitizer {
	return &HTMLSanitizer{policy: bluemonday.StrictPolicy()}
}

func (s *HTMLSanitizer) Sanitize(html string) string {
	if html == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err == nil {
		doc.Find("script, style, noscript").Remove()
		html = doc.Text()
	}

	cleaned := s.policy.Sanitize(html)
	return strings.Join(strings.Fields(cleaned), " ")
}

var _ usecase.BodySanitizer = (*HTMLSanitizer)(nil)
