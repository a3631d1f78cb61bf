package usecase

import (
	"fmt"
	"html"
	"strings"
	"time"

	"digest-orchestrator/internal/domain"
)

const maxContentItemsInPrompt = 20

// buildDigestPrompt assembles the generation prompt from the trend set, the
// recent content, and the resolved style descriptor.
func buildDigestPrompt(trends []domain.Trend, items []domain.ContentItem, style domain.StyleDescriptorV1, localDate time.Time) string {
	var b strings.Builder

	b.WriteString("You are writing a personalized email digest for ")
	b.WriteString(localDate.Format("January 2, 2006"))
	b.WriteString(".\n\nWrite in this style:\n")
	fmt.Fprintf(&b, "- tone: %s\n- voice: %s\n- sentence structure: %s\n", style.Tone, style.Voice, style.SentenceStructure)
	fmt.Fprintf(&b, "- vocabulary: %s\n- opening: %s\n- closing: %s\n", style.VocabularyLevel, style.OpeningStyle, style.ClosingStyle)
	fmt.Fprintf(&b, "- formatting: %s\n- humor: %s\n- call to action: %s\n", style.Formatting, style.HumorUsage, style.CTAStyle)

	if len(trends) > 0 {
		b.WriteString("\nTrending topics for this reader, strongest first:\n")
		for i, tr := range trends {
			fmt.Fprintf(&b, "%d. %s (%d mentions, score %.0f)\n", i+1, tr.Keyword, tr.MentionCount, tr.CompositeScore)
		}
	}

	if len(items) > 0 {
		b.WriteString("\nRecent items from their sources:\n")
		n := len(items)
		if n > maxContentItemsInPrompt {
			n = maxContentItemsInPrompt
		}
		for _, item := range items[:n] {
			fmt.Fprintf(&b, "- %s (%s)\n", item.Title, item.URL)
		}
	}

	b.WriteString(`
Respond with a JSON object only, no markdown fences:
{"subject": "...", "body_html": "...", "body_text": "..."}
The subject must mention the date and the strongest topic. The body opens
with a short greeting, covers each trending topic in its own section with
links to the relevant items, and closes per the style above.`)
	return b.String()
}

// fallbackDigest builds a deterministic template digest when generation
// fails. Same inputs always produce the same output.
func fallbackDigest(trends []domain.Trend, items []domain.ContentItem, localDate time.Time) *domain.GeneratedDigest {
	date := localDate.Format("January 2, 2006")
	subject := fmt.Sprintf("Your digest for %s", date)
	if len(trends) > 0 {
		subject = fmt.Sprintf("Your digest for %s: %s", date, trends[0].Keyword)
	}

	var text, htmlBody strings.Builder
	fmt.Fprintf(&text, "Your digest for %s\n\n", date)
	fmt.Fprintf(&htmlBody, "<h1>Your digest for %s</h1>\n", html.EscapeString(date))

	if len(trends) > 0 {
		text.WriteString("Trending now:\n")
		htmlBody.WriteString("<h2>Trending now</h2>\n<ul>\n")
		for _, tr := range trends {
			fmt.Fprintf(&text, "- %s (%d mentions)\n", tr.Keyword, tr.MentionCount)
			fmt.Fprintf(&htmlBody, "<li>%s (%d mentions)</li>\n", html.EscapeString(tr.Keyword), tr.MentionCount)
		}
		text.WriteString("\n")
		htmlBody.WriteString("</ul>\n")
	}

	if len(items) > 0 {
		n := len(items)
		if n > maxContentItemsInPrompt {
			n = maxContentItemsInPrompt
		}
		text.WriteString("Latest from your sources:\n")
		htmlBody.WriteString("<h2>Latest from your sources</h2>\n<ul>\n")
		for _, item := range items[:n] {
			fmt.Fprintf(&text, "- %s\n  %s\n", item.Title, item.URL)
			fmt.Fprintf(&htmlBody, "<li><a href=%q>%s</a></li>\n", item.URL, html.EscapeString(item.Title))
		}
		htmlBody.WriteString("</ul>\n")
	}

	return &domain.GeneratedDigest{
		Subject:  subject,
		BodyHTML: htmlBody.String(),
		BodyText: text.String(),
	}
}
