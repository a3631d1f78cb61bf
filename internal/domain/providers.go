package domain

import "context"

// GeneratedDigest is the text-generation provider's output for one draft.
type GeneratedDigest struct {
	Subject  string
	BodyHTML string
	BodyText string
}

// LLMClient defines the capability to turn a digest prompt into subject and
// body text. Implementations carry their own timeout; a single generation
// call is never retried more than once.
type LLMClient interface {
	Generate(ctx context.Context, prompt string, maxTokens int) (*GeneratedDigest, error)
	Model() string
}

// PopularityProvider scores keywords 0-100 by external interest. Failures are
// substituted with 0 by callers; popularity is one signal, not a dependency.
type PopularityProvider interface {
	Scores(ctx context.Context, keywords []string) (map[string]float64, error)
}

// SendResult carries the provider's acknowledgement of an accepted email.
type SendResult struct {
	MessageID string
}

// EmailProvider sends one email synchronously; delivery status arrives later
// through the webhook endpoint.
type EmailProvider interface {
	SendEmail(ctx context.Context, to, subject, html, text string) (*SendResult, error)
}
