package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DraftStatus is the lifecycle of a generated digest draft.
type DraftStatus string

const (
	DraftStatusPendingGeneration DraftStatus = "pending_generation"
	DraftStatusReady             DraftStatus = "ready"
	DraftStatusDispatched        DraftStatus = "dispatched"
	DraftStatusArchived          DraftStatus = "archived"
)

// GenerationMode records how the draft body was produced.
type GenerationMode string

const (
	GenerationModeLLM      GenerationMode = "llm"
	GenerationModeFallback GenerationMode = "fallback"
)

// GenerationMeta describes one generation run of a draft.
type GenerationMeta struct {
	Model            string         `json:"model"`
	Mode             GenerationMode `json:"generation_mode"`
	DurationSeconds  float64        `json:"duration_seconds"`
	TrendsUsed       []string       `json:"trends_used"`
	ContentItemsUsed int            `json:"content_items_used"`
	StyleProfileID   *uuid.UUID     `json:"style_profile_id,omitempty"`
}

// Draft is one generated digest for one user and period. At most one draft is
// current per (user, period); a forced regeneration archives the prior one.
type Draft struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	PeriodKey  string
	Subject    string
	BodyHTML   string
	BodyText   string
	InputsHash string
	Status     DraftStatus
	Current    bool
	Meta       GenerationMeta
	CreatedAt  time.Time
}

// GenerateOptions control one draft generation request.
type GenerateOptions struct {
	ForceRegenerate bool
	IncludeTrends   bool
	MaxTrends       int
}

// PeriodKey scopes one generation cycle to one user and local calendar date.
func PeriodKey(userID uuid.UUID, localDate time.Time) string {
	return fmt.Sprintf("%s:%s", userID, localDate.Format("2006-01-02"))
}

// GenerationInputsHash is the idempotency hash over everything that feeds a
// generation: the trend set, the style descriptor version, and the options.
// Trend IDs are sorted so input order cannot change the hash.
func GenerationInputsHash(trendIDs []uuid.UUID, styleVersion int, opts GenerateOptions) string {
	ids := make([]string, len(trendIDs))
	for i, id := range trendIDs {
		ids[i] = id.String()
	}
	sort.Strings(ids)

	h := sha256.New()
	fmt.Fprintf(h, "trends=%s;style_v=%d;force=%t;include=%t;max=%d",
		strings.Join(ids, ","), styleVersion,
		opts.ForceRegenerate, opts.IncludeTrends, opts.MaxTrends)
	return hex.EncodeToString(h.Sum(nil))
}
