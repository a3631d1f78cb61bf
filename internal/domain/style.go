package domain

import (
	"time"

	"github.com/google/uuid"
)

// StyleDescriptorVersion is the current schema version for style descriptors.
const StyleDescriptorVersion = 1

// StyleDescriptorV1 is the fixed, versioned shape of an analyzed writing
// style. Legacy loosely-typed blobs are mapped through MigrateDescriptor
// instead of being accessed field-by-field.
type StyleDescriptorV1 struct {
	Version           int    `json:"version"`
	Tone              string `json:"tone"`
	Voice             string `json:"voice"`
	SentenceStructure string `json:"sentence_structure"`
	VocabularyLevel   string `json:"vocabulary_level"`
	OpeningStyle      string `json:"opening_style"`
	ClosingStyle      string `json:"closing_style"`
	Formatting        string `json:"formatting"`
	HumorUsage        string `json:"humor_usage"`
	CTAStyle          string `json:"cta_style"`
}

// StyleProfile is one analyzed writing sample for a user. At most one profile
// per user is primary at a time; the profile owner enforces that on write.
type StyleProfile struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	SampleText string
	Descriptor StyleDescriptorV1
	IsPrimary  bool
	AnalyzedAt time.Time
}

// DefaultStyleDescriptor is used when a user has no analyzed profile yet.
// Generation proceeds with a neutral voice instead of failing.
func DefaultStyleDescriptor() StyleDescriptorV1 {
	return StyleDescriptorV1{
		Version:           StyleDescriptorVersion,
		Tone:              "friendly",
		Voice:             "first-person",
		SentenceStructure: "varied",
		VocabularyLevel:   "general",
		OpeningStyle:      "direct",
		ClosingStyle:      "summary",
		Formatting:        "short paragraphs",
		HumorUsage:        "light",
		CTAStyle:          "soft",
	}
}

// MigrateDescriptor maps a legacy untyped descriptor blob onto the V1 schema.
// Unknown keys are dropped; missing keys fall back to the neutral default.
func MigrateDescriptor(raw map[string]any) StyleDescriptorV1 {
	d := DefaultStyleDescriptor()
	if raw == nil {
		return d
	}

	assign := func(key string, dst *string) {
		if v, ok := raw[key].(string); ok && v != "" {
			*dst = v
		}
	}
	assign("tone", &d.Tone)
	assign("voice", &d.Voice)
	assign("sentence_structure", &d.SentenceStructure)
	assign("vocabulary_level", &d.VocabularyLevel)
	assign("opening_style", &d.OpeningStyle)
	assign("closing_style", &d.ClosingStyle)
	assign("formatting", &d.Formatting)
	assign("humor_usage", &d.HumorUsage)
	assign("cta_style", &d.CTAStyle)
	return d
}
