package httpapi

import (
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
)

type trendView struct {
	ID              uuid.UUID `json:"id"`
	Keyword         string    `json:"keyword"`
	MentionCount    int       `json:"mention_count"`
	PopularityScore float64   `json:"popularity_score"`
	Velocity        float64   `json:"velocity"`
	CompositeScore  float64   `json:"composite_score"`
	DetectedAt      time.Time `json:"detected_at"`
}

func toTrendViews(trends []domain.Trend) []trendView {
	views := make([]trendView, 0, len(trends))
	for _, t := range trends {
		views = append(views, trendView{
			ID:              t.ID,
			Keyword:         t.Keyword,
			MentionCount:    t.MentionCount,
			PopularityScore: t.PopularityScore,
			Velocity:        t.Velocity,
			CompositeScore:  t.CompositeScore,
			DetectedAt:      t.DetectedAt,
		})
	}
	return views
}

type draftView struct {
	ID         uuid.UUID             `json:"id"`
	UserID     uuid.UUID             `json:"user_id"`
	PeriodKey  string                `json:"period_key"`
	Subject    string                `json:"subject"`
	BodyHTML   string                `json:"body_html"`
	BodyText   string                `json:"body_text"`
	Status     domain.DraftStatus    `json:"status"`
	Current    bool                  `json:"is_current"`
	Meta       domain.GenerationMeta `json:"generation_meta"`
	CreatedAt  time.Time             `json:"created_at"`
	InputsHash string                `json:"inputs_hash"`
}

func toDraftView(d *domain.Draft) *draftView {
	return &draftView{
		ID:         d.ID,
		UserID:     d.UserID,
		PeriodKey:  d.PeriodKey,
		Subject:    d.Subject,
		BodyHTML:   d.BodyHTML,
		BodyText:   d.BodyText,
		Status:     d.Status,
		Current:    d.Current,
		Meta:       d.Meta,
		CreatedAt:  d.CreatedAt,
		InputsHash: d.InputsHash,
	}
}
