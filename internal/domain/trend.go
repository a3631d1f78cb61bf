package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Composite score weights: 40% mentions, 40% external popularity, 20% velocity.
const (
	weightMentions   = 0.4
	weightPopularity = 0.4
	weightVelocity   = 0.2

	// Velocity windows within the 7-day detection window.
	velocityRecentDays = 3
	velocityPriorDays  = 4
)

// Trend is one scored keyword for a user. The user's trend set is replaced
// wholesale on each detection run, never mutated in place.
type Trend struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	Keyword         string
	MentionCount    int
	PopularityScore float64
	Velocity        float64
	CompositeScore  float64
	DetectedAt      time.Time
	RelatedItemIDs  []uuid.UUID
}

// Velocity compares mentions in the most recent 3 days against the prior
// 4 days. The +1 in the denominator avoids division by zero and dampens
// volatility for sparse keywords.
func Velocity(recentMentions, priorMentions int) float64 {
	return float64(recentMentions) / float64(priorMentions+1)
}

// ScoredCandidate carries the raw signals for one keyword before scoring.
type ScoredCandidate struct {
	KeywordCandidate
	PopularityScore float64
	Velocity        float64
}

// ScoreCandidates computes composite scores for the whole candidate set and
// returns them ordered by composite desc, mentions desc, keyword asc. Mentions
// and velocity are min-max normalized to 0-100 against the observed maximum
// within this run; popularity is already 0-100.
func ScoreCandidates(candidates []ScoredCandidate) []ScoredTrend {
	var maxMentions, maxVelocity float64
	for _, c := range candidates {
		if m := float64(c.Mentions); m > maxMentions {
			maxMentions = m
		}
		if c.Velocity > maxVelocity {
			maxVelocity = c.Velocity
		}
	}

	scored := make([]ScoredTrend, 0, len(candidates))
	for _, c := range candidates {
		composite := weightMentions*minMaxScale(float64(c.Mentions), maxMentions) +
			weightPopularity*clampScore(c.PopularityScore) +
			weightVelocity*minMaxScale(c.Velocity, maxVelocity)
		scored = append(scored, ScoredTrend{
			ScoredCandidate: c,
			CompositeScore:  composite,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].CompositeScore != scored[j].CompositeScore {
			return scored[i].CompositeScore > scored[j].CompositeScore
		}
		if scored[i].Mentions != scored[j].Mentions {
			return scored[i].Mentions > scored[j].Mentions
		}
		return scored[i].Keyword < scored[j].Keyword
	})
	return scored
}

// ScoredTrend is a candidate with its final composite score.
type ScoredTrend struct {
	ScoredCandidate
	CompositeScore float64
}

// minMaxScale maps v into 0-100 against the observed max of the current run.
func minMaxScale(v, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return clampScore(v / max * 100)
}

func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
