package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
)

// AggregateStyleUsecase resolves the style descriptor to write a digest in.
// A primary profile wins outright; otherwise the descriptor is a per-field
// majority vote across all of the user's analyzed samples.
type AggregateStyleUsecase interface {
	Execute(ctx context.Context, userID uuid.UUID) (domain.StyleDescriptorV1, *uuid.UUID, error)
}

type aggregateStyleUsecase struct {
	styleRepo domain.StyleRepository
	logger    *slog.Logger
}

func NewAggregateStyleUsecase(styleRepo domain.StyleRepository, logger *slog.Logger) AggregateStyleUsecase {
	return &aggregateStyleUsecase{styleRepo: styleRepo, logger: logger}
}

func (u *aggregateStyleUsecase) Execute(ctx context.Context, userID uuid.UUID) (domain.StyleDescriptorV1, *uuid.UUID, error) {
	primary, err := u.styleRepo.GetPrimary(ctx, userID)
	if err != nil {
		return domain.StyleDescriptorV1{}, nil, fmt.Errorf("failed to load primary style profile: %w", err)
	}
	if primary != nil {
		return primary.Descriptor, &primary.ID, nil
	}

	profiles, err := u.styleRepo.ListByUser(ctx, userID)
	if err != nil {
		return domain.StyleDescriptorV1{}, nil, fmt.Errorf("failed to list style profiles: %w", err)
	}
	if len(profiles) == 0 {
		u.logger.Debug("no style profiles, using neutral default",
			slog.String("user_id", userID.String()))
		return domain.DefaultStyleDescriptor(), nil, nil
	}

	descriptor := aggregateDescriptors(profiles)
	return descriptor, nil, nil
}

// aggregateDescriptors takes the most common value per field, falling back to
// the neutral default on an empty field. Ties resolve to the earliest-analyzed
// profile's value because counting preserves first-seen order.
func aggregateDescriptors(profiles []domain.StyleProfile) domain.StyleDescriptorV1 {
	out := domain.DefaultStyleDescriptor()

	vote := func(pick func(domain.StyleDescriptorV1) string, dst *string) {
		counts := make(map[string]int, len(profiles))
		order := make([]string, 0, len(profiles))
		for _, p := range profiles {
			v := pick(p.Descriptor)
			if v == "" {
				continue
			}
			if _, seen := counts[v]; !seen {
				order = append(order, v)
			}
			counts[v]++
		}
		best, bestCount := "", 0
		for _, v := range order {
			if counts[v] > bestCount {
				best, bestCount = v, counts[v]
			}
		}
		if best != "" {
			*dst = best
		}
	}

	vote(func(d domain.StyleDescriptorV1) string { return d.Tone }, &out.Tone)
	vote(func(d domain.StyleDescriptorV1) string { return d.Voice }, &out.Voice)
	vote(func(d domain.StyleDescriptorV1) string { return d.SentenceStructure }, &out.SentenceStructure)
	vote(func(d domain.StyleDescriptorV1) string { return d.VocabularyLevel }, &out.VocabularyLevel)
	vote(func(d domain.StyleDescriptorV1) string { return d.OpeningStyle }, &out.OpeningStyle)
	vote(func(d domain.StyleDescriptorV1) string { return d.ClosingStyle }, &out.ClosingStyle)
	vote(func(d domain.StyleDescriptorV1) string { return d.Formatting }, &out.Formatting)
	vote(func(d domain.StyleDescriptorV1) string { return d.HumorUsage }, &out.HumorUsage)
	vote(func(d domain.StyleDescriptorV1) string { return d.CTAStyle }, &out.CTAStyle)
	return out
}
