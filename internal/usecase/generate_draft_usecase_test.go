package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"digest-orchestrator/internal/domain"
	"digest-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGenerateDraftUsecase_Execute(t *testing.T) {
	userID := uuid.New()
	localDate := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	periodKey := domain.PeriodKey(userID, localDate)
	opts := domain.GenerateOptions{IncludeTrends: true}

	sampleTrends := []domain.Trend{
		{ID: uuid.New(), UserID: userID, Keyword: "kubernetes", MentionCount: 5, CompositeScore: 92},
	}
	sampleItems := []domain.ContentItem{
		{ID: uuid.New(), Title: "Cluster upgrade guide", URL: "https://example.com/k8s"},
	}

	type fixture struct {
		trendRepo   *mockTrendRepo
		contentRepo *mockContentRepo
		draftRepo   *mockDraftRepo
		styleUC     *mockStyleUsecase
		llm         *mockDigestLLM
		uc          usecase.GenerateDraftUsecase
	}

	newFixture := func() *fixture {
		f := &fixture{
			trendRepo:   new(mockTrendRepo),
			contentRepo: new(mockContentRepo),
			draftRepo:   new(mockDraftRepo),
			styleUC:     new(mockStyleUsecase),
			llm:         new(mockDigestLLM),
		}
		f.uc = usecase.NewGenerateDraftUsecase(
			f.trendRepo, f.contentRepo, f.draftRepo, f.styleUC, f.llm,
			&mockTxManager{}, time.Second, 1000, testLogger(),
		)
		return f
	}

	t.Run("Generates and stores a new draft", func(t *testing.T) {
		f := newFixture()
		f.trendRepo.On("TopForUser", mock.Anything, userID, 3).Return(sampleTrends, nil)
		f.styleUC.On("Execute", mock.Anything, userID).Return(domain.DefaultStyleDescriptor(), nil, nil)
		f.draftRepo.On("GetCurrent", mock.Anything, userID, periodKey).Return(nil, nil)
		f.contentRepo.On("ListRecent", mock.Anything, userID, mock.Anything).Return(sampleItems, nil)
		f.llm.On("Generate", mock.Anything, mock.Anything, 1000).Return(&domain.GeneratedDigest{
			Subject:  "Your digest for June 2, 2025: kubernetes",
			BodyHTML: "<p>hello</p>",
			BodyText: "hello",
		}, nil)
		f.draftRepo.On("InsertCurrent", mock.Anything, mock.MatchedBy(func(d *domain.Draft) bool {
			return d.UserID == userID && d.PeriodKey == periodKey &&
				d.Status == domain.DraftStatusReady && d.Current
		})).Return(func(ctx context.Context, d *domain.Draft) *domain.Draft { return d }, nil)

		draft, err := f.uc.Execute(context.Background(), userID, localDate, opts)
		require.NoError(t, err)
		assert.Equal(t, domain.GenerationModeLLM, draft.Meta.Mode)
		assert.Equal(t, "test-model", draft.Meta.Model)
		assert.Equal(t, []string{"kubernetes"}, draft.Meta.TrendsUsed)
		assert.NotEmpty(t, draft.InputsHash)
		f.draftRepo.AssertExpectations(t)
	})

	t.Run("Existing draft short-circuits without regenerating", func(t *testing.T) {
		f := newFixture()
		existing := &domain.Draft{ID: uuid.New(), UserID: userID, PeriodKey: periodKey, Status: domain.DraftStatusReady}

		f.trendRepo.On("TopForUser", mock.Anything, userID, 3).Return(sampleTrends, nil)
		f.styleUC.On("Execute", mock.Anything, userID).Return(domain.DefaultStyleDescriptor(), nil, nil)
		f.draftRepo.On("GetCurrent", mock.Anything, userID, periodKey).Return(existing, nil)

		draft, err := f.uc.Execute(context.Background(), userID, localDate, opts)
		require.NoError(t, err)
		assert.Equal(t, existing.ID, draft.ID)
		f.llm.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything)
		f.draftRepo.AssertNotCalled(t, "InsertCurrent", mock.Anything, mock.Anything)
	})

	t.Run("Forced regeneration supersedes the prior draft", func(t *testing.T) {
		f := newFixture()
		existing := &domain.Draft{ID: uuid.New(), UserID: userID, PeriodKey: periodKey, Status: domain.DraftStatusReady}
		forced := opts
		forced.ForceRegenerate = true

		f.trendRepo.On("TopForUser", mock.Anything, userID, 3).Return(sampleTrends, nil)
		f.styleUC.On("Execute", mock.Anything, userID).Return(domain.DefaultStyleDescriptor(), nil, nil)
		f.draftRepo.On("GetCurrent", mock.Anything, userID, periodKey).Return(existing, nil)
		f.contentRepo.On("ListRecent", mock.Anything, userID, mock.Anything).Return(sampleItems, nil)
		f.llm.On("Generate", mock.Anything, mock.Anything, 1000).Return(&domain.GeneratedDigest{
			Subject: "regenerated", BodyHTML: "<p>v2</p>", BodyText: "v2",
		}, nil)
		f.draftRepo.On("SupersedeCurrent", mock.Anything, userID, periodKey).Return(nil)
		f.draftRepo.On("InsertCurrent", mock.Anything, mock.Anything).Return(func(ctx context.Context, d *domain.Draft) *domain.Draft { return d }, nil)

		draft, err := f.uc.Execute(context.Background(), userID, localDate, forced)
		require.NoError(t, err)
		assert.NotEqual(t, existing.ID, draft.ID)
		assert.Equal(t, "regenerated", draft.Subject)
		f.draftRepo.AssertExpectations(t)
	})

	t.Run("Provider failure falls back to the template", func(t *testing.T) {
		f := newFixture()
		f.trendRepo.On("TopForUser", mock.Anything, userID, 3).Return(sampleTrends, nil)
		f.styleUC.On("Execute", mock.Anything, userID).Return(domain.DefaultStyleDescriptor(), nil, nil)
		f.draftRepo.On("GetCurrent", mock.Anything, userID, periodKey).Return(nil, nil)
		f.contentRepo.On("ListRecent", mock.Anything, userID, mock.Anything).Return(sampleItems, nil)
		f.llm.On("Generate", mock.Anything, mock.Anything, 1000).Return(nil, errors.New("model overloaded"))
		f.draftRepo.On("InsertCurrent", mock.Anything, mock.Anything).Return(func(ctx context.Context, d *domain.Draft) *domain.Draft { return d }, nil)

		draft, err := f.uc.Execute(context.Background(), userID, localDate, opts)
		require.NoError(t, err)
		assert.Equal(t, domain.GenerationModeFallback, draft.Meta.Mode)
		assert.Equal(t, "template", draft.Meta.Model)
		assert.Contains(t, draft.Subject, "June 2, 2025")
		assert.Contains(t, draft.Subject, "kubernetes")
		assert.Contains(t, draft.BodyText, "Cluster upgrade guide")
		assert.Equal(t, domain.DraftStatusReady, draft.Status)
	})

	t.Run("Trends excluded when options say so", func(t *testing.T) {
		f := newFixture()
		noTrends := domain.GenerateOptions{IncludeTrends: false}
		key := domain.PeriodKey(userID, localDate)

		f.styleUC.On("Execute", mock.Anything, userID).Return(domain.DefaultStyleDescriptor(), nil, nil)
		f.draftRepo.On("GetCurrent", mock.Anything, userID, key).Return(nil, nil)
		f.contentRepo.On("ListRecent", mock.Anything, userID, mock.Anything).Return(sampleItems, nil)
		f.llm.On("Generate", mock.Anything, mock.Anything, 1000).Return(&domain.GeneratedDigest{
			Subject: "s", BodyHTML: "<p>b</p>", BodyText: "b",
		}, nil)
		f.draftRepo.On("InsertCurrent", mock.Anything, mock.Anything).Return(func(ctx context.Context, d *domain.Draft) *domain.Draft { return d }, nil)

		draft, err := f.uc.Execute(context.Background(), userID, localDate, noTrends)
		require.NoError(t, err)
		assert.Empty(t, draft.Meta.TrendsUsed)
		f.trendRepo.AssertNotCalled(t, "TopForUser", mock.Anything, mock.Anything, mock.Anything)
	})
}
