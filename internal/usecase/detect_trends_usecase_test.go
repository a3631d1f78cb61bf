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

func TestDetectTrendsUsecase_Execute(t *testing.T) {
	userID := uuid.New()

	item := func(title string, age time.Duration) domain.ContentItem {
		return domain.ContentItem{
			ID:          uuid.New(),
			UserID:      userID,
			Title:       title,
			PublishedAt: time.Now().Add(-age),
		}
	}

	newUsecase := func(contentRepo *mockContentRepo, trendRepo *mockTrendRepo, popularity *mockPopularityProvider) usecase.DetectTrendsUsecase {
		return usecase.NewDetectTrendsUsecase(contentRepo, trendRepo, popularity, &mockTxManager{}, 0, testLogger())
	}

	t.Run("Detects and persists scored trends", func(t *testing.T) {
		contentRepo := new(mockContentRepo)
		trendRepo := new(mockTrendRepo)
		popularity := new(mockPopularityProvider)

		items := []domain.ContentItem{
			item("kubernetes upgrade notes", time.Hour),
			item("kubernetes networking deep dive", 24*time.Hour),
			item("gardening tips", time.Hour),
		}
		contentRepo.On("ListSince", mock.Anything, userID, mock.Anything).Return(items, nil)
		popularity.On("Scores", mock.Anything, mock.Anything).Return(map[string]float64{"kubernetes": 80}, nil)

		var persisted []domain.Trend
		trendRepo.On("ReplaceForUser", mock.Anything, userID, mock.Anything).Run(func(args mock.Arguments) {
			persisted = args.Get(2).([]domain.Trend)
		}).Return(nil)

		trends, err := newUsecase(contentRepo, trendRepo, popularity).Execute(context.Background(), userID)
		require.NoError(t, err)
		require.NotEmpty(t, trends)
		assert.Equal(t, "kubernetes", trends[0].Keyword)
		assert.Equal(t, 2, trends[0].MentionCount)
		assert.Equal(t, 80.0, trends[0].PopularityScore)
		assert.NotEmpty(t, persisted)
		trendRepo.AssertExpectations(t)
	})

	t.Run("Popularity outage degrades scores to zero", func(t *testing.T) {
		contentRepo := new(mockContentRepo)
		trendRepo := new(mockTrendRepo)
		popularity := new(mockPopularityProvider)

		items := []domain.ContentItem{
			item("rust adoption report", time.Hour),
			item("rust compiler update", 2*time.Hour),
		}
		contentRepo.On("ListSince", mock.Anything, userID, mock.Anything).Return(items, nil)
		popularity.On("Scores", mock.Anything, mock.Anything).Return(nil, errors.New("timeout"))
		trendRepo.On("ReplaceForUser", mock.Anything, userID, mock.Anything).Return(nil)

		trends, err := newUsecase(contentRepo, trendRepo, popularity).Execute(context.Background(), userID)
		require.NoError(t, err)
		require.NotEmpty(t, trends)
		for _, tr := range trends {
			assert.Zero(t, tr.PopularityScore)
			assert.Positive(t, tr.CompositeScore)
		}
	})

	t.Run("No candidates clears the stored set", func(t *testing.T) {
		contentRepo := new(mockContentRepo)
		trendRepo := new(mockTrendRepo)
		popularity := new(mockPopularityProvider)

		contentRepo.On("ListSince", mock.Anything, userID, mock.Anything).Return([]domain.ContentItem{}, nil)
		trendRepo.On("ReplaceForUser", mock.Anything, userID, []domain.Trend(nil)).Return(nil)

		trends, err := newUsecase(contentRepo, trendRepo, popularity).Execute(context.Background(), userID)
		require.NoError(t, err)
		assert.Empty(t, trends)
		popularity.AssertNotCalled(t, "Scores", mock.Anything, mock.Anything)
		trendRepo.AssertExpectations(t)
	})

	t.Run("Recent mentions yield higher velocity than stale ones", func(t *testing.T) {
		contentRepo := new(mockContentRepo)
		trendRepo := new(mockTrendRepo)
		popularity := new(mockPopularityProvider)

		items := []domain.ContentItem{
			item("fresh topic surge", time.Hour),
			item("fresh topic again", 2*time.Hour),
			item("stale topic archive", 5*24*time.Hour),
			item("stale topic history", 6*24*time.Hour),
		}
		contentRepo.On("ListSince", mock.Anything, userID, mock.Anything).Return(items, nil)
		popularity.On("Scores", mock.Anything, mock.Anything).Return(map[string]float64{}, nil)
		trendRepo.On("ReplaceForUser", mock.Anything, userID, mock.Anything).Return(nil)

		trends, err := newUsecase(contentRepo, trendRepo, popularity).Execute(context.Background(), userID)
		require.NoError(t, err)

		byKeyword := make(map[string]domain.Trend)
		for _, tr := range trends {
			byKeyword[tr.Keyword] = tr
		}
		fresh, ok := byKeyword["fresh"]
		require.True(t, ok)
		stale, ok := byKeyword["stale"]
		require.True(t, ok)
		assert.Greater(t, fresh.Velocity, stale.Velocity)
	})
}

func TestDetectTrendsUsecase_ExecuteAll(t *testing.T) {
	t.Run("Counts users processed, failures excluded", func(t *testing.T) {
		healthy, broken := uuid.New(), uuid.New()

		contentRepo := new(mockContentRepo)
		trendRepo := new(mockTrendRepo)
		popularity := new(mockPopularityProvider)

		trendRepo.On("ListUserIDsWithContent", mock.Anything, mock.Anything).Return([]uuid.UUID{healthy, broken}, nil)
		contentRepo.On("ListSince", mock.Anything, healthy, mock.Anything).Return([]domain.ContentItem{}, nil)
		contentRepo.On("ListSince", mock.Anything, broken, mock.Anything).Return(nil, errors.New("db down"))
		trendRepo.On("ReplaceForUser", mock.Anything, healthy, mock.Anything).Return(nil)

		uc := usecase.NewDetectTrendsUsecase(contentRepo, trendRepo, popularity, &mockTxManager{}, 0, testLogger())
		processed, err := uc.ExecuteAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, processed)
	})

	t.Run("Configured window bounds both queries", func(t *testing.T) {
		userID := uuid.New()
		window := 48 * time.Hour

		contentRepo := new(mockContentRepo)
		trendRepo := new(mockTrendRepo)
		popularity := new(mockPopularityProvider)

		withinWindow := func(since time.Time) bool {
			cutoff := time.Now().Add(-window)
			return since.After(cutoff.Add(-time.Minute)) && since.Before(cutoff.Add(time.Minute))
		}
		trendRepo.On("ListUserIDsWithContent", mock.Anything, mock.MatchedBy(withinWindow)).
			Return([]uuid.UUID{userID}, nil)
		contentRepo.On("ListSince", mock.Anything, userID, mock.MatchedBy(withinWindow)).
			Return([]domain.ContentItem{}, nil)
		trendRepo.On("ReplaceForUser", mock.Anything, userID, []domain.Trend(nil)).Return(nil)

		uc := usecase.NewDetectTrendsUsecase(contentRepo, trendRepo, popularity, &mockTxManager{}, window, testLogger())
		processed, err := uc.ExecuteAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, processed)
		trendRepo.AssertExpectations(t)
		contentRepo.AssertExpectations(t)
	})
}
