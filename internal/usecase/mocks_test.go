package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"time"

	"digest-orchestrator/internal/domain"
	"digest-orchestrator/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// mockContentRepo mocks domain.ContentRepository
type mockContentRepo struct {
	mock.Mock
}

func (m *mockContentRepo) Insert(ctx context.Context, item *domain.ContentItem) (bool, error) {
	args := m.Called(ctx, item)
	return args.Bool(0), args.Error(1)
}

func (m *mockContentRepo) ListSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.ContentItem, error) {
	args := m.Called(ctx, userID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContentItem), args.Error(1)
}

func (m *mockContentRepo) ListRecent(ctx context.Context, userID uuid.UUID, limit int) ([]domain.ContentItem, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ContentItem), args.Error(1)
}

// mockSourceRepo mocks domain.SourceRepository
type mockSourceRepo struct {
	mock.Mock
}

func (m *mockSourceRepo) ListActive(ctx context.Context, userID uuid.UUID) ([]domain.Source, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Source), args.Error(1)
}

func (m *mockSourceRepo) ListUserIDsWithActiveSources(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockSourceRepo) RecordFetchOutcome(ctx context.Context, sourceID uuid.UUID, fetchedAt time.Time, fetchErr *string) error {
	args := m.Called(ctx, sourceID, fetchedAt, fetchErr)
	return args.Error(0)
}

// mockTrendRepo mocks domain.TrendRepository
type mockTrendRepo struct {
	mock.Mock
}

func (m *mockTrendRepo) ReplaceForUser(ctx context.Context, userID uuid.UUID, trends []domain.Trend) error {
	args := m.Called(ctx, userID, trends)
	return args.Error(0)
}

func (m *mockTrendRepo) TopForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Trend, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Trend), args.Error(1)
}

func (m *mockTrendRepo) ListUserIDsWithContent(ctx context.Context, since time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

// mockStyleRepo mocks domain.StyleRepository
type mockStyleRepo struct {
	mock.Mock
}

func (m *mockStyleRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.StyleProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StyleProfile), args.Error(1)
}

func (m *mockStyleRepo) GetPrimary(ctx context.Context, userID uuid.UUID) (*domain.StyleProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StyleProfile), args.Error(1)
}

// mockDraftRepo mocks domain.DraftRepository
type mockDraftRepo struct {
	mock.Mock
}

func (m *mockDraftRepo) GetCurrent(ctx context.Context, userID uuid.UUID, periodKey string) (*domain.Draft, error) {
	args := m.Called(ctx, userID, periodKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Draft), args.Error(1)
}

func (m *mockDraftRepo) InsertCurrent(ctx context.Context, draft *domain.Draft) (*domain.Draft, error) {
	args := m.Called(ctx, draft)
	// Allow tests to echo the inserted draft back as the stored winner.
	if fn, ok := args.Get(0).(func(context.Context, *domain.Draft) *domain.Draft); ok {
		return fn(ctx, draft), args.Error(1)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Draft), args.Error(1)
}

func (m *mockDraftRepo) SupersedeCurrent(ctx context.Context, userID uuid.UUID, periodKey string) error {
	args := m.Called(ctx, userID, periodKey)
	return args.Error(0)
}

func (m *mockDraftRepo) MarkDispatched(ctx context.Context, draftID uuid.UUID) error {
	args := m.Called(ctx, draftID)
	return args.Error(0)
}

func (m *mockDraftRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Draft, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Draft), args.Error(1)
}

// mockDeliveryRepo mocks domain.DeliveryRepository
type mockDeliveryRepo struct {
	mock.Mock
}

func (m *mockDeliveryRepo) Create(ctx context.Context, record *domain.DeliveryRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockDeliveryRepo) MarkSent(ctx context.Context, recordID uuid.UUID, messageID string, sentAt time.Time) error {
	args := m.Called(ctx, recordID, messageID, sentAt)
	return args.Error(0)
}

func (m *mockDeliveryRepo) MarkFailed(ctx context.Context, recordID uuid.UUID, errMsg string) error {
	args := m.Called(ctx, recordID, errMsg)
	return args.Error(0)
}

func (m *mockDeliveryRepo) AdvanceStatus(ctx context.Context, providerMessageID string, status domain.DeliveryStatus, at time.Time) (bool, error) {
	args := m.Called(ctx, providerMessageID, status, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockDeliveryRepo) HasTerminalForPeriod(ctx context.Context, userID uuid.UUID, periodKey string) (bool, error) {
	args := m.Called(ctx, userID, periodKey)
	return args.Bool(0), args.Error(1)
}

func (m *mockDeliveryRepo) StatsByUser(ctx context.Context, userID uuid.UUID) (*domain.DeliveryStats, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliveryStats), args.Error(1)
}

// mockDispatchRepo mocks domain.DispatchRepository
type mockDispatchRepo struct {
	mock.Mock
}

func (m *mockDispatchRepo) ClaimMarker(ctx context.Context, userID uuid.UUID, periodKey string, at time.Time) (bool, error) {
	args := m.Called(ctx, userID, periodKey, at)
	return args.Bool(0), args.Error(1)
}

func (m *mockDispatchRepo) ReleaseMarker(ctx context.Context, userID uuid.UUID, periodKey string) error {
	args := m.Called(ctx, userID, periodKey)
	return args.Error(0)
}

func (m *mockDispatchRepo) ListEnabledConfigs(ctx context.Context) ([]domain.DeliveryConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.DeliveryConfig), args.Error(1)
}

func (m *mockDispatchRepo) GetConfig(ctx context.Context, userID uuid.UUID) (*domain.DeliveryConfig, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliveryConfig), args.Error(1)
}

// mockTxManager runs the callback directly, no transaction involved.
type mockTxManager struct{}

func (m *mockTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// mockSourceAdapter mocks domain.SourceAdapter
type mockSourceAdapter struct {
	mock.Mock
	kind domain.SourceKind
}

func (m *mockSourceAdapter) Kind() domain.SourceKind {
	return m.kind
}

func (m *mockSourceAdapter) FetchRecent(ctx context.Context, source domain.Source) ([]domain.RawItem, error) {
	args := m.Called(ctx, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawItem), args.Error(1)
}

// mockPopularityProvider mocks domain.PopularityProvider
type mockPopularityProvider struct {
	mock.Mock
}

func (m *mockPopularityProvider) Scores(ctx context.Context, keywords []string) (map[string]float64, error) {
	args := m.Called(ctx, keywords)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]float64), args.Error(1)
}

// mockDigestLLM mocks domain.LLMClient
type mockDigestLLM struct {
	mock.Mock
}

func (m *mockDigestLLM) Generate(ctx context.Context, prompt string, maxTokens int) (*domain.GeneratedDigest, error) {
	args := m.Called(ctx, prompt, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GeneratedDigest), args.Error(1)
}

func (m *mockDigestLLM) Model() string {
	return "test-model"
}

// mockEmailProvider mocks domain.EmailProvider
type mockEmailProvider struct {
	mock.Mock
}

func (m *mockEmailProvider) SendEmail(ctx context.Context, to, subject, html, text string) (*domain.SendResult, error) {
	args := m.Called(ctx, to, subject, html, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SendResult), args.Error(1)
}

// mockStyleUsecase mocks usecase.AggregateStyleUsecase
type mockStyleUsecase struct {
	mock.Mock
}

func (m *mockStyleUsecase) Execute(ctx context.Context, userID uuid.UUID) (domain.StyleDescriptorV1, *uuid.UUID, error) {
	args := m.Called(ctx, userID)
	var id *uuid.UUID
	if args.Get(1) != nil {
		id = args.Get(1).(*uuid.UUID)
	}
	return args.Get(0).(domain.StyleDescriptorV1), id, args.Error(2)
}

// mockDraftGen mocks usecase.GenerateDraftUsecase
type mockDraftGen struct {
	mock.Mock
}

func (m *mockDraftGen) Execute(ctx context.Context, userID uuid.UUID, localDate time.Time, opts domain.GenerateOptions) (*domain.Draft, error) {
	args := m.Called(ctx, userID, localDate, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Draft), args.Error(1)
}

// mockSender mocks usecase.SendDigestUsecase
type mockSender struct {
	mock.Mock
}

func (m *mockSender) Execute(ctx context.Context, draft *domain.Draft, recipient string) (*domain.DeliveryRecord, error) {
	args := m.Called(ctx, draft, recipient)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeliveryRecord), args.Error(1)
}

var _ usecase.GenerateDraftUsecase = (*mockDraftGen)(nil)
var _ usecase.SendDigestUsecase = (*mockSender)(nil)
