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

func TestSendDigestUsecase_Execute(t *testing.T) {
	draft := &domain.Draft{
		ID:       uuid.New(),
		UserID:   uuid.New(),
		Subject:  "Your digest",
		BodyHTML: "<p>hi</p>",
		BodyText: "hi",
		Status:   domain.DraftStatusReady,
	}
	recipient := "reader@example.com"

	t.Run("Accepted send moves the record to sent", func(t *testing.T) {
		deliveryRepo := new(mockDeliveryRepo)
		draftRepo := new(mockDraftRepo)
		provider := new(mockEmailProvider)

		deliveryRepo.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.DeliveryRecord) bool {
			return r.Status == domain.DeliveryStatusPending && r.DraftID == draft.ID
		})).Return(nil)
		provider.On("SendEmail", mock.Anything, recipient, draft.Subject, draft.BodyHTML, draft.BodyText).
			Return(&domain.SendResult{MessageID: "msg-123"}, nil)
		deliveryRepo.On("MarkSent", mock.Anything, mock.Anything, "msg-123", mock.Anything).Return(nil)
		draftRepo.On("MarkDispatched", mock.Anything, draft.ID).Return(nil)

		uc := usecase.NewSendDigestUsecase(deliveryRepo, draftRepo, provider, time.Second, testLogger())
		record, err := uc.Execute(context.Background(), draft, recipient)
		require.NoError(t, err)
		assert.Equal(t, domain.DeliveryStatusSent, record.Status)
		require.NotNil(t, record.ProviderMessageID)
		assert.Equal(t, "msg-123", *record.ProviderMessageID)
		assert.NotNil(t, record.SentAt)
		deliveryRepo.AssertExpectations(t)
		draftRepo.AssertExpectations(t)
	})

	t.Run("Provider rejection marks the record failed", func(t *testing.T) {
		deliveryRepo := new(mockDeliveryRepo)
		draftRepo := new(mockDraftRepo)
		provider := new(mockEmailProvider)

		deliveryRepo.On("Create", mock.Anything, mock.Anything).Return(nil)
		provider.On("SendEmail", mock.Anything, recipient, draft.Subject, draft.BodyHTML, draft.BodyText).
			Return(nil, errors.New("550 mailbox unavailable"))
		deliveryRepo.On("MarkFailed", mock.Anything, mock.Anything, "550 mailbox unavailable").Return(nil)

		uc := usecase.NewSendDigestUsecase(deliveryRepo, draftRepo, provider, time.Second, testLogger())
		record, err := uc.Execute(context.Background(), draft, recipient)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSendFailed)
		require.NotNil(t, record)
		assert.Equal(t, domain.DeliveryStatusFailed, record.Status)
		draftRepo.AssertNotCalled(t, "MarkDispatched", mock.Anything, mock.Anything)
	})

	t.Run("Record creation failure aborts before the provider", func(t *testing.T) {
		deliveryRepo := new(mockDeliveryRepo)
		draftRepo := new(mockDraftRepo)
		provider := new(mockEmailProvider)

		deliveryRepo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

		uc := usecase.NewSendDigestUsecase(deliveryRepo, draftRepo, provider, time.Second, testLogger())
		_, err := uc.Execute(context.Background(), draft, recipient)
		require.Error(t, err)
		provider.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
