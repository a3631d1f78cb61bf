package usecase_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"digest-orchestrator/internal/domain"
	"digest-orchestrator/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func signPayload(secret, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestReconcileEventUsecase_Execute(t *testing.T) {
	secret := []byte("webhook-secret")

	newUsecase := func(deliveryRepo *mockDeliveryRepo) usecase.ReconcileEventUsecase {
		return usecase.NewReconcileEventUsecase(deliveryRepo, secret, testLogger())
	}

	t.Run("Valid event advances the delivery", func(t *testing.T) {
		deliveryRepo := new(mockDeliveryRepo)
		payload := []byte(`{"type":"email.opened","created_at":"2025-06-02T08:05:00Z","data":{"email_id":"msg-123"}}`)

		deliveryRepo.On("AdvanceStatus", mock.Anything, "msg-123", domain.DeliveryStatusOpened, mock.Anything).
			Return(true, nil)

		result, err := newUsecase(deliveryRepo).Execute(context.Background(), payload, signPayload(secret, payload))
		require.NoError(t, err)
		assert.Equal(t, usecase.ReconcileApplied, result.Outcome)
		assert.Equal(t, "msg-123", result.MessageID)
		deliveryRepo.AssertExpectations(t)
	})

	t.Run("Invalid signature is rejected before parsing", func(t *testing.T) {
		deliveryRepo := new(mockDeliveryRepo)
		payload := []byte(`{"type":"email.opened","data":{"email_id":"msg-123"}}`)

		_, err := newUsecase(deliveryRepo).Execute(context.Background(), payload, "deadbeef")
		assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
		deliveryRepo.AssertNotCalled(t, "AdvanceStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Missing signature is rejected", func(t *testing.T) {
		deliveryRepo := new(mockDeliveryRepo)
		payload := []byte(`{}`)

		_, err := newUsecase(deliveryRepo).Execute(context.Background(), payload, "")
		assert.ErrorIs(t, err, domain.ErrSignatureInvalid)
	})

	t.Run("Duplicate or out-of-order event is ignored", func(t *testing.T) {
		deliveryRepo := new(mockDeliveryRepo)
		payload := []byte(`{"type":"email.delivered","data":{"email_id":"msg-123"}}`)

		deliveryRepo.On("AdvanceStatus", mock.Anything, "msg-123", domain.DeliveryStatusDelivered, mock.Anything).
			Return(false, nil)

		result, err := newUsecase(deliveryRepo).Execute(context.Background(), payload, signPayload(secret, payload))
		require.NoError(t, err)
		assert.Equal(t, usecase.ReconcileIgnored, result.Outcome)
	})

	t.Run("Unknown event type is acknowledged without lookup", func(t *testing.T) {
		deliveryRepo := new(mockDeliveryRepo)
		payload := []byte(`{"type":"email.suppressed","data":{"email_id":"msg-123"}}`)

		result, err := newUsecase(deliveryRepo).Execute(context.Background(), payload, signPayload(secret, payload))
		require.NoError(t, err)
		assert.Equal(t, usecase.ReconcileIgnored, result.Outcome)
		deliveryRepo.AssertNotCalled(t, "AdvanceStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Event without a message id is acknowledged", func(t *testing.T) {
		deliveryRepo := new(mockDeliveryRepo)
		payload := []byte(`{"type":"email.opened","data":{}}`)

		result, err := newUsecase(deliveryRepo).Execute(context.Background(), payload, signPayload(secret, payload))
		require.NoError(t, err)
		assert.Equal(t, usecase.ReconcileIgnored, result.Outcome)
		deliveryRepo.AssertNotCalled(t, "AdvanceStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Malformed payload errors after signature passes", func(t *testing.T) {
		deliveryRepo := new(mockDeliveryRepo)
		payload := []byte(`{not json`)

		_, err := newUsecase(deliveryRepo).Execute(context.Background(), payload, signPayload(secret, payload))
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrSignatureInvalid)
	})
}
