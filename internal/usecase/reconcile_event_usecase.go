package usecase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"digest-orchestrator/internal/domain"
)

// ReconcileOutcome says what a webhook event did to delivery state.
type ReconcileOutcome string

const (
	// ReconcileApplied means the event advanced a delivery record.
	ReconcileApplied ReconcileOutcome = "applied"
	// ReconcileIgnored covers duplicates, out-of-order events, unknown event
	// types, and message IDs this system never sent. All acknowledged with
	// success so the provider stops retrying.
	ReconcileIgnored ReconcileOutcome = "ignored"
)

// ReconcileResult reports how one webhook event was handled.
type ReconcileResult struct {
	Outcome   ReconcileOutcome `json:"outcome"`
	EventType string           `json:"event_type"`
	MessageID string           `json:"message_id,omitempty"`
}

// ReconcileEventUsecase verifies and applies email provider webhook events.
// Updates are forward-only and idempotent; replaying the same event stream
// in any order converges on the same state.
type ReconcileEventUsecase interface {
	Execute(ctx context.Context, payload []byte, signature string) (*ReconcileResult, error)
}

type reconcileEventUsecase struct {
	deliveryRepo domain.DeliveryRepository
	secret       []byte
	logger       *slog.Logger
}

func NewReconcileEventUsecase(deliveryRepo domain.DeliveryRepository, secret []byte, logger *slog.Logger) ReconcileEventUsecase {
	return &reconcileEventUsecase{
		deliveryRepo: deliveryRepo,
		secret:       secret,
		logger:       logger,
	}
}

type webhookEnvelope struct {
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
	Data      struct {
		EmailID string `json:"email_id"`
	} `json:"data"`
}

func (u *reconcileEventUsecase) Execute(ctx context.Context, payload []byte, signature string) (*ReconcileResult, error) {
	if !u.verifySignature(payload, signature) {
		return nil, domain.ErrSignatureInvalid
	}

	var envelope webhookEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	result := &ReconcileResult{
		Outcome:   ReconcileIgnored,
		EventType: envelope.Type,
		MessageID: envelope.Data.EmailID,
	}

	status, tracked := domain.StatusForEvent(domain.EmailEventType(envelope.Type))
	if !tracked {
		u.logger.Debug("webhook_event_untracked", slog.String("type", envelope.Type))
		return result, nil
	}
	if envelope.Data.EmailID == "" {
		u.logger.Debug("webhook_event_without_message_id", slog.String("type", envelope.Type))
		return result, nil
	}

	at := envelope.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}

	applied, err := u.deliveryRepo.AdvanceStatus(ctx, envelope.Data.EmailID, status, at)
	if err != nil {
		return nil, fmt.Errorf("failed to advance delivery status: %w", err)
	}
	if applied {
		result.Outcome = ReconcileApplied
	}

	u.logger.Info("webhook_event_reconciled",
		slog.String("type", envelope.Type),
		slog.String("message_id", envelope.Data.EmailID),
		slog.String("outcome", string(result.Outcome)))
	return result, nil
}

// verifySignature checks the hex-encoded HMAC-SHA256 of the raw payload in
// constant time.
func (u *reconcileEventUsecase) verifySignature(payload []byte, signature string) bool {
	if len(u.secret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, u.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
