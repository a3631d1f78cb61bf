package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"digest-orchestrator/internal/domain"

	"github.com/google/uuid"
)

const defaultSendTimeout = 15 * time.Second

// SendDigestUsecase hands one ready draft to the email provider and records
// the outcome. The delivery record exists before the provider is called so a
// crash mid-send leaves an auditable pending row.
type SendDigestUsecase interface {
	Execute(ctx context.Context, draft *domain.Draft, recipient string) (*domain.DeliveryRecord, error)
}

type sendDigestUsecase struct {
	deliveryRepo domain.DeliveryRepository
	draftRepo    domain.DraftRepository
	provider     domain.EmailProvider
	sendTimeout  time.Duration
	logger       *slog.Logger
}

func NewSendDigestUsecase(
	deliveryRepo domain.DeliveryRepository,
	draftRepo domain.DraftRepository,
	provider domain.EmailProvider,
	sendTimeout time.Duration,
	logger *slog.Logger,
) SendDigestUsecase {
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	return &sendDigestUsecase{
		deliveryRepo: deliveryRepo,
		draftRepo:    draftRepo,
		provider:     provider,
		sendTimeout:  sendTimeout,
		logger:       logger,
	}
}

func (u *sendDigestUsecase) Execute(ctx context.Context, draft *domain.Draft, recipient string) (*domain.DeliveryRecord, error) {
	now := time.Now()
	record := &domain.DeliveryRecord{
		ID:        uuid.New(),
		DraftID:   draft.ID,
		UserID:    draft.UserID,
		Recipient: recipient,
		Status:    domain.DeliveryStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := u.deliveryRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create delivery record: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, u.sendTimeout)
	defer cancel()

	result, err := u.provider.SendEmail(sendCtx, recipient, draft.Subject, draft.BodyHTML, draft.BodyText)
	if err != nil {
		msg := err.Error()
		if markErr := u.deliveryRepo.MarkFailed(ctx, record.ID, msg); markErr != nil {
			u.logger.Error("failed to mark delivery failed",
				slog.String("delivery_id", record.ID.String()),
				slog.String("error", markErr.Error()))
		}
		record.Status = domain.DeliveryStatusFailed
		record.ErrorMessage = &msg
		u.logger.Warn("digest_send_failed",
			slog.String("user_id", draft.UserID.String()),
			slog.String("draft_id", draft.ID.String()),
			slog.String("error", msg))
		return record, fmt.Errorf("%w: %s", domain.ErrSendFailed, msg)
	}

	sentAt := time.Now()
	if err := u.deliveryRepo.MarkSent(ctx, record.ID, result.MessageID, sentAt); err != nil {
		return nil, fmt.Errorf("failed to mark delivery sent: %w", err)
	}
	record.Status = domain.DeliveryStatusSent
	record.ProviderMessageID = &result.MessageID
	record.SentAt = &sentAt

	if err := u.draftRepo.MarkDispatched(ctx, draft.ID); err != nil {
		u.logger.Error("failed to mark draft dispatched",
			slog.String("draft_id", draft.ID.String()),
			slog.String("error", err.Error()))
	}

	u.logger.Info("digest_sent",
		slog.String("user_id", draft.UserID.String()),
		slog.String("draft_id", draft.ID.String()),
		slog.String("provider_message_id", result.MessageID))
	return record, nil
}
