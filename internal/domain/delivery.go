package domain

import (
	"time"

	"github.com/google/uuid"
)

// DeliveryStatus is the forward-only state machine of one sent draft:
//
//	pending → sent → delivered → opened → clicked
//
// with sent → bounced and sent → complained as terminal failure branches and
// pending → failed when the provider rejects the send outright.
type DeliveryStatus string

const (
	DeliveryStatusPending    DeliveryStatus = "pending"
	DeliveryStatusSent       DeliveryStatus = "sent"
	DeliveryStatusDelivered  DeliveryStatus = "delivered"
	DeliveryStatusOpened     DeliveryStatus = "opened"
	DeliveryStatusClicked    DeliveryStatus = "clicked"
	DeliveryStatusBounced    DeliveryStatus = "bounced"
	DeliveryStatusComplained DeliveryStatus = "complained"
	DeliveryStatusFailed     DeliveryStatus = "failed"
)

// statusRank orders the forward progression. Terminal branches share the top
// rank so nothing can move past them.
var statusRank = map[DeliveryStatus]int{
	DeliveryStatusPending:    0,
	DeliveryStatusSent:       1,
	DeliveryStatusDelivered:  2,
	DeliveryStatusOpened:     3,
	DeliveryStatusClicked:    4,
	DeliveryStatusBounced:    5,
	DeliveryStatusComplained: 5,
	DeliveryStatusFailed:     5,
}

// Rank returns the position of s in the forward progression, or -1 for an
// unknown status.
func (s DeliveryStatus) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// CanAdvanceTo reports whether a record at status s may move to next.
// Duplicate and regressive events resolve to false and are treated as
// idempotent no-ops by callers, never as errors. Engagement events may
// arrive out of order (an open racing ahead of its delivery receipt), so
// the main chain admits any jump forward from an accepted send.
func (s DeliveryStatus) CanAdvanceTo(next DeliveryStatus) bool {
	cur, target := s.Rank(), next.Rank()
	if cur < 0 || target < 0 {
		return false
	}
	switch next {
	case DeliveryStatusBounced, DeliveryStatusComplained:
		// Only a send the provider accepted can bounce or draw a complaint.
		return s == DeliveryStatusSent || s == DeliveryStatusDelivered
	case DeliveryStatusFailed:
		return s == DeliveryStatusPending
	case DeliveryStatusSent:
		return s == DeliveryStatusPending
	default:
		// pending has no provider message yet, so no webhook can touch it.
		return s != DeliveryStatusPending && cur < target
	}
}

// DeliveryRecord tracks one sent draft from provider acceptance through
// engagement events. Created by the dispatcher; mutated afterwards only by
// webhook reconciliation.
type DeliveryRecord struct {
	ID                uuid.UUID
	DraftID           uuid.UUID
	UserID            uuid.UUID
	Recipient         string
	ProviderMessageID *string
	Status            DeliveryStatus
	ErrorMessage      *string
	SentAt            *time.Time
	DeliveredAt       *time.Time
	OpenedAt          *time.Time
	ClickedAt         *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// EmailEventType is a provider webhook event kind.
type EmailEventType string

const (
	EmailEventDelivered  EmailEventType = "email.delivered"
	EmailEventOpened     EmailEventType = "email.opened"
	EmailEventClicked    EmailEventType = "email.clicked"
	EmailEventBounced    EmailEventType = "email.bounced"
	EmailEventComplained EmailEventType = "email.complained"
)

// StatusForEvent maps a provider event to the delivery status it implies.
// The second return is false for event types this system does not track.
func StatusForEvent(event EmailEventType) (DeliveryStatus, bool) {
	switch event {
	case EmailEventDelivered:
		return DeliveryStatusDelivered, true
	case EmailEventOpened:
		return DeliveryStatusOpened, true
	case EmailEventClicked:
		return DeliveryStatusClicked, true
	case EmailEventBounced:
		return DeliveryStatusBounced, true
	case EmailEventComplained:
		return DeliveryStatusComplained, true
	default:
		return "", false
	}
}

// DeliveryStats summarizes a user's delivery engagement.
type DeliveryStats struct {
	TotalSends     int     `json:"total_sends"`
	FailedSends    int     `json:"failed_sends"`
	DeliveredCount int     `json:"delivered_count"`
	OpenedCount    int     `json:"opened_count"`
	ClickedCount   int     `json:"clicked_count"`
	BouncedCount   int     `json:"bounced_count"`
	OpenRate       float64 `json:"open_rate"`
	ClickRate      float64 `json:"click_rate"`
}
