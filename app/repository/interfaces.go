package repository

import (
	"time"

	"github.com/andersonlima/payhook/app/models"
)

// OrderRepository defines the per-family order table operations used by the
// matcher and the reconciliation engine. Lookups are scoped to
// status = pending unless noted; every state/flag write is a conditional
// update so that concurrent deliveries of the same event cannot both win.
type OrderRepository interface {
	Create(family string, order *models.Order) error
	GetByID(family string, id uint) (*models.Order, error)

	// FindByNsu matches any non-expired status: a redelivered event must be
	// able to find the order it already transitioned so fulfillment can
	// resume.
	FindByNsu(family, nsu string) (*models.Order, error)
	FindPendingByEmailAndUsername(family, email, username string) (*models.Order, error)
	FindPendingByEmail(family, email string) (*models.Order, error)
	FindPendingByEmailFragment(family, fragment string) (*models.Order, error)
	FindPendingByUsername(family, username string) (*models.Order, error)
	ListPendingCreatedSince(family string, since time.Time) ([]models.Order, error)

	// MarkPaid transitions pending -> paid. Returns false when the order was
	// no longer pending (a concurrent delivery already won).
	MarkPaid(family string, id uint, paidAt time.Time) (bool, error)
	// MarkCompleted transitions paid -> completed.
	MarkCompleted(family string, id uint, completedAt time.Time) (bool, error)
	// SetAPICreated / SetEmailSent flip an idempotency flag to true exactly
	// once; both report false when the flag was already set.
	SetAPICreated(family string, id uint) (bool, error)
	SetEmailSent(family string, id uint) (bool, error)

	// ExpireStalePending moves pending orders created before the cutoff to
	// expired and returns how many rows were affected.
	ExpireStalePending(family string, cutoff time.Time) (int64, error)
}

// WebhookLogRepository persists the append-only audit trail.
type WebhookLogRepository interface {
	Create(entry *models.WebhookLog) error
	ListRecent(limit, offset int) ([]models.WebhookLog, error)
}
