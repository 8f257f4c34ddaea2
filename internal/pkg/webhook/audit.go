package webhook

import (
	"log"

	"github.com/andersonlima/payhook/app/models"
	"github.com/andersonlima/payhook/app/repository"
	"github.com/google/uuid"
)

// Auditor writes the per-request audit trail. Recording is strictly
// best-effort: a failed log write must never fail the webhook request it
// describes.
type Auditor struct {
	Logs repository.WebhookLogRepository
}

// Record persists one audit entry, assigning a correlation id when the
// caller did not set one.
func (a *Auditor) Record(entry *models.WebhookLog) {
	if entry.RequestID == "" {
		entry.RequestID = uuid.NewString()
	}
	if err := a.Logs.Create(entry); err != nil {
		log.Printf("webhook audit write failed (outcome %s, nsu %s): %v", entry.Status, entry.OrderNsu, err)
	}
}
