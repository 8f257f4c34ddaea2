package models

import "time"

// Webhook log outcome codes. Exactly one row is written per inbound webhook
// request regardless of how it resolved; these rows are the sole source of
// truth when chasing a missed reconciliation.
const (
	WebhookOutcomeSuccess          = "matched_success"
	WebhookOutcomeAlreadyProcessed = "matched_already_processed"
	WebhookOutcomeNotFound         = "order_not_found"
	WebhookOutcomeBadSignature     = "rejected_signature"
	WebhookOutcomeBadPayload       = "malformed_payload"
)

// WebhookLog is an immutable append-only audit record of one inbound provider
// event and its resolution. The full raw payload is kept for replay.
type WebhookLog struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RequestID     string    `gorm:"type:varchar(36);index" json:"request_id"`
	EventType     string    `gorm:"type:varchar(100);index" json:"event_type"`
	Family        string    `gorm:"type:varchar(50);index" json:"family"`
	OrderNsu      string    `gorm:"type:varchar(100);index" json:"order_nsu"`
	Email         string    `gorm:"type:varchar(200)" json:"email"`
	Amount        int64     `gorm:"not null;default:0" json:"amount"`
	Status        string    `gorm:"type:varchar(40);not null;index" json:"status"`
	Payload       string    `gorm:"type:longtext" json:"payload"`
	ResultMessage string    `gorm:"type:text" json:"result_message"`
	OrderFound    bool      `gorm:"default:false;index" json:"order_found"`
	OrderID       *uint     `gorm:"default:null" json:"order_id,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
