package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPaid      = "paid"
	OrderStatusCompleted = "completed"
	OrderStatusExpired   = "expired"
)

// Order is one storefront purchase. Each product family owns its own order
// table (see catalog.ProductFamily.OrderTable); the struct is shared and the
// repository selects the table at query time.
//
// Status is monotonic along pending -> paid -> completed, with expired as a
// parallel terminal state reachable only from pending. APICreated and
// EmailSent are idempotency flags: each is set to true exactly once and never
// reset, which is what makes duplicate webhook deliveries safe.
type Order struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	NsuOrder    string     `gorm:"type:varchar(100);index" json:"nsu_order"`
	Email       string     `gorm:"type:varchar(200);not null;index" json:"email" validate:"required,email,max=200"`
	Username    string     `gorm:"type:varchar(150);index" json:"username" validate:"max=150"`
	PlanType    string     `gorm:"type:varchar(20);not null;default:'lifetime'" json:"plan_type" validate:"oneof=lifetime annual"`
	Amount      int64      `gorm:"not null;default:0" json:"amount"` // cents
	Status      string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status" validate:"oneof=pending paid completed expired"`
	PaidAt      *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CompletedAt *time.Time `gorm:"type:timestamp;default:null" json:"completed_at,omitempty"`
	APICreated  bool       `gorm:"column:api_created;default:false" json:"api_created"`
	EmailSent   bool       `gorm:"default:false" json:"email_sent"`
	CreatedAt   time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (o *Order) Validate() error {
	v := validator.New()

	return v.Struct(o)
}
