package repository

import (
	"github.com/andersonlima/payhook/app/models"
	"gorm.io/gorm"
)

// webhookLogRepository implements the WebhookLogRepository interface
type webhookLogRepository struct {
	db *gorm.DB
}

// NewWebhookLogRepository creates a new webhook log repository instance
func NewWebhookLogRepository(db *gorm.DB) WebhookLogRepository {
	return &webhookLogRepository{db: db}
}

func (r *webhookLogRepository) Create(entry *models.WebhookLog) error {
	return r.db.Create(entry).Error
}

func (r *webhookLogRepository) ListRecent(limit, offset int) ([]models.WebhookLog, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var entries []models.WebhookLog
	err := r.db.Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error
	return entries, err
}
