package repository

import (
	"strings"
	"time"

	"github.com/andersonlima/payhook/app/models"
	"gorm.io/gorm"
)

// orderRepository implements OrderRepository on top of GORM with one order
// table per product family.
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) table(family string) *gorm.DB {
	return r.db.Table(family + "_orders")
}

func (r *orderRepository) Create(family string, order *models.Order) error {
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.PlanType == "" {
		order.PlanType = "lifetime"
	}
	if err := order.Validate(); err != nil {
		return err
	}
	return r.table(family).Create(order).Error
}

func (r *orderRepository) GetByID(family string, id uint) (*models.Order, error) {
	var order models.Order
	err := r.table(family).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindByNsu(family, nsu string) (*models.Order, error) {
	var order models.Order
	err := r.table(family).
		Where("nsu_order = ? AND status <> ?", nsu, models.OrderStatusExpired).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindPendingByEmailAndUsername(family, email, username string) (*models.Order, error) {
	var order models.Order
	err := r.table(family).
		Where("email = ? AND username = ? AND status = ?", email, username, models.OrderStatusPending).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindPendingByEmail(family, email string) (*models.Order, error) {
	var order models.Order
	err := r.table(family).
		Where("email = ? AND status = ?", email, models.OrderStatusPending).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindPendingByEmailFragment(family, fragment string) (*models.Order, error) {
	var order models.Order
	pattern := "%" + strings.ToLower(fragment) + "%"
	err := r.table(family).
		Where("LOWER(email) LIKE ? AND status = ?", pattern, models.OrderStatusPending).
		Order("created_at DESC").
		Limit(1).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindPendingByUsername(family, username string) (*models.Order, error) {
	var order models.Order
	err := r.table(family).
		Where("username = ? AND status = ?", username, models.OrderStatusPending).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) ListPendingCreatedSince(family string, since time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := r.table(family).
		Where("status = ? AND created_at >= ?", models.OrderStatusPending, since).
		Order("created_at DESC").
		Find(&orders).Error
	return orders, err
}

func (r *orderRepository) MarkPaid(family string, id uint, paidAt time.Time) (bool, error) {
	tx := r.table(family).
		Where("id = ? AND status = ?", id, models.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":  models.OrderStatusPaid,
			"paid_at": paidAt,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepository) MarkCompleted(family string, id uint, completedAt time.Time) (bool, error) {
	tx := r.table(family).
		Where("id = ? AND status = ?", id, models.OrderStatusPaid).
		Updates(map[string]interface{}{
			"status":       models.OrderStatusCompleted,
			"completed_at": completedAt,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepository) SetAPICreated(family string, id uint) (bool, error) {
	tx := r.table(family).
		Where("id = ? AND api_created = ?", id, false).
		Update("api_created", true)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepository) SetEmailSent(family string, id uint) (bool, error) {
	tx := r.table(family).
		Where("id = ? AND email_sent = ?", id, false).
		Update("email_sent", true)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepository) ExpireStalePending(family string, cutoff time.Time) (int64, error) {
	tx := r.table(family).
		Where("status = ? AND created_at < ?", models.OrderStatusPending, cutoff).
		Update("status", models.OrderStatusExpired)
	return tx.RowsAffected, tx.Error
}
