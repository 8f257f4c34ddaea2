package controllers

import (
	"context"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/andersonlima/payhook/app/models"
)

// memOrderRepo is an in-memory OrderRepository with the same conditional
// update semantics as the gorm implementation.
type memOrderRepo struct {
	mu     sync.Mutex
	nextID uint
	orders map[string][]*models.Order
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{nextID: 1, orders: map[string][]*models.Order{}}
}

func (r *memOrderRepo) add(family string, o models.Order) *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.ID = r.nextID
	r.nextID++
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	cp := o
	r.orders[family] = append(r.orders[family], &cp)
	return &cp
}

func (r *memOrderRepo) locate(family string, id uint) *models.Order {
	for _, o := range r.orders[family] {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (r *memOrderRepo) find(family string, match func(*models.Order) bool) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders[family] {
		if match(o) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memOrderRepo) Create(family string, order *models.Order) error {
	saved := r.add(family, *order)
	*order = *saved
	return nil
}

func (r *memOrderRepo) GetByID(family string, id uint) (*models.Order, error) {
	return r.find(family, func(o *models.Order) bool { return o.ID == id })
}

func (r *memOrderRepo) FindByNsu(family, nsu string) (*models.Order, error) {
	return r.find(family, func(o *models.Order) bool {
		return o.NsuOrder == nsu && o.Status != models.OrderStatusExpired
	})
}

func (r *memOrderRepo) FindPendingByEmailAndUsername(family, email, username string) (*models.Order, error) {
	return r.find(family, func(o *models.Order) bool {
		return o.Status == models.OrderStatusPending &&
			strings.EqualFold(o.Email, email) && strings.EqualFold(o.Username, username)
	})
}

func (r *memOrderRepo) FindPendingByEmail(family, email string) (*models.Order, error) {
	return r.find(family, func(o *models.Order) bool {
		return o.Status == models.OrderStatusPending && strings.EqualFold(o.Email, email)
	})
}

func (r *memOrderRepo) FindPendingByEmailFragment(family, fragment string) (*models.Order, error) {
	return r.find(family, func(o *models.Order) bool {
		return o.Status == models.OrderStatusPending &&
			strings.Contains(strings.ToLower(o.Email), strings.ToLower(fragment))
	})
}

func (r *memOrderRepo) FindPendingByUsername(family, username string) (*models.Order, error) {
	return r.find(family, func(o *models.Order) bool {
		return o.Status == models.OrderStatusPending && strings.EqualFold(o.Username, username)
	})
}

func (r *memOrderRepo) ListPendingCreatedSince(family string, since time.Time) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders[family] {
		if o.Status == models.OrderStatusPending && o.CreatedAt.After(since) {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) MarkPaid(family string, id uint, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.locate(family, id)
	if o == nil || o.Status != models.OrderStatusPending {
		return false, nil
	}
	o.Status = models.OrderStatusPaid
	t := paidAt
	o.PaidAt = &t
	return true, nil
}

func (r *memOrderRepo) MarkCompleted(family string, id uint, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.locate(family, id)
	if o == nil || o.Status != models.OrderStatusPaid {
		return false, nil
	}
	o.Status = models.OrderStatusCompleted
	t := completedAt
	o.CompletedAt = &t
	return true, nil
}

func (r *memOrderRepo) SetAPICreated(family string, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.locate(family, id)
	if o == nil || o.APICreated {
		return false, nil
	}
	o.APICreated = true
	return true, nil
}

func (r *memOrderRepo) SetEmailSent(family string, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.locate(family, id)
	if o == nil || o.EmailSent {
		return false, nil
	}
	o.EmailSent = true
	return true, nil
}

func (r *memOrderRepo) ExpireStalePending(family string, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, o := range r.orders[family] {
		if o.Status == models.OrderStatusPending && o.CreatedAt.Before(cutoff) {
			o.Status = models.OrderStatusExpired
			n++
		}
	}
	return n, nil
}

type memLogRepo struct {
	mu      sync.Mutex
	entries []models.WebhookLog
}

func (r *memLogRepo) Create(entry *models.WebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.ID = uint(len(r.entries) + 1)
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memLogRepo) ListRecent(limit, offset int) ([]models.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WebhookLog
	for i := len(r.entries) - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.entries[i])
	}
	return out, nil
}

func (r *memLogRepo) last() *models.WebhookLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) == 0 {
		return nil
	}
	cp := r.entries[len(r.entries)-1]
	return &cp
}

type memProvisioner struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *memProvisioner) CreateSubscriber(_ context.Context, _, _, _ string, _ *time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

type memMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (m *memMailer) Send(to, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, to)
	return nil
}
