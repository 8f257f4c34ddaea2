package webhook

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/andersonlima/payhook/app/models"
	"gorm.io/gorm"
)

// fakeOrderRepo is an in-memory stand-in for the GORM order repository with
// the same pending-scope and conditional-update semantics.
type fakeOrderRepo struct {
	mu     sync.Mutex
	nextID uint
	orders map[string][]*models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[string][]*models.Order)}
}

func (r *fakeOrderRepo) add(family string, o models.Order) *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	if o.Status == "" {
		o.Status = models.OrderStatusPending
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	stored := o
	r.orders[family] = append(r.orders[family], &stored)
	return &stored
}

func (r *fakeOrderRepo) Create(family string, order *models.Order) error {
	stored := r.add(family, *order)
	order.ID = stored.ID
	return nil
}

func (r *fakeOrderRepo) GetByID(family string, id uint) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders[family] {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) findPending(family string, match func(*models.Order) bool) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.Order
	for _, o := range r.orders[family] {
		if o.Status != models.OrderStatusPending || !match(o) {
			continue
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt) {
			best = o
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *fakeOrderRepo) FindByNsu(family, nsu string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.Order
	for _, o := range r.orders[family] {
		if o.NsuOrder != nsu || o.Status == models.OrderStatusExpired {
			continue
		}
		if best == nil || o.CreatedAt.After(best.CreatedAt) {
			best = o
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *fakeOrderRepo) FindPendingByEmailAndUsername(family, email, username string) (*models.Order, error) {
	return r.findPending(family, func(o *models.Order) bool {
		return o.Email == email && o.Username == username
	})
}

func (r *fakeOrderRepo) FindPendingByEmail(family, email string) (*models.Order, error) {
	return r.findPending(family, func(o *models.Order) bool { return o.Email == email })
}

func (r *fakeOrderRepo) FindPendingByEmailFragment(family, fragment string) (*models.Order, error) {
	frag := strings.ToLower(fragment)
	return r.findPending(family, func(o *models.Order) bool {
		return strings.Contains(strings.ToLower(o.Email), frag)
	})
}

func (r *fakeOrderRepo) FindPendingByUsername(family, username string) (*models.Order, error) {
	return r.findPending(family, func(o *models.Order) bool { return o.Username == username })
}

func (r *fakeOrderRepo) ListPendingCreatedSince(family string, since time.Time) ([]models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Order
	for _, o := range r.orders[family] {
		if o.Status == models.OrderStatusPending && !o.CreatedAt.Before(since) {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeOrderRepo) MarkPaid(family string, id uint, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders[family] {
		if o.ID == id && o.Status == models.OrderStatusPending {
			o.Status = models.OrderStatusPaid
			t := paidAt
			o.PaidAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) MarkCompleted(family string, id uint, completedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders[family] {
		if o.ID == id && o.Status == models.OrderStatusPaid {
			o.Status = models.OrderStatusCompleted
			t := completedAt
			o.CompletedAt = &t
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) SetAPICreated(family string, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders[family] {
		if o.ID == id && !o.APICreated {
			o.APICreated = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) SetEmailSent(family string, id uint) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders[family] {
		if o.ID == id && !o.EmailSent {
			o.EmailSent = true
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) ExpireStalePending(family string, cutoff time.Time) (int64, error) {
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

func (r *fakeOrderRepo) get(family string, id uint) *models.Order {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders[family] {
		if o.ID == id {
			cp := *o
			return &cp
		}
	}
	return nil
}

type fakeLogRepo struct {
	mu      sync.Mutex
	entries []models.WebhookLog
	fail    bool
}

func (r *fakeLogRepo) Create(entry *models.WebhookLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return gorm.ErrInvalidDB
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeLogRepo) ListRecent(limit, offset int) ([]models.WebhookLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.WebhookLog(nil), r.entries...), nil
}

type fakeChecker struct {
	mu    sync.Mutex
	paid  bool
	err   error
	calls int
}

func (c *fakeChecker) CheckPayment(ctx context.Context, orderNsu, transactionNsu, slug string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return c.paid, c.err
}

type fakeVerdicts struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeVerdicts() *fakeVerdicts {
	return &fakeVerdicts{data: make(map[string]string)}
}

func (v *fakeVerdicts) Get(key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.data[key]
	if !ok {
		return "", gorm.ErrRecordNotFound
	}
	return s, nil
}

func (v *fakeVerdicts) Set(key string, value interface{}, expiration time.Duration) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[key] = value.(string)
	return nil
}

type fakeProvisioner struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (p *fakeProvisioner) CreateSubscriber(ctx context.Context, username, password, accessType string, subscriptionEnd *time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.err
}

type fakeMailer struct {
	mu    sync.Mutex
	err   error
	calls int
	to    []string
	body  []string
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.to = append(m.to, to)
	m.body = append(m.body, body)
	return nil
}
