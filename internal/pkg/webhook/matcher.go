package webhook

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/andersonlima/payhook/app/models"
	"github.com/andersonlima/payhook/app/repository"
	"github.com/andersonlima/payhook/internal/pkg/catalog"
	"gorm.io/gorm"
)

const (
	// DefaultFallbackWindow bounds how far back the provider re-verification
	// fallback may look for candidate orders. Old pending orders must never
	// be attributed a fresh payment.
	DefaultFallbackWindow = 30 * time.Minute

	paymentCheckTimeout = 8 * time.Second
	verdictTTL          = 5 * time.Minute
)

// PaymentChecker is the provider's authoritative payment-status API.
type PaymentChecker interface {
	CheckPayment(ctx context.Context, orderNsu, transactionNsu, slug string) (bool, error)
}

// VerdictCache memoizes payment-check verdicts so provider retry storms do
// not re-hit the payment-status endpoint. Best-effort: any error is treated
// as a cache miss.
type VerdictCache interface {
	Get(key string) (string, error)
	Set(key string, value interface{}, expiration time.Duration) error
}

// Match is a resolved order together with the product family that owns it.
type Match struct {
	Family string
	Order  *models.Order
}

// Matcher resolves a decoded order key (possibly partial) to exactly one
// pending order, trying strategies from strongest to weakest.
type Matcher struct {
	Orders   repository.OrderRepository
	Registry *catalog.Registry
	Provider PaymentChecker
	Verdicts VerdictCache

	FallbackWindow time.Duration
	Now            func() time.Time
}

func (m *Matcher) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

func (m *Matcher) window() time.Duration {
	if m.FallbackWindow > 0 {
		return m.FallbackWindow
	}
	return DefaultFallbackWindow
}

// families returns the search scope: the key's own family when decoded, or
// every registered family for keys recovered by the generic email scan.
func (m *Matcher) families(key catalog.OrderKey) []catalog.ProductFamily {
	if key.Family != "" {
		if fam, ok := m.Registry.BySlug(key.Family); ok {
			return []catalog.ProductFamily{fam}
		}
		return nil
	}
	return m.Registry.Families()
}

// Match runs the cascade. A nil result with a nil error means no order could
// be resolved; store errors other than not-found are returned as-is.
func (m *Matcher) Match(ctx context.Context, key catalog.OrderKey, ev Event) (*Match, error) {
	fams := m.families(key)

	type finder func(family string) (*models.Order, error)
	steps := []finder{
		// 1. Exact provider order reference. Matches paid/completed orders
		// too: a redelivery must reach the order it already transitioned so
		// half-finished fulfillment can resume.
		func(family string) (*models.Order, error) {
			if ev.OrderNsu == "" {
				return nil, gorm.ErrRecordNotFound
			}
			return m.Orders.FindByNsu(family, ev.OrderNsu)
		},
		// 2. Exact email + username.
		func(family string) (*models.Order, error) {
			if key.Email == "" || key.Username == "" {
				return nil, gorm.ErrRecordNotFound
			}
			return m.Orders.FindPendingByEmailAndUsername(family, key.Email, key.Username)
		},
		// 3. Exact real email after an affiliate split.
		func(family string) (*models.Order, error) {
			if key.AffiliateID == "" || key.Email == "" {
				return nil, gorm.ErrRecordNotFound
			}
			return m.Orders.FindPendingByEmail(family, key.Email)
		},
		// 4. Case-insensitive substring, most recent first. Handles
		// provider-side truncation and formatting drift.
		func(family string) (*models.Order, error) {
			if key.Email == "" {
				return nil, gorm.ErrRecordNotFound
			}
			return m.Orders.FindPendingByEmailFragment(family, key.Email)
		},
		// 5. Username alone, when the email is corrupted beyond matching.
		func(family string) (*models.Order, error) {
			if key.Username == "" {
				return nil, gorm.ErrRecordNotFound
			}
			return m.Orders.FindPendingByUsername(family, key.Username)
		},
	}

	for _, step := range steps {
		for _, fam := range fams {
			order, err := step(fam.Slug)
			if err == nil {
				return &Match{Family: fam.Slug, Order: order}, nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, err
			}
		}
	}

	// 6. Provider re-verification fallback.
	return m.reverify(ctx, key, ev, fams)
}

// reverify asks the provider whether the payment is genuinely settled and,
// if so, picks a recent pending order that overlaps the decoded key. A
// provider failure or timeout fails the match, never the request.
func (m *Matcher) reverify(ctx context.Context, key catalog.OrderKey, ev Event, fams []catalog.ProductFamily) (*Match, error) {
	if ev.OrderNsu == "" || m.Provider == nil {
		return nil, nil
	}

	paid, ok := m.cachedVerdict(ev)
	if !ok {
		checkCtx, cancel := context.WithTimeout(ctx, paymentCheckTimeout)
		defer cancel()

		var err error
		paid, err = m.Provider.CheckPayment(checkCtx, ev.OrderNsu, ev.TransactionNsu, ev.InvoiceSlug)
		if err != nil {
			log.Printf("payment check failed for nsu %s: %v", ev.OrderNsu, err)
			return nil, nil
		}
		m.storeVerdict(ev, paid)
	}
	if !paid {
		return nil, nil
	}

	since := m.now().Add(-m.window())
	var newest *Match
	for _, fam := range fams {
		candidates, err := m.Orders.ListPendingCreatedSince(fam.Slug, since)
		if err != nil {
			return nil, err
		}
		for i := range candidates {
			cand := &candidates[i]
			if overlaps(key, cand) {
				return &Match{Family: fam.Slug, Order: cand}, nil
			}
			if newest == nil || cand.CreatedAt.After(newest.Order.CreatedAt) {
				newest = &Match{Family: fam.Slug, Order: cand}
			}
		}
	}

	// Last resort: single most recent candidate, and only when the amounts
	// agree. A confirmed payment must not land on an unrelated order that
	// merely happens to be recent.
	if newest != nil {
		if amount := ev.EffectiveAmount(); amount > 0 && newest.Order.Amount != amount {
			return nil, nil
		}
		return newest, nil
	}
	return nil, nil
}

func (m *Matcher) verdictKey(ev Event) string {
	return "payment_check:" + ev.OrderNsu + ":" + ev.TransactionNsu
}

func (m *Matcher) cachedVerdict(ev Event) (paid, ok bool) {
	if m.Verdicts == nil {
		return false, false
	}
	v, err := m.Verdicts.Get(m.verdictKey(ev))
	if err != nil {
		return false, false
	}
	return v == "paid", true
}

func (m *Matcher) storeVerdict(ev Event, paid bool) {
	if m.Verdicts == nil {
		return
	}
	v := "unpaid"
	if paid {
		v = "paid"
	}
	if err := m.Verdicts.Set(m.verdictKey(ev), v, verdictTTL); err != nil {
		log.Printf("failed to cache payment verdict for nsu %s: %v", ev.OrderNsu, err)
	}
}

// overlaps reports whether a candidate order textually matches the decoded
// key: emails containing one another (either direction) or equal usernames.
func overlaps(key catalog.OrderKey, order *models.Order) bool {
	if key.Email != "" && order.Email != "" {
		a := strings.ToLower(key.Email)
		b := strings.ToLower(order.Email)
		if strings.Contains(a, b) || strings.Contains(b, a) {
			return true
		}
	}
	if key.Username != "" && strings.EqualFold(key.Username, order.Username) {
		return true
	}
	return false
}
