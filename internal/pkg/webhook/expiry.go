package webhook

import (
	"context"
	"log"
	"time"

	"github.com/andersonlima/payhook/app/repository"
	"github.com/andersonlima/payhook/internal/pkg/catalog"
)

const (
	DefaultExpiryInterval = 10 * time.Minute
	DefaultExpiryMaxAge   = 48 * time.Hour
)

// ExpirySweeper moves stale pending orders to expired. This is the external
// timer the reconciliation engine itself never drives: an order that was
// never paid eventually leaves the matcher's search space.
type ExpirySweeper struct {
	Orders   repository.OrderRepository
	Registry *catalog.Registry
	Interval time.Duration
	MaxAge   time.Duration
}

// Run sweeps on a ticker until the context is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = DefaultExpiryInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce()
		}
	}
}

// SweepOnce expires stale pending orders across all families.
func (s *ExpirySweeper) SweepOnce() {
	maxAge := s.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultExpiryMaxAge
	}
	cutoff := time.Now().Add(-maxAge)

	for _, fam := range s.Registry.Families() {
		n, err := s.Orders.ExpireStalePending(fam.Slug, cutoff)
		if err != nil {
			log.Printf("expiry sweep failed for %s: %v", fam.Slug, err)
			continue
		}
		if n > 0 {
			log.Printf("expired %d stale pending orders for %s", n, fam.Slug)
		}
	}
}
