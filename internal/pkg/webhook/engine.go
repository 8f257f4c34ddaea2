package webhook

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/andersonlima/payhook/app/models"
	"github.com/andersonlima/payhook/app/repository"
	"github.com/andersonlima/payhook/internal/pkg/catalog"
)

// Result is the resolution of one inbound event.
type Result struct {
	Outcome    string
	Message    string
	Family     string
	OrderFound bool
	OrderID    *uint
}

// Engine is the reconciliation core shared by every storefront: it decodes
// the order key, resolves the order, applies the at-most-once state
// transition and drives fulfillment. It holds no mutable state of its own;
// all coordination between concurrent deliveries happens through the order
// store's conditional updates.
type Engine struct {
	Registry  *catalog.Registry
	Orders    repository.OrderRepository
	Matcher   *Matcher
	Fulfiller *Fulfiller
	Audit     *Auditor
	Now       func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Process handles one authenticated, well-formed payment event. It always
// records exactly one audit entry and never returns an error: every outcome
// maps to a 200 response so the provider does not retry events that retrying
// cannot fix.
func (e *Engine) Process(ctx context.Context, ev Event, rawPayload []byte) Result {
	entry := &models.WebhookLog{
		EventType: ev.EventType,
		OrderNsu:  ev.OrderNsu,
		Amount:    ev.EffectiveAmount(),
		Payload:   string(rawPayload),
	}
	defer func() { e.Audit.Record(entry) }()

	key := ExtractOrderKey(e.Registry, ev)
	if key == nil {
		entry.Status = models.WebhookOutcomeNotFound
		entry.ResultMessage = "no order key could be recovered from the payload"
		return Result{Outcome: entry.Status, Message: entry.ResultMessage}
	}
	entry.Email = key.Email
	entry.Family = key.Family

	match, err := e.Matcher.Match(ctx, *key, ev)
	if err != nil {
		log.Printf("order match failed for nsu %s: %v", ev.OrderNsu, err)
		entry.Status = models.WebhookOutcomeNotFound
		entry.ResultMessage = fmt.Sprintf("order lookup failed: %v", err)
		return Result{Outcome: entry.Status, Message: entry.ResultMessage}
	}
	if match == nil {
		entry.Status = models.WebhookOutcomeNotFound
		entry.ResultMessage = "no pending order matched the decoded key"
		return Result{Outcome: entry.Status, Message: entry.ResultMessage}
	}

	order := match.Order
	entry.Family = match.Family
	entry.OrderFound = true
	entry.OrderID = &order.ID

	resumed := order.Status != models.OrderStatusPending
	if !resumed {
		paidAt := e.now()
		won, err := e.Orders.MarkPaid(match.Family, order.ID, paidAt)
		if err != nil {
			log.Printf("mark paid failed for %s order %d: %v", match.Family, order.ID, err)
			entry.Status = models.WebhookOutcomeNotFound
			entry.ResultMessage = fmt.Sprintf("state transition failed: %v", err)
			return Result{Outcome: entry.Status, Message: entry.ResultMessage, Family: match.Family, OrderFound: true, OrderID: &order.ID}
		}
		if won {
			order.Status = models.OrderStatusPaid
			order.PaidAt = &paidAt
		} else {
			// A concurrent delivery of the same event won the transition;
			// reload and continue in resume mode for flag repair.
			resumed = true
			if fresh, err := e.Orders.GetByID(match.Family, order.ID); err == nil {
				order = fresh
			}
		}
	}

	// Fulfillment always runs: on a resumed event the flags may have been
	// left half-set by a partial failure on an earlier delivery.
	e.Fulfiller.Fulfill(ctx, match.Family, order)

	if order.APICreated && order.EmailSent && order.Status == models.OrderStatusPaid {
		completedAt := e.now()
		won, err := e.Orders.MarkCompleted(match.Family, order.ID, completedAt)
		if err != nil {
			log.Printf("mark completed failed for %s order %d: %v", match.Family, order.ID, err)
		} else if won {
			order.Status = models.OrderStatusCompleted
			order.CompletedAt = &completedAt
		}
	}

	if resumed {
		entry.Status = models.WebhookOutcomeAlreadyProcessed
		entry.ResultMessage = fmt.Sprintf("order already %s; flags repaired where needed", order.Status)
	} else {
		entry.Status = models.WebhookOutcomeSuccess
		entry.ResultMessage = fmt.Sprintf("order reconciled to %s", order.Status)
	}
	return Result{
		Outcome:    entry.Status,
		Message:    entry.ResultMessage,
		Family:     match.Family,
		OrderFound: true,
		OrderID:    &order.ID,
	}
}
