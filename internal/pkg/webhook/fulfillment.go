package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/andersonlima/payhook/app/models"
	"github.com/andersonlima/payhook/app/repository"
	"github.com/andersonlima/payhook/internal/pkg/entitlements"
	"github.com/andersonlima/payhook/internal/pkg/env"
)

// Provisioner creates subscriber accounts in the external account system.
type Provisioner interface {
	CreateSubscriber(ctx context.Context, username, password, accessType string, subscriptionEnd *time.Time) error
}

// Mailer delivers the transactional access email.
type Mailer interface {
	Send(to, subject, body string) error
}

// FulfillmentResult reports which steps newly succeeded in this pass.
type FulfillmentResult struct {
	APICreated bool
	EmailSent  bool
}

// Fulfiller runs the two post-payment steps: account provisioning and the
// credentials email. The steps are failure-isolated; each one is gated by
// its own idempotency flag on the order, so a retried or resumed event never
// double-provisions or double-emails. Failures are logged and left for the
// next delivery (or an admin resend) to pick up, never retried in-process.
type Fulfiller struct {
	Orders      repository.OrderRepository
	Provisioner Provisioner
	Mailer      Mailer
	Now         func() time.Time
}

func (f *Fulfiller) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

// Fulfill mutates order's flags in place as steps succeed.
func (f *Fulfiller) Fulfill(ctx context.Context, family string, order *models.Order) FulfillmentResult {
	var result FulfillmentResult

	plan := entitlements.NormalizePlan(order.PlanType)
	username := SubscriberUsername(order)
	password := DerivePassword(username)
	subscriptionEnd := entitlements.SubscriptionEnd(plan, f.now())

	if !order.APICreated {
		err := f.Provisioner.CreateSubscriber(ctx, username, password, entitlements.AccessType(plan), subscriptionEnd)
		if err != nil {
			log.Printf("provisioning failed for %s order %d (user %s): %v", family, order.ID, username, err)
		} else {
			if _, err := f.Orders.SetAPICreated(family, order.ID); err != nil {
				log.Printf("failed to persist api_created for %s order %d: %v", family, order.ID, err)
			} else {
				order.APICreated = true
				result.APICreated = true
			}
		}
	}

	if !order.EmailSent && f.SendAccessEmail(family, order) {
		result.EmailSent = true
	}

	return result
}

// SendAccessEmail runs the notification step alone. It is also the entry
// point for the admin "resend email" action. Reports whether the email was
// newly sent and the flag persisted.
func (f *Fulfiller) SendAccessEmail(family string, order *models.Order) bool {
	plan := entitlements.NormalizePlan(order.PlanType)
	username := SubscriberUsername(order)
	password := DerivePassword(username)
	subscriptionEnd := entitlements.SubscriptionEnd(plan, f.now())

	subject, body := accessEmail(username, password, plan, subscriptionEnd)
	if err := f.Mailer.Send(order.Email, subject, body); err != nil {
		log.Printf("access email failed for %s order %d (%s): %v", family, order.ID, order.Email, err)
		return false
	}
	if _, err := f.Orders.SetEmailSent(family, order.ID); err != nil {
		log.Printf("failed to persist email_sent for %s order %d: %v", family, order.ID, err)
		return false
	}
	order.EmailSent = true
	return true
}

// SubscriberUsername picks the provisioning username for an order, falling
// back to the email local part when the storefront grammar carried none.
func SubscriberUsername(order *models.Order) string {
	if u := strings.TrimSpace(order.Username); u != "" {
		return u
	}
	email := strings.TrimSpace(order.Email)
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}

// DerivePassword computes the deterministic subscriber password for a
// username. Deterministic so that a re-provisioned or resumed fulfillment
// always produces the same credentials as the email that was already sent.
func DerivePassword(username string) string {
	salt := env.GetEnv("CREDENTIAL_SALT", "payhook")
	mac := hmac.New(sha256.New, []byte(salt))
	mac.Write([]byte(strings.ToLower(strings.TrimSpace(username))))
	return hex.EncodeToString(mac.Sum(nil))[:12]
}

func accessEmail(username, password string, plan entitlements.Plan, subscriptionEnd *time.Time) (subject, body string) {
	subject = "Your access details"

	validity := "Lifetime access"
	if subscriptionEnd != nil {
		validity = "Access valid until " + subscriptionEnd.Format("2006-01-02")
	}

	body = fmt.Sprintf(
		"<h2>Welcome!</h2>"+
			"<p>Your payment was confirmed and your account is ready.</p>"+
			"<p><b>Username:</b> %s<br><b>Password:</b> %s</p>"+
			"<p><b>Plan:</b> %s<br>%s</p>",
		username, password, plan, validity,
	)
	return subject, body
}
