package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/andersonlima/payhook/app/models"
	"github.com/andersonlima/payhook/app/repository"
	"github.com/andersonlima/payhook/internal/pkg/cache"
	"github.com/andersonlima/payhook/internal/pkg/catalog"
	"github.com/andersonlima/payhook/internal/pkg/env"
	"github.com/andersonlima/payhook/internal/pkg/mail"
	"github.com/andersonlima/payhook/internal/pkg/provider"
	"github.com/andersonlima/payhook/internal/pkg/provisioning"
	"github.com/andersonlima/payhook/internal/pkg/webhook"
)

// WebhookController receives provider payment notifications. It owns the
// request-level concerns (signature check, payload decode, the audit rows for
// requests the engine never sees) and hands authenticated events to the
// reconciliation engine.
type WebhookController struct {
	Engine *webhook.Engine
	Audit  *webhook.Auditor
	Secret func() string
}

var webhookController *WebhookController

// redisVerdicts adapts the shared cache to the matcher's verdict store.
type redisVerdicts struct{}

func (redisVerdicts) Get(key string) (string, error) { return cache.Get(key) }
func (redisVerdicts) Set(key string, value interface{}, expiration time.Duration) error {
	return cache.Set(key, value, expiration)
}

// InitializeWebhookController wires the controller with the production
// dependencies: repository factory, provider clients, SMTP mail and the
// redis verdict cache.
func InitializeWebhookController(registry *catalog.Registry) {
	repos := repository.GetGlobalFactory().GetRepositories()
	audit := &webhook.Auditor{Logs: repos.WebhookLogs}

	webhookController = &WebhookController{
		Engine: &webhook.Engine{
			Registry: registry,
			Orders:   repos.Orders,
			Matcher: &webhook.Matcher{
				Orders:   repos.Orders,
				Registry: registry,
				Provider: provider.NewClientFromEnv(),
				Verdicts: redisVerdicts{},
			},
			Fulfiller: &webhook.Fulfiller{
				Orders:      repos.Orders,
				Provisioner: provisioning.NewClientFromEnv(),
				Mailer:      mail.SMTPSender{},
			},
			Audit: audit,
		},
		Audit: audit,
		Secret: func() string {
			return env.GetEnv("WEBHOOK_SECRET", "")
		},
	}
}

// HandleProviderWebhook is the POST /webhook entry point.
func HandleProviderWebhook(c *fiber.Ctx) error {
	return webhookController.Handle(c)
}

func (wc *WebhookController) Handle(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)

	secret := wc.Secret()
	if secret == "" {
		log.Printf("[SECURITY] WEBHOOK_SECRET is not set; accepting webhook without signature verification")
	} else {
		signature := webhook.ExtractSignature(func(name string) string { return c.Get(name) })
		if !webhook.VerifySignature(rawBody, signature, secret) {
			wc.Audit.Record(&models.WebhookLog{
				Status:        models.WebhookOutcomeBadSignature,
				Payload:       string(rawBody),
				ResultMessage: "missing or invalid webhook signature",
			})
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
		}
	}

	var ev webhook.Event
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		wc.Audit.Record(&models.WebhookLog{
			Status:        models.WebhookOutcomeBadPayload,
			Payload:       string(rawBody),
			ResultMessage: fmt.Sprintf("payload decode failed: %v", err),
		})
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	result := wc.Engine.Process(ctx, ev, rawBody)

	// Always 200 for authenticated, well-formed requests: the provider's
	// retry loop cannot fix an unmatched order, and a retried duplicate is
	// already handled idempotently.
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"ok":          true,
		"outcome":     result.Outcome,
		"order_found": result.OrderFound,
	})
}
