package controllers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/andersonlima/payhook/app/models"
	"github.com/andersonlima/payhook/app/repository"
	"github.com/andersonlima/payhook/internal/pkg/catalog"
	"github.com/andersonlima/payhook/internal/pkg/mail"
	"github.com/andersonlima/payhook/internal/pkg/provisioning"
	"github.com/andersonlima/payhook/internal/pkg/webhook"
)

// AdminOrderController exposes the repair surface: inspect an order, force
// the paid transition for payments the webhook never delivered, resend the
// access email, and read the audit trail.
type AdminOrderController struct {
	registry  *catalog.Registry
	orders    repository.OrderRepository
	logs      repository.WebhookLogRepository
	fulfiller *webhook.Fulfiller
	now       func() time.Time
}

// NewAdminOrderController creates an admin order controller with repositories.
func NewAdminOrderController(registry *catalog.Registry, orders repository.OrderRepository, logs repository.WebhookLogRepository, fulfiller *webhook.Fulfiller) *AdminOrderController {
	return &AdminOrderController{
		registry:  registry,
		orders:    orders,
		logs:      logs,
		fulfiller: fulfiller,
		now:       time.Now,
	}
}

var adminOrderController *AdminOrderController

// InitializeAdminOrderController wires the controller with the global
// repository factory and the production fulfillment dependencies.
func InitializeAdminOrderController(registry *catalog.Registry) {
	repos := repository.GetGlobalFactory().GetRepositories()
	adminOrderController = NewAdminOrderController(registry, repos.Orders, repos.WebhookLogs, &webhook.Fulfiller{
		Orders:      repos.Orders,
		Provisioner: provisioning.NewClientFromEnv(),
		Mailer:      mail.SMTPSender{},
	})
}

func HandleAdminGetOrder(c *fiber.Ctx) error {
	return adminOrderController.HandleGetOrder(c)
}

func HandleAdminMarkOrderPaid(c *fiber.Ctx) error {
	return adminOrderController.HandleMarkOrderPaid(c)
}

func HandleAdminResendOrderEmail(c *fiber.Ctx) error {
	return adminOrderController.HandleResendOrderEmail(c)
}

func HandleAdminListWebhookLogs(c *fiber.Ctx) error {
	return adminOrderController.HandleListWebhookLogs(c)
}

// resolveOrder loads the order addressed by the :family/:id route params.
// ok=false means the error response has already been written.
func (ac *AdminOrderController) resolveOrder(c *fiber.Ctx) (catalog.ProductFamily, *models.Order, bool) {
	fam, found := ac.registry.BySlug(c.Params("family"))
	if !found {
		_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown_family"})
		return catalog.ProductFamily{}, nil, false
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_order_id"})
		return catalog.ProductFamily{}, nil, false
	}

	order, err := ac.orders.GetByID(fam.Slug, uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "order_not_found"})
		} else {
			_ = c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "order_lookup_failed"})
		}
		return catalog.ProductFamily{}, nil, false
	}

	return fam, order, true
}

func (ac *AdminOrderController) HandleGetOrder(c *fiber.Ctx) error {
	fam, order, ok := ac.resolveOrder(c)
	if !ok {
		return nil
	}
	return c.JSON(fiber.Map{"family": fam.Slug, "order": order})
}

// HandleMarkOrderPaid applies the same paid transition and fulfillment pass
// the webhook path runs, for payments the provider confirmed out of band.
// Calling it on an already paid or completed order only repairs flags.
func (ac *AdminOrderController) HandleMarkOrderPaid(c *fiber.Ctx) error {
	fam, order, ok := ac.resolveOrder(c)
	if !ok {
		return nil
	}

	if order.Status == models.OrderStatusExpired {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "order_expired"})
	}

	if order.Status == models.OrderStatusPending {
		paidAt := ac.now()
		won, err := ac.orders.MarkPaid(fam.Slug, order.ID, paidAt)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "state_transition_failed"})
		}
		if won {
			order.Status = models.OrderStatusPaid
			order.PaidAt = &paidAt
		} else if fresh, err := ac.orders.GetByID(fam.Slug, order.ID); err == nil {
			order = fresh
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	ac.fulfiller.Fulfill(ctx, fam.Slug, order)

	if order.APICreated && order.EmailSent && order.Status == models.OrderStatusPaid {
		completedAt := ac.now()
		if won, err := ac.orders.MarkCompleted(fam.Slug, order.ID, completedAt); err == nil && won {
			order.Status = models.OrderStatusCompleted
			order.CompletedAt = &completedAt
		}
	}

	return c.JSON(fiber.Map{"family": fam.Slug, "order": order})
}

// HandleResendOrderEmail redelivers the access email for a paid order. It
// intentionally resends even when the email flag is already set; the derived
// credentials are deterministic, so the customer gets the same details again.
func (ac *AdminOrderController) HandleResendOrderEmail(c *fiber.Ctx) error {
	fam, order, ok := ac.resolveOrder(c)
	if !ok {
		return nil
	}

	if order.Status == models.OrderStatusPending || order.Status == models.OrderStatusExpired {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "order_not_paid"})
	}

	if !ac.fulfiller.SendAccessEmail(fam.Slug, order) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "email_send_failed"})
	}

	return c.JSON(fiber.Map{"ok": true, "email": order.Email})
}

func (ac *AdminOrderController) HandleListWebhookLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}
	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := ac.logs.ListRecent(limit, offset)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "log_lookup_failed"})
	}

	return c.JSON(fiber.Map{"logs": entries, "count": len(entries)})
}
