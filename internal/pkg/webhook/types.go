package webhook

import "strings"

// Event is the parsed inbound provider payload. It lives only for the
// duration of one request; everything durable about it ends up in the
// webhook log.
type Event struct {
	EventType      string `json:"event_type"`
	OrderNsu       string `json:"order_nsu"`
	TransactionNsu string `json:"transaction_nsu"`
	InvoiceSlug    string `json:"invoice_slug"`
	Amount         int64  `json:"amount"`      // cents
	PaidAmount     int64  `json:"paid_amount"` // cents
	CustomerEmail  string `json:"customer_email"`
	Items          []Item `json:"items"`
}

// Item is one invoice line item. Providers are inconsistent about which
// field carries the product description.
type Item struct {
	Description string `json:"description"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
}

// Text returns the item's description, falling back to its name.
func (i Item) Text() string {
	if s := strings.TrimSpace(i.Description); s != "" {
		return s
	}
	return strings.TrimSpace(i.Name)
}

// EffectiveAmount prefers the settled amount over the invoice amount.
func (e Event) EffectiveAmount() int64 {
	if e.PaidAmount > 0 {
		return e.PaidAmount
	}
	return e.Amount
}
