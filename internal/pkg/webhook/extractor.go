package webhook

import (
	"regexp"
	"strings"

	"github.com/andersonlima/payhook/internal/pkg/catalog"
)

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ExtractOrderKey decodes an order key from the event's line items. Items
// are tried in order against every registered grammar; the first item with a
// recognized prefix wins. When no grammar matches, a generic email scan over
// the descriptions and the payload-level customer email is the last resort;
// the resulting key has no family and the matcher must search every table.
//
// Returns nil only when no email can be recovered at all.
func ExtractOrderKey(registry *catalog.Registry, ev Event) *catalog.OrderKey {
	for _, item := range ev.Items {
		if key, ok := registry.Parse(item.Text()); ok {
			return &key
		}
	}

	for _, item := range ev.Items {
		if email := emailPattern.FindString(item.Text()); email != "" {
			return &catalog.OrderKey{Email: email}
		}
	}

	if email := emailPattern.FindString(strings.TrimSpace(ev.CustomerEmail)); email != "" {
		return &catalog.OrderKey{Email: email}
	}

	return nil
}
