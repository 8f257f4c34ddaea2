package catalog

import (
	"strings"

	"github.com/andersonlima/payhook/internal/pkg/entitlements"
)

// GrammarKind selects how a product family encodes order identity inside the
// line-item description of a provider invoice.
type GrammarKind int

const (
	// GrammarPlanUserEmail: PREFIX_PLAN_username_email, where the email tail
	// may carry an affiliate marker ("aff:real@mail.com").
	GrammarPlanUserEmail GrammarKind = iota
	// GrammarEmailOnly: PREFIX_email for single-plan products.
	GrammarEmailOnly
)

// ProductFamily describes one storefront: its description prefix, grammar
// and plan vocabulary. Families are registered once at boot; adding a new
// storefront is additive and never touches the engine.
type ProductFamily struct {
	Slug        string
	Prefix      string
	Grammar     GrammarKind
	PlanTokens  map[string]entitlements.Plan
	DefaultPlan entitlements.Plan
}

// OrderTable returns the per-family MySQL table holding this family's orders.
func (f ProductFamily) OrderTable() string {
	return f.Slug + "_orders"
}

// OrderKey is the decoded logical identity of a purchase.
type OrderKey struct {
	Family      string
	Plan        entitlements.Plan
	Username    string
	Email       string
	AffiliateID string
}

// ParseDescription tries to decode a line-item description with this
// family's grammar. It reports false when the description does not belong to
// this family or yields no email.
func (f ProductFamily) ParseDescription(desc string) (OrderKey, bool) {
	desc = strings.TrimSpace(desc)
	if !strings.HasPrefix(desc, f.Prefix+"_") {
		return OrderKey{}, false
	}
	rest := desc[len(f.Prefix)+1:]

	switch f.Grammar {
	case GrammarEmailOnly:
		if !strings.Contains(rest, "@") {
			return OrderKey{}, false
		}
		return OrderKey{
			Family: f.Slug,
			Plan:   f.DefaultPlan,
			Email:  rest,
		}, true

	default:
		// Split the remainder, not the full description, so prefixes that
		// themselves contain underscores parse the same way.
		parts := strings.Split(rest, "_")
		if len(parts) < 3 {
			return OrderKey{}, false
		}
		plan, ok := f.PlanTokens[strings.ToUpper(parts[0])]
		if !ok {
			return OrderKey{}, false
		}
		username := parts[1]
		tail := strings.Join(parts[2:], "_")
		affiliate, email := SplitAffiliateTail(tail)
		if !strings.Contains(email, "@") {
			return OrderKey{}, false
		}
		return OrderKey{
			Family:      f.Slug,
			Plan:        plan,
			Username:    username,
			Email:       email,
			AffiliateID: affiliate,
		}, true
	}
}

// SplitAffiliateTail splits an "affiliate:email" tail into its parts. The
// tail is only treated as an affiliate marker when the portion after the
// first colon still contains an address; otherwise the whole tail is the
// email (colons can legally appear in quoted local parts).
func SplitAffiliateTail(tail string) (affiliate, email string) {
	if !strings.Contains(tail, ":") || !strings.Contains(tail, "@") {
		return "", tail
	}
	idx := strings.Index(tail, ":")
	after := tail[idx+1:]
	if !strings.Contains(after, "@") {
		return "", tail
	}
	return tail[:idx], after
}
