package catalog

import (
	"fmt"
	"strings"

	"github.com/andersonlima/payhook/internal/pkg/entitlements"
)

// Registry is the dispatch table from description prefix to product family.
type Registry struct {
	families []ProductFamily
	byPrefix map[string]ProductFamily
	bySlug   map[string]ProductFamily
}

func NewRegistry() *Registry {
	return &Registry{
		byPrefix: make(map[string]ProductFamily),
		bySlug:   make(map[string]ProductFamily),
	}
}

// Register adds a product family. Registering a duplicate prefix or slug is a
// programming error and panics at boot rather than silently shadowing.
func (r *Registry) Register(f ProductFamily) {
	if f.Slug == "" || f.Prefix == "" {
		panic("catalog: product family needs slug and prefix")
	}
	if _, ok := r.byPrefix[f.Prefix]; ok {
		panic(fmt.Sprintf("catalog: duplicate prefix %q", f.Prefix))
	}
	if _, ok := r.bySlug[f.Slug]; ok {
		panic(fmt.Sprintf("catalog: duplicate slug %q", f.Slug))
	}
	r.families = append(r.families, f)
	r.byPrefix[f.Prefix] = f
	r.bySlug[f.Slug] = f
}

// Families returns all registered families in registration order.
func (r *Registry) Families() []ProductFamily {
	return r.families
}

// BySlug resolves a family by its slug.
func (r *Registry) BySlug(slug string) (ProductFamily, bool) {
	f, ok := r.bySlug[strings.ToLower(strings.TrimSpace(slug))]
	return f, ok
}

// Parse tries every registered family against a line-item description and
// returns the first decoded order key.
func (r *Registry) Parse(desc string) (OrderKey, bool) {
	for _, f := range r.families {
		if key, ok := f.ParseDescription(desc); ok {
			return key, true
		}
	}
	return OrderKey{}, false
}

// Default returns the registry with the built-in storefronts.
func Default() *Registry {
	r := NewRegistry()
	r.Register(ProductFamily{
		Slug:    "mroig",
		Prefix:  "MROIG",
		Grammar: GrammarPlanUserEmail,
		PlanTokens: map[string]entitlements.Plan{
			"VITALICIO": entitlements.PlanLifetime,
			"ANUAL":     entitlements.PlanAnnual,
		},
		DefaultPlan: entitlements.PlanLifetime,
	})
	r.Register(ProductFamily{
		Slug:    "escalafit",
		Prefix:  "ESCALAFIT",
		Grammar: GrammarPlanUserEmail,
		PlanTokens: map[string]entitlements.Plan{
			"VITALICIO": entitlements.PlanLifetime,
			"ANUAL":     entitlements.PlanAnnual,
		},
		DefaultPlan: entitlements.PlanLifetime,
	})
	r.Register(ProductFamily{
		Slug:        "radarclique",
		Prefix:      "RADARCLIQUE",
		Grammar:     GrammarEmailOnly,
		DefaultPlan: entitlements.PlanLifetime,
	})
	return r
}
