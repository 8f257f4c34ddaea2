package entitlements

import (
	"strings"
	"time"
)

type Plan string

const (
	PlanLifetime Plan = "lifetime"
	PlanAnnual   Plan = "annual"
)

const annualDurationDays = 365

// NormalizePlan maps free-form plan strings to a known plan, defaulting to
// lifetime for unknown values so a bad record never produces a shorter
// subscription than the customer paid for.
func NormalizePlan(plan string) Plan {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanAnnual):
		return PlanAnnual
	default:
		return PlanLifetime
	}
}

// AccessType returns the access type string expected by the account
// provisioning API for a given plan.
func AccessType(plan Plan) string {
	switch plan {
	case PlanAnnual:
		return "annual"
	default:
		return "lifetime"
	}
}

// DurationDays returns the subscription length in days, 0 meaning unlimited.
func DurationDays(plan Plan) int {
	if plan == PlanAnnual {
		return annualDurationDays
	}
	return 0
}

// SubscriptionEnd computes the subscription end date for a plan starting at
// the given time. Lifetime plans have no end date and return nil.
func SubscriptionEnd(plan Plan, from time.Time) *time.Time {
	days := DurationDays(plan)
	if days == 0 {
		return nil
	}
	end := from.AddDate(0, 0, days)
	return &end
}
