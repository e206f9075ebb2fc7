package entitlements

import (
	"strings"

	"github.com/bioping/bioping/app/models"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanBasic   Plan = "basic"
	PlanPremium Plan = "premium"
)

// SearchPageLimit returns the maximum search page size for a given plan.
// Paying plans can pull bigger pages; the free tier is capped so trial
// accounts cannot scrape the dataset through pagination alone.
func SearchPageLimit(plan Plan) int {
	switch plan {
	case PlanPremium:
		return 100
	case PlanBasic:
		return 50
	default:
		return 20
	}
}

// MaxBDProjects returns how many BD Tracker rows a plan may hold.
// Zero means unlimited.
func MaxBDProjects(plan Plan) int {
	switch plan {
	case PlanPremium:
		return 0
	case PlanBasic:
		return 100
	default:
		return 10
	}
}

// ForUser maps an account onto its entitlement plan. Accounts whose first
// payment is still pending keep free-tier limits until the payment confirms.
func ForUser(u *models.User) Plan {
	return ForPlanName(u.Plan)
}

// ForPlanName maps a stored plan identifier onto its entitlement plan.
func ForPlanName(name string) Plan {
	switch strings.ToLower(name) {
	case models.PlanPremium, models.PlanTest:
		return PlanPremium
	case models.PlanBasic:
		return PlanBasic
	default:
		return PlanFree
	}
}
