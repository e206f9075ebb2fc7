package billing

import (
	"strings"
	"time"

	"github.com/bioping/bioping/app/models"
	"github.com/bioping/bioping/internal/pkg/env"
)

// PlanSpec describes one purchasable plan: the credit allotment granted per
// paid cycle and the length of the renewal period.
type PlanSpec struct {
	ID          string
	Credits     int
	Period      time.Duration
	PriceRef    string
	AmountCents int64
	Currency    string
}

// Catalog maps provider price references to internal plans. Credit amounts
// and the test-plan period are configuration, not constants, because the
// product has run daily test plans next to monthly production plans.
type Catalog struct {
	specs map[string]PlanSpec
}

// NewCatalogFromEnv builds the plan catalog from environment settings.
func NewCatalogFromEnv() *Catalog {
	specs := map[string]PlanSpec{
		models.PlanBasic: {
			ID:          models.PlanBasic,
			Credits:     env.GetEnvInt("PLAN_BASIC_CREDITS", 50),
			Period:      30 * 24 * time.Hour,
			PriceRef:    env.GetEnv("STRIPE_PRICE_BASIC", ""),
			AmountCents: int64(env.GetEnvInt("PLAN_BASIC_AMOUNT_CENTS", 9900)),
			Currency:    "usd",
		},
		models.PlanPremium: {
			ID:          models.PlanPremium,
			Credits:     env.GetEnvInt("PLAN_PREMIUM_CREDITS", 100),
			Period:      30 * 24 * time.Hour,
			PriceRef:    env.GetEnv("STRIPE_PRICE_PREMIUM", ""),
			AmountCents: int64(env.GetEnvInt("PLAN_PREMIUM_AMOUNT_CENTS", 19900)),
			Currency:    "usd",
		},
		models.PlanTest: {
			ID:          models.PlanTest,
			Credits:     env.GetEnvInt("PLAN_TEST_CREDITS", 50),
			Period:      time.Duration(env.GetEnvInt("PLAN_TEST_PERIOD_HOURS", 24)) * time.Hour,
			PriceRef:    env.GetEnv("STRIPE_PRICE_TEST", ""),
			AmountCents: int64(env.GetEnvInt("PLAN_TEST_AMOUNT_CENTS", 100)),
			Currency:    "usd",
		},
	}
	return &Catalog{specs: specs}
}

// NewCatalog builds a catalog from explicit specs, mainly for tests.
func NewCatalog(specs ...PlanSpec) *Catalog {
	m := make(map[string]PlanSpec, len(specs))
	for _, s := range specs {
		m[s.ID] = s
	}
	return &Catalog{specs: m}
}

// ByID returns the spec for an internal plan id.
func (c *Catalog) ByID(plan string) (PlanSpec, bool) {
	s, ok := c.specs[normalizePlan(plan)]
	return s, ok
}

// ByPriceRef resolves a provider price reference to an internal plan spec.
func (c *Catalog) ByPriceRef(priceRef string) (PlanSpec, bool) {
	ref := strings.TrimSpace(priceRef)
	if ref == "" {
		return PlanSpec{}, false
	}
	for _, s := range c.specs {
		if s.PriceRef == ref {
			return s, true
		}
	}
	return PlanSpec{}, false
}

func normalizePlan(plan string) string {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case models.PlanBasic:
		return models.PlanBasic
	case models.PlanPremium:
		return models.PlanPremium
	case models.PlanTest:
		return models.PlanTest
	case models.PlanPending:
		return models.PlanPending
	default:
		return models.PlanFree
	}
}
