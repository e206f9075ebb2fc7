package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bioping/bioping/app/models"
)

func TestCatalogByID(t *testing.T) {
	catalog := testCatalog()

	tests := []struct {
		name     string
		plan     string
		wantOK   bool
		wantPlan string
	}{
		{"basic", "basic", true, models.PlanBasic},
		{"premium uppercase", "PREMIUM", true, models.PlanPremium},
		{"test plan", "test", true, models.PlanTest},
		{"padded", "  basic  ", true, models.PlanBasic},
		{"free has no spec", "free", false, ""},
		{"pending has no spec", "pending", false, ""},
		{"garbage normalizes to free", "enterprise", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, ok := catalog.ByID(tt.plan)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantPlan, spec.ID)
			}
		})
	}
}

func TestCatalogByPriceRef(t *testing.T) {
	catalog := testCatalog()

	spec, ok := catalog.ByPriceRef("price_premium")
	assert.True(t, ok)
	assert.Equal(t, models.PlanPremium, spec.ID)
	assert.Equal(t, 100, spec.Credits)

	_, ok = catalog.ByPriceRef("price_unknown")
	assert.False(t, ok)

	// Blank refs never match, even if a spec has an empty PriceRef.
	_, ok = catalog.ByPriceRef("")
	assert.False(t, ok)
	_, ok = catalog.ByPriceRef("   ")
	assert.False(t, ok)
}

func TestCatalogFromEnvDefaults(t *testing.T) {
	catalog := NewCatalogFromEnv()

	basic, ok := catalog.ByID(models.PlanBasic)
	assert.True(t, ok)
	assert.Equal(t, 50, basic.Credits)
	assert.Equal(t, 30*24*time.Hour, basic.Period)

	testPlan, ok := catalog.ByID(models.PlanTest)
	assert.True(t, ok)
	assert.Equal(t, 24*time.Hour, testPlan.Period)
}
