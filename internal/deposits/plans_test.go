package deposits

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()

	require.Len(t, c.Plans, 14)
	for i := 1; i < len(c.Plans); i++ {
		assert.Less(t, c.Plans[i-1].Order, c.Plans[i].Order)
	}
	assert.Equal(t, "trial", c.Plans[0].ID)
	assert.Equal(t, "maximum", c.Plans[13].ID)
	assert.Equal(t, 0.05, c.Tolerance)
	assert.Equal(t, 2500.0, c.MaxActiveUSD)
	assert.Equal(t, 1.0, c.Authorization.AmountPLEX)
}

func TestCatalog_Match(t *testing.T) {
	c := DefaultCatalog()

	tests := []struct {
		name     string
		amount   float64
		currency Currency
		want     string
	}{
		{"exact usdt", 25, CurrencyUSDT, "trial"},
		{"usdt within tolerance", 47.6, CurrencyUSDT, "basic"},
		{"usdt upper edge", 50 * 1.05, CurrencyUSDT, "basic"},
		{"exact plex", 20001, CurrencyPLEX, "recommended"},
		{"plex within tolerance", 29000, CurrencyPLEX, "platinum"},
		{"plex not accepted for usdt-only plan", 500, CurrencyPLEX, ""},
		{"usdt between plans", 75, CurrencyUSDT, ""},
		{"usdt just outside", 50*1.05 + 0.01, CurrencyUSDT, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, ok := c.Match(tt.amount, tt.currency)
			if tt.want == "" {
				assert.False(t, ok)
				assert.Nil(t, plan)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, plan.ID)
		})
	}
}

func TestPlan_Returns(t *testing.T) {
	c := DefaultCatalog()
	plan, ok := c.Plan("starter")
	require.True(t, ok)

	assert.InDelta(t, 120.0, plan.TotalReturn(100), 1e-9)
	assert.InDelta(t, 20.0, plan.Profit(100), 1e-9)
	assert.True(t, plan.Accepts(CurrencyUSDT))
	assert.False(t, plan.Accepts(CurrencyPLEX))

	_, ok = c.Plan("missing")
	assert.False(t, ok)
}

const validCatalog = `
tolerance: 0.1
plexPriceUsd: 0.05
maxActiveUsd: 100
access:
  minUsdt: 1
  maxUsdt: 10
  usdPerDay: 1
plans:
  - id: b
    plexAmount: 200
    percentage: 120
    days: 2
    order: 2
    currencies: [PLEX]
  - id: a
    usdtAmount: 10
    percentage: 110
    days: 1
    order: 1
    currencies: [USDT]
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(validCatalog))
	require.NoError(t, err)
	require.Len(t, c.Plans, 2)
	assert.Equal(t, "a", c.Plans[0].ID)

	plan, ok := c.Match(210, CurrencyPLEX)
	require.True(t, ok)
	assert.Equal(t, "b", plan.ID)
}

func TestParseCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"not yaml", "plans: [:"},
		{"tolerance", "tolerance: 1\nplexPriceUsd: 1\nmaxActiveUsd: 1\naccess: {usdPerDay: 1}\nplans: [{id: a, usdtAmount: 1, percentage: 1, days: 1, currencies: [USDT]}]"},
		{"no plans", "plexPriceUsd: 1\nmaxActiveUsd: 1\naccess: {usdPerDay: 1}"},
		{"duplicate id", "plexPriceUsd: 1\nmaxActiveUsd: 1\naccess: {usdPerDay: 1}\nplans: [{id: a, usdtAmount: 1, percentage: 1, days: 1, currencies: [USDT]}, {id: a, usdtAmount: 2, percentage: 1, days: 1, currencies: [USDT]}]"},
		{"unknown currency", "plexPriceUsd: 1\nmaxActiveUsd: 1\naccess: {usdPerDay: 1}\nplans: [{id: a, usdtAmount: 1, percentage: 1, days: 1, currencies: [BTC]}]"},
		{"missing target", "plexPriceUsd: 1\nmaxActiveUsd: 1\naccess: {usdPerDay: 1}\nplans: [{id: a, usdtAmount: 1, percentage: 1, days: 1, currencies: [PLEX]}]"},
		{"zero days", "plexPriceUsd: 1\nmaxActiveUsd: 1\naccess: {usdPerDay: 1}\nplans: [{id: a, usdtAmount: 1, percentage: 1, days: 0, currencies: [USDT]}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.Plans, 14)

	path := filepath.Join(t.TempDir(), "plans.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validCatalog), 0o644))

	c, err = LoadCatalog(path)
	require.NoError(t, err)
	assert.Len(t, c.Plans, 2)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
