package deposits

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed plans.yaml
var defaultCatalogYAML []byte

// Currency is a token accepted for payments
type Currency string

const (
	CurrencyPLEX Currency = "PLEX"
	CurrencyUSDT Currency = "USDT"
)

// Plan is a deposit plan
type Plan struct {
	ID          string     `yaml:"id" json:"id"`
	Name        string     `yaml:"name" json:"name"`
	Title       string     `yaml:"title" json:"title"`
	PlexAmount  float64    `yaml:"plexAmount" json:"plexAmount"`
	USDTAmount  float64    `yaml:"usdtAmount" json:"usdtAmount"`
	Percentage  float64    `yaml:"percentage" json:"percentage"`
	Days        int        `yaml:"days" json:"days"`
	Order       int        `yaml:"order" json:"order"`
	Currencies  []Currency `yaml:"currencies" json:"currencies"`
	Description string     `yaml:"description" json:"description"`
}

// Accepts reports whether the plan can be paid in currency
func (p *Plan) Accepts(currency Currency) bool {
	for _, c := range p.Currencies {
		if c == currency {
			return true
		}
	}
	return false
}

// Target returns the exact amount the plan expects in currency
func (p *Plan) Target(currency Currency) float64 {
	if currency == CurrencyPLEX {
		return p.PlexAmount
	}
	return p.USDTAmount
}

// TotalReturn is what an investment of invested USD pays back at the end of the plan
func (p *Plan) TotalReturn(invested float64) float64 {
	return invested * p.Percentage / 100
}

// Profit is TotalReturn minus the investment
func (p *Plan) Profit(invested float64) float64 {
	return p.TotalReturn(invested) - invested
}

// AuthorizationRule describes the one-off payment that authorizes a wallet
type AuthorizationRule struct {
	AmountPLEX float64 `yaml:"amountPlex" json:"amountPlex"`
}

// AccessRule describes access (subscription) payments
type AccessRule struct {
	MinUSDT   float64 `yaml:"minUsdt" json:"minUsdt"`
	MaxUSDT   float64 `yaml:"maxUsdt" json:"maxUsdt"`
	USDPerDay float64 `yaml:"usdPerDay" json:"usdPerDay"`
}

// Catalog holds the deposit plans and payment rules
type Catalog struct {
	Tolerance     float64           `yaml:"tolerance" json:"tolerance"`
	PlexPriceUSD  float64           `yaml:"plexPriceUsd" json:"plexPriceUsd"`
	MaxActiveUSD  float64           `yaml:"maxActiveUsd" json:"maxActiveUsd"`
	MinDepositUSD float64           `yaml:"minDepositUsd" json:"minDepositUsd"`
	Authorization AuthorizationRule `yaml:"authorization" json:"authorization"`
	Access        AccessRule        `yaml:"access" json:"access"`
	Plans         []Plan            `yaml:"plans" json:"plans"`
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded plan catalog: %v", err))
	}
	return c
}

// LoadCatalog reads a catalog file; an empty path returns the built-in catalog
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plans file: %w", err)
	}
	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("invalid plans file %s: %w", path, err)
	}
	return c, nil
}

// ParseCatalog decodes and validates a YAML catalog. Plans are sorted by order.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	sort.SliceStable(c.Plans, func(i, j int) bool {
		return c.Plans[i].Order < c.Plans[j].Order
	})
	return &c, nil
}

func (c *Catalog) validate() error {
	if c.Tolerance < 0 || c.Tolerance >= 1 {
		return errors.New("tolerance must be in [0, 1)")
	}
	if c.PlexPriceUSD <= 0 {
		return errors.New("plexPriceUsd must be positive")
	}
	if c.MaxActiveUSD <= 0 {
		return errors.New("maxActiveUsd must be positive")
	}
	if c.Access.USDPerDay <= 0 {
		return errors.New("access.usdPerDay must be positive")
	}
	if c.Access.MaxUSDT < c.Access.MinUSDT {
		return errors.New("access.maxUsdt must not be below access.minUsdt")
	}
	if len(c.Plans) == 0 {
		return errors.New("at least one plan is required")
	}

	ids := make(map[string]bool)
	for i, p := range c.Plans {
		if p.ID == "" {
			return fmt.Errorf("plan[%d]: id is required", i)
		}
		if ids[p.ID] {
			return fmt.Errorf("plan[%d]: duplicate id '%s'", i, p.ID)
		}
		ids[p.ID] = true

		if p.Days <= 0 {
			return fmt.Errorf("plan '%s': days must be positive", p.ID)
		}
		if p.Percentage <= 0 {
			return fmt.Errorf("plan '%s': percentage must be positive", p.ID)
		}
		if len(p.Currencies) == 0 {
			return fmt.Errorf("plan '%s': at least one currency is required", p.ID)
		}
		for _, cur := range p.Currencies {
			if cur != CurrencyPLEX && cur != CurrencyUSDT {
				return fmt.Errorf("plan '%s': unknown currency '%s'", p.ID, cur)
			}
			if p.Target(cur) <= 0 {
				return fmt.Errorf("plan '%s': %s amount must be positive", p.ID, cur)
			}
		}
	}
	return nil
}

// WithinTolerance reports whether amount is within the catalog tolerance of target
func (c *Catalog) WithinTolerance(amount, target float64) bool {
	return math.Abs(amount-target) <= target*c.Tolerance+1e-9
}

// Match finds the first plan, by order, that accepts currency and whose target is within
// tolerance of amount
func (c *Catalog) Match(amount float64, currency Currency) (*Plan, bool) {
	for i := range c.Plans {
		p := &c.Plans[i]
		if p.Accepts(currency) && c.WithinTolerance(amount, p.Target(currency)) {
			return p, true
		}
	}
	return nil, false
}

// Plan returns the plan with the given id
func (c *Catalog) Plan(id string) (*Plan, bool) {
	for i := range c.Plans {
		if c.Plans[i].ID == id {
			return &c.Plans[i], true
		}
	}
	return nil, false
}
