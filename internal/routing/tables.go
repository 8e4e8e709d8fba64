package routing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"reimbly/pkg/domain"
)

// Approver roles referenced by routes, in escalation order.
const (
	RoleDirectManager  = "direct_manager"
	RoleDepartmentHead = "department_head"
	RoleFinance        = "finance"
	RoleExecutive      = "executive"
)

// OrgExecutive is the reserved organization value whose requests always take
// the full approval chain.
const OrgExecutive = "executive"

// Tier names a routing tier. Higher tiers include every approver of the tiers
// below them.
type Tier string

const (
	TierLow       Tier = "low"
	TierMedium    Tier = "medium"
	TierHigh      Tier = "high"
	TierExecutive Tier = "executive"
)

// Table is the static policy data consumed by the router: amount thresholds,
// tier approver chains, per-category limits, and required attachment types.
// Loaded once at process start; read-only afterwards.
type Table struct {
	// Thresholds are the tier upper bounds. An amount exactly at a bound
	// belongs to that tier (<=, not <).
	Thresholds struct {
		Low    float64 `yaml:"low"`
		Medium float64 `yaml:"medium"`
		High   float64 `yaml:"high"`
	} `yaml:"thresholds"`

	// TravelExecutiveAbove forces the executive chain for travel expenses
	// strictly above this amount, regardless of tier.
	TravelExecutiveAbove float64 `yaml:"travel_executive_above"`

	// Routes maps each tier to its ordered approver chain.
	Routes map[Tier][]string `yaml:"routes"`

	// CategoryLimits caps the amount per category. Zero means no limit.
	CategoryLimits map[domain.Category]float64 `yaml:"category_limits"`

	// RequiredAttachments lists the attachment types a submission must carry
	// per category.
	RequiredAttachments map[domain.Category][]string `yaml:"required_attachments"`
}

// DefaultTable returns the compiled-in policy data.
func DefaultTable() *Table {
	t := &Table{
		TravelExecutiveAbove: 2000,
		Routes: map[Tier][]string{
			TierLow:       {RoleDirectManager},
			TierMedium:    {RoleDirectManager, RoleDepartmentHead},
			TierHigh:      {RoleDirectManager, RoleDepartmentHead, RoleFinance},
			TierExecutive: {RoleDirectManager, RoleDepartmentHead, RoleFinance, RoleExecutive},
		},
		CategoryLimits: map[domain.Category]float64{
			domain.CategoryTravel:   10000,
			domain.CategoryMeals:    100,
			domain.CategorySupplies: 1000,
			domain.CategoryLodging:  7500,
			domain.CategoryOther:    5000,
		},
		RequiredAttachments: map[domain.Category][]string{
			domain.CategoryTravel:   {"receipt", "itinerary"},
			domain.CategoryMeals:    {"receipt"},
			domain.CategorySupplies: {"receipt", "invoice"},
			domain.CategoryLodging:  {"receipt"},
			domain.CategoryOther:    {"receipt"},
		},
	}
	t.Thresholds.Low = 1000
	t.Thresholds.Medium = 5000
	t.Thresholds.High = 10000
	return t
}

// LoadTable reads a policy table from a YAML file, falling back to defaults
// for any section the file omits. Empty path returns the defaults.
func LoadTable(path string) (*Table, error) {
	table := DefaultTable()
	if path == "" {
		return table, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(raw, table); err != nil {
		return nil, fmt.Errorf("parse policy file: %w", err)
	}
	if err := table.validate(); err != nil {
		return nil, fmt.Errorf("invalid policy file %s: %w", path, err)
	}
	return table, nil
}

func (t *Table) validate() error {
	if !(t.Thresholds.Low <= t.Thresholds.Medium && t.Thresholds.Medium <= t.Thresholds.High) {
		return fmt.Errorf("thresholds must be ascending: low=%v medium=%v high=%v",
			t.Thresholds.Low, t.Thresholds.Medium, t.Thresholds.High)
	}
	for _, tier := range []Tier{TierLow, TierMedium, TierHigh, TierExecutive} {
		if len(t.Routes[tier]) == 0 {
			return fmt.Errorf("tier %s has no approver chain", tier)
		}
	}
	return nil
}

// Limit returns the amount cap for a category, ok=false when uncapped.
func (t *Table) Limit(category domain.Category) (float64, bool) {
	limit, ok := t.CategoryLimits[category]
	return limit, ok && limit > 0
}

// RequiredTypes returns the attachment types a category demands.
func (t *Table) RequiredTypes(category domain.Category) []string {
	return t.RequiredAttachments[category]
}
