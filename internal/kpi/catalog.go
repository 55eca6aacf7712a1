// Package kpi maps data-cleansing KPI codes to metadata and classifies
// observed volumes into severity bands for display.
package kpi

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Thresholds holds the green/yellow band boundaries for one KPI code. The
// red band is everything above yellow.
type Thresholds struct {
	Green  float64 `yaml:"green"`
	Yellow float64 `yaml:"yellow"`
}

// Category is the static metadata attached to one KPI code.
type Category struct {
	Code        string     `yaml:"code"`
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Type        string     `yaml:"type"`
	Severity    Severity   `yaml:"severity"`
	Thresholds  Thresholds `yaml:"thresholds"`
	Percentage  bool       `yaml:"percentage"` // thresholds apply to % of total, not absolute count
}

// defaultThresholds is the band applied to codes absent from the catalog.
var defaultThresholds = Thresholds{Green: 15, Yellow: 50}

// defaultCategories is the built-in data-cleansing catalog.
var defaultCategories = []Category{
	{
		Code: "DC001 NB", Name: "Aging Control (NB)",
		Description: "Opportunities Created >9 months (revision 0 only)",
		Type:        "aging", Severity: SeverityHigh,
		Thresholds: Thresholds{Green: 10, Yellow: 15}, Percentage: true,
	},
	{
		Code: "DC001 CHURN", Name: "Aging Control (Churn)",
		Description: "Opportunities Created >12 months (revision 0 only)",
		Type:        "aging", Severity: SeverityHigh,
		Thresholds: Thresholds{Green: 100, Yellow: 500},
	},
	{
		Code: "DC002 NB", Name: "Expired Opportunities (NB)",
		Description: "Forecast date older than current month closure (follows exchange rate calendar)",
		Type:        "expired", Severity: SeverityHigh,
		Thresholds: Thresholds{Green: 15, Yellow: 50},
	},
	{
		Code: "DC002 CHURN", Name: "Expired Opportunities (Churn)",
		Description: "Forecast date older than current month closure (follows full month)",
		Type:        "expired", Severity: SeverityMedium,
		Thresholds: Thresholds{Green: 15, Yellow: 50},
	},
	{
		Code: "DC003", Name: "On Hold",
		Description: "On hold opportunities (all revisions)",
		Type:        "operational", Severity: SeverityMedium,
		Thresholds: Thresholds{Green: 0.5, Yellow: 1}, Percentage: true,
	},
	{
		Code: "DC004", Name: "Reported to Finance w/o Revenue",
		Description: "Opportunities without revenue should go straight to ready to bill",
		Type:        "data_quality", Severity: SeverityLow,
		Thresholds: Thresholds{Green: 50, Yellow: 100},
	},
	{
		Code: "DC005", Name: "Conversion w/o Sales Process",
		Description: "Opportunities converted faster than the minimum sales cycle, created in the last 30 days",
		Type:        "process", Severity: SeverityMedium,
		Thresholds: Thresholds{Green: 1.5, Yellow: 3}, Percentage: true,
	},
	{
		Code: "DC007", Name: "Change Management",
		Description: "Opportunities created by other areas (not created by sales), last 30 days",
		Type:        "process", Severity: SeverityLow,
		Thresholds: Thresholds{Green: 5, Yellow: 10},
	},
	{
		Code: "DC008", Name: "Aging Reported to Finance",
		Description: "Opportunities with more than 30 days in Reported to Finance, excluding on hold",
		Type:        "aging", Severity: SeverityHigh,
		Thresholds: Thresholds{Green: 15, Yellow: 30},
	},
	{
		Code: "DC010", Name: "Amount Zero",
		Description: "Opportunities with Amount = 0, all revisions",
		Type:        "data_quality", Severity: SeverityHigh,
		Thresholds: Thresholds{Green: 0, Yellow: 15},
	},
	{
		Code: "DC011", Name: "Actual Roles & Responsibilities",
		Description: "Opportunities changed to Actual outside GBS, last 30 days",
		Type:        "process", Severity: SeverityLow,
		Thresholds: Thresholds{Green: 0, Yellow: 1},
	},
}

// Catalog resolves KPI codes to their categories.
type Catalog struct {
	byCode map[string]Category
	codes  []string
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	return newCatalog(defaultCategories)
}

// LoadCatalog returns the built-in catalog with entries overridden or added
// from a YAML file. Entries are matched by code.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "kpi: read catalog")
	}

	var overrides []Category
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, eris.Wrap(err, "kpi: parse catalog")
	}

	c := newCatalog(defaultCategories)
	for _, o := range overrides {
		if o.Code == "" {
			return nil, eris.New("kpi: catalog entry missing code")
		}
		if _, known := c.byCode[o.Code]; !known {
			c.codes = append(c.codes, o.Code)
		}
		c.byCode[o.Code] = o
	}
	return c, nil
}

func newCatalog(categories []Category) *Catalog {
	c := &Catalog{
		byCode: make(map[string]Category, len(categories)),
		codes:  make([]string, 0, len(categories)),
	}
	for _, cat := range categories {
		c.byCode[cat.Code] = cat
		c.codes = append(c.codes, cat.Code)
	}
	return c
}

// Lookup returns the category for code. Unlisted codes get a generic
// fallback category carrying the default thresholds.
func (c *Catalog) Lookup(code string) Category {
	if cat, ok := c.byCode[code]; ok {
		return cat
	}
	return Category{
		Code:       code,
		Name:       code,
		Type:       "unknown",
		Severity:   SeverityMedium,
		Thresholds: defaultThresholds,
	}
}

// Known reports whether code is listed in the catalog.
func (c *Catalog) Known(code string) bool {
	_, ok := c.byCode[code]
	return ok
}

// Codes returns all listed codes in catalog order.
func (c *Catalog) Codes() []string {
	return c.codes
}
