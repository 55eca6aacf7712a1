// Package metrics derives per-record aging flags and aggregate summaries
// from one opportunity snapshot.
package metrics

import (
	"math"
	"time"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

// Default aging thresholds, in days.
const (
	DefaultStagnantDays = 30
	DefaultWarningDays  = 7
)

// Calculator computes derived flags and aggregates. It holds read-only
// configuration only, so one instance is safe to share across goroutines.
type Calculator struct {
	stagnantDays int
	warningDays  int
	ranker       *model.StageRanker
}

// NewCalculator returns a Calculator. Non-positive thresholds fall back to
// the defaults; a nil ranker uses the default stage order.
func NewCalculator(stagnantDays, warningDays int, ranker *model.StageRanker) *Calculator {
	if stagnantDays <= 0 {
		stagnantDays = DefaultStagnantDays
	}
	if warningDays <= 0 {
		warningDays = DefaultWarningDays
	}
	if ranker == nil {
		ranker = model.NewStageRanker(nil)
	}
	return &Calculator{
		stagnantDays: stagnantDays,
		warningDays:  warningDays,
		ranker:       ranker,
	}
}

// Derived holds per-record flags computed against a reference instant.
// Day counts are nil when the underlying date is absent; a record without a
// creation date is never stagnant and one without a close date never at risk.
type Derived struct {
	DaysSinceCreation *int
	DaysToClose       *int
	Stagnant          bool
	AtRisk            bool
}

// Overdue reports whether the close date has already passed.
func (d Derived) Overdue() bool {
	return d.DaysToClose != nil && *d.DaysToClose < 0
}

// Derive computes the aging flags for one record at the given instant.
// Stagnant is strict: a record created exactly stagnantDays ago is not yet
// stagnant.
func (c *Calculator) Derive(o *model.Opportunity, now time.Time) Derived {
	var d Derived
	if o.CreatedDate != nil {
		days := floorDays(now.Sub(*o.CreatedDate))
		d.DaysSinceCreation = &days
		d.Stagnant = days > c.stagnantDays
	}
	if o.CloseDate != nil {
		days := floorDays(o.CloseDate.Sub(now))
		d.DaysToClose = &days
		d.AtRisk = days < c.warningDays
	}
	return d
}

// floorDays converts a duration to whole days, rounding toward negative
// infinity so a close date one hour in the past reads as -1 days.
func floorDays(d time.Duration) int {
	return int(math.Floor(d.Hours() / 24))
}

// Summary is the flat aggregate view of one snapshot.
type Summary struct {
	TotalOpportunities int            `json:"total_opportunities"`
	TotalUSD           float64        `json:"total_usd"`
	AvgUSD             float64        `json:"avg_usd"`
	UniqueResponsibles int            `json:"unique_responsibles"`
	UniqueMarkets      int            `json:"unique_markets"`
	UniqueCustomers    int            `json:"unique_customers"`
	StagnantCount      int            `json:"stagnant_count"`
	AtRiskCount        int            `json:"at_risk_count"`
	ByKPI              map[string]int `json:"by_kpi"`
	ByStage            map[string]int `json:"by_stage"`
	ByMarket           map[string]int `json:"by_market"`
}

// Summarize computes the snapshot-level aggregates at the given instant.
// An empty snapshot yields zeroed aggregates; the USD mean is 0, not NaN.
func (c *Calculator) Summarize(snap *model.Snapshot, now time.Time) Summary {
	s := Summary{
		ByKPI:    map[string]int{},
		ByStage:  map[string]int{},
		ByMarket: map[string]int{},
	}
	if snap == nil {
		return s
	}

	responsibles := map[string]struct{}{}
	markets := map[string]struct{}{}
	customers := map[string]struct{}{}

	for i := range snap.Records {
		o := &snap.Records[i]
		s.TotalOpportunities++
		s.TotalUSD += o.USD

		if o.Responsible != "" {
			responsibles[o.Responsible] = struct{}{}
		}
		if o.Market != "" {
			markets[o.Market] = struct{}{}
			s.ByMarket[o.Market]++
		}
		if o.Customer != "" {
			customers[o.Customer] = struct{}{}
		}
		if o.KPI != "" {
			s.ByKPI[o.KPI]++
		}
		if o.Stage != "" {
			s.ByStage[o.Stage]++
		}

		d := c.Derive(o, now)
		if d.Stagnant {
			s.StagnantCount++
		}
		if d.AtRisk {
			s.AtRiskCount++
		}
	}

	s.UniqueResponsibles = len(responsibles)
	s.UniqueMarkets = len(markets)
	s.UniqueCustomers = len(customers)
	if s.TotalOpportunities > 0 {
		s.AvgUSD = s.TotalUSD / float64(s.TotalOpportunities)
	}
	return s
}
