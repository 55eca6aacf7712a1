package metrics

import (
	"sort"
	"time"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

// ResponsibleMetrics aggregates one responsible's opportunities.
type ResponsibleMetrics struct {
	Name               string         `json:"name"`
	TotalOpportunities int            `json:"total_opportunities"`
	TotalUSD           float64        `json:"total_usd"`
	AvgUSD             float64        `json:"avg_usd"`
	Markets            []string       `json:"markets"`
	KPIs               map[string]int `json:"kpis"`
	Stages             map[string]int `json:"stages"`
	StagnantCount      int            `json:"stagnant_count"`
	AtRiskCount        int            `json:"at_risk_count"`
}

// MarketMetrics aggregates one market's opportunities.
type MarketMetrics struct {
	Name               string         `json:"name"`
	TotalOpportunities int            `json:"total_opportunities"`
	TotalUSD           float64        `json:"total_usd"`
	AvgUSD             float64        `json:"avg_usd"`
	Responsibles       []string       `json:"responsibles"`
	TopResponsible     string         `json:"top_responsible"`
	KPIs               map[string]int `json:"kpis"`
	Stages             map[string]int `json:"stages"`
	StagnantCount      int            `json:"stagnant_count"`
	AtRiskCount        int            `json:"at_risk_count"`
}

// StageBucket is one row of the pipeline stage distribution.
type StageBucket struct {
	Stage      string  `json:"stage"`
	Count      int     `json:"count"`
	TotalUSD   float64 `json:"total_usd"`
	AvgUSD     float64 `json:"avg_usd"`
	Percentage float64 `json:"percentage"`
}

// ByResponsible groups the snapshot per responsible, sorted by opportunity
// count descending and name ascending on ties. Records with an empty
// responsible fall under the Unassigned sentinel.
func (c *Calculator) ByResponsible(snap *model.Snapshot, now time.Time) []ResponsibleMetrics {
	if snap == nil {
		return nil
	}

	byName := map[string]*ResponsibleMetrics{}
	marketSets := map[string]map[string]struct{}{}
	for i := range snap.Records {
		o := &snap.Records[i]
		name := o.Responsible
		if name == "" {
			name = model.Unassigned
		}
		m := byName[name]
		if m == nil {
			m = &ResponsibleMetrics{
				Name:   name,
				KPIs:   map[string]int{},
				Stages: map[string]int{},
			}
			byName[name] = m
			marketSets[name] = map[string]struct{}{}
		}
		m.TotalOpportunities++
		m.TotalUSD += o.USD
		if o.Market != "" {
			marketSets[name][o.Market] = struct{}{}
		}
		if o.KPI != "" {
			m.KPIs[o.KPI]++
		}
		if o.Stage != "" {
			m.Stages[o.Stage]++
		}
		d := c.Derive(o, now)
		if d.Stagnant {
			m.StagnantCount++
		}
		if d.AtRisk {
			m.AtRiskCount++
		}
	}

	out := make([]ResponsibleMetrics, 0, len(byName))
	for name, m := range byName {
		m.AvgUSD = m.TotalUSD / float64(m.TotalOpportunities)
		m.Markets = sortedKeys(marketSets[name])
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalOpportunities != out[j].TotalOpportunities {
			return out[i].TotalOpportunities > out[j].TotalOpportunities
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// ByMarket groups the snapshot per market, including each market's
// most frequent responsible. Sorted like ByResponsible. Records with an
// empty market fall under the Unknown sentinel.
func (c *Calculator) ByMarket(snap *model.Snapshot, now time.Time) []MarketMetrics {
	if snap == nil {
		return nil
	}

	byName := map[string]*MarketMetrics{}
	respCounts := map[string]map[string]int{}
	for i := range snap.Records {
		o := &snap.Records[i]
		name := o.Market
		if name == "" {
			name = model.UnknownMarket
		}
		m := byName[name]
		if m == nil {
			m = &MarketMetrics{
				Name:   name,
				KPIs:   map[string]int{},
				Stages: map[string]int{},
			}
			byName[name] = m
			respCounts[name] = map[string]int{}
		}
		m.TotalOpportunities++
		m.TotalUSD += o.USD
		resp := o.Responsible
		if resp == "" {
			resp = model.Unassigned
		}
		respCounts[name][resp]++
		if o.KPI != "" {
			m.KPIs[o.KPI]++
		}
		if o.Stage != "" {
			m.Stages[o.Stage]++
		}
		d := c.Derive(o, now)
		if d.Stagnant {
			m.StagnantCount++
		}
		if d.AtRisk {
			m.AtRiskCount++
		}
	}

	out := make([]MarketMetrics, 0, len(byName))
	for name, m := range byName {
		m.AvgUSD = m.TotalUSD / float64(m.TotalOpportunities)
		m.Responsibles = sortedCountKeys(respCounts[name])
		m.TopResponsible = topKey(respCounts[name])
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalOpportunities != out[j].TotalOpportunities {
			return out[i].TotalOpportunities > out[j].TotalOpportunities
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// StageDistribution buckets the snapshot by pipeline stage, ordered by the
// canonical stage progression with unknown stages appended alphabetically.
// Percentage is each bucket's share of the snapshot record count.
func (c *Calculator) StageDistribution(snap *model.Snapshot) []StageBucket {
	if snap == nil || snap.Len() == 0 {
		return nil
	}

	byStage := map[string]*StageBucket{}
	for i := range snap.Records {
		o := &snap.Records[i]
		stage := o.Stage
		b := byStage[stage]
		if b == nil {
			b = &StageBucket{Stage: stage}
			byStage[stage] = b
		}
		b.Count++
		b.TotalUSD += o.USD
	}

	total := float64(snap.Len())
	out := make([]StageBucket, 0, len(byStage))
	for _, b := range byStage {
		b.AvgUSD = b.TotalUSD / float64(b.Count)
		b.Percentage = float64(b.Count) / total * 100
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iKnown := c.ranker.Rank(out[i].Stage)
		rj, jKnown := c.ranker.Rank(out[j].Stage)
		switch {
		case iKnown && jKnown:
			return ri < rj
		case iKnown:
			return true
		case jKnown:
			return false
		default:
			return out[i].Stage < out[j].Stage
		}
	})
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCountKeys(counts map[string]int) []string {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// topKey picks the highest-count key, breaking ties alphabetically.
func topKey(counts map[string]int) string {
	var best string
	bestCount := -1
	for k, n := range counts {
		if n > bestCount || (n == bestCount && k < best) {
			best, bestCount = k, n
		}
	}
	return best
}
