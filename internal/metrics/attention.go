package metrics

import (
	"sort"
	"strings"
	"time"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

// AlertReason labels why a record needs attention.
type AlertReason string

const (
	ReasonOverdue  AlertReason = "OVERDUE"
	ReasonDueSoon  AlertReason = "DUE_SOON"
	ReasonStagnant AlertReason = "STAGNANT"
)

// Alert is one record flagged for follow-up, with the derived flags that
// triggered it.
type Alert struct {
	Opportunity model.Opportunity `json:"opportunity"`
	Derived     Derived           `json:"derived"`
	Reasons     []AlertReason     `json:"reasons"`
}

// Reason renders the reasons as a single space-joined string.
func (a Alert) Reason() string {
	parts := make([]string, len(a.Reasons))
	for i, r := range a.Reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, " ")
}

// NeedsAttention returns the records that are overdue, due soon, or stagnant.
// A record past its close date is OVERDUE; one closing within the warning
// window is DUE_SOON; STAGNANT is appended when it also applies. Results are
// ordered most urgent first: days to close ascending with unknown close dates
// last, then days since creation descending.
func (c *Calculator) NeedsAttention(snap *model.Snapshot, now time.Time) []Alert {
	if snap == nil {
		return nil
	}

	var alerts []Alert
	for i := range snap.Records {
		o := &snap.Records[i]
		d := c.Derive(o, now)

		var reasons []AlertReason
		switch {
		case d.Overdue():
			reasons = append(reasons, ReasonOverdue)
		case d.AtRisk:
			reasons = append(reasons, ReasonDueSoon)
		}
		if d.Stagnant {
			reasons = append(reasons, ReasonStagnant)
		}
		if len(reasons) == 0 {
			continue
		}
		alerts = append(alerts, Alert{Opportunity: *o, Derived: d, Reasons: reasons})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		di, dj := alerts[i].Derived, alerts[j].Derived
		switch {
		case di.DaysToClose != nil && dj.DaysToClose != nil:
			if *di.DaysToClose != *dj.DaysToClose {
				return *di.DaysToClose < *dj.DaysToClose
			}
		case di.DaysToClose != nil:
			return true
		case dj.DaysToClose != nil:
			return false
		}
		ci := daysOrZero(di.DaysSinceCreation)
		cj := daysOrZero(dj.DaysSinceCreation)
		return ci > cj
	})
	return alerts
}

func daysOrZero(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
