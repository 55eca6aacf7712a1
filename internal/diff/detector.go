// Package diff detects record-level changes between two opportunity
// snapshots and classifies what kind of business event each change
// represents.
package diff

import (
	"time"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

// ChangeType classifies a single field-level change.
type ChangeType string

const (
	ChangeStageAdvance  ChangeType = "stage_advance"
	ChangeStageRegress  ChangeType = "stage_regress"
	ChangeStageChange   ChangeType = "stage_change"
	ChangeValueIncrease ChangeType = "value_increase"
	ChangeValueDecrease ChangeType = "value_decrease"
	ChangeReassignment  ChangeType = "reassignment"
	ChangeReschedule    ChangeType = "reschedule"
	ChangeModified      ChangeType = "modified"
)

// Change records one tracked field differing between snapshots for one
// opportunity. Old and New hold the raw typed values (string, float64,
// time.Time, or nil when absent); OldDisplay and NewDisplay are the
// human-readable renderings used in reports. Responsible and Market come
// from the current snapshot's record.
type Change struct {
	OpportunityID string     `json:"opportunity_id"`
	Field         model.Field `json:"field"`
	Old           any        `json:"old"`
	New           any        `json:"new"`
	OldDisplay    string     `json:"old_display"`
	NewDisplay    string     `json:"new_display"`
	Type          ChangeType `json:"type"`
	Responsible   string     `json:"responsible"`
	Market        string     `json:"market"`
}

// Summary aggregates one comparison.
type Summary struct {
	CurrentTotal   int                `json:"current_total"`
	PreviousTotal  int                `json:"previous_total"`
	NewCount       int                `json:"new_count"`
	RemovedCount   int                `json:"removed_count"`
	ChangedCount   int                `json:"changed_count"`
	UnchangedCount int                `json:"unchanged_count"`
	TotalChanges   int                `json:"total_changes"`
	NewUSD         float64            `json:"new_usd"`
	RemovedUSD     float64            `json:"removed_usd"`
	CurrentUSD     float64            `json:"current_usd"`
	PreviousUSD    float64            `json:"previous_usd"`
	USDDelta       float64            `json:"usd_delta"`
	ByType         map[ChangeType]int `json:"by_type"`
	ByResponsible  map[string]int     `json:"by_responsible"`
	ByMarket       map[string]int     `json:"by_market"`
}

// Result is the outcome of comparing a current snapshot against a previous
// one. New and Removed carry the full records; Changes carries field-level
// diffs for records present in both.
type Result struct {
	New        []model.Opportunity `json:"new"`
	Removed    []model.Opportunity `json:"removed"`
	Changes    []Change            `json:"changes"`
	Unchanged  int                 `json:"unchanged"`
	Summary    Summary             `json:"summary"`
	ComparedAt time.Time           `json:"compared_at"`
}

// Detector compares snapshots over a configurable tracked field set.
type Detector struct {
	tracked []model.Field
	ranker  *model.StageRanker
}

// NewDetector returns a Detector. Nil tracked fields fall back to the
// default set; a nil ranker uses the default stage order.
func NewDetector(tracked []model.Field, ranker *model.StageRanker) *Detector {
	if len(tracked) == 0 {
		tracked = model.DefaultTrackedFields
	}
	if ranker == nil {
		ranker = model.NewStageRanker(nil)
	}
	return &Detector{tracked: tracked, ranker: ranker}
}

// Compare diffs current against previous. Records only in current are new,
// records only in previous are removed, and records in both are compared
// field by field over the tracked set. Common records are visited in current
// snapshot order so results are deterministic.
func (d *Detector) Compare(current, previous *model.Snapshot) *Result {
	res := &Result{
		ComparedAt: time.Now().UTC(),
		Summary: Summary{
			ByType:        map[ChangeType]int{},
			ByResponsible: map[string]int{},
			ByMarket:      map[string]int{},
		},
	}
	if current == nil {
		current = model.NewSnapshot(nil)
	}
	if previous == nil {
		previous = model.NewSnapshot(nil)
	}

	for i := range current.Records {
		cur := &current.Records[i]
		prev, ok := previous.Get(cur.ID)
		if !ok {
			res.New = append(res.New, *cur)
			res.Summary.NewUSD += cur.USD
			continue
		}

		changes := d.compareRecord(cur, prev)
		if len(changes) == 0 {
			res.Unchanged++
			continue
		}
		res.Changes = append(res.Changes, changes...)
		res.Summary.ChangedCount++
		for _, ch := range changes {
			res.Summary.ByType[ch.Type]++
			res.Summary.ByResponsible[ch.Responsible]++
			res.Summary.ByMarket[ch.Market]++
		}
	}

	for i := range previous.Records {
		prev := &previous.Records[i]
		if !current.Has(prev.ID) {
			res.Removed = append(res.Removed, *prev)
			res.Summary.RemovedUSD += prev.USD
		}
	}

	res.Summary.NewCount = len(res.New)
	res.Summary.RemovedCount = len(res.Removed)
	res.Summary.UnchangedCount = res.Unchanged
	res.Summary.TotalChanges = len(res.Changes)
	res.Summary.CurrentTotal = current.Len()
	res.Summary.PreviousTotal = previous.Len()
	res.Summary.CurrentUSD = current.TotalUSD()
	res.Summary.PreviousUSD = previous.TotalUSD()
	res.Summary.USDDelta = res.Summary.CurrentUSD - res.Summary.PreviousUSD
	return res
}

// compareRecord diffs one record over the tracked field set, emitting one
// Change per differing field.
func (d *Detector) compareRecord(cur, prev *model.Opportunity) []Change {
	var changes []Change
	for _, f := range d.tracked {
		curVal, curNull := cur.Value(f)
		prevVal, prevNull := prev.Value(f)
		if valuesEqual(curVal, curNull, prevVal, prevNull) {
			continue
		}

		responsible := cur.Responsible
		if responsible == "" {
			responsible = model.Unassigned
		}
		market := cur.Market
		if market == "" {
			market = model.UnknownMarket
		}
		changes = append(changes, Change{
			OpportunityID: cur.ID,
			Field:         f,
			Old:           prevVal,
			New:           curVal,
			OldDisplay:    Display(prevVal, prevNull),
			NewDisplay:    Display(curVal, curNull),
			Type:          d.classify(f, prevVal, curVal),
			Responsible:   responsible,
			Market:        market,
		})
	}
	return changes
}

// valuesEqual compares two field values. Two nulls are equal, a null never
// equals a value, and dates compare at day granularity.
func valuesEqual(a any, aNull bool, b any, bNull bool) bool {
	if aNull || bNull {
		return aNull && bNull
	}
	at, aIsTime := a.(time.Time)
	bt, bIsTime := b.(time.Time)
	if aIsTime && bIsTime {
		ay, am, ad := at.Date()
		by, bm, bd := bt.Date()
		return ay == by && am == bm && ad == bd
	}
	return a == b
}

// classify maps a field change to its business event. Stage moves compare
// positions in the stage order; a move involving an unranked stage is a
// plain stage_change. Value comparisons only see non-equal amounts, so an
// old amount that is not less than the new one means a decrease.
func (d *Detector) classify(f model.Field, oldVal, newVal any) ChangeType {
	switch f {
	case model.FieldStage:
		oldStage, _ := oldVal.(string)
		newStage, _ := newVal.(string)
		oldRank, oldOK := d.ranker.Rank(oldStage)
		newRank, newOK := d.ranker.Rank(newStage)
		if !oldOK || !newOK {
			return ChangeStageChange
		}
		if newRank > oldRank {
			return ChangeStageAdvance
		}
		return ChangeStageRegress
	case model.FieldUSD:
		oldAmt, _ := oldVal.(float64)
		newAmt, _ := newVal.(float64)
		if newAmt > oldAmt {
			return ChangeValueIncrease
		}
		return ChangeValueDecrease
	case model.FieldResponsible:
		return ChangeReassignment
	case model.FieldCloseDate:
		return ChangeReschedule
	default:
		return ChangeModified
	}
}

// ChangesByResponsible groups field-level changes by the current record's
// responsible.
func (r *Result) ChangesByResponsible() map[string][]Change {
	out := map[string][]Change{}
	for _, ch := range r.Changes {
		out[ch.Responsible] = append(out[ch.Responsible], ch)
	}
	return out
}

// ChangesByMarket groups field-level changes by the current record's market.
func (r *Result) ChangesByMarket() map[string][]Change {
	out := map[string][]Change{}
	for _, ch := range r.Changes {
		out[ch.Market] = append(out[ch.Market], ch)
	}
	return out
}
