package model

// DefaultStageOrder is the sales process sequence used to rank stage
// transitions. Moving to a later index is an advance, to an earlier one a
// regression. Stages not in the sequence are unranked.
var DefaultStageOrder = []string{
	"Identify the opportunity",
	"Customer Analysis",
	"NDD/RFI",
	"NTP/RFI",
	"Application approved",
	"Financial Analysis",
	"Work Needs Analysis",
	"Tenant Lease",
	"Ground Lease Agreement",
	"TLA Signature",
	"Client Approval",
	"Work Execution",
	"Construction",
	"Service Delivery Analysis",
	"Ready to Bill",
	"Reported to Finance",
	"Proceed with Billing Changes",
	"Equipment Removal",
	"Customer Notification",
	"Cancelado",
}

// StageRanker resolves stages to their position in an ordered sequence.
type StageRanker struct {
	order []string
	rank  map[string]int
}

// NewStageRanker builds a ranker over the given sequence. A nil or empty
// sequence falls back to DefaultStageOrder.
func NewStageRanker(order []string) *StageRanker {
	if len(order) == 0 {
		order = DefaultStageOrder
	}
	r := &StageRanker{
		order: order,
		rank:  make(map[string]int, len(order)),
	}
	for i, s := range order {
		r.rank[s] = i
	}
	return r
}

// Rank returns the position of stage in the sequence, or false when the
// stage is unknown.
func (r *StageRanker) Rank(stage string) (int, bool) {
	i, ok := r.rank[stage]
	return i, ok
}

// Order returns the ranked sequence.
func (r *StageRanker) Order() []string {
	return r.order
}
