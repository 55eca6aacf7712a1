// Package model defines the opportunity record shape shared by the loader,
// metrics, and change-detection layers.
package model

import "time"

// Unassigned is the sentinel responsible for records exported without one.
const Unassigned = "Unassigned"

// UnknownMarket is the sentinel market for records exported without one.
const UnknownMarket = "Unknown"

// Opportunity is one row of a Salesforce opportunity export, normalized at
// load time: dates parsed (nil when unparseable), USD coerced to 0 when
// non-numeric, empty responsible defaulted to Unassigned. Records are never
// mutated after loading; derived values live in metrics.Derived.
type Opportunity struct {
	ID             string     `json:"id"`
	Link           string     `json:"link,omitempty"`
	KPI            string     `json:"kpi,omitempty"` // data-quality code, empty = no issue
	Responsible    string     `json:"responsible"`
	Region         string     `json:"region,omitempty"`
	Market         string     `json:"market"`
	Site           string     `json:"site,omitempty"`
	USD            float64    `json:"usd"`
	SiterraProject string     `json:"siterra_project,omitempty"`
	Customer       string     `json:"customer,omitempty"`
	Product        string     `json:"product,omitempty"`
	Stage          string     `json:"stage"`
	CreatedDate    *time.Time `json:"created_date,omitempty"`
	CloseDate      *time.Time `json:"close_date,omitempty"`
	Revision       string     `json:"revision,omitempty"`
	Description    string     `json:"description,omitempty"`
}

// Snapshot is one loaded export: an ordered record list with an id index.
// Duplicate ids within a file keep the first occurrence only.
type Snapshot struct {
	Records []Opportunity

	byID map[string]int
}

// NewSnapshot builds a snapshot from records, indexing by id. Records whose
// id repeats an earlier one are dropped.
func NewSnapshot(records []Opportunity) *Snapshot {
	s := &Snapshot{
		Records: make([]Opportunity, 0, len(records)),
		byID:    make(map[string]int, len(records)),
	}
	for _, r := range records {
		if _, dup := s.byID[r.ID]; dup {
			continue
		}
		s.byID[r.ID] = len(s.Records)
		s.Records = append(s.Records, r)
	}
	return s
}

// Len returns the number of distinct records in the snapshot.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Records)
}

// Get returns the record with the given id, map-lookup style.
func (s *Snapshot) Get(id string) (*Opportunity, bool) {
	if s == nil {
		return nil, false
	}
	i, ok := s.byID[id]
	if !ok {
		return nil, false
	}
	return &s.Records[i], true
}

// Has reports whether the snapshot contains the given id.
func (s *Snapshot) Has(id string) bool {
	if s == nil {
		return false
	}
	_, ok := s.byID[id]
	return ok
}

// IDs returns the snapshot's ids in record order.
func (s *Snapshot) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, len(s.Records))
	for i := range s.Records {
		ids[i] = s.Records[i].ID
	}
	return ids
}

// TotalUSD sums USD across all records. Missing amounts were coerced to 0 at
// load, so they count as zeros rather than being excluded.
func (s *Snapshot) TotalUSD() float64 {
	if s == nil {
		return 0
	}
	var total float64
	for i := range s.Records {
		total += s.Records[i].USD
	}
	return total
}
