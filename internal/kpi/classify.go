package kpi

// Severity is a KPI's urgency level.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Band is the threshold band an observed value falls into.
type Band string

const (
	BandGreen  Band = "green"
	BandYellow Band = "yellow"
	BandRed    Band = "red"
)

// Classification is the display outcome for one KPI code's observed volume.
type Classification struct {
	Code     string
	Name     string
	Count    int
	Value    float64 // count, or percentage of total for percentage-mode codes
	Severity Severity
	Band     Band
}

// bandSeverity maps the observed band to the severity shown for it. The
// category's own severity describes the rule; the band describes how far
// past its thresholds the observation is.
func bandSeverity(b Band) Severity {
	switch b {
	case BandGreen:
		return SeverityLow
	case BandYellow:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// Classify maps a KPI code and its observed count to a severity band.
// Percentage-mode codes normalize count against total first (total 0 reads
// as 0%). Boundaries are inclusive on the low side: value <= green is
// green, green < value <= yellow is yellow, above yellow is red.
func (c *Catalog) Classify(code string, count, total int) Classification {
	cat := c.Lookup(code)

	value := float64(count)
	if cat.Percentage {
		if total > 0 {
			value = float64(count) / float64(total) * 100
		} else {
			value = 0
		}
	}

	band := BandRed
	switch {
	case value <= cat.Thresholds.Green:
		band = BandGreen
	case value <= cat.Thresholds.Yellow:
		band = BandYellow
	}

	return Classification{
		Code:     code,
		Name:     cat.Name,
		Count:    count,
		Value:    value,
		Severity: bandSeverity(band),
		Band:     band,
	}
}
