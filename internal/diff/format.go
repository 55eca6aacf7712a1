package diff

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// NullDisplay is the rendering of an absent value in reports.
const NullDisplay = "N/A"

var usdPrinter = message.NewPrinter(language.English)

// ChangeRowHeader names the columns of ChangeRows output.
var ChangeRowHeader = []string{"Id", "Field", "Old", "New", "Type", "Responsible", "Market"}

// ChangeRows returns the field-level changes in tabular form, one row per
// change, columns per ChangeRowHeader.
func (r *Result) ChangeRows() [][]string {
	rows := make([][]string, 0, len(r.Changes))
	for _, ch := range r.Changes {
		rows = append(rows, []string{
			ch.OpportunityID,
			string(ch.Field),
			ch.OldDisplay,
			ch.NewDisplay,
			string(ch.Type),
			ch.Responsible,
			ch.Market,
		})
	}
	return rows
}

// Display renders a field value for reports: "N/A" for nulls, dates as
// YYYY-MM-DD, amounts with thousands separators and two decimals.
func Display(val any, null bool) string {
	if null || val == nil {
		return NullDisplay
	}
	switch v := val.(type) {
	case time.Time:
		return v.Format("2006-01-02")
	case float64:
		return usdPrinter.Sprintf("%.2f", v)
	default:
		return fmt.Sprint(v)
	}
}
