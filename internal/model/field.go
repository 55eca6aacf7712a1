package model

import "time"

// Field identifies a logical opportunity field. The change detector tracks a
// configurable subset of these; classification dispatches on the enum rather
// than on raw column-name strings so the known arms stay checkable.
type Field string

const (
	FieldStage       Field = "Stage"
	FieldResponsible Field = "Responsible"
	FieldUSD         Field = "USD"
	FieldCloseDate   Field = "CloseDate"
	FieldKPI         Field = "KPI"
	FieldMarket      Field = "Market"
	FieldCustomer    Field = "Customer"
	FieldProduct     Field = "Product"
	FieldCreatedDate Field = "CreatedDate"
)

// DefaultTrackedFields is the field set monitored for changes between
// snapshots unless overridden by configuration.
var DefaultTrackedFields = []Field{
	FieldStage,
	FieldResponsible,
	FieldUSD,
	FieldCloseDate,
	FieldKPI,
}

// ParseFields converts configured field names to Fields. Unknown names pass
// through unchanged; the detector skips fields it cannot read.
func ParseFields(names []string) []Field {
	fields := make([]Field, 0, len(names))
	for _, n := range names {
		fields = append(fields, Field(n))
	}
	return fields
}

// Value returns the typed value of the given field on o, and whether it is
// null (absent). Strings are null when empty, dates when nil. USD is never
// null: missing amounts were coerced to 0 at load by policy.
func (o *Opportunity) Value(f Field) (val any, null bool) {
	switch f {
	case FieldStage:
		return o.Stage, o.Stage == ""
	case FieldResponsible:
		return o.Responsible, o.Responsible == ""
	case FieldUSD:
		return o.USD, false
	case FieldCloseDate:
		return dateValue(o.CloseDate)
	case FieldCreatedDate:
		return dateValue(o.CreatedDate)
	case FieldKPI:
		return o.KPI, o.KPI == ""
	case FieldMarket:
		return o.Market, o.Market == ""
	case FieldCustomer:
		return o.Customer, o.Customer == ""
	case FieldProduct:
		return o.Product, o.Product == ""
	default:
		return nil, true
	}
}

func dateValue(t *time.Time) (any, bool) {
	if t == nil {
		return nil, true
	}
	return *t, false
}
