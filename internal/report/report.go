// Package report renders analysis results as Excel workbooks, an HTML
// executive summary, and a PNG status card.
package report

import (
	"time"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/diff"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/kpi"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/metrics"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

// Data is everything the renderers need for one analysis run. Diff is nil
// when there was no previous snapshot to compare against.
type Data struct {
	GeneratedAt   time.Time
	DataFile      string
	Snapshot      *model.Snapshot
	Summary       metrics.Summary
	ByResponsible []metrics.ResponsibleMetrics
	ByMarket      []metrics.MarketMetrics
	Stages        []metrics.StageBucket
	Alerts        []metrics.Alert
	KPIs          []kpi.Classification
	Diff          *diff.Result
}

// timestamp formats the run time for artifact file names.
func (d *Data) timestamp() string {
	return d.GeneratedAt.Format("20060102_150405")
}
