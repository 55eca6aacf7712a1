package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/diff"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/metrics"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

const usdFormat = "#,##0.00"

// ExcelRenderer writes analysis workbooks under an output directory.
type ExcelRenderer struct {
	outDir string
}

// NewExcelRenderer returns a renderer writing into outDir.
func NewExcelRenderer(outDir string) *ExcelRenderer {
	return &ExcelRenderer{outDir: outDir}
}

// Render writes the full analysis workbook and returns its path. The change
// sheets are only present when the run compared against a previous export.
func (r *ExcelRenderer) Render(data *Data) (string, error) {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, data); err != nil {
		return "", err
	}
	if err := addResponsibleSheet(f, data.ByResponsible); err != nil {
		return "", err
	}
	if err := addMarketSheet(f, data.ByMarket); err != nil {
		return "", err
	}
	if err := addKPISheet(f, data); err != nil {
		return "", err
	}
	if err := addStageSheet(f, data.Stages); err != nil {
		return "", err
	}
	if err := addAttentionSheet(f, data.Alerts); err != nil {
		return "", err
	}
	if data.Diff != nil {
		if err := addChangeSheets(f, data.Diff); err != nil {
			return "", err
		}
	}
	if err := addRecordsSheet(f, "Full_Data", data.Snapshot.Records); err != nil {
		return "", err
	}

	path := filepath.Join(r.outDir, fmt.Sprintf("kpi_report_%s.xlsx", data.timestamp()))
	if err := save(f, path); err != nil {
		return "", err
	}
	zap.L().Info("wrote analysis workbook", zap.String("file", path))
	return path, nil
}

// RenderPerResponsible writes one filtered workbook per responsible,
// concurrently. A failed workbook is logged and skipped rather than failing
// the batch. Returns the paths written.
func (r *ExcelRenderer) RenderPerResponsible(ctx context.Context, data *Data) ([]string, error) {
	dir := filepath.Join(r.outDir, "by_responsible")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "report: create %s", dir)
	}

	byResp := map[string][]model.Opportunity{}
	for _, o := range data.Snapshot.Records {
		name := o.Responsible
		if name == "" {
			name = model.Unassigned
		}
		byResp[name] = append(byResp[name], o)
	}
	var changes map[string][]diff.Change
	if data.Diff != nil {
		changes = data.Diff.ChangesByResponsible()
	}

	var mu sync.Mutex
	paths := make([]string, 0, len(byResp))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for name, records := range byResp {
		g.Go(func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			path := filepath.Join(dir, fmt.Sprintf("%s_%s.xlsx", slug(name), data.timestamp()))
			if err := renderResponsibleWorkbook(path, records, changes[name]); err != nil {
				zap.L().Error("responsible workbook failed",
					zap.String("responsible", name), zap.Error(err))
				return nil
			}
			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return paths, eris.Wrap(err, "report: per-responsible workbooks")
	}
	return paths, nil
}

func renderResponsibleWorkbook(path string, records []model.Opportunity, changes []diff.Change) error {
	f := xlsx.NewFile()
	if err := addRecordsSheet(f, "Opportunities", records); err != nil {
		return err
	}
	if len(changes) > 0 {
		sheet, err := addSheet(f, "Changes")
		if err != nil {
			return err
		}
		writeChangeRows(sheet, changes)
	}
	return save(f, path)
}

func addSummarySheet(f *xlsx.File, data *Data) error {
	sheet, err := addSheet(f, "Summary")
	if err != nil {
		return err
	}
	addHeader(sheet, "Metric", "Value")

	s := data.Summary
	addKV(sheet, "Generated", data.GeneratedAt.Format("2006-01-02 15:04:05"))
	addKV(sheet, "Source File", data.DataFile)
	addKVInt(sheet, "Total Opportunities", s.TotalOpportunities)
	addKVUSD(sheet, "Total USD", s.TotalUSD)
	addKVUSD(sheet, "Average USD", s.AvgUSD)
	addKVInt(sheet, "Responsibles", s.UniqueResponsibles)
	addKVInt(sheet, "Markets", s.UniqueMarkets)
	addKVInt(sheet, "Customers", s.UniqueCustomers)
	addKVInt(sheet, "Stagnant", s.StagnantCount)
	addKVInt(sheet, "At Risk", s.AtRiskCount)
	if data.Diff != nil {
		d := data.Diff.Summary
		addKVInt(sheet, "New Opportunities", d.NewCount)
		addKVInt(sheet, "Removed Opportunities", d.RemovedCount)
		addKVInt(sheet, "Changed Opportunities", d.ChangedCount)
		addKVUSD(sheet, "USD Delta", d.USDDelta)
	}
	return nil
}

func addResponsibleSheet(f *xlsx.File, groups []metrics.ResponsibleMetrics) error {
	sheet, err := addSheet(f, "By_Responsible")
	if err != nil {
		return err
	}
	addHeader(sheet, "Responsible", "Opportunities", "Total USD", "Avg USD",
		"Markets", "Stagnant", "At Risk")
	for _, g := range groups {
		row := sheet.AddRow()
		row.AddCell().Value = g.Name
		row.AddCell().SetInt(g.TotalOpportunities)
		row.AddCell().SetFloatWithFormat(g.TotalUSD, usdFormat)
		row.AddCell().SetFloatWithFormat(g.AvgUSD, usdFormat)
		row.AddCell().Value = strings.Join(g.Markets, ", ")
		row.AddCell().SetInt(g.StagnantCount)
		row.AddCell().SetInt(g.AtRiskCount)
	}
	return nil
}

func addMarketSheet(f *xlsx.File, groups []metrics.MarketMetrics) error {
	sheet, err := addSheet(f, "By_Market")
	if err != nil {
		return err
	}
	addHeader(sheet, "Market", "Opportunities", "Total USD", "Avg USD",
		"Top Responsible", "Stagnant", "At Risk")
	for _, g := range groups {
		row := sheet.AddRow()
		row.AddCell().Value = g.Name
		row.AddCell().SetInt(g.TotalOpportunities)
		row.AddCell().SetFloatWithFormat(g.TotalUSD, usdFormat)
		row.AddCell().SetFloatWithFormat(g.AvgUSD, usdFormat)
		row.AddCell().Value = g.TopResponsible
		row.AddCell().SetInt(g.StagnantCount)
		row.AddCell().SetInt(g.AtRiskCount)
	}
	return nil
}

func addKPISheet(f *xlsx.File, data *Data) error {
	sheet, err := addSheet(f, "By_KPI")
	if err != nil {
		return err
	}
	addHeader(sheet, "Code", "Name", "Count", "Value", "Severity", "Band")
	for _, c := range data.KPIs {
		row := sheet.AddRow()
		row.AddCell().Value = c.Code
		row.AddCell().Value = c.Name
		row.AddCell().SetInt(c.Count)
		row.AddCell().SetFloatWithFormat(c.Value, usdFormat)
		row.AddCell().Value = string(c.Severity)
		row.AddCell().Value = string(c.Band)
	}
	return nil
}

func addStageSheet(f *xlsx.File, stages []metrics.StageBucket) error {
	sheet, err := addSheet(f, "By_Stage")
	if err != nil {
		return err
	}
	addHeader(sheet, "Stage", "Count", "Total USD", "Avg USD", "Percentage")
	for _, b := range stages {
		row := sheet.AddRow()
		row.AddCell().Value = b.Stage
		row.AddCell().SetInt(b.Count)
		row.AddCell().SetFloatWithFormat(b.TotalUSD, usdFormat)
		row.AddCell().SetFloatWithFormat(b.AvgUSD, usdFormat)
		row.AddCell().SetFloatWithFormat(b.Percentage, "0.0")
	}
	return nil
}

func addAttentionSheet(f *xlsx.File, alerts []metrics.Alert) error {
	sheet, err := addSheet(f, "Needs_Attention")
	if err != nil {
		return err
	}
	addHeader(sheet, "Id", "Responsible", "Market", "Stage", "USD",
		"Close Date", "Days To Close", "Days Since Creation", "Reason")
	for _, a := range alerts {
		o := a.Opportunity
		row := sheet.AddRow()
		row.AddCell().Value = o.ID
		row.AddCell().Value = o.Responsible
		row.AddCell().Value = o.Market
		row.AddCell().Value = o.Stage
		row.AddCell().SetFloatWithFormat(o.USD, usdFormat)
		row.AddCell().Value = displayDate(o.CloseDate)
		row.AddCell().Value = displayDays(a.Derived.DaysToClose)
		row.AddCell().Value = displayDays(a.Derived.DaysSinceCreation)
		row.AddCell().Value = a.Reason()
	}
	return nil
}

func addChangeSheets(f *xlsx.File, res *diff.Result) error {
	sheet, err := addSheet(f, "Changes")
	if err != nil {
		return err
	}
	writeChangeRows(sheet, res.Changes)

	if err := addRecordsSheet(f, "New", res.New); err != nil {
		return err
	}
	return addRecordsSheet(f, "Removed", res.Removed)
}

func writeChangeRows(sheet *xlsx.Sheet, changes []diff.Change) {
	addHeader(sheet, "Id", "Field", "Old", "New", "Type", "Responsible", "Market")
	for _, ch := range changes {
		row := sheet.AddRow()
		row.AddCell().Value = ch.OpportunityID
		row.AddCell().Value = string(ch.Field)
		row.AddCell().Value = ch.OldDisplay
		row.AddCell().Value = ch.NewDisplay
		row.AddCell().Value = string(ch.Type)
		row.AddCell().Value = ch.Responsible
		row.AddCell().Value = ch.Market
	}
}

func addRecordsSheet(f *xlsx.File, name string, records []model.Opportunity) error {
	sheet, err := addSheet(f, name)
	if err != nil {
		return err
	}
	addHeader(sheet, "Id", "KPI", "Responsible", "Region", "Market", "Site",
		"USD", "Customer", "Product", "Stage", "Created Date", "Close Date")
	for _, o := range records {
		row := sheet.AddRow()
		row.AddCell().Value = o.ID
		row.AddCell().Value = o.KPI
		row.AddCell().Value = o.Responsible
		row.AddCell().Value = o.Region
		row.AddCell().Value = o.Market
		row.AddCell().Value = o.Site
		row.AddCell().SetFloatWithFormat(o.USD, usdFormat)
		row.AddCell().Value = o.Customer
		row.AddCell().Value = o.Product
		row.AddCell().Value = o.Stage
		row.AddCell().Value = displayDate(o.CreatedDate)
		row.AddCell().Value = displayDate(o.CloseDate)
	}
	return nil
}

func addSheet(f *xlsx.File, name string) (*xlsx.Sheet, error) {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return nil, eris.Wrapf(err, "report: add sheet %s", name)
	}
	return sheet, nil
}

var headerStyle = func() *xlsx.Style {
	style := xlsx.NewStyle()
	style.Font.Bold = true
	style.Fill = *xlsx.NewFill("solid", "FFDCE6F1", "FF000000")
	style.ApplyFont = true
	style.ApplyFill = true
	return style
}()

func addHeader(sheet *xlsx.Sheet, cols ...string) {
	row := sheet.AddRow()
	for _, c := range cols {
		cell := row.AddCell()
		cell.Value = c
		cell.SetStyle(headerStyle)
	}
}

func addKV(sheet *xlsx.Sheet, key, value string) {
	row := sheet.AddRow()
	row.AddCell().Value = key
	row.AddCell().Value = value
}

func addKVInt(sheet *xlsx.Sheet, key string, value int) {
	row := sheet.AddRow()
	row.AddCell().Value = key
	row.AddCell().SetInt(value)
}

func addKVUSD(sheet *xlsx.Sheet, key string, value float64) {
	row := sheet.AddRow()
	row.AddCell().Value = key
	row.AddCell().SetFloatWithFormat(value, usdFormat)
}

func displayDate(t *time.Time) string {
	if t == nil {
		return "N/A"
	}
	return t.Format("2006-01-02")
}

func displayDays(d *int) string {
	if d == nil {
		return "N/A"
	}
	return strconv.Itoa(*d)
}

func save(f *xlsx.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "report: create %s", filepath.Dir(path))
	}
	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

// slug makes a name safe for a file name.
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
