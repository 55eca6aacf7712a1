// Package analysis orchestrates a full report run: load the export, compute
// metrics and KPI standings, diff against the previous export, and render
// the report artifacts.
package analysis

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/config"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/diff"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/kpi"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/loader"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/metrics"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/report"
)

// Progress receives coarse stage updates while a run executes.
type Progress func(stage string)

// Runner executes analysis runs. One Runner is safe for concurrent runs.
type Runner struct {
	loader   *loader.Loader
	calc     *metrics.Calculator
	detector *diff.Detector
	catalog  *kpi.Catalog
	excel    *report.ExcelRenderer
	html     *report.HTMLRenderer
	card     *report.CardRenderer
}

// NewRunner wires a Runner from configuration.
func NewRunner(cfg *config.Config) (*Runner, error) {
	catalog := kpi.DefaultCatalog()
	if cfg.Analysis.KPICatalogPath != "" {
		loaded, err := kpi.LoadCatalog(cfg.Analysis.KPICatalogPath)
		if err != nil {
			return nil, eris.Wrap(err, "analysis: load kpi catalog")
		}
		catalog = loaded
	}

	ranker := model.NewStageRanker(cfg.Analysis.StageOrder)
	tracked := model.ParseFields(cfg.Analysis.TrackedFields)

	return &Runner{
		loader:   loader.New(cfg.Data.RawDir, cfg.Data.ProcessedDir),
		calc:     metrics.NewCalculator(cfg.Analysis.StagnantDays, cfg.Analysis.WarningDays, ranker),
		detector: diff.NewDetector(tracked, ranker),
		catalog:  catalog,
		excel:    report.NewExcelRenderer(cfg.Reports.WeeklyDir),
		html:     report.NewHTMLRenderer(cfg.Reports.HTMLDir),
		card:     report.NewCardRenderer(cfg.Reports.CardsDir),
	}, nil
}

// Run executes one analysis. Renderer failures are logged and leave the
// corresponding artifact path empty; only load failures abort the run.
func (r *Runner) Run(ctx context.Context, params model.RunParams, progress Progress) (*model.RunResult, error) {
	step := func(stage string) {
		if progress != nil {
			progress(stage)
		}
	}

	step("resolving export")
	filePath := params.FilePath
	if filePath == "" {
		latest, err := r.loader.LatestFile()
		if err != nil {
			return nil, err
		}
		if latest == "" {
			return nil, eris.New("analysis: no csv exports found")
		}
		filePath = latest
	}

	step("loading data")
	snap, err := r.loader.Load(filePath)
	if err != nil {
		return nil, err
	}
	if params.Region != "" {
		snap = filterRegion(snap, params.Region)
	}

	now := time.Now().UTC()
	step("computing metrics")
	summary := r.calc.Summarize(snap, now)
	renderData := &report.Data{
		GeneratedAt:   now,
		DataFile:      filePath,
		Snapshot:      snap,
		Summary:       summary,
		ByResponsible: r.calc.ByResponsible(snap, now),
		ByMarket:      r.calc.ByMarket(snap, now),
		Stages:        r.calc.StageDistribution(snap),
		Alerts:        r.calc.NeedsAttention(snap, now),
		KPIs:          r.classifyKPIs(snap, summary),
	}

	if params.CompareWithPrevious {
		step("comparing with previous export")
		prevPath, err := r.loader.PreviousFile(filePath)
		if err != nil {
			return nil, err
		}
		if prevPath == "" {
			zap.L().Info("no previous export to compare against")
		} else {
			prev, err := r.loader.Load(prevPath)
			if err != nil {
				return nil, err
			}
			if params.Region != "" {
				prev = filterRegion(prev, params.Region)
			}
			renderData.Diff = r.detector.Compare(snap, prev)
		}
	}

	step("rendering reports")
	result := r.buildResult(renderData)
	r.render(ctx, renderData, params, result)
	return result, nil
}

// render writes the artifacts concurrently. Failures are logged, not fatal,
// so a broken renderer never loses the analysis itself.
func (r *Runner) render(ctx context.Context, data *report.Data, params model.RunParams, result *model.RunResult) {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		path, err := r.excel.Render(data)
		if err != nil {
			zap.L().Error("excel render failed", zap.Error(err))
			return nil
		}
		result.ExcelPath = path
		if _, err := r.excel.RenderPerResponsible(ctx, data); err != nil {
			zap.L().Error("per-responsible render failed", zap.Error(err))
		}
		return nil
	})
	if params.GenerateHTML {
		g.Go(func() error {
			path, err := r.html.Render(data)
			if err != nil {
				zap.L().Error("html render failed", zap.Error(err))
				return nil
			}
			result.HTMLPath = path
			return nil
		})
	}
	if params.GenerateCard {
		g.Go(func() error {
			path, err := r.card.Render(data)
			if err != nil {
				zap.L().Error("card render failed", zap.Error(err))
				return nil
			}
			result.CardPath = path
			return nil
		})
	}
	_ = g.Wait()
}

// classifyKPIs classifies every KPI code seen in the snapshot, in code order.
func (r *Runner) classifyKPIs(snap *model.Snapshot, summary metrics.Summary) []kpi.Classification {
	codes := make([]string, 0, len(summary.ByKPI))
	for code := range summary.ByKPI {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	out := make([]kpi.Classification, 0, len(codes))
	for _, code := range codes {
		out = append(out, r.catalog.Classify(code, summary.ByKPI[code], snap.Len()))
	}
	return out
}

func (r *Runner) buildResult(data *report.Data) *model.RunResult {
	s := data.Summary

	usdByKPI := map[string]float64{}
	for i := range data.Snapshot.Records {
		o := &data.Snapshot.Records[i]
		if o.KPI != "" {
			usdByKPI[o.KPI] += o.USD
		}
	}

	standings := make([]model.KPIStanding, 0, len(data.KPIs))
	for _, c := range data.KPIs {
		standings = append(standings, model.KPIStanding{
			Code:     c.Code,
			Name:     c.Name,
			Count:    c.Count,
			Severity: string(c.Severity),
			Band:     string(c.Band),
			TotalUSD: usdByKPI[c.Code],
		})
	}

	marketStandings := make([]model.MarketStanding, 0, len(data.ByMarket))
	for _, m := range data.ByMarket {
		marketStandings = append(marketStandings, model.MarketStanding{
			Name:     m.Name,
			Count:    m.TotalOpportunities,
			TotalUSD: m.TotalUSD,
		})
	}

	result := &model.RunResult{
		TotalOpportunities: s.TotalOpportunities,
		TotalUSD:           s.TotalUSD,
		UniqueResponsibles: s.UniqueResponsibles,
		UniqueMarkets:      s.UniqueMarkets,
		StagnantCount:      s.StagnantCount,
		AtRiskCount:        s.AtRiskCount,
		ByKPI:              standings,
		ByMarket:           marketStandings,
		DataFile:           data.DataFile,
		AnalyzedAt:         data.GeneratedAt,
	}
	if data.Diff != nil {
		d := data.Diff.Summary
		result.Changes = &model.ChangeStats{
			NewCount:       d.NewCount,
			RemovedCount:   d.RemovedCount,
			ChangedCount:   d.ChangedCount,
			UnchangedCount: d.UnchangedCount,
			TotalChanges:   d.TotalChanges,
			USDChange:      d.USDDelta,
		}
	}
	return result
}

// filterRegion narrows a snapshot to one region.
func filterRegion(snap *model.Snapshot, region string) *model.Snapshot {
	var records []model.Opportunity
	for _, o := range snap.Records {
		if o.Region == region {
			records = append(records, o)
		}
	}
	return model.NewSnapshot(records)
}
