package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/analysis"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/loader"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

var (
	analyzeFile    string
	analyzeCompare bool
	analyzeHTML    bool
	analyzeCard    bool
	analyzeRegion  string
	analyzeRecord  bool
	analyzeArchive bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full KPI analysis of the latest export",
	Long:  "Loads the newest opportunity export (or --file), computes metrics and KPI standings, optionally diffs against the previous export, and writes the report artifacts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		runner, err := analysis.NewRunner(cfg)
		if err != nil {
			return err
		}

		params := model.RunParams{
			FilePath:            analyzeFile,
			CompareWithPrevious: analyzeCompare,
			GenerateHTML:        analyzeHTML,
			GenerateCard:        analyzeCard,
			Region:              analyzeRegion,
		}

		progress := func(stage string) {
			zap.L().Info("analysis progress", zap.String("stage", stage))
		}

		if !analyzeRecord {
			result, err := runner.Run(ctx, params, progress)
			if err != nil {
				return eris.Wrap(err, "analyze")
			}
			archiveExport(result)
			return printJSON(result)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.CreateRun(ctx, params)
		if err != nil {
			return err
		}
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning, "starting"); err != nil {
			return err
		}

		result, err := runner.Run(ctx, params, func(stage string) {
			progress(stage)
			if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning, stage); err != nil {
				zap.L().Warn("progress update failed", zap.Error(err))
			}
		})
		if err != nil {
			_ = st.SetRunError(ctx, run.ID, err.Error())
			return eris.Wrap(err, "analyze")
		}
		if err := st.SetRunResult(ctx, run.ID, result); err != nil {
			return err
		}
		zap.L().Info("analysis recorded", zap.String("run_id", run.ID))
		archiveExport(result)
		return printJSON(result)
	},
}

// archiveExport moves the analyzed export to the processed dir when asked.
// Failures are logged; the analysis itself already succeeded.
func archiveExport(result *model.RunResult) {
	if !analyzeArchive || result.DataFile == "" {
		return
	}
	l := loader.New(cfg.Data.RawDir, cfg.Data.ProcessedDir)
	if _, err := l.Archive(result.DataFile); err != nil {
		zap.L().Warn("archive failed", zap.String("file", result.DataFile), zap.Error(err))
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "csv export to analyze (default: newest in the raw dir)")
	analyzeCmd.Flags().BoolVar(&analyzeCompare, "compare", true, "diff against the previous export")
	analyzeCmd.Flags().BoolVar(&analyzeHTML, "html", false, "also write the html executive summary")
	analyzeCmd.Flags().BoolVar(&analyzeCard, "card", false, "also write the png status card")
	analyzeCmd.Flags().StringVar(&analyzeRegion, "region", "", "restrict the analysis to one region")
	analyzeCmd.Flags().BoolVar(&analyzeRecord, "record", false, "record the run in the run-history store")
	analyzeCmd.Flags().BoolVar(&analyzeArchive, "archive", false, "move the export to the processed dir afterwards")
	rootCmd.AddCommand(analyzeCmd)
}
