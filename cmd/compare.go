package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/diff"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/loader"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

var compareJSON bool

var compareCmd = &cobra.Command{
	Use:   "compare <current.csv> <previous.csv>",
	Short: "Diff two opportunity exports",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		l := loader.New(cfg.Data.RawDir, cfg.Data.ProcessedDir)

		current, err := l.Load(args[0])
		if err != nil {
			return err
		}
		previous, err := l.Load(args[1])
		if err != nil {
			return err
		}

		ranker := model.NewStageRanker(cfg.Analysis.StageOrder)
		tracked := model.ParseFields(cfg.Analysis.TrackedFields)
		result := diff.NewDetector(tracked, ranker).Compare(current, previous)

		if compareJSON {
			return printJSON(result)
		}
		formatCompareResult(os.Stdout, result)
		return nil
	},
	PreRunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range args {
			if _, err := os.Stat(p); err != nil {
				return eris.Wrapf(err, "compare: %s", p)
			}
		}
		return nil
	},
}

func formatCompareResult(out io.Writer, result *diff.Result) {
	s := result.Summary
	fmt.Fprintf(out, "New: %d  Removed: %d  Changed: %d  Unchanged: %d  (USD delta %+.2f)\n\n",
		s.NewCount, s.RemovedCount, s.ChangedCount, s.UnchangedCount, s.USDDelta)

	if len(result.Changes) == 0 {
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, strings.Join(diff.ChangeRowHeader, "\t"))
	for _, row := range result.ChangeRows() {
		_, _ = fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()
}

func init() {
	compareCmd.Flags().BoolVar(&compareJSON, "json", false, "emit the full diff as json")
	rootCmd.AddCommand(compareCmd)
}
