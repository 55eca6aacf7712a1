package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/loader"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

// opportunityRow mirrors the SOQL field names go-salesforce decodes into.
type opportunityRow struct {
	ID             string  `json:"Id"`
	KPI            string  `json:"KPI__c"`
	Responsible    string  `json:"Owner_Name__c"`
	Region         string  `json:"Region__c"`
	Market         string  `json:"Market__c"`
	Site           string  `json:"Site__c"`
	Amount         float64 `json:"Amount"`
	SiterraProject string  `json:"Siterra_Project__c"`
	Customer       string  `json:"Account_Name__c"`
	Product        string  `json:"Product__c"`
	StageName      string  `json:"StageName"`
	CreatedDate    string  `json:"CreatedDate"`
	CloseDate      string  `json:"CloseDate"`
}

const opportunitySOQL = `SELECT Id, KPI__c, Owner_Name__c, Region__c, Market__c, Site__c, Amount,
	Siterra_Project__c, Account_Name__c, Product__c, StageName, CreatedDate, CloseDate
	FROM Opportunity WHERE IsClosed = false`

var fetchOut string

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch open opportunities from Salesforce into a CSV export",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		sf, err := initSalesforce()
		if err != nil {
			return err
		}

		var rows []opportunityRow
		if err := sf.Query(ctx, opportunitySOQL, &rows); err != nil {
			return eris.Wrap(err, "fetch opportunities")
		}
		zap.L().Info("fetched opportunities", zap.Int("count", len(rows)))

		records := make([]model.Opportunity, 0, len(rows))
		for _, r := range rows {
			records = append(records, model.Opportunity{
				ID:             r.ID,
				KPI:            r.KPI,
				Responsible:    r.Responsible,
				Region:         r.Region,
				Market:         r.Market,
				Site:           r.Site,
				USD:            r.Amount,
				SiterraProject: r.SiterraProject,
				Customer:       r.Customer,
				Product:        r.Product,
				Stage:          r.StageName,
				CreatedDate:    parseSFDate(r.CreatedDate),
				CloseDate:      parseSFDate(r.CloseDate),
			})
		}
		snap := model.NewSnapshot(records)

		out := fetchOut
		if out == "" {
			out = filepath.Join(cfg.Data.RawDir,
				fmt.Sprintf("opportunities_%s.csv", time.Now().Format("20060102_150405")))
		}
		l := loader.New(cfg.Data.RawDir, cfg.Data.ProcessedDir)
		if err := l.SaveCSV(snap, out); err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	},
}

// parseSFDate handles both SOQL date and datetime renderings.
func parseSFDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "2006-01-02T15:04:05.000-0700", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func init() {
	fetchCmd.Flags().StringVar(&fetchOut, "out", "", "output csv path (default: timestamped file in the raw dir)")
	rootCmd.AddCommand(fetchCmd)
}
