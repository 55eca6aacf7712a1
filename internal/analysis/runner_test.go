package analysis

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/config"
	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

const currentCSV = `Id,Link,KPI,Responsible,Region,Market,Site,USD,Siterra Project,Customer,Product,Stage,CreatedDate,CloseDate,Revision,Descripcion
006A1,,DC003,Garcia,LATAM,Chile,SCL01,1500,SP-1,Acme,Fiber,Construction,2026-05-01,2026-09-30,R1,
006A2,,DC011,Lopez,LATAM,Peru,LIM02,500,SP-2,Globex,Copper,NDD/RFI,2026-08-20,2026-09-01,R1,
006A3,,DC003,Garcia,EMEA,Spain,MAD01,900,SP-3,Initech,Fiber,Work Execution,2026-08-01,2026-12-01,R1,
`

const previousCSV = `Id,Link,KPI,Responsible,Region,Market,Site,USD,Siterra Project,Customer,Product,Stage,CreatedDate,CloseDate,Revision,Descripcion
006A1,,DC003,Garcia,LATAM,Chile,SCL01,1000,SP-1,Acme,Fiber,Work Execution,2026-05-01,2026-09-30,R1,
006A9,,DC005,Perez,LATAM,Chile,SCL02,200,SP-9,Umbrella,Fiber,NDD/RFI,2026-04-01,2026-08-01,R1,
`

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	return &config.Config{
		Data: config.DataConfig{
			RawDir:       filepath.Join(base, "raw"),
			ProcessedDir: filepath.Join(base, "processed"),
		},
		Analysis: config.AnalysisConfig{
			TrackedFields: []string{"Stage", "Responsible", "USD", "CloseDate", "KPI"},
			StagnantDays:  30,
			WarningDays:   7,
		},
		Reports: config.ReportsConfig{
			WeeklyDir: filepath.Join(base, "reports", "weekly"),
			HTMLDir:   filepath.Join(base, "reports", "html"),
			CardsDir:  filepath.Join(base, "reports", "cards"),
		},
	}
}

func seedExports(t *testing.T, rawDir string) (current string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(rawDir, 0o755))

	prev := filepath.Join(rawDir, "export_monday.csv")
	require.NoError(t, os.WriteFile(prev, []byte(previousCSV), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(prev, past, past))

	current = filepath.Join(rawDir, "export_tuesday.csv")
	require.NoError(t, os.WriteFile(current, []byte(currentCSV), 0o644))
	return current
}

func TestRunWithComparison(t *testing.T) {
	cfg := testConfig(t)
	seedExports(t, cfg.Data.RawDir)

	runner, err := NewRunner(cfg)
	require.NoError(t, err)

	var stages []string
	result, err := runner.Run(context.Background(), model.RunParams{
		CompareWithPrevious: true,
		GenerateHTML:        true,
		GenerateCard:        true,
	}, func(stage string) { stages = append(stages, stage) })
	require.NoError(t, err)

	assert.Equal(t, 3, result.TotalOpportunities, "latest export is picked by mtime")
	assert.InDelta(t, 2900, result.TotalUSD, 0.001)
	assert.Equal(t, 2, result.UniqueResponsibles)

	require.NotNil(t, result.Changes)
	assert.Equal(t, 2, result.Changes.NewCount)
	assert.Equal(t, 1, result.Changes.RemovedCount)
	assert.Equal(t, 1, result.Changes.ChangedCount, "006A1 advanced and grew")
	assert.InDelta(t, 1700, result.Changes.USDChange, 0.001)

	assert.FileExists(t, result.ExcelPath)
	assert.FileExists(t, result.HTMLPath)
	assert.FileExists(t, result.CardPath)
	assert.Contains(t, stages, "loading data")
	assert.Contains(t, stages, "rendering reports")

	require.NotEmpty(t, result.ByKPI)
	assert.Equal(t, "DC003", result.ByKPI[0].Code)
	assert.Equal(t, 2, result.ByKPI[0].Count)
	assert.InDelta(t, 2400, result.ByKPI[0].TotalUSD, 0.001)
}

func TestRunExplicitFileWithoutComparison(t *testing.T) {
	cfg := testConfig(t)
	current := seedExports(t, cfg.Data.RawDir)

	runner, err := NewRunner(cfg)
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), model.RunParams{FilePath: current}, nil)
	require.NoError(t, err)
	assert.Nil(t, result.Changes)
	assert.Empty(t, result.HTMLPath)
	assert.Empty(t, result.CardPath)
	assert.FileExists(t, result.ExcelPath)
}

func TestRunRegionFilter(t *testing.T) {
	cfg := testConfig(t)
	seedExports(t, cfg.Data.RawDir)

	runner, err := NewRunner(cfg)
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), model.RunParams{Region: "EMEA"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalOpportunities)
	assert.InDelta(t, 900, result.TotalUSD, 0.001)
}

func TestRunNoExports(t *testing.T) {
	cfg := testConfig(t)

	runner, err := NewRunner(cfg)
	require.NoError(t, err)

	_, err = runner.Run(context.Background(), model.RunParams{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no csv exports")
}
