package model

import "time"

// RunStatus represents the current state of an analysis run.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// RunParams captures what an analysis run was asked to do.
type RunParams struct {
	FilePath            string `json:"file_path,omitempty"` // empty = latest export in the raw dir
	CompareWithPrevious bool   `json:"compare_with_previous"`
	GenerateHTML        bool   `json:"generate_html"`
	GenerateCard        bool   `json:"generate_card"`
	Region              string `json:"region,omitempty"`
}

// Run is one analysis invocation, persisted for inspection and polling.
type Run struct {
	ID          string     `json:"id"`
	Params      RunParams  `json:"params"`
	Status      RunStatus  `json:"status"`
	Progress    string     `json:"progress,omitempty"`
	Error       string     `json:"error,omitempty"`
	Result      *RunResult `json:"result,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// KPIStanding is one KPI code's observed volume and severity band.
type KPIStanding struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	Severity string  `json:"severity"`
	Band     string  `json:"band"`
	TotalUSD float64 `json:"total_usd"`
}

// MarketStanding is one market's record count and USD volume.
type MarketStanding struct {
	Name     string  `json:"name"`
	Count    int     `json:"count"`
	TotalUSD float64 `json:"total_usd"`
}

// ChangeStats summarizes a snapshot comparison for API consumers.
type ChangeStats struct {
	NewCount       int     `json:"new_count"`
	RemovedCount   int     `json:"removed_count"`
	ChangedCount   int     `json:"changed_count"`
	UnchangedCount int     `json:"unchanged_count"`
	TotalChanges   int     `json:"total_changes"`
	USDChange      float64 `json:"usd_change"`
}

// RunResult is the flattened outcome of a completed analysis run.
type RunResult struct {
	TotalOpportunities int     `json:"total_opportunities"`
	TotalUSD           float64 `json:"total_usd"`
	UniqueResponsibles int     `json:"unique_responsibles"`
	UniqueMarkets      int     `json:"unique_markets"`
	StagnantCount      int     `json:"stagnant_count"`
	AtRiskCount        int     `json:"at_risk_count"`

	ByKPI    []KPIStanding    `json:"by_kpi"`
	ByMarket []MarketStanding `json:"by_market"`
	Changes  *ChangeStats     `json:"changes,omitempty"`

	ExcelPath string `json:"excel_report_path,omitempty"`
	HTMLPath  string `json:"html_report_path,omitempty"`
	CardPath  string `json:"card_path,omitempty"`

	DataFile   string    `json:"data_file"`
	AnalyzedAt time.Time `json:"analysis_date"`
}
