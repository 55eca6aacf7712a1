package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

func datePtr(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return &parsed
}

func testSnapshot(t *testing.T) *model.Snapshot {
	t.Helper()
	return model.NewSnapshot([]model.Opportunity{
		{
			ID: "006A1", KPI: "DC003", Responsible: "Garcia", Market: "Chile",
			Customer: "Acme", Stage: "Work Execution", USD: 1000,
			CreatedDate: datePtr(t, "2026-05-01"), CloseDate: datePtr(t, "2026-09-30"),
		},
		{
			ID: "006A2", KPI: "DC003", Responsible: "Garcia", Market: "Chile",
			Customer: "Acme", Stage: "Construction", USD: 3000,
			CreatedDate: datePtr(t, "2026-08-20"), CloseDate: datePtr(t, "2026-08-25"),
		},
		{
			ID: "006A3", KPI: "DC011", Responsible: "Lopez", Market: "Peru",
			Customer: "Globex", Stage: "Work Execution", USD: 500,
			CreatedDate: datePtr(t, "2026-08-27"), CloseDate: datePtr(t, "2026-09-01"),
		},
	})
}

func TestDeriveStagnantBoundary(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	exactly := now.AddDate(0, 0, -30)
	d := c.Derive(&model.Opportunity{CreatedDate: &exactly}, now)
	require.NotNil(t, d.DaysSinceCreation)
	assert.Equal(t, 30, *d.DaysSinceCreation)
	assert.False(t, d.Stagnant, "exactly threshold days old is not yet stagnant")

	over := now.AddDate(0, 0, -31)
	d = c.Derive(&model.Opportunity{CreatedDate: &over}, now)
	assert.True(t, d.Stagnant)
}

func TestDeriveAtRiskAndOverdue(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	soon := now.AddDate(0, 0, 6)
	d := c.Derive(&model.Opportunity{CloseDate: &soon}, now)
	assert.True(t, d.AtRisk)
	assert.False(t, d.Overdue())

	exactly := now.AddDate(0, 0, 7)
	d = c.Derive(&model.Opportunity{CloseDate: &exactly}, now)
	assert.False(t, d.AtRisk, "exactly warning days out is not at risk")

	past := now.Add(-time.Hour)
	d = c.Derive(&model.Opportunity{CloseDate: &past}, now)
	require.NotNil(t, d.DaysToClose)
	assert.Equal(t, -1, *d.DaysToClose, "an hour past due rounds down to -1 days")
	assert.True(t, d.Overdue())
}

func TestDeriveMissingDates(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	d := c.Derive(&model.Opportunity{}, time.Now())
	assert.Nil(t, d.DaysSinceCreation)
	assert.Nil(t, d.DaysToClose)
	assert.False(t, d.Stagnant)
	assert.False(t, d.AtRisk)
}

func TestSummarize(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	s := c.Summarize(testSnapshot(t), now)
	assert.Equal(t, 3, s.TotalOpportunities)
	assert.InDelta(t, 4500, s.TotalUSD, 0.001)
	assert.InDelta(t, 1500, s.AvgUSD, 0.001)
	assert.Equal(t, 2, s.UniqueResponsibles)
	assert.Equal(t, 2, s.UniqueMarkets)
	assert.Equal(t, 2, s.UniqueCustomers)
	assert.Equal(t, 2, s.ByKPI["DC003"])
	assert.Equal(t, 1, s.ByKPI["DC011"])
	assert.Equal(t, 2, s.ByStage["Work Execution"])
	assert.Equal(t, 1, s.StagnantCount, "only the May record exceeds 30 days")
	assert.Equal(t, 2, s.AtRiskCount, "the overdue and the 3-day-out records")
}

func TestSummarizeEmpty(t *testing.T) {
	c := NewCalculator(0, 0, nil)
	s := c.Summarize(model.NewSnapshot(nil), time.Now())
	assert.Zero(t, s.TotalOpportunities)
	assert.Zero(t, s.AvgUSD)
	assert.Empty(t, s.ByKPI)
}

func TestByResponsibleOrdering(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	groups := c.ByResponsible(testSnapshot(t), now)
	require.Len(t, groups, 2)
	assert.Equal(t, "Garcia", groups[0].Name)
	assert.Equal(t, 2, groups[0].TotalOpportunities)
	assert.InDelta(t, 2000, groups[0].AvgUSD, 0.001)
	assert.Equal(t, []string{"Chile"}, groups[0].Markets)
	assert.Equal(t, "Lopez", groups[1].Name)
}

func TestByResponsibleUnassigned(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	snap := model.NewSnapshot([]model.Opportunity{{ID: "006X", USD: 10}})

	groups := c.ByResponsible(snap, time.Now())
	require.Len(t, groups, 1)
	assert.Equal(t, model.Unassigned, groups[0].Name)
}

func TestByMarketTopResponsible(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	groups := c.ByMarket(testSnapshot(t), now)
	require.Len(t, groups, 2)
	assert.Equal(t, "Chile", groups[0].Name)
	assert.Equal(t, "Garcia", groups[0].TopResponsible)
	assert.Equal(t, []string{"Garcia"}, groups[0].Responsibles)
	assert.Equal(t, "Peru", groups[1].Name)
	assert.Equal(t, "Lopez", groups[1].TopResponsible)
}

func TestStageDistribution(t *testing.T) {
	c := NewCalculator(30, 7, nil)

	buckets := c.StageDistribution(testSnapshot(t))
	require.Len(t, buckets, 2)
	assert.Equal(t, "Work Execution", buckets[0].Stage, "canonical order puts Work Execution before Construction")
	assert.Equal(t, 2, buckets[0].Count)
	assert.InDelta(t, 66.666, buckets[0].Percentage, 0.01)
	assert.Equal(t, "Construction", buckets[1].Stage)
}

func TestStageDistributionUnknownStagesLast(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	snap := model.NewSnapshot([]model.Opportunity{
		{ID: "1", Stage: "Zz Custom"},
		{ID: "2", Stage: "Construction"},
		{ID: "3", Stage: "Aa Custom"},
	})

	buckets := c.StageDistribution(snap)
	require.Len(t, buckets, 3)
	assert.Equal(t, "Construction", buckets[0].Stage)
	assert.Equal(t, "Aa Custom", buckets[1].Stage)
	assert.Equal(t, "Zz Custom", buckets[2].Stage)
}

func TestNeedsAttention(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	alerts := c.NeedsAttention(testSnapshot(t), now)
	require.Len(t, alerts, 3)

	// Overdue record sorts first, then the one closing soonest.
	assert.Equal(t, "006A2", alerts[0].Opportunity.ID)
	assert.Equal(t, "OVERDUE", alerts[0].Reason())
	assert.Equal(t, "006A3", alerts[1].Opportunity.ID)
	assert.Equal(t, "DUE_SOON", alerts[1].Reason())
	assert.Equal(t, "006A1", alerts[2].Opportunity.ID)
	assert.Equal(t, "STAGNANT", alerts[2].Reason())
}

func TestNeedsAttentionCombinedReasons(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	created := now.AddDate(0, 0, -60)
	close := now.AddDate(0, 0, -2)
	snap := model.NewSnapshot([]model.Opportunity{
		{ID: "006B1", CreatedDate: &created, CloseDate: &close},
	})

	alerts := c.NeedsAttention(snap, now)
	require.Len(t, alerts, 1)
	assert.Equal(t, "OVERDUE STAGNANT", alerts[0].Reason())
}

func TestNeedsAttentionNilCloseDateLast(t *testing.T) {
	c := NewCalculator(30, 7, nil)
	now := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	old := now.AddDate(0, 0, -90)
	soon := now.AddDate(0, 0, 2)
	snap := model.NewSnapshot([]model.Opportunity{
		{ID: "stale", CreatedDate: &old},
		{ID: "closing", CreatedDate: &now, CloseDate: &soon},
	})

	alerts := c.NeedsAttention(snap, now)
	require.Len(t, alerts, 2)
	assert.Equal(t, "closing", alerts[0].Opportunity.ID)
	assert.Equal(t, "stale", alerts[1].Opportunity.ID)
}
