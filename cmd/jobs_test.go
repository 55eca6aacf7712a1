//go:build !integration

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

func sampleRuns() []model.Run {
	created := time.Date(2026, 8, 21, 9, 30, 0, 0, time.UTC)
	started := created.Add(2 * time.Second)
	done := started.Add(10 * time.Second)

	return []model.Run{
		{
			ID:          "a1b2c3d4-0000-0000-0000-000000000000",
			Status:      model.RunStatusComplete,
			Progress:    "done",
			CreatedAt:   created,
			StartedAt:   &started,
			CompletedAt: &done,
			Result: &model.RunResult{
				TotalOpportunities: 42,
				DataFile:           "data/raw/export_20260821.csv",
			},
		},
		{
			ID:        "e5f6a7b8-0000-0000-0000-000000000000",
			Status:    model.RunStatusFailed,
			CreatedAt: created,
		},
		{
			ID:        "c9d0e1f2-0000-0000-0000-000000000000",
			Status:    model.RunStatusRunning,
			Progress:  "rendering reports",
			CreatedAt: created,
		},
	}
}

func TestFormatJobsList(t *testing.T) {
	var buf bytes.Buffer
	formatJobsList(&buf, sampleRuns())

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "a1b2c3d4")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "export_20260821.csv")
	assert.Contains(t, out, "rendering reports")
	assert.Contains(t, out, "2026-08-21 09:30")
	assert.NotContains(t, out, "a1b2c3d4-0000")
}

func TestFormatJobsListTruncatesLongPaths(t *testing.T) {
	runs := []model.Run{{
		ID:        "abc",
		Status:    model.RunStatusComplete,
		CreatedAt: time.Now(),
		Result: &model.RunResult{
			DataFile: "/very/long/nested/directory/structure/holding/weekly/exports/opportunities.csv",
		},
	}}

	var buf bytes.Buffer
	formatJobsList(&buf, runs)

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), "/very/long/nested")
}

func TestComputeJobStats(t *testing.T) {
	stats := computeJobStats(sampleRuns())

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Complete)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.InFlight)
	assert.InDelta(t, 10.0, stats.AvgDurSecs, 0.01)
}

func TestComputeJobStatsEmpty(t *testing.T) {
	stats := computeJobStats(nil)

	assert.Equal(t, 0, stats.Total)
	assert.Zero(t, stats.AvgDurSecs)
}

func TestFormatJobStats(t *testing.T) {
	var buf bytes.Buffer
	formatJobStats(&buf, jobStats{Total: 5, Complete: 3, Failed: 1, InFlight: 1, AvgDurSecs: 12.345})

	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "5")
	assert.Contains(t, out, "12.3s")
}

func TestFormatJobStatsOmitsDurationWhenUnknown(t *testing.T) {
	var buf bytes.Buffer
	formatJobStats(&buf, jobStats{Total: 2, Failed: 2})

	assert.NotContains(t, buf.String(), "Avg duration")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "a1b2c3d4", truncateID("a1b2c3d4-e5f6-7890"))
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "", truncateID(""))
}
