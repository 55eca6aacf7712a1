//go:build !integration

package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/diff"
)

func TestFormatCompareResult(t *testing.T) {
	result := &diff.Result{
		Summary: diff.Summary{
			NewCount:       2,
			RemovedCount:   1,
			ChangedCount:   1,
			UnchangedCount: 5,
			USDDelta:       1700,
		},
		Changes: []diff.Change{
			{
				OpportunityID: "0061t00000AAA",
				Field:         "stage",
				OldDisplay:    "Negotiation",
				NewDisplay:    "Contract Signature",
				Type:          diff.ChangeStageAdvance,
				Responsible:   "Ana Torres",
			},
		},
	}

	var buf bytes.Buffer
	formatCompareResult(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "New: 2")
	assert.Contains(t, out, "Removed: 1")
	assert.Contains(t, out, "USD delta +1700.00")
	assert.Contains(t, out, "0061t00000AAA")
	assert.Contains(t, out, "Contract Signature")
	assert.Contains(t, out, string(diff.ChangeStageAdvance))
	assert.Contains(t, out, "Ana Torres")
}

func TestFormatCompareResultNoChanges(t *testing.T) {
	var buf bytes.Buffer
	formatCompareResult(&buf, &diff.Result{})

	out := buf.String()
	assert.Contains(t, out, "New: 0")
	assert.NotContains(t, out, "Field")
}
