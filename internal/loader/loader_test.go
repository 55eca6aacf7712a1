package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

const sampleCSV = `Id,Link,KPI,Responsible,Region,Market,Site,USD,Siterra Project,Customer,Product,Stage,CreatedDate,CloseDate,Revision,Descripcion
006A1,https://sf/006A1,DC003,Garcia,LATAM,Chile,SCL01,"1,250.50",SP-1,Acme,Fiber,Construction,2026-05-01,2026-09-30,R1,First
006A2,https://sf/006A2,DC011,,LATAM,Peru,LIM02,not-a-number,SP-2,Globex,Copper,NDD/RFI,bad-date,2026-08-25,R1,Second
006A1,https://sf/dup,DC003,Duplicate,LATAM,Chile,SCL01,999,SP-1,Acme,Fiber,Construction,2026-05-01,2026-09-30,R2,Dup
,https://sf/none,DC003,NoID,LATAM,Chile,SCL01,1,SP,Acme,Fiber,Construction,,,R1,NoID
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "export.csv", sampleCSV)

	snap, err := New(dir, filepath.Join(dir, "processed")).Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, snap.Len(), "rows without an id are dropped, duplicates keep the first")

	first, ok := snap.Get("006A1")
	require.True(t, ok)
	assert.Equal(t, "Garcia", first.Responsible, "the duplicate row did not overwrite")
	assert.InDelta(t, 1250.50, first.USD, 0.001, "thousands separators are stripped")
	require.NotNil(t, first.CreatedDate)
	assert.Equal(t, "2026-05-01", first.CreatedDate.Format("2006-01-02"))

	second, ok := snap.Get("006A2")
	require.True(t, ok)
	assert.Equal(t, model.Unassigned, second.Responsible)
	assert.Zero(t, second.USD, "unparseable amounts coerce to zero")
	assert.Nil(t, second.CreatedDate, "unparseable dates coerce to nil")
	require.NotNil(t, second.CloseDate)
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	_, err := New(dir, dir).Load(filepath.Join(dir, "absent.csv"))
	require.Error(t, err)
}

func TestReadMissingColumnsStillLoads(t *testing.T) {
	csvData := "Id,Stage,USD\n006X,Construction,100\n"
	snap, err := New("", "").Read(strings.NewReader(csvData))
	require.NoError(t, err)
	require.Equal(t, 1, snap.Len())
	rec, _ := snap.Get("006X")
	assert.Equal(t, "Construction", rec.Stage)
	assert.Equal(t, model.Unassigned, rec.Responsible)
}

func TestLatestAndPreviousFile(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, filepath.Join(dir, "processed"))

	older := writeFile(t, dir, "monday.csv", sampleCSV)
	newer := writeFile(t, dir, "tuesday.csv", sampleCSV)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))
	writeFile(t, dir, "notes.txt", "ignored")

	latest, err := l.LatestFile()
	require.NoError(t, err)
	assert.Equal(t, newer, latest)

	prev, err := l.PreviousFile(latest)
	require.NoError(t, err)
	assert.Equal(t, older, prev)
}

func TestLatestFileEmptyDir(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "missing"), "")
	latest, err := l.LatestFile()
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestPreviousFileSingleExport(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "")
	only := writeFile(t, dir, "only.csv", sampleCSV)

	prev, err := l.PreviousFile(only)
	require.NoError(t, err)
	assert.Empty(t, prev)
}

func TestArchive(t *testing.T) {
	dir := t.TempDir()
	processed := filepath.Join(dir, "processed")
	l := New(dir, processed)
	path := writeFile(t, dir, "export.csv", sampleCSV)

	dest, err := l.Archive(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(processed, "export.csv"), dest)
	assert.NoFileExists(t, path)
	assert.FileExists(t, dest)
}

func TestSaveCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, dir)
	created := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	snap := model.NewSnapshot([]model.Opportunity{{
		ID: "006R", KPI: "DC003", Responsible: "Garcia", Market: "Chile",
		USD: 1250.5, Stage: "Construction", CreatedDate: &created,
	}})

	path := filepath.Join(dir, "out", "export.csv")
	require.NoError(t, l.SaveCSV(snap, path))

	loaded, err := l.Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, loaded.Len())
	rec, _ := loaded.Get("006R")
	assert.InDelta(t, 1250.5, rec.USD, 0.001)
	require.NotNil(t, rec.CreatedDate)
	assert.Equal(t, "2026-05-01", rec.CreatedDate.Format("2006-01-02"))
	assert.Nil(t, rec.CloseDate)
}
