// Package loader reads Salesforce opportunity CSV exports into typed
// snapshots and manages the raw/processed data directories.
package loader

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/model"
)

// rawRow mirrors the export's physical columns. All fields decode as strings
// so dirty data never fails the load; normalization happens afterwards.
type rawRow struct {
	ID             string `csv:"Id"`
	Link           string `csv:"Link"`
	KPI            string `csv:"KPI"`
	Responsible    string `csv:"Responsible"`
	Region         string `csv:"Region"`
	Market         string `csv:"Market"`
	Site           string `csv:"Site"`
	USD            string `csv:"USD"`
	SiterraProject string `csv:"Siterra Project"`
	Customer       string `csv:"Customer"`
	Product        string `csv:"Product"`
	Stage          string `csv:"Stage"`
	CreatedDate    string `csv:"CreatedDate"`
	CloseDate      string `csv:"CloseDate"`
	Revision       string `csv:"Revision"`
	Description    string `csv:"Descripcion"`
}

// requiredColumns is the full expected header set. Missing columns are
// logged, not fatal, since partial exports are still analyzable.
var requiredColumns = []string{
	"Id", "Link", "KPI", "Responsible", "Region", "Market", "Site", "USD",
	"Siterra Project", "Customer", "Product", "Stage", "CreatedDate",
	"CloseDate", "Revision", "Descripcion",
}

// dateLayouts are tried in order when parsing export dates.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"1/2/2006",
	"02-01-2006",
}

// Loader reads exports from a raw directory and archives processed files.
type Loader struct {
	rawDir       string
	processedDir string
}

// New returns a Loader over the given raw and processed directories.
func New(rawDir, processedDir string) *Loader {
	return &Loader{rawDir: rawDir, processedDir: processedDir}
}

// Load reads one CSV export into a snapshot. Rows with an empty Id are
// dropped; duplicate ids keep the first occurrence.
func (l *Loader) Load(path string) (*model.Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: open %s", path)
	}
	defer f.Close()

	snap, err := l.Read(f)
	if err != nil {
		return nil, eris.Wrapf(err, "loader: read %s", path)
	}
	zap.L().Info("loaded opportunity export",
		zap.String("file", path),
		zap.Int("records", snap.Len()))
	return snap, nil
}

// Read decodes CSV data from r into a snapshot.
func (l *Loader) Read(r io.Reader) (*model.Snapshot, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, eris.Wrap(err, "loader: read header")
	}
	warnMissingColumns(dec.Header())

	var records []model.Opportunity
	dropped := 0
	for {
		var row rawRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "loader: decode row")
		}
		o := normalize(row)
		if o.ID == "" {
			dropped++
			continue
		}
		records = append(records, o)
	}
	if dropped > 0 {
		zap.L().Warn("dropped rows without an id", zap.Int("count", dropped))
	}
	return model.NewSnapshot(records), nil
}

func warnMissingColumns(header []string) {
	present := make(map[string]struct{}, len(header))
	for _, h := range header {
		present[h] = struct{}{}
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := present[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		zap.L().Warn("export is missing columns", zap.Strings("columns", missing))
	}
}

// normalize converts a raw row to a typed record: dates that do not parse
// become nil, amounts that do not parse become 0, and an empty responsible
// becomes the Unassigned sentinel.
func normalize(row rawRow) model.Opportunity {
	responsible := strings.TrimSpace(row.Responsible)
	if responsible == "" {
		responsible = model.Unassigned
	}
	return model.Opportunity{
		ID:             strings.TrimSpace(row.ID),
		Link:           strings.TrimSpace(row.Link),
		KPI:            strings.TrimSpace(row.KPI),
		Responsible:    responsible,
		Region:         strings.TrimSpace(row.Region),
		Market:         strings.TrimSpace(row.Market),
		Site:           strings.TrimSpace(row.Site),
		USD:            parseUSD(row.USD),
		SiterraProject: strings.TrimSpace(row.SiterraProject),
		Customer:       strings.TrimSpace(row.Customer),
		Product:        strings.TrimSpace(row.Product),
		Stage:          strings.TrimSpace(row.Stage),
		CreatedDate:    parseDate(row.CreatedDate),
		CloseDate:      parseDate(row.CloseDate),
		Revision:       strings.TrimSpace(row.Revision),
		Description:    strings.TrimSpace(row.Description),
	}
}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	zap.L().Debug("unparseable date", zap.String("value", s))
	return nil
}

func parseUSD(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// LatestFile returns the most recently modified CSV in the raw directory,
// or an empty string when there are none.
func (l *Loader) LatestFile() (string, error) {
	files, err := l.csvFiles()
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", nil
	}
	return files[0], nil
}

// PreviousFile returns the most recent CSV other than current, for
// comparison runs. Empty when current is the only export.
func (l *Loader) PreviousFile(current string) (string, error) {
	files, err := l.csvFiles()
	if err != nil {
		return "", err
	}
	currentAbs, _ := filepath.Abs(current)
	for _, f := range files {
		abs, _ := filepath.Abs(f)
		if abs != currentAbs {
			return f, nil
		}
	}
	return "", nil
}

// csvFiles lists the raw directory's CSVs newest first.
func (l *Loader) csvFiles() ([]string, error) {
	entries, err := os.ReadDir(l.rawDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "loader: read dir %s", l.rawDir)
	}

	type fileInfo struct {
		path    string
		modTime time.Time
	}
	var files []fileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(l.rawDir, e.Name()),
			modTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.After(files[j].modTime)
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

// Archive moves a processed export into the processed directory and returns
// its new path.
func (l *Loader) Archive(path string) (string, error) {
	if err := os.MkdirAll(l.processedDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "loader: create %s", l.processedDir)
	}
	dest := filepath.Join(l.processedDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		return "", eris.Wrapf(err, "loader: archive %s", path)
	}
	zap.L().Info("archived export", zap.String("file", dest))
	return dest, nil
}

// SaveCSV writes a snapshot back out in the export column layout, so fetched
// data round-trips through Load.
func (l *Loader) SaveCSV(snap *model.Snapshot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return eris.Wrapf(err, "loader: create %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "loader: create %s", path)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	enc := csvutil.NewEncoder(cw)
	for i := range snap.Records {
		if err := enc.Encode(toRaw(&snap.Records[i])); err != nil {
			return eris.Wrap(err, "loader: encode row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "loader: flush csv")
	}
	zap.L().Info("saved export", zap.String("file", path), zap.Int("records", snap.Len()))
	return nil
}

func toRaw(o *model.Opportunity) rawRow {
	return rawRow{
		ID:             o.ID,
		Link:           o.Link,
		KPI:            o.KPI,
		Responsible:    o.Responsible,
		Region:         o.Region,
		Market:         o.Market,
		Site:           o.Site,
		USD:            strconv.FormatFloat(o.USD, 'f', 2, 64),
		SiterraProject: o.SiterraProject,
		Customer:       o.Customer,
		Product:        o.Product,
		Stage:          o.Stage,
		CreatedDate:    formatDate(o.CreatedDate),
		CloseDate:      formatDate(o.CloseDate),
		Revision:       o.Revision,
		Description:    o.Description,
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
