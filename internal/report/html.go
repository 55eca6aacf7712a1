package report

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/kpi"
)

// HTMLRenderer writes the executive summary page.
type HTMLRenderer struct {
	outDir string
	tmpl   *template.Template
}

// NewHTMLRenderer returns a renderer writing into outDir.
func NewHTMLRenderer(outDir string) *HTMLRenderer {
	return &HTMLRenderer{
		outDir: outDir,
		tmpl:   template.Must(template.New("summary").Funcs(tmplFuncs).Parse(summaryTemplate)),
	}
}

// Render writes the executive summary and returns its path.
func (r *HTMLRenderer) Render(data *Data) (string, error) {
	path := filepath.Join(r.outDir, fmt.Sprintf("kpi_summary_%s.html", data.timestamp()))
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create %s", r.outDir)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close()

	if err := r.tmpl.Execute(f, data); err != nil {
		return "", eris.Wrap(err, "report: execute summary template")
	}
	zap.L().Info("wrote html summary", zap.String("file", path))
	return path, nil
}

var htmlPrinter = message.NewPrinter(language.English)

var tmplFuncs = template.FuncMap{
	"usd": func(v float64) string {
		return htmlPrinter.Sprintf("$%.2f", v)
	},
	"pct": func(v float64) string {
		return fmt.Sprintf("%.1f%%", v)
	},
	"bandColor": func(b kpi.Band) string {
		switch b {
		case kpi.BandGreen:
			return "#2e7d32"
		case kpi.BandYellow:
			return "#f9a825"
		default:
			return "#c62828"
		}
	},
}

const summaryTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>KPI Report {{.GeneratedAt.Format "2006-01-02"}}</title>
<style>
body { font-family: "Segoe UI", Arial, sans-serif; margin: 2rem; color: #212121; }
h1 { border-bottom: 3px solid #1565c0; padding-bottom: .3rem; }
table { border-collapse: collapse; margin: 1rem 0; min-width: 40rem; }
th { background: #1565c0; color: #fff; padding: .4rem .8rem; text-align: left; }
td { border-bottom: 1px solid #e0e0e0; padding: .4rem .8rem; }
.cards { display: flex; gap: 1rem; flex-wrap: wrap; }
.card { background: #f5f5f5; border-radius: 6px; padding: 1rem 1.5rem; min-width: 10rem; }
.card .num { font-size: 1.8rem; font-weight: bold; }
.badge { color: #fff; border-radius: 4px; padding: .1rem .5rem; font-size: .85rem; }
.delta-up { color: #2e7d32; } .delta-down { color: #c62828; }
</style>
</head>
<body>
<h1>Opportunity KPI Report</h1>
<p>Generated {{.GeneratedAt.Format "2006-01-02 15:04"}} from <code>{{.DataFile}}</code></p>

<div class="cards">
  <div class="card"><div class="num">{{.Summary.TotalOpportunities}}</div>Opportunities</div>
  <div class="card"><div class="num">{{usd .Summary.TotalUSD}}</div>Pipeline value</div>
  <div class="card"><div class="num">{{.Summary.StagnantCount}}</div>Stagnant</div>
  <div class="card"><div class="num">{{.Summary.AtRiskCount}}</div>At risk</div>
</div>

{{if .Diff}}
<h2>Since previous export</h2>
<div class="cards">
  <div class="card"><div class="num">{{.Diff.Summary.NewCount}}</div>New</div>
  <div class="card"><div class="num">{{.Diff.Summary.RemovedCount}}</div>Removed</div>
  <div class="card"><div class="num">{{.Diff.Summary.ChangedCount}}</div>Changed</div>
  <div class="card">
    <div class="num {{if ge .Diff.Summary.USDDelta 0.0}}delta-up{{else}}delta-down{{end}}">{{usd .Diff.Summary.USDDelta}}</div>
    USD delta
  </div>
</div>
{{end}}

<h2>KPI standing</h2>
<table>
<tr><th>Code</th><th>Name</th><th>Count</th><th>Severity</th><th>Band</th></tr>
{{range .KPIs}}
<tr>
  <td>{{.Code}}</td>
  <td>{{.Name}}</td>
  <td>{{.Count}}</td>
  <td>{{.Severity}}</td>
  <td><span class="badge" style="background:{{bandColor .Band}}">{{.Band}}</span></td>
</tr>
{{end}}
</table>

<h2>By responsible</h2>
<table>
<tr><th>Responsible</th><th>Opportunities</th><th>Total USD</th><th>Stagnant</th><th>At risk</th></tr>
{{range .ByResponsible}}
<tr><td>{{.Name}}</td><td>{{.TotalOpportunities}}</td><td>{{usd .TotalUSD}}</td><td>{{.StagnantCount}}</td><td>{{.AtRiskCount}}</td></tr>
{{end}}
</table>

<h2>Pipeline stages</h2>
<table>
<tr><th>Stage</th><th>Count</th><th>Total USD</th><th>Share</th></tr>
{{range .Stages}}
<tr><td>{{.Stage}}</td><td>{{.Count}}</td><td>{{usd .TotalUSD}}</td><td>{{pct .Percentage}}</td></tr>
{{end}}
</table>

{{if .Alerts}}
<h2>Needs attention</h2>
<table>
<tr><th>Id</th><th>Responsible</th><th>Stage</th><th>USD</th><th>Reason</th></tr>
{{range .Alerts}}
<tr>
  <td>{{if .Opportunity.Link}}<a href="{{.Opportunity.Link}}">{{.Opportunity.ID}}</a>{{else}}{{.Opportunity.ID}}{{end}}</td>
  <td>{{.Opportunity.Responsible}}</td>
  <td>{{.Opportunity.Stage}}</td>
  <td>{{usd .Opportunity.USD}}</td>
  <td>{{.Reason}}</td>
</tr>
{{end}}
</table>
{{end}}
</body>
</html>
`
