package report

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wistonmejia-maker/kpi-cas-report/internal/kpi"
)

const (
	cardWidth  = 640
	cardHeight = 360
)

var (
	cardBackground = color.RGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff}
	cardHeaderBG   = color.RGBA{R: 0x15, G: 0x65, B: 0xc0, A: 0xff}
	cardInk        = color.RGBA{R: 0x21, G: 0x21, B: 0x21, A: 0xff}
	bandColors     = map[kpi.Band]color.RGBA{
		kpi.BandGreen:  {R: 0x2e, G: 0x7d, B: 0x32, A: 0xff},
		kpi.BandYellow: {R: 0xf9, G: 0xa8, B: 0x25, A: 0xff},
		kpi.BandRed:    {R: 0xc6, G: 0x28, B: 0x28, A: 0xff},
	}
)

// CardRenderer draws a compact PNG status card suitable for chat embeds.
type CardRenderer struct {
	outDir string
}

// NewCardRenderer returns a renderer writing into outDir.
func NewCardRenderer(outDir string) *CardRenderer {
	return &CardRenderer{outDir: outDir}
}

// Render draws the card and returns its path.
func (r *CardRenderer) Render(data *Data) (string, error) {
	img := image.NewRGBA(image.Rect(0, 0, cardWidth, cardHeight))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: cardBackground}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, cardWidth, 48), &image.Uniform{C: cardHeaderBG}, image.Point{}, draw.Src)

	drawText(img, 16, 30, color.White, "OPPORTUNITY KPI REPORT  "+data.GeneratedAt.Format("2006-01-02"))

	s := data.Summary
	y := 80
	drawText(img, 16, y, cardInk, fmt.Sprintf("Opportunities: %d", s.TotalOpportunities))
	y += 22
	drawText(img, 16, y, cardInk, "Pipeline USD:  "+usdPrinterCard(s.TotalUSD))
	y += 22
	drawText(img, 16, y, cardInk, fmt.Sprintf("Stagnant: %d   At risk: %d", s.StagnantCount, s.AtRiskCount))
	if data.Diff != nil {
		y += 22
		d := data.Diff.Summary
		drawText(img, 16, y, cardInk, fmt.Sprintf("New: %d   Removed: %d   Changed: %d",
			d.NewCount, d.RemovedCount, d.ChangedCount))
	}

	y += 34
	drawText(img, 16, y, cardInk, "KPI standing:")
	y += 10
	for _, c := range data.KPIs {
		if y > cardHeight-28 {
			break
		}
		y += 22
		swatch, ok := bandColors[c.Band]
		if !ok {
			swatch = bandColors[kpi.BandRed]
		}
		draw.Draw(img, image.Rect(16, y-12, 30, y+2), &image.Uniform{C: swatch}, image.Point{}, draw.Src)
		drawText(img, 40, y, cardInk, fmt.Sprintf("%-14s %4d  %s", c.Code, c.Count, c.Severity))
	}

	path := filepath.Join(r.outDir, fmt.Sprintf("kpi_card_%s.png", data.timestamp()))
	if err := os.MkdirAll(r.outDir, 0o755); err != nil {
		return "", eris.Wrapf(err, "report: create %s", r.outDir)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", eris.Wrapf(err, "report: create %s", path)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return "", eris.Wrap(err, "report: encode card png")
	}
	zap.L().Info("wrote status card", zap.String("file", path))
	return path, nil
}

func drawText(img *image.RGBA, x, y int, c color.Color, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(text)
}

func usdPrinterCard(v float64) string {
	return htmlPrinter.Sprintf("$%.2f", v)
}
