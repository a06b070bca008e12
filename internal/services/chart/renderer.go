package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"

	"TrendPulse/internal/domain/models"
	domsvc "TrendPulse/internal/domain/service"
)

var ErrEmptySeries = errors.New("cannot render an empty series")

var (
	lineColor  = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	fillColor  = color.RGBA{R: 31, G: 119, B: 180, A: 77}
	labelColor = color.RGBA{G: 128, A: 255}
)

// Options sizes the image and titles it after the window length.
type Options struct {
	WidthInches  float64
	HeightInches float64
	WindowDays   int
}

// PNGRenderer draws the interest line chart with gonum/plot.
type PNGRenderer struct {
	opts Options
}

func NewPNGRenderer(opts Options) *PNGRenderer {
	if opts.WidthInches <= 0 {
		opts.WidthInches = 12
	}
	if opts.HeightInches <= 0 {
		opts.HeightInches = 8
	}
	if opts.WindowDays <= 0 {
		opts.WindowDays = 7
	}
	return &PNGRenderer{opts: opts}
}

var _ domsvc.ChartRenderer = (*PNGRenderer)(nil)

func (r *PNGRenderer) ContentType() string { return "image/png" }

// Render plots series with a translucent fill and annotates the last point with the
// volume and growth figures.
func (r *PNGRenderer) Render(ctx context.Context, series models.TimeSeries, payload models.DisplayPayload) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if series.Empty() {
		return nil, ErrEmptySeries
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Google Search Interest Over the Last %d Days", r.opts.WindowDays)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Search Interest"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01-02"}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, series.Len())
	for i, pt := range series.Points {
		pts[i].X = float64(pt.Time.Unix())
		pts[i].Y = pt.Value
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("build line: %w", err)
	}
	line.Color = lineColor
	line.Width = vg.Points(2)
	line.FillColor = fillColor
	p.Add(line)
	p.Legend.Add(payload.Keyword, line)
	p.Legend.Top = true
	p.Legend.Left = true

	// headroom above the peak for the annotation
	p.Y.Min = 0
	p.Y.Max = series.Max() * 1.2
	if p.Y.Max == 0 {
		p.Y.Max = 1
	}

	last, _ := series.Last()
	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: float64(last.Time.Unix()), Y: last.Value}},
		Labels: []string{fmt.Sprintf("Volume: %s\nGrowth: %s", payload.Volume, payload.Growth)},
	})
	if err != nil {
		return nil, fmt.Errorf("build annotation: %w", err)
	}
	labels.TextStyle[0].Color = labelColor
	labels.TextStyle[0].XAlign = text.XRight
	labels.Offset = vg.Point{X: -vg.Points(6), Y: vg.Points(6)}
	p.Add(labels)

	wt, err := p.WriterTo(vg.Length(r.opts.WidthInches)*vg.Inch, vg.Length(r.opts.HeightInches)*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write png: %w", err)
	}
	return buf.Bytes(), nil
}
