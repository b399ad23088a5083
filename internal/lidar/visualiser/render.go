// Package visualiser renders a projected lidar scan as a top-down polar
// scatter: a PNG via gonum/plot and an interactive HTML page via go-echarts.
package visualiser

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/racecar-sim/internal/lidar"
)

// EChartsAssetsHost is where the HTML page loads echarts.min.js from.
var EChartsAssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// Options describe one rendered chart.
type Options struct {
	Title string
	// Range is the half-width of the square plot in display units.
	// Zero sizes the plot to the furthest point.
	Range float64
	// Size is the PNG edge length.
	Size vg.Length
}

func (o Options) withDefaults(points []lidar.ScanPoint) Options {
	if o.Title == "" {
		o.Title = "LiDAR scan"
	}
	if o.Size <= 0 {
		o.Size = 6 * vg.Inch
	}
	if o.Range <= 0 {
		for _, p := range points {
			o.Range = max(o.Range, p.Distance)
		}
		if o.Range == 0 {
			o.Range = 1
		}
	}
	return o
}

// WritePNG draws the points, the sensor origin and a forward marker.
func WritePNG(w io.Writer, points []lidar.ScanPoint, o Options) error {
	o = o.withDefaults(points)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s (%d points)", o.Title, len(points))
	p.X.Label.Text = "X (right)"
	p.Y.Label.Text = "Y (forward)"
	p.X.Min, p.X.Max = -o.Range, o.Range
	p.Y.Min, p.Y.Max = -o.Range, o.Range
	p.Add(plotter.NewGrid())

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i] = plotter.XY{X: pt.X, Y: pt.Y}
	}
	if len(xys) > 0 {
		sc, err := plotter.NewScatter(xys)
		if err != nil {
			return fmt.Errorf("scan scatter: %w", err)
		}
		sc.GlyphStyle.Color = color.RGBA{R: 220, G: 40, B: 40, A: 255}
		sc.GlyphStyle.Radius = vg.Points(1)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		p.Add(sc)
	}

	origin, err := plotter.NewScatter(plotter.XYs{{X: 0, Y: 0}, {X: 0, Y: o.Range * 0.05}})
	if err != nil {
		return fmt.Errorf("origin marker: %w", err)
	}
	origin.GlyphStyle.Color = color.RGBA{B: 200, A: 255}
	origin.GlyphStyle.Radius = vg.Points(3)
	origin.GlyphStyle.Shape = draw.TriangleGlyph{}
	p.Add(origin)

	wt, err := p.WriterTo(o.Size, o.Size, "png")
	if err != nil {
		return fmt.Errorf("png writer: %w", err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write png: %w", err)
	}
	return nil
}

// WriteHTML renders an interactive scatter page coloured by distance.
func WriteHTML(w io.Writer, points []lidar.ScanPoint, o Options) error {
	o = o.withDefaults(points)

	data := make([]opts.ScatterData, 0, len(points))
	for _, pt := range points {
		data = append(data, opts.ScatterData{
			Value: []interface{}{pt.X, pt.Y, pt.Distance, pt.Index},
		})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: o.Title, Theme: "dark", Width: "900px", Height: "900px", AssetsHost: EChartsAssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: o.Title, Subtitle: fmt.Sprintf("points=%d range=%.1f", len(points), o.Range)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -o.Range, Max: o.Range, Name: "X (right)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -o.Range, Max: o.Range, Name: "Y (forward)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Dimension:  "2",
			Min:        0,
			Max:        float32(o.Range),
			InRange:    &opts.VisualMapInRange{Color: []string{"#d7191c", "#fdae61", "#ffffbf", "#a6d96a", "#1a9641"}},
		}),
	)
	scatter.AddSeries("scan", data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 4}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		return fmt.Errorf("render scatter: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
