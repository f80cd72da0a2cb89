// Package chart renders price history line charts to PNG files.
package chart

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/minhyannv/financial-analyst-go/pkg/market"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// ErrNoData is returned when a series has no bars to draw.
var ErrNoData = errors.New("no data to plot")

const (
	DefaultWidth  = 10 * vg.Inch
	DefaultHeight = 5 * vg.Inch
	DefaultDPI    = 100
)

// Renderer draws closing-price charts into Dir.
type Renderer struct {
	Dir    string
	Width  vg.Length
	Height vg.Length
	DPI    int
}

// NewRenderer returns a Renderer writing into dir with the default figure size.
func NewRenderer(dir string) *Renderer {
	return &Renderer{Dir: dir, Width: DefaultWidth, Height: DefaultHeight, DPI: DefaultDPI}
}

// Filename is the chart file name for ticker.
func Filename(ticker string) string {
	return ticker + "_price_chart.png"
}

// Render draws the close price of series and writes <ticker>_price_chart.png
// into the renderer's directory, replacing any existing file. It returns the
// file name.
func (r *Renderer) Render(ticker string, series market.PriceSeries) (string, error) {
	if series.Empty() {
		return "", ErrNoData
	}
	filename := Filename(ticker)
	path, err := r.outputPath(filename)
	if err != nil {
		return "", err
	}

	p, err := r.newPlot(ticker, series)
	if err != nil {
		return "", err
	}

	width, height, dpi := r.Width, r.Height, r.DPI
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	canvas := vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi))
	p.Draw(draw.New(canvas))

	if err := writePNG(path, canvas); err != nil {
		return "", err
	}
	return filename, nil
}

func (r *Renderer) newPlot(ticker string, series market.PriceSeries) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s Stock Price History", ticker)
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Price (USD)"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(series.Bars))
	for i, bar := range series.Bars {
		pts[i].X = float64(bar.Date.Unix())
		pts[i].Y = bar.Close
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, fmt.Errorf("build line: %w", err)
	}
	p.Add(line)
	return p, nil
}

func (r *Renderer) outputPath(filename string) (string, error) {
	dir := r.Dir
	if dir == "" {
		dir = "."
	}
	if filepath.Base(filename) != filename || hasParentTraversal(filename) {
		return "", fmt.Errorf("invalid chart file name: %q", filename)
	}
	path, err := validatePathWithin(filepath.Join(dir, filename), dir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create chart dir: %w", err)
	}
	return path, nil
}

// writePNG writes the canvas to path. The file is always closed, and removed
// if encoding fails.
func writePNG(path string, canvas *vgimg.Canvas) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close chart file: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	png := vgimg.PngCanvas{Canvas: canvas}
	if _, err := png.WriteTo(f); err != nil {
		return fmt.Errorf("encode chart: %w", err)
	}
	return nil
}
