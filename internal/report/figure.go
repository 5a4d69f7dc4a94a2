package report

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
	"gonum.org/v1/plot/vg/vgpdf"
	"gonum.org/v1/plot/vg/vgsvg"
)

// Curve is one labelled series in a figure panel.
type Curve struct {
	Label string
	X     []float64
	Y     []float64
}

// Figure holds the data for the three panels. Observations[i] is drawn
// as points in the colour of Trajectories[i].
type Figure struct {
	Rates        []Curve
	Trajectories []Curve
	Observations []Curve
	Slices       []Curve
	SliceParam   string
}

var palette = []color.Color{
	color.RGBA{A: 255},
	color.RGBA{R: 220, A: 255},
	color.RGBA{R: 65, G: 105, B: 225, A: 255},
	color.RGBA{G: 140, B: 70, A: 255},
}

var dashes = [][]vg.Length{
	nil,
	{vg.Points(2), vg.Points(2)},
	{vg.Points(6), vg.Points(3)},
	{vg.Points(4), vg.Points(2), vg.Points(1), vg.Points(2)},
}

var widths = []vg.Length{vg.Points(1), vg.Points(1.25), vg.Points(2), vg.Points(1.5)}

// Plots builds the rate, trajectory and log-likelihood panels in order.
func (f *Figure) Plots() ([]*plot.Plot, error) {
	rates := plot.New()
	rates.X.Label.Text = "Time"
	rates.Y.Label.Text = "Production rate, p"
	if err := addLines(rates, f.Rates); err != nil {
		return nil, fmt.Errorf("rates panel: %w", err)
	}

	sims := plot.New()
	sims.X.Label.Text = "Time"
	sims.Y.Label.Text = "log10(V(t))"
	if err := addLines(sims, f.Trajectories); err != nil {
		return nil, fmt.Errorf("trajectory panel: %w", err)
	}
	for i, obs := range f.Observations {
		sc, err := plotter.NewScatter(xys(obs))
		if err != nil {
			return nil, fmt.Errorf("trajectory panel: %w", err)
		}
		sc.GlyphStyle.Color = palette[i%len(palette)]
		sc.GlyphStyle.Radius = vg.Points(2)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sims.Add(sc)
	}

	slices := plot.New()
	slices.X.Label.Text = f.SliceParam
	slices.Y.Label.Text = "Log-likelihood"
	if err := addLines(slices, f.Slices); err != nil {
		return nil, fmt.Errorf("slice panel: %w", err)
	}

	return []*plot.Plot{rates, sims, slices}, nil
}

// Save draws the panels side by side. The format follows the file
// extension: png, jpg, svg or pdf.
func (f *Figure) Save(path string, width, height vg.Length) error {
	c, err := newCanvas(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")), width, height)
	if err != nil {
		return err
	}

	plots, err := f.Plots()
	if err != nil {
		return err
	}

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(plots),
		PadX:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align([][]*plot.Plot{plots}, tiles, draw.New(c))
	for j, p := range plots {
		p.Draw(canvases[0][j])
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create figure: %w", err)
	}
	if _, err := c.WriteTo(out); err != nil {
		out.Close()
		return fmt.Errorf("cannot write figure: %w", err)
	}
	return out.Close()
}

func newCanvas(format string, w, h vg.Length) (vg.CanvasWriterTo, error) {
	switch format {
	case "png":
		return vgimg.PngCanvas{Canvas: vgimg.New(w, h)}, nil
	case "jpg", "jpeg":
		return vgimg.JpegCanvas{Canvas: vgimg.New(w, h)}, nil
	case "svg":
		return vgsvg.New(w, h), nil
	case "pdf":
		return vgpdf.New(w, h), nil
	case "":
		return nil, errors.New("figure path has no extension")
	default:
		return nil, fmt.Errorf("unsupported figure format: %s", format)
	}
}

func addLines(p *plot.Plot, curves []Curve) error {
	for i, c := range curves {
		l, err := plotter.NewLine(xys(c))
		if err != nil {
			return err
		}
		l.LineStyle.Color = palette[i%len(palette)]
		l.LineStyle.Dashes = dashes[i%len(dashes)]
		l.LineStyle.Width = widths[i%len(widths)]
		p.Add(l)
		if c.Label != "" {
			p.Legend.Add(c.Label, l)
		}
	}
	p.Legend.Top = true
	return nil
}

func xys(c Curve) plotter.XYs {
	n := min(len(c.X), len(c.Y))
	pts := make(plotter.XYs, n)
	for i := 0; i < n; i++ {
		pts[i].X = c.X[i]
		pts[i].Y = c.Y[i]
	}
	return pts
}
