package report

import (
	"errors"
	"image/color"
	"io"

	pkgerrors "github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/charlie0129/rtdconv/pkg/conversion"
)

// ErrNothingToPlot is returned when no row has a calculated temperature.
var ErrNothingToPlot = errors.New("no converted rows to plot")

// ErrorPlot draws conversion error against measured temperature as a PNG.
func ErrorPlot(w io.Writer, rows []conversion.Row) error {
	var pts plotter.XYs
	for _, r := range rows {
		if r.OK() {
			pts = append(pts, plotter.XY{X: r.Measured, Y: r.Error})
		}
	}
	if len(pts) == 0 {
		return ErrNothingToPlot
	}

	p := plot.New()
	p.Title.Text = "Error vs Measured Temperature"
	p.X.Label.Text = "Measured Temperature (°C)"
	p.Y.Label.Text = "Error (°C)"
	p.Add(plotter.NewGrid())

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to build scatter")
	}
	s.GlyphStyle.Color = color.RGBA{B: 255, A: 255}
	p.Add(s)
	p.Legend.Add("Error", s)

	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return pkgerrors.Wrapf(err, "failed to render plot")
	}
	if _, err := wt.WriteTo(w); err != nil {
		return pkgerrors.Wrapf(err, "failed to write plot")
	}
	return nil
}
