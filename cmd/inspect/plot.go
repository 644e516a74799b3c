package main

import (
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// maxBars is the number of bars drawn; datasets with more labels only show their most
// frequent ones.
const maxBars = 40

// plotLabels saves a bar chart of the label counts to outPath.
func plotLabels(outPath, title string, names []string, counts []int) error {
	names, counts = topCounts(names, counts, maxBars)
	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c)
	}

	p := plot.New()
	p.Title.Text = title
	p.Y.Label.Text = "examples"

	bars, err := plotter.NewBarChart(values, vg.Points(10))
	if err != nil {
		return errors.Wrap(err, "failed to create bar chart")
	}
	bars.Color = color.RGBA{R: 20, G: 80, B: 200, A: 220}
	bars.LineStyle.Width = vg.Length(0)
	p.Add(bars)
	p.Add(plotter.NewGrid())
	p.NominalX(names...)
	p.X.Tick.Label.Rotation = 1.2
	p.X.Tick.Label.XAlign = -1

	if err := ensureDir(filepath.Dir(outPath)); err != nil {
		return errors.Wrapf(err, "failed to create directory for %q", outPath)
	}
	if err := p.Save(8*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return errors.Wrapf(err, "failed to save %q", outPath)
	}
	return nil
}

func ensureDir(path string) error {
	if path == "" {
		return nil
	}
	return os.MkdirAll(path, 0755)
}
