package tracker

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// Series is a named sequence of tracked points
type Series struct {
	Name   string
	Points []Point
}

// PlotScores plots each series as a line of score against training
// iteration and saves the plot to filename. The image format is given
// by the extension of filename. Empty series are skipped.
func PlotScores(filename, title string, series ...Series) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Iteration"
	p.Y.Label.Text = "Score"

	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		points := make(plotter.XYs, len(s.Points))
		for j, point := range s.Points {
			points[j] = plotter.XY{
				X: float64(point.Iteration),
				Y: point.Score,
			}
		}

		line, err := plotter.NewLine(points)
		if err != nil {
			return fmt.Errorf("plotscores: series %v: %v", s.Name, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(s.Name, line)
	}

	if err := p.Save(8*vg.Inch, 5*vg.Inch, filename); err != nil {
		return fmt.Errorf("plotscores: %v", err)
	}
	return nil
}
