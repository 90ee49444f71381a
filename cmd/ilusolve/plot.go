// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"errors"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// historyPoints returns the relative residual norms that can be shown on a
// logarithmic axis.
func historyPoints(history []float64, bnorm float64) plotter.XYs {
	pts := make(plotter.XYs, 0, len(history))
	for i, r := range history {
		if r <= 0 {
			continue
		}
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: r / bnorm})
	}
	return pts
}

// plotHistory saves the convergence history of a solve to name. The image
// format is taken from the file extension.
func plotHistory(name, title string, history []float64, bnorm float64) error {
	pts := historyPoints(history, bnorm)
	if len(pts) == 0 {
		return errors.New("no residual history to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "iteration"
	p.Y.Label.Text = "|r| / |b|"
	p.Y.Scale = plot.LogScale{}
	p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	line, err := plotter.NewLine(pts)
	if err != nil {
		return err
	}
	p.Add(line)

	return p.Save(6*vg.Inch, 4*vg.Inch, name)
}
