package web

import (
	"bytes"
	"fmt"
	"html/template"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/rs/zerolog/log"
)

// ROCPlot renders the per fold ROC curves as an inline SVG.
func (p *RunPage) ROCPlot(width, height int) template.HTML {
	plt := newPlot()
	plt.Title.Text = "ROC"
	plt.X.Label.Text = "false positive rate"
	plt.Y.Label.Text = "true positive rate"
	plt.X.Min, plt.X.Max = 0, 1
	plt.Y.Min, plt.Y.Max = 0, 1
	for i, res := range p.Run.Results {
		line, err := plotter.NewLine(curvePoints(res.FPR, res.TPR))
		if err != nil {
			log.Error().Err(err).Msg("roc plot")
			continue
		}
		line.Width = 2
		line.Color = plotutil.Color(i)
		plt.Add(line)
		plt.Legend.Add(fmt.Sprintf("fold %d auc=%.3f", res.Fold, res.Metrics.AUC), line)
	}
	diag, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 1, Y: 1}})
	if err == nil {
		diag.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		plt.Add(diag)
	}
	return writePlot(plt, width, height)
}

func curvePoints(xs, ys []float64) plotter.XYs {
	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X, pts[i].Y = xs[i], ys[i]
	}
	return pts
}

func newPlot() *plot.Plot {
	p := plot.New()
	p.X.Padding, p.Y.Padding = 0, 0
	p.X.Tick.Label.Font.Size = vg.Points(10)
	p.Y.Tick.Label.Font.Size = vg.Points(10)
	p.Legend.Top = true
	p.Legend.TextStyle.Font.Size = vg.Points(12)
	p.Add(plotter.NewGrid())
	return p
}

func writePlot(p *plot.Plot, w, h int) template.HTML {
	var buf bytes.Buffer
	writer, err := p.WriterTo(vg.Points(float64(w)), vg.Points(float64(h)), "svg")
	if err != nil {
		log.Error().Err(err).Msg("error writing plot")
		return ""
	}
	writer.WriteTo(&buf)
	return template.HTML(buf.String())
}
