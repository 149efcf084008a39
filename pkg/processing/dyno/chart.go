package dyno

import (
	"errors"
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

var ErrTooFewPoints = errors.New("at least two curve points required for a chart")

// RenderPNG draws power and torque over rpm, torque on the secondary axis.
func RenderPNG(w io.Writer, c model.DynoCurve) error {
	points := c.CurvePoints()
	if len(points) < 2 {
		return ErrTooFewPoints
	}
	powerName, torqueName, title := "Power (hp)", "Torque (lb-ft)", "Dyno"
	if c.Kind() == model.CurveRelative {
		powerName, torqueName, title = "Power score", "Torque score", "Relative dyno"
	}
	if a, ok := c.(*model.AbsoluteCurve); ok {
		title = fmt.Sprintf("Dyno %.0f lbs, peak %.1f hp @ %.0f rpm",
			a.WeightLbs, a.PeakHP.Value, a.PeakHP.RPM)
	}

	xs := make([]float64, 0, len(points))
	ys := make([]float64, 0, len(points))
	txs := []float64{}
	tys := []float64{}
	for _, p := range points {
		xs = append(xs, p.RPM)
		ys = append(ys, p.Power)
		if tq, ok := p.Torque.Get(); ok {
			txs = append(txs, p.RPM)
			tys = append(tys, tq)
		}
	}
	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    powerName,
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: drawing.ColorRed, StrokeWidth: 2},
		},
	}
	if len(txs) >= 2 {
		series = append(series, chart.ContinuousSeries{
			Name:    torqueName,
			YAxis:   chart.YAxisSecondary,
			XValues: txs,
			YValues: tys,
			Style:   chart.Style{StrokeColor: drawing.ColorBlue, StrokeWidth: 2},
		})
	}
	ch := chart.Chart{
		Title:          title,
		Background:     chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:          chart.XAxis{Name: "RPM"},
		YAxis:          chart.YAxis{Name: powerName},
		YAxisSecondary: chart.YAxis{Name: torqueName},
		Series:         series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	return ch.Render(chart.PNG, w)
}
