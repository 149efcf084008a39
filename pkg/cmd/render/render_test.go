package render

import (
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

func TestFmtVal(t *testing.T) {
	assert.Equal(t, na, fmtVal(null.Val[float64]{}, 1, "psi"))
	assert.Equal(t, "12.3 psi", fmtVal(null.From(12.34), 1, "psi"))
	assert.Equal(t, "12", fmtVal(null.From(12.34), 0, ""))
	assert.Equal(t, "18.0 psi @ 5500 rpm", atRPM(null.From(18.0), null.From(5500.0), 1, "psi"))
	assert.Equal(t, na, atRPM(null.Val[float64]{}, null.From(5500.0), 1, "psi"))
}

func TestMetricsTable(t *testing.T) {
	m := &model.MetricsReport{
		Rows:             10,
		KnockPeak:        null.From(2.5),
		BaroKPa:          101.3,
		BaroSource:       "default",
		KnockSensorPeaks: map[string]float64{"Knock Sensor 2": 3.5, "Knock Sensor 1": 1.2},
		Misfires:         map[int]int{3: 2},
	}
	data := MetricsTable(m)
	assert.Equal(t, []string{"Metric", "Value"}, data[0])
	assert.Contains(t, data, []string{"Rows", "10"})
	assert.Contains(t, data, []string{"Knock retard peak", "2.5 °"})
	assert.Contains(t, data, []string{"Oil pressure min", na})
	assert.Contains(t, data, []string{"Barometric", "101.3 kPa (default)"})
	n := len(data)
	assert.Equal(t, []string{"Knock Sensor 1", "1.20 V"}, data[n-3])
	assert.Equal(t, []string{"Knock Sensor 2", "3.50 V"}, data[n-2])
	assert.Equal(t, []string{"Misfires cyl 3", "2"}, data[n-1])
}

func TestIntervalTable(t *testing.T) {
	assert.Nil(t, IntervalTable(nil))
	data := IntervalTable([]model.IntervalResult{
		{Band: "0-60", Duration: 4.123, StartTime: 1, EndTime: 5.123},
	})
	assert.Equal(t, pterm.TableData{
		{"Band", "Time", "Start", "End"},
		{"0-60", "4.12 s", "1.00", "5.12"},
	}, data)
}

func TestCurveTable(t *testing.T) {
	points := []model.CurvePoint{
		{RPM: 0, Power: 0},
		{RPM: 3000, Power: 150.26, Torque: null.From(263.04)},
	}
	abs := CurveTable(&model.AbsoluteCurve{Points: points})
	assert.Equal(t, []string{"RPM", "HP", "lb-ft"}, abs[0])
	assert.Equal(t, []string{"0", "0.0", na}, abs[1])
	assert.Equal(t, []string{"3000", "150.3", "263.0"}, abs[2])

	rel := CurveTable(&model.RelativeCurve{Points: points})
	assert.Equal(t, []string{"RPM", "Power score", "Torque score"}, rel[0])
	assert.Len(t, peakLines(&model.RelativeCurve{}), 3)
}
