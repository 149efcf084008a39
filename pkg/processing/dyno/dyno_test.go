//nolint:funlen // ok for tests
package dyno

import (
	"bytes"
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

// pull builds a table with constant acceleration of mphPerSec at 10 Hz,
// rpm rising by rpmStep per sample.
func pull(n int, mphPerSec, startRPM, rpmStep, pedal float64) *datalog.Table {
	tbl := &datalog.Table{Headers: []string{
		"Offset", "Vehicle Speed (SAE)", "Engine RPM (SAE)", "Accelerator Position D (SAE)",
	}}
	for i := range n {
		ts := float64(i) * 0.1
		tbl.Rows = append(tbl.Rows, datalog.Row{
			"Offset":                       datalog.Num(ts),
			"Vehicle Speed (SAE)":          datalog.Num(20 + mphPerSec*ts),
			"Engine RPM (SAE)":             datalog.Num(startRPM + rpmStep*float64(i)),
			"Accelerator Position D (SAE)": datalog.Num(pedal),
		})
	}
	return tbl
}

func TestSynthesizeConstantAcceleration(t *testing.T) {
	n := 30
	weight := 3217.4 // 100 slugs
	tbl := pull(n, 10, 2000, 100, 100)
	c, err := NewSynthesizer().Synthesize(tbl, null.From(weight))
	require.NoError(t, err)
	curve, ok := c.(*model.AbsoluteCurve)
	require.True(t, ok)
	require.Len(t, curve.Points, n)

	force := weight / gravity * 10 * ftpsPerMph
	hpAt := func(i int) float64 {
		return force * (20 + 10*float64(i)*0.1) * ftpsPerMph / hpFtLbs
	}
	for i := 4; i <= n-5; i++ {
		assert.InDelta(t, hpAt(i), curve.Points[i].Power, 1e-6, "point %d", i)
		assert.Equal(t, 2000+100*float64(i), curve.Points[i].RPM)
	}
	assert.Equal(t, curve.Points[n-1].RPM, curve.PeakHP.RPM)
	assert.LessOrEqual(t, curve.PeakHP.Value, hpAt(n-1))
	assert.GreaterOrEqual(t, curve.PeakHP.Value, hpAt(n-5))
	assert.Equal(t, model.Sweep{StartRow: 0, EndRow: n - 1, Samples: n, StartRPM: 2000, EndRPM: 4900}, curve.Sweep)
	assert.Equal(t, weight, curve.WeightLbs)
}

func TestSynthesizeRelative(t *testing.T) {
	c, err := NewSynthesizer().Synthesize(pull(30, 10, 2000, 100, 100), null.Val[float64]{})
	require.NoError(t, err)
	curve, ok := c.(*model.RelativeCurve)
	require.True(t, ok)
	assert.Equal(t, model.CurveRelative, curve.Kind())
	assert.LessOrEqual(t, curve.PeakScore.Value, 100.0)
	assert.Greater(t, curve.PeakScore.Value, 90.0)

	// zero weight is treated as unknown
	c, err = NewSynthesizer().Synthesize(pull(30, 10, 2000, 100, 100), null.From(0.0))
	require.NoError(t, err)
	assert.Equal(t, model.CurveRelative, c.Kind())
}

func TestTorqueEqualsPowerAt5252(t *testing.T) {
	th := config.DefaultThresholds()
	th.RPMBinWidth = 4
	c, err := NewSynthesizer(WithThresholds(th)).Synthesize(
		pull(20, 8, 5152, 20, 100), null.From(3500.0))
	require.NoError(t, err)
	found := false
	for _, p := range c.CurvePoints() {
		if p.RPM == 5252 {
			found = true
			assert.InDelta(t, p.Power, p.Torque.MustGet(), 1e-9)
		}
	}
	assert.True(t, found)
	assert.True(t, Torque(100, 0).IsNull())
	assert.Equal(t, null.From(200.0), Torque(100, 2626))
}

func TestSynthesizeErrors(t *testing.T) {
	noRPM := &datalog.Table{Headers: []string{"Offset", "Vehicle Speed"}}
	tests := []struct {
		name string
		tbl  *datalog.Table
		want error
	}{
		{"no rpm column", noRPM, ErrRPMRequired},
		{"too few samples", pull(2, 10, 2000, 100, 100), ErrInsufficientData},
		{"falling rpm", pull(30, 10, 6000, -100, 100), ErrNoCleanSweep},
		{"part throttle", pull(30, 10, 2000, 100, 50), ErrNoCleanSweep},
		{"sweep too short", pull(9, 10, 2000, 100, 100), ErrNoCleanSweep},
		{"no acceleration", pull(30, 0, 2000, 100, 100), ErrNoPower},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSynthesizer().Synthesize(tt.tbl, null.Val[float64]{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSelectSweep(t *testing.T) {
	rpm := []float64{}
	for i := range 12 {
		rpm = append(rpm, 1000+float64(i)*100)
	}
	rpm = append(rpm, 500)
	for i := range 15 {
		rpm = append(rpm, 600+float64(i)*100)
	}
	in := &Input{RPM: rpm}
	from, to, ok := NewSynthesizer().selectSweep(in)
	assert.True(t, ok)
	assert.Equal(t, 12, from, "the longer second run wins")
	assert.Equal(t, 27, to)

	// the gate splits the second run into two short ones
	in.Gate = make([]datalog.Value, len(rpm))
	for i := range in.Gate {
		in.Gate[i] = datalog.Num(90)
	}
	in.Gate[20] = datalog.Value{}
	from, to, ok = NewSynthesizer().selectSweep(in)
	assert.True(t, ok)
	assert.Equal(t, 0, from)
	assert.Equal(t, 11, to)
}

func TestMovingAverage(t *testing.T) {
	assert.Equal(t, []float64{2, 2.5, 3, 3.5, 4}, MovingAverage([]float64{1, 2, 3, 4, 5}, 5))
	assert.Equal(t, []float64{1, 2}, MovingAverage([]float64{1, 2}, 1))
	assert.Empty(t, MovingAverage(nil, 5))
}

func TestCenteredDiff(t *testing.T) {
	got := CenteredDiff([]float64{0, 1, 4, 9}, []float64{0, 1, 2, 3})
	assert.Equal(t, []float64{1, 2, 4, 5}, got)
	assert.Equal(t, []float64{0, 0}, CenteredDiff([]float64{1, 2}, []float64{1, 1}))
}

func TestBin(t *testing.T) {
	rpm, values := Bin([]float64{1076, 1010, 1030, 1074}, []float64{4, 1, 2, 3}, 50)
	assert.Equal(t, []float64{1000, 1050, 1100}, rpm)
	assert.Equal(t, []float64{1, 2.5, 4}, values)
}

func TestPeaks(t *testing.T) {
	points := []model.CurvePoint{
		{RPM: 0, Power: 0},
		{RPM: 2000, Power: 50, Torque: null.From(131.3)},
		{RPM: 3000, Power: 70, Torque: null.From(122.5)},
		{RPM: 4000, Power: 70, Torque: null.From(91.9)},
	}
	p, tq := Peaks(points)
	assert.Equal(t, model.CurvePeak{RPM: 3000, Value: 70}, p)
	assert.Equal(t, model.CurvePeak{RPM: 2000, Value: 131.3}, tq)
}

func TestRenderPNG(t *testing.T) {
	c, err := NewSynthesizer().Synthesize(pull(30, 10, 2000, 100, 100), null.From(3000.0))
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, c))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))

	err = RenderPNG(&buf, &model.RelativeCurve{Points: []model.CurvePoint{{RPM: 1000}}})
	assert.ErrorIs(t, err, ErrTooFewPoints)
}
