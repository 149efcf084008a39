//nolint:funlen // ok for tests
package metrics

import (
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

func vals(in ...any) []datalog.Value {
	ret := make([]datalog.Value, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case int:
			ret[i] = datalog.Num(float64(x))
		case float64:
			ret[i] = datalog.Num(x)
		}
	}
	return ret
}

func TestComputeBoost(t *testing.T) {
	tests := []struct {
		name string
		mapV float64
		baro float64
		want float64
	}{
		{"atmospheric", 101.325, 101.325, 0},
		{"vacuum is clamped", 50, 101.325, 0},
		{"boost", 200, 101.325, 14.31},
		{"custom baro", 200, 100, 14.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeBoost(tt.mapV, tt.baro))
		})
	}
}

func TestComputeBoostMonotonic(t *testing.T) {
	last := ComputeBoost(0, 101.325)
	for m := 0.0; m < 400; m += 0.37 {
		cur := ComputeBoost(m, 101.325)
		assert.GreaterOrEqual(t, cur, 0.0)
		assert.GreaterOrEqual(t, cur, last, "map %v", m)
		last = cur
	}
}

func TestComputeBoostBaroMonotonic(t *testing.T) {
	for _, m := range []float64{90, 101.325, 150, 250} {
		last := ComputeBoost(m, 80)
		for baro := 80.0; baro < 110; baro += 0.13 {
			cur := ComputeBoost(m, baro)
			assert.GreaterOrEqual(t, cur, 0.0)
			assert.LessOrEqual(t, cur, last, "map %v baro %v", m, baro)
			last = cur
		}
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1.01, Round2(1.005))
	assert.Equal(t, -1.24, Round2(-1.2351))
	assert.Equal(t, 3.0, Round2(2.999))
}

func TestMisfireEvents(t *testing.T) {
	tests := []struct {
		name   string
		values []datalog.Value
		want   int
	}{
		{"glitch excluded", vals(0, 1, 3, 3, 3, 1050, 1052), 5},
		{"counter reset", vals(5, 2, 4), 2},
		{"absent skipped", vals(1, nil, 4, nil), 3},
		{"empty", vals(), 0},
		{"flat", vals(7, 7, 7), 0},
		{"exactly the limit", vals(0, 1000), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MisfireEvents(tt.values, 1000))
		})
	}
}

func TestCylinder(t *testing.T) {
	n, ok := Cylinder("Misfire Current Cylinder #3")
	assert.True(t, ok)
	assert.Equal(t, 3, n)
	n, ok = Cylinder("Misfire Current Cylinder #12 (counts)")
	assert.True(t, ok)
	assert.Equal(t, 12, n)
	_, ok = Cylinder("Misfire Current Cylinder #")
	assert.False(t, ok)
	_, ok = Cylinder("Engine RPM")
	assert.False(t, ok)
}

func TestKnockPeak(t *testing.T) {
	assert.Equal(t, 2.5, KnockPeak(vals(0, -2.5, 1, nil)))
	assert.Equal(t, 0.0, KnockPeak(vals(nil, nil)))
	assert.Equal(t, 0.0, KnockPeak(vals(0, 0)))
}

func TestPeakTiming(t *testing.T) {
	timing := vals(30, 22, 25, 25, nil, 40)
	rpm := vals(900, 4000, 5000, 6000, 6500, 1000)
	peak, atRPM := PeakTiming(timing, rpm, []int{1, 2, 3, 4})
	assert.Equal(t, null.From(25.0), peak)
	assert.Equal(t, null.From(5000.0), atRPM, "first occurrence wins")

	peak, atRPM = PeakTiming(timing, rpm, []int{})
	assert.True(t, peak.IsNull())
	assert.True(t, atRPM.IsNull())
}

func TestBoost(t *testing.T) {
	mapV := vals(150, 200, 200, 130, nil)
	rpm := vals(3000, 4000, 5000, 6000, 6500)
	got := Boost(mapV, nil, rpm, []int{0, 1, 2, 3, 4}, 101.325)
	assert.Equal(t, BoostStats{
		Peak:     null.From(14.31),
		PeakRPM:  null.From(4000.0),
		Avg:      null.From(9.96),
		AtMaxRPM: null.From(4.16),
		MaxRPM:   null.From(6000.0),
	}, got)

	got = Boost(vals(nil, nil), nil, rpm, []int{0, 1}, 101.325)
	assert.True(t, got.Peak.IsNull())

	got = Boost(vals(200), vals(100), nil, []int{0}, 101.325)
	assert.Equal(t, null.From(14.5), got.Peak)
	assert.True(t, got.PeakRPM.IsNull())
}

func TestFuelTrim(t *testing.T) {
	v := FuelTrimVariance(vals(2, 5, nil, -4), vals(1, -6, 30, 4))
	assert.Equal(t, null.From(11.0), v)
	assert.True(t, FuelTrimVariance(vals(nil), vals(1)).IsNull())

	assert.Equal(t, 1.5, CombinedTrim(vals(1, nil), vals(2, nil), 2))
	assert.Equal(t, 0.5, CombinedTrim(nil, vals(1, 0), 2))
	assert.Equal(t, 0.0, CombinedTrim(nil, nil, 0))
}

func TestOilPressureMin(t *testing.T) {
	oil := vals(5, 45, 18, nil, 30)
	rpm := vals(400, 2000, 3000, 3500, 500)
	assert.Equal(t, null.From(18.0), OilPressureMin(oil, rpm, 500))
	assert.True(t, OilPressureMin(oil, vals(0, 0, 0, 0, 0), 500).IsNull())
}

func TestEngineCompute(t *testing.T) {
	tbl := &datalog.Table{
		Headers: []string{
			"Offset", "Engine RPM (SAE)", "Total Knock Retard",
			"Timing Advance (SAE)", "Misfire Current Cylinder #1",
			"Misfire Current Cylinder #4", "Engine Coolant Temp (SAE)",
		},
	}
	data := [][]float64{
		{0, 3000, 0, 20, 0, 0, 190},
		{0.1, 4000, 1.5, 24, 0, 2, 200},
		{0.2, 5000, 0, 26, 0, 3, 235},
		{0.3, 6000, 0, 25, 0, 3, 210},
	}
	for _, d := range data {
		row := datalog.Row{}
		for i, h := range tbl.Headers {
			row[h] = datalog.Num(d[i])
		}
		tbl.Rows = append(tbl.Rows, row)
	}
	windows := []model.Window{{Start: 1, End: 3}}
	got := NewEngine().Compute(tbl, windows)

	assert.Equal(t, 4, got.Rows)
	assert.Equal(t, 3, got.WOTRows)
	assert.Equal(t, null.From(1.5), got.KnockPeak)
	assert.Equal(t, null.From(26.0), got.PeakTiming)
	assert.Equal(t, null.From(5000.0), got.PeakTimingRPM)
	assert.Equal(t, null.From(235.0), got.CoolantMax)
	assert.Equal(t, map[int]int{4: 3}, got.Misfires)
	assert.True(t, got.BoostPeak.IsNull())
	assert.Equal(t, 101.325, got.BaroKPa)
	assert.Equal(t, []string{
		MetricBoost, MetricFuelTrim, MetricKnockSensors, MetricOilPressure,
	}, got.Unavailable)
}
