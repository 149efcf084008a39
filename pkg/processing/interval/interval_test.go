//nolint:funlen // ok for tests
package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

var band060 = model.Band{Name: "0-60", From: 0, To: 60}

// ramp builds samples at 10 Hz: idle at 0 mph for hold seconds, then a
// linear acceleration to top mph within dur seconds.
func ramp(hold, dur, top, pedal float64) (speed, times, accel []datalog.Value) {
	for ts := 0.0; ts <= hold+dur+0.5; ts += 0.1 {
		v := 0.0
		if ts > hold {
			v = min(top, (ts-hold)/dur*top)
		}
		speed = append(speed, datalog.Num(v))
		times = append(times, datalog.Num(ts))
		accel = append(accel, datalog.Num(pedal))
	}
	return speed, times, accel
}

func TestFindFromStop(t *testing.T) {
	speed, times, accel := ramp(1, 5, 70, 100)
	got, ok := NewFinder().Find(speed, times, accel, band060)
	require.True(t, ok)
	assert.Equal(t, "0-60", got.Band)
	assert.InDelta(t, 5.0*60/70, got.Duration, 0.25)
	assert.InDelta(t, got.EndTime-got.StartTime, got.Duration, 1e-9)
}

func TestFindPartThrottle(t *testing.T) {
	speed, times, accel := ramp(1, 5, 70, 50)
	_, ok := NewFinder().Find(speed, times, accel, band060)
	assert.False(t, ok)
}

func TestFindPedalBoundary(t *testing.T) {
	speed, times, accel := ramp(1, 5, 70, 86)
	_, ok := NewFinder().Find(speed, times, accel, band060)
	assert.True(t, ok, "86 is full throttle for intervals")
}

func TestFindRequiresStop(t *testing.T) {
	speed, times, accel := ramp(1, 5, 70, 100)
	// drop the standstill part, the log starts rolling
	_, ok := NewFinder().Find(speed[15:], times[15:], accel[15:], band060)
	assert.False(t, ok)
}

func TestFindArmsAtFirstFullThrottle(t *testing.T) {
	speed, times, accel := ramp(1, 5, 70, 100)
	// pull away from the stop with part throttle first
	for i := 10; i < 20; i++ {
		accel[i] = datalog.Num(20)
	}
	got, ok := NewFinder().Find(speed, times, accel, band060)
	require.True(t, ok)
	assert.Equal(t, times[20].MustGet(), got.StartTime)
	assert.InDelta(t, 5.0*60/70-1, got.Duration, 0.25)
}

func TestFindPedalRampIn(t *testing.T) {
	speed := []datalog.Value{datalog.Num(0), datalog.Num(0), datalog.Num(2)}
	times := []datalog.Value{datalog.Num(0), datalog.Num(0.1), datalog.Num(0.2)}
	accel := []datalog.Value{datalog.Num(0), datalog.Num(30), datalog.Num(70)}
	for i := range 50 {
		speed = append(speed, datalog.Num(3.2+float64(i)*1.44))
		times = append(times, datalog.Num(0.3+float64(i)*0.1))
		accel = append(accel, datalog.Num(100))
	}
	got, ok := NewFinder().Find(speed, times, accel, band060)
	require.True(t, ok)
	assert.InDelta(t, 0.3, got.StartTime, 1e-9)
	assert.Greater(t, got.Duration, 0.0)
}

func TestFindPicksFastestRun(t *testing.T) {
	s1, t1, a1 := ramp(1, 8, 120, 100)
	s2, t2, a2 := ramp(1, 6, 120, 100)
	offset := t1[len(t1)-1].MustGet() + 0.1
	speed := append([]datalog.Value{}, s1...)
	times := append([]datalog.Value{}, t1...)
	accel := append([]datalog.Value{}, a1...)
	// decelerate back to 30 mph without throttle
	for i := range 20 {
		speed = append(speed, datalog.Num(120-float64(i)*4.5))
		times = append(times, datalog.Num(offset+float64(i)*0.1))
		accel = append(accel, datalog.Num(0))
	}
	offset += 2
	for i := range s2 {
		speed = append(speed, s2[i])
		times = append(times, datalog.Num(offset+t2[i].MustGet()))
		accel = append(accel, a2[i])
	}
	got, ok := NewFinder().Find(speed, times, accel, model.Band{Name: "40-100", From: 40, To: 100})
	require.True(t, ok)
	assert.InDelta(t, 6.0*60/120, got.Duration, 0.25)
}

func TestFindAll(t *testing.T) {
	speed, times, accel := ramp(1, 5, 70, 100)
	tbl := &datalog.Table{Headers: []string{"Offset", "Vehicle Speed (SAE)", "Accelerator Position D (SAE)"}}
	for i := range speed {
		tbl.Rows = append(tbl.Rows, datalog.Row{
			"Offset":                       times[i],
			"Vehicle Speed (SAE)":          speed[i],
			"Accelerator Position D (SAE)": accel[i],
		})
	}
	got, err := NewFinder().FindAll(tbl, model.DefaultBands)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0-60", got[0].Band)

	_, err = NewFinder().FindAll(&datalog.Table{Headers: []string{"Offset"}}, model.DefaultBands)
	assert.ErrorIs(t, err, ErrMissingInputs)
}
