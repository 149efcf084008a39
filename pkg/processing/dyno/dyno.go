package dyno

import (
	"errors"
	"math"
	"sort"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

var (
	ErrRPMRequired      = errors.New("engine rpm column required")
	ErrInsufficientData = errors.New("insufficient data for dyno synthesis")
	ErrNoCleanSweep     = errors.New("no clean rpm sweep found")
	ErrNoPower          = errors.New("sweep shows no positive acceleration")
)

const (
	gravity     = 32.174 // ft/s², lbs -> slugs
	ftpsPerMph  = 5280.0 / 3600.0
	hpFtLbs     = 550.0 // ft·lbf/s per hp
	torqueConst = 5252.0
	minSamples  = 3
)

type Synthesizer struct {
	th config.Thresholds
}

type Option func(*Synthesizer)

func WithThresholds(th config.Thresholds) Option {
	return func(s *Synthesizer) {
		s.th = th
	}
}

func NewSynthesizer(opts ...Option) *Synthesizer {
	ret := &Synthesizer{th: config.DefaultThresholds()}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Input holds the filtered samples of a log. Gate is nil if the log carries
// neither pedal nor throttle position.
type Input struct {
	Rows  []int
	Time  []float64
	Speed []float64
	RPM   []float64
	Gate  []datalog.Value
}

// Extract collects the rows where time, speed and rpm are all present.
func Extract(t *datalog.Table) (*Input, error) {
	rpm, ok := t.Series(datalog.ColEngineRPM)
	if !ok {
		return nil, ErrRPMRequired
	}
	times, ok1 := t.Series(datalog.ColOffset)
	speed, ok2 := t.Series(datalog.ColVehicleSpeed)
	if !ok1 || !ok2 {
		return nil, ErrInsufficientData
	}
	gate, hasGate := t.Series(datalog.ColAccelerator)
	if !hasGate {
		gate, hasGate = t.Series(datalog.ColThrottle)
	}
	ret := &Input{}
	for i := range rpm {
		r, ok1 := rpm[i].Get()
		ts, ok2 := times[i].Get()
		v, ok3 := speed[i].Get()
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		ret.Rows = append(ret.Rows, i)
		ret.Time = append(ret.Time, ts)
		ret.Speed = append(ret.Speed, v)
		ret.RPM = append(ret.RPM, r)
		if hasGate {
			ret.Gate = append(ret.Gate, gate[i])
		}
	}
	if len(ret.Rows) < minSamples {
		return nil, ErrInsufficientData
	}
	return ret, nil
}

// Synthesize derives a power curve from the longest clean rpm sweep.
// Without a positive weight the curve is relative, scaled to a peak of 100.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Synthesizer) Synthesize(t *datalog.Table, weightLbs null.Val[float64]) (
	model.DynoCurve, error,
) {
	in, err := Extract(t)
	if err != nil {
		return nil, err
	}
	return s.SynthesizeInput(in, weightLbs)
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Synthesizer) SynthesizeInput(in *Input, weightLbs null.Val[float64]) (
	model.DynoCurve, error,
) {
	if len(in.RPM) < minSamples {
		return nil, ErrInsufficientData
	}
	from, to, ok := s.selectSweep(in)
	if !ok {
		return nil, ErrNoCleanSweep
	}
	times := in.Time[from : to+1]
	rpm := in.RPM[from : to+1]
	v := lo.Map(in.Speed[from:to+1], func(mph float64, _ int) float64 { return mph * ftpsPerMph })

	acc := MovingAverage(CenteredDiff(v, times), s.th.SmoothingWindow)
	v = MovingAverage(v, s.th.SmoothingWindow)

	weight, absolute := weightLbs.Get()
	absolute = absolute && weight > 0
	power := make([]float64, len(v))
	if absolute {
		mass := weight / gravity
		for i := range v {
			power[i] = max(0, mass*acc[i]*v[i]) / hpFtLbs
		}
	} else {
		for i := range v {
			power[i] = acc[i] * v[i]
		}
		peak := lo.Max(power)
		if peak <= 0 {
			return nil, ErrNoPower
		}
		for i := range power {
			power[i] = power[i] / peak * 100
		}
	}

	binRPM, binPower := Bin(rpm, power, s.th.RPMBinWidth)
	binPower = MovingAverage(binPower, s.th.SmoothingWindow)
	points := make([]model.CurvePoint, len(binRPM))
	for i := range binRPM {
		points[i] = model.CurvePoint{
			RPM:    binRPM[i],
			Power:  binPower[i],
			Torque: Torque(binPower[i], binRPM[i]),
		}
	}
	sweep := model.Sweep{
		StartRow: in.Rows[from],
		EndRow:   in.Rows[to],
		Samples:  to - from + 1,
		StartRPM: rpm[0],
		EndRPM:   rpm[len(rpm)-1],
	}
	powerPeak, torquePeak := Peaks(points)
	if absolute {
		return &model.AbsoluteCurve{
			WeightLbs:  weight,
			Points:     points,
			PeakHP:     powerPeak,
			PeakTorque: torquePeak,
			Sweep:      sweep,
		}, nil
	}
	return &model.RelativeCurve{
		Points:          points,
		PeakScore:       powerPeak,
		PeakTorqueScore: torquePeak,
		Sweep:           sweep,
	}, nil
}

// selectSweep returns the bounds of the longest run of strictly increasing
// rpm at full throttle. Ties keep the earlier run.
func (s *Synthesizer) selectSweep(in *Input) (from, to int, ok bool) {
	gateOK := func(i int) bool {
		if in.Gate == nil {
			return true
		}
		g, ok := in.Gate[i].Get()
		return ok && g >= s.th.WOT
	}
	bestLen := 0
	start := -1
	closeRun := func(end int) {
		if start < 0 {
			return
		}
		if n := end - start + 1; n >= s.th.MinSweepSamples && n > bestLen {
			from, to, bestLen = start, end, n
		}
	}
	for i := range in.RPM {
		if !gateOK(i) {
			closeRun(i - 1)
			start = -1
			continue
		}
		if start >= 0 && in.RPM[i] > in.RPM[i-1] {
			continue
		}
		closeRun(i - 1)
		start = i
	}
	closeRun(len(in.RPM) - 1)
	return from, to, bestLen > 0
}

// CenteredDiff returns dv/dt using central differences, one sided at the
// ends. Zero time steps yield 0.
func CenteredDiff(v, t []float64) []float64 {
	n := len(v)
	ret := make([]float64, n)
	if n < 2 {
		return ret
	}
	slope := func(a, b int) float64 {
		dt := t[b] - t[a]
		if dt == 0 {
			return 0
		}
		return (v[b] - v[a]) / dt
	}
	for i := range n {
		switch i {
		case 0:
			ret[i] = slope(0, 1)
		case n - 1:
			ret[i] = slope(n-2, n-1)
		default:
			ret[i] = slope(i-1, i+1)
		}
	}
	return ret
}

// MovingAverage is a centered moving average, the window is clipped at the
// series boundaries.
func MovingAverage(v []float64, window int) []float64 {
	ret := make([]float64, len(v))
	if window < 1 {
		window = 1
	}
	lower := (window - 1) / 2
	upper := window / 2
	for i := range v {
		from, to := max(0, i-lower), min(len(v)-1, i+upper)
		sum := 0.0
		for j := from; j <= to; j++ {
			sum += v[j]
		}
		ret[i] = sum / float64(to-from+1)
	}
	return ret
}

// Bin groups values by rpm rounded to the nearest multiple of width and
// averages each group. The result is sorted by rpm.
func Bin(rpm, values []float64, width float64) (binRPM, binValues []float64) {
	type acc struct {
		sum float64
		n   int
	}
	groups := map[float64]*acc{}
	for i := range rpm {
		key := math.Floor(rpm[i]/width+0.5) * width
		g, ok := groups[key]
		if !ok {
			g = &acc{}
			groups[key] = g
		}
		g.sum += values[i]
		g.n++
	}
	binRPM = lo.Keys(groups)
	sort.Float64s(binRPM)
	binValues = make([]float64, len(binRPM))
	for i, k := range binRPM {
		binValues[i] = groups[k].sum / float64(groups[k].n)
	}
	return binRPM, binValues
}

// Torque derives torque from power at rpm. Undefined at 0 rpm.
func Torque(power, rpm float64) null.Val[float64] {
	if rpm == 0 {
		return null.Val[float64]{}
	}
	return null.From(power * torqueConst / rpm)
}

// Peaks returns the power and torque maxima, each at its own rpm.
func Peaks(points []model.CurvePoint) (power, torque model.CurvePeak) {
	if len(points) == 0 {
		return power, torque
	}
	p := lo.MaxBy(points, func(a, b model.CurvePoint) bool { return a.Power > b.Power })
	power = model.CurvePeak{RPM: p.RPM, Value: p.Power}
	withTorque := lo.Filter(points, func(c model.CurvePoint, _ int) bool { return c.Torque.IsValue() })
	if len(withTorque) > 0 {
		t := lo.MaxBy(withTorque, func(a, b model.CurvePoint) bool {
			return a.Torque.MustGet() > b.Torque.MustGet()
		})
		torque = model.CurvePeak{RPM: t.RPM, Value: t.Torque.MustGet()}
	}
	return power, torque
}
