package metrics

import (
	"sort"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/processing/wot"
)

// names used in MetricsReport.Unavailable
const (
	MetricKnock        = "knock"
	MetricTiming       = "timing"
	MetricBoost        = "boost"
	MetricKnockSensors = "knockSensors"
	MetricFuelTrim     = "fuelTrim"
	MetricOilPressure  = "oilPressure"
	MetricCoolant      = "coolant"
	MetricMisfire      = "misfire"
	MetricWOT          = "wot"
)

type Engine struct {
	th  config.Thresholds
	log *log.Logger
}

type Option func(*Engine)

func WithThresholds(th config.Thresholds) Option {
	return func(e *Engine) {
		e.th = th
	}
}

func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		e.log = l
	}
}

func NewEngine(opts ...Option) *Engine {
	ret := &Engine{
		th:  config.DefaultThresholds(),
		log: log.Default().Named("metrics"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Compute derives all metrics of the table. WOT restricted metrics use the
// given windows. Metrics whose columns are missing stay null and are listed
// in Unavailable.
func (e *Engine) Compute(t *datalog.Table, windows []model.Window) *model.MetricsReport {
	rows := wot.Rows(windows)
	ret := &model.MetricsReport{
		Rows:             t.Len(),
		WOTWindows:       windows,
		WOTRows:          len(rows),
		KnockSensorPeaks: map[string]float64{},
		Misfires:         map[int]int{},
		Intervals:        []model.IntervalResult{},
		Unavailable:      []string{},
	}
	unavailable := func(name string) {
		ret.Unavailable = append(ret.Unavailable, name)
	}
	rpm, hasRPM := t.Series(datalog.ColEngineRPM)

	if v, ok := t.Series(datalog.ColKnockRetard); ok {
		ret.KnockPeak = null.From(KnockPeak(v))
	} else {
		unavailable(MetricKnock)
	}

	if v, ok := t.Series(datalog.ColTimingAdvance); ok {
		ret.PeakTiming, ret.PeakTimingRPM = PeakTiming(v, rpm, rows)
	} else {
		unavailable(MetricTiming)
	}

	e.computeBoost(t, ret, rows, rpm)

	for _, c := range []datalog.Column{datalog.ColKnockSensor1, datalog.ColKnockSensor2} {
		if v, ok := t.Series(c); ok {
			if s, ok := maxSample(present(v, nil)); ok {
				ret.KnockSensorPeaks[string(c)] = s.value
			}
		}
	}
	if len(ret.KnockSensorPeaks) == 0 {
		unavailable(MetricKnockSensors)
	}

	e.computeFuelTrim(t, ret)

	if oil, ok := t.Series(datalog.ColOilPressure); ok && hasRPM {
		ret.OilPressureMin = OilPressureMin(oil, rpm, e.th.OilPressureMinRPM)
	} else {
		unavailable(MetricOilPressure)
	}

	if v, ok := t.Series(datalog.ColCoolantTemp); ok {
		if s, ok := maxSample(present(v, nil)); ok {
			ret.CoolantMax = null.From(s.value)
		}
	} else {
		unavailable(MetricCoolant)
	}

	misfireCols := t.HeadersWithPrefix(datalog.MisfireColumnBase)
	if len(misfireCols) == 0 {
		unavailable(MetricMisfire)
	}
	for _, h := range misfireCols {
		cyl, ok := Cylinder(h)
		if !ok {
			e.log.Debug("ignoring misfire column", log.String("header", h))
			continue
		}
		if n := MisfireEvents(t.Values(h), e.th.MisfireGlitchLimit); n > 0 {
			ret.Misfires[cyl] += n
		}
	}
	sort.Strings(ret.Unavailable)
	return ret
}

func (e *Engine) computeBoost(t *datalog.Table, ret *model.MetricsReport, rows []int, rpm []datalog.Value) {
	ret.BaroKPa = e.th.BaroDefaultKPa
	ret.BaroSource = "default"
	mapValues, ok := t.Series(datalog.ColMAP)
	if !ok {
		ret.Unavailable = append(ret.Unavailable, MetricBoost)
		return
	}
	var baro []datalog.Value
	if h, ok := t.ResolveFirst(datalog.BaroCandidates...); ok {
		baro = t.Values(h)
		ret.BaroSource = h
		if s := present(baro, nil); len(s) > 0 {
			ret.BaroKPa = s[0].value
		}
	}
	b := Boost(mapValues, baro, rpm, rows, e.th.BaroDefaultKPa)
	ret.BoostPeak = b.Peak
	ret.BoostPeakRPM = b.PeakRPM
	ret.BoostAvg = b.Avg
	ret.BoostAtMaxRPM = b.AtMaxRPM
	ret.BoostMaxRPM = b.MaxRPM
}

func (e *Engine) computeFuelTrim(t *datalog.Table, ret *model.MetricsReport) {
	ltft1, ok1 := t.Series(datalog.ColLTFTBank1)
	ltft2, ok2 := t.Series(datalog.ColLTFTBank2)
	if ok1 && ok2 {
		ret.FuelTrimMaxVariance = FuelTrimVariance(ltft1, ltft2)
	}
	stft1, okS1 := t.Series(datalog.ColSTFTBank1)
	stft2, okS2 := t.Series(datalog.ColSTFTBank2)
	if ok1 || okS1 {
		ret.FuelTrimAvgBank1 = null.From(CombinedTrim(stft1, ltft1, t.Len()))
	}
	if ok2 || okS2 {
		ret.FuelTrimAvgBank2 = null.From(CombinedTrim(stft2, ltft2, t.Len()))
	}
	if !ok1 && !ok2 && !okS1 && !okS2 {
		ret.Unavailable = append(ret.Unavailable, MetricFuelTrim)
	}
}

// KnockPeak is the largest absolute retard. No present values yield 0.
func KnockPeak(values []datalog.Value) float64 {
	peak := 0.0
	for _, s := range present(values, nil) {
		peak = max(peak, abs(s.value))
	}
	return peak
}

// PeakTiming returns the highest timing advance within rows and the rpm of
// that sample. The first occurrence of the maximum wins.
//
//nolint:whitespace // can't make both editor and linter happy
func PeakTiming(timing, rpm []datalog.Value, rows []int) (
	peak, atRPM null.Val[float64],
) {
	s, ok := maxSample(present(timing, rows))
	if !ok {
		return peak, atRPM
	}
	peak = null.From(s.value)
	if s.row < len(rpm) {
		atRPM = rpm[s.row]
	}
	return peak, atRPM
}

type BoostStats struct {
	Peak     null.Val[float64]
	PeakRPM  null.Val[float64]
	Avg      null.Val[float64]
	AtMaxRPM null.Val[float64]
	MaxRPM   null.Val[float64]
}

// Boost computes boost statistics over rows. Rows without manifold pressure
// are skipped. baro may be nil or contain gaps, those rows use defaultBaro.
//
//nolint:whitespace // can't make both editor and linter happy
func Boost(
	mapKPa, baro, rpm []datalog.Value,
	rows []int,
	defaultBaro float64,
) BoostStats {
	ret := BoostStats{}
	boosts := []sample{}
	for _, s := range present(mapKPa, rows) {
		b := defaultBaro
		if s.row < len(baro) {
			b = baro[s.row].GetOr(defaultBaro)
		}
		boosts = append(boosts, sample{row: s.row, value: ComputeBoost(s.value, b)})
	}
	peak, ok := maxSample(boosts)
	if !ok {
		return ret
	}
	ret.Peak = null.From(peak.value)
	if peak.row < len(rpm) {
		ret.PeakRPM = rpm[peak.row]
	}
	values := make([]float64, len(boosts))
	byRow := map[int]float64{}
	for i, s := range boosts {
		values[i] = s.value
		byRow[s.row] = s.value
	}
	ret.Avg = null.From(Round2(mean(values)))

	rowsWithBoost := make([]int, len(boosts))
	for i, s := range boosts {
		rowsWithBoost[i] = s.row
	}
	if top, ok := maxSample(present(rpm, rowsWithBoost)); ok {
		ret.MaxRPM = null.From(top.value)
		ret.AtMaxRPM = null.From(byRow[top.row])
	}
	return ret
}

// FuelTrimVariance is the largest absolute bank to bank difference of the
// long term trims over rows where both are present.
func FuelTrimVariance(bank1, bank2 []datalog.Value) null.Val[float64] {
	var ret null.Val[float64]
	for i := range min(len(bank1), len(bank2)) {
		a, ok1 := bank1[i].Get()
		b, ok2 := bank2[i].Get()
		if !ok1 || !ok2 {
			continue
		}
		d := abs(a - b)
		if !ret.IsValue() || d > ret.MustGet() {
			ret = null.From(d)
		}
	}
	return ret
}

// CombinedTrim averages short plus long term trim over n rows.
// Absent cells and missing columns count as 0.
func CombinedTrim(short, long []datalog.Value, n int) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for i := range n {
		if i < len(short) {
			sum += short[i].GetOr(0)
		}
		if i < len(long) {
			sum += long[i].GetOr(0)
		}
	}
	return Round2(sum / float64(n))
}

// OilPressureMin is the lowest oil pressure observed while the engine runs
// above minRPM.
func OilPressureMin(oil, rpm []datalog.Value, minRPM float64) null.Val[float64] {
	rows := []int{}
	for i := range rpm {
		if r, ok := rpm[i].Get(); ok && r > minRPM {
			rows = append(rows, i)
		}
	}
	s, ok := minSample(present(oil, rows))
	if !ok {
		return null.Val[float64]{}
	}
	return null.From(s.value)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
