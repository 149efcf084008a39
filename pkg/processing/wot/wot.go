package wot

import (
	"errors"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

var ErrNoAccelerator = errors.New("accelerator position column not found")

const DefaultThreshold = 86.0

type Detector struct {
	threshold float64
}

type Option func(*Detector)

func WithThreshold(threshold float64) Option {
	return func(d *Detector) {
		d.threshold = threshold
	}
}

func NewDetector(opts ...Option) *Detector {
	ret := &Detector{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (d *Detector) Threshold() float64 {
	return d.threshold
}

// Qualifies reports whether a sample is at true WOT. Both bounds are strict.
// hasThrottle is false if the log carries no throttle column at all.
func (d *Detector) Qualifies(accel, throttle datalog.Value, hasThrottle bool) bool {
	a, ok := accel.Get()
	if !ok || a <= d.threshold {
		return false
	}
	if !hasThrottle {
		return true
	}
	tp, ok := throttle.Get()
	return ok && tp > d.threshold
}

// Detect returns the WOT windows of the table ordered by start row.
func (d *Detector) Detect(t *datalog.Table) ([]model.Window, error) {
	accel, ok := t.Series(datalog.ColAccelerator)
	if !ok {
		return nil, ErrNoAccelerator
	}
	throttle, hasThrottle := t.Series(datalog.ColThrottle)
	times, _ := t.Series(datalog.ColOffset)
	return d.DetectSeries(accel, throttle, hasThrottle, times), nil
}

// DetectSeries is a single left to right scan over parallel series.
// throttle and times may be nil.
func (d *Detector) DetectSeries(
	accel, throttle []datalog.Value,
	hasThrottle bool,
	times []datalog.Value,
) []model.Window {
	ret := []model.Window{}
	start := -1
	at := func(s []datalog.Value, i int) datalog.Value {
		if i < len(s) {
			return s[i]
		}
		return datalog.Value{}
	}
	closeWindow := func(end int) {
		ret = append(ret, model.Window{
			Start:     start,
			End:       end,
			StartTime: at(times, start).GetOr(0),
			EndTime:   at(times, end).GetOr(0),
		})
		start = -1
	}
	for i := range accel {
		if d.Qualifies(accel[i], at(throttle, i), hasThrottle) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			closeWindow(i - 1)
		}
	}
	if start >= 0 {
		closeWindow(len(accel) - 1)
	}
	return ret
}

// Rows flattens windows into row indices in ascending order.
func Rows(windows []model.Window) []int {
	ret := []int{}
	for _, w := range windows {
		for i := w.Start; i <= w.End; i++ {
			ret = append(ret, i)
		}
	}
	return ret
}
