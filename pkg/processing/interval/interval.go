package interval

import (
	"errors"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

var ErrMissingInputs = errors.New("speed, time or accelerator column missing")

// Finder searches acceleration runs through speed bands.
// A sample counts as full throttle if the pedal is at or above the threshold.
type Finder struct {
	threshold float64
	stopSpeed float64
}

type Option func(*Finder)

func WithThreshold(threshold float64) Option {
	return func(f *Finder) {
		f.threshold = threshold
	}
}

// WithStopSpeed sets the speed in mph below which the vehicle is considered
// stationary. Runs from standstill only arm after such a sample.
func WithStopSpeed(speed float64) Option {
	return func(f *Finder) {
		f.stopSpeed = speed
	}
}

func NewFinder(opts ...Option) *Finder {
	ret := &Finder{threshold: 86, stopSpeed: 1.5}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// FindAll returns the best result of each band that had at least one
// qualifying run. Bands without a run are omitted.
func (f *Finder) FindAll(t *datalog.Table, bands []model.Band) ([]model.IntervalResult, error) {
	speed, ok1 := t.Series(datalog.ColVehicleSpeed)
	times, ok2 := t.Series(datalog.ColOffset)
	accel, ok3 := t.Series(datalog.ColAccelerator)
	if !ok1 || !ok2 || !ok3 {
		return nil, ErrMissingInputs
	}
	ret := []model.IntervalResult{}
	for _, b := range bands {
		if r, ok := f.Find(speed, times, accel, b); ok {
			ret = append(ret, r)
		}
	}
	return ret, nil
}

// Find returns the shortest transition through band.
// Rows with absent speed or time are ignored. Samples below the pedal
// threshold neither arm nor complete a run. For bands starting at 0 a run
// arms at the first full throttle sample above the stop speed after the
// vehicle was observed standing.
//
//nolint:whitespace,gocognit // can't make both editor and linter happy
func (f *Finder) Find(
	speed, times, accel []datalog.Value,
	band model.Band,
) (model.IntervalResult, bool) {
	best := model.IntervalResult{}
	found := false
	pending := false
	stopped := false
	start := 0.0

	for i := range speed {
		v, ok := speed[i].Get()
		if !ok || i >= len(times) {
			continue
		}
		ts, ok := times[i].Get()
		if !ok {
			continue
		}
		full := false
		if i < len(accel) {
			if a, ok := accel[i].Get(); ok && a >= f.threshold {
				full = true
			}
		}

		if band.FromStop() && v < f.stopSpeed {
			stopped = true
			pending = false
			continue
		}
		if !full {
			continue
		}
		if pending {
			if v >= band.To {
				d := ts - start
				if !found || d < best.Duration {
					best = model.IntervalResult{
						Band:      band.Name,
						From:      band.From,
						To:        band.To,
						Duration:  d,
						StartTime: start,
						EndTime:   ts,
					}
					found = true
				}
				pending = false
			}
			continue
		}
		if band.FromStop() {
			if stopped && v > f.stopSpeed && v < band.To {
				start, pending, stopped = ts, true, false
			}
			continue
		}
		if v >= band.From && v < band.To {
			start, pending = ts, true
		}
	}
	return best, found
}
