package overlay

import (
	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

// Summary holds the figures of one run that take part in a comparison.
type Summary struct {
	Name       string                 `json:"name"`
	Rows       int                    `json:"rows"`
	WOTRows    int                    `json:"wotRows"`
	PeakBoost  null.Val[float64]      `json:"peakBoost"`
	PeakTiming null.Val[float64]      `json:"peakTiming"`
	KnockPeak  null.Val[float64]      `json:"knockPeak"`
	Intervals  []model.IntervalResult `json:"intervals"`
}

// BandDelta compares the best times of one band. Delta is B - A, negative
// values mean run B was quicker.
type BandDelta struct {
	Band  string            `json:"band"`
	A     null.Val[float64] `json:"a"`
	B     null.Val[float64] `json:"b"`
	Delta null.Val[float64] `json:"delta"`
}

type Comparison struct {
	A               Summary           `json:"a"`
	B               Summary           `json:"b"`
	Bands           []BandDelta       `json:"bands"`
	PeakBoostDelta  null.Val[float64] `json:"peakBoostDelta"`
	PeakTimingDelta null.Val[float64] `json:"peakTimingDelta"`
}

func Summarize(name string, r *model.MetricsReport) Summary {
	return Summary{
		Name:       name,
		Rows:       r.Rows,
		WOTRows:    r.WOTRows,
		PeakBoost:  r.BoostPeak,
		PeakTiming: r.PeakTiming,
		KnockPeak:  r.KnockPeak,
		Intervals:  r.Intervals,
	}
}

// Compare lines up two runs. Every band is listed, deltas are null where
// one of the runs has no value.
func Compare(a, b Summary, bands []model.Band) *Comparison {
	ret := &Comparison{
		A:               a,
		B:               b,
		Bands:           make([]BandDelta, 0, len(bands)),
		PeakBoostDelta:  delta(a.PeakBoost, b.PeakBoost),
		PeakTimingDelta: delta(a.PeakTiming, b.PeakTiming),
	}
	for _, band := range bands {
		d := BandDelta{
			Band: band.Name,
			A:    bestOf(a.Intervals, band.Name),
			B:    bestOf(b.Intervals, band.Name),
		}
		d.Delta = delta(d.A, d.B)
		ret.Bands = append(ret.Bands, d)
	}
	return ret
}

func bestOf(intervals []model.IntervalResult, band string) null.Val[float64] {
	for _, i := range intervals {
		if i.Band == band {
			return null.From(i.Duration)
		}
	}
	return null.Val[float64]{}
}

func delta(a, b null.Val[float64]) null.Val[float64] {
	av, ok1 := a.Get()
	bv, ok2 := b.Get()
	if !ok1 || !ok2 {
		return null.Val[float64]{}
	}
	return null.From(bv - av)
}
