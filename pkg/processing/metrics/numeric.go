package metrics

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
)

// kPa -> psi
const PsiPerKPa = 0.1450377377

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// ComputeBoost converts manifold pressure to gauge boost in psi.
// Vacuum is reported as 0.
func ComputeBoost(mapKPa, baroKPa float64) float64 {
	return max(0, Round2((mapKPa-baroKPa)*PsiPerKPa))
}

type sample struct {
	row   int
	value float64
}

// present collects the non-null values of the given rows. rows nil means all rows.
func present(values []datalog.Value, rows []int) []sample {
	ret := []sample{}
	add := func(i int) {
		if i >= len(values) {
			return
		}
		if v, ok := values[i].Get(); ok {
			ret = append(ret, sample{row: i, value: v})
		}
	}
	if rows == nil {
		for i := range values {
			add(i)
		}
		return ret
	}
	for _, i := range rows {
		add(i)
	}
	return ret
}

// maxSample returns the first sample holding the maximum value.
func maxSample(s []sample) (sample, bool) {
	if len(s) == 0 {
		return sample{}, false
	}
	return lo.MaxBy(s, func(a, b sample) bool { return a.value > b.value }), true
}

func minSample(s []sample) (sample, bool) {
	if len(s) == 0 {
		return sample{}, false
	}
	return lo.MinBy(s, func(a, b sample) bool { return a.value < b.value }), true
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	return lo.Sum(v) / float64(len(v))
}
