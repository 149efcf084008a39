package overlay

import (
	"testing"

	"github.com/aarondl/opt/null"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

func TestCompare(t *testing.T) {
	a := Summarize("stock", &model.MetricsReport{
		BoostPeak: null.From(12.5),
		Intervals: []model.IntervalResult{
			{Band: "0-60", Duration: 5.2},
			{Band: "40-100", Duration: 7.0},
		},
	})
	b := Summarize("tuned", &model.MetricsReport{
		BoostPeak:  null.From(15.0),
		PeakTiming: null.From(18.0),
		Intervals: []model.IntervalResult{
			{Band: "0-60", Duration: 4.8},
		},
	})
	got := Compare(a, b, model.DefaultBands)

	bands := make([]string, len(got.Bands))
	for i := range got.Bands {
		bands[i] = got.Bands[i].Band
	}
	assert.Equal(t, []string{"0-60", "40-100", "60-130"}, bands)

	first := got.Bands[0]
	if diff := cmp.Diff(
		[]float64{5.2, 4.8, -0.4},
		[]float64{first.A.MustGet(), first.B.MustGet(), first.Delta.MustGet()},
		cmpopts.EquateApprox(0, 1e-9),
	); diff != "" {
		t.Errorf("Compare() 0-60 mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, null.From(7.0), got.Bands[1].A)
	assert.True(t, got.Bands[1].B.IsNull())
	assert.True(t, got.Bands[1].Delta.IsNull())
	assert.True(t, got.Bands[2].Delta.IsNull())

	assert.Equal(t, null.From(2.5), got.PeakBoostDelta)
	assert.True(t, got.PeakTimingDelta.IsNull())
	assert.Equal(t, "tuned", got.B.Name)
}
