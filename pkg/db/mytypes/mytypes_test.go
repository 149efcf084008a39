package mytypes

import (
	"testing"

	"github.com/aarondl/opt/null"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

func TestIntervalSlice(t *testing.T) {
	src := IntervalSlice{{Band: "0-60", To: 60, Duration: 4.5}}
	v, err := src.Value()
	assert.NilError(t, err)

	var got IntervalSlice
	assert.NilError(t, got.Scan(v))
	assert.DeepEqual(t, src, got)

	empty, err := IntervalSlice(nil).Value()
	assert.NilError(t, err)
	assert.Equal(t, "[]", string(empty.([]byte)))

	assert.ErrorContains(t, got.Scan(42), "not []byte")
}

func TestMetricsDoc(t *testing.T) {
	src := MetricsDoc{Rows: 10, KnockPeak: null.From(1.5), Misfires: map[int]int{3: 2}}
	v, err := src.Value()
	assert.NilError(t, err)

	var got MetricsDoc
	assert.NilError(t, got.Scan(string(v.([]byte))))
	assert.Equal(t, 10, got.Rows)
	assert.Equal(t, 1.5, got.KnockPeak.MustGet())
	assert.Assert(t, got.BoostPeak.IsNull())
	assert.DeepEqual(t, map[int]int{3: 2}, got.Misfires)
	_ = model.MetricsReport(got)
}
