package advisory

import (
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

// Observations is the payload handed to the advisory generator.
// Absent sample values are encoded as null.
type Observations struct {
	Checklist string               `json:"checklist"`
	Metrics   *model.MetricsReport `json:"metrics"`
	Columns   []string             `json:"columns"`
	Samples   []datalog.Row        `json:"samples"`
}

// Decimate returns the indices 0, stride, 2*stride, ... below n, at most limit of them.
func Decimate(n, stride, limit int) []int {
	ret := []int{}
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < n && len(ret) < limit; i += stride {
		ret = append(ret, i)
	}
	return ret
}

//nolint:whitespace // can't make both editor and linter happy
func BuildObservations(
	t *datalog.Table,
	report *model.MetricsReport,
	checklist model.Checklist,
	stride, limit int,
) *Observations {
	idx := Decimate(t.Len(), stride, limit)
	samples := make([]datalog.Row, len(idx))
	for i, rowIdx := range idx {
		samples[i] = t.Rows[rowIdx]
	}
	return &Observations{
		Checklist: checklist.String(),
		Metrics:   report,
		Columns:   t.Headers,
		Samples:   samples,
	}
}
