//nolint:funlen // ok for tests
package wot

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

func vals(in ...any) []datalog.Value {
	ret := make([]datalog.Value, len(in))
	for i, v := range in {
		switch x := v.(type) {
		case int:
			ret[i] = datalog.Num(float64(x))
		case float64:
			ret[i] = datalog.Num(x)
		default:
			ret[i] = datalog.Value{}
		}
	}
	return ret
}

func TestDetectSeries(t *testing.T) {
	d := NewDetector()
	tests := []struct {
		name        string
		accel       []datalog.Value
		throttle    []datalog.Value
		hasThrottle bool
		want        []model.Window
	}{
		{
			name:  "no throttle column",
			accel: vals(0, 90, 95, 50, 100),
			want:  []model.Window{{Start: 1, End: 2}, {Start: 4, End: 4}},
		},
		{
			name:  "86 is excluded",
			accel: vals(86, 86.01, 86),
			want:  []model.Window{{Start: 1, End: 1}},
		},
		{
			name:        "throttle gates",
			accel:       vals(90, 90, 90, 90),
			throttle:    vals(90, 80, nil, 99),
			hasThrottle: true,
			want:        []model.Window{{Start: 0, End: 0}, {Start: 3, End: 3}},
		},
		{
			name:  "absent accelerator never qualifies",
			accel: vals(nil, 99, nil),
			want:  []model.Window{{Start: 1, End: 1}},
		},
		{
			name:  "nothing",
			accel: vals(0, 10),
			want:  []model.Window{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := d.DetectSeries(tt.accel, tt.throttle, tt.hasThrottle, nil)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("DetectSeries() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDetectWindowsAreMaximal(t *testing.T) {
	d := NewDetector()
	rnd := rand.New(rand.NewSource(42))
	n := 500
	accel := make([]datalog.Value, n)
	throttle := make([]datalog.Value, n)
	for i := range n {
		if rnd.Intn(20) > 0 {
			accel[i] = datalog.Num(70 + rnd.Float64()*30)
		}
		if rnd.Intn(20) > 0 {
			throttle[i] = datalog.Num(70 + rnd.Float64()*30)
		}
	}
	windows := d.DetectSeries(accel, throttle, true, nil)
	in := make([]bool, n)
	for k, w := range windows {
		assert.LessOrEqual(t, w.Start, w.End)
		if k > 0 {
			assert.Greater(t, w.Start, windows[k-1].End+1, "windows must not touch")
		}
		for i := w.Start; i <= w.End; i++ {
			in[i] = true
		}
	}
	for i := range n {
		a, aok := accel[i].Get()
		tp, tok := throttle[i].Get()
		want := aok && a > 86 && tok && tp > 86
		assert.Equal(t, want, in[i], "row %d", i)
	}
}

func TestDetectTable(t *testing.T) {
	tbl := &datalog.Table{
		Headers: []string{"Offset", "Accelerator Position D (SAE)"},
		Rows: []datalog.Row{
			{"Offset": datalog.Num(0), "Accelerator Position D (SAE)": datalog.Num(10)},
			{"Offset": datalog.Num(0.1), "Accelerator Position D (SAE)": datalog.Num(95)},
			{"Offset": datalog.Num(0.2), "Accelerator Position D (SAE)": datalog.Num(95)},
		},
	}
	got, err := NewDetector().Detect(tbl)
	assert.NoError(t, err)
	assert.Equal(t, []model.Window{{Start: 1, End: 2, StartTime: 0.1, EndTime: 0.2}}, got)
	assert.Equal(t, []int{1, 2}, Rows(got))

	_, err = NewDetector().Detect(&datalog.Table{Headers: []string{"Offset"}})
	assert.ErrorIs(t, err, ErrNoAccelerator)
}

func TestWithThreshold(t *testing.T) {
	d := NewDetector(WithThreshold(50))
	assert.True(t, d.Qualifies(datalog.Num(60), datalog.Value{}, false))
	assert.False(t, d.Qualifies(datalog.Num(50), datalog.Value{}, false))
}
