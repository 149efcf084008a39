// Package basedata provides synthetic datalogs and runs for tests.
package basedata

import (
	"bytes"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

func TestTime() time.Time {
	t, _ := time.Parse(time.RFC3339, "2024-04-28T11:10:12Z")
	return t
}

// Builder assembles a table row by row. Values are float64, int or nil (absent).
type Builder struct {
	t *datalog.Table
}

func NewBuilder(headers ...string) *Builder {
	return &Builder{t: &datalog.Table{Headers: headers, Rows: []datalog.Row{}}}
}

func (b *Builder) Add(values ...any) *Builder {
	row := make(datalog.Row, len(b.t.Headers))
	for i, h := range b.t.Headers {
		row[h] = datalog.Value{}
		if i >= len(values) {
			continue
		}
		switch v := values[i].(type) {
		case float64:
			row[h] = datalog.Num(v)
		case int:
			row[h] = datalog.Num(float64(v))
		}
	}
	b.t.Rows = append(b.t.Rows, row)
	return b
}

func (b *Builder) Table() *datalog.Table {
	return b.t
}

// CSV renders the table as an export file of the given layout.
func CSV(t *datalog.Table, layout datalog.Layout) []byte {
	var buf bytes.Buffer
	if err := datalog.Write(&buf, t, layout, nil); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// RampTable is a 10 Hz log holding still for 1s, then accelerating linearly
// from 0 to 65 mph within 6.5s with the pedal at 90 and no knock.
// It has neither throttle nor manifold pressure.
func RampTable() *datalog.Table {
	b := NewBuilder(
		"Offset", "Vehicle Speed (SAE)", "Engine RPM (SAE)",
		"Accelerator Position D (SAE)", "Total Knock Retard")
	for i := range 76 {
		ts := float64(i) / 10
		speed, rpm := 0.0, 1500.0
		if ts > 1 {
			speed = min(65, (ts-1)*10)
			rpm = 1500 + (ts-1)*700
		}
		b.Add(ts, speed, rpm, 90, 0)
	}
	return b.Table()
}

var FullHeaders = []string{
	"Offset",
	"Vehicle Speed (SAE)",
	"Engine RPM (SAE)",
	"Accelerator Position D (SAE)",
	"Throttle Position (SAE)",
	"Timing Advance (SAE)",
	"Intake Manifold Absolute Pressure (SAE)",
	"Barometric Pressure (SAE)",
	"Total Knock Retard",
	"Knock Sensor 1",
	"Knock Sensor 2",
	"Long Term Fuel Trim Bank 1 (SAE)",
	"Long Term Fuel Trim Bank 2 (SAE)",
	"Short Term Fuel Trim Bank 1 (SAE)",
	"Short Term Fuel Trim Bank 2 (SAE)",
	"Engine Oil Pressure",
	"Engine Coolant Temp (SAE)",
	"Misfire Current Cylinder #1",
	"Misfire Current Cylinder #2",
}

// FullPullTable is a 10 Hz log carrying every known channel: 1s idle,
// an 8s full throttle pull from 0 to 80 mph (2000 to 6500 rpm) and 1s coasting.
// During the pull there is one knock event of 1.5° at row 60 and cylinder 2
// counts two misfires.
func FullPullTable() *datalog.Table {
	b := NewBuilder(FullHeaders...)
	misfire2 := 0
	for i := range 100 {
		ts := float64(i) / 10
		switch {
		case i < 10:
			b.Add(ts, 0, 800, 0, 5, 10, 35, 100, 0, 0.4, 0.5, 2, 3, 1, -1, 25, 195, 0, misfire2)
		case i < 90:
			p := float64(i-10) / 80
			knock := 0.0
			if i == 60 {
				knock = 1.5
			}
			if i == 40 || i == 70 {
				misfire2++
			}
			b.Add(ts, p*80, 2000+p*4500, 100, 95, 14+p*10, 180+p*20, 100,
				knock, 1.2, 1.1, 2, 3, 1, -1, 40+p*20, 195+p*10, 0, misfire2)
		default:
			b.Add(ts, 80-float64(i-89)*2, 3000, 0, 5, 20, 40, 100, 0, 0.4, 0.5, 2, 3, 0, 0, 45, 205, 0, misfire2)
		}
	}
	return b.Table()
}

func SampleRun() *model.Run {
	return &model.Run{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      "sample pull",
		Vehicle:   "test car",
		WeightLbs: null.From(3500.0),
		Intervals: []model.IntervalResult{
			{Band: "0-60", From: 0, To: 60, Duration: 4.8, StartTime: 1.2, EndTime: 6.0},
		},
		CreatedAt: TestTime(),
	}
}
