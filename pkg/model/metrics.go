package model

import "github.com/aarondl/opt/null"

// Window is a maximal run of rows at true wide open throttle.
// Start and End are row indices, both inclusive.
type Window struct {
	Start     int     `json:"start"`
	End       int     `json:"end"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

func (w Window) Len() int {
	return w.End - w.Start + 1
}

// Band is a speed band in mph used for acceleration intervals.
type Band struct {
	Name string  `json:"name"`
	From float64 `json:"from"`
	To   float64 `json:"to"`
}

var DefaultBands = []Band{
	{Name: "0-60", From: 0, To: 60},
	{Name: "40-100", From: 40, To: 100},
	{Name: "60-130", From: 60, To: 130},
}

// FromStop reports whether the band starts from standstill.
func (b Band) FromStop() bool {
	return b.From == 0
}

// IntervalResult is the best (shortest) transition found for a band.
type IntervalResult struct {
	Band      string  `json:"band"`
	From      float64 `json:"from"`
	To        float64 `json:"to"`
	Duration  float64 `json:"duration"` // seconds
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
}

// MetricsReport holds the computed diagnostics of one datalog.
// Null values mark metrics whose columns were missing.
type MetricsReport struct {
	Rows       int      `json:"rows"`
	WOTWindows []Window `json:"wotWindows"`
	WOTRows    int      `json:"wotRows"`

	KnockPeak null.Val[float64] `json:"knockPeak"`

	PeakTiming    null.Val[float64] `json:"peakTiming"`
	PeakTimingRPM null.Val[float64] `json:"peakTimingRpm"`

	BoostPeak     null.Val[float64] `json:"boostPeak"`
	BoostPeakRPM  null.Val[float64] `json:"boostPeakRpm"`
	BoostAvg      null.Val[float64] `json:"boostAvg"`
	BoostAtMaxRPM null.Val[float64] `json:"boostAtMaxRpm"`
	BoostMaxRPM   null.Val[float64] `json:"boostMaxRpm"`
	BaroKPa       float64           `json:"baroKpa"`
	BaroSource    string            `json:"baroSource"`

	KnockSensorPeaks map[string]float64 `json:"knockSensorPeaks"`

	FuelTrimMaxVariance null.Val[float64] `json:"fuelTrimMaxVariance"`
	FuelTrimAvgBank1    null.Val[float64] `json:"fuelTrimAvgBank1"`
	FuelTrimAvgBank2    null.Val[float64] `json:"fuelTrimAvgBank2"`

	OilPressureMin null.Val[float64] `json:"oilPressureMin"`
	CoolantMax     null.Val[float64] `json:"coolantMax"`

	// cylinder number -> reconstructed misfire events, nonzero only
	Misfires map[int]int `json:"misfires"`

	Intervals []IntervalResult `json:"intervals"`

	// metrics which could not be computed due to missing columns
	Unavailable []string `json:"unavailable"`
}

func (m *MetricsReport) Interval(band string) (IntervalResult, bool) {
	for _, r := range m.Intervals {
		if r.Band == band {
			return r, true
		}
	}
	return IntervalResult{}, false
}
