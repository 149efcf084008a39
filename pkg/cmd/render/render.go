// Package render prints analysis results to the terminal.
package render

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/aarondl/opt/null"
	"github.com/pterm/pterm"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

const na = "n/a"

func fmtVal(v null.Val[float64], prec int, unit string) string {
	f, ok := v.Get()
	if !ok {
		return na
	}
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if unit != "" {
		s += " " + unit
	}
	return s
}

func atRPM(v, rpm null.Val[float64], prec int, unit string) string {
	s := fmtVal(v, prec, unit)
	if r, ok := rpm.Get(); ok && v.IsValue() {
		s += fmt.Sprintf(" @ %.0f rpm", r)
	}
	return s
}

// MetricsTable lists the scalar metrics of a report.
func MetricsTable(m *model.MetricsReport) pterm.TableData {
	data := pterm.TableData{
		{"Metric", "Value"},
		{"Rows", strconv.Itoa(m.Rows)},
		{"WOT windows", fmt.Sprintf("%d (%d rows)", len(m.WOTWindows), m.WOTRows)},
		{"Knock retard peak", fmtVal(m.KnockPeak, 1, "°")},
		{"Peak timing", atRPM(m.PeakTiming, m.PeakTimingRPM, 1, "°")},
		{"Boost peak", atRPM(m.BoostPeak, m.BoostPeakRPM, 1, "psi")},
		{"Boost avg (WOT)", fmtVal(m.BoostAvg, 1, "psi")},
		{"Boost at max rpm", atRPM(m.BoostAtMaxRPM, m.BoostMaxRPM, 1, "psi")},
		{"Barometric", fmt.Sprintf("%.1f kPa (%s)", m.BaroKPa, m.BaroSource)},
		{"Fuel trim max variance", fmtVal(m.FuelTrimMaxVariance, 1, "%")},
		{"Fuel trim avg bank 1", fmtVal(m.FuelTrimAvgBank1, 1, "%")},
		{"Fuel trim avg bank 2", fmtVal(m.FuelTrimAvgBank2, 1, "%")},
		{"Oil pressure min", fmtVal(m.OilPressureMin, 1, "psi")},
		{"Coolant max", fmtVal(m.CoolantMax, 1, "°F")},
	}
	sensors := make([]string, 0, len(m.KnockSensorPeaks))
	for k := range m.KnockSensorPeaks {
		sensors = append(sensors, k)
	}
	sort.Strings(sensors)
	for _, k := range sensors {
		data = append(data, []string{k, fmt.Sprintf("%.2f V", m.KnockSensorPeaks[k])})
	}
	cyls := make([]int, 0, len(m.Misfires))
	for c := range m.Misfires {
		cyls = append(cyls, c)
	}
	sort.Ints(cyls)
	for _, c := range cyls {
		data = append(data, []string{fmt.Sprintf("Misfires cyl %d", c), strconv.Itoa(m.Misfires[c])})
	}
	return data
}

// IntervalTable lists the best time per speed band. Nil if none was found.
func IntervalTable(intervals []model.IntervalResult) pterm.TableData {
	if len(intervals) == 0 {
		return nil
	}
	data := pterm.TableData{{"Band", "Time", "Start", "End"}}
	for _, r := range intervals {
		data = append(data, []string{
			r.Band,
			fmt.Sprintf("%.2f s", r.Duration),
			fmt.Sprintf("%.2f", r.StartTime),
			fmt.Sprintf("%.2f", r.EndTime),
		})
	}
	return data
}

// CurveTable lists the curve points.
func CurveTable(c model.DynoCurve) pterm.TableData {
	powerHdr, torqueHdr := "HP", "lb-ft"
	if c.Kind() == model.CurveRelative {
		powerHdr, torqueHdr = "Power score", "Torque score"
	}
	data := pterm.TableData{{"RPM", powerHdr, torqueHdr}}
	for _, p := range c.CurvePoints() {
		data = append(data, []string{
			fmt.Sprintf("%.0f", p.RPM),
			fmt.Sprintf("%.1f", p.Power),
			fmtVal(p.Torque, 1, ""),
		})
	}
	return data
}

func peakLines(c model.DynoCurve) []string {
	switch curve := c.(type) {
	case *model.AbsoluteCurve:
		return []string{
			fmt.Sprintf("Peak power: %.1f hp @ %.0f rpm", curve.PeakHP.Value, curve.PeakHP.RPM),
			fmt.Sprintf("Peak torque: %.1f lb-ft @ %.0f rpm",
				curve.PeakTorque.Value, curve.PeakTorque.RPM),
			fmt.Sprintf("Vehicle weight: %.0f lbs", curve.WeightLbs),
		}
	case *model.RelativeCurve:
		return []string{
			fmt.Sprintf("Peak power score: %.1f @ %.0f rpm",
				curve.PeakScore.Value, curve.PeakScore.RPM),
			fmt.Sprintf("Peak torque score: %.1f @ %.0f rpm",
				curve.PeakTorqueScore.Value, curve.PeakTorqueScore.RPM),
			"No vehicle weight given, values are relative",
		}
	}
	return nil
}

func printTable(data pterm.TableData) {
	if data == nil {
		return
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Println(err)
	}
}

// Checklist prints each line with a prefix matching its severity.
func Checklist(c model.Checklist) {
	for _, line := range c {
		switch line.Severity {
		case model.SeverityWarning:
			pterm.Warning.Println(line.Text)
		case model.SeverityPass:
			pterm.Success.Println(line.Text)
		default:
			pterm.Info.Println(line.Text)
		}
	}
}

// Analysis prints the complete result of an analysis.
func Analysis(title string, res *model.AnalysisResult) {
	pterm.DefaultHeader.WithFullWidth().Println(title)
	pterm.DefaultSection.Println("Checklist")
	Checklist(res.Checklist)

	pterm.DefaultSection.Println("Metrics")
	printTable(MetricsTable(res.Metrics))
	if len(res.Metrics.Unavailable) > 0 {
		pterm.Info.Printf("Not available: %v\n", res.Metrics.Unavailable)
	}
	if data := IntervalTable(res.Metrics.Intervals); data != nil {
		pterm.DefaultSection.Println("Intervals")
		printTable(data)
	}
	if res.Advisory != "" {
		pterm.DefaultSection.Println("Advisory")
		pterm.DefaultBox.Println(res.Advisory)
	}
	if res.Dyno != nil {
		Dyno(res.Dyno)
	}
}

// Dyno prints a dyno result or the reason why no curve was derived.
func Dyno(res *model.DynoResult) {
	pterm.DefaultSection.Println("Dyno")
	if res.Curve == nil {
		pterm.Error.Println(res.Error)
		return
	}
	for _, l := range peakLines(res.Curve) {
		pterm.Info.Println(l)
	}
	printTable(CurveTable(res.Curve))
}
