package processing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/processing/metrics"
)

const (
	TopicWOT          = "wot"
	TopicKnock        = "knock"
	TopicTiming       = "timing"
	TopicBoost        = "boost"
	TopicKnockSensors = "knockSensors"
	TopicFuelTrim     = "fuelTrim"
	TopicOilPressure  = "oilPressure"
	TopicCoolant      = "coolant"
	TopicMisfire      = "misfire"
	TopicIntervals    = "intervals"

	MetricIntervals = "intervals"
)

type checklistBuilder struct {
	r   *model.MetricsReport
	th  config.Thresholds
	ret model.Checklist
}

// BuildChecklist renders the report as status lines, one or more per topic.
func BuildChecklist(r *model.MetricsReport, th config.Thresholds) model.Checklist {
	b := &checklistBuilder{r: r, th: th, ret: model.Checklist{}}
	b.wot()
	b.knock()
	b.timing()
	b.boost()
	b.knockSensors()
	b.fuelTrim()
	b.oil()
	b.coolant()
	b.misfire()
	b.intervals()
	return b.ret
}

func (b *checklistBuilder) add(topic string, s model.Severity, format string, args ...any) {
	b.ret = append(b.ret, model.ChecklistLine{
		Topic:    topic,
		Severity: s,
		Text:     fmt.Sprintf(format, args...),
	})
}

func (b *checklistBuilder) unavailable(metric string) bool {
	return lo.Contains(b.r.Unavailable, metric)
}

func (b *checklistBuilder) wot() {
	switch {
	case b.unavailable(metrics.MetricWOT):
		b.add(TopicWOT, model.SeverityInfo, "Accelerator position not found; WOT not evaluated")
	case b.r.WOTRows == 0:
		b.add(TopicWOT, model.SeverityInfo, "No true WOT detected")
	default:
		b.add(TopicWOT, model.SeverityInfo, "True WOT: %d rows in %d window(s)",
			b.r.WOTRows, len(b.r.WOTWindows))
	}
}

func (b *checklistBuilder) knock() {
	switch {
	case b.unavailable(metrics.MetricKnock):
		b.add(TopicKnock, model.SeverityInfo, "Knock retard not found in log")
	case b.r.KnockPeak.GetOr(0) == 0:
		b.add(TopicKnock, model.SeverityPass, "No knock detected")
	default:
		b.add(TopicKnock, model.SeverityWarning, "Knock detected: peak retard %.1f°",
			b.r.KnockPeak.MustGet())
	}
}

func (b *checklistBuilder) timing() {
	switch {
	case b.unavailable(metrics.MetricTiming):
		b.add(TopicTiming, model.SeverityInfo, "Timing advance not found in log")
	case b.r.WOTRows == 0:
		b.add(TopicTiming, model.SeverityInfo, "No true WOT detected; peak timing not evaluated")
	case b.r.PeakTiming.IsNull():
		b.add(TopicTiming, model.SeverityInfo, "Peak timing could not be computed")
	default:
		b.add(TopicTiming, model.SeverityInfo, "Peak timing under WOT: %.1f° @ %s RPM",
			b.r.PeakTiming.MustGet(), rpmText(b.r.PeakTimingRPM))
	}
}

func (b *checklistBuilder) boost() {
	switch {
	case b.r.WOTRows == 0:
		b.add(TopicBoost, model.SeverityInfo, "No true WOT detected; boost not evaluated")
	case b.r.BoostPeak.IsNull():
		b.add(TopicBoost, model.SeverityInfo,
			"Boost could not be computed (no manifold pressure under WOT)")
	default:
		b.add(TopicBoost, model.SeverityInfo,
			"Peak boost %.2f psi @ %s RPM, average %.2f psi, %.2f psi @ %s RPM (baro %.2f kPa, %s)",
			b.r.BoostPeak.MustGet(), rpmText(b.r.BoostPeakRPM),
			b.r.BoostAvg.GetOr(0),
			b.r.BoostAtMaxRPM.GetOr(0), rpmText(b.r.BoostMaxRPM),
			b.r.BaroKPa, b.r.BaroSource)
	}
}

func (b *checklistBuilder) knockSensors() {
	if b.unavailable(metrics.MetricKnockSensors) {
		b.add(TopicKnockSensors, model.SeverityInfo, "Knock sensor voltages not found in log")
		return
	}
	for _, c := range []datalog.Column{datalog.ColKnockSensor1, datalog.ColKnockSensor2} {
		v, ok := b.r.KnockSensorPeaks[string(c)]
		if !ok {
			continue
		}
		if v > b.th.KnockSensorVolts {
			b.add(TopicKnockSensors, model.SeverityWarning, "%s peaked at %.2f V (above %.1f V)",
				c, v, b.th.KnockSensorVolts)
		} else {
			b.add(TopicKnockSensors, model.SeverityPass, "%s peak %.2f V", c, v)
		}
	}
}

func (b *checklistBuilder) fuelTrim() {
	if b.unavailable(metrics.MetricFuelTrim) {
		b.add(TopicFuelTrim, model.SeverityInfo, "Fuel trims not found in log")
		return
	}
	if v, ok := b.r.FuelTrimMaxVariance.Get(); ok {
		if v > b.th.FuelTrimVariance {
			b.add(TopicFuelTrim, model.SeverityWarning,
				"Fuel trim bank variance too high: %.1f%% (limit %.0f%%)", v, b.th.FuelTrimVariance)
		} else {
			b.add(TopicFuelTrim, model.SeverityPass,
				"Fuel trim banks within %.0f%% (max difference %.1f%%)", b.th.FuelTrimVariance, v)
		}
	}
	for i, avg := range []null.Val[float64]{b.r.FuelTrimAvgBank1, b.r.FuelTrimAvgBank2} {
		if v, ok := avg.Get(); ok {
			b.add(TopicFuelTrim, model.SeverityInfo, "Average fuel correction bank %d: %+.2f%%", i+1, v)
		}
	}
}

func (b *checklistBuilder) oil() {
	switch {
	case b.unavailable(metrics.MetricOilPressure):
		b.add(TopicOilPressure, model.SeverityInfo, "Oil pressure or engine RPM not found in log")
	case b.r.OilPressureMin.IsNull():
		b.add(TopicOilPressure, model.SeverityInfo,
			"Oil pressure not evaluated (no readings above %.0f RPM)", b.th.OilPressureMinRPM)
	case b.r.OilPressureMin.MustGet() < b.th.OilPressureFloor:
		b.add(TopicOilPressure, model.SeverityWarning,
			"Oil pressure dropped to %.1f psi above %.0f RPM",
			b.r.OilPressureMin.MustGet(), b.th.OilPressureMinRPM)
	default:
		b.add(TopicOilPressure, model.SeverityPass,
			"Oil pressure stayed above %.0f psi (min %.1f psi)",
			b.th.OilPressureFloor, b.r.OilPressureMin.MustGet())
	}
}

func (b *checklistBuilder) coolant() {
	switch {
	case b.unavailable(metrics.MetricCoolant):
		b.add(TopicCoolant, model.SeverityInfo, "Coolant temperature not found in log")
	case b.r.CoolantMax.IsNull():
		b.add(TopicCoolant, model.SeverityInfo, "Coolant temperature had no readings")
	case b.r.CoolantMax.MustGet() > b.th.CoolantCeiling:
		b.add(TopicCoolant, model.SeverityWarning, "Coolant temperature reached %.1f°F (limit %.0f°F)",
			b.r.CoolantMax.MustGet(), b.th.CoolantCeiling)
	default:
		b.add(TopicCoolant, model.SeverityPass, "Coolant temperature peaked at %.1f°F",
			b.r.CoolantMax.MustGet())
	}
}

func (b *checklistBuilder) misfire() {
	switch {
	case b.unavailable(metrics.MetricMisfire):
		b.add(TopicMisfire, model.SeverityInfo, "Misfire counters not found in log")
	case len(b.r.Misfires) == 0:
		b.add(TopicMisfire, model.SeverityPass, "No misfires detected")
	default:
		cyls := lo.Keys(b.r.Misfires)
		sort.Ints(cyls)
		parts := lo.Map(cyls, func(c, _ int) string {
			return fmt.Sprintf("cylinder %d: %d", c, b.r.Misfires[c])
		})
		b.add(TopicMisfire, model.SeverityWarning, "Misfires detected: %s", strings.Join(parts, ", "))
	}
}

func (b *checklistBuilder) intervals() {
	switch {
	case b.unavailable(MetricIntervals):
		b.add(TopicIntervals, model.SeverityInfo, "Speed, time or pedal not found; intervals not evaluated")
	case len(b.r.Intervals) == 0:
		b.add(TopicIntervals, model.SeverityInfo, "No qualifying acceleration runs found")
	default:
		for _, i := range b.r.Intervals {
			b.add(TopicIntervals, model.SeverityInfo, "Best %s mph: %.2f s", i.Band, i.Duration)
		}
	}
}

func rpmText(v null.Val[float64]) string {
	if r, ok := v.Get(); ok {
		return fmt.Sprintf("%.0f", r)
	}
	return "unknown"
}
