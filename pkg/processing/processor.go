package processing

import (
	"errors"
	"sort"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/processing/dyno"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/processing/interval"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/processing/metrics"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/processing/wot"
)

// Processor runs the numeric pipeline on a parsed table:
// windows, intervals, metrics and the checklist.
// It holds no per-log state and may be shared.
type Processor struct {
	th          config.Thresholds
	bands       []model.Band
	detector    *wot.Detector
	finder      *interval.Finder
	engine      *metrics.Engine
	synthesizer *dyno.Synthesizer
	log         *log.Logger
}
type ProcessorOption func(proc *Processor)

func WithThresholds(th config.Thresholds) ProcessorOption {
	return func(proc *Processor) {
		proc.th = th
	}
}

func WithBands(bands ...model.Band) ProcessorOption {
	return func(proc *Processor) {
		proc.bands = bands
	}
}

func WithLogger(l *log.Logger) ProcessorOption {
	return func(proc *Processor) {
		proc.log = l
	}
}

func NewProcessor(opts ...ProcessorOption) *Processor {
	ret := &Processor{
		th:    config.DefaultThresholds(),
		bands: model.DefaultBands,
		log:   log.Default().Named("processing"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.detector = wot.NewDetector(wot.WithThreshold(ret.th.WOT))
	ret.finder = interval.NewFinder(
		interval.WithThreshold(ret.th.WOT),
		interval.WithStopSpeed(ret.th.StopSpeed))
	ret.engine = metrics.NewEngine(
		metrics.WithThresholds(ret.th),
		metrics.WithLogger(ret.log.Named("metrics")))
	ret.synthesizer = dyno.NewSynthesizer(dyno.WithThresholds(ret.th))
	return ret
}

func (p *Processor) Thresholds() config.Thresholds {
	return p.th
}

// Analyze computes the metrics report and its checklist.
// Missing columns degrade single metrics, this never fails.
func (p *Processor) Analyze(t *datalog.Table) (*model.MetricsReport, model.Checklist) {
	windows, err := p.detector.Detect(t)
	if err != nil {
		p.log.Debug("wot not evaluated", log.ErrorField(err))
	}
	report := p.engine.Compute(t, windows)
	if err != nil {
		report.Unavailable = append(report.Unavailable, metrics.MetricWOT)
	}

	intervals, err := p.finder.FindAll(t, p.bands)
	if err != nil {
		p.log.Debug("intervals not evaluated", log.ErrorField(err))
		report.Unavailable = append(report.Unavailable, MetricIntervals)
	} else {
		report.Intervals = intervals
	}
	sort.Strings(report.Unavailable)

	p.log.Debug("analysis done",
		log.Int("rows", report.Rows),
		log.Int("wotRows", report.WOTRows),
		log.Strings("unavailable", report.Unavailable))
	return report, BuildChecklist(report, p.th)
}

// Dyno synthesizes a power curve. Synthesis failures are returned as
// StageError with stage sweep.
//
//nolint:whitespace // can't make both editor and linter happy
func (p *Processor) Dyno(t *datalog.Table, weightLbs null.Val[float64]) (
	model.DynoCurve, error,
) {
	c, err := p.synthesizer.Synthesize(t, weightLbs)
	if err != nil {
		return nil, model.NewStageError(model.StageSweep, err)
	}
	return c, nil
}

// DynoResult is Dyno wrapped into the boundary shape.
func (p *Processor) DynoResult(t *datalog.Table, weightLbs null.Val[float64]) *model.DynoResult {
	c, err := p.Dyno(t, weightLbs)
	var se *model.StageError
	if errors.As(err, &se) {
		err = se.Err
	}
	return model.NewDynoResult(c, err)
}
