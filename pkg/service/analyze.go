package service

import (
	"context"
	"errors"
	"io"

	"github.com/aarondl/opt/null"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/advisory"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/processing"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/processing/overlay"
)

type AnalyzeRequest struct {
	Content  io.Reader
	Layout   datalog.Layout
	Quoted   bool
	Advisory bool // ask the advisory generator
	Dyno     bool // add a dyno result
	// used for the dyno, null yields a relative curve
	WeightLbs  null.Val[float64]
	Thresholds *config.Thresholds // overrides the service thresholds
}

type DynoRequest struct {
	Content    io.Reader
	Quoted     bool
	WeightLbs  null.Val[float64]
	Thresholds *config.Thresholds
}

type Upload struct {
	Name    string
	Content io.Reader
}

func failSpan(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// Analyze parses the upload and computes metrics, checklist and advisory.
// Only parse failures fail the request, an unavailable advisory yields
// the fallback message.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) Analyze(ctx context.Context, req *AnalyzeRequest) (
	res *model.AnalysisResult, err error,
) {
	ctx, span := s.tracer.Start(ctx, "analyze")
	defer span.End()
	defer func() { s.record(ctx, "analyze", err) }()

	t, _, err := s.parseUpload(req.Content, req.Layout, req.Quoted)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("rows", t.Len()))

	proc := s.processor(req.Thresholds)
	report, checklist := proc.Analyze(t)
	res = &model.AnalysisResult{
		Checklist:     checklist,
		ChecklistText: checklist.String(),
		Metrics:       report,
	}
	if req.Advisory {
		res.Advisory, res.AdvisoryAvailable = s.advise(ctx, t, report, checklist, proc)
	}
	if req.Dyno {
		res.Dyno = proc.DynoResult(t, req.WeightLbs)
	}
	return res, nil
}

// advise returns the advisory text or the fallback message.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) advise(
	ctx context.Context,
	t *datalog.Table,
	report *model.MetricsReport,
	checklist model.Checklist,
	proc *processing.Processor,
) (string, bool) {
	ctx, span := s.tracer.Start(ctx, "advisory")
	defer span.End()
	if s.advisor == nil {
		return advisory.FallbackMessage, false
	}
	th := proc.Thresholds()
	obs := advisory.BuildObservations(t, report, checklist, th.SampleStride, th.MaxSamples)
	text, err := s.advisor.Advise(ctx, obs)
	if err != nil {
		err = model.NewStageError(model.StageAdvisory, err)
		failSpan(span, err)
		s.log.Warn("advisory unavailable, using fallback", log.ErrorField(err))
		s.record(ctx, "advisory", err)
		return advisory.FallbackMessage, false
	}
	return text, true
}

// Dyno synthesizes a power curve. Synthesis failures are part of the
// result, only parse failures return an error.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) Dyno(ctx context.Context, req *DynoRequest) (
	res *model.DynoResult, err error,
) {
	ctx, span := s.tracer.Start(ctx, "dyno")
	defer span.End()
	defer func() { s.record(ctx, "dyno", err) }()

	t, _, err := s.parseUpload(req.Content, datalog.Dynamic, req.Quoted)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	res = s.processor(req.Thresholds).DynoResult(t, req.WeightLbs)
	if res.Error != "" {
		span.SetAttributes(attribute.String("dyno.error", res.Error))
	}
	return res, nil
}

// Overlay compares two logs. Both files are parsed quote-aware.
//
//nolint:whitespace // can't make both editor and linter happy
func (s *Service) Overlay(ctx context.Context, a, b Upload, th *config.Thresholds) (
	res *overlay.Comparison, err error,
) {
	ctx, span := s.tracer.Start(ctx, "overlay")
	defer span.End()
	defer func() { s.record(ctx, "overlay", err) }()

	proc := s.processor(th)
	summaries := make([]overlay.Summary, 0, 2)
	for _, u := range []Upload{a, b} {
		t, _, err := s.parseUpload(u.Content, datalog.Dynamic, true)
		if err != nil {
			failSpan(span, err)
			var se *model.StageError
			if errors.As(err, &se) {
				se.Err = &uploadError{name: u.Name, err: se.Err}
			}
			return nil, err
		}
		report, _ := proc.Analyze(t)
		summaries = append(summaries, overlay.Summarize(u.Name, report))
	}
	return overlay.Compare(summaries[0], summaries[1], model.DefaultBands), nil
}

type uploadError struct {
	name string
	err  error
}

func (e *uploadError) Error() string {
	return e.name + ": " + e.err.Error()
}

func (e *uploadError) Unwrap() error {
	return e.err
}
