// Package service implements the request flows on top of the numeric
// pipeline: ad-hoc analysis, dyno, overlay and stored runs.
package service

import (
	"context"
	"errors"
	"os"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/advisory"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/processing"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/repository"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/utils/cache"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/utils/cache/loadercache"
)

var ErrNotConfigured = errors.New("not configured")

type (
	// Advisor turns observations into advisory text.
	Advisor interface {
		Advise(ctx context.Context, obs *advisory.Observations) (string, error)
	}
	// BlobStore keeps the raw bytes of saved runs.
	BlobStore interface {
		Put(ctx context.Context, key string, data []byte) error
		Delete(ctx context.Context, key string) error
		NotifySaved(r *model.Run) error
	}
	// Ranking keeps the leaderboard of interval times.
	Ranking interface {
		Record(ctx context.Context, r *model.Run) error
		Remove(ctx context.Context, runID string) error
		Entries(ctx context.Context, band string, limit int) ([]model.LeaderboardEntry, error)
	}
)

type Option func(*Service)

func WithThresholds(th config.Thresholds) Option {
	return func(s *Service) {
		s.th = th
	}
}

func WithAdvisor(a Advisor) Option {
	return func(s *Service) {
		s.advisor = a
	}
}

func WithQuerier(q repository.Querier) Option {
	return func(s *Service) {
		s.db = q
	}
}

func WithBlobStore(b BlobStore) Option {
	return func(s *Service) {
		s.blobs = b
	}
}

func WithRanking(r Ranking) Option {
	return func(s *Service) {
		s.ranking = r
	}
}

func WithRetryConfig(cfg repository.RetryConfig) Option {
	return func(s *Service) {
		s.retry = cfg
	}
}

// WithTempDir sets the directory uploads are spooled to.
func WithTempDir(dir string) Option {
	return func(s *Service) {
		s.tempDir = dir
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

type Service struct {
	th      config.Thresholds
	proc    *processing.Processor
	advisor Advisor
	db      repository.Querier
	blobs   BlobStore
	ranking Ranking
	retry   repository.RetryConfig
	runs    cache.Cache[uuid.UUID, model.Run]
	tempDir string
	tracer  trace.Tracer
	counter metric.Int64Counter
	log     *log.Logger
}

func New(opts ...Option) *Service {
	ret := &Service{
		th:      config.DefaultThresholds(),
		retry:   repository.DefaultRetryConfig(),
		tempDir: os.TempDir(),
		log:     log.Default().Named("service"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	if ret.tracer == nil {
		ret.tracer = otel.Tracer("dla")
	}
	var err error
	ret.counter, err = otel.Meter("dla").Int64Counter("dla.requests",
		metric.WithDescription("processed analysis requests by operation and outcome"))
	if err != nil {
		ret.log.Warn("could not create request counter", log.ErrorField(err))
	}
	ret.proc = ret.processor(nil)
	ret.runs = loadercache.New(
		loadercache.WithLoader[uuid.UUID, model.Run](ret.loadRun),
		loadercache.WithLogger[uuid.UUID, model.Run](ret.log.Named("cache")))
	return ret
}

func (s *Service) Thresholds() config.Thresholds {
	return s.th
}

// processor returns the shared processor unless th overrides the thresholds.
func (s *Service) processor(th *config.Thresholds) *processing.Processor {
	if th == nil && s.proc != nil {
		return s.proc
	}
	use := s.th
	if th != nil {
		use = *th
	}
	return processing.NewProcessor(
		processing.WithThresholds(use),
		processing.WithLogger(s.log.Named("processing")))
}

// record counts one request. The outcome is "ok" or the failed stage.
func (s *Service) record(ctx context.Context, op string, err error) {
	if s.counter == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		if outcome = string(model.StageOf(err)); outcome == "" {
			outcome = "error"
		}
	}
	s.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome)))
}
