package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/objectstore"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/repository"
	runrepos "github.com/mpapenbr/datalog-analyzer-go/pkg/repository/run"
)

var ErrRunNotFound = errors.New("run not found")

// RunColumns are required for stored runs, they feed the leaderboard.
var RunColumns = []datalog.Column{datalog.ColOffset, datalog.ColVehicleSpeed}

type SaveRequest struct {
	Name       string
	Vehicle    string
	WeightLbs  null.Val[float64]
	Content    io.Reader
	Thresholds *config.Thresholds
}

// SaveRun analyses a fixed layout export and stores it.
// When only the storage fails, the analysed run is returned together with
// an error of stage save.
//
//nolint:whitespace,funlen // can't make both editor and linter happy
func (s *Service) SaveRun(ctx context.Context, req *SaveRequest) (
	r *model.Run, err error,
) {
	ctx, span := s.tracer.Start(ctx, "saveRun")
	defer span.End()
	defer func() { s.record(ctx, "save", err) }()

	t, raw, err := s.parseUpload(req.Content, datalog.FixedOffset, false)
	if err != nil {
		failSpan(span, err)
		return nil, err
	}
	if err = t.RequireColumns(RunColumns...); err != nil {
		err = model.NewStageError(model.StageParse, err)
		failSpan(span, err)
		return nil, err
	}
	report, _ := s.processor(req.Thresholds).Analyze(t)
	r = &model.Run{
		ID:        uuid.Must(uuid.NewV4()),
		Name:      req.Name,
		Vehicle:   req.Vehicle,
		WeightLbs: req.WeightLbs,
		Intervals: report.Intervals,
		Metrics:   report,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	span.SetAttributes(attribute.String("run.id", r.ID.String()))

	if err = s.store(ctx, r, raw); err != nil {
		err = model.NewStageError(model.StageSave, err)
		failSpan(span, err)
		return r, err
	}

	if s.ranking != nil {
		if rankErr := s.ranking.Record(ctx, r); rankErr != nil {
			s.log.Warn("could not update leaderboard",
				log.String("id", r.ID.String()), log.ErrorField(rankErr))
		}
	}
	if s.blobs != nil {
		if pubErr := s.blobs.NotifySaved(r); pubErr != nil {
			s.log.Warn("could not publish saved run",
				log.String("id", r.ID.String()), log.ErrorField(pubErr))
		}
	}
	return r, nil
}

// store inserts the run and uploads its raw bytes. Every write is retried.
// If a write after the insert fails, the row and the blob are removed again.
func (s *Service) store(ctx context.Context, r *model.Run, raw []byte) error {
	if s.db == nil {
		return fmt.Errorf("database %w", ErrNotConfigured)
	}
	if err := runrepos.CreateWithRetry(ctx, s.db, s.retry, r); err != nil {
		return err
	}
	if s.blobs == nil {
		return nil
	}
	key := objectstore.ObjectKey(r.ID)
	if err := repository.WithRetry(ctx, s.retry, func(ctx context.Context) error {
		return s.blobs.Put(ctx, key, raw)
	}); err != nil {
		s.rollback(ctx, r.ID, "")
		return err
	}
	if err := repository.WithRetry(ctx, s.retry, func(ctx context.Context) error {
		_, err := runrepos.UpdateObjectKey(ctx, s.db, r.ID, key)
		return err
	}); err != nil {
		s.rollback(ctx, r.ID, key)
		return err
	}
	r.ObjectKey = key
	return nil
}

// rollback removes a partially stored run. Failures are only logged.
func (s *Service) rollback(ctx context.Context, id uuid.UUID, key string) {
	ctx = context.WithoutCancel(ctx)
	if _, err := runrepos.DeleteByID(ctx, s.db, id); err != nil {
		s.log.Warn("could not remove partially stored run",
			log.String("id", id.String()), log.ErrorField(err))
	}
	if key == "" {
		return
	}
	if err := s.blobs.Delete(ctx, key); err != nil &&
		!errors.Is(err, objectstore.ErrNotFound) {
		s.log.Warn("could not remove raw log of partially stored run",
			log.String("key", key), log.ErrorField(err))
	}
}

func (s *Service) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database %w", ErrNotConfigured)
	}
	return runrepos.List(ctx, s.db, limit)
}

// GetRun returns a stored run. Runs are cached for a few minutes.
func (s *Service) GetRun(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database %w", ErrNotConfigured)
	}
	return s.runs.Get(ctx, id)
}

func (s *Service) loadRun(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	r, err := runrepos.LoadByID(ctx, s.db, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	return r, err
}

// DeleteRun removes the run with its raw bytes and leaderboard entries.
func (s *Service) DeleteRun(ctx context.Context, id uuid.UUID) error {
	r, err := s.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if _, err := runrepos.DeleteByID(ctx, s.db, id); err != nil {
		return err
	}
	s.runs.Invalidate(ctx, id)
	if s.blobs != nil && r.ObjectKey != "" {
		if err := s.blobs.Delete(ctx, r.ObjectKey); err != nil &&
			!errors.Is(err, objectstore.ErrNotFound) {
			s.log.Warn("could not delete raw log",
				log.String("key", r.ObjectKey), log.ErrorField(err))
		}
	}
	if s.ranking != nil {
		if err := s.ranking.Remove(ctx, id.String()); err != nil {
			s.log.Warn("could not remove from leaderboard",
				log.String("id", id.String()), log.ErrorField(err))
		}
	}
	return nil
}

//nolint:whitespace // can't make both editor and linter happy
func (s *Service) Leaderboard(ctx context.Context, band string, limit int) (
	[]model.LeaderboardEntry, error,
) {
	if s.ranking == nil {
		return nil, fmt.Errorf("leaderboard %w", ErrNotConfigured)
	}
	return s.ranking.Entries(ctx, band, limit)
}
