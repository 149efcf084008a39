// Package leaderboard ranks the best interval times of saved runs in redis
// sorted sets, one set per speed band.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
)

const (
	DefaultPrefix   = "dla"
	DefaultCapacity = 1000
	DefaultLimit    = 10
)

var ErrUnknownBand = errors.New("unknown band")

type (
	Option func(*Leaderboard)

	Leaderboard struct {
		client   redis.Cmdable
		prefix   string
		capacity int64
		bands    []model.Band
		log      *log.Logger
	}
)

func WithPrefix(prefix string) Option {
	return func(l *Leaderboard) {
		l.prefix = prefix
	}
}

// WithCapacity limits the number of entries kept per band.
func WithCapacity(n int64) Option {
	return func(l *Leaderboard) {
		l.capacity = n
	}
}

func WithBands(bands ...model.Band) Option {
	return func(l *Leaderboard) {
		l.bands = bands
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Leaderboard) {
		l.log = logger
	}
}

// NewClient creates the redis client used by the leaderboard.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func New(client redis.Cmdable, opts ...Option) *Leaderboard {
	ret := &Leaderboard{
		client:   client,
		prefix:   DefaultPrefix,
		capacity: DefaultCapacity,
		bands:    model.DefaultBands,
		log:      log.Default().Named("leaderboard"),
	}
	for _, o := range opts {
		o(ret)
	}
	return ret
}

// Ping checks the connection to redis.
func (l *Leaderboard) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return l.client.Ping(ctx).Err()
}

func (l *Leaderboard) bandKey(band string) string {
	return fmt.Sprintf("%s:leaderboard:%s", l.prefix, band)
}

func (l *Leaderboard) namesKey() string {
	return fmt.Sprintf("%s:runnames", l.prefix)
}

func (l *Leaderboard) knownBand(band string) bool {
	for _, b := range l.bands {
		if b.Name == band {
			return true
		}
	}
	return false
}

// Record adds the interval times of a run. Bands unknown to the
// leaderboard are ignored.
func (l *Leaderboard) Record(ctx context.Context, r *model.Run) error {
	if len(r.Intervals) == 0 {
		return nil
	}
	pipe := l.client.TxPipeline()
	pipe.HSet(ctx, l.namesKey(), r.ID.String(), r.Name)
	for _, iv := range r.Intervals {
		if !l.knownBand(iv.Band) {
			continue
		}
		key := l.bandKey(iv.Band)
		pipe.ZAdd(ctx, key, &redis.Z{
			Score:  iv.Duration,
			Member: r.ID.String(),
		})
		// keep the fastest capacity entries
		pipe.ZRemRangeByRank(ctx, key, l.capacity, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	l.log.Debug("recorded run",
		log.String("id", r.ID.String()),
		log.Int("intervals", len(r.Intervals)))
	return nil
}

// Remove deletes a run from all bands.
func (l *Leaderboard) Remove(ctx context.Context, runID string) error {
	pipe := l.client.TxPipeline()
	for _, b := range l.bands {
		pipe.ZRem(ctx, l.bandKey(b.Name), runID)
	}
	pipe.HDel(ctx, l.namesKey(), runID)
	_, err := pipe.Exec(ctx)
	return err
}

// Entries returns the fastest limit entries of band in ascending order.
//
//nolint:whitespace // can't make both editor and linter happy
func (l *Leaderboard) Entries(ctx context.Context, band string, limit int) (
	[]model.LeaderboardEntry, error,
) {
	if !l.knownBand(band) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBand, band)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	zs, err := l.client.ZRangeWithScores(ctx, l.bandKey(band), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	ret := make([]model.LeaderboardEntry, 0, len(zs))
	if len(zs) == 0 {
		return ret, nil
	}
	ids := make([]string, len(zs))
	for i := range zs {
		ids[i] = fmt.Sprint(zs[i].Member)
	}
	names, err := l.client.HMGet(ctx, l.namesKey(), ids...).Result()
	if err != nil {
		return nil, err
	}
	for i := range zs {
		e := model.LeaderboardEntry{
			Rank:     i + 1,
			RunID:    ids[i],
			Duration: zs[i].Score,
		}
		if s, ok := names[i].(string); ok {
			e.Name = s
		}
		ret = append(ret, e)
	}
	return ret, nil
}
