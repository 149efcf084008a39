// Package cmdutil holds the setup shared by the cli commands.
package cmdutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/advisory"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/db/postgres"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/leaderboard"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/objectstore"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/repository"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/service"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/utils"
)

func ParseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}

// SetupLogger replaces the default logger according to the log flags.
func SetupLogger() *log.Logger {
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			ParseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1),
			log.WithFilter(config.LogFilter))
	default:
		logger = log.DevLogger(
			os.Stderr,
			ParseLogLevel(config.LogLevel, log.InfoLevel),
			log.WithCaller(true),
			log.AddCallerSkip(1),
			log.WithFilter(config.LogFilter))
	}
	log.ResetDefault(logger)
	return logger
}

func sqlLogger() *log.Logger {
	if config.LogFormat == "json" {
		return log.New(os.Stderr, ParseLogLevel(config.SQLLogLevel, log.InfoLevel))
	}
	return log.DevLogger(os.Stderr, ParseLogLevel(config.SQLLogLevel, log.InfoLevel))
}

// WaitForRequiredServices blocks until the configured backing services
// accept tcp connections.
func WaitForRequiredServices() error {
	timeout, err := time.ParseDuration(config.WaitForServices)
	if err != nil {
		log.Warn("Invalid duration value. Setting default 60s", log.ErrorField(err))
		timeout = 60 * time.Second
	}
	addrs := []string{}
	if addr := utils.ExtractFromDBURL(config.DB); addr != "" {
		addrs = append(addrs, addr)
	}
	if addr := utils.ExtractFromNatsURL(config.NatsURL); addr != "" {
		addrs = append(addrs, addr)
	}
	if config.RedisAddr != "" {
		addrs = append(addrs, config.RedisAddr)
	}

	wg := sync.WaitGroup{}
	errs := make([]error, len(addrs))
	for i, addr := range addrs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = utils.WaitForTCP(addr, timeout)
		}()
	}
	log.Debug("Waiting for connection checks to return")
	wg.Wait()
	if err := errors.Join(errs...); err != nil {
		return err
	}
	log.Debug("Required services are available")
	return nil
}

// NewAdvisor creates the advisory client, nil if no url is configured.
func NewAdvisor(cfg config.AdvisoryConfig) (*advisory.Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts := []advisory.Option{
		advisory.WithAPIKey(cfg.APIKey),
		advisory.WithModel(cfg.Model),
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, err
		}
		opts = append(opts, advisory.WithTimeout(d))
	}
	return advisory.NewClient(cfg.URL, cfg.TextPath, opts...)
}

// Backends are the optional storage connections of a service.
type Backends struct {
	Pool        *pgxpool.Pool
	Nats        *nats.Conn
	Store       *objectstore.Store
	Leaderboard *leaderboard.Leaderboard
	redis       *redis.Client
}

func (b *Backends) Close() {
	if b.redis != nil {
		b.redis.Close()
	}
	if b.Nats != nil {
		b.Nats.Close()
	}
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// ConnectBackends opens the connections for all configured backends.
// An empty url leaves the backend unconfigured.
func ConnectBackends(ctx context.Context, withOtel bool) (*Backends, error) {
	b := &Backends{}
	if config.DB != "" {
		opts := []postgres.PoolConfigOption{postgres.WithTracer(sqlLogger())}
		if withOtel {
			opts = append(opts, postgres.WithOtel())
		}
		var err error
		if b.Pool, err = postgres.InitWithUrl(config.DB, opts...); err != nil {
			return nil, err
		}
	}
	if config.NatsURL != "" {
		var err error
		if b.Nats, err = nats.Connect(config.NatsURL, nats.Name("dla")); err != nil {
			b.Close()
			return nil, err
		}
		if b.Store, err = objectstore.New(b.Nats,
			objectstore.WithBucket(config.ObjectStoreBucket)); err != nil {
			b.Close()
			return nil, err
		}
	}
	if config.RedisAddr != "" {
		b.redis = leaderboard.NewClient(config.RedisAddr, config.RedisPassword, config.RedisDB)
		b.Leaderboard = leaderboard.New(b.redis)
		if err := b.Leaderboard.Ping(ctx); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

// NewService wires a service from the app config and the given backends.
func NewService(appCfg *config.Config, b *Backends) (*service.Service, error) {
	retry := repository.DefaultRetryConfig()
	if config.StoreRetries > 0 {
		retry.Attempts = config.StoreRetries
	}
	opts := []service.Option{
		service.WithThresholds(appCfg.Thresholds),
		service.WithRetryConfig(retry),
	}
	adv, err := NewAdvisor(appCfg.Advisory)
	if err != nil {
		return nil, err
	}
	if adv != nil {
		opts = append(opts, service.WithAdvisor(adv))
	}
	if b != nil {
		if b.Pool != nil {
			opts = append(opts, service.WithQuerier(b.Pool))
		}
		if b.Store != nil {
			opts = append(opts, service.WithBlobStore(b.Store))
		}
		if b.Leaderboard != nil {
			opts = append(opts, service.WithRanking(b.Leaderboard))
		}
	}
	return service.New(opts...), nil
}
