package postgres

import (
	"context"
	"fmt"

	"github.com/exaring/otelpgx"
	pgxuuid "github.com/jackc/pgx-gofrs-uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mpapenbr/datalog-analyzer-go/log"
)

type PoolConfigOption func(cfg *pgxpool.Config)

// WithTracer logs every statement at debug level.
func WithTracer(logger *log.Logger) PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		addTracer(cfg, &myQueryTracer{log: logger})
	}
}

// WithOtel creates spans for statements via the global tracer provider.
func WithOtel() PoolConfigOption {
	return func(cfg *pgxpool.Config) {
		addTracer(cfg, otelpgx.NewTracer(otelpgx.WithTrimSQLInSpanName()))
	}
}

func InitWithUrl(url string, opts ...PoolConfigOption) (*pgxpool.Pool, error) {
	dbConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	dbConfig.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxuuid.Register(conn.TypeMap())
		return nil
	}
	for _, opt := range opts {
		opt(dbConfig)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create the database pool: %w", err)
	}
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to get a valid database connection: %w", err)
	}
	return pool, nil
}

func addTracer(cfg *pgxpool.Config, t pgx.QueryTracer) {
	switch cur := cfg.ConnConfig.Tracer.(type) {
	case nil:
		cfg.ConnConfig.Tracer = t
	case queryTracers:
		cfg.ConnConfig.Tracer = append(cur, t)
	case pgx.QueryTracer:
		cfg.ConnConfig.Tracer = queryTracers{cur, t}
	}
}

// queryTracers fans out to several tracers
type queryTracers []pgx.QueryTracer

//nolint:whitespace // can't make the linters happy
func (q queryTracers) TraceQueryStart(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	for _, t := range q {
		ctx = t.TraceQueryStart(ctx, conn, data)
	}
	return ctx
}

//nolint:whitespace // can't make the linters happy
func (q queryTracers) TraceQueryEnd(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	for _, t := range q {
		t.TraceQueryEnd(ctx, conn, data)
	}
}

type myQueryTracer struct {
	log *log.Logger
}

//nolint:whitespace // can't make the linters happy
func (tracer *myQueryTracer) TraceQueryStart(
	ctx context.Context,
	_ *pgx.Conn,
	data pgx.TraceQueryStartData,
) context.Context {
	tracer.log.Debug("Executing", log.String("sql", data.SQL), log.Any("args", data.Args))
	return ctx
}

//nolint:whitespace // can't make the linters happy
func (tracer *myQueryTracer) TraceQueryEnd(
	ctx context.Context,
	conn *pgx.Conn,
	data pgx.TraceQueryEndData,
) {
	if data.Err != nil {
		tracer.log.Debug("Query failed", log.ErrorField(data.Err))
	}
}
