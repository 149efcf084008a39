//nolint:whitespace //can't make both the linter and editor happy :(
package run

import (
	"context"
	"fmt"

	"github.com/aarondl/opt/null"
	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/db/mytypes"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/repository"
)

func Create(ctx context.Context, conn repository.Querier, r *model.Run) error {
	_, err := conn.Exec(ctx,
		`insert into runs (id, name, vehicle, weight_lbs, intervals, metrics, object_key, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8)`,
		r.ID, r.Name, r.Vehicle, r.WeightLbs.Ptr(),
		mytypes.IntervalSlice(r.Intervals), metricsDoc(r.Metrics),
		r.ObjectKey, r.CreatedAt)
	return err
}

// CreateWithRetry inserts r, transient failures are retried.
func CreateWithRetry(
	ctx context.Context,
	conn repository.Querier,
	cfg repository.RetryConfig,
	r *model.Run,
) error {
	return repository.WithRetry(ctx, cfg, func(ctx context.Context) error {
		return Create(ctx, conn, r)
	})
}

func LoadByID(
	ctx context.Context,
	conn repository.Querier,
	id uuid.UUID,
) (*model.Run, error) {
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where id=$1", selector), id)
	return scan(row)
}

// List returns the latest runs, newest first.
func List(ctx context.Context, conn repository.Querier, limit int) ([]*model.Run, error) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s order by created_at desc limit $1", selector), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := []*model.Run{}
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, rows.Err()
}

func UpdateObjectKey(
	ctx context.Context,
	conn repository.Querier,
	id uuid.UUID,
	key string,
) (int, error) {
	cmdTag, err := conn.Exec(ctx, "update runs set object_key=$1 where id=$2", key, id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// deletes an entry from the database, returns number of rows deleted.
func DeleteByID(ctx context.Context, conn repository.Querier, id uuid.UUID) (int, error) {
	cmdTag, err := conn.Exec(ctx, "delete from runs where id=$1", id)
	if err != nil {
		return 0, err
	}
	return int(cmdTag.RowsAffected()), nil
}

// little helper
const selector = `select id,name,vehicle,weight_lbs,intervals,metrics,object_key,created_at from runs`

func scan(row pgx.Row) (*model.Run, error) {
	var item model.Run
	var weight *float64
	var intervals mytypes.IntervalSlice
	var metrics *mytypes.MetricsDoc
	if err := row.Scan(&item.ID, &item.Name, &item.Vehicle, &weight,
		&intervals, &metrics, &item.ObjectKey, &item.CreatedAt); err != nil {
		return nil, err
	}
	item.WeightLbs = null.FromPtr(weight)
	item.Intervals = []model.IntervalResult(intervals)
	if metrics != nil {
		item.Metrics = (*model.MetricsReport)(metrics)
	}
	return &item, nil
}

func metricsDoc(m *model.MetricsReport) *mytypes.MetricsDoc {
	return (*mytypes.MetricsDoc)(m)
}
