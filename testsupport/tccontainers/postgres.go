//nolint:errcheck // testsetup
package tccontainers

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/datalog-analyzer-go/pkg/db/migrate"
	database "github.com/mpapenbr/datalog-analyzer-go/pkg/db/postgres"
)

// create a pg connection pool for the datalog testdatabase
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := Setup(ctx,
		WithImage("postgres:16"),
		WithCmd("postgres", "-c", "fsync=off"),
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("datalog-analyzer-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	endpoint, err := container.Endpoint(ctx, port)
	if err != nil {
		log.Fatal(err)
	}
	dbUrl := fmt.Sprintf("postgresql://postgres:password@%s/postgres", endpoint)

	return migrateAndConnect(dbUrl)
}

// SetupExternalTestDb uses the database given by TESTDB_URL
func SetupExternalTestDb() *pgxpool.Pool {
	return migrateAndConnect(os.Getenv("TESTDB_URL"))
}

func migrateAndConnect(dbUrl string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbUrl); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithUrl(dbUrl)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

func ClearRunsTable(pool *pgxpool.Pool) {
	pool.Exec(context.Background(), "delete from runs")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearRunsTable(pool)
}
