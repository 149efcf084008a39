package migrate

import (
	"embed"
	"errors"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/mpapenbr/datalog-analyzer-go/log"
)

//go:embed migrations
var migrations embed.FS

// MigrateDb applies all embedded migrations. An up to date schema is no error.
func MigrateDb(dbURI string) error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, pgxURI(dbURI))
	if err != nil {
		return err
	}
	return up(m)
}

// MigrateDbFromSource applies migrations from an external source url,
// e.g. file:///migrations, using the lib/pq based postgres driver.
func MigrateDbFromSource(sourceURL, dbURI string) error {
	m, err := migrate.New(sourceURL, dbURI)
	if err != nil {
		return err
	}
	return up(m)
}

func pgxURI(dbURI string) string {
	uri := strings.Replace(dbURI, "postgresql://", "pgx://", 1)
	return strings.Replace(uri, "postgres://", "pgx://", 1)
}

func up(m *migrate.Migrate) error {
	defer m.Close()
	err := m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	if v, dirty, verr := m.Version(); verr == nil {
		log.Default().Named("migrate").Info("schema migrated",
			log.Int("version", int(v)), log.Bool("dirty", dirty))
	}
	return nil
}
