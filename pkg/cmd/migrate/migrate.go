package migrate

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	dbmigrate "github.com/mpapenbr/datalog-analyzer-go/pkg/db/migrate"
)

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogger()
			return startMigration()
		},
	}

	cmd.Flags().StringVarP(&config.MigrationSourceURL,
		"migration-source-url",
		"m",
		"",
		"url to migration files (default: migrations built into the binary)")

	return cmd
}

func startMigration() error {
	if err := cmdutil.WaitForRequiredServices(); err != nil {
		log.Error("database not ready", log.ErrorField(err))
		return err
	}

	dbURL := prepareURLForDB(config.DB)
	if config.MigrationSourceURL == "" {
		log.Info("Using embedded migrations")
		return dbmigrate.MigrateDb(dbURL)
	}
	log.Info("Using migrations files at", log.String("source", config.MigrationSourceURL))
	return dbmigrate.MigrateDbFromSource(config.MigrationSourceURL, dbURL)
}

func prepareURLForDB(url string) string {
	options := "sslmode=disable"
	if strings.Contains(url, "sslmode=") {
		return url
	}
	if strings.Contains(url, "?") {
		return fmt.Sprintf("%s&%s", url, options)
	}
	return fmt.Sprintf("%s?%s", url, options)
}
