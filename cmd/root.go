/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	analyzeCmd "github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/analyze"
	dynoCmd "github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/dyno"
	migrateCmd "github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/migrate"
	serverCmd "github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/server"
	watchCmd "github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/watch"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/version"
)

const envPrefix = "DLA"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "dla",
	Short:   "Diagnostics and dyno estimation for automotive datalogs",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:funlen // flag definitions
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.dla.yml)")

	rootCmd.PersistentFlags().StringVar(&config.DB, "db",
		"",
		"Connection string for the database (runs are not stored if empty)")
	rootCmd.PersistentFlags().StringVar(&config.NatsURL, "nats-url",
		"",
		"URL of the nats server holding the raw datalogs")
	rootCmd.PersistentFlags().StringVar(&config.RedisAddr, "redis-addr",
		"",
		"host:port of the redis server for the leaderboard")
	rootCmd.PersistentFlags().StringVar(&config.RedisPassword, "redis-password",
		"",
		"Password for the redis server")
	rootCmd.PersistentFlags().IntVar(&config.RedisDB, "redis-db",
		0,
		"Redis database number")
	rootCmd.PersistentFlags().StringVar(&config.WaitForServices,
		"wait-for-services",
		"15s",
		"Duration to wait for other services to be ready")
	rootCmd.PersistentFlags().StringVar(&config.LogLevel,
		"log-level",
		"info",
		"controls the log level (debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().StringVar(&config.SQLLogLevel,
		"sql-log-level",
		"info",
		"controls the log level for sql methods")
	rootCmd.PersistentFlags().StringVar(&config.LogFormat,
		"log-format",
		"text",
		"controls the log output format (json, text)")
	rootCmd.PersistentFlags().StringVar(&config.LogFilter,
		"log-filter",
		"",
		"filter rules for log entries (zapfilter syntax)")
	rootCmd.PersistentFlags().StringVar(&config.ProfileFile,
		"profile",
		"",
		"yaml file with analysis thresholds")
	rootCmd.PersistentFlags().StringVar(&config.AdvisoryURL,
		"advisory-url",
		"",
		"endpoint of the advisory text generator")
	rootCmd.PersistentFlags().StringVar(&config.AdvisoryAPIKey,
		"advisory-api-key",
		"",
		"api key for the advisory text generator")
	rootCmd.PersistentFlags().StringVar(&config.AdvisoryModel,
		"advisory-model",
		"",
		"model name passed to the advisory text generator")
	rootCmd.PersistentFlags().StringVar(&config.AdvisoryTextPath,
		"advisory-text-path",
		"",
		"jsonpath of the text within the generator response (default: openai chat format)")
	rootCmd.PersistentFlags().StringVar(&config.AdvisoryTimeout,
		"advisory-timeout",
		"30s",
		"timeout for one advisory request")

	// add commands here
	rootCmd.AddCommand(analyzeCmd.NewAnalyzeCmd())
	rootCmd.AddCommand(dynoCmd.NewDynoCmd())
	rootCmd.AddCommand(watchCmd.NewWatchCmd())
	rootCmd.AddCommand(serverCmd.NewServerCmd())
	rootCmd.AddCommand(migrateCmd.NewMigrateCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".dla" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dla")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindFlags(rootCmd, viper.GetViper())
	for _, cmd := range rootCmd.Commands() {
		bindFlags(cmd, viper.GetViper())
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --nats-url to DLA_NATS_URL
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}
