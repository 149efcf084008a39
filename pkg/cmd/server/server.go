package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/server"
)

func NewServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "starts the http api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startServer(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&config.HTTPServerAddr,
		"addr",
		"localhost:8080",
		"listen address for the http api")
	cmd.Flags().Int64Var(&config.MaxUploadSize,
		"max-upload-size",
		server.DefaultMaxUploadSize,
		"max bytes accepted per uploaded file")
	cmd.Flags().BoolVar(&config.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&config.TelemetryEndpoint,
		"telemetry-endpoint",
		"localhost:4317",
		"Endpoint that receives open telemetry data")
	cmd.Flags().IntVar(&config.StoreRetries,
		"store-retries",
		4,
		"max attempts for persisting a run")
	cmd.Flags().StringVar(&config.ObjectStoreBucket,
		"object-store-bucket",
		"datalogs",
		"nats object store bucket for raw logs")
	cmd.Flags().StringVar(&config.TLSCertFile,
		"tls-cert",
		"",
		"file containing the TLS certificate (enables https)")
	cmd.Flags().StringVar(&config.TLSKeyFile,
		"tls-key",
		"",
		"file containing the TLS key")
	cmd.Flags().StringVar(&config.TLSCAFile,
		"tls-ca",
		"",
		"file containing the CA for client certificates")
	return cmd
}

//nolint:funlen // by design
func startServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	cmdutil.SetupLogger()
	log.Debug("Config:",
		log.String("addr", config.HTTPServerAddr),
		log.String("nats", config.NatsURL),
		log.String("redis", config.RedisAddr),
		log.String("advisory", config.AdvisoryURL),
	)
	appCfg, err := config.FromGlobals()
	if err != nil {
		log.Error("invalid configuration", log.ErrorField(err))
		return err
	}

	if err := cmdutil.WaitForRequiredServices(); err != nil {
		log.Error("required services not ready", log.ErrorField(err))
		return err
	}

	var telemetry *config.Telemetry
	if config.EnableTelemetry {
		log.Info("Enabling telemetry")
		if telemetry, err = config.SetupTelemetry(ctx); err != nil {
			log.Warn("Could not setup telemetry", log.ErrorField(err))
		}
		err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
		if err != nil {
			log.Warn("Could not start runtime metrics", log.ErrorField(err))
		}
	}

	backends, err := cmdutil.ConnectBackends(ctx, telemetry != nil)
	if err != nil {
		log.Error("could not connect backends", log.ErrorField(err))
		return err
	}
	defer backends.Close()

	svc, err := cmdutil.NewService(appCfg, backends)
	if err != nil {
		log.Error("could not create service", log.ErrorField(err))
		return err
	}
	srvOpts := append([]server.Option{
		server.WithMaxUploadSize(config.MaxUploadSize),
		server.WithLogger(log.Default().Named("http")),
	}, healthChecks(backends)...)
	srv := server.New(svc, srvOpts...)

	//nolint:gosec // by design
	httpServer := &http.Server{
		Addr:    config.HTTPServerAddr,
		Handler: srv.Handler(),
	}
	if config.TLSCertFile != "" && config.TLSKeyFile != "" {
		if httpServer.TLSConfig, err = newTLSConfig(ctx,
			config.TLSCertFile, config.TLSKeyFile, config.TLSCAFile); err != nil {
			log.Error("could not setup tls", log.ErrorField(err))
			return err
		}
	}
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting http server",
			log.String("addr", config.HTTPServerAddr),
			log.Bool("tls", httpServer.TLSConfig != nil))
		var err error
		if httpServer.TLSConfig != nil {
			err = httpServer.ListenAndServeTLS("", "")
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()
	setupGoRoutinesDump()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case v := <-sigChan:
		log.Debug("Got signal ", log.Any("signal", v))
	case err = <-errChan:
		if err != nil {
			log.Error("server could not be started", log.ErrorField(err))
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if serr := httpServer.Shutdown(shutdownCtx); serr != nil {
		log.Warn("http server shutdown", log.ErrorField(serr))
	}
	if telemetry != nil {
		telemetry.Shutdown()
	}
	log.Info("Server terminated")
	return err
}

func healthChecks(b *cmdutil.Backends) []server.Option {
	ret := []server.Option{}
	if b.Pool != nil {
		ret = append(ret, server.WithHealthCheck("postgres", b.Pool.Ping))
	}
	if b.Nats != nil {
		conn := b.Nats
		ret = append(ret, server.WithHealthCheck("nats", func(context.Context) error {
			if s := conn.Status(); s != nats.CONNECTED {
				return fmt.Errorf("nats connection %s", s)
			}
			return nil
		}))
	}
	if b.Leaderboard != nil {
		ret = append(ret, server.WithHealthCheck("redis", b.Leaderboard.Ping))
	}
	return ret
}

func setupGoRoutinesDump() {
	go func() {
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, syscall.SIGQUIT)
		buf := make([]byte, 1<<20)
		for {
			<-sigs
			stacklen := runtime.Stack(buf, true)
			fmt.Printf("=== received SIGQUIT ===\n*** goroutine dump...\n%s\n*** end\n",
				buf[:stacklen])
		}
	}()
}
