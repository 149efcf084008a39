package watch

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/analyze"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/service"
)

var (
	settle  string
	save    bool
	vehicle string
)

func NewWatchCmd() *cobra.Command {
	opts := &analyze.Options{}
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "analyzes each datalog export written to a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogger()
			return runWatch(args[0], opts)
		},
	}
	opts.AddFlags(cmd)
	cmd.Flags().StringVar(&settle, "settle", DefaultSettle.String(),
		"quiet period after the last write before a file is analyzed")
	cmd.Flags().BoolVar(&save, "save", false,
		"store each export as run (requires --db, optional nats and redis)")
	cmd.Flags().StringVar(&vehicle, "vehicle", "", "vehicle name for stored runs")
	return cmd
}

func runWatch(dir string, opts *analyze.Options) error {
	d, err := time.ParseDuration(settle)
	if err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var handler Handler
	if save {
		appCfg, err := config.FromGlobals()
		if err != nil {
			return err
		}
		if err := cmdutil.WaitForRequiredServices(); err != nil {
			return err
		}
		backends, err := cmdutil.ConnectBackends(ctx, false)
		if err != nil {
			return err
		}
		defer backends.Close()
		svc, err := cmdutil.NewService(appCfg, backends)
		if err != nil {
			return err
		}
		handler = saveHandler(svc, opts)
	} else {
		svc, err := analyze.NewLocalService()
		if err != nil {
			return err
		}
		handler = analyzeHandler(svc, opts)
	}
	return NewWatcher(dir, handler, WithSettle(d)).Run(ctx)
}

func analyzeHandler(svc *service.Service, opts *analyze.Options) Handler {
	return func(ctx context.Context, file string) {
		res, err := analyze.AnalyzeFile(ctx, svc, opts, file)
		if err != nil {
			return
		}
		if err := opts.Print(file, res); err != nil {
			log.Warn("could not print result", log.ErrorField(err))
		}
	}
}

func saveHandler(svc *service.Service, opts *analyze.Options) Handler {
	return func(ctx context.Context, file string) {
		f, err := os.Open(file)
		if err != nil {
			log.Error("could not open file", log.String("file", file), log.ErrorField(err))
			return
		}
		defer f.Close()
		req := &service.SaveRequest{
			Name:    strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
			Vehicle: vehicle,
			Content: f,
		}
		if opts.WeightLbs > 0 {
			req.WeightLbs = null.From(opts.WeightLbs)
		}
		run, err := svc.SaveRun(ctx, req)
		if err != nil {
			log.Error("run not stored", log.String("file", file), log.ErrorField(err))
			return
		}
		log.Info("run stored",
			log.String("file", file),
			log.String("id", run.ID.String()),
			log.String("objectKey", run.ObjectKey))
	}
}
