package analyze

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/aarondl/opt/null"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/render"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/config"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/datalog"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/service"
)

// Options controls a single analysis from the command line.
type Options struct {
	JSON      bool
	Advisory  bool
	Quoted    bool
	Fixed     bool
	Dyno      bool
	WeightLbs float64
}

func (o *Options) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.JSON, "json", false, "print the result as json")
	cmd.Flags().BoolVar(&o.Advisory, "advisory", false,
		"request advisory text from the configured generator")
	cmd.Flags().BoolVar(&o.Quoted, "quoted", false, "parse quoted csv fields")
	cmd.Flags().BoolVar(&o.Fixed, "fixed", false,
		"expect the header at the fixed line of stored exports")
	cmd.Flags().BoolVar(&o.Dyno, "dyno", false, "add the dyno curve")
	cmd.Flags().Float64Var(&o.WeightLbs, "weight", 0,
		"vehicle weight in lbs, 0 yields a relative dyno curve")
}

func (o *Options) Request(f *os.File) *service.AnalyzeRequest {
	req := &service.AnalyzeRequest{
		Content:  f,
		Layout:   datalog.Dynamic,
		Quoted:   o.Quoted,
		Advisory: o.Advisory,
		Dyno:     o.Dyno,
	}
	if o.Fixed {
		req.Layout = datalog.FixedOffset
	}
	if o.WeightLbs > 0 {
		req.WeightLbs = null.From(o.WeightLbs)
	}
	return req
}

func NewAnalyzeCmd() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "analyzes datalog exports and prints a diagnostic checklist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogger()
			svc, err := NewLocalService()
			if err != nil {
				return err
			}
			for _, file := range args {
				res, err := AnalyzeFile(cmd.Context(), svc, opts, file)
				if err != nil {
					return err
				}
				if err := opts.Print(file, res); err != nil {
					return err
				}
			}
			return nil
		},
	}
	opts.AddFlags(cmd)
	return cmd
}

// NewLocalService creates a service without storage backends.
func NewLocalService() (*service.Service, error) {
	appCfg, err := config.FromGlobals()
	if err != nil {
		return nil, err
	}
	return cmdutil.NewService(appCfg, nil)
}

//nolint:whitespace // can't make both editor and linter happy
func AnalyzeFile(ctx context.Context, svc *service.Service, opts *Options, file string) (
	*model.AnalysisResult, error,
) {
	if ctx == nil {
		ctx = context.Background()
	}
	f, err := os.Open(file)
	if err != nil {
		log.Error("could not open file", log.String("file", file), log.ErrorField(err))
		return nil, err
	}
	defer f.Close()
	res, err := svc.Analyze(ctx, opts.Request(f))
	if err != nil {
		log.Error("analysis failed", log.String("file", file), log.ErrorField(err))
		return nil, err
	}
	return res, nil
}

func (o *Options) Print(file string, res *model.AnalysisResult) error {
	if o.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	render.Analysis(filepath.Base(file), res)
	return nil
}
