package dyno

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/aarondl/opt/null"
	"github.com/spf13/cobra"

	"github.com/mpapenbr/datalog-analyzer-go/log"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/analyze"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/cmdutil"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/cmd/render"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/model"
	dynocurve "github.com/mpapenbr/datalog-analyzer-go/pkg/processing/dyno"
	"github.com/mpapenbr/datalog-analyzer-go/pkg/service"
)

var (
	weightLbs float64
	pngFile   string
	quoted    bool
	asJSON    bool
)

var errNoCurve = errors.New("no dyno curve")

func NewDynoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dyno <file>",
		Short: "derives a power and torque curve from a pull",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdutil.SetupLogger()
			return runDyno(cmd.Context(), args[0])
		},
	}
	cmd.Flags().Float64Var(&weightLbs, "weight", 0,
		"vehicle weight in lbs, 0 yields a relative curve")
	cmd.Flags().StringVar(&pngFile, "png", "", "write the chart to this png file")
	cmd.Flags().BoolVar(&quoted, "quoted", false, "parse quoted csv fields")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as json")
	return cmd
}

func runDyno(ctx context.Context, file string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := analyze.NewLocalService()
	if err != nil {
		return err
	}
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	req := &service.DynoRequest{Content: f, Quoted: quoted}
	if weightLbs > 0 {
		req.WeightLbs = null.From(weightLbs)
	}
	res, err := svc.Dyno(ctx, req)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		render.Dyno(res)
	}
	if pngFile != "" {
		return writePNG(pngFile, res)
	}
	return nil
}

func writePNG(name string, res *model.DynoResult) error {
	if res.Curve == nil {
		return errNoCurve
	}
	out, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := dynocurve.RenderPNG(out, res.Curve); err != nil {
		return errors.Join(err, out.Close())
	}
	log.Info("chart written", log.String("file", name))
	return out.Close()
}
