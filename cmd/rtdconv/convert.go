package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/rtdconv/pkg/conversion"
	"github.com/charlie0129/rtdconv/pkg/dataset"
	"github.com/charlie0129/rtdconv/pkg/polyfit"
	"github.com/charlie0129/rtdconv/pkg/rtd"
	"github.com/charlie0129/rtdconv/pkg/store"
	"github.com/charlie0129/rtdconv/pkg/types"
)

func NewConvertCommand() *cobra.Command {
	var (
		r0     float64
		remote bool
	)

	cmd := &cobra.Command{
		Use:     "convert [ohms...]",
		Short:   "Convert resistances to temperature",
		GroupID: gConversion,
		Long: `Convert one or more resistance readings to temperature with the
Callendar-Van Dusen equation.

Readings above the reference resistance use the positive branch, readings
between 9 Ω and the reference resistance the negative branch. Anything else is
reported as out of domain.`,
		Example: `  rtdconv convert 138.5055
  rtdconv convert --r0 1000 1385.055 803.06`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseFloatArgs(args, "resistance")
			if err != nil {
				return err
			}

			var convert func(float64) (float64, error)
			if remote {
				c := newAPIClient()
				convert = func(r float64) (float64, error) {
					resp, err := c.Convert(r, r0)
					if err != nil {
						return 0, err
					}
					return resp.Temperature, nil
				}
			} else {
				if r0 == 0 {
					r0 = rtd.DefaultR0
				}
				convert = func(r float64) (float64, error) {
					return rtd.FindTemperature(r, r0)
				}
			}

			failed := 0
			for _, r := range values {
				t, err := convert(r)
				if err != nil {
					failed++
					cmd.Printf("%g Ω\t%s\n", r, color.RedString(err.Error()))
					continue
				}
				cmd.Printf("%g Ω\t%.4f °C\n", r, t)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d conversions failed", failed, len(values))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&r0, "r0", 0, "reference resistance at 0 °C (default 100 Ω locally, the server setting with --remote)")
	f.BoolVar(&remote, "remote", false, "convert on the server given by --server")

	return cmd
}

func NewBatchCommand() *cobra.Command {
	var (
		method    string
		delimiter string
		r0        float64
		degree    int
		outputDir string
		remote    bool
	)

	cmd := &cobra.Command{
		Use:     "batch [files...]",
		Short:   "Convert calibration files",
		GroupID: gConversion,
		Long: `Convert delimited files of resistance and measured temperature.

Each file must have a header row followed by rows whose first column is the
resistance in Ω and second column the measured temperature in °C. The result
is written to --output-dir as output_<name> with calculated temperature
and absolute error columns.

With --method poly_fit a polynomial is fitted over each file and evaluated at
every reading. With newton_raphson (the default) each reading is converted on
its own and rows that cannot be converted are listed at the end.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := conversion.ParseMethod(method)
			if err != nil {
				return err
			}

			if remote {
				resp, err := newAPIClient().UploadBatches(args, method, delimiter)
				if resp != nil {
					printBatchResponse(cmd, resp)
				}
				return err
			}

			delim, err := dataset.ParseDelimiter(delimiter)
			if err != nil {
				return err
			}

			out, err := store.NewLocal(outputDir)
			if err != nil {
				return err
			}

			return runLocalBatch(cmd, out, args, delim, conversion.Request{
				Method:              m,
				ReferenceResistance: r0,
				Degree:              degree,
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&method, "method", "m", string(conversion.MethodNewtonRaphson), "conversion method ("+strings.Join(methodNames(), ", ")+")")
	f.StringVarP(&delimiter, "delimiter", "d", ",", "column delimiter (',', ';', '|', tab or its name)")
	f.Float64Var(&r0, "r0", rtd.DefaultR0, "reference resistance at 0 °C")
	f.IntVar(&degree, "degree", polyfit.DefaultDegree, "polynomial degree for poly_fit")
	f.StringVarP(&outputDir, "output-dir", "o", ".", "directory to write output files to")
	f.BoolVar(&remote, "remote", false, "upload the files to the server given by --server instead")

	return cmd
}

func methodNames() []string {
	names := make([]string, len(conversion.Methods))
	for i, m := range conversion.Methods {
		names[i] = string(m)
	}
	return names
}

func runLocalBatch(cmd *cobra.Command, out store.Store, files []string, delim rune, req conversion.Request) error {
	var batches []conversion.Batch
	for _, path := range files {
		name := store.SanitizeName(filepath.Base(path))
		if !dataset.AllowedFile(name) {
			return fmt.Errorf("%s: invalid file format, allowed formats: %s", path, strings.Join(dataset.AllowedExtensions, ", "))
		}
		points, err := readPoints(path, delim)
		if err != nil {
			return err
		}
		batches = append(batches, conversion.Batch{Name: name, Points: points})
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	results, err := conversion.ConvertAll(ctx, batches, req)
	if err != nil {
		return err
	}

	failedBatches := 0
	for _, res := range results {
		if res.Err != nil {
			failedBatches++
			cmd.Printf("%s: %s\n", res.Name, color.RedString(res.Err.Error()))
			continue
		}

		var buf strings.Builder
		if err := dataset.Write(&buf, res.Rows); err != nil {
			return err
		}
		outName := "output_" + res.Name
		if err := out.Put(ctx, outName, []byte(buf.String())); err != nil {
			return err
		}
		logrus.Debugf("wrote %s", outName)

		printSummary(cmd, res.Name, outName, conversion.Summary(res.Rows))
		for i, r := range res.Rows {
			if !r.OK() {
				cmd.Printf("  row %d: %g Ω: %s\n", i+1, r.Resistance, color.YellowString(r.Err.Error()))
			}
		}
	}

	if failedBatches > 0 {
		return fmt.Errorf("%d of %d files failed", failedBatches, len(results))
	}
	return nil
}

func printSummary(cmd *cobra.Command, file, output string, s conversion.Stats) {
	status := color.GreenString("ok")
	if s.Failed > 0 {
		status = color.YellowString("%d failed", s.Failed)
	}
	cmd.Printf("%s -> %s: %d rows, %s, max error %.4f °C, mean error %.4f °C\n",
		file, output, s.Total, status, s.MaxError, s.MeanError)
}

func printBatchResponse(cmd *cobra.Command, resp *types.BatchResponse) {
	logrus.WithField("batchID", resp.ID).Debug("batch converted")

	for _, r := range resp.Rejected {
		cmd.Printf("%s: %s\n", r.File, color.RedString("rejected: "+r.Reason))
	}
	for _, o := range resp.Outputs {
		if o.Output == "" {
			cmd.Printf("%s: %s\n", o.File, color.RedString(o.Error))
			continue
		}
		if o.Summary != nil {
			printSummary(cmd, o.File, o.Output, *o.Summary)
		}
		for _, f := range o.Failures {
			cmd.Printf("  row %d: %g Ω: %s\n", f.Row, f.Resistance, color.YellowString(f.Message))
		}
	}
}

func NewFitCommand() *cobra.Command {
	var (
		degree    int
		delimiter string
		remote    bool
	)

	cmd := &cobra.Command{
		Use:     "fit [file]",
		Short:   "Fit a polynomial to calibration data",
		GroupID: gConversion,
		Long: `Fit a least-squares polynomial mapping resistance to temperature over a
calibration file and print its coefficients.

Coefficients apply to the resistance mapped from the printed domain onto
[-1, 1], lowest power first.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			delim, err := dataset.ParseDelimiter(delimiter)
			if err != nil {
				return err
			}
			points, err := readPoints(args[0], delim)
			if err != nil {
				return err
			}

			var resp *types.FitResponse
			if remote {
				req := types.FitRequest{Degree: &degree}
				for _, p := range points {
					req.Points = append(req.Points, types.FitPoint{Resistance: p.R, Temperature: p.T})
				}
				resp, err = newAPIClient().Fit(req)
				if err != nil {
					return err
				}
			} else {
				poly, err := polyfit.Fit(points, degree)
				if err != nil {
					return err
				}
				lo, hi := poly.Domain()
				resp = &types.FitResponse{Degree: poly.Degree(), Coefficients: poly.Coefficients(), Domain: [2]float64{lo, hi}}
			}

			cmd.Printf("degree: %d\n", resp.Degree)
			cmd.Printf("domain: [%g, %g] Ω\n", resp.Domain[0], resp.Domain[1])
			for i, c := range resp.Coefficients {
				cmd.Printf("c%d: %.10g\n", i, c)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVar(&degree, "degree", polyfit.DefaultDegree, "polynomial degree")
	f.StringVarP(&delimiter, "delimiter", "d", ",", "column delimiter")
	f.BoolVar(&remote, "remote", false, "fit on the server given by --server")

	return cmd
}

func NewTableCommand() *cobra.Command {
	var (
		from, to, step float64
		r0             float64
	)

	cmd := &cobra.Command{
		Use:     "table",
		Short:   "Print a resistance lookup table",
		GroupID: gConversion,
		Long:    `Print the resistance the Callendar-Van Dusen equation predicts for temperatures from --from to --to.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if step <= 0 {
				return fmt.Errorf("step must be positive, got %g", step)
			}
			if to < from {
				return fmt.Errorf("--to (%g) is below --from (%g)", to, from)
			}

			cmd.Println("Temperature (°C)\tResistance (Ohms)")
			n := int((to-from)/step + 1e-9)
			for i := 0; i <= n; i++ {
				t := from + float64(i)*step
				cmd.Printf("%g\t%.4f\n", t, rtd.Resistance(t, r0))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Float64Var(&from, "from", -200, "first temperature in °C")
	f.Float64Var(&to, "to", 850, "last temperature in °C")
	f.Float64Var(&step, "step", 10, "temperature step in °C")
	f.Float64Var(&r0, "r0", rtd.DefaultR0, "reference resistance at 0 °C")

	return cmd
}
