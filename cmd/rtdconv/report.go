package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/charlie0129/rtdconv/pkg/client"
	"github.com/charlie0129/rtdconv/pkg/dataset"
	"github.com/charlie0129/rtdconv/pkg/report"
)

func NewExportCommand() *cobra.Command {
	var (
		output string
		concat bool
		remote bool
	)

	cmd := &cobra.Command{
		Use:     "export [outputs...]",
		Short:   "Export output files as xlsx",
		GroupID: gConversion,
		Long: `Export output files written by 'rtdconv batch' as Excel workbooks.

With --concatenate every line of every file is joined into a single sheet, one
line per row, and written to --output (default combined_output.xlsx).

With --remote the arguments are names of outputs stored on the server.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if concat && output == "" {
				output = "combined_output.xlsx"
			}
			if !concat && output != "" && len(args) > 1 {
				return fmt.Errorf("--output needs a single input unless --concatenate is set")
			}

			if remote {
				return exportRemote(args, output, concat)
			}

			if concat {
				var readers []io.Reader
				for _, path := range args {
					b, err := os.ReadFile(path)
					if err != nil {
						return err
					}
					readers = append(readers, bytes.NewReader(b))
				}
				return writeFile(output, func(w io.Writer) error {
					return report.Concatenate(w, readers...)
				})
			}

			for _, path := range args {
				dst := output
				if dst == "" {
					dst = defaultOutput(path, ".xlsx")
				}
				b, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if err := writeFile(dst, func(w io.Writer) error {
					return report.CSVToXLSX(w, bytes.NewReader(b))
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output file (default: input name with .xlsx)")
	f.BoolVar(&concat, "concatenate", false, "join all inputs into one workbook")
	f.BoolVar(&remote, "remote", false, "download from the server given by --server")

	return cmd
}

func exportRemote(names []string, output string, concat bool) error {
	c := newAPIClient()

	if concat {
		b, err := c.Concatenate(names)
		if err != nil {
			return err
		}
		return writeFile(output, func(w io.Writer) error {
			_, err := w.Write(b)
			return err
		})
	}

	for _, name := range names {
		dst := output
		if dst == "" {
			dst = defaultOutput(name, ".xlsx")
		}
		b, err := c.DownloadOutput(name, client.FormatXLSX)
		if err != nil {
			return err
		}
		if err := writeFile(dst, func(w io.Writer) error {
			_, err := w.Write(b)
			return err
		}); err != nil {
			return err
		}
	}
	return nil
}

func NewPlotCommand() *cobra.Command {
	var (
		output string
		remote bool
	)

	cmd := &cobra.Command{
		Use:     "plot [output]",
		Short:   "Plot conversion error against measured temperature",
		GroupID: gConversion,
		Long:    `Draw a PNG scatter plot of the error column of an output file against its measured temperature.`,
		Args:    cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if output == "" {
				output = defaultOutput(args[0], ".png")
			}

			if remote {
				b, err := newAPIClient().DownloadOutput(args[0], client.FormatPlot)
				if err != nil {
					return err
				}
				return writeFile(output, func(w io.Writer) error {
					_, err := w.Write(b)
					return err
				})
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = f.Close()
			}()

			rows, err := dataset.ReadOutput(f)
			if err != nil {
				return err
			}
			return writeFile(output, func(w io.Writer) error {
				return report.ErrorPlot(w, rows)
			})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output file (default: input name with .png)")
	f.BoolVar(&remote, "remote", false, "render on the server given by --server")

	return cmd
}

// writeFile creates path and fills it with write. A failed write removes
// the partial file.
func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	logrus.Infof("wrote %s", path)
	return nil
}
