// Command stitch joins CSV files side by side and writes the result to
// stdout.
//
//	stitch <file1.csv> <file2.csv> ... [--slice SPEC] [--strict] [--no-trailing-comma]
//
// Every file contributes the columns picked by --slice (Python slice
// syntax over the data columns); the first file also keeps its id column
// and every file keeps its last column. Header cells are prefixed with the
// file's base name. Output stops when the shortest file runs out. Fields
// are written unquoted.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/distance/internal/config"
	"github.com/JonMunkholm/distance/internal/core"
	"github.com/JonMunkholm/distance/internal/logging"
	"github.com/JonMunkholm/distance/internal/stitch"
)

func main() {
	// A missing .env is normal; flags and the environment still apply.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newCommand(cfg, os.Stdin, os.Stdout)
	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func newCommand(cfg *config.Config, stdin io.Reader, stdout io.Writer) *cobra.Command {
	var (
		sliceExpr       string
		strict          bool
		noTrailingComma bool
	)

	cmd := &cobra.Command{
		Use:   "stitch <file1.csv> [file2.csv ...]",
		Short: "Stitch CSV files column-wise",
		Long: `Stitch joins CSV files side by side, one row from every file per output line.

The slice picks data columns from every file using start:stop:step syntax
(negative values count from the end). The first file keeps its id column,
every file keeps its last column, and header cells are prefixed with the
file name. Use - to read a file from stdin.

Fields are written unquoted, as the legacy tool did: a quoted input cell
containing a comma comes out as two output columns.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := stitch.Options{
				Strict:        strict,
				TrailingComma: !noTrailingComma,
			}
			if strict {
				s, err := stitch.ParseSliceStrict(sliceExpr)
				if err != nil {
					return err
				}
				opts.Slice = s
			} else {
				opts.Slice = stitch.ParseSlice(sliceExpr)
			}

			svc := core.NewService(nil, core.Options{})
			stats, err := svc.StitchFiles(cmd.Context(), args, stdin, opts, stdout)
			if err != nil {
				return err
			}
			slog.Debug("stitched", "files", stats.Inputs, "rows", stats.Rows, "columns", stats.Columns)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&sliceExpr, "slice", "s", cfg.Stitch.Slice, "column slice start:stop:step applied to every file")
	flags.BoolVar(&strict, "strict", cfg.Stitch.Strict, "reject malformed slices and files of different lengths")
	flags.BoolVar(&noTrailingComma, "no-trailing-comma", !cfg.Stitch.TrailingComma, "do not end lines with a comma")

	return cmd
}

// printError writes err in red, followed by the user-facing hint when the
// error is a known one.
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprint(w, "error: ")
	fmt.Fprintln(w, err)

	if core.IsUserFacing(err) {
		msg := core.MapError(err)
		color.New(color.FgYellow).Fprintf(w, "hint: %s (%s)\n", msg.Action, msg.Code)
	}
}
