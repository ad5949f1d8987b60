// Command distance runs the Monte-Carlo distance simulations and prints
// their results as CSV.
//
//	distance bin  [--bins N] [--randoms N] [--seed N] [--plot FILE]
//	distance cube [-d N] [-p N | --powers LIST] [-r N] [-n] [--metric root|f] [--workers N] [--seed N]
//
// With --record and DATABASE_URL set, every run is also stored in the run
// history.
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
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/distance/internal/config"
	"github.com/JonMunkholm/distance/internal/core"
	"github.com/JonMunkholm/distance/internal/distance"
	"github.com/JonMunkholm/distance/internal/logging"
	"github.com/JonMunkholm/distance/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		printError(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand(cfg, os.Stdout, connectService)
	if err := cmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// serviceFactory builds the service a subcommand runs on. record asks for
// run history; the returned cleanup must always be called.
type serviceFactory func(ctx context.Context, cfg *config.Config, record bool) (*core.Service, func(), error)

// connectService opens the run history database when record is set.
func connectService(ctx context.Context, cfg *config.Config, record bool) (*core.Service, func(), error) {
	if !record {
		return core.NewService(nil, core.Options{}), func() {}, nil
	}
	if !cfg.Database.Enabled() {
		return nil, nil, fmt.Errorf("--record needs DATABASE_URL: %w", core.ErrHistoryDisabled)
	}

	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	runs := store.New(pool)
	if err := runs.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	slog.Debug("recording runs", "database", store.DatabaseName(cfg.Database.URL))
	return core.NewService(runs, core.Options{}), pool.Close, nil
}

func newRootCommand(cfg *config.Config, stdout io.Writer, services serviceFactory) *cobra.Command {
	var record bool

	root := &cobra.Command{
		Use:   "distance",
		Short: "Monte-Carlo estimates of distances between random points",
		Long: `Distance estimates how far apart two uniformly random points are.

  bin   histogram of distances on the unit segment
  cube  average distance in the unit N-cube for a range of metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&record, "record", false, "store the run in the history database")

	root.AddCommand(
		newBinCommand(cfg, stdout, func(ctx context.Context) (*core.Service, func(), error) {
			return services(ctx, cfg, record)
		}),
		newCubeCommand(cfg, stdout, func(ctx context.Context) (*core.Service, func(), error) {
			return services(ctx, cfg, record)
		}),
	)
	return root
}

func newBinCommand(cfg *config.Config, stdout io.Writer, service func(context.Context) (*core.Service, func(), error)) *cobra.Command {
	var (
		params   distance.HistogramParams
		plotPath string
	)

	cmd := &cobra.Command{
		Use:   "bin",
		Short: "Histogram of distances between two random points on [0,1]",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, cleanup, err := service(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res, id, err := svc.RunHistogram(ctx, params)
			if err != nil {
				return err
			}
			if err := res.WriteCSV(stdout); err != nil {
				return fmt.Errorf("write histogram: %w", err)
			}
			if plotPath != "" {
				if err := res.SavePlot(plotPath); err != nil {
					return err
				}
			}

			logRun(ctx, "histogram", res.Params.Seed, id)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&params.Bins, "bins", cfg.Simulation.Bins, "number of histogram bins")
	flags.IntVarP(&params.Randoms, "randoms", "r", cfg.Simulation.Randoms, "sample pairs (0 is 1000 per bin)")
	flags.Uint64Var(&params.Seed, "seed", cfg.Simulation.Seed, "random seed (0 is time based)")
	flags.StringVar(&plotPath, "plot", "", "also save the histogram as an image (png, svg or pdf)")
	return cmd
}

func newCubeCommand(cfg *config.Config, stdout io.Writer, service func(context.Context) (*core.Service, func(), error)) *cobra.Command {
	var (
		params    distance.CubeParams
		maxPower  int
		powerList string
		metric    string
	)

	cmd := &cobra.Command{
		Use:   "cube",
		Short: "Average distance between two random points in the unit N-cube",
		Long: `Cube estimates the average distance between two random points of the
unit N-cube for every dimension up to -d and every metric power.

Powers come from -p (1..N) or from --powers, a comma separated list whose
items are a value, a range a_b or a stepped range a_b_c.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := distance.ParseMetric(metric)
			if err != nil {
				return err
			}
			params.Metric = m

			if cmd.Flags().Changed("powers") {
				params.Powers, err = distance.ParsePowerList(powerList)
				if err != nil {
					return err
				}
			} else {
				params.Powers = distance.MaxPowers(maxPower)
			}
			if params.Randoms == 0 {
				params.Randoms = distance.DefaultRandoms
			}

			ctx := cmd.Context()
			svc, cleanup, err := service(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			res, id, err := svc.RunCube(ctx, params)
			if err != nil {
				return err
			}
			if err := res.WriteCSV(stdout); err != nil {
				return fmt.Errorf("write cube averages: %w", err)
			}

			logRun(ctx, "cube", res.Params.Seed, id)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVarP(&params.Dimensions, "dimensions", "d", cfg.Simulation.Dimensions, "highest dimension")
	flags.IntVarP(&maxPower, "power", "p", cfg.Simulation.Powers, "highest integer metric power")
	flags.StringVar(&powerList, "powers", "", "metric power list such as 1_3 or .5,1,2 (overrides -p)")
	flags.IntVarP(&params.Randoms, "randoms", "r", cfg.Simulation.Randoms, "sample pairs per dimension (0 is 1000000)")
	flags.BoolVarP(&params.Normalize, "normalize", "n", false, "divide by the length of the longest diagonal")
	flags.StringVar(&metric, "metric", string(distance.MetricRoot), "root (p-norm) or f (sum of powers)")
	flags.IntVar(&params.Workers, "workers", cfg.Simulation.Workers, "goroutines sharing the samples")
	flags.Uint64Var(&params.Seed, "seed", cfg.Simulation.Seed, "random seed (0 is time based)")
	return cmd
}

func logRun(ctx context.Context, kind string, seed uint64, id uuid.UUID) {
	logger := logging.FromContext(ctx)
	if id != uuid.Nil {
		logger = logger.With("run_id", id)
	}
	logger.Info("simulation complete", "kind", kind, "seed", seed)
}

func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprint(w, "error: ")
	fmt.Fprintln(w, err)

	if core.IsUserFacing(err) {
		msg := core.MapError(err)
		color.New(color.FgYellow).Fprintf(w, "hint: %s (%s)\n", msg.Action, msg.Code)
	}
}
