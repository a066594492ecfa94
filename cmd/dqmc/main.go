// Command dqmc runs determinant quantum Monte Carlo for the Hubbard model.
//
//	dqmc run --config run.yaml [--resume]
//	dqmc config > run.yaml
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/katalvlaran/dqmc/checkpoint"
	"github.com/katalvlaran/dqmc/config"
	"github.com/katalvlaran/dqmc/dqmc"
	"github.com/katalvlaran/dqmc/ensemble"
	"github.com/katalvlaran/dqmc/measure"
	"github.com/katalvlaran/dqmc/propagator"
	"github.com/katalvlaran/dqmc/simctx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configPath string
	resume     bool
	logLevel   string
	walkers    int
)

var rootCmd = &cobra.Command{
	Use:   "dqmc",
	Short: "Determinant quantum Monte Carlo for the Hubbard model",
	Long: `Samples the discrete Hubbard-Stratonovich field of the Hubbard model with
independent Metropolis walkers, keeping the equal-time Green's function
stable through periodic QR-stabilized recomputes, and reports binned
sign-weighted observables.`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.Output.LogLevel = logLevel
		}
		if walkers > 0 {
			cfg.Sampling.Walkers = walkers
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		return run(ctx, cfg, cmd.OutOrStdout())
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		return cfg.WriteYAML(cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file (defaults and DQMC_* environment when empty)")
	runCmd.Flags().BoolVar(&resume, "resume", false, "Resume from the checkpoints in output.checkpoint")
	runCmd.Flags().StringVar(&logLevel, "log-level", "", "Override output.log_level (debug, info, warn, error)")
	runCmd.Flags().IntVar(&walkers, "walkers", 0, "Override sampling.walkers")
	rootCmd.AddCommand(runCmd, configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// run builds geometry → model → walkers and drives the ensemble.
func run(ctx context.Context, cfg *config.Run, out io.Writer) error {
	logger, err := simctx.NewLogger(cfg.Output.LogLevel)
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	sctx := simctx.New(simctx.WithLogger(logger), simctx.WithRegistry(reg))
	log := sctx.Logger

	if cfg.Output.MetricsAddr != "" {
		srv := serveMetrics(cfg.Output.MetricsAddr, sctx.Metrics.Gatherer(), log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	geom, err := cfg.Geometry()
	if err != nil {
		return err
	}
	builder, err := propagator.New(sctx, geom, cfg.Params())
	if err != nil {
		return err
	}

	var opts []ensemble.Option
	if cfg.Sampling.Parallel > 0 {
		opts = append(opts, ensemble.WithParallelism(cfg.Sampling.Parallel))
	}
	if cfg.Output.Checkpoint != "" {
		store, err := checkpoint.NewStore(sctx, cfg.Output.Checkpoint)
		if err != nil {
			return err
		}
		if resume {
			resumeOpts, err := resumeFrom(store, cfg.Sampling.Walkers)
			if err != nil {
				return err
			}
			opts = append(opts, resumeOpts...)
		}
		opts = append(opts, ensemble.WithBinHook(func(_ int, ws []*dqmc.Walker) error {
			for i, w := range ws {
				snap, err := w.Snapshot()
				if err != nil {
					return err
				}
				if err = store.Save(i, snap); err != nil {
					return err
				}
			}
			return nil
		}))
	}

	start := time.Now()
	res, err := ensemble.Run(ctx, sctx, builder, cfg.Walker(), cfg.Sampling.Walkers, opts...)
	if err != nil {
		var fault *dqmc.StabilityFault
		if errors.As(err, &fault) {
			log.WithFields(logrus.Fields{"slice": fault.Slice, "sweep": fault.Sweep}).Error("run aborted")
		}
		return err
	}
	log.WithFields(logrus.Fields{
		"elapsed":    time.Since(start).Round(time.Millisecond),
		"acceptance": res.Total.Acceptance(),
		"max_diff":   res.Total.MaxDiff,
	}).Info("done")

	return report(out, res)
}

// resumeFrom restores every walker from its checkpoint and continues after the saved bin.
func resumeFrom(store *checkpoint.Store, walkers int) ([]ensemble.Option, error) {
	snaps := make([]dqmc.Snapshot, walkers)
	for i := range snaps {
		snap, err := store.Load(i)
		if err != nil {
			return nil, err
		}
		if i > 0 && snap.Bin != snaps[0].Bin {
			return nil, fmt.Errorf("walker %d checkpoint is at bin %d, walker 0 at %d: %w",
				i, snap.Bin, snaps[0].Bin, checkpoint.ErrCorrupt)
		}
		snaps[i] = snap
	}

	return []ensemble.Option{
		ensemble.WithPrepare(func(i int, w *dqmc.Walker) error { return w.Restore(snaps[i]) }),
		ensemble.WithStartBin(snaps[0].Bin + 1),
	}, nil
}

func serveMetrics(addr string, g prometheus.Gatherer, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics endpoint stopped")
		}
	}()
	log.WithField("addr", addr).Info("serving metrics")

	return srv
}

// report prints one line per observable.
func report(out io.Writer, res *ensemble.Result) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "observable\tmean\tstderr")
	for _, r := range res.Measurements.Results() {
		fmt.Fprintf(tw, "%s\t%.6f\t%.6f\n", r.Name, r.Mean, r.StdErr)
	}
	if _, _, err := res.Measurements.Estimate(measure.AvgSign); err != nil {
		fmt.Fprintln(tw, "(no measurements)")
	}
	fmt.Fprintf(tw, "acceptance\t%.4f\t\n", res.Total.Acceptance())

	return tw.Flush()
}
