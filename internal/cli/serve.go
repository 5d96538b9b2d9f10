package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/engine"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/httpserver"
	"github.com/jeanchristophedibi/fanaf-back-next-sub000/internal/platform/logger"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr        string
	MetricsAddr string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the finalization API",
		Long: `Run the finalization HTTP API, the metrics endpoint and the link to
peer instances until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "", "API listen address (overrides config)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "metrics listen address (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Addr != "" {
		cfg.Server.Addr = opts.Addr
	}
	if opts.MetricsAddr != "" {
		cfg.Server.MetricsAddr = opts.MetricsAddr
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := engine.Open(ctx, cfg, log)
	if err != nil {
		return WrapExitError(ExitCommandError, "open engine", err)
	}
	defer func() {
		if err := e.Close(); err != nil {
			log.Error("failed to close engine", "error", err)
		}
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Serve(ctx, httpserver.New(cfg.Server.Addr, e.Router()), cfg.Server.ShutdownTimeout, log)
	})
	if cfg.Server.MetricsAddr != "" {
		metricsRouter := chi.NewRouter()
		metricsRouter.Handle("/metrics", e.MetricsHandler())
		g.Go(func() error {
			return httpserver.Serve(ctx, httpserver.New(cfg.Server.MetricsAddr, metricsRouter), cfg.Server.ShutdownTimeout, log)
		})
	}
	if bridge := e.Bridge(); bridge != nil {
		g.Go(func() error {
			if err := bridge.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("finalization engine stopped")
	return nil
}
