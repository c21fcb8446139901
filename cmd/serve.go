package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/smazurov/metricsd/internal/config"
	"github.com/smazurov/metricsd/internal/logging"
	"github.com/smazurov/metricsd/internal/metrics"
	"github.com/smazurov/metricsd/internal/server"
	"github.com/smazurov/metricsd/internal/systemd"
	"github.com/smazurov/metricsd/internal/version"
	"github.com/spf13/cobra"
)

// CreateServeCmd creates the serve command.
func CreateServeCmd() *cobra.Command {
	opts := defaultOptions()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve metrics over HTTP",
		Long: `Listens on --addr and answers --path with the current metrics snapshot in the ` +
			`text exposition format, gzip-compressed when the client accepts it. Every other path is 404.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, &opts)
		},
	}
	bindServeFlags(cmd.Flags(), &opts)
	return cmd
}

func runServe(cmd *cobra.Command, opts *Options) error {
	if err := config.LoadConfig(opts, cmd); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg, logErr := loggingConfig(cmd, opts)
	logging.Initialize(logCfg)
	logger := logging.GetLogger("main")
	if logErr != nil {
		logger.Warn("Failed to load logging config, using flags", "error", logErr)
	}
	logger.Info("Starting metricsd", "version", version.Get().Version, "source", opts.Source)

	src, err := buildSources(opts.Source, opts.Namespace)
	if err != nil {
		return err
	}

	responder := metrics.NewServe(src.metrics,
		metrics.WithPath(opts.Path),
		metrics.WithContentType(opts.ContentType),
		metrics.WithGzipLevel(opts.GzipLevel),
	)
	var handler http.Handler = responder
	if src.registry != nil {
		handler = metrics.Instrument(src.registry, handler)
	}

	srv := server.New(&server.Options{
		Handler:      handler,
		MetricsPath:  responder.Path(),
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifier := systemd.NewNotifier(logging.GetLogger("systemd"))

	if opts.Watch {
		watcher := config.NewConfigWatcher(opts.Config, func(path string) (logging.Config, error) {
			return loggingConfigFrom(cmd, opts, path)
		}, logging.GetLogger("config"))
		watcher.OnReload(func(cfg logging.Config) {
			notifier.Reloading()
			logging.SetLevels(cfg)
			src.reloaded()
			notifier.Ready()
			logger.Info("Logging levels reloaded", "level", cfg.Level)
		})
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("Failed to watch config file", "path", opts.Config, "error", err)
		} else {
			defer func() {
				if err := watcher.Stop(); err != nil {
					logger.Warn("Error stopping config watcher", "error", err)
				}
			}()
		}
	}

	ln, err := net.Listen("tcp", opts.Addr)
	if err != nil {
		return fmt.Errorf("start HTTP server: %w", err)
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info("Serving metrics", "addr", ln.Addr().String(), "path", responder.Path())
	notifier.Ready()
	go notifier.RunWatchdog(ctx)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("start HTTP server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	notifier.Stopping()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", "error", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// loggingConfig merges the per-module levels of the [logging] table with
// the resolved global level and format.
func loggingConfig(cmd *cobra.Command, opts *Options) (logging.Config, error) {
	return loggingConfigFrom(cmd, opts, opts.Config)
}

func loggingConfigFrom(cmd *cobra.Command, opts *Options, path string) (logging.Config, error) {
	cfg, err := config.LoadLoggingConfig(path)
	cfg.Format = opts.LogFormat
	// An explicit flag or env var pins the global level across reloads.
	if cmd.Flags().Changed("log-level") || os.Getenv(config.EnvPrefix+"LOGGING_LEVEL") != "" || err != nil {
		cfg.Level = opts.LogLevel
	}
	return cfg, err
}
