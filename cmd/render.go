package cmd

import (
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/smazurov/metricsd/internal/config"
	"github.com/smazurov/metricsd/internal/logging"
	"github.com/smazurov/metricsd/internal/metrics"
	"github.com/spf13/cobra"
)

// CreateRenderCmd creates the render command.
func CreateRenderCmd() *cobra.Command {
	opts := defaultOptions()
	var gzipped bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write one metrics snapshot to stdout",
		Long: `Runs a single scrape through the same responder the server uses and writes the body ` +
			`to stdout. With --gzip the scrape advertises gzip and the compressed bytes are written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadConfig(&opts, cmd); err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			src, err := buildSources(opts.Source, opts.Namespace)
			if err != nil {
				return err
			}

			// stdout carries the snapshot, so logs go to stderr.
			logCfg, logErr := loggingConfig(cmd, &opts)
			logging.InitializeOutput(logCfg, cmd.ErrOrStderr())
			if logErr != nil {
				logging.GetLogger("main").Warn("Failed to load logging config, using defaults", "error", logErr)
			}
			handler := metrics.NewServe(src.metrics,
				metrics.WithPath(opts.Path),
				metrics.WithContentType(opts.ContentType),
				metrics.WithGzipLevel(opts.GzipLevel),
			)

			req := httptest.NewRequest(http.MethodGet, opts.Path, nil)
			if gzipped {
				req.Header.Set("Accept-Encoding", "gzip")
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				return fmt.Errorf("render failed: %s", http.StatusText(rec.Code))
			}
			_, err = cmd.OutOrStdout().Write(rec.Body.Bytes())
			return err
		},
	}

	bindConfigFlag(cmd.Flags(), &opts)
	bindMetricsFlags(cmd.Flags(), &opts)
	cmd.Flags().BoolVar(&gzipped, "gzip", false, "Write the gzip-compressed response body")
	return cmd
}
