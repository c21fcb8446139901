package cmd

import (
	"time"

	"github.com/smazurov/metricsd/internal/metrics"
	"github.com/spf13/pflag"
)

// Metric sources selectable with --source.
const (
	SourcePrometheus = "prometheus"
	SourceVictoria   = "victoria"
	SourceBoth       = "both"
)

// Options for the CLI - flat structure with toml mapping. Flag names are
// derived from field names by config.LoadConfig.
type Options struct {
	Config string

	// Server settings
	Addr            string        `toml:"server.addr" env:"SERVER_ADDR"`
	ReadTimeout     time.Duration `toml:"server.read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `toml:"server.write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `toml:"server.shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`

	// Metrics settings
	Path        string `toml:"metrics.path" env:"METRICS_PATH"`
	ContentType string `toml:"metrics.content_type" env:"METRICS_CONTENT_TYPE"`
	GzipLevel   int    `toml:"metrics.gzip_level" env:"METRICS_GZIP_LEVEL"`
	Source      string `toml:"metrics.source" env:"METRICS_SOURCE"`
	Namespace   string `toml:"metrics.namespace" env:"METRICS_NAMESPACE"`

	// Logging settings
	LogLevel  string `toml:"logging.level" env:"LOGGING_LEVEL"`
	LogFormat string `toml:"logging.format" env:"LOGGING_FORMAT"`
	Watch     bool   `toml:"logging.watch" env:"LOGGING_WATCH"`
}

func defaultOptions() Options {
	return Options{
		Config:          "config.toml",
		Addr:            ":9090",
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		Path:            metrics.DefaultPath,
		ContentType:     metrics.DefaultContentType,
		GzipLevel:       metrics.DefaultGzipLevel,
		Source:          SourcePrometheus,
		Namespace:       "metricsd",
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

func bindConfigFlag(fs *pflag.FlagSet, o *Options) {
	fs.StringVarP(&o.Config, "config", "c", o.Config, "Path to configuration file")
}

func bindMetricsFlags(fs *pflag.FlagSet, o *Options) {
	fs.StringVar(&o.Path, "path", o.Path, "Only path answered with metrics; every other path is 404")
	fs.StringVar(&o.ContentType, "content-type", o.ContentType, "Content-Type of metrics responses")
	fs.IntVar(&o.GzipLevel, "gzip-level", o.GzipLevel, "gzip compression level (1 fastest, 9 smallest)")
	fs.StringVar(&o.Source, "source", o.Source, "Metrics source: prometheus, victoria or both")
	fs.StringVar(&o.Namespace, "namespace", o.Namespace, "Prefix for metricsd's own metrics")
}

func bindServerFlags(fs *pflag.FlagSet, o *Options) {
	fs.StringVarP(&o.Addr, "addr", "a", o.Addr, "Address to listen on")
	fs.DurationVar(&o.ReadTimeout, "read-timeout", o.ReadTimeout, "HTTP read timeout")
	fs.DurationVar(&o.WriteTimeout, "write-timeout", o.WriteTimeout, "HTTP write timeout")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Grace period for in-flight scrapes on shutdown")
	fs.StringVar(&o.LogLevel, "log-level", o.LogLevel, "Global logging level (debug, info, warn, error)")
	fs.StringVar(&o.LogFormat, "log-format", o.LogFormat, "Logging format (text, json)")
	fs.BoolVar(&o.Watch, "watch", o.Watch, "Reload logging levels when the config file changes")
}

func bindServeFlags(fs *pflag.FlagSet, o *Options) {
	bindConfigFlag(fs, o)
	bindMetricsFlags(fs, o)
	bindServerFlags(fs, o)
}
