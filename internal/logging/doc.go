// Package logging provides structured logging with per-module log levels.
//
// Output goes to stdout (text or JSON) and, when journald is reachable, to the
// systemd journal under the "metricsd" identifier. When stdout is not usable
// (for example /dev/null under a unit file) only the journal is written.
//
// Initialize once at startup, then fetch loggers per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"metrics": "debug",
//		},
//	})
//
//	logger := logging.GetLogger("metrics")
//	logger.Warn("Failed to render metrics", "error", err)
//
// Levels can be changed at runtime with [SetLevels]; loggers already handed
// out observe the change because each module owns a [log/slog.LevelVar].
//
// Example TOML configuration:
//
//	[logging]
//	level = "info"
//	format = "text"
//	metrics = "debug"
//	server = "warn"
//
// Filter the journal by module:
//
//	journalctl -t metricsd MODULE=metrics
package logging
