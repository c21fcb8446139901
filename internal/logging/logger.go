package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// registry owns the module loggers and their runtime-adjustable levels.
type registry struct {
	mu          sync.RWMutex
	out         io.Writer
	journal     func() bool
	cfg         Config
	initialized bool
	global      *slog.LevelVar
	levels      map[string]*slog.LevelVar
	loggers     map[string]*slog.Logger
}

func newRegistry(out io.Writer, journal func() bool) *registry {
	return &registry{
		out:     out,
		journal: journal,
		global:  &slog.LevelVar{},
		levels:  make(map[string]*slog.LevelVar),
		loggers: make(map[string]*slog.Logger),
	}
}

var std = newRegistry(os.Stdout, IsJournalAvailable)

// Initialize sets up the logging system and installs the default slog logger.
// Loggers handed out before Initialize are rebuilt so they pick up the
// configured format and outputs.
func Initialize(config Config) {
	InitializeOutput(config, os.Stdout)
}

// InitializeOutput is Initialize with text or JSON output sent to out
// instead of stdout.
func InitializeOutput(config Config, out io.Writer) {
	slog.SetDefault(std.initialize(config, out))
}

// SetLevels applies new global and per-module levels without rebuilding
// handlers. The output format is left untouched.
func SetLevels(config Config) {
	std.setLevels(config)
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	return std.logger(module)
}

func (r *registry) initialize(config Config, out io.Writer) *slog.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.out = out
	r.cfg = config
	r.initialized = true
	r.applyLevelsLocked()

	for module, levelVar := range r.levels {
		r.loggers[module] = slog.New(r.handlerLocked(levelVar)).With("module", module)
	}

	return slog.New(r.handlerLocked(r.global))
}

func (r *registry) setLevels(config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cfg.Level = config.Level
	r.cfg.Modules = config.Modules
	r.applyLevelsLocked()
}

func (r *registry) logger(module string) *slog.Logger {
	r.mu.RLock()
	logger, ok := r.loggers[module]
	r.mu.RUnlock()
	if ok {
		return logger
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if logger, ok = r.loggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	levelVar.Set(r.levelForLocked(module))
	r.levels[module] = levelVar

	logger = slog.New(r.handlerLocked(levelVar)).With("module", module)
	r.loggers[module] = logger
	return logger
}

// applyLevelsLocked pushes the configured levels into every LevelVar.
func (r *registry) applyLevelsLocked() {
	r.global.Set(r.globalLevelLocked())
	for module, levelVar := range r.levels {
		levelVar.Set(r.levelForLocked(module))
	}
}

func (r *registry) globalLevelLocked() slog.Level {
	if level, ok := parseLevel(r.cfg.Level); ok {
		return level
	}
	return slog.LevelInfo
}

func (r *registry) levelForLocked(module string) slog.Level {
	if !r.initialized {
		return slog.LevelInfo
	}
	if level, ok := parseLevel(r.cfg.Modules[module]); ok {
		return level
	}
	return r.globalLevelLocked()
}

// handlerLocked builds the output chain: the configured writer, plus the
// systemd journal when it is reachable.
func (r *registry) handlerLocked(level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var out slog.Handler
	if r.cfg.Format == "json" {
		out = slog.NewJSONHandler(r.out, opts)
	} else {
		out = slog.NewTextHandler(r.out, opts)
	}

	if r.journal == nil || !r.journal() {
		return out
	}
	if f, ok := r.out.(*os.File); ok && !isOutputAvailable(f) {
		return NewJournalHandler(journalIdentifier, level)
	}
	return NewMultiHandler(out, NewJournalHandler(journalIdentifier, level))
}

// isOutputAvailable reports whether f is a terminal, pipe, socket or regular
// file. Output to /dev/null under systemd is skipped in favor of the journal.
func isOutputAvailable(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return mode&(os.ModeCharDevice|os.ModeNamedPipe|os.ModeSocket) != 0 || mode.IsRegular()
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
