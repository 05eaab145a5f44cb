package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02 15:04:05"

// Config selects the sinks and verbosity of the logger.
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // text or json
	File   string    // optional log file, appended to
	Stdout io.Writer // defaults to os.Stdout
}

// ZeroLogger is a Logger backed by zerolog.
type ZeroLogger struct {
	zl zerolog.Logger
}

// New builds a logger writing to cfg.Stdout and, when set, cfg.File. The
// returned closer releases the log file and must be called on shutdown.
func New(cfg Config) (*ZeroLogger, io.Closer, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	stdout := cfg.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	writers := []io.Writer{sink(stdout, cfg.Format, !isTerminal(stdout))}
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		writers = append(writers, sink(f, cfg.Format, true))
		closer = f
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()

	return &ZeroLogger{zl: zl}, closer, nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &ZeroLogger{zl: zerolog.Nop()}
}

func (l *ZeroLogger) Debug(msg string, keyvals ...any) { emit(l.zl.Debug(), msg, keyvals) }
func (l *ZeroLogger) Info(msg string, keyvals ...any)  { emit(l.zl.Info(), msg, keyvals) }
func (l *ZeroLogger) Warn(msg string, keyvals ...any)  { emit(l.zl.Warn(), msg, keyvals) }
func (l *ZeroLogger) Error(msg string, keyvals ...any) { emit(l.zl.Error(), msg, keyvals) }

func (l *ZeroLogger) With(keyvals ...any) Logger {
	if len(keyvals) == 0 {
		return l
	}
	return &ZeroLogger{zl: l.zl.With().Fields(normalize(keyvals)).Logger()}
}

func emit(ev *zerolog.Event, msg string, keyvals []any) {
	if ev == nil {
		return
	}
	if len(keyvals) > 0 {
		ev = ev.Fields(normalize(keyvals))
	}
	ev.Msg(msg)
}

// normalize pads a dangling key and renders errors as strings so that
// they survive JSON encoding.
func normalize(keyvals []any) []any {
	out := make([]any, 0, len(keyvals)+1)
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		var val any = "(MISSING)"
		if i+1 < len(keyvals) {
			val = keyvals[i+1]
		}
		if err, ok := val.(error); ok && err != nil {
			val = err.Error()
		}
		out = append(out, key, val)
	}
	return out
}

func sink(w io.Writer, format string, noColor bool) io.Writer {
	if format == "json" {
		return w
	}
	return zerolog.ConsoleWriter{Out: w, TimeFormat: consoleTimeFormat, NoColor: noColor}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
