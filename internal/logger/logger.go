// Package logger provides the structured logger used by the job queue client,
// the daemon simulator and jqctl. It wraps slog with text or JSON output to
// stdout, stderr or a file.
//
// The client never logs instead of returning an error: log lines only trace
// what happened (connects, exchanges, wait loops).
//
//	log, err := logger.New(logger.Config{Level: "debug", Format: "json", Output: "stderr"})
//	if err != nil {
//	    return err
//	}
//	log.Info("connected", logger.Field{Key: "endpoint", Value: "tcp://127.0.0.1:10091"})
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Config - настройки логгера
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output string // stdout, stderr или путь к файлу
}

// Logger - обёртка над slog.Logger
type Logger struct {
	slog *slog.Logger
}

// Field - поле структурированной записи
type Field struct {
	Key   string
	Value any
}

// New создаёт логгер по конфигурации
func New(cfg Config) (*Logger, error) {
	w, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	return NewWithWriter(w, cfg)
}

// NewWithWriter создаёт логгер, пишущий в w; cfg.Output игнорируется
func NewWithWriter(w io.Writer, cfg Config) (*Logger, error) {
	level, ok := parseLevel(cfg.Level)
	if !ok {
		return nil, fmt.Errorf("invalid log level: %s (expected: debug, info, warn, error)", cfg.Level)
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text", "":
		handler = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("invalid log format: %s (expected: json, text)", cfg.Format)
	}
	return &Logger{slog: slog.New(handler)}, nil
}

// Nop возвращает логгер, отбрасывающий все записи
func Nop() *Logger {
	return &Logger{slog: slog.New(slog.DiscardHandler)}
}

// openOutput открывает приёмник записей; ~ в пути к файлу раскрывается
func openOutput(output string) (io.Writer, error) {
	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	}

	path := output
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, rest)
	}
	path = filepath.Clean(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}
	return f, nil
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// ValidLevel сообщает, поддерживается ли уровень
func ValidLevel(level string) bool {
	_, ok := parseLevel(level)
	return ok
}

// Debug пишет запись уровня debug
func (l *Logger) Debug(msg string, fields ...Field) {
	l.slog.Debug(msg, toArgs(fields)...)
}

// Info пишет запись уровня info
func (l *Logger) Info(msg string, fields ...Field) {
	l.slog.Info(msg, toArgs(fields)...)
}

// Warn пишет запись уровня warn
func (l *Logger) Warn(msg string, fields ...Field) {
	l.slog.Warn(msg, toArgs(fields)...)
}

// Error пишет запись уровня error с ошибкой
func (l *Logger) Error(msg string, err error, fields ...Field) {
	args := append([]any{"error", err}, toArgs(fields)...)
	l.slog.Error(msg, args...)
}

// With возвращает логгер с добавленными полями
func (l *Logger) With(fields ...Field) *Logger {
	return &Logger{slog: l.slog.With(toArgs(fields)...)}
}

// StdLogger возвращает нижележащий slog.Logger
func (l *Logger) StdLogger() *slog.Logger {
	return l.slog
}

func toArgs(fields []Field) []any {
	args := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		args = append(args, f.Key, f.Value)
	}
	return args
}
