package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/19722009abc/HelpyBot/internal/types"
)

// Level represents a logging level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a config string into a Level, defaulting to INFO
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger represents our custom logger
type Logger struct {
	handler   slog.Handler
	level     *slog.LevelVar
	component string
}

// NewLogger creates a new logger instance writing to stdout
func NewLogger(level Level) *Logger {
	return New(os.Stdout, level)
}

// New creates a logger writing colored records to w
func New(w io.Writer, level Level) *Logger {
	lv := new(slog.LevelVar)
	lv.Set(level.slogLevel())
	return &Logger{
		handler: NewHandler(w, &HandlerOptions{Level: lv}),
		level:   lv,
	}
}

// SetLevel changes the minimum level for this logger and every logger derived from it
func (l *Logger) SetLevel(level Level) {
	l.level.Set(level.slogLevel())
}

// With returns a logger tagged with a component name, e.g. [LEDGER]
func (l *Logger) With(component string) *Logger {
	return &Logger{
		handler:   l.handler.WithAttrs([]slog.Attr{slog.String(componentKey, component)}),
		level:     l.level,
		component: component,
	}
}

// Slog exposes the underlying structured logger for libraries that take one
func (l *Logger) Slog() *slog.Logger {
	return slog.New(l.handler)
}

func (l *Logger) log(level Level, format string, v ...interface{}) {
	ctx := context.Background()
	if !l.handler.Enabled(ctx, level.slogLevel()) {
		return
	}

	// skip runtime.Callers, log, and the exported method
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), level.slogLevel(), fmt.Sprintf(format, v...), pcs[0])
	_ = l.handler.Handle(ctx, r)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, v ...interface{}) {
	l.log(DEBUG, format, v...)
}

// Info logs an info message
func (l *Logger) Info(format string, v ...interface{}) {
	l.log(INFO, format, v...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, v ...interface{}) {
	l.log(WARN, format, v...)
}

// Error logs an error message
func (l *Logger) Error(format string, v ...interface{}) {
	l.log(ERROR, format, v...)
}

// LogError logs an EconomyError with appropriate context
func (l *Logger) LogError(err error) {
	var econErr *types.EconomyError
	if types.As(err, &econErr) {
		context := []string{
			fmt.Sprintf("Code: %s", econErr.Code),
			fmt.Sprintf("Message: %s", econErr.Message),
		}
		if econErr.Err != nil {
			context = append(context, fmt.Sprintf("Cause: %v", econErr.Err))
		}

		l.log(ERROR, "Economy error occurred:\n\t%s", strings.Join(context, "\n\t"))
	} else {
		l.log(ERROR, "Unexpected error: %v", err)
	}
}

// Default logger instance
var Default = NewLogger(INFO)
