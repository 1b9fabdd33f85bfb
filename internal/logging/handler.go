package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/fatih/color"
)

const componentKey = "component"

var (
	debugColor     = color.New(color.FgHiBlack)
	infoColor      = color.New(color.FgWhite)
	warnColor      = color.New(color.FgHiYellow)
	errorColor     = color.New(color.FgHiRed)
	componentColor = color.New(color.FgCyan)
	economyColor   = color.New(color.FgHiGreen)
	gameColor      = color.New(color.FgHiMagenta)
)

// HandlerOptions configures the colored handler
type HandlerOptions struct {
	Level   slog.Leveler
	NoColor bool
}

// Handler renders records as
// [2006-01-02 15:04:05.000] INFO  file.go:42 [COMPONENT] message key=value
type Handler struct {
	w     io.Writer
	opts  HandlerOptions
	attrs []slog.Attr
	mu    *sync.Mutex
}

// NewHandler creates a colored slog handler
func NewHandler(w io.Writer, opts *HandlerOptions) *Handler {
	h := &Handler{w: w, mu: &sync.Mutex{}}
	if opts != nil {
		h.opts = *opts
	}
	if h.opts.Level == nil {
		h.opts.Level = slog.LevelInfo
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	levelStr, levelColor := levelStyle(r.Level)

	caller := "unknown"
	if r.PC != 0 {
		frames := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := frames.Next()
		if f.File != "" {
			caller = fmt.Sprintf("%s:%d", filepath.Base(f.File), f.Line)
		}
	}

	component := ""
	var extra []string
	collect := func(a slog.Attr) bool {
		if a.Key == componentKey {
			component = strings.ToUpper(a.Value.String())
			return true
		}
		extra = append(extra, fmt.Sprintf("%s=%v", a.Key, a.Value.Any()))
		return true
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(collect)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] ", r.Time.Format("2006-01-02 15:04:05.000"))
	b.WriteString(h.paint(levelColor, fmt.Sprintf("%-5s", levelStr)))
	fmt.Fprintf(&b, " %s:", caller)
	if component != "" {
		b.WriteString(" ")
		b.WriteString(h.paint(componentStyle(component), "["+component+"]"))
	}
	b.WriteString(" ")
	b.WriteString(r.Message)
	if len(extra) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(extra, " "))
	}
	b.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

// Groups are flattened.
func (h *Handler) WithGroup(string) slog.Handler { return h }

func (h *Handler) paint(c *color.Color, s string) string {
	if h.opts.NoColor {
		return s
	}
	return c.Sprint(s)
}

func levelStyle(level slog.Level) (string, *color.Color) {
	switch {
	case level >= slog.LevelError:
		return "ERROR", errorColor
	case level >= slog.LevelWarn:
		return "WARN", warnColor
	case level >= slog.LevelInfo:
		return "INFO", infoColor
	default:
		return "DEBUG", debugColor
	}
}

func componentStyle(name string) *color.Color {
	switch name {
	case "LEDGER", "BANK", "SHOP", "RAFFLE", "ACCRUAL":
		return economyColor
	case "CASINO", "ROBBERY", "LEVELING":
		return gameColor
	default:
		return componentColor
	}
}
