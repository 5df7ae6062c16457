package observability

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Console levels between info and warning.
const (
	// LevelTitle is a prominent banner line.
	LevelTitle = slog.LevelInfo + 1
	// LevelSuccess reports a completed run.
	LevelSuccess = slog.LevelInfo + 2
)

const consoleTimeLayout = "15:04:05"

// consoleHidden are metadata keys meant for machine consumers only.
var consoleHidden = map[string]bool{
	attrService: true,
	attrMode:    true,
	attrTraceID: true,
	attrSpanID:  true,

	attrSymbolFile: true,
}

// ConsoleOptions configure a ConsoleHandler.
type ConsoleOptions struct {
	// Level is the minimum level written. Nil means info.
	Level slog.Leveler

	// NoColor writes plain text. Otherwise colour follows terminal detection.
	NoColor bool
}

// ConsoleHandler writes "HH:MM:SS: [LEVEL: ]message key=value" lines,
// coloured by level.
type ConsoleHandler struct {
	w      io.Writer
	mu     *sync.Mutex
	opts   ConsoleOptions
	attrs  []slog.Attr
	prefix string
	styles map[slog.Level]*color.Color
}

// NewConsoleHandler creates a handler writing to w.
func NewConsoleHandler(w io.Writer, opts *ConsoleOptions) *ConsoleHandler {
	var o ConsoleOptions
	if opts != nil {
		o = *opts
	}

	if o.Level == nil {
		o.Level = slog.LevelInfo
	}

	styles := map[slog.Level]*color.Color{
		LevelTitle:      color.New(color.FgCyan),
		LevelSuccess:    color.New(color.FgGreen),
		slog.LevelWarn:  color.New(color.FgYellow),
		slog.LevelError: color.New(color.FgRed),
	}

	if o.NoColor {
		for _, style := range styles {
			style.DisableColor()
		}
	}

	return &ConsoleHandler{w: w, mu: &sync.Mutex{}, opts: o, styles: styles}
}

// Enabled reports whether level meets the configured minimum.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// Handle formats and writes one record.
func (h *ConsoleHandler) Handle(_ context.Context, record slog.Record) error {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	var sb strings.Builder

	sb.WriteString(ts.Format(consoleTimeLayout))
	sb.WriteString(": ")
	sb.WriteString(levelPrefix(record.Level))
	sb.WriteString(record.Message)

	for _, attr := range h.attrs {
		writeAttr(&sb, "", attr)
	}

	record.Attrs(func(attr slog.Attr) bool {
		writeAttr(&sb, h.prefix, attr)

		return true
	})

	line := sb.String()
	if style, ok := h.styles[record.Level]; ok {
		line = style.Sprint(line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := io.WriteString(h.w, line+"\n")

	return err
}

// WithAttrs returns a handler that appends attrs to every line.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)

	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + attr.Key, Value: attr.Value})
	}

	return &clone
}

// WithGroup returns a handler that qualifies later keys with name.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}

	clone := *h
	clone.prefix = h.prefix + name + "."

	return &clone
}

func levelPrefix(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR: "
	case level >= slog.LevelWarn:
		return "WARNING: "
	case level == LevelSuccess:
		return "SUCCESS: "
	default:
		return ""
	}
}

func writeAttr(sb *strings.Builder, prefix string, attr slog.Attr) {
	attr.Value = attr.Value.Resolve()

	if attr.Equal(slog.Attr{}) || consoleHidden[attr.Key] {
		return
	}

	if attr.Value.Kind() == slog.KindGroup {
		group := prefix + attr.Key + "."
		if attr.Key == "" {
			group = prefix
		}

		for _, member := range attr.Value.Group() {
			writeAttr(sb, group, member)
		}

		return
	}

	value := attr.Value.String()
	if value == "" || strings.ContainsAny(value, " \t\"=") {
		value = strconv.Quote(value)
	}

	sb.WriteByte(' ')
	sb.WriteString(prefix)
	sb.WriteString(attr.Key)
	sb.WriteByte('=')
	sb.WriteString(value)
}

// LevelName renders the console levels by name in structured output.
func LevelName(_ []string, attr slog.Attr) slog.Attr {
	if attr.Key != slog.LevelKey {
		return attr
	}

	level, ok := attr.Value.Any().(slog.Level)
	if !ok {
		return attr
	}

	switch level {
	case LevelTitle:
		attr.Value = slog.StringValue("TITLE")
	case LevelSuccess:
		attr.Value = slog.StringValue("SUCCESS")
	}

	return attr
}

// Title logs a banner line.
func Title(ctx context.Context, logger *slog.Logger, msg string) {
	logger.Log(ctx, LevelTitle, msg)
}

// Success logs a completion line.
func Success(ctx context.Context, logger *slog.Logger, msg string) {
	logger.Log(ctx, LevelSuccess, msg)
}
