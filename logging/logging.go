// Package logging builds the slog loggers used by the runner and the CLI.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shipq/typedsql/query/compile"
)

// PrettyJSONHandler writes each record as an indented JSON object. It is
// meant for terminals during development.
type PrettyJSONHandler struct {
	opts   slog.HandlerOptions
	attrs  []scopedAttr
	groups []string

	mu     *sync.Mutex
	writer io.Writer
}

// scopedAttr is an attribute added by WithAttrs under the groups open at
// that point.
type scopedAttr struct {
	groups []string
	attr   slog.Attr
}

// NewPrettyJSONHandler creates a pretty handler writing to w.
func NewPrettyJSONHandler(w io.Writer, opts *slog.HandlerOptions) *PrettyJSONHandler {
	h := &PrettyJSONHandler{mu: &sync.Mutex{}, writer: w}
	if opts != nil {
		h.opts = *opts
	}
	return h
}

func (h *PrettyJSONHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}
	return level >= threshold
}

func (h *PrettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	fields := make(map[string]any)
	for _, sa := range h.attrs {
		addAttr(nested(fields, sa.groups), sa.attr)
	}
	target := nested(fields, h.groups)
	r.Attrs(func(a slog.Attr) bool {
		addAttr(target, a)
		return true
	})

	fields["time"] = r.Time.Format(time.RFC3339)
	fields["level"] = r.Level.String()
	fields["msg"] = r.Message

	out, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err = h.writer.Write(append(out, '\n'))
	return err
}

func (h *PrettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append([]scopedAttr(nil), h.attrs...)
	for _, a := range attrs {
		c.attrs = append(c.attrs, scopedAttr{groups: h.groups, attr: a})
	}
	return &c
}

func (h *PrettyJSONHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(append([]string(nil), h.groups...), name)
	return &c
}

// nested returns the map for the given group path, creating it as needed.
func nested(fields map[string]any, groups []string) map[string]any {
	for _, g := range groups {
		sub, ok := fields[g].(map[string]any)
		if !ok {
			sub = make(map[string]any)
			fields[g] = sub
		}
		fields = sub
	}
	return fields
}

func addAttr(dst map[string]any, a slog.Attr) {
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		sub := make(map[string]any)
		for _, ga := range v.Group() {
			addAttr(sub, ga)
		}
		if a.Key == "" {
			for k, gv := range sub {
				dst[k] = gv
			}
			return
		}
		dst[a.Key] = sub
		return
	}
	if a.Key == "" {
		return
	}
	switch v.Kind() {
	case slog.KindDuration:
		dst[a.Key] = v.Duration().String()
	case slog.KindTime:
		dst[a.Key] = v.Time().Format(time.RFC3339Nano)
	default:
		dst[a.Key] = v.Any()
	}
}

var ProdLogger = slog.New(slog.NewJSONHandler(os.Stdout, nil))

var DevLogger = slog.New(NewPrettyJSONHandler(os.Stdout, nil))

// ParseLevel maps debug, info, warn and error to their slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// New returns a logger writing to w. format is "json", "pretty" or "text".
func New(format string, level slog.Level, w io.Writer) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "pretty":
		return slog.New(NewPrettyJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("invalid log format %q (want json, pretty or text)", format)
}

// StatementAttrs describes a rendered statement without its argument
// values.
func StatementAttrs(stmt compile.Statement) []slog.Attr {
	return []slog.Attr{
		slog.String("fingerprint", stmt.Fingerprint()),
		slog.String("dialect", stmt.Dialect),
		slog.Int("args", len(stmt.Args)),
	}
}
