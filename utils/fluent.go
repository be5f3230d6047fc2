package utils

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
)

// FluentConfig points the log forwarder at a Fluent Bit / Fluentd instance.
type FluentConfig struct {
	Host      string
	Port      int
	TagPrefix string
	Level     string
}

// FluentHandler is a slog.Handler that posts records to fluentd.
// The tag is "<prefix>.<level>".
type FluentHandler struct {
	client *fluent.Fluent
	level  slog.Level
	attrs  []slog.Attr
	group  string
}

// NewFluentHandler connects to fluentd. The client reconnects on its own.
func NewFluentHandler(cfg FluentConfig) (*FluentHandler, error) {
	client, err := fluent.New(fluent.Config{
		FluentHost:   cfg.Host,
		FluentPort:   cfg.Port,
		TagPrefix:    cfg.TagPrefix,
		Async:        true,
		RequestAck:   false,
		WriteTimeout: 3 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("fluent: connect %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return &FluentHandler{client: client, level: ParseLevel(cfg.Level)}, nil
}

func (h *FluentHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *FluentHandler) Handle(_ context.Context, r slog.Record) error {
	data := make(map[string]interface{}, r.NumAttrs()+len(h.attrs)+3)
	for _, a := range h.attrs {
		data[h.key(a.Key)] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		v := a.Value.Resolve().Any()
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		data[h.key(a.Key)] = v
		return true
	})
	data["level"] = r.Level.String()
	data["message"] = r.Message
	data["timestamp"] = r.Time.UTC().Format(time.RFC3339Nano)

	return h.client.Post(levelTag(r.Level), data)
}

func (h *FluentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &next
}

func (h *FluentHandler) WithGroup(name string) slog.Handler {
	next := *h
	next.group = h.key(name)
	return &next
}

// Close flushes pending records.
func (h *FluentHandler) Close() error {
	return h.client.Close()
}

func (h *FluentHandler) key(k string) string {
	if h.group == "" {
		return k
	}
	return h.group + "." + k
}

func levelTag(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "error"
	case l >= slog.LevelWarn:
		return "warn"
	case l >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
