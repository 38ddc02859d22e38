package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type ctxKey uint8

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyActorID
	ctxKeyMethod
	ctxKeyPath
)

// Handler はコンテキストに積まれたリクエスト属性をレコードへ付与する slog.Handler です。
type Handler struct {
	slog.Handler
}

func (h *Handler) Handle(ctx context.Context, record slog.Record) error {
	if v, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		record.AddAttrs(slog.String("request_id", v))
	}
	if v, ok := ctx.Value(ctxKeyActorID).(int64); ok {
		record.AddAttrs(slog.Int64("actor_id", v))
	}
	if v, ok := ctx.Value(ctxKeyMethod).(string); ok {
		record.AddAttrs(slog.String("method", v))
	}
	if v, ok := ctx.Value(ctxKeyPath).(string); ok {
		record.AddAttrs(slog.String("path", v))
	}

	return h.Handler.Handle(ctx, record)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{h.Handler.WithAttrs(attrs)}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{h.Handler.WithGroup(name)}
}

// Options はロガーの出力設定です。
type Options struct {
	Level   string
	Format  string // json | text
	Service string
}

// New は Options に従ってロガーを生成し、slog のデフォルトに設定します。
func New(opts Options) (*slog.Logger, error) {
	return newLogger(os.Stdout, opts)
}

func newLogger(w io.Writer, opts Options) (*slog.Logger, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	ho := &slog.HandlerOptions{Level: level}

	var base slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "json":
		base = slog.NewJSONHandler(w, ho)
	case "text":
		base = slog.NewTextHandler(w, ho)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", opts.Format)
	}

	l := slog.New(&Handler{base})
	if opts.Service != "" {
		l = l.With("service", opts.Service)
	}

	slog.SetDefault(l)

	return l, nil
}

// ParseLevel はレベル名を slog.Level に変換します。空文字は info です。
func ParseLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logger: unknown level %q", raw)
	}
}

func SetRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, reqID)
}

// RequestID はコンテキストのリクエスト ID を返します。
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxKeyRequestID).(string)
	return v
}

func SetActorID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKeyActorID, id)
}

// SetRequest はリクエストのメソッドとパスを記録します。
func SetRequest(ctx context.Context, method, path string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyMethod, method)
	return context.WithValue(ctx, ctxKeyPath, path)
}
