package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5/request"
	"github.com/google/uuid"

	"github.com/ogurasousui/employee-management/internal/core/auth"
	"github.com/ogurasousui/employee-management/internal/platform/logger"
)

const (
	maxBodyBytes    = 1 << 20
	requestIDHeader = "X-Request-ID"
)

// Middleware は全ルート共通のミドルウェアです。
type Middleware struct {
	auth           auth.UseCase
	allowedOrigins []string
}

// NewMiddleware は Middleware を生成します。allowedOrigins に "*" を含めると全オリジンを許可します。
func NewMiddleware(authUC auth.UseCase, allowedOrigins []string) *Middleware {
	return &Middleware{
		auth:           authUC,
		allowedOrigins: allowedOrigins,
	}
}

// Log はリクエスト ID を払い出し、リクエストの開始と完了を記録します。
func (m *Middleware) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}

		ctx := logger.SetRequestID(r.Context(), reqID)
		ctx = logger.SetRequest(ctx, r.Method, r.URL.Path)
		w.Header().Set(requestIDHeader, reqID)

		slog.InfoContext(ctx, "incoming request", "remote_addr", r.RemoteAddr, "user_agent", r.UserAgent())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		slog.InfoContext(ctx, "request completed",
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		)
	})
}

// Recover はパニックを記録して 500 を返します。
func (m *Middleware) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			ctx := r.Context()
			slog.ErrorContext(ctx, "panic", "error", rec, "stack", string(debug.Stack()))
			sendErr(ctx, w, fmt.Errorf("panic: %v", rec))
		}()

		next.ServeHTTP(w, r)
	})
}

// Cors は許可済みオリジンからのブラウザアクセスを許可します。
func (m *Middleware) Cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && m.originAllowed(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, X-Request-ID")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) originAllowed(origin string) bool {
	return slices.ContainsFunc(m.allowedOrigins, func(allowed string) bool {
		return allowed == "*" || strings.EqualFold(allowed, origin)
	})
}

// LimitBody はリクエストボディを 1 MiB に制限します。
func (m *Middleware) LimitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// Auth は Bearer トークンを検証し、操作者をコンテキストに設定します。
func (m *Middleware) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		token, err := request.BearerExtractor{}.ExtractToken(r)
		if err != nil {
			sendErr(ctx, w, fmt.Errorf("bearer token: %w", auth.ErrUnauthorized))
			return
		}

		actor, err := m.auth.Authenticate(ctx, token)
		if err != nil {
			sendErr(ctx, w, err)
			return
		}

		ctx = logger.SetActorID(ctx, actor.ID)
		ctx = withActor(ctx, actor, token)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
