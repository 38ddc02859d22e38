package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ogurasousui/employee-management/internal/core/health"
)

// ServiceName は gRPC ヘルスチェックで公開するサービス名です。
const ServiceName = "employee_management.v1.EmployeeService"

const (
	defaultShutdownTimeout = 10 * time.Second
	defaultProbeInterval   = 15 * time.Second
	readHeaderTimeout      = 5 * time.Second
)

// Config はサーバーの待ち受けと停止に関する設定です。
type Config struct {
	HTTPAddr        string
	GRPCAddr        string
	ShutdownTimeout time.Duration
	ProbeInterval   time.Duration
}

// Server は REST API の HTTP サーバーと gRPC ヘルスサーバーのライフサイクルを管理します。
type Server struct {
	cfg        Config
	httpServer *http.Server
	grpcServer *grpc.Server
	health     *grpchealth.Server
	prober     health.Prober
}

// New はサーバーを構築します。ヘルス状態は最初の疎通確認まで NOT_SERVING です。
func New(cfg Config, handler http.Handler, prober health.Prober, opts ...grpc.ServerOption) *Server {
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = defaultProbeInterval
	}

	grpcServer := grpc.NewServer(opts...)
	hs := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)

	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           handler,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		grpcServer: grpcServer,
		health:     hs,
		prober:     prober,
	}
}

// Run はサーバーを起動し、コンテキストがキャンセルされると両サーバーを停止します。
func (s *Server) Run(ctx context.Context) error {
	httpLis, err := net.Listen("tcp", s.cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.HTTPAddr, err)
	}

	grpcLis, err := net.Listen("tcp", s.cfg.GRPCAddr)
	if err != nil {
		_ = httpLis.Close()
		return fmt.Errorf("listen on %s: %w", s.cfg.GRPCAddr, err)
	}

	return s.serve(ctx, httpLis, grpcLis)
}

func (s *Server) serve(ctx context.Context, httpLis, grpcLis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.InfoContext(gctx, "HTTP server listening", "addr", httpLis.Addr().String())
		if err := s.httpServer.Serve(httpLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve HTTP: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.InfoContext(gctx, "gRPC server listening", "addr", grpcLis.Addr().String())
		if err := s.grpcServer.Serve(grpcLis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("serve gRPC: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		s.watchHealth(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return s.shutdown()
	})

	return g.Wait()
}

// watchHealth は一定間隔で依存先を確認し、gRPC のヘルス状態に反映します。
func (s *Server) watchHealth(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ProbeInterval)
	defer ticker.Stop()

	for {
		s.updateHealth(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) updateHealth(ctx context.Context) {
	report := s.prober.Probe(ctx)

	status := healthpb.HealthCheckResponse_SERVING
	if !report.Ready() {
		status = healthpb.HealthCheckResponse_NOT_SERVING
		slog.WarnContext(ctx, "readiness probe failed", "errors", report.Errors)
	}

	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) shutdown() error {
	slog.Info("shutting down servers", "timeout", s.cfg.ShutdownTimeout)

	// 以降の状態更新は無視され、クライアントには NOT_SERVING が通知される
	s.health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown HTTP: %w", err))
	}

	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.grpcServer.Stop()
		errs = append(errs, fmt.Errorf("shutdown gRPC: %w", ctx.Err()))
	}

	return errors.Join(errs...)
}
