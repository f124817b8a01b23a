// Package grpcapi exposes the standard gRPC health protocol so supervisors
// can probe the terminal without speaking its HTTP API.
package grpcapi

import (
	"context"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health service name reported alongside "".
const ServiceName = "doorlock.Terminal"

// ReadyFunc reports whether the terminal can serve attendance.
type ReadyFunc func(ctx context.Context) bool

type Server struct {
	grpc     *grpc.Server
	health   *health.Server
	ready    ReadyFunc
	interval time.Duration
	logger   *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func New(ready ReadyFunc, interval time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &Server{
		grpc:     gs,
		health:   hs,
		ready:    ready,
		interval: interval,
		logger:   logger.Named("grpc"),
		stop:     make(chan struct{}),
	}
	s.Refresh(context.Background())
	return s
}

// Refresh re-evaluates readiness and publishes it.
func (s *Server) Refresh(ctx context.Context) {
	st := healthpb.HealthCheckResponse_SERVING
	if s.ready != nil && !s.ready(ctx) {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

// Serve blocks serving on lis while a background loop keeps the health
// status current.
func (s *Server) Serve(lis net.Listener) error {
	go s.watch()
	s.logger.Info("gRPC health listening", zap.String("addr", lis.Addr().String()))
	return s.grpc.Serve(lis)
}

func (s *Server) ListenAndServe(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) watch() {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			ctx, cancel := context.WithTimeout(context.Background(), s.interval/2)
			s.Refresh(ctx)
			cancel()
		}
	}
}

// Stop marks every service NOT_SERVING and drains in-flight calls.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
		s.health.Shutdown()
		s.grpc.GracefulStop()
	})
}
