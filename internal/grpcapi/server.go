// Package grpcapi serves the standard gRPC health protocol for load
// balancers and orchestrators, backed by the engine's readiness.
package grpcapi

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"netventure.org/internal/obs"
)

// ServiceName is the health service name reported alongside the overall
// ("") status.
const ServiceName = "netventure-api"

type readinessChecker interface {
	Ready(ctx context.Context) error
}

// Server tracks readiness and publishes it through grpc.health.v1.
type Server struct {
	health    *health.Server
	readiness readinessChecker
	version   string
	log       *zap.Logger
}

// New creates the health wrapper. Status starts as NOT_SERVING until the
// first Refresh.
func New(r readinessChecker, version string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		health:    health.NewServer(),
		readiness: r,
		version:   version,
		log:       log,
	}
	s.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// NewGRPCServer builds a grpc.Server with logging and the health service
// registered.
func (s *Server) NewGRPCServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.logUnary))
	g := grpc.NewServer(opts...)
	s.Register(g)
	return g
}

// Register attaches the health and reflection services to g.
func (s *Server) Register(g *grpc.Server) {
	healthpb.RegisterHealthServer(g, s.health)
	reflection.Register(g)
}

// Refresh checks readiness once and updates the published status.
func (s *Server) Refresh(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.readiness.Ready(ctx); err != nil {
		s.log.Debug("grpc health not ready", zap.Error(err))
		s.set(healthpb.HealthCheckResponse_NOT_SERVING)
		obs.SetReady(false)
		return false
	}
	s.set(healthpb.HealthCheckResponse_SERVING)
	obs.SetReady(true)
	return true
}

// Watch refreshes on every tick until ctx ends, then marks the service as
// shutting down so Watch streams observe NOT_SERVING.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	s.Refresh(ctx)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-t.C:
			s.Refresh(ctx)
		}
	}
}

func (s *Server) set(st healthpb.HealthCheckResponse_ServingStatus) {
	s.health.SetServingStatus("", st)
	s.health.SetServingStatus(ServiceName, st)
}

func (s *Server) logUnary(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	s.log.Debug("grpc_complete",
		zap.String("method", info.FullMethod),
		zap.String("code", status.Code(err).String()),
		zap.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
		zap.String("version", s.version),
	)
	return resp, err
}
