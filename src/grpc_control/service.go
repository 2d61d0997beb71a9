package grpc_control

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"oi-signal-engine/src/interfaces"
	"oi-signal-engine/src/logger"
	"oi-signal-engine/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// ServiceName is the health-check name that tracks the analysis loop.
const ServiceName = "oi.SignalEngine"

const defaultRefreshInterval = 5 * time.Second

// ControlServer serves grpc.health.v1 and reflection. The engine service is
// SERVING while the loop runs and NOT_SERVING otherwise.
type ControlServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	Server *grpc.Server

	health *health.Server
	engine interfaces.ISignalEngine

	// RefreshInterval is how often the engine state is sampled.
	RefreshInterval time.Duration
}

// -----------------------------------------------------------------------------

func NewControlServer(cfg *models.MConfig, engine interfaces.ISignalEngine, log *logger.Logger) *ControlServer {
	gs := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	reflection.Register(gs)

	s := &ControlServer{
		Config:          cfg,
		Logger:          log,
		Server:          gs,
		health:          hs,
		engine:          engine,
		RefreshInterval: defaultRefreshInterval,
	}
	s.Refresh()
	return s
}

// -----------------------------------------------------------------------------

// Refresh publishes the current engine state and returns it.
func (s *ControlServer) Refresh() healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.engine.IsRunning() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Watch refreshes on a ticker until ctx is done, then marks every service
// NOT_SERVING.
func (s *ControlServer) Watch(ctx context.Context) {
	interval := s.RefreshInterval
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := s.Refresh()
	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			return
		case <-ticker.C:
			if st := s.Refresh(); st != last {
				s.Logger.Info("gRPC: %s is now %s", ServiceName, st)
				last = st
			}
		}
	}
}

// -----------------------------------------------------------------------------

// Serve listens on grpc_host:grpc_port until ctx is cancelled.
func (s *ControlServer) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.GrpcHost, s.Config.GrpcPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on %s: %w", addr, err)
	}
	s.Logger.Info("Starting gRPC Control Server on %s", addr)
	return s.ServeListener(ctx, lis)
}

// ServeListener serves on lis and stops gracefully when ctx is cancelled.
func (s *ControlServer) ServeListener(ctx context.Context, lis net.Listener) error {
	go s.Watch(ctx)
	go func() {
		<-ctx.Done()
		s.Server.GracefulStop()
	}()

	if err := s.Server.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return err
	}
	return nil
}
