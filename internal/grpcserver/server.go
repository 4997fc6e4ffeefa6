// Package grpcserver exposes the standard gRPC health service so
// orchestrators can probe the API process.
package grpcserver

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	applog "stockroom/internal/log"
)

// ServiceName is the health entry tracking the API itself. The empty name
// reports overall server health.
const ServiceName = "stockroom.API"

type Server struct {
	addr   string
	lis    net.Listener
	health *health.Server
	Server *grpc.Server
	logger *applog.Logger
}

func New(addr string, logger *applog.Logger) *Server {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{
		addr:   addr,
		health: hs,
		Server: s,
		logger: logger.WithComponent(applog.ComponentGRPC),
	}
}

// Start listens on the configured address and blocks until Stop.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve blocks serving on lis.
func (s *Server) Serve(lis net.Listener) error {
	s.lis = lis
	s.logger.Info("gRPC health server listening", "addr", lis.Addr().String())
	return s.Server.Serve(lis)
}

func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(ServiceName, status)
	s.health.SetServingStatus("", status)
}

// Watch runs check every interval and mirrors the result into the health
// status until ctx ends.
func (s *Server) Watch(ctx context.Context, check func(context.Context) error, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	serving, first := false, true
	for {
		cctx, cancel := context.WithTimeout(ctx, interval)
		err := check(cctx)
		cancel()
		if ok := err == nil; first || ok != serving {
			if !ok {
				s.logger.Warn("Health check failing", applog.FieldError, err)
			}
			serving, first = ok, false
			s.SetServing(ok)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.Server.GracefulStop()
	if s.lis != nil {
		_ = s.lis.Close()
	}
}
