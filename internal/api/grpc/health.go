// Package grpc serves the standard gRPC health protocol so orchestrators can
// probe the process without going through the HTTP API.
package grpc

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"asset-rental-backend/internal/logger"
)

// ServiceName is the health entry for the rental API alongside the overall "".
const ServiceName = "assetrental.RentalAPI"

// Pinger reports whether the entity store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker keeps the health status in sync with the database.
type HealthChecker struct {
	server   *health.Server
	pinger   Pinger
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewHealthChecker(pinger Pinger, interval time.Duration) *HealthChecker {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &HealthChecker{
		server:   health.NewServer(),
		pinger:   pinger,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// NewServer builds a gRPC server exposing health and reflection.
func NewServer(checker *HealthChecker, opts ...grpc.ServerOption) *grpc.Server {
	s := grpc.NewServer(opts...)
	healthpb.RegisterHealthServer(s, checker.server)
	reflection.Register(s)
	return s
}

// Check pings once and publishes the result.
func (h *HealthChecker) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	ctx, cancel := context.WithTimeout(ctx, h.interval)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := h.pinger.Ping(ctx); err != nil {
		logger.Warn("Database ping failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
	return status
}

// Run checks immediately and then every interval until Stop is called.
func (h *HealthChecker) Run() {
	defer close(h.done)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	h.Check(context.Background())
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			h.Check(context.Background())
		}
	}
}

// Stop ends the polling loop and marks everything NOT_SERVING.
func (h *HealthChecker) Stop() {
	h.stopOnce.Do(func() {
		close(h.stop)
		h.server.Shutdown()
	})
}

// Wait blocks until Run has returned.
func (h *HealthChecker) Wait() {
	<-h.done
}
