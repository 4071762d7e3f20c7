package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service reported alongside the overall status.
const ServiceName = "seguridadvial.Actas"

// Probe checks a dependency; a nil error means healthy.
type Probe func(ctx context.Context) error

// HealthReporter polls a probe and mirrors the result into a gRPC health server.
type HealthReporter struct {
	hs       *health.Server
	probe    Probe
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	serving bool
	checked bool
}

func NewHealthReporter(hs *health.Server, probe Probe, interval, timeout time.Duration, logger *slog.Logger) *HealthReporter {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HealthReporter{hs: hs, probe: probe, interval: interval, timeout: timeout, logger: logger}
}

// Check runs the probe once and updates the serving status.
func (r *HealthReporter) Check(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	err := r.probe(ctx)
	cancel()

	serving := err == nil
	st := healthpb.HealthCheckResponse_SERVING
	if !serving {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	r.hs.SetServingStatus("", st)
	r.hs.SetServingStatus(ServiceName, st)

	r.mu.Lock()
	changed := !r.checked || r.serving != serving
	r.serving, r.checked = serving, true
	r.mu.Unlock()
	if changed {
		if serving {
			r.logger.Info("health.serving")
		} else {
			r.logger.Warn("health.not_serving", "error", err)
		}
	}
	return serving
}

// Run checks immediately and then on every tick until ctx is done.
func (r *HealthReporter) Run(ctx context.Context) {
	r.Check(ctx)
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			r.hs.Shutdown()
			return
		case <-t.C:
			r.Check(ctx)
		}
	}
}
