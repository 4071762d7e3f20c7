package server

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/seguridadvial/internal/common"
)

// NewGRPCServer builds the daemon's gRPC server with health and reflection
// registered.
func NewGRPCServer(hs *health.Server, logger *slog.Logger) *grpc.Server {
	s := grpc.NewServer(grpc.ChainUnaryInterceptor(loggingInterceptor(logger)))
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return s
}

// loggingInterceptor tags each call with a request id and logs its outcome.
func loggingInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		ctx, requestID := common.EnsureRequestID(ctx)
		l := logger.With("request_id", requestID, "method", info.FullMethod)
		ctx = common.WithLogger(ctx, l)

		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			l.Warn("grpc.call.failed", "elapsed_ms", time.Since(start).Milliseconds(), "error", err)
			if _, ok := status.FromError(err); ok {
				return resp, err
			}
			return resp, common.ToStatus(err)
		}
		l.Debug("grpc.call.ok", "elapsed_ms", time.Since(start).Milliseconds())
		return resp, nil
	}
}
