package main

import (
	"context"
	"errors"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"

	"github.com/joseph-ayodele/seguridadvial/internal/app"
	"github.com/joseph-ayodele/seguridadvial/internal/async"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/ingest"
	"github.com/joseph-ayodele/seguridadvial/internal/repository"
	"github.com/joseph-ayodele/seguridadvial/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := app.NewLogger(os.Stdout, cfg.LogLevel, true)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := server.PingDB(ctx, a.DB, logger, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if counters, err := a.Allocator.List(ctx); err == nil {
		logger.Info("correlative counters", "counters", counters)
	}

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	hs := health.NewServer()
	grpcServer := server.NewGRPCServer(hs, logger)
	reporter := server.NewHealthReporter(hs, func(ctx context.Context) error {
		return repository.HealthCheck(ctx, a.DB, 3*time.Second, logger)
	}, cfg.Server.HealthInterval, 3*time.Second, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		reporter.Run(ctx)
	}()

	// Camera inbox: each text export (and its photo) becomes a prefill document.
	if err := os.MkdirAll(cfg.Ingest.InboxDir, 0o755); err != nil {
		logger.Error("failed to create camera inbox", "dir", cfg.Ingest.InboxDir, "error", err)
		os.Exit(1)
	}
	events, errs, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
		Roots:       []string{cfg.Ingest.InboxDir},
		InitialScan: true,
		Debounce:    cfg.Ingest.Debounce,
		Logger:      logger,
	})
	if err != nil {
		logger.Error("failed to start camera inbox watcher", "error", err)
		os.Exit(1)
	}
	usecase := ingest.NewUsecase(ingest.NewFSIngestor(logger), cfg.Ingest.OutboxDir, logger)
	workers := cfg.Ingest.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			usecase.Run(ctx, events, errs)
		}()
	}
	logger.Info("camera inbox watching", "inbox", cfg.Ingest.InboxDir, "outbox", cfg.Ingest.OutboxDir)

	// Background rendering for acts whose document is still missing.
	queue := a.RenderQueue(cfg.Render.Workers)
	if cfg.Render.SweepInterval > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweep(ctx, queue, a, cfg.Render.SweepInterval)
		}()
	}

	go func() {
		logger.Info("gRPC serving", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			logger.Error("grpc serve failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	grpcServer.GracefulStop()
	wg.Wait()
	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Render.JobTimeout)
	queue.Shutdown(drainCtx)
	cancel()
	logger.Info("stopped")
}

func sweep(ctx context.Context, q *async.RenderQueue, a *app.App, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		if _, err := q.Sweep(ctx, a.Notifications, 500); err != nil && ctx.Err() == nil {
			a.Logger.Warn("render sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
