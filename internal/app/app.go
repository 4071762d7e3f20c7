// Package app wires configuration, storage and services for the binaries.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/async"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/export"
	"github.com/joseph-ayodele/seguridadvial/internal/infractions"
	"github.com/joseph-ayodele/seguridadvial/internal/notify"
	"github.com/joseph-ayodele/seguridadvial/internal/render"
	"github.com/joseph-ayodele/seguridadvial/internal/repository"
	"github.com/joseph-ayodele/seguridadvial/internal/server"
)

// App holds the wired components of one process.
type App struct {
	Config        *common.Config
	DB            *repository.DB
	Allocator     repository.CorrelativeAllocator
	Infractions   repository.InfractionRepository
	Notifications repository.NotificationRepository
	Owners        repository.OwnerRepository
	Notify        *notify.Service
	Acts          *infractions.Service
	Export        *export.Service
	Logger        *slog.Logger
}

// NewLogger builds the process logger. level is one of debug, info, warn, error.
func NewLogger(w io.Writer, level string, json bool) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Documents builds the per-series document settings from cfg.
func Documents(cfg *common.Config, logger *slog.Logger) (map[string]notify.Document, notify.Document, error) {
	build := func(dc common.DocumentConfig, defaults *render.Layout) (notify.Document, error) {
		layout, err := render.LoadLayout(defaults, render.LayoutOptions{
			File:        dc.Layout,
			CameraMake:  cfg.Render.CameraMake,
			CameraModel: cfg.Render.CameraModel,
			DebugGrid:   cfg.Render.DebugGrid,
		})
		if err != nil {
			return notify.Document{}, err
		}
		r, err := render.New(dc.Kind, layout, cfg.Render.DPI, logger)
		if err != nil {
			return notify.Document{}, err
		}
		return notify.Document{Prefix: dc.Prefix, TemplatePath: dc.Template, Renderer: r}, nil
	}

	defaults := map[string]*render.Layout{
		constants.SeriesCamera:   render.NotificationLayout(),
		constants.SeriesInPerson: render.TicketLayout(),
	}
	docs := make(map[string]notify.Document, len(defaults))
	for _, series := range []string{constants.SeriesCamera, constants.SeriesInPerson} {
		doc, err := build(cfg.Documents.ForSeries(series), defaults[series])
		if err != nil {
			return nil, notify.Document{}, fmt.Errorf("series %s documents: %w", series, err)
		}
		docs[series] = doc
	}
	return docs, docs[constants.SeriesCamera], nil
}

// New validates cfg, opens the database and wires the services.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	docs, def, err := Documents(cfg, logger)
	if err != nil {
		return nil, err
	}

	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	alloc := repository.NewCorrelativeAllocator(db)
	infRepo := repository.NewInfractionRepository(db, alloc, logger)
	notifRepo := repository.NewNotificationRepository(db, logger)

	notifier := notify.NewService(infRepo, notifRepo,
		notify.NewDocumentStore(cfg.Storage.PDFDir),
		notify.NewSMTPMailer(cfg.Mail, logger),
		notify.Options{Documents: docs, Default: def, UploadDir: cfg.Storage.UploadDir},
		logger,
	)
	acts := infractions.NewService(infRepo, repository.NewStatsRepository(db), infractions.Options{
		Generator: notifier,
		UploadDir: cfg.Storage.UploadDir,
	}, logger)

	return &App{
		Config:        cfg,
		DB:            db,
		Allocator:     alloc,
		Infractions:   infRepo,
		Notifications: notifRepo,
		Owners:        repository.NewOwnerRepository(db, logger),
		Notify:        notifier,
		Acts:          acts,
		Export:        export.NewService(infRepo, notifRepo, logger),
		Logger:        logger,
	}, nil
}

// RenderQueue starts a render queue over the notification service.
func (a *App) RenderQueue(workers int, opts ...async.Option) *async.RenderQueue {
	opts = append([]async.Option{
		async.WithWorkers(workers),
		async.WithJobTimeout(a.Config.Render.JobTimeout),
	}, opts...)
	return async.NewRenderQueue(a.Notify, a.Logger, opts...)
}

func (a *App) Close() {
	server.CloseDB(a.DB, a.Logger)
}
