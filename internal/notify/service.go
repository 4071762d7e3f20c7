// Package notify produces notification documents for infractions and
// delivers them by email.
package notify

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
	"github.com/joseph-ayodele/seguridadvial/internal/render"
	"github.com/joseph-ayodele/seguridadvial/internal/repository"
)

// Document selects how the documents of one series are produced.
type Document struct {
	Prefix       string
	TemplatePath string
	Renderer     render.Renderer
}

// Options configures a Service.
type Options struct {
	// Documents maps a series to its document settings; Default covers the rest.
	Documents map[string]Document
	Default   Document
	UploadDir string
	Clock     func() time.Time
}

// GenerateResult is the outcome of Generate.
type GenerateResult struct {
	Notification *entity.Notification
	Path         string
	Warnings     []string
}

// StreamResult is a rendered document that was not persisted.
type StreamResult struct {
	Filename    string
	ContentType string
	Bytes       []byte
	Warnings    []string
}

// Service drives the notification lifecycle: generado on every render,
// enviado once mailed, never back.
type Service struct {
	infractions   repository.InfractionRepository
	notifications repository.NotificationRepository
	store         *DocumentStore
	mailer        Mailer
	opts          Options
	logger        *slog.Logger
}

func NewService(
	infractions repository.InfractionRepository,
	notifications repository.NotificationRepository,
	store *DocumentStore,
	mailer Mailer,
	opts Options,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		infractions:   infractions,
		notifications: notifications,
		store:         store,
		mailer:        mailer,
		opts:          opts,
		logger:        logger,
	}
}

func (s *Service) document(series string) (Document, error) {
	doc, ok := s.opts.Documents[series]
	if !ok {
		doc = s.opts.Default
	}
	if doc.Renderer == nil {
		return Document{}, fmt.Errorf("%w: no renderer configured for series %q", common.ErrInternal, series)
	}
	if doc.Prefix == "" {
		doc.Prefix = constants.PrefixCamera
	}
	return doc, nil
}

func (s *Service) render(ctx context.Context, inf *entity.Infraction) (Document, *render.Result, error) {
	doc, err := s.document(inf.Series)
	if err != nil {
		return Document{}, nil, err
	}
	tpl, err := render.LoadTemplate(doc.TemplatePath)
	if err != nil {
		return Document{}, nil, err
	}
	fields := render.ResolveFields(inf, doc.Renderer.Layout(), s.opts.UploadDir)
	res, err := doc.Renderer.Render(ctx, fields, tpl)
	if err != nil {
		return Document{}, nil, fmt.Errorf("render %s: %w", inf.ActNumber(), err)
	}
	return doc, res, nil
}

// Generate renders the act's document, stores it and records the
// notification. A sent notification stays sent.
func (s *Service) Generate(ctx context.Context, infractionID int64) (*GenerateResult, error) {
	logger := common.LoggerFromContext(ctx, s.logger)
	inf, err := s.infractions.Get(ctx, infractionID)
	if err != nil {
		return nil, err
	}
	doc, res, err := s.render(ctx, inf)
	if err != nil {
		logger.Error("notify.generate.failed", "infraction_id", infractionID, "act_number", inf.ActNumber(), "error", err)
		return nil, err
	}
	path, err := s.store.Write(doc.Prefix, inf.ActNumber(), res.Kind, res.Bytes)
	if err != nil {
		logger.Error("notify.generate.failed", "infraction_id", infractionID, "act_number", inf.ActNumber(), "error", err)
		return nil, err
	}
	n, err := s.notifications.UpsertGenerated(ctx, infractionID, path, s.opts.Clock())
	if err != nil {
		return nil, err
	}
	logger.Info("notify.generate.ok",
		"infraction_id", infractionID,
		"act_number", inf.ActNumber(),
		"notification_id", n.ID,
		"state", n.State,
		"path", path,
		"warnings", len(res.Warnings),
	)
	return &GenerateResult{Notification: n, Path: path, Warnings: res.Warnings}, nil
}

// GenerateStream renders the act's document without storing anything.
func (s *Service) GenerateStream(ctx context.Context, infractionID int64) (*StreamResult, error) {
	inf, err := s.infractions.Get(ctx, infractionID)
	if err != nil {
		return nil, err
	}
	doc, res, err := s.render(ctx, inf)
	if err != nil {
		return nil, err
	}
	return &StreamResult{
		Filename:    constants.DocumentFilename(doc.Prefix, inf.ActNumber(), res.Kind),
		ContentType: res.Kind.ContentType(),
		Bytes:       res.Bytes,
		Warnings:    res.Warnings,
	}, nil
}

// Send mails the stored document and marks the notification as sent. An
// unknown notification is reported before anything is dispatched.
func (s *Service) Send(ctx context.Context, notificationID int64, email string) (*entity.Notification, error) {
	logger := common.LoggerFromContext(ctx, s.logger)
	if err := ValidateRecipient(email); err != nil {
		return nil, err
	}
	n, err := s.notifications.GetForSend(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if s.mailer == nil {
		return nil, common.ErrMailDisabled
	}
	if fi, err := os.Stat(n.DocumentPath); err != nil || !fi.Mode().IsRegular() {
		logger.Error("notify.send.document_missing", "notification_id", notificationID, "act_number", n.ActNumber, "path", n.DocumentPath)
		return nil, fmt.Errorf("document %s of act %s: %w", n.DocumentPath, n.ActNumber, common.ErrNotFound)
	}

	msg := Message{
		To:             email,
		Subject:        "Notificación Acta " + n.ActNumber,
		Text:           fmt.Sprintf("Adjuntamos la Notificación del acta %s.", n.ActNumber),
		HTML:           fmt.Sprintf("<p>Adjuntamos la <b>Notificación</b> del acta <b>%s</b>.</p>", html.EscapeString(n.ActNumber)),
		AttachmentPath: n.DocumentPath,
		AttachmentName: filepath.Base(n.DocumentPath),
	}
	if err := s.mailer.Send(ctx, msg); err != nil {
		logger.Error("notify.send.failed", "notification_id", notificationID, "act_number", n.ActNumber, "error", err)
		return nil, err
	}

	sent, err := s.notifications.MarkSent(ctx, notificationID, email, s.opts.Clock())
	if err != nil {
		return nil, err
	}
	logger.Info("notify.send.ok", "notification_id", notificationID, "act_number", n.ActNumber, "to", email)
	return sent, nil
}
