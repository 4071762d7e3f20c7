// Package infractions holds the use cases around speeding acts: creation
// with automatic document generation, edits, queries and camera prefill.
package infractions

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
	"github.com/joseph-ayodele/seguridadvial/internal/extract"
	"github.com/joseph-ayodele/seguridadvial/internal/notify"
	"github.com/joseph-ayodele/seguridadvial/internal/repository"
)

// Generator produces the notification document of an act.
type Generator interface {
	Generate(ctx context.Context, infractionID int64) (*notify.GenerateResult, error)
}

// Service handles infraction business logic.
type Service struct {
	infractions repository.InfractionRepository
	stats       repository.StatsRepository
	generator   Generator
	uploadDir   string
	clock       func() time.Time
	logger      *slog.Logger
}

// Options tunes a Service. A nil Generator disables automatic generation.
type Options struct {
	Generator Generator
	UploadDir string
	Clock     func() time.Time
}

// NewService creates a new infraction service.
func NewService(infractions repository.InfractionRepository, stats repository.StatsRepository, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Service{
		infractions: infractions,
		stats:       stats,
		generator:   opts.Generator,
		uploadDir:   opts.UploadDir,
		clock:       opts.Clock,
		logger:      logger,
	}
}

// CreateResult is the outcome of Create. A failed document generation only
// shows up in Warnings.
type CreateResult struct {
	Infraction   *entity.Infraction   `json:"infraction"`
	Notification *entity.Notification `json:"notification,omitempty"`
	DocumentPath string               `json:"document_path,omitempty"`
	Warnings     []string             `json:"warnings,omitempty"`
}

func normalizeCreate(req entity.CreateInfractionRequest) entity.CreateInfractionRequest {
	req.Series = strings.ToUpper(strings.TrimSpace(req.Series))
	if req.Series == "" {
		req.Series = constants.SeriesCamera
	}
	req.Domain = strings.ToUpper(strings.TrimSpace(req.Domain))
	req.Type = strings.TrimSpace(req.Type)
	if req.Type == "" {
		req.Type = constants.DefaultInfractionType
	}
	if req.Series == constants.SeriesInPerson {
		// In-person acts are handed to the driver on the spot.
		req.Status = constants.StatusNotified
		req.Notified = true
		if req.NotifiedAt == nil && !req.IssuedAt.IsZero() {
			at := req.IssuedAt
			req.NotifiedAt = &at
		}
	}
	if req.Status == "" {
		req.Status = constants.StatusValidated
	}
	return req
}

func validateCreate(req entity.CreateInfractionRequest) error {
	v := common.NewValidator()
	v.Field("series", req.Series, common.Required, common.MaxLength(4))
	v.Field("domain", req.Domain, common.Required, common.MaxLength(16))
	v.Field("issued_at", req.IssuedAt, common.Required)
	v.Field("measured_speed", req.MeasuredSpeed, common.NonNegative)
	v.Field("authorized_speed", req.AuthorizedSpeed, common.NonNegative)
	return v.Err()
}

// Create stores a new act under the next number of its series and then
// tries to generate its document.
func (s *Service) Create(ctx context.Context, req entity.CreateInfractionRequest) (*CreateResult, error) {
	logger := common.LoggerFromContext(ctx, s.logger)
	req = normalizeCreate(req)
	if err := validateCreate(req); err != nil {
		logger.Warn("infraction.create.invalid", "domain", req.Domain, "error", err)
		return nil, err
	}

	inf, err := s.infractions.CreateNumbered(ctx, repository.NewInfraction{
		Series:          req.Series,
		Domain:          req.Domain,
		Type:            req.Type,
		MeasuredSpeed:   req.MeasuredSpeed,
		AuthorizedSpeed: req.AuthorizedSpeed,
		Location:        strings.TrimSpace(req.Location),
		Artery:          strings.TrimSpace(req.Artery),
		Lat:             req.Lat,
		Lng:             req.Lng,
		PhotoRef:        req.PhotoRef,
		CameraSerial:    strings.TrimSpace(req.CameraSerial),
		Vehicle:         req.Vehicle,
		Driver:          req.Driver,
		Owner:           req.Owner,
		Notes:           req.Notes,
		Status:          req.Status,
		Notified:        req.Notified,
		LoggedAt:        s.clock(),
		IssuedAt:        req.IssuedAt,
		NotifiedAt:      req.NotifiedAt,
	})
	if err != nil {
		logger.Error("infraction.create.failed", "series", req.Series, "domain", req.Domain, "error", err)
		return nil, err
	}
	logger.Info("infraction.create.ok", "infraction_id", inf.ID, "act_number", inf.ActNumber())

	res := &CreateResult{Infraction: inf}
	if s.generator == nil {
		return res, nil
	}
	gen, err := s.generator.Generate(ctx, inf.ID)
	if err != nil {
		logger.Warn("infraction.create.generate_failed", "infraction_id", inf.ID, "act_number", inf.ActNumber(), "error", err)
		res.Warnings = append(res.Warnings, fmt.Sprintf("document not generated: %v", err))
		return res, nil
	}
	res.Notification = gen.Notification
	res.DocumentPath = gen.Path
	res.Warnings = append(res.Warnings, gen.Warnings...)
	return res, nil
}

// CreateFromJSON validates raw against CreateRequestSchema and creates the act.
func (s *Service) CreateFromJSON(ctx context.Context, raw []byte) (*CreateResult, error) {
	if err := common.ValidateJSONAgainstSchema(CreateRequestSchema(), raw); err != nil {
		return nil, err
	}
	var req entity.CreateInfractionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("%w: decode request: %v", common.ErrInvalidInput, err)
	}
	return s.Create(ctx, req)
}

func (s *Service) Get(ctx context.Context, id int64) (*entity.Infraction, error) {
	return s.infractions.Get(ctx, id)
}

// List returns acts matching filter, newest first.
func (s *Service) List(ctx context.Context, filter entity.InfractionFilter) ([]*entity.Infraction, error) {
	filter.Domain = strings.ToUpper(strings.TrimSpace(filter.Domain))
	filter.ActNumber = strings.ToUpper(strings.TrimSpace(filter.ActNumber))
	filter.Series = strings.ToUpper(strings.TrimSpace(filter.Series))
	if filter.Limit < 0 {
		return nil, common.NewAppError("VALIDATION_ERROR", "limit must not be negative", common.ErrInvalidInput)
	}
	return s.infractions.List(ctx, filter)
}

// Patch applies a partial update. An empty patch returns the act unchanged.
func (s *Service) Patch(ctx context.Context, id int64, patch entity.InfractionPatch) (*entity.Infraction, error) {
	v := common.NewValidator()
	v.Field("measured_speed", patch.MeasuredSpeed, common.NonNegative)
	v.Field("authorized_speed", patch.AuthorizedSpeed, common.NonNegative)
	if patch.Status != nil {
		v.Field("status", string(*patch.Status), common.Required, common.MaxLength(32))
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	inf, err := s.infractions.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	common.LoggerFromContext(ctx, s.logger).Info("infraction.patch.ok", "infraction_id", id, "act_number", inf.ActNumber())
	return inf, nil
}

// Stats summarizes the register as of now.
func (s *Service) Stats(ctx context.Context) (*repository.Summary, error) {
	return s.stats.Summary(ctx, s.clock())
}

// PrefillFile references an uploaded file used for a prefill.
type PrefillFile struct {
	Kind string `json:"kind"`
	Ref  string `json:"ref"`
}

// PrefillResult carries the fields read from a camera export.
type PrefillResult struct {
	Fields entity.CameraExtraction `json:"fields"`
	Files  []PrefillFile           `json:"files"`
}

// Prefill reads the camera text export at txtPath and returns the fields it
// names. An unreadable export yields empty fields. Relative paths resolve
// under the upload directory.
func (s *Service) Prefill(ctx context.Context, txtPath, photoRef string) (*PrefillResult, error) {
	if strings.TrimSpace(txtPath) == "" && strings.TrimSpace(photoRef) == "" {
		return nil, common.NewAppError("VALIDATION_ERROR", "a text export or a photo is required", common.ErrInvalidInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &PrefillResult{Files: []PrefillFile{}}
	if photoRef != "" {
		res.Files = append(res.Files, PrefillFile{Kind: "image", Ref: photoRef})
	}
	if txtPath != "" {
		res.Files = append(res.Files, PrefillFile{Kind: "text", Ref: txtPath})
		path := txtPath
		if !filepath.IsAbs(path) && s.uploadDir != "" {
			path = filepath.Join(s.uploadDir, path)
		}
		fields, err := extract.ExtractFile(path)
		if err != nil {
			common.LoggerFromContext(ctx, s.logger).Warn("infraction.prefill.unreadable", "path", path, "error", err)
		} else {
			res.Fields = fields
		}
	}
	return res, nil
}
