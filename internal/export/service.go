package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
	"github.com/joseph-ayodele/seguridadvial/internal/repository"
)

// SheetName is the worksheet holding the register.
const SheetName = "Infracciones"

var headers = []string{
	"Acta",
	"Dominio",
	"Fecha",
	"Hora",
	"Ubicación",
	"Velocidad medida",
	"Velocidad autorizada",
	"Estado",
	"Notificado",
	"Fecha notificación",
	"Documento",
}

// Service is a thin façade over repositories that produces XLSX bytes for exports.
type Service struct {
	infractions   repository.InfractionRepository
	notifications repository.NotificationRepository
	logger        *slog.Logger
}

func NewService(infractions repository.InfractionRepository, notifications repository.NotificationRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{infractions: infractions, notifications: notifications, logger: logger}
}

// ExportInfractionsXLSX returns the acts matching filter as an XLSX workbook.
// Dates and times are those of the issued instant in UTC.
func (s *Service) ExportInfractionsXLSX(ctx context.Context, filter entity.InfractionFilter) ([]byte, error) {
	start := time.Now()

	recs, err := s.infractions.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query infractions: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("xlsx close failed", "error", err)
		}
	}()
	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(SheetName, cell, h)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	row := 2
	for _, r := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(SheetName, cell, v)
		}

		docPath := ""
		if n, err := s.notifications.GetByInfraction(ctx, r.ID); err == nil {
			docPath = n.DocumentPath
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("notification for %s: %w", r.ActNumber(), err)
		}

		issued := r.IssuedAt.UTC()
		write(1, r.ActNumber())
		write(2, r.Domain)
		write(3, issued.Format("02/01/2006"))
		write(4, issued.Format("15:04"))
		write(5, r.Location)
		write(6, r.MeasuredSpeed)
		write(7, r.AuthorizedSpeed)
		write(8, string(r.Status))
		if r.Notified {
			write(9, "Sí")
		} else {
			write(9, "No")
		}
		if r.NotifiedAt != nil {
			write(10, r.NotifiedAt.UTC().Format("02/01/2006"))
		} else {
			write(10, "")
		}
		write(11, docPath)
		row++
	}

	_ = f.SetColWidth(SheetName, "A", "A", 14) // act
	_ = f.SetColWidth(SheetName, "B", "B", 12) // plate
	_ = f.SetColWidth(SheetName, "C", "D", 12) // date, time
	_ = f.SetColWidth(SheetName, "E", "E", 32) // location
	_ = f.SetColWidth(SheetName, "F", "G", 10) // speeds
	_ = f.SetColWidth(SheetName, "H", "J", 14)
	_ = f.SetColWidth(SheetName, "K", "K", 60) // path

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}
