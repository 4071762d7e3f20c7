package export

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
	"github.com/joseph-ayodele/seguridadvial/internal/repository"
)

func TestExportInfractionsXLSX(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.Open(ctx, repository.Config{DSN: "sqlite://" + filepath.Join(t.TempDir(), "actas.db")}, logger)
	require.NoError(t, err)
	defer repository.Close(db, logger)
	require.NoError(t, repository.EnsureSchema(ctx, db))

	infractions := repository.NewInfractionRepository(db, nil, logger)
	notifications := repository.NewNotificationRepository(db, logger)

	issued := time.Date(2025, 6, 12, 10, 55, 16, 0, time.UTC)
	first, err := infractions.CreateNumbered(ctx, repository.NewInfraction{
		Series: "A", Domain: "AB123CD", Type: constants.DefaultInfractionType,
		MeasuredSpeed: 35, AuthorizedSpeed: 30, Location: "AYACUCHO",
		Status: constants.StatusValidated, LoggedAt: issued, IssuedAt: issued,
	})
	require.NoError(t, err)
	_, err = infractions.CreateNumbered(ctx, repository.NewInfraction{
		Series: "A", Domain: "AC987ZZ", Type: constants.DefaultInfractionType,
		MeasuredSpeed: 50, AuthorizedSpeed: 40,
		Status: constants.StatusValidated, LoggedAt: issued, IssuedAt: issued.Add(-24 * time.Hour),
	})
	require.NoError(t, err)
	_, err = notifications.UpsertGenerated(ctx, first.ID, "/data/pdfs/ACTA-A-0000001.pdf", issued)
	require.NoError(t, err)

	svc := NewService(infractions, notifications, logger)
	b, err := svc.ExportInfractionsXLSX(ctx, entity.InfractionFilter{})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, headers, rows[0])
	assert.Equal(t, []string{"A-0000001", "AB123CD", "12/06/2025", "10:55", "AYACUCHO", "35", "30", "validada", "No", "", "/data/pdfs/ACTA-A-0000001.pdf"}, rows[1])
	assert.Equal(t, "A-0000002", rows[2][0])
	assert.Equal(t, "11/06/2025", rows[2][2])

	b, err = svc.ExportInfractionsXLSX(ctx, entity.InfractionFilter{Domain: "AC987ZZ"})
	require.NoError(t, err)
	f2, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f2.Close()
	rows, err = f2.GetRows(SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
