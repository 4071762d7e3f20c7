package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/async"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
)

func testConfig(t *testing.T) *common.Config {
	t.Helper()
	dir := t.TempDir()
	return &common.Config{
		Database: common.DatabaseConfig{DSN: "sqlite://" + filepath.Join(dir, "actas.db")},
		Storage: common.StorageConfig{
			DataDir:   dir,
			PDFDir:    filepath.Join(dir, "pdfs"),
			UploadDir: filepath.Join(dir, "uploads"),
		},
		Documents: common.DocumentsConfig{
			Camera:   common.DocumentConfig{Prefix: constants.PrefixCamera, Kind: constants.DocumentPDF, Template: filepath.Join(dir, "none.pdf")},
			InPerson: common.DocumentConfig{Prefix: constants.PrefixInPerson, Kind: constants.DocumentPNG, Template: filepath.Join(dir, "none.png")},
		},
		Render: common.RenderConfig{DPI: 203, CameraMake: "TRUCAM II", CameraModel: "LTI 20/20", JobTimeout: 10 * time.Second},
	}
}

func TestNew_CreateGeneratesCameraDocument(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, NewLogger(io.Discard, "debug", false))
	require.NoError(t, err)
	defer a.Close()

	res, err := a.Acts.Create(context.Background(), entity.CreateInfractionRequest{
		Domain:          "AB123CD",
		IssuedAt:        time.Date(2025, 6, 12, 10, 55, 16, 0, time.UTC),
		MeasuredSpeed:   35,
		AuthorizedSpeed: 30,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Notification)
	assert.Equal(t, filepath.Join(cfg.Storage.PDFDir, "ACTA-A-0000001.pdf"), res.DocumentPath)
	assert.FileExists(t, res.DocumentPath)
	assert.NotEmpty(t, res.Warnings)

	// Raster track without a template still creates the act.
	res, err = a.Acts.Create(context.Background(), entity.CreateInfractionRequest{
		Series:   constants.SeriesInPerson,
		Domain:   "AC987ZZ",
		IssuedAt: time.Date(2025, 6, 12, 11, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "P-0000001", res.Infraction.ActNumber())
	assert.Nil(t, res.Notification)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "template unavailable")
}

func TestDocuments_PerSeries(t *testing.T) {
	cfg := testConfig(t)
	cfg.Documents.InPerson.Kind = constants.DocumentPDF

	docs, def, err := Documents(cfg, NewLogger(io.Discard, "error", false))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, constants.PrefixCamera, def.Prefix)
	assert.Equal(t, constants.DocumentPDF, docs[constants.SeriesCamera].Renderer.Kind())

	pres := docs[constants.SeriesInPerson]
	assert.Equal(t, constants.PrefixInPerson, pres.Prefix)
	assert.Equal(t, cfg.Documents.InPerson.Template, pres.TemplatePath)
	assert.Equal(t, constants.DocumentPDF, pres.Renderer.Kind())
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.DSN = ""
	_, err := New(context.Background(), cfg, nil)
	assert.True(t, errors.Is(err, common.ErrInvalidInput))

	cfg = testConfig(t)
	cfg.Documents.Camera.Kind = "tiff"
	_, err = New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRenderQueue_RegeneratesDocuments(t *testing.T) {
	cfg := testConfig(t)
	a, err := New(context.Background(), cfg, NewLogger(io.Discard, "info", true))
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	var ids []int64
	for _, plate := range []string{"AA111AA", "BB222BB", "CC333CC"} {
		inf, err := a.Infractions.CreateNumbered(ctx, newInfraction(plate))
		require.NoError(t, err)
		ids = append(ids, inf.ID)
	}

	var mu sync.Mutex
	var paths []string
	q := a.RenderQueue(2, async.WithResultHandler(func(r async.JobResult) {
		mu.Lock()
		defer mu.Unlock()
		if r.Err == nil {
			paths = append(paths, r.Path)
		}
	}))
	for _, id := range ids {
		require.NoError(t, q.Enqueue(ctx, async.Job{InfractionID: id}))
	}
	q.Shutdown(ctx)

	assert.Len(t, paths, 3)
	for _, p := range paths {
		b, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
	}
}

func TestNewLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&buf, "warn", false)
	l.Info("hidden")
	l.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
