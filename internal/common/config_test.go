package common

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/seguridadvial/constants"
)

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", dir)
	t.Setenv("DB_URL", "")

	cfg := LoadConfig()

	assert.Equal(t, filepath.Join(dir, "pdfs"), cfg.Storage.PDFDir)
	assert.Equal(t, filepath.Join(dir, "templates", "notificacion.pdf"), cfg.Documents.Camera.Template)
	assert.Equal(t, constants.DocumentPDF, cfg.Documents.Camera.Kind)
	assert.Equal(t, constants.DocumentPNG, cfg.Documents.InPerson.Kind)
	assert.Equal(t, 203.0, cfg.Render.DPI)
	assert.Equal(t, 5*time.Minute, cfg.Render.SweepInterval)
	assert.False(t, cfg.Mail.Enabled())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("DB_URL", "sqlite://actas.db")
	t.Setenv("NOTIF_KIND", "PNG")
	t.Setenv("PRES_KIND", "gif")
	t.Setenv("SMTP_HOST", "smtp.example.org")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_SECURE", "true")
	t.Setenv("RENDER_SWEEP_INTERVAL", "0s")
	t.Setenv("DB_MAX_CONNS", "not-a-number")

	cfg := LoadConfig()

	assert.Equal(t, "sqlite://actas.db", cfg.Database.DSN)
	assert.Equal(t, constants.DocumentPNG, cfg.Documents.Camera.Kind)
	// unknown kinds keep the default
	assert.Equal(t, constants.DocumentPNG, cfg.Documents.InPerson.Kind)
	assert.True(t, cfg.Mail.Enabled())
	assert.Equal(t, 465, cfg.Mail.Port)
	assert.True(t, cfg.Mail.Secure)
	assert.Zero(t, cfg.Render.SweepInterval)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{DSN: "sqlite://x.db"},
			Storage:  StorageConfig{PDFDir: "pdfs"},
			Render:   RenderConfig{DPI: 203},
			Mail:     MailConfig{From: "a@b.c"},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing dsn", func(c *Config) { c.Database.DSN = "" }},
		{"missing pdf dir", func(c *Config) { c.Storage.PDFDir = "" }},
		{"zero dpi", func(c *Config) { c.Render.DPI = 0 }},
		{"smtp without sender", func(c *Config) { c.Mail.Host = "smtp"; c.Mail.From = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidInput))
		})
	}
}

func TestDocumentsConfig_ForSeries(t *testing.T) {
	d := DocumentsConfig{
		Camera:   DocumentConfig{Prefix: "NOTIF-"},
		InPerson: DocumentConfig{Prefix: "PRES-"},
	}
	assert.Equal(t, "PRES-", d.ForSeries(constants.SeriesInPerson).Prefix)
	assert.Equal(t, "NOTIF-", d.ForSeries(constants.SeriesCamera).Prefix)
	assert.Equal(t, "NOTIF-", d.ForSeries("Z").Prefix)
}
