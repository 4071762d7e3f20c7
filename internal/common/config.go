package common

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/seguridadvial/constants"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Storage   StorageConfig
	Documents DocumentsConfig
	Mail      MailConfig
	Ingest    IngestConfig
	Render    RenderConfig
	LogLevel  string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr       string
	HealthInterval time.Duration
}

// StorageConfig holds the on-disk locations used by the service
type StorageConfig struct {
	DataDir     string
	PDFDir      string
	UploadDir   string
	TemplateDir string
}

// DocumentConfig selects how one series' notification documents are produced.
type DocumentConfig struct {
	Prefix   string
	Kind     constants.DocumentKind
	Template string
	Layout   string
}

// DocumentsConfig maps act series to document settings.
type DocumentsConfig struct {
	Camera   DocumentConfig
	InPerson DocumentConfig
}

// ForSeries returns the document settings of a series. Unknown series use
// the camera settings.
func (d DocumentsConfig) ForSeries(series string) DocumentConfig {
	if series == constants.SeriesInPerson {
		return d.InPerson
	}
	return d.Camera
}

// MailConfig holds SMTP delivery configuration
type MailConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Secure   bool
	From     string
	Timeout  time.Duration
}

// Enabled reports whether outbound mail is configured.
func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

// IngestConfig holds camera inbox configuration
type IngestConfig struct {
	InboxDir  string
	OutboxDir string
	Debounce  time.Duration
	Workers   int
}

// RenderConfig holds document rendering configuration
type RenderConfig struct {
	DPI         float64
	CameraMake  string
	CameraModel string
	DebugGrid   bool
	JobTimeout  time.Duration
	// SweepInterval is how often the daemon queues acts without a document; 0 disables it.
	SweepInterval time.Duration
	Workers       int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	dataDir := getEnv("DATA_DIR", "./data")
	templateDir := getEnv("TEMPLATE_DIR", filepath.Join(dataDir, "templates"))
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:       getEnv("GRPC_ADDR", ":8080"),
			HealthInterval: getEnvAsDuration("HEALTH_INTERVAL", 15*time.Second),
		},
		Storage: StorageConfig{
			DataDir:     dataDir,
			PDFDir:      getEnv("PDF_DIR", filepath.Join(dataDir, "pdfs")),
			UploadDir:   getEnv("UPLOAD_DIR", filepath.Join(dataDir, "uploads")),
			TemplateDir: templateDir,
		},
		Documents: DocumentsConfig{
			Camera: DocumentConfig{
				Prefix:   getEnv("NOTIF_PREFIX", constants.PrefixCamera),
				Kind:     getEnvAsDocumentKind("NOTIF_KIND", constants.DocumentPDF),
				Template: getEnv("NOTIF_TEMPLATE", filepath.Join(templateDir, "notificacion.pdf")),
				Layout:   getEnv("NOTIF_LAYOUT_FILE", ""),
			},
			InPerson: DocumentConfig{
				Prefix:   getEnv("PRES_PREFIX", constants.PrefixInPerson),
				Kind:     getEnvAsDocumentKind("PRES_KIND", constants.DocumentPNG),
				Template: getEnv("PRES_TEMPLATE", filepath.Join(templateDir, "acta_presencial.png")),
				Layout:   getEnv("PRES_LAYOUT_FILE", ""),
			},
		},
		Mail: MailConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			User:     getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASS", ""),
			Secure:   getEnvAsBool("SMTP_SECURE", false),
			From:     getEnv("MAIL_FROM", "no-reply@seguridadvial.local"),
			Timeout:  getEnvAsDuration("SMTP_TIMEOUT", 30*time.Second),
		},
		Ingest: IngestConfig{
			InboxDir:  getEnv("CAMERA_INBOX_DIR", filepath.Join(dataDir, "inbox")),
			OutboxDir: getEnv("CAMERA_OUTBOX_DIR", filepath.Join(dataDir, "outbox")),
			Debounce:  getEnvAsDuration("INGEST_DEBOUNCE", 500*time.Millisecond),
			Workers:   getEnvAsInt("INGEST_WORKERS", 2),
		},
		Render: RenderConfig{
			DPI:           getEnvAsFloat64("RASTER_DPI", 203),
			CameraMake:    getEnv("CAM_MARCA_CONST", "TRUCAM II"),
			CameraModel:   getEnv("CAM_MODELO_CONST", "LTI 20/20"),
			DebugGrid:     getEnvAsBool("RENDER_DEBUG_GRID", false),
			JobTimeout:    getEnvAsDuration("RENDER_JOB_TIMEOUT", 60*time.Second),
			SweepInterval: getEnvAsDuration("RENDER_SWEEP_INTERVAL", 5*time.Minute),
			Workers:       getEnvAsInt("RENDER_WORKERS", 4),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsDocumentKind(key string, defaultValue constants.DocumentKind) constants.DocumentKind {
	if value := os.Getenv(key); value != "" {
		if kind, ok := constants.ParseDocumentKind(value); ok {
			return kind
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Storage.PDFDir == "" {
		return NewAppError("CONFIG_ERROR", "PDF_DIR is required", ErrInvalidInput)
	}
	if c.Render.DPI <= 0 {
		return NewAppError("CONFIG_ERROR", "RASTER_DPI must be positive", ErrInvalidInput)
	}
	if c.Mail.Enabled() && c.Mail.From == "" {
		return NewAppError("CONFIG_ERROR", "MAIL_FROM is required when SMTP_HOST is set", ErrInvalidInput)
	}
	return nil
}
