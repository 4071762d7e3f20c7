package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// PrefillSuffix is appended to the export stem for the prefill document.
const PrefillSuffix = ".prefill.json"

// Prefill is the document written to the outbox for each camera export.
type Prefill struct {
	TraceID     string    `json:"trace_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Capture
}

// Usecase turns watcher events into prefill documents.
type Usecase struct {
	Ingestor  Ingestor
	OutboxDir string
	Clock     func() time.Time
	logger    *slog.Logger

	mu   sync.Mutex
	seen map[string]string // text path -> content hash last written
}

func NewUsecase(ing Ingestor, outboxDir string, logger *slog.Logger) *Usecase {
	if logger == nil {
		logger = slog.Default()
	}
	return &Usecase{
		Ingestor:  ing,
		OutboxDir: outboxDir,
		Clock:     time.Now,
		logger:    logger,
		seen:      map[string]string{},
	}
}

// PrefillPath returns where the prefill of a text export is written.
func (u *Usecase) PrefillPath(textPath string) string {
	return filepath.Join(u.OutboxDir, Stem(textPath)+PrefillSuffix)
}

// HandlePath processes one watcher event. A photo event re-processes its
// text export so the prefill picks up the pairing. The returned path is
// empty when nothing was written.
func (u *Usecase) HandlePath(ctx context.Context, path string) (string, error) {
	textPath := path
	if IsPhoto(path) {
		textPath = findTextExport(path)
		if textPath == "" {
			return "", nil
		}
	}
	if !IsTextExport(textPath) {
		return "", nil
	}

	c, err := u.Ingestor.IngestPath(ctx, textPath)
	if err != nil {
		return "", err
	}
	key := c.HashHex + "|" + c.PhotoPath
	u.mu.Lock()
	if u.seen[c.TextPath] == key {
		u.mu.Unlock()
		return "", nil
	}
	u.mu.Unlock()

	out, err := u.WritePrefill(c)
	if err != nil {
		return "", err
	}
	u.mu.Lock()
	u.seen[c.TextPath] = key
	u.mu.Unlock()
	return out, nil
}

// WritePrefill stores the capture as <stem>.prefill.json in the outbox.
func (u *Usecase) WritePrefill(c Capture) (string, error) {
	if err := os.MkdirAll(u.OutboxDir, 0o755); err != nil {
		return "", fmt.Errorf("create outbox: %w", err)
	}
	doc := Prefill{TraceID: uuid.NewString(), GeneratedAt: u.Clock().UTC(), Capture: c}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode prefill: %w", err)
	}
	path := u.PrefillPath(c.TextPath)
	tmp, err := os.CreateTemp(u.OutboxDir, ".prefill-*")
	if err != nil {
		return "", fmt.Errorf("create temp prefill: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write prefill: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close prefill: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("chmod prefill: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("store prefill: %w", err)
	}
	u.logger.Info("ingest.prefill.ok", "trace_id", doc.TraceID, "text", c.TextPath, "photo", c.PhotoPath, "out", path)
	return path, nil
}

// Run consumes watcher events until ctx is done or events closes.
func (u *Usecase) Run(ctx context.Context, events <-chan string, errs <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case p, ok := <-events:
			if !ok {
				return
			}
			if _, err := u.HandlePath(ctx, p); err != nil {
				u.logger.Warn("ingest.prefill.failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			u.logger.Warn("ingest.watch.error", "error", err)
		}
	}
}
