package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/extract"
)

// FSIngestor reads camera exports from the local filesystem.
type FSIngestor struct {
	logger *slog.Logger
}

func NewFSIngestor(logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{logger: logger}
}

func (i *FSIngestor) IngestPath(ctx context.Context, path string) (Capture, error) {
	var out Capture
	if err := ctx.Err(); err != nil {
		return out, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		i.logger.Error("abs path error", "path", path, "error", err)
		return out, err
	}
	if !IsTextExport(abs) {
		return out, fmt.Errorf("%w: not a camera text export: %s", common.ErrInvalidInput, filepath.Base(abs))
	}

	f, err := os.Open(abs)
	if err != nil {
		i.logger.Error("open error", "path", abs, "error", err)
		return out, err
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			i.logger.Warn("close file error", "path", abs, "error", err)
		}
	}(f)

	h := sha256.New()
	var sb strings.Builder
	if _, err := io.Copy(io.MultiWriter(h, &sb), f); err != nil {
		i.logger.Error("read error", "path", abs, "error", err)
		return out, err
	}

	out = Capture{
		Stem:      Stem(abs),
		TextPath:  abs,
		PhotoPath: findPhoto(abs),
		HashHex:   hex.EncodeToString(h.Sum(nil)),
		Fields:    extract.Extract(sb.String()),
	}
	i.logger.Debug("camera export ingested", "path", abs, "photo", out.PhotoPath, "empty", out.Fields.IsEmpty())
	return out, nil
}

// ScanDirectory walks root, skips hidden entries if requested, and ingests
// every text export found. Per-file failures are reported in the results.
func (i *FSIngestor) ScanDirectory(ctx context.Context, root string, skipHidden bool) ([]Capture, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}

	var results []Capture
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, Capture{TextPath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !IsTextExport(path) {
			return nil
		}
		stats.Matched++

		c, err := i.IngestPath(ctx, path)
		if err != nil {
			results = append(results, Capture{TextPath: path, Err: err.Error()})
			stats.Failed++
			return nil
		}
		results = append(results, c)
		stats.Succeeded++
		if c.PhotoPath != "" {
			stats.Paired++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("camera inbox scanned", "root", root, "matched", stats.Matched, "paired", stats.Paired, "failed", stats.Failed)
	return results, stats, nil
}
