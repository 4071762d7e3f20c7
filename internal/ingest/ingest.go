// Package ingest picks up camera exports (a text file plus an optional photo
// with the same stem) from an inbox directory and turns them into prefill
// documents.
package ingest

import (
	"context"

	"github.com/joseph-ayodele/seguridadvial/internal/entity"
)

// Capture is the per-export ingest outcome.
type Capture struct {
	Stem      string                  `json:"stem"`
	TextPath  string                  `json:"text_path"`
	PhotoPath string                  `json:"photo_path,omitempty"`
	HashHex   string                  `json:"sha256"`
	Fields    entity.CameraExtraction `json:"fields"`
	Err       string                  `json:"error,omitempty"`
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned   uint32
	Matched   uint32
	Succeeded uint32
	Paired    uint32
	Failed    uint32
}

// Ingestor is the behavior the daemon and CLI depend on.
type Ingestor interface {
	// IngestPath reads a single text export and looks up its photo.
	IngestPath(ctx context.Context, path string) (Capture, error)
	// ScanDirectory ingests every text export under root.
	ScanDirectory(ctx context.Context, root string, skipHidden bool) ([]Capture, DirStats, error)
}
