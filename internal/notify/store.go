package notify

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/seguridadvial/constants"
)

// DocumentStore writes rendered documents under a single directory using
// deterministic names, so regenerating an act overwrites its file.
type DocumentStore struct {
	Dir string
}

func NewDocumentStore(dir string) *DocumentStore {
	return &DocumentStore{Dir: dir}
}

// Path returns where the document of an act is stored.
func (s *DocumentStore) Path(prefix, actNumber string, kind constants.DocumentKind) string {
	return filepath.Join(s.Dir, constants.DocumentFilename(prefix, actNumber, kind))
}

// Write stores data and returns its path. The file is replaced atomically.
func (s *DocumentStore) Write(prefix, actNumber string, kind constants.DocumentKind, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}
	path := s.Path(prefix, actNumber, kind)
	tmp, err := os.CreateTemp(s.Dir, ".doc-*")
	if err != nil {
		return "", fmt.Errorf("create temp document: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close document: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("chmod document: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("store document: %w", err)
	}
	return path, nil
}
