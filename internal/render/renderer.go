// Package render draws act documents onto PDF or PNG templates.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/seguridadvial/constants"
)

// Template is a document background loaded from disk.
type Template struct {
	Path string
	Data []byte
}

// LoadTemplate reads a template. A missing file is not an error: it returns
// nil, nil and the renderer decides how to degrade.
func LoadTemplate(path string) (*Template, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", path, err)
	}
	return &Template{Path: path, Data: b}, nil
}

// Result is a rendered document. Warnings list what was skipped or
// substituted while still producing output.
type Result struct {
	Kind     constants.DocumentKind
	Bytes    []byte
	Warnings []string
}

func (r *Result) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Renderer produces one document kind from resolved fields.
type Renderer interface {
	Kind() constants.DocumentKind
	Layout() *Layout
	Render(ctx context.Context, fields Fields, tpl *Template) (*Result, error)
}

// New returns the renderer for kind.
func New(kind constants.DocumentKind, layout *Layout, dpi float64, logger *slog.Logger) (Renderer, error) {
	switch kind {
	case constants.DocumentPDF:
		return NewPDFRenderer(layout, logger), nil
	case constants.DocumentPNG:
		return NewPNGRenderer(layout, dpi, logger), nil
	}
	return nil, fmt.Errorf("unknown document kind %q", kind)
}
