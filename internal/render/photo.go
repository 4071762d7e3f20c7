package render

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

type photo struct {
	data   []byte
	format string
	width  int
	height int
}

// loadPhoto reads an image and its dimensions without decoding pixels.
func loadPhoto(path string) (*photo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read photo: %w", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("decode photo %s: %w", path, err)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("photo %s has no pixels", path)
	}
	return &photo{data: b, format: format, width: cfg.Width, height: cfg.Height}, nil
}

func (p *photo) decode() (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(p.data))
	if err != nil {
		return nil, fmt.Errorf("decode photo: %w", err)
	}
	return img, nil
}
