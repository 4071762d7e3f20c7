package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
)

var debugColor = color.RGBA{R: 255, A: 255}

// PNGRenderer composites text and the photo onto a raster template at a
// fixed DPI. It has no blank fallback: the output must line up with a
// pre-printed ticket.
type PNGRenderer struct {
	layout *Layout
	dpi    float64
	logger *slog.Logger

	// Parsed fonts are read-only and shared; faces hold glyph buffers and
	// belong to a single Render call.
	once    sync.Once
	fontErr error
	regular *opentype.Font
	bold    *opentype.Font
}

type faceKey struct {
	size float64
	bold bool
}

func NewPNGRenderer(layout *Layout, dpi float64, logger *slog.Logger) *PNGRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	if layout == nil {
		layout = TicketLayout()
	}
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &PNGRenderer{layout: layout, dpi: dpi, logger: logger}
}

func (r *PNGRenderer) Kind() constants.DocumentKind { return constants.DocumentPNG }

func (r *PNGRenderer) Layout() *Layout { return r.layout }

func (r *PNGRenderer) loadFonts() error {
	r.once.Do(func() {
		if r.regular, r.fontErr = opentype.Parse(goregular.TTF); r.fontErr != nil {
			return
		}
		r.bold, r.fontErr = opentype.Parse(gobold.TTF)
	})
	if r.fontErr != nil {
		return fmt.Errorf("parse font: %w", r.fontErr)
	}
	return nil
}

// faceSet caches the faces of one Render call.
type faceSet struct {
	r     *PNGRenderer
	faces map[faceKey]font.Face
}

func (s *faceSet) get(size float64, bold bool) (font.Face, error) {
	k := faceKey{size: size, bold: bold}
	if f, ok := s.faces[k]; ok {
		return f, nil
	}
	src := s.r.regular
	if bold {
		src = s.r.bold
	}
	f, err := opentype.NewFace(src, &opentype.FaceOptions{Size: size, DPI: s.r.dpi, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	s.faces[k] = f
	return f, nil
}

func (s *faceSet) close() {
	for _, f := range s.faces {
		_ = f.Close()
	}
}

func (r *PNGRenderer) px(mm float64) int {
	return int(math.Round(MMToPixels(mm, r.dpi)))
}

func (r *PNGRenderer) Render(ctx context.Context, fields Fields, tpl *Template) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, fmt.Errorf("png template: %w", common.ErrTemplateUnavailable)
	}
	bg, err := png.Decode(bytes.NewReader(tpl.Data))
	if err != nil {
		return nil, fmt.Errorf("decode png template %s: %v: %w", tpl.Path, err, common.ErrTemplateUnavailable)
	}

	if err := r.loadFonts(); err != nil {
		return nil, err
	}
	faces := &faceSet{r: r, faces: make(map[faceKey]font.Face)}
	defer faces.close()

	res := &Result{Kind: constants.DocumentPNG}
	canvas := image.NewRGBA(bg.Bounds())
	draw.Draw(canvas, canvas.Bounds(), bg, bg.Bounds().Min, draw.Src)

	for _, p := range r.layout.Fields {
		text := fields.Get(p.Key)
		if text == "" {
			continue
		}
		face, err := faces.get(p.Size, p.Bold)
		if err != nil {
			return nil, err
		}
		if missing, ok := r.firstMissingGlyph(p.Bold, text); !ok {
			res.warn("field %s skipped: no glyph for %q", p.Key, missing)
			r.logger.Warn("render.field.skipped", "field", p.Key, "act_number", fields.ActNumber, "rune", string(missing))
			continue
		}
		d := font.Drawer{
			Dst:  canvas,
			Src:  image.Black,
			Face: face,
			Dot:  fixed.P(canvas.Bounds().Min.X+r.px(p.X), canvas.Bounds().Min.Y+r.px(p.Y)),
		}
		d.DrawString(text)
	}

	r.drawPhoto(canvas, fields, res)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	res.Bytes = buf.Bytes()
	return res, nil
}

// firstMissingGlyph reports the first rune the font would draw as .notdef.
func (r *PNGRenderer) firstMissingGlyph(bold bool, text string) (rune, bool) {
	src := r.regular
	if bold {
		src = r.bold
	}
	var buf sfnt.Buffer
	for _, c := range text {
		if c == ' ' {
			continue
		}
		if idx, err := src.GlyphIndex(&buf, c); err != nil || idx == 0 {
			return c, false
		}
	}
	return 0, true
}

func (r *PNGRenderer) drawPhoto(canvas *image.RGBA, fields Fields, res *Result) {
	box := r.layout.Photo
	if !box.Enabled() {
		return
	}
	min := canvas.Bounds().Min
	pxBox := Box{
		X: float64(min.X + r.px(box.X)),
		Y: float64(min.Y + r.px(box.Y)),
		W: float64(r.px(box.W)),
		H: float64(r.px(box.H)),
	}
	if r.layout.DebugGrid {
		outline(canvas, rect(pxBox), debugColor)
		return
	}
	if fields.PhotoPath == "" {
		return
	}

	ph, err := loadPhoto(fields.PhotoPath)
	if err != nil {
		res.warn("photo skipped: %v", err)
		r.logger.Warn("render.photo.skipped", "act_number", fields.ActNumber, "error", err)
		return
	}
	img, err := ph.decode()
	if err != nil {
		res.warn("photo skipped: %v", err)
		r.logger.Warn("render.photo.skipped", "act_number", fields.ActNumber, "error", err)
		return
	}
	x, y, w, h := FitRect(float64(ph.width), float64(ph.height), pxBox)
	dst := rect(Box{X: x, Y: y, W: w, H: h})
	draw.CatmullRom.Scale(canvas, dst, img, img.Bounds(), draw.Over, nil)
}

func rect(b Box) image.Rectangle {
	x0, y0 := int(math.Round(b.X)), int(math.Round(b.Y))
	return image.Rect(x0, y0, x0+int(math.Round(b.W)), y0+int(math.Round(b.H)))
}

func outline(dst *image.RGBA, r image.Rectangle, c color.Color) {
	const stroke = 2
	src := image.NewUniform(c)
	for _, edge := range []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+stroke),
		image.Rect(r.Min.X, r.Max.Y-stroke, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+stroke, r.Max.Y),
		image.Rect(r.Max.X-stroke, r.Min.Y, r.Max.X, r.Max.Y),
	} {
		draw.Draw(dst, edge.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}
