package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/seguridadvial/constants"
	"github.com/joseph-ayodele/seguridadvial/internal/common"
	"github.com/joseph-ayodele/seguridadvial/internal/entity"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func sampleInfraction() *entity.Infraction {
	notified := time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)
	return &entity.Infraction{
		ID:           1,
		Series:       constants.SeriesCamera,
		Sequence:     42,
		Domain:       "AB123CD",
		Location:     "Avenida Güemes y Peñaloza",
		CameraSerial: "TC009925",
		Vehicle:      entity.Vehicle{Type: "Auto", Make: "Fiat", Model: "Cronos"},
		Owner:        entity.Person{Name: "María Núñez", DNI: "20333444", Address: "Calle 1"},
		Driver:       entity.Person{Name: "Juan Pérez"},
		IssuedAt:     time.Date(2025, 6, 12, 10, 55, 16, 0, time.UTC),
		NotifiedAt:   &notified,
	}
}

func writePhoto(t *testing.T, w, h int, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), "photo.jpg")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, jpeg.Encode(f, img, &jpeg.Options{Quality: 95}))
	require.NoError(t, f.Close())
	return path
}

func pngTemplate(t *testing.T, w, h int) *Template {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &Template{Path: "ticket.png", Data: buf.Bytes()}
}

func pdfTemplate(t *testing.T) *Template {
	t.Helper()
	doc := fpdf.New("P", "mm", "A4", "")
	doc.AddPage()
	doc.SetFont("Helvetica", "", 14)
	doc.Text(20, 20, "NOTIFICACION DE INFRACCION")
	var buf bytes.Buffer
	require.NoError(t, doc.Output(&buf))
	return &Template{Path: "notificacion.pdf", Data: buf.Bytes()}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Nandu Avila Guemes", Sanitize("Ñandú Ávila Güemes"))
	assert.Equal(t, "precio  50", Sanitize("precio € 50"))
	assert.Equal(t, "ab", Sanitize("a\tb\n"))
	assert.Equal(t, "", Sanitize(""))
	assert.Equal(t, "A-0000042", Sanitize("A-0000042"))
}

func TestUnits(t *testing.T) {
	assert.InDelta(t, 28.3464567, MMToPoints(10), 1e-6)
	assert.InDelta(t, 203.0, MMToPixels(25.4, 203), 1e-9)
}

func TestFitRect(t *testing.T) {
	x, y, w, h := FitRect(200, 100, Box{X: 10, Y: 10, W: 100, H: 100})
	assert.Equal(t, []float64{10, 35, 100, 50}, []float64{x, y, w, h})

	x, y, w, h = FitRect(50, 100, Box{X: 0, Y: 0, W: 100, H: 100})
	assert.Equal(t, []float64{25, 0, 50, 100}, []float64{x, y, w, h})

	_, _, w, h = FitRect(0, 100, Box{W: 10, H: 10})
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func placementOf(t *testing.T, l *Layout, key FieldKey) Placement {
	t.Helper()
	for _, p := range l.Fields {
		if p.Key == key {
			return p
		}
	}
	t.Fatalf("layout has no placement for %s", key)
	return Placement{}
}

func TestLoadLayout_EnvOverrides(t *testing.T) {
	t.Setenv("NOTIF_ACTA_X_MM", "12.5")
	t.Setenv("NOTIF_ACTA_Y_MM", "not-a-number")
	t.Setenv("NOTIF_PHOTO_W_MM", "Inf")
	t.Setenv("NOTIF_DEBUG_GRID", "true")

	l, err := LoadLayout(NotificationLayout(), LayoutOptions{CameraMake: "CAM X"})
	require.NoError(t, err)

	act := placementOf(t, l, FieldAct)
	assert.Equal(t, 12.5, act.X)
	assert.Equal(t, 81.0, act.Y)
	assert.Equal(t, 100.0, l.Photo.W)
	assert.True(t, l.DebugGrid)
	assert.Equal(t, "CAM X", l.CameraMake)
	assert.Equal(t, "LTI 20/20", l.CameraModel)

	// defaults are untouched
	def := placementOf(t, NotificationLayout(), FieldAct)
	assert.Equal(t, 66.0, def.X)
}

func TestLoadLayout_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pres.yaml")
	require.NoError(t, os.WriteFile(path, []byte("PRES_DOM_X_MM: 33\nPRES_DOM_Y_MM: 44\n"), 0o644))
	t.Setenv("PRES_DOM_Y_MM", "55")

	l, err := LoadLayout(TicketLayout(), LayoutOptions{File: path})
	require.NoError(t, err)
	dom := placementOf(t, l, FieldDomain)
	assert.Equal(t, 33.0, dom.X)
	assert.Equal(t, 55.0, dom.Y)

	_, err = LoadLayout(TicketLayout(), LayoutOptions{File: filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)
}

func TestResolveFields(t *testing.T) {
	inf := sampleInfraction()
	inf.PhotoRef = "cam/1.jpg"
	f := ResolveFields(inf, NotificationLayout(), "/data/uploads")

	assert.Equal(t, "A-0000042", f.ActNumber)
	assert.Equal(t, "12/06/2025", f.Get(FieldDate))
	assert.Equal(t, "10:55", f.Get(FieldTime))
	assert.Equal(t, "DNI: 20333444", f.Get(FieldOwnerDNI))
	assert.Equal(t, "", f.Get(FieldDriverDNI))
	assert.Equal(t, "Notificado: 20/06/2025", f.Get(FieldNotifiedDate))
	assert.Equal(t, "TRUCAM II", f.Get(FieldCameraMake))
	assert.Equal(t, filepath.Join("/data/uploads", "cam/1.jpg"), f.PhotoPath)

	inf.NotifiedAt = nil
	inf.PhotoRef = "/abs/photo.png"
	f = ResolveFields(inf, NotificationLayout(), "/data/uploads")
	assert.Empty(t, f.Get(FieldNotifiedDate))
	assert.Equal(t, "/abs/photo.png", f.PhotoPath)
}

func TestLoadTemplate(t *testing.T) {
	tpl, err := LoadTemplate(filepath.Join(t.TempDir(), "nope.pdf"))
	require.NoError(t, err)
	assert.Nil(t, tpl)

	path := filepath.Join(t.TempDir(), "tpl.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	tpl, err = LoadTemplate(path)
	require.NoError(t, err)
	require.NotNil(t, tpl)
	assert.Equal(t, path, tpl.Path)
}

func TestPDFRenderer_MissingTemplate(t *testing.T) {
	r := NewPDFRenderer(NotificationLayout(), testLogger)
	fields := ResolveFields(sampleInfraction(), r.Layout(), "")

	res, err := r.Render(context.Background(), fields, nil)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentPDF, res.Kind)
	assert.True(t, bytes.HasPrefix(res.Bytes, []byte("%PDF")))
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "template not found")

	again, err := r.Render(context.Background(), fields, nil)
	require.NoError(t, err)
	assert.Equal(t, res.Bytes, again.Bytes)
}

func TestPDFRenderer_WithTemplateAndPhoto(t *testing.T) {
	r := NewPDFRenderer(NotificationLayout(), testLogger)
	inf := sampleInfraction()
	inf.PhotoRef = writePhoto(t, 64, 32, color.RGBA{R: 200, A: 255})

	res, err := r.Render(context.Background(), ResolveFields(inf, r.Layout(), ""), pdfTemplate(t))
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.True(t, bytes.HasPrefix(res.Bytes, []byte("%PDF")))
}

func TestPDFRenderer_BadPhotoAndTemplateDegrade(t *testing.T) {
	r := NewPDFRenderer(NotificationLayout(), testLogger)
	inf := sampleInfraction()
	inf.PhotoRef = filepath.Join(t.TempDir(), "missing.jpg")

	res, err := r.Render(context.Background(), ResolveFields(inf, r.Layout(), ""), pdfTemplate(t))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "photo skipped")

	res, err = r.Render(context.Background(), ResolveFields(inf, r.Layout(), ""), &Template{Path: "bad.pdf", Data: []byte("not a pdf")})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(res.Bytes, []byte("%PDF")))
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, res.Warnings[0], "unusable")
}

func TestPDFRenderer_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPDFRenderer(nil, testLogger).Render(ctx, Fields{}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPNGRenderer_MissingTemplate(t *testing.T) {
	r := NewPNGRenderer(TicketLayout(), DefaultDPI, testLogger)
	_, err := r.Render(context.Background(), ResolveFields(sampleInfraction(), r.Layout(), ""), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrTemplateUnavailable))

	_, err = r.Render(context.Background(), Fields{}, &Template{Path: "x.png", Data: []byte("nope")})
	assert.True(t, errors.Is(err, common.ErrTemplateUnavailable))
}

func hasDarkPixel(img image.Image, area image.Rectangle) bool {
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r < 0x8000 && g < 0x8000 && b < 0x8000 {
				return true
			}
		}
	}
	return false
}

func TestPNGRenderer_DrawsFieldsAndPhoto(t *testing.T) {
	layout := TicketLayout()
	layout.Photo = Box{X: 100, Y: 10, W: 40, H: 40}
	r := NewPNGRenderer(layout, DefaultDPI, testLogger)

	inf := sampleInfraction()
	inf.Series = constants.SeriesInPerson
	inf.PhotoRef = writePhoto(t, 80, 40, color.RGBA{R: 220, A: 255})
	tpl := pngTemplate(t, r.px(160), r.px(120))

	res, err := r.Render(context.Background(), ResolveFields(inf, layout, ""), tpl)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, constants.DocumentPNG, res.Kind)

	out, err := png.Decode(bytes.NewReader(res.Bytes))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, r.px(160), r.px(120)), out.Bounds())

	// act number baseline sits at 15mm; glyphs extend above it
	actArea := image.Rect(r.px(20), r.px(10), r.px(60), r.px(15))
	assert.True(t, hasDarkPixel(out, actArea))

	// photo is 2:1, fitted to 40x20mm and centred vertically in the box
	cr, cg, _, _ := out.At(r.px(120), r.px(30)).RGBA()
	assert.Greater(t, cr, uint32(0xb000))
	assert.Less(t, cg, uint32(0x6000))
	wr, wg, _, _ := out.At(r.px(120), r.px(12)).RGBA()
	assert.Greater(t, wr, uint32(0xf000))
	assert.Greater(t, wg, uint32(0xf000))
}

func TestPNGRenderer_ConcurrentRendersMatch(t *testing.T) {
	layout := TicketLayout()
	r := NewPNGRenderer(layout, DefaultDPI, testLogger)
	inf := sampleInfraction()
	inf.Series = constants.SeriesInPerson
	fields := ResolveFields(inf, layout, "")
	tpl := pngTemplate(t, r.px(120), r.px(90))

	want, err := r.Render(context.Background(), fields, tpl)
	require.NoError(t, err)

	const workers, rounds = 8, 3
	var wg sync.WaitGroup
	outs := make([][]byte, workers*rounds)
	errs := make([]error, workers*rounds)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				res, err := r.Render(context.Background(), fields, tpl)
				errs[w*rounds+i] = err
				if err == nil {
					outs[w*rounds+i] = res.Bytes
				}
			}
		}(w)
	}
	wg.Wait()

	for i := range outs {
		require.NoError(t, errs[i])
		assert.True(t, bytes.Equal(want.Bytes, outs[i]), "render %d differs", i)
	}
}

func TestPNGRenderer_DebugGridAndMissingGlyph(t *testing.T) {
	layout := TicketLayout()
	layout.Photo = Box{X: 10, Y: 10, W: 20, H: 20}
	layout.DebugGrid = true
	r := NewPNGRenderer(layout, DefaultDPI, testLogger)

	inf := sampleInfraction()
	inf.Domain = "AB\U0001F600"
	inf.PhotoRef = writePhoto(t, 10, 10, color.Black)
	res, err := r.Render(context.Background(), ResolveFields(inf, layout, ""), pngTemplate(t, r.px(100), r.px(100)))
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], string(FieldDomain))

	out, err := png.Decode(bytes.NewReader(res.Bytes))
	require.NoError(t, err)
	cr, cg, _, _ := out.At(r.px(10), r.px(10)).RGBA()
	assert.Equal(t, uint32(0xffff), cr)
	assert.Zero(t, cg)
	// no photo inside the debug box
	ir, ig, ib, _ := out.At(r.px(20), r.px(20)).RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff}, []uint32{ir, ig, ib})
}

func TestNew(t *testing.T) {
	r, err := New(constants.DocumentPNG, nil, 0, testLogger)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentPNG, r.Kind())
	_, err = New("tiff", nil, 0, testLogger)
	assert.Error(t, err)
}
