package render

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/go-pdf/fpdf/contrib/gofpdi"

	"github.com/joseph-ayodele/seguridadvial/constants"
)

const missingTemplateNotice = "Plantilla no encontrada. Copie la plantilla PDF en el directorio de plantillas"

// PDFRenderer draws text and the photo natively on page one of a PDF
// template. Text is sanitized to ASCII for the built-in Helvetica faces.
type PDFRenderer struct {
	layout *Layout
	logger *slog.Logger
}

func NewPDFRenderer(layout *Layout, logger *slog.Logger) *PDFRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	if layout == nil {
		layout = NotificationLayout()
	}
	return &PDFRenderer{layout: layout, logger: logger}
}

func (r *PDFRenderer) Kind() constants.DocumentKind { return constants.DocumentPDF }

func (r *PDFRenderer) Layout() *Layout { return r.layout }

func newDocument() *fpdf.Fpdf {
	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetCreationDate(fixedCreationDate)
	pdf.SetCatalogSort(true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	return pdf
}

func (r *PDFRenderer) Render(ctx context.Context, fields Fields, tpl *Template) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := &Result{Kind: constants.DocumentPDF}
	pdf := newDocument()

	if tpl == nil {
		res.warn("template not found; rendered blank page")
		r.logger.Warn("render.template.missing", "kind", res.Kind, "act_number", fields.ActNumber)
		r.blankPage(pdf)
		return r.finish(pdf, res)
	}
	if err := importTemplate(pdf, tpl); err != nil {
		res.warn("template %s unusable: %v; rendered blank page", tpl.Path, err)
		r.logger.Warn("render.template.invalid", "path", tpl.Path, "error", err)
		pdf = newDocument()
		r.blankPage(pdf)
		return r.finish(pdf, res)
	}

	pdf.SetTextColor(0, 0, 0)
	for _, p := range r.layout.Fields {
		text := Sanitize(fields.Get(p.Key))
		if text == "" {
			continue
		}
		style := ""
		if p.Bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, p.Size)
		pdf.Text(MMToPoints(p.X), MMToPoints(p.Y), text)
		if pdf.Err() {
			res.warn("field %s skipped: %v", p.Key, pdf.Error())
			r.logger.Warn("render.field.skipped", "field", p.Key, "act_number", fields.ActNumber, "error", pdf.Error())
			pdf.ClearError()
		}
	}

	r.drawPhoto(pdf, fields, res)
	return r.finish(pdf, res)
}

func (r *PDFRenderer) blankPage(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetTextColor(255, 0, 0)
	pdf.Text(40, 42, missingTemplateNotice)
}

// importTemplate places page one of the template over the whole page. The
// importer panics on malformed input, so that is turned into an error.
func importTemplate(pdf *fpdf.Fpdf, tpl *Template) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("import template: %v", rec)
		}
	}()
	imp := gofpdi.NewImporter()
	var rs io.ReadSeeker = bytes.NewReader(tpl.Data)
	id := imp.ImportPageFromStream(pdf, &rs, 1, "/MediaBox")
	if pdf.Err() {
		return pdf.Error()
	}
	w, h := pdf.GetPageSize()
	imp.UseImportedTemplate(pdf, id, 0, 0, w, h)
	if pdf.Err() {
		return pdf.Error()
	}
	return nil
}

func (r *PDFRenderer) drawPhoto(pdf *fpdf.Fpdf, fields Fields, res *Result) {
	box := r.layout.Photo
	if !box.Enabled() {
		return
	}
	pt := Box{X: MMToPoints(box.X), Y: MMToPoints(box.Y), W: MMToPoints(box.W), H: MMToPoints(box.H)}
	if r.layout.DebugGrid {
		pdf.SetDrawColor(255, 0, 0)
		pdf.SetLineWidth(0.5)
		pdf.Rect(pt.X, pt.Y, pt.W, pt.H, "D")
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
	opts := fpdf.ImageOptions{ImageType: strings.ToUpper(ph.format), ReadDpi: false}
	if ph.format == "jpeg" {
		opts.ImageType = "JPG"
	}
	name := "photo-" + fields.ActNumber
	info := pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(ph.data))
	if pdf.Err() || info == nil {
		res.warn("photo skipped: %v", pdf.Error())
		r.logger.Warn("render.photo.skipped", "act_number", fields.ActNumber, "error", pdf.Error())
		pdf.ClearError()
		return
	}
	x, y, w, h := FitRect(float64(ph.width), float64(ph.height), pt)
	pdf.ImageOptions(name, x, y, w, h, false, opts, 0, "")
	if pdf.Err() {
		res.warn("photo skipped: %v", pdf.Error())
		pdf.ClearError()
	}
}

func (r *PDFRenderer) finish(pdf *fpdf.Fpdf, res *Result) (*Result, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	res.Bytes = buf.Bytes()
	return res, nil
}
