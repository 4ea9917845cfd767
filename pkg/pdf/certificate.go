// Package pdf renders certificate documents.
package pdf

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// CertificateData is everything printed on a certificate.
type CertificateData struct {
	RecipientName      string
	Qualification      string
	TrainingCenterName string
	IssuedAt           time.Time
	CertificateNumber  string
}

// Renderer draws certificates on an optional PNG background with an optional
// TrueType font. Without a font it falls back to the core Helvetica face.
type Renderer struct {
	template []byte
	font     []byte
}

const (
	fontFamily  = "certificate"
	title       = "СЕРТИФИКАТ"
	reasonText  = "За успешное прохождение программы обучения, присуждается:"
	qualLabel   = "Квалификация"
	centerLabel = "Центр"
)

// NewRenderer loads the assets. Missing files are tolerated; unreadable ones are not.
func NewRenderer(templatePath, fontPath string) (*Renderer, error) {
	r := &Renderer{}
	var err error
	if r.template, err = readOptional(templatePath); err != nil {
		return nil, err
	}
	if r.font, err = readOptional(fontPath); err != nil {
		return nil, err
	}
	return r, nil
}

func readOptional(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// HasUnicodeFont reports whether Cyrillic text will render as-is.
func (r *Renderer) HasUnicodeFont() bool {
	return len(r.font) > 0
}

// Render produces a single landscape A4 page.
func (r *Renderer) Render(data CertificateData) ([]byte, error) {
	doc := fpdf.New("L", "mm", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	family := "Helvetica"
	text := func(s string) string { return s }
	if r.HasUnicodeFont() {
		doc.AddUTF8FontFromBytes(fontFamily, "", r.font)
		family = fontFamily
	} else {
		text = doc.UnicodeTranslatorFromDescriptor("")
	}

	doc.AddPage()
	width, height := doc.GetPageSize()

	if len(r.template) > 0 {
		opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		doc.RegisterImageOptionsReader("template", opts, bytes.NewReader(r.template))
		doc.ImageOptions("template", 0, 0, width, height, false, opts, 0, "")
	}

	// Font sizes follow the page height, in points.
	pt := func(ratio float64) float64 { return height * ratio * 2.835 }
	centered := func(s string, y, size float64, red, green, blue int) {
		doc.SetFont(family, "", size)
		doc.SetTextColor(red, green, blue)
		doc.SetXY(0, y)
		doc.CellFormat(width, size/2.835, text(s), "", 0, "C", false, 0, "")
	}

	centered(title, height*0.16, pt(0.045), 51, 51, 51)
	centered(data.RecipientName, height*0.30, pt(0.05), 51, 51, 51)

	doc.SetFont(family, "", pt(0.024))
	doc.SetTextColor(115, 115, 115)
	doc.SetXY(width*0.15, height*0.38)
	doc.MultiCell(width*0.70, pt(0.024)/2.835+1.5, text(reasonText), "", "C", false)

	centered(qualLabel, height*0.46, pt(0.022), 115, 115, 115)
	centered(data.Qualification, height*0.51, pt(0.028), 112, 74, 46)

	small := pt(0.02)
	left := width * 0.08
	right := width * 0.92
	bottom := height * 0.84

	doc.SetFont(family, "", small)
	doc.SetTextColor(115, 115, 115)
	doc.SetXY(left, bottom)
	doc.CellFormat(width*0.4, small/2.835, text(centerLabel), "", 0, "L", false, 0, "")

	doc.SetFont(family, "", small+1)
	doc.SetTextColor(51, 51, 51)
	doc.SetXY(left, bottom+small/2.835+2)
	doc.CellFormat(width*0.4, small/2.835, text(data.TrainingCenterName), "", 0, "L", false, 0, "")

	doc.SetXY(right-width*0.4, bottom)
	doc.CellFormat(width*0.4, small/2.835, data.IssuedAt.Format("02.01.2006"), "", 0, "R", false, 0, "")
	doc.SetXY(right-width*0.4, bottom+small/2.835+2)
	doc.CellFormat(width*0.4, small/2.835, text("№ "+data.CertificateNumber), "", 0, "R", false, 0, "")

	if err := doc.Error(); err != nil {
		return nil, fmt.Errorf("failed to layout certificate: %w", err)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to write certificate pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename is the attachment name used for downloads.
func Filename(certificateNumber string) string {
	return "certificate-" + strings.ReplaceAll(certificateNumber, "/", "-") + ".pdf"
}
