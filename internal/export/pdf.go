// Package export turns certificate fields into a downloadable PDF.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/terra-clan/certificate-studio/internal/models"
	"github.com/terra-clan/certificate-studio/internal/render"
)

// FileName is the suggested name of the exported document
const FileName = "certificate.pdf"

const (
	DefaultScale   = 4.0
	DefaultQuality = 80
	PreviewScale   = 1.0
)

const imageName = "certificate"

var (
	ErrNameRequired = errors.New("student name is required")
	ErrRender       = errors.New("failed to render certificate")
	ErrEncode       = errors.New("failed to encode certificate image")
	ErrDocument     = errors.New("failed to build certificate document")
)

// Rasterizer draws certificate fields at a given oversampling factor
type Rasterizer interface {
	Rasterize(fields models.CertificateFields, scale float64) (image.Image, error)
}

// Exporter renders, encodes and packages certificates
type Exporter struct {
	raster  Rasterizer
	scale   float64
	quality int
}

// Option configures an Exporter
type Option func(*Exporter)

// WithScale sets the oversampling factor; non-positive values are ignored
func WithScale(scale float64) Option {
	return func(e *Exporter) {
		if scale > 0 {
			e.scale = scale
		}
	}
}

// WithQuality sets the JPEG quality (1-100); other values are ignored
func WithQuality(quality int) Option {
	return func(e *Exporter) {
		if quality >= 1 && quality <= 100 {
			e.quality = quality
		}
	}
}

// New creates an Exporter
func New(r Rasterizer, opts ...Option) *Exporter {
	e := &Exporter{
		raster:  r,
		scale:   DefaultScale,
		quality: DefaultQuality,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ValidateName rejects names that are empty after trimming
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	return nil
}

// Export writes a one-page landscape PDF holding the rasterized page.
// Nothing is written to w unless the whole document was produced.
func (e *Exporter) Export(ctx context.Context, fields models.CertificateFields, w io.Writer) error {
	if err := ValidateName(fields.Name); err != nil {
		return err
	}

	img, err := e.raster.Rasterize(fields, e.scale)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: e.quality}); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var doc bytes.Buffer
	if err := buildDocument(&jpg, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrDocument, err)
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}

// Preview writes a PNG of the page at screen scale. A blank name is allowed.
func (e *Exporter) Preview(_ context.Context, fields models.CertificateFields, w io.Writer) error {
	img, err := e.raster.Rasterize(fields, PreviewScale)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRender, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	_, err = buf.WriteTo(w)
	return err
}

func buildDocument(jpg io.Reader, w io.Writer) error {
	// "L" swaps the portrait size, so give A4 in portrait orientation
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "L",
		UnitStr:        "pt",
		Size:           fpdf.SizeType{Wd: render.PageHeight, Ht: render.PageWidth},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	opts := fpdf.ImageOptions{ImageType: "JPG"}
	pdf.RegisterImageOptionsReader(imageName, opts, jpg)
	pdf.ImageOptions(imageName, 0, 0, render.PageWidth, render.PageHeight, false, opts, 0, "")

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}
