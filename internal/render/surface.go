// Package render draws the certificate page onto a bitmap.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/terra-clan/certificate-studio/internal/models"
	"github.com/terra-clan/certificate-studio/internal/present"
)

// Page size in device units (A4 landscape, points)
const (
	PageWidth  = 842
	PageHeight = 595
)

// maxSkillLines caps the skill list printed on the page
const maxSkillLines = 8

// ErrInvalidScale is returned for a non-positive oversampling factor
var ErrInvalidScale = errors.New("render scale must be positive")

var (
	paperColor  = color.RGBA{0xfb, 0xf8, 0xf1, 0xff}
	borderColor = color.RGBA{0xb8, 0x93, 0x4a, 0xff}
	inkColor    = color.RGBA{0x1f, 0x24, 0x33, 0xff}
	mutedColor  = color.RGBA{0x5c, 0x63, 0x73, 0xff}
)

// rect is a layout box in page units
type rect struct{ X, Y, W, H float64 }

var layout = struct {
	Logo, Holo, Stamp rect
}{
	Logo:  rect{48, 36, 150, 60},
	Holo:  rect{706, 30, 100, 100},
	Stamp: rect{630, 395, 150, 150},
}

// Surface rasterizes certificate fields over the page artwork
type Surface struct {
	assets  *Assets
	regular *truetype.Font
	bold    *truetype.Font
}

// NewSurface prepares fonts; assets may be nil
func NewSurface(assets *Assets) (*Surface, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse bold font: %w", err)
	}
	if assets == nil {
		assets = &Assets{}
	}
	return &Surface{assets: assets, regular: regular, bold: bold}, nil
}

// Rasterize draws the page at scale times its device size.
// A hidden stamp is not drawn at all.
func (s *Surface) Rasterize(f models.CertificateFields, scale float64) (image.Image, error) {
	if scale <= 0 {
		return nil, ErrInvalidScale
	}

	w := int(PageWidth * scale)
	h := int(PageHeight * scale)
	dc := gg.NewContext(w, h)
	p := painter{dc: dc, scale: scale, surface: s}

	p.background()
	p.image(s.assets.Holo, layout.Holo)
	p.image(s.assets.Logo, layout.Logo)

	caption := func(key string) string { return f.Captions[key] }

	p.text(caption(present.KeyCertTitle), s.bold, 34, borderColor, PageWidth/2, 130)
	p.text(caption(present.KeyCertAwarded), s.regular, 14, mutedColor, PageWidth/2, 178)
	p.text(f.Name, s.bold, 36, inkColor, PageWidth/2, 225)
	p.wrapped(f.CourseTitle, s.regular, 22, inkColor, PageWidth/2, 275, 600)
	p.text(f.CertLevel, s.bold, 16, borderColor, PageWidth/2, 318)

	if len(f.Skills) > 0 {
		p.textLeft(caption(present.KeyCertSkills), s.bold, 13, mutedColor, 110, 360)
		for i, skill := range f.Skills {
			if i == maxSkillLines {
				break
			}
			p.textLeft("• "+strings.TrimSpace(skill), s.regular, 12, inkColor, 118, 384+float64(i)*19)
		}
	}

	if f.Date != "" {
		p.textLeft(caption(present.KeyCertDateCaption)+": "+f.Date, s.regular, 13, mutedColor, 110, 548)
	}

	if f.Stamp.Visible() {
		p.image(s.assets.Stamp, layout.Stamp)
	}

	return dc.Image(), nil
}

// painter converts page units into pixels for one rasterization
type painter struct {
	dc      *gg.Context
	scale   float64
	surface *Surface
}

func (p painter) px(v float64) float64 { return v * p.scale }

func (p painter) background() {
	if bg := p.surface.assets.Background; bg != nil {
		p.image(bg, rect{0, 0, PageWidth, PageHeight})
		return
	}

	p.dc.SetColor(paperColor)
	p.dc.Clear()

	p.dc.SetColor(borderColor)
	p.dc.SetLineWidth(p.px(3))
	p.dc.DrawRectangle(p.px(18), p.px(18), p.px(PageWidth-36), p.px(PageHeight-36))
	p.dc.Stroke()
	p.dc.SetLineWidth(p.px(1))
	p.dc.DrawRectangle(p.px(26), p.px(26), p.px(PageWidth-52), p.px(PageHeight-52))
	p.dc.Stroke()
}

// image scales img into box; nil images are skipped
func (p painter) image(img image.Image, box rect) {
	if img == nil {
		return
	}
	w, h := int(p.px(box.W)), int(p.px(box.H))
	if w <= 0 || h <= 0 {
		return
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	p.dc.DrawImage(dst, int(p.px(box.X)), int(p.px(box.Y)))
}

func (p painter) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    p.px(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

func (p painter) text(s string, f *truetype.Font, size float64, c color.Color, cx, cy float64) {
	if s == "" {
		return
	}
	p.dc.SetFontFace(p.face(f, size))
	p.dc.SetColor(c)
	p.dc.DrawStringAnchored(s, p.px(cx), p.px(cy), 0.5, 0.5)
}

func (p painter) textLeft(s string, f *truetype.Font, size float64, c color.Color, x, y float64) {
	if s == "" {
		return
	}
	p.dc.SetFontFace(p.face(f, size))
	p.dc.SetColor(c)
	p.dc.DrawStringAnchored(s, p.px(x), p.px(y), 0, 0.5)
}

func (p painter) wrapped(s string, f *truetype.Font, size float64, c color.Color, cx, cy, width float64) {
	if s == "" {
		return
	}
	p.dc.SetFontFace(p.face(f, size))
	p.dc.SetColor(c)
	p.dc.DrawStringWrapped(s, p.px(cx), p.px(cy), 0.5, 0.5, p.px(width), 1.2, gg.AlignCenter)
}
