package render

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/certificate-studio/internal/models"
	"github.com/terra-clan/certificate-studio/internal/present"
)

var stampRed = color.RGBA{0xd0, 0x10, 0x10, 0xff}

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func fields(stampOn bool) models.CertificateFields {
	return models.CertificateFields{
		Language:    "ru",
		Date:        "5 марта, 2024",
		Name:        "Ада Лавлейс",
		CourseTitle: "Программирование на Python",
		LevelLabel:  "Уровень Junior",
		CertLevel:   "Junior",
		Skills:      []string{"Синтаксис", "Тестирование"},
		Stamp:       present.StampStyleFor(stampOn),
		Captions:    present.Captions(nil, "ru"),
	}
}

func isStampRed(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	return r>>8 > 0xc0 && g>>8 < 0x40 && b>>8 < 0x40
}

func TestRasterizeSize(t *testing.T) {
	s, err := NewSurface(nil)
	require.NoError(t, err)

	img, err := s.Rasterize(fields(true), 1)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, PageWidth, PageHeight), img.Bounds())

	img, err = s.Rasterize(fields(true), 2)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, PageWidth*2, PageHeight*2), img.Bounds())

	_, err = s.Rasterize(fields(true), 0)
	assert.ErrorIs(t, err, ErrInvalidScale)
}

func TestRasterizeStampVisibility(t *testing.T) {
	s, err := NewSurface(&Assets{Stamp: solid(40, 40, stampRed)})
	require.NoError(t, err)

	cx := int(layout.Stamp.X + layout.Stamp.W/2)
	cy := int(layout.Stamp.Y + layout.Stamp.H/2)

	shown, err := s.Rasterize(fields(true), 1)
	require.NoError(t, err)
	assert.True(t, isStampRed(shown.At(cx, cy)))

	hidden, err := s.Rasterize(fields(false), 1)
	require.NoError(t, err)
	assert.False(t, isStampRed(hidden.At(cx, cy)))
}

func TestRasterizeEmptyFields(t *testing.T) {
	s, err := NewSurface(nil)
	require.NoError(t, err)

	img, err := s.Rasterize(models.CertificateFields{}, 1)
	require.NoError(t, err)

	// plain paper in the middle of the page
	r, g, b, _ := img.At(PageWidth/2, 450).RGBA()
	assert.Equal(t, uint32(paperColor.R), r>>8)
	assert.Equal(t, uint32(paperColor.G), g>>8)
	assert.Equal(t, uint32(paperColor.B), b>>8)
}

func TestLoadAssets(t *testing.T) {
	dir := t.TempDir()

	f, err := os.Create(filepath.Join(dir, StampFile))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, solid(4, 4, stampRed)))
	require.NoError(t, f.Close())

	assets, err := LoadAssets(dir)
	require.NoError(t, err)
	assert.NotNil(t, assets.Stamp)
	assert.Nil(t, assets.Background)
	assert.Nil(t, assets.Logo)
	assert.Nil(t, assets.Holo)

	require.NoError(t, os.WriteFile(filepath.Join(dir, LogoFile), []byte("not a png"), 0o644))
	_, err = LoadAssets(dir)
	assert.Error(t, err)

	empty, err := LoadAssets("")
	require.NoError(t, err)
	assert.Equal(t, &Assets{}, empty)
}
