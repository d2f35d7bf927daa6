package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/certificate-studio/internal/models"
	"github.com/terra-clan/certificate-studio/internal/render"
)

// fakeRaster returns a flat page and records what it was asked to draw
type fakeRaster struct {
	err    error
	scales []float64
	last   models.CertificateFields
}

func (f *fakeRaster) Rasterize(fields models.CertificateFields, scale float64) (image.Image, error) {
	f.scales = append(f.scales, scale)
	f.last = fields
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewRGBA(image.Rect(0, 0, int(render.PageWidth*scale/4), int(render.PageHeight*scale/4)))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(1, 1, color.Black)
	return img, nil
}

func TestValidateName(t *testing.T) {
	assert.ErrorIs(t, ValidateName(""), ErrNameRequired)
	assert.ErrorIs(t, ValidateName("   \t"), ErrNameRequired)
	assert.NoError(t, ValidateName(" Ada "))
}

func TestExportProducesPDF(t *testing.T) {
	raster := &fakeRaster{}
	e := New(raster)

	var out bytes.Buffer
	err := e.Export(context.Background(), models.CertificateFields{Name: "Ada"}, &out)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF-")))
	assert.Contains(t, out.String(), "/DCTDecode")
	assert.Equal(t, []float64{DefaultScale}, raster.scales)
}

func TestExportRejectsBlankName(t *testing.T) {
	raster := &fakeRaster{}
	e := New(raster)

	var out bytes.Buffer
	err := e.Export(context.Background(), models.CertificateFields{Name: "  "}, &out)
	assert.ErrorIs(t, err, ErrNameRequired)
	assert.Zero(t, out.Len())
	assert.Empty(t, raster.scales, "rasterizer must not run")
}

func TestExportRenderFailureWritesNothing(t *testing.T) {
	e := New(&fakeRaster{err: errors.New("boom")})

	var out bytes.Buffer
	err := e.Export(context.Background(), models.CertificateFields{Name: "Ada"}, &out)
	assert.ErrorIs(t, err, ErrRender)
	assert.Contains(t, err.Error(), "boom")
	assert.Zero(t, out.Len())
}

func TestExportCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := New(&fakeRaster{}).Export(ctx, models.CertificateFields{Name: "Ada"}, &out)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, out.Len())
}

func TestOptions(t *testing.T) {
	e := New(&fakeRaster{}, WithScale(2), WithQuality(95))
	assert.Equal(t, 2.0, e.scale)
	assert.Equal(t, 95, e.quality)

	e = New(&fakeRaster{}, WithScale(-1), WithQuality(0))
	assert.Equal(t, DefaultScale, e.scale)
	assert.Equal(t, DefaultQuality, e.quality)
}

func TestPreviewAllowsBlankName(t *testing.T) {
	raster := &fakeRaster{}

	var out bytes.Buffer
	require.NoError(t, New(raster).Preview(context.Background(), models.CertificateFields{}, &out))
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("\x89PNG")))
	assert.Equal(t, []float64{PreviewScale}, raster.scales)
}

func TestExportWithRealSurface(t *testing.T) {
	if testing.Short() {
		t.Skip("full-size rasterization")
	}
	surface, err := render.NewSurface(nil)
	require.NoError(t, err)

	var out bytes.Buffer
	err = New(surface, WithScale(1)).Export(context.Background(), models.CertificateFields{Name: "Ада"}, &out)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("%PDF-")))
}
