package preview

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivlev/seqcrop/internal/config"
	"github.com/ivlev/seqcrop/internal/roi"
	"github.com/ivlev/seqcrop/internal/viewport"
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func rgba(c color.Color) color.RGBA {
	r, g, b, a := c.RGBA()
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}

func TestRenderPlacesFrameByView(t *testing.T) {
	cfg := config.Default()
	view := viewport.New(cfg.Zoom.Min, cfg.Zoom.Max, cfg.Zoom.Step)
	view.Fit(image.Pt(100, 100), image.Pt(40, 20))
	view.PanBy(10, 30)

	out, err := Render(Scene{
		Frame:  solid(40, 20, color.RGBA{G: 255, A: 255}),
		View:   view,
		Canvas: image.Pt(100, 100),
		Style:  cfg.ROI,
	})
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 100, 100), out.Bounds())

	assert.Equal(t, color.RGBA{G: 255, A: 255}, rgba(out.At(20, 40)))
	assert.Equal(t, color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 255}, rgba(out.At(5, 5)))
	assert.Equal(t, color.RGBA{R: 0x20, G: 0x20, B: 0x20, A: 255}, rgba(out.At(60, 40)))
}

func TestRenderZoomedIn(t *testing.T) {
	cfg := config.Default()
	frame := solid(50, 50, color.Black)
	frame.Set(10, 10, color.White)

	view := viewport.New(cfg.Zoom.Min, cfg.Zoom.Max, cfg.Zoom.Step)
	view.ZoomAt(viewport.Pt(0, 0), 4)

	out, err := Render(Scene{Frame: frame, View: view, Canvas: image.Pt(100, 100), Style: cfg.ROI, MaxImageSize: 4000})
	require.NoError(t, err)
	// pixel (10,10) covers screen (40..44, 40..44)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, rgba(out.At(42, 42)))
	assert.Equal(t, color.RGBA{A: 255}, rgba(out.At(46, 42)))
}

func TestRenderROIOverlay(t *testing.T) {
	cfg := config.Default()
	view := viewport.New(cfg.Zoom.Min, cfg.Zoom.Max, cfg.Zoom.Step)
	ed := roi.NewEditor(view, 1, cfg.ROI.HandleSize)
	require.NoError(t, ed.Set(image.Rect(20, 20, 80, 70), image.Pt(100, 100)))
	marker := viewport.Pt(50, 50)

	out, err := Render(Scene{
		Frame:  solid(100, 100, color.Black),
		View:   view,
		Canvas: image.Pt(100, 100),
		Editor: ed,
		Marker: &marker,
		Style:  cfg.ROI,
	})
	require.NoError(t, err)

	// handle squares are filled with the handle colour
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgba(out.At(80, 70)))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgba(out.At(20, 70)))
	// the crosshair is drawn at the marker
	assert.NotEqual(t, color.RGBA{A: 255}, rgba(out.At(45, 50)))
	// the inside of the ROI is untouched
	assert.Equal(t, color.RGBA{A: 255}, rgba(out.At(35, 40)))
}

func TestRenderRejectsEmptyCanvas(t *testing.T) {
	_, err := Render(Scene{Canvas: image.Pt(0, 10)})
	assert.Error(t, err)
}
