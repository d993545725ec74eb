package viewport

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func near(t *testing.T, want, got Point) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6*math.Max(1, math.Abs(want.X)))
	assert.InDelta(t, want.Y, got.Y, 1e-6*math.Max(1, math.Abs(want.Y)))
}

func states() []*Transform {
	var out []*Transform
	for _, z := range []float64{0.1, 0.37, 1, 2.5, 20} {
		for _, pan := range []Point{{0, 0}, {13.5, -7}, {-400, 250.25}} {
			tr := New(0.1, 20, 1.2)
			tr.zoom = z
			tr.panX, tr.panY = pan.X, pan.Y
			out = append(out, tr)
		}
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	points := []Point{{0, 0}, {799, 599}, {123.25, 456.75}, {-20, 1000}}
	for _, tr := range states() {
		for _, p := range points {
			near(t, p, tr.ImageToScreen(tr.ScreenToImage(p)))
			near(t, p, tr.ScreenToImage(tr.ImageToScreen(p)))
		}
	}
}

func TestZoomAtKeepsCursorPixel(t *testing.T) {
	factors := []float64{1.2, 1 / 1.2, 3, 0.01, 100}
	cursor := []Point{{0, 0}, {400, 300}, {799, 1}, {12.5, 587.5}}

	for _, tr := range states() {
		for _, f := range factors {
			for _, p := range cursor {
				c := *tr
				before := c.ScreenToImage(p)
				c.ZoomAt(p, f)
				near(t, before, c.ScreenToImage(p))
				assert.GreaterOrEqual(t, c.Zoom(), c.MinZoom)
				assert.LessOrEqual(t, c.Zoom(), c.MaxZoom)
			}
		}
	}
}

func TestZoomInOutAndReset(t *testing.T) {
	tr := New(0.1, 20, 1.2)
	tr.Fit(image.Pt(800, 600), image.Pt(1600, 1200))
	require.InDelta(t, 0.5, tr.DefaultZoom(), eps)

	tr.ZoomIn(Pt(100, 100))
	assert.InDelta(t, 0.6, tr.Zoom(), eps)
	tr.ZoomOut(Pt(100, 100))
	assert.InDelta(t, 0.5, tr.Zoom(), eps)

	tr.PanBy(10, -4)
	tr.Reset()
	assert.InDelta(t, 0.5, tr.Zoom(), eps)
	assert.Equal(t, Point{}, tr.Pan())
}

func TestFitNeverEnlarges(t *testing.T) {
	tr := New(0.1, 20, 1.2)
	tr.Fit(image.Pt(800, 600), image.Pt(100, 50))
	assert.InDelta(t, 1.0, tr.DefaultZoom(), eps)
}

func TestZoomIgnoresBadFactor(t *testing.T) {
	tr := New(0.1, 20, 1.2)
	tr.ZoomAt(Pt(5, 5), 0)
	tr.ZoomAt(Pt(5, 5), -2)
	tr.ZoomAt(Pt(5, 5), math.NaN())
	assert.InDelta(t, 1.0, tr.Zoom(), eps)
}

func TestCenterOn(t *testing.T) {
	tr := New(0.1, 20, 1.2)
	tr.ZoomAt(Pt(0, 0), 2)
	tr.CenterOn(Pt(50, 40), image.Pt(800, 600))
	near(t, Pt(400, 300), tr.ImageToScreen(Pt(50, 40)))
}

func TestVisibleRect(t *testing.T) {
	tr := New(0.1, 20, 1.2)
	bounds := image.Rect(0, 0, 1000, 1000)
	assert.Equal(t, image.Rect(0, 0, 800, 600), tr.VisibleRect(image.Pt(800, 600), bounds))

	tr.ZoomAt(Pt(0, 0), 2)
	tr.PanBy(-200, -100)
	assert.Equal(t, image.Rect(100, 50, 500, 350), tr.VisibleRect(image.Pt(800, 600), bounds))

	tr.PanBy(5000, 0)
	assert.True(t, tr.VisibleRect(image.Pt(800, 600), bounds).Empty())
}
