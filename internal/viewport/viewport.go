package viewport

import (
	"image"
	"math"
)

// Point is a position in either screen (canvas) or image space.
type Point struct {
	X, Y float64
}

func Pt(x, y float64) Point { return Point{X: x, Y: y} }

// Transform maps between canvas pixels and source-image pixels:
//
//	screen = image*zoom + pan
type Transform struct {
	zoom        float64
	defaultZoom float64
	panX, panY  float64

	MinZoom float64
	MaxZoom float64
	// Step is the factor applied by ZoomIn and ZoomOut.
	Step float64
}

func New(minZoom, maxZoom, step float64) *Transform {
	t := &Transform{MinZoom: minZoom, MaxZoom: maxZoom, Step: step, defaultZoom: 1}
	t.defaultZoom = t.clamp(1)
	t.Reset()
	return t
}

func (t *Transform) Zoom() float64        { return t.zoom }
func (t *Transform) DefaultZoom() float64 { return t.defaultZoom }
func (t *Transform) Pan() Point           { return Point{X: t.panX, Y: t.panY} }

func (t *Transform) ScreenToImage(p Point) Point {
	return Point{X: (p.X - t.panX) / t.zoom, Y: (p.Y - t.panY) / t.zoom}
}

func (t *Transform) ImageToScreen(p Point) Point {
	return Point{X: p.X*t.zoom + t.panX, Y: p.Y*t.zoom + t.panY}
}

// ZoomAt multiplies the zoom by factor while keeping the image point under
// the screen point p where it is.
func (t *Transform) ZoomAt(p Point, factor float64) {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return
	}
	old := t.zoom
	t.zoom = t.clamp(old * factor)
	ratio := t.zoom / old
	t.panX = p.X - (p.X-t.panX)*ratio
	t.panY = p.Y - (p.Y-t.panY)*ratio
}

func (t *Transform) ZoomIn(p Point)  { t.ZoomAt(p, t.Step) }
func (t *Transform) ZoomOut(p Point) { t.ZoomAt(p, 1/t.Step) }

func (t *Transform) PanBy(dx, dy float64) {
	t.panX += dx
	t.panY += dy
}

// Fit sets the default zoom so the image fits the canvas without being
// enlarged past 100%, then resets to it.
func (t *Transform) Fit(canvas, img image.Point) {
	z := 1.0
	if img.X > 0 && img.Y > 0 && canvas.X > 0 && canvas.Y > 0 {
		z = math.Min(math.Min(float64(canvas.X)/float64(img.X), float64(canvas.Y)/float64(img.Y)), 1.0)
	}
	t.defaultZoom = t.clamp(z)
	t.Reset()
}

// Reset restores the default zoom and removes any pan.
func (t *Transform) Reset() {
	t.zoom = t.defaultZoom
	t.panX, t.panY = 0, 0
}

// CenterOn pans so that the image point p sits in the middle of the canvas.
func (t *Transform) CenterOn(p Point, canvas image.Point) {
	t.panX = float64(canvas.X)/2 - p.X*t.zoom
	t.panY = float64(canvas.Y)/2 - p.Y*t.zoom
}

// VisibleRect is the part of an image with the given bounds that lands on
// the canvas, in image pixels. It may be empty.
func (t *Transform) VisibleRect(canvas image.Point, bounds image.Rectangle) image.Rectangle {
	tl := t.ScreenToImage(Point{})
	br := t.ScreenToImage(Point{X: float64(canvas.X), Y: float64(canvas.Y)})
	r := image.Rect(
		int(math.Floor(tl.X)), int(math.Floor(tl.Y)),
		int(math.Ceil(br.X)), int(math.Ceil(br.Y)),
	)
	return r.Intersect(bounds)
}

func (t *Transform) clamp(z float64) float64 {
	return math.Max(t.MinZoom, math.Min(t.MaxZoom, z))
}
