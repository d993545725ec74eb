package roi

import (
	"image"
	"math"

	"github.com/ivlev/seqcrop/internal/viewport"
)

type State int

const (
	Idle State = iota
	Drawing
	Defined
	Moving
	Resizing
)

func (s State) String() string {
	return [...]string{"idle", "drawing", "defined", "moving", "resizing"}[s]
}

// Editor is the ROI state machine. It is fed press/drag/release events in
// screen coordinates and keeps the rectangle in image pixels of the
// reference frame.
type Editor struct {
	view       *viewport.Transform
	bounds     image.Point
	minSize    int
	handleSize float64

	state State
	armed bool
	rect  image.Rectangle

	anchor    image.Point
	handle    Handle
	pinned    image.Point
	pressAt   viewport.Point
	startRect image.Rectangle

	lastDiscard error
}

// NewEditor creates an editor bound to view. handleSize is the grab radius
// around each corner in screen pixels.
func NewEditor(view *viewport.Transform, minSize int, handleSize float64) *Editor {
	if minSize < 1 {
		minSize = 1
	}
	return &Editor{view: view, minSize: minSize, handleSize: handleSize}
}

func (e *Editor) State() State              { return e.state }
func (e *Editor) Armed() bool               { return e.armed }
func (e *Editor) Bounds() image.Point       { return e.bounds }
func (e *Editor) ActiveHandle() Handle      { return e.handle }
func (e *Editor) LastDiscard() error        { return e.lastDiscard }
func (e *Editor) View() *viewport.Transform { return e.view }

// ROI returns the current rectangle. While drawing it may still be empty.
func (e *Editor) ROI() (image.Rectangle, bool) {
	if e.state == Idle {
		return image.Rectangle{}, false
	}
	return e.rect, e.state != Drawing || !e.rect.Empty()
}

// Arm clears any ROI and enters draw mode against a reference frame of the
// given size.
func (e *Editor) Arm(bounds image.Point) {
	e.Clear()
	e.bounds = bounds
	e.armed = true
}

// Clear drops the ROI and any gesture in progress.
func (e *Editor) Clear() {
	e.state = Idle
	e.armed = false
	e.rect = image.Rectangle{}
	e.handle = NoHandle
}

// Set places r directly, clipped to the reference bounds.
func (e *Editor) Set(r image.Rectangle, bounds image.Point) error {
	c, err := Clamp(r, bounds, e.minSize)
	if err != nil {
		return err
	}
	e.Clear()
	e.bounds = bounds
	e.rect = c
	e.state = Defined
	return nil
}

// HandleAt returns the corner handle under screen point p, if any.
func (e *Editor) HandleAt(p viewport.Point) Handle {
	if e.state == Idle || e.state == Drawing {
		return NoHandle
	}
	for _, h := range []Handle{NW, NE, SW, SE} {
		c := e.ScreenCorner(h)
		if math.Abs(c.X-p.X) <= e.handleSize && math.Abs(c.Y-p.Y) <= e.handleSize {
			return h
		}
	}
	return NoHandle
}

// ScreenCorner returns where handle h is drawn on the canvas.
func (e *Editor) ScreenCorner(h Handle) viewport.Point {
	c := Corner(e.rect, h)
	return e.view.ImageToScreen(viewport.Pt(float64(c.X), float64(c.Y)))
}

// Press starts a gesture. It reports whether the event was consumed.
func (e *Editor) Press(p viewport.Point) bool {
	switch e.state {
	case Defined:
		if h := e.HandleAt(p); h != NoHandle {
			e.state = Resizing
			e.handle = h
			e.pinned = Corner(e.rect, opposite(h))
			return true
		}
		ip := e.view.ScreenToImage(p)
		if ip.X >= float64(e.rect.Min.X) && ip.X < float64(e.rect.Max.X) &&
			ip.Y >= float64(e.rect.Min.Y) && ip.Y < float64(e.rect.Max.Y) {
			e.state = Moving
			e.pressAt = ip
			e.startRect = e.rect
			return true
		}
		if e.armed {
			e.beginDrawing(p)
			return true
		}
		return false
	case Idle:
		if !e.armed {
			return false
		}
		e.beginDrawing(p)
		return true
	}
	return false
}

// Drag continues the active gesture.
func (e *Editor) Drag(p viewport.Point) bool {
	switch e.state {
	case Drawing:
		e.rect = image.Rectangle{Min: e.anchor, Max: e.snap(p)}.Canon()
	case Resizing:
		e.rect = e.resized(e.snap(p))
	case Moving:
		e.rect = e.moved(p)
	default:
		return false
	}
	return true
}

// Release ends the active gesture. A drawn rectangle smaller than the minimum
// size is dropped and the editor returns to Idle.
func (e *Editor) Release(p viewport.Point) bool {
	switch e.state {
	case Drawing:
		e.Drag(p)
		if e.rect.Dx() < e.minSize || e.rect.Dy() < e.minSize {
			e.lastDiscard = &ROIError{Rect: e.rect, Err: ErrDegenerate}
			e.Clear()
			return true
		}
		e.state = Defined
		e.armed = false
	case Resizing, Moving:
		e.Drag(p)
		e.state = Defined
		e.handle = NoHandle
	default:
		return false
	}
	return true
}

func (e *Editor) beginDrawing(p viewport.Point) {
	e.anchor = e.snap(p)
	e.rect = image.Rectangle{Min: e.anchor, Max: e.anchor}
	e.state = Drawing
	e.lastDiscard = nil
}

// snap maps a screen point to the nearest pixel grid line inside bounds.
func (e *Editor) snap(p viewport.Point) image.Point {
	ip := e.view.ScreenToImage(p)
	return image.Pt(
		clampInt(int(math.Round(ip.X)), 0, e.bounds.X),
		clampInt(int(math.Round(ip.Y)), 0, e.bounds.Y),
	)
}

// resized moves the active corner to pt while keeping it at least minSize
// away from the pinned corner, so the rectangle never flips.
func (e *Editor) resized(pt image.Point) image.Rectangle {
	x, y := pt.X, pt.Y
	switch e.handle {
	case NW, SW:
		x = min(x, e.pinned.X-e.minSize)
	case NE, SE:
		x = max(x, e.pinned.X+e.minSize)
	}
	switch e.handle {
	case NW, NE:
		y = min(y, e.pinned.Y-e.minSize)
	case SW, SE:
		y = max(y, e.pinned.Y+e.minSize)
	}
	x = clampInt(x, 0, e.bounds.X)
	y = clampInt(y, 0, e.bounds.Y)
	return image.Rectangle{Min: e.pinned, Max: image.Pt(x, y)}.Canon()
}

func (e *Editor) moved(p viewport.Point) image.Rectangle {
	ip := e.view.ScreenToImage(p)
	d := image.Pt(int(math.Round(ip.X-e.pressAt.X)), int(math.Round(ip.Y-e.pressAt.Y)))
	r := e.startRect.Add(d)

	if r.Min.X < 0 {
		r = r.Add(image.Pt(-r.Min.X, 0))
	}
	if r.Min.Y < 0 {
		r = r.Add(image.Pt(0, -r.Min.Y))
	}
	if r.Max.X > e.bounds.X {
		r = r.Sub(image.Pt(r.Max.X-e.bounds.X, 0))
	}
	if r.Max.Y > e.bounds.Y {
		r = r.Sub(image.Pt(0, r.Max.Y-e.bounds.Y))
	}
	return r
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
