package roi

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrDegenerate = errors.New("roi has no area")
	ErrNoROI      = errors.New("no roi defined")
)

// ROIError describes a rectangle that could not be used as an ROI.
type ROIError struct {
	Rect image.Rectangle
	Err  error
}

func (e *ROIError) Error() string {
	return fmt.Sprintf("roi %v: %v", e.Rect, e.Err)
}

func (e *ROIError) Unwrap() error {
	return e.Err
}

// Clamp normalises r and clips it to a frame of the given size. The result
// is checked against minSize on both axes.
func Clamp(r image.Rectangle, size image.Point, minSize int) (image.Rectangle, error) {
	c := r.Canon().Intersect(image.Rectangle{Max: size})
	if c.Dx() < minSize || c.Dy() < minSize || c.Empty() {
		return image.Rectangle{}, &ROIError{Rect: r, Err: ErrDegenerate}
	}
	return c, nil
}

// Handle identifies one of the four resize corners.
type Handle int

const (
	NoHandle Handle = iota
	NW
	NE
	SW
	SE
)

func (h Handle) String() string {
	switch h {
	case NW:
		return "nw"
	case NE:
		return "ne"
	case SW:
		return "sw"
	case SE:
		return "se"
	default:
		return "none"
	}
}

// Corner returns the image-space position of handle h on r.
func Corner(r image.Rectangle, h Handle) image.Point {
	switch h {
	case NW:
		return r.Min
	case NE:
		return image.Pt(r.Max.X, r.Min.Y)
	case SW:
		return image.Pt(r.Min.X, r.Max.Y)
	case SE:
		return r.Max
	}
	return image.Point{}
}

func opposite(h Handle) Handle {
	switch h {
	case NW:
		return SE
	case NE:
		return SW
	case SW:
		return NE
	case SE:
		return NW
	}
	return NoHandle
}
