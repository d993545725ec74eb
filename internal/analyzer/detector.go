package analyzer

import (
	"fmt"
	"image"
)

// Region is an area of a frame that stands out from its surroundings.
type Region struct {
	Rect  image.Rectangle
	Score float64 // share of edge pixels inside Rect, 0..1
}

// Detector finds candidate regions in a frame.
type Detector interface {
	Detect(img image.Image) ([]Region, error)
}

// NewDetector returns the detector registered under name.
func NewDetector(name string) (Detector, error) {
	switch name {
	case "contrast", "":
		return NewContrastDetector(), nil
	default:
		return nil, fmt.Errorf("unknown detector: %s", name)
	}
}

// Largest returns the region with the biggest area, or false if none.
func Largest(regions []Region) (Region, bool) {
	var best Region
	found := false
	for _, r := range regions {
		a := r.Rect.Dx() * r.Rect.Dy()
		if !found || a > best.Rect.Dx()*best.Rect.Dy() {
			best, found = r, true
		}
	}
	return best, found
}
