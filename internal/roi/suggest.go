package roi

import (
	"fmt"
	"image"

	"github.com/ivlev/seqcrop/internal/analyzer"
)

// Suggest proposes an ROI around the largest high-contrast region of img,
// expressed relative to img's origin.
func Suggest(img image.Image, minSize int) (image.Rectangle, error) {
	det, err := analyzer.NewDetector("contrast")
	if err != nil {
		return image.Rectangle{}, err
	}
	regions, err := det.Detect(img)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("analyze frame: %w", err)
	}

	best, ok := analyzer.Largest(regions)
	if !ok {
		return image.Rectangle{}, fmt.Errorf("suggest: %w", ErrNoROI)
	}
	b := img.Bounds()
	return Clamp(best.Rect.Sub(b.Min), b.Size(), minSize)
}
