package analyzer

import (
	"image"
	"image/color"
	"image/draw"
	"testing"
)

func TestContrastDetector(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	draw.Draw(img, image.Rect(50, 50, 150, 150), &image.Uniform{C: color.Gray{Y: 255}}, image.Point{}, draw.Src)

	regions, err := NewContrastDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if len(regions) == 0 {
		t.Fatal("Expected at least one region, got none")
	}

	best, ok := Largest(regions)
	if !ok {
		t.Fatal("Largest found nothing")
	}
	if best.Rect.Dx() < 80 || best.Rect.Dy() < 80 {
		t.Errorf("Region too small: %v", best.Rect)
	}
	if !best.Rect.In(img.Bounds()) {
		t.Errorf("Region %v escapes the frame", best.Rect)
	}
}

func TestContrastDetectorDownscales(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2000, 1000))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(400, 200, 1200, 800), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	regions, err := NewContrastDetector().Detect(img)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	best, ok := Largest(regions)
	if !ok {
		t.Fatal("no region found")
	}
	// edges sit on the square's border, so the box should hug it within a few work pixels
	if abs(best.Rect.Min.X-400) > 48 || abs(best.Rect.Max.X-1200) > 48 {
		t.Errorf("unexpected region %v", best.Rect)
	}
}

func TestFlatImageHasNoRegions(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 100, 100))
	regions, err := NewContrastDetector().Detect(img)
	if err != nil {
		t.Fatal(err)
	}
	if len(regions) != 0 {
		t.Errorf("expected no regions, got %v", regions)
	}
	if _, ok := Largest(regions); ok {
		t.Error("Largest on empty input should report false")
	}
}

func TestNewDetector(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"contrast", false},
		{"", false},
		{"ocr", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDetector(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error, got nil")
				}
				return
			}
			if err != nil || d == nil {
				t.Errorf("NewDetector(%q) = %v, %v", tt.name, d, err)
			}
		})
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
