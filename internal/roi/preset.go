package roi

import (
	"fmt"
	"image"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Preset is a saved ROI together with the frame size it was drawn on.
type Preset struct {
	Name   string `yaml:"name,omitempty"`
	X0     int    `yaml:"x0"`
	Y0     int    `yaml:"y0"`
	X1     int    `yaml:"x1"`
	Y1     int    `yaml:"y1"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
}

func NewPreset(name string, r image.Rectangle, bounds image.Point) *Preset {
	return &Preset{
		Name: name,
		X0:   r.Min.X, Y0: r.Min.Y, X1: r.Max.X, Y1: r.Max.Y,
		Width: bounds.X, Height: bounds.Y,
	}
}

func (p *Preset) Rect() image.Rectangle {
	return image.Rect(p.X0, p.Y0, p.X1, p.Y1)
}

// RectFor maps the preset onto a frame of the given size. Frames of a
// different size get the rectangle scaled proportionally.
func (p *Preset) RectFor(size image.Point) image.Rectangle {
	r := p.Rect()
	if p.Width <= 0 || p.Height <= 0 || (size.X == p.Width && size.Y == p.Height) {
		return r
	}
	sx := float64(size.X) / float64(p.Width)
	sy := float64(size.Y) / float64(p.Height)
	return image.Rect(
		int(math.Round(float64(r.Min.X)*sx)),
		int(math.Round(float64(r.Min.Y)*sy)),
		int(math.Round(float64(r.Max.X)*sx)),
		int(math.Round(float64(r.Max.Y)*sy)),
	)
}

// SavePreset writes p to a YAML file.
func SavePreset(p *Preset, path string) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadPreset reads a preset from a YAML file.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}
	if p.Rect().Canon().Empty() {
		return nil, &ROIError{Rect: p.Rect(), Err: ErrDegenerate}
	}
	return &p, nil
}
