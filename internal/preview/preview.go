package preview

import (
	"fmt"
	"image"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"github.com/nfnt/resize"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/ivlev/seqcrop/internal/config"
	"github.com/ivlev/seqcrop/internal/roi"
	"github.com/ivlev/seqcrop/internal/viewport"
)

const background = "#202020"

var (
	fontOnce sync.Once
	font     *truetype.Font
	fontErr  error
)

func labelFont() (*truetype.Font, error) {
	fontOnce.Do(func() {
		font, fontErr = truetype.Parse(goregular.TTF)
	})
	return font, fontErr
}

// Scene is everything drawn on the canvas.
type Scene struct {
	Frame  image.Image
	View   *viewport.Transform
	Canvas image.Point
	Editor *roi.Editor
	Marker *viewport.Point
	Style  config.ROIStyle
	// MaxImageSize caps the longest side of the scaled frame.
	MaxImageSize int
}

// Render draws the visible part of the frame at the current zoom and pan,
// then the ROI overlay on top.
func Render(sc Scene) (image.Image, error) {
	if sc.Canvas.X <= 0 || sc.Canvas.Y <= 0 {
		return nil, fmt.Errorf("invalid canvas %v", sc.Canvas)
	}
	dc := gg.NewContext(sc.Canvas.X, sc.Canvas.Y)
	dc.SetHexColor(background)
	dc.Clear()

	if sc.Frame != nil {
		drawFrame(dc, sc)
	}
	if sc.Editor != nil {
		if err := drawROI(dc, sc); err != nil {
			return nil, err
		}
	}
	if sc.Marker != nil {
		drawMarker(dc, sc.View.ImageToScreen(*sc.Marker), sc.Style)
	}
	return dc.Image(), nil
}

func drawFrame(dc *gg.Context, sc Scene) {
	b := sc.Frame.Bounds()
	vis := sc.View.VisibleRect(sc.Canvas, image.Rectangle{Max: b.Size()})
	if vis.Empty() {
		return
	}

	zoom := sc.View.Zoom()
	w := int(math.Round(float64(vis.Dx()) * zoom))
	h := int(math.Round(float64(vis.Dy()) * zoom))
	if limit := sc.MaxImageSize; limit > 0 && max(w, h) > limit {
		k := float64(limit) / float64(max(w, h))
		w, h = int(float64(w)*k), int(float64(h)*k)
	}
	w, h = max(w, 1), max(h, 1)

	sub := imaging.Crop(sc.Frame, vis.Add(b.Min))
	interp := resize.Bilinear
	if zoom > 1 {
		// keep pixels crisp when inspecting at high magnification
		interp = resize.NearestNeighbor
	}
	scaled := resize.Resize(uint(w), uint(h), sub, interp)

	at := sc.View.ImageToScreen(viewport.Pt(float64(vis.Min.X), float64(vis.Min.Y)))
	dc.DrawImage(scaled, int(math.Round(at.X)), int(math.Round(at.Y)))
}

func drawROI(dc *gg.Context, sc Scene) error {
	e := sc.Editor
	r, ok := e.ROI()
	if !ok {
		return nil
	}

	tl := sc.View.ImageToScreen(viewport.Pt(float64(r.Min.X), float64(r.Min.Y)))
	br := sc.View.ImageToScreen(viewport.Pt(float64(r.Max.X), float64(r.Max.Y)))

	dc.SetHexColor(sc.Style.Color)
	dc.SetLineWidth(sc.Style.LineWidth)
	dc.SetDash(sc.Style.Dash...)
	dc.DrawRectangle(tl.X, tl.Y, br.X-tl.X, br.Y-tl.Y)
	dc.Stroke()
	dc.SetDash()

	if e.State() != roi.Drawing {
		half := sc.Style.HandleSize / 2
		dc.SetHexColor(sc.Style.HandleColor)
		for _, h := range []roi.Handle{roi.NW, roi.NE, roi.SW, roi.SE} {
			c := e.ScreenCorner(h)
			dc.DrawRectangle(c.X-half, c.Y-half, sc.Style.HandleSize, sc.Style.HandleSize)
		}
		dc.Fill()
	}

	f, err := labelFont()
	if err != nil {
		return err
	}
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: 12}))
	dc.SetHexColor(sc.Style.Color)
	label := fmt.Sprintf("%d×%d at (%d, %d)", r.Dx(), r.Dy(), r.Min.X, r.Min.Y)
	dc.DrawStringAnchored(label, tl.X, tl.Y-4, 0, 0)
	return nil
}

func drawMarker(dc *gg.Context, p viewport.Point, style config.ROIStyle) {
	const arm = 10
	dc.SetHexColor(style.HandleColor)
	dc.SetLineWidth(1)
	dc.DrawLine(p.X-arm, p.Y, p.X+arm, p.Y)
	dc.DrawLine(p.X, p.Y-arm, p.X, p.Y+arm)
	dc.Stroke()
}
