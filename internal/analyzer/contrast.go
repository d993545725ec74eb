package analyzer

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ContrastDetector marks pixels with a strong Sobel gradient, grows them into
// blobs and reports each blob's bounding box.
type ContrastDetector struct {
	MinArea       int     // in source pixels
	EdgeThreshold float64 // gradient magnitude
	// WorkSize is the longest side the frame is reduced to before scanning.
	// 0 scans at full resolution.
	WorkSize int
}

func NewContrastDetector() *ContrastDetector {
	return &ContrastDetector{
		MinArea:       500,
		EdgeThreshold: 30.0,
		WorkSize:      512,
	}
}

func (d *ContrastDetector) Detect(img image.Image) ([]Region, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, nil
	}

	work := imaging.Grayscale(img)
	scale := 1.0
	if d.WorkSize > 0 && max(b.Dx(), b.Dy()) > d.WorkSize {
		if b.Dx() >= b.Dy() {
			work = imaging.Resize(work, d.WorkSize, 0, imaging.Box)
		} else {
			work = imaging.Resize(work, 0, d.WorkSize, imaging.Box)
		}
		scale = float64(b.Dx()) / float64(work.Bounds().Dx())
	}

	w, h := work.Bounds().Dx(), work.Bounds().Dy()
	lum := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := work.Pix[y*work.Stride:]
		for x := 0; x < w; x++ {
			lum[y*w+x] = float64(row[x*4])
		}
	}

	edges := sobel(lum, w, h, d.EdgeThreshold)
	grown := dilate(edges, w, h, 2, 2)

	var regions []Region
	for _, c := range components(grown, w, h) {
		r := image.Rect(
			b.Min.X+int(math.Floor(float64(c.rect.Min.X)*scale)),
			b.Min.Y+int(math.Floor(float64(c.rect.Min.Y)*scale)),
			b.Min.X+int(math.Ceil(float64(c.rect.Max.X)*scale)),
			b.Min.Y+int(math.Ceil(float64(c.rect.Max.Y)*scale)),
		).Intersect(b)
		if r.Dx()*r.Dy() < d.MinArea {
			continue
		}
		area := c.rect.Dx() * c.rect.Dy()
		regions = append(regions, Region{Rect: r, Score: float64(countEdges(edges, w, c.rect)) / float64(area)})
	}
	return regions, nil
}

func sobel(lum []float64, w, h int, threshold float64) []bool {
	out := make([]bool, w*h)
	at := func(x, y int) float64 { return lum[y*w+x] }
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			gx := -at(x-1, y-1) + at(x+1, y-1) -
				2*at(x-1, y) + 2*at(x+1, y) -
				at(x-1, y+1) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			out[y*w+x] = math.Hypot(gx, gy) > threshold
		}
	}
	return out
}

// dilate grows set pixels by radius in every direction, iterations times.
func dilate(in []bool, w, h, radius, iterations int) []bool {
	cur := in
	for it := 0; it < iterations; it++ {
		next := make([]bool, w*h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				if !cur[y*w+x] {
					continue
				}
				for yy := max(0, y-radius); yy <= min(h-1, y+radius); yy++ {
					for xx := max(0, x-radius); xx <= min(w-1, x+radius); xx++ {
						next[yy*w+xx] = true
					}
				}
			}
		}
		cur = next
	}
	return cur
}

type component struct {
	rect image.Rectangle
}

// components labels 4-connected blobs and returns their bounding boxes.
func components(mask []bool, w, h int) []component {
	seen := make([]bool, w*h)
	var out []component
	var stack []int

	for start := range mask {
		if !mask[start] || seen[start] {
			continue
		}
		minX, minY := start%w, start/w
		maxX, maxY := minX, minY
		seen[start] = true
		stack = append(stack[:0], start)

		for len(stack) > 0 {
			i := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			x, y := i%w, i/w
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)

			for _, n := range [4][2]int{{x + 1, y}, {x - 1, y}, {x, y + 1}, {x, y - 1}} {
				if n[0] < 0 || n[0] >= w || n[1] < 0 || n[1] >= h {
					continue
				}
				j := n[1]*w + n[0]
				if mask[j] && !seen[j] {
					seen[j] = true
					stack = append(stack, j)
				}
			}
		}
		out = append(out, component{rect: image.Rect(minX, minY, maxX+1, maxY+1)})
	}
	return out
}

func countEdges(edges []bool, w int, r image.Rectangle) int {
	n := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			if edges[y*w+x] {
				n++
			}
		}
	}
	return n
}
