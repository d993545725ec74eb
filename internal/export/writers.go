package export

import (
	"context"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"math"
	"os"

	"github.com/disintegration/imaging"

	"github.com/ivlev/seqcrop/internal/system"
	"github.com/ivlev/seqcrop/internal/video"
)

// frameWriter receives cropped frames in order and produces the output files.
type frameWriter interface {
	Add(index int, img image.Image) error
	Close() error
	// Abort releases resources after a failed stream without finishing
	// the output.
	Abort()
	Paths() []string
}

type imageWriter struct {
	s     *Settings
	total int
	paths []string
}

func (w *imageWriter) Add(index int, img image.Image) error {
	path, err := UniquePath(w.s.Folder, FrameName(w.s.BaseName, index, w.total), w.s.imageExt())
	if err != nil {
		return &ExportError{Op: "reserve", Path: w.s.Folder, Err: err}
	}
	w.paths = append(w.paths, path)

	var opts []imaging.EncodeOption
	if w.s.ImageFormat == "jpeg" {
		opts = append(opts, imaging.JPEGQuality(w.s.JPEGQuality))
	}
	if err := imaging.Save(img, path, opts...); err != nil {
		return &ExportError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (w *imageWriter) Close() error    { return nil }
func (w *imageWriter) Abort()          {}
func (w *imageWriter) Paths() []string { return w.paths }

// gifWriter holds every quantised frame until Close; gif.EncodeAll needs
// the whole animation at once.
type gifWriter struct {
	s    *Settings
	anim gif.GIF
	path string
}

func newGIFWriter(s *Settings, total int) *gifWriter {
	return &gifWriter{
		s: s,
		anim: gif.GIF{
			Image:     make([]*image.Paletted, 0, total),
			Delay:     make([]int, 0, total),
			LoopCount: s.LoopCount,
		},
	}
}

// GIFDelay converts a frame rate to the per-frame delay in 1/100 s.
func GIFDelay(fps float64) int {
	return max(1, int(math.Round(100/fps)))
}

func (w *gifWriter) Add(_ int, img image.Image) error {
	b := img.Bounds()
	p := image.NewPaletted(image.Rectangle{Max: b.Size()}, palette.Plan9)
	draw.FloydSteinberg.Draw(p, p.Rect, img, b.Min)
	w.anim.Image = append(w.anim.Image, p)
	w.anim.Delay = append(w.anim.Delay, GIFDelay(w.s.FPS))
	return nil
}

func (w *gifWriter) Close() error {
	path, err := UniquePath(w.s.Folder, w.s.BaseName, "gif")
	if err != nil {
		return &ExportError{Op: "reserve", Path: w.s.Folder, Err: err}
	}
	w.path = path

	f, err := os.Create(path)
	if err != nil {
		return &ExportError{Op: "write", Path: path, Err: err}
	}
	if err := gif.EncodeAll(f, &w.anim); err != nil {
		f.Close()
		return &ExportError{Op: "encode", Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &ExportError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func (w *gifWriter) Abort() {}

func (w *gifWriter) Paths() []string {
	if w.path == "" {
		return nil
	}
	return []string{w.path}
}

type videoWriter struct {
	enc  *video.Writer
	path string
}

func newVideoWriter(ctx context.Context, s *Settings, size image.Point) (*videoWriter, error) {
	ffmpeg, err := system.FindFFmpeg(s.FFmpeg)
	if err != nil {
		return nil, &ExportError{Op: "ffmpeg", Err: err}
	}
	encoder := s.Encoder
	if encoder == "" {
		encoder = system.BestH264Encoder(ctx, ffmpeg)
	}

	path, err := UniquePath(s.Folder, s.BaseName, "mp4")
	if err != nil {
		return nil, &ExportError{Op: "reserve", Path: s.Folder, Err: err}
	}
	enc, err := video.Start(ctx, path, video.Options{
		FFmpeg:  ffmpeg,
		Encoder: encoder,
		FPS:     s.FPS,
		Tier:    s.Tier,
		Size:    size,
	})
	if err != nil {
		return nil, &ExportError{Op: "encode", Path: path, Err: err}
	}
	return &videoWriter{enc: enc, path: path}, nil
}

func (w *videoWriter) Add(_ int, img image.Image) error {
	if err := w.enc.WriteFrame(img); err != nil {
		return &ExportError{Op: "encode", Path: w.path, Err: err}
	}
	return nil
}

func (w *videoWriter) Close() error {
	if err := w.enc.Close(); err != nil {
		return &ExportError{Op: "encode", Path: w.path, Err: err}
	}
	return nil
}

func (w *videoWriter) Abort() { w.enc.Close() }

func (w *videoWriter) Paths() []string { return []string{w.path} }
