package export

import (
	"context"
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ivlev/seqcrop/internal/metrics"
	"github.com/ivlev/seqcrop/internal/source"
	"github.com/ivlev/seqcrop/internal/system"
)

var framePool = system.NewFramePool()

// clip returns roi ∩ img.Bounds() in img's coordinate space. roi is given
// relative to the frame's top-left corner.
func clip(img image.Image, roi image.Rectangle) (image.Rectangle, error) {
	b := img.Bounds()
	r := roi.Canon().Add(b.Min).Intersect(b)
	if r.Empty() {
		return image.Rectangle{}, ErrEmptyCrop
	}
	return r, nil
}

// CropFrame cuts roi out of img. Frames smaller than the ROI yield the
// overlapping part only.
func CropFrame(img image.Image, roi image.Rectangle) (image.Image, error) {
	r, err := clip(img, roi)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, r), nil
}

// CropAll crops every frame of src, in order. The whole result is held in
// memory; use Stream for long sequences.
func CropAll(ctx context.Context, src source.Source, roi image.Rectangle) ([]image.Image, error) {
	out := make([]image.Image, 0, src.FrameCount())
	for i := 0; i < src.FrameCount(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := src.Frame(i)
		if err != nil {
			return nil, &ExportError{Op: "decode", Path: src.Name(i), Err: err}
		}
		c, err := CropFrame(img, roi)
		if err != nil {
			return nil, &ExportError{Op: "crop", Path: src.Name(i), Err: err}
		}
		out = append(out, c)
	}
	return out, nil
}

// Stream decodes and crops the frames of src on a background goroutine and
// hands them to fn in order on the calling goroutine. At most lookahead crops
// exist at any time. The image passed to fn is recycled once fn returns.
func Stream(ctx context.Context, src source.Source, roi image.Rectangle, lookahead int, fn func(index int, img image.Image) error) error {
	return stream(ctx, src, roi, lookahead, false, fn)
}

type cropped struct {
	index int
	img   *image.RGBA
}

func stream(ctx context.Context, src source.Source, roi image.Rectangle, lookahead int, pad bool, fn func(int, image.Image) error) error {
	if lookahead < 1 {
		lookahead = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := semaphore.NewWeighted(int64(lookahead))
	frames := make(chan cropped, lookahead)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(frames)
		for i := 0; i < src.FrameCount(); i++ {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			buf, err := cropInto(src, i, roi, pad)
			if err != nil {
				sem.Release(1)
				return err
			}
			select {
			case frames <- cropped{index: i, img: buf}:
			case <-gctx.Done():
				framePool.Put(buf)
				sem.Release(1)
				return gctx.Err()
			}
		}
		return nil
	})

	var fnErr error
	for f := range frames {
		if fnErr == nil {
			if fnErr = fn(f.index, f.img); fnErr != nil {
				cancel()
			} else {
				metrics.FramesCroppedTotal.Inc()
			}
		}
		framePool.Put(f.img)
		sem.Release(1)
	}

	err := g.Wait()
	if fnErr != nil {
		return fnErr
	}
	return err
}

// cropInto decodes frame i and copies the clipped ROI into a pooled buffer.
// With pad set the buffer has the full ROI size and the parts outside the
// frame are black.
func cropInto(src source.Source, i int, roi image.Rectangle, pad bool) (*image.RGBA, error) {
	img, err := src.Frame(i)
	if err != nil {
		return nil, &ExportError{Op: "decode", Path: src.Name(i), Err: err}
	}
	r, err := clip(img, roi)
	if err != nil {
		return nil, &ExportError{Op: "crop", Path: src.Name(i), Err: err}
	}

	if !pad {
		buf := framePool.Get(r.Size())
		draw.Draw(buf, buf.Rect, img, r.Min, draw.Src)
		return buf, nil
	}

	roi = roi.Canon()
	buf := framePool.Get(roi.Size())
	draw.Draw(buf, buf.Rect, image.Black, image.Point{}, draw.Src)
	at := r.Min.Sub(img.Bounds().Min).Sub(roi.Min)
	draw.Draw(buf, image.Rectangle{Min: at, Max: at.Add(r.Size())}, img, r.Min, draw.Src)
	return buf, nil
}
