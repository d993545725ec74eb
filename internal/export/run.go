package export

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ivlev/seqcrop/internal/metrics"
	"github.com/ivlev/seqcrop/internal/source"
	"github.com/ivlev/seqcrop/internal/system"
)

// Progress is called after each frame is written.
type Progress func(done, total int)

// Result summarises a finished export.
type Result struct {
	ID      string        `json:"id"`
	Kind    string        `json:"kind"`
	Paths   []string      `json:"paths"`
	Frames  int           `json:"frames"`
	Bytes   int64         `json:"bytes"`
	Elapsed time.Duration `json:"elapsed"`
}

func (r *Result) String() string {
	return fmt.Sprintf("%d frames -> %d file(s), %s in %s",
		r.Frames, len(r.Paths), humanize.Bytes(uint64(r.Bytes)), r.Elapsed.Round(time.Millisecond))
}

// Run crops every frame of src to roi and writes them out as s describes.
// Files written before a failure are left in place.
func Run(ctx context.Context, src source.Source, roi image.Rectangle, s Settings, progress Progress, log *zap.Logger) (*Result, error) {
	return RunWithID(ctx, uuid.NewString(), src, roi, s, progress, log)
}

// RunWithID is Run with a caller-chosen job id.
func RunWithID(ctx context.Context, id string, src source.Source, roi image.Rectangle, s Settings, progress Progress, log *zap.Logger) (res *Result, err error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	roi = roi.Canon()
	if roi.Empty() {
		return nil, &ExportError{Op: "roi", Err: ErrEmptyCrop}
	}
	total := src.FrameCount()
	if total == 0 {
		return nil, &ExportError{Op: "source", Err: source.ErrNoFrames}
	}
	if err := os.MkdirAll(s.Folder, 0755); err != nil {
		return nil, &ExportError{Op: "mkdir", Path: s.Folder, Err: err}
	}

	kind := s.Kind.String()
	start := time.Now()
	metrics.ActiveExports.Inc()
	defer func() {
		metrics.ActiveExports.Dec()
		status := "ok"
		if err != nil {
			status = "error"
		}
		metrics.ExportsTotal.WithLabelValues(kind, status).Inc()
		metrics.ExportDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}()

	lookahead := s.Lookahead
	if lookahead == 0 {
		lookahead = system.LookaheadFor(roi.Dx() * roi.Dy() * 4)
	}
	log.Info("export started",
		zap.String("id", id),
		zap.String("kind", kind),
		zap.Stringer("roi", roi),
		zap.Int("frames", total),
		zap.Int("lookahead", lookahead),
		zap.String("folder", s.Folder))

	var w frameWriter
	switch s.Kind {
	case Images:
		w = &imageWriter{s: &s, total: total}
	case GIF:
		w = newGIFWriter(&s, total)
	case Video:
		vw, err := newVideoWriter(ctx, &s, roi.Size())
		if err != nil {
			return nil, err
		}
		w = vw
	}

	done := 0
	err = stream(ctx, src, roi, lookahead, s.Kind != Images, func(i int, img image.Image) error {
		if err := w.Add(i, img); err != nil {
			return err
		}
		done++
		if progress != nil {
			progress(done, total)
		}
		return nil
	})
	if err != nil {
		w.Abort()
		log.Warn("export failed", zap.String("id", id), zap.Int("done", done), zap.Error(err))
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	res = &Result{
		ID:      id,
		Kind:    kind,
		Paths:   w.Paths(),
		Frames:  done,
		Elapsed: time.Since(start),
	}
	for _, p := range res.Paths {
		if fi, err := os.Stat(p); err == nil {
			res.Bytes += fi.Size()
		}
	}
	metrics.BytesWrittenTotal.WithLabelValues(kind).Add(float64(res.Bytes))

	log.Info("export finished", zap.String("id", id), zap.Stringer("result", res))
	return res, nil
}
