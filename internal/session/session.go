package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ivlev/seqcrop/internal/config"
	"github.com/ivlev/seqcrop/internal/export"
	"github.com/ivlev/seqcrop/internal/metrics"
	"github.com/ivlev/seqcrop/internal/roi"
	"github.com/ivlev/seqcrop/internal/source"
	"github.com/ivlev/seqcrop/internal/viewport"
)

var ErrNotLoaded = errors.New("no sequence loaded")

// Session is the whole editing state: the open sequence, the frame cursor,
// the viewport and the ROI editor. It is not safe for concurrent use.
type Session struct {
	cfg *config.Config
	log *zap.Logger

	src     source.Source
	cursor  *source.Cursor
	view    *viewport.Transform
	editor  *roi.Editor
	canvas  image.Point
	input   string
	output  string
	skipped []source.Skip
	marker  *viewport.Point
	fitted  image.Point
}

func New(cfg *config.Config, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	view := viewport.New(cfg.Zoom.Min, cfg.Zoom.Max, cfg.Zoom.Step)
	return &Session{
		cfg:    cfg,
		log:    log,
		view:   view,
		editor: roi.NewEditor(view, cfg.ROI.MinSize, cfg.ROI.HandleSize),
		canvas: image.Pt(cfg.Canvas.Width, cfg.Canvas.Height),
	}
}

func (s *Session) Config() *config.Config     { return s.cfg }
func (s *Session) View() *viewport.Transform  { return s.view }
func (s *Session) Editor() *roi.Editor        { return s.editor }
func (s *Session) Canvas() image.Point        { return s.canvas }
func (s *Session) Marker() *viewport.Point    { return s.marker }
func (s *Session) Loaded() bool               { return s.src != nil }
func (s *Session) Skipped() []source.Skip     { return s.skipped }
func (s *Session) OutputFolder() string       { return s.output }
func (s *Session) SetOutputFolder(dir string) { s.output = dir }
func (s *Session) Cursor() *source.Cursor     { return s.cursor }
func (s *Session) Input() string              { return s.input }

// Open loads a folder of images, or the pages of a PDF when path is a .pdf
// file. The export folder defaults to an "export" folder next to the input.
func (s *Session) Open(path string) error {
	var (
		src     source.Source
		skipped []source.Skip
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		pdf, err := source.NewPDFSource(path, s.cfg.PDFDPI)
		if err != nil {
			return err
		}
		src = pdf
	} else {
		seq, err := source.Load(path, s.cfg.Paths.Extensions, s.log)
		if err != nil {
			return err
		}
		src, skipped = seq, seq.Skipped()
	}

	if s.src != nil {
		s.src.Close()
	}
	followInput := s.output == "" || s.output == s.defaultOutput()
	s.src = src
	s.cursor = source.NewCursor(src)
	s.skipped = skipped
	s.input = path
	s.marker = nil
	s.fitted = image.Point{}
	s.editor.Clear()
	if followInput {
		s.output = s.defaultOutput()
	}
	metrics.FramesSkippedTotal.Add(float64(len(skipped)))

	s.log.Info("sequence opened",
		zap.String("path", path),
		zap.Int("frames", src.FrameCount()),
		zap.Int("skipped", len(skipped)))
	return s.refit()
}

func (s *Session) defaultOutput() string {
	if s.input == "" {
		return ""
	}
	return filepath.Join(filepath.Dir(filepath.Clean(s.input)), s.cfg.Paths.Export)
}

func (s *Session) Close() error {
	if s.src == nil {
		return nil
	}
	err := s.src.Close()
	s.src, s.cursor = nil, nil
	s.editor.Clear()
	return err
}

// Frame returns the decoded current frame.
func (s *Session) Frame() (image.Image, error) {
	if s.cursor == nil {
		return nil, ErrNotLoaded
	}
	return s.cursor.Current()
}

// FrameSize returns the size of the current frame.
func (s *Session) FrameSize() (image.Point, error) {
	if s.cursor == nil {
		return image.Point{}, ErrNotLoaded
	}
	return s.cursor.CurrentSize()
}

// Next, Previous and Seek move the cursor. The view is refitted only when
// the new frame has a different size, so zoom survives browsing a uniform
// sequence.
func (s *Session) Next() (bool, error) {
	if s.cursor == nil {
		return false, ErrNotLoaded
	}
	moved := s.cursor.Next()
	return moved, s.refit()
}

func (s *Session) Previous() (bool, error) {
	if s.cursor == nil {
		return false, ErrNotLoaded
	}
	moved := s.cursor.Previous()
	return moved, s.refit()
}

func (s *Session) Seek(index int) error {
	if s.cursor == nil {
		return ErrNotLoaded
	}
	s.cursor.Seek(index)
	return s.refit()
}

func (s *Session) refit() error {
	size, err := s.cursor.CurrentSize()
	if err != nil {
		return err
	}
	if size != s.fitted {
		s.view.Fit(s.canvas, size)
		s.fitted = size
	}
	return nil
}

// SetCanvas changes the canvas size and fits the current frame to it.
func (s *Session) SetCanvas(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("invalid canvas %dx%d", w, h)
	}
	s.canvas = image.Pt(w, h)
	if s.cursor == nil {
		return nil
	}
	s.fitted = image.Point{}
	return s.refit()
}

func (s *Session) ZoomIn(p viewport.Point)  { s.view.ZoomIn(p) }
func (s *Session) ZoomOut(p viewport.Point) { s.view.ZoomOut(p) }
func (s *Session) Pan(dx, dy float64)       { s.view.PanBy(dx, dy) }

func (s *Session) ResetView() {
	s.view.Reset()
	s.marker = nil
}

// CenterOn pans so that image point p sits in the middle of the canvas and
// marks it with a crosshair.
func (s *Session) CenterOn(p viewport.Point) error {
	size, err := s.FrameSize()
	if err != nil {
		return err
	}
	if p.X < 0 || p.Y < 0 || p.X >= float64(size.X) || p.Y >= float64(size.Y) {
		return fmt.Errorf("point (%g, %g) outside %dx%d frame", p.X, p.Y, size.X, size.Y)
	}
	s.view.CenterOn(p, s.canvas)
	s.marker = &p
	return nil
}

// ArmROI enters draw mode against the current frame.
func (s *Session) ArmROI() error {
	size, err := s.FrameSize()
	if err != nil {
		return err
	}
	s.editor.Arm(size)
	return nil
}

func (s *Session) SetROI(r image.Rectangle) error {
	size, err := s.FrameSize()
	if err != nil {
		return err
	}
	return s.editor.Set(r, size)
}

func (s *Session) ClearROI() { s.editor.Clear() }

func (s *Session) ROI() (image.Rectangle, bool) {
	if st := s.editor.State(); st == roi.Idle || st == roi.Drawing {
		return image.Rectangle{}, false
	}
	return s.editor.ROI()
}

// Press, Drag and Release feed pointer events into the ROI editor. When the
// editor does not consume a drag it pans the view instead.
func (s *Session) Press(p viewport.Point) bool {
	if s.cursor == nil {
		return false
	}
	return s.editor.Press(p)
}

func (s *Session) Drag(p viewport.Point, dx, dy float64) {
	if s.cursor == nil {
		return
	}
	if !s.editor.Drag(p) {
		s.view.PanBy(dx, dy)
	}
}

func (s *Session) Release(p viewport.Point) bool {
	if s.cursor == nil {
		return false
	}
	return s.editor.Release(p)
}

// SuggestROI places an ROI around the most prominent region of the current
// frame.
func (s *Session) SuggestROI() (image.Rectangle, error) {
	img, err := s.Frame()
	if err != nil {
		return image.Rectangle{}, err
	}
	r, err := roi.Suggest(img, s.cfg.ROI.MinSize)
	if err != nil {
		return image.Rectangle{}, err
	}
	return r, s.editor.Set(r, img.Bounds().Size())
}

func (s *Session) SavePreset(path, name string) error {
	r, ok := s.ROI()
	if !ok {
		return roi.ErrNoROI
	}
	return roi.SavePreset(roi.NewPreset(name, r, s.editor.Bounds()), path)
}

func (s *Session) LoadPreset(path string) error {
	p, err := roi.LoadPreset(path)
	if err != nil {
		return err
	}
	size, err := s.FrameSize()
	if err != nil {
		return err
	}
	return s.editor.Set(p.RectFor(size), size)
}

// ExportSettings builds settings from the config for the given kind.
func (s *Session) ExportSettings(kind export.Kind, base string) (export.Settings, error) {
	return export.FromConfig(s.cfg.Export, kind, s.output, base)
}

// Export runs a full export of the open sequence with the current ROI.
func (s *Session) Export(ctx context.Context, id string, settings export.Settings, progress export.Progress) (*export.Result, error) {
	if s.src == nil {
		return nil, ErrNotLoaded
	}
	r, ok := s.ROI()
	if !ok {
		return nil, roi.ErrNoROI
	}
	if id == "" {
		return export.Run(ctx, s.src, r, settings, progress, s.log)
	}
	return export.RunWithID(ctx, id, s.src, r, settings, progress, s.log)
}

// Snapshot captures what a job needs to export without holding the session.
func (s *Session) Snapshot() (source.Source, image.Rectangle, error) {
	if s.src == nil {
		return nil, image.Rectangle{}, ErrNotLoaded
	}
	r, ok := s.ROI()
	if !ok {
		return nil, image.Rectangle{}, roi.ErrNoROI
	}
	return s.src, r, nil
}

// EnsureFolders creates the conventional import and export folders under base.
func EnsureFolders(cfg *config.Config, base string) (string, string, error) {
	in, out := cfg.DefaultFolders(base)
	for _, dir := range []string{in, out} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", "", err
		}
	}
	return in, out, nil
}
