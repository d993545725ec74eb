package source

import (
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// Source is an ordered, random-access set of frames.
type Source interface {
	FrameCount() int
	FrameSize(index int) (image.Point, error)
	Frame(index int) (image.Image, error)
	Name(index int) string
	Close() error
}

// PDFSource treats every page of a PDF document as a frame.
type PDFSource struct {
	mu   sync.Mutex
	doc  *fitz.Document
	path string
	dpi  int
}

func NewPDFSource(path string, dpi int) (*PDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, &LoadError{Kind: Unreadable, Path: path, Err: err}
	}
	if doc.NumPage() == 0 {
		doc.Close()
		return nil, &LoadError{Kind: NoImages, Path: path, Err: ErrNoFrames}
	}
	if dpi <= 0 {
		dpi = 72
	}
	return &PDFSource{doc: doc, path: path, dpi: dpi}, nil
}

func (f *PDFSource) FrameCount() int {
	return f.doc.NumPage()
}

func (f *PDFSource) FrameSize(index int) (image.Point, error) {
	if err := checkIndex(index, f.FrameCount()); err != nil {
		return image.Point{}, err
	}
	f.mu.Lock()
	rect, err := f.doc.Bound(index)
	f.mu.Unlock()
	if err != nil {
		return image.Point{}, &LoadError{Kind: Decode, Path: f.path, Err: err}
	}
	// Bound is in points (1/72 inch).
	scale := float64(f.dpi) / 72.0
	return image.Pt(int(float64(rect.Dx())*scale), int(float64(rect.Dy())*scale)), nil
}

func (f *PDFSource) Frame(index int) (image.Image, error) {
	if err := checkIndex(index, f.FrameCount()); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	img, err := f.doc.ImageDPI(index, float64(f.dpi))
	if err != nil {
		return nil, &LoadError{Kind: Decode, Path: f.path, Err: err}
	}
	return img, nil
}

func (f *PDFSource) Name(index int) string {
	return fmt.Sprintf("page_%04d", index+1)
}

func (f *PDFSource) Close() error {
	return f.doc.Close()
}

func checkIndex(index, n int) error {
	if index < 0 || index >= n {
		return fmt.Errorf("frame index %d out of range [0, %d)", index, n)
	}
	return nil
}
