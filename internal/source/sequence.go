package source

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Skip records a file that was listed but could not be decoded.
type Skip struct {
	Path string
	Err  error
}

// ImageSequence is a folder of still images in natural filename order.
// Every file is decoded once at load to weed out damaged frames; pixels are
// not kept and frames are decoded again on demand.
type ImageSequence struct {
	folder  string
	paths   []string
	sizes   []image.Point
	skipped []Skip
}

// Load lists the supported files in folder and probes each one. Files that
// fail the probe are skipped with a warning instead of failing the load.
func Load(folder string, exts []string, log *zap.Logger) (*ImageSequence, error) {
	if log == nil {
		log = zap.NewNop()
	}

	fi, err := os.Stat(folder)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &LoadError{Kind: FolderMissing, Path: folder, Err: err}
		}
		return nil, &LoadError{Kind: Unreadable, Path: folder, Err: err}
	}
	if !fi.IsDir() {
		return nil, &LoadError{Kind: NotADirectory, Path: folder}
	}

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, &LoadError{Kind: Unreadable, Path: folder, Err: err}
	}

	allowed := make(map[string]bool, len(exts))
	for _, ext := range exts {
		allowed[strings.ToLower(ext)] = true
	}

	var candidates []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
			candidates = append(candidates, entry.Name())
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool { return naturalLess(candidates[i], candidates[j]) })

	seq := &ImageSequence{folder: folder}
	for _, name := range candidates {
		path := filepath.Join(folder, name)
		size, err := probe(path)
		if err != nil {
			log.Warn("skipping unreadable frame", zap.String("path", path), zap.Error(err))
			seq.skipped = append(seq.skipped, Skip{Path: path, Err: err})
			continue
		}
		seq.paths = append(seq.paths, path)
		seq.sizes = append(seq.sizes, size)
	}

	if len(seq.paths) == 0 {
		return nil, &LoadError{Kind: NoImages, Path: folder, Err: ErrNoFrames}
	}

	log.Info("sequence loaded",
		zap.String("folder", folder),
		zap.Int("frames", len(seq.paths)),
		zap.Int("skipped", len(seq.skipped)),
	)
	return seq, nil
}

// probe decodes the whole file so that truncated or damaged pixel data is
// caught at load time, not halfway through an export.
func probe(path string) (image.Point, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return image.Point{}, err
	}
	size := img.Bounds().Size()
	if size.X <= 0 || size.Y <= 0 {
		return image.Point{}, errors.New("empty image")
	}
	return size, nil
}

func (s *ImageSequence) Folder() string { return s.folder }

// List returns the usable frame paths in display order.
func (s *ImageSequence) List() []string {
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// Skipped returns the files that were dropped while loading.
func (s *ImageSequence) Skipped() []Skip {
	return s.skipped
}

func (s *ImageSequence) FrameCount() int {
	return len(s.paths)
}

func (s *ImageSequence) FrameSize(index int) (image.Point, error) {
	if err := checkIndex(index, len(s.paths)); err != nil {
		return image.Point{}, err
	}
	return s.sizes[index], nil
}

// Frame decodes the frame at index. For GIF input only the first frame is used.
func (s *ImageSequence) Frame(index int) (image.Image, error) {
	if err := checkIndex(index, len(s.paths)); err != nil {
		return nil, err
	}
	img, err := imaging.Open(s.paths[index])
	if err != nil {
		return nil, &LoadError{Kind: Decode, Path: s.paths[index], Err: err}
	}
	return img, nil
}

func (s *ImageSequence) Name(index int) string {
	base := filepath.Base(s.paths[index])
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (s *ImageSequence) Close() error {
	return nil
}

var reNum = regexp.MustCompile(`\d+`)

// naturalLess orders "img2" before "img10".
func naturalLess(a, b string) bool {
	aa := reNum.FindAllStringIndex(a, -1)
	bb := reNum.FindAllStringIndex(b, -1)
	pa, pb := 0, 0
	for i := 0; i < len(aa) && i < len(bb); i++ {
		if a[pa:aa[i][0]] != b[pb:bb[i][0]] {
			return a[pa:aa[i][0]] < b[pb:bb[i][0]]
		}
		na, _ := strconv.Atoi(a[aa[i][0]:aa[i][1]])
		nb, _ := strconv.Atoi(b[bb[i][0]:bb[i][1]])
		if na != nb {
			return na < nb
		}
		pa, pb = aa[i][1], bb[i][1]
	}
	return a < b
}
