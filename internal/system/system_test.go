package system

import (
	"image"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramePoolReturnsRequestedSize(t *testing.T) {
	p := NewFramePool()
	size := image.Pt(30, 20)

	img := p.Get(size)
	assert.Equal(t, image.Rect(0, 0, 30, 20), img.Rect)
	p.Put(img)

	again := p.Get(size)
	assert.Equal(t, size, again.Rect.Size())

	// foreign sizes and offset buffers are ignored rather than pooled
	p.Put(image.NewRGBA(image.Rect(0, 0, 5, 5)))
	p.Put(image.NewRGBA(image.Rect(3, 3, 33, 23)))
	p.Put(nil)
	assert.Equal(t, size, p.Get(size).Rect.Size())
}

func TestLookaheadForIsBounded(t *testing.T) {
	n := LookaheadFor(1 << 20)
	assert.GreaterOrEqual(t, n, 1)
	assert.LessOrEqual(t, n, 8)
	assert.Equal(t, 8, LookaheadFor(0))
	assert.LessOrEqual(t, LookaheadFor(1<<62), 2)
}

func TestPickEncoder(t *testing.T) {
	tests := []struct {
		list string
		want string
	}{
		{" V....D h264_nvenc  NVIDIA NVENC H.264 encoder", "h264_nvenc"},
		{" V....D h264_videotoolbox VideoToolbox H.264 Encoder\n V....D h264_nvenc", "h264_videotoolbox"},
		{" V....D libx264 libx264 H.264", "libx264"},
		{"", "libx264"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pickEncoder(tt.list))
	}
}

func TestFindLatestInput(t *testing.T) {
	dir := t.TempDir()
	_, err := FindLatestInput(dir)
	assert.Error(t, err)

	old := filepath.Join(dir, "run1")
	newer := filepath.Join(dir, "run2")
	require.NoError(t, os.Mkdir(old, 0o755))
	require.NoError(t, os.Mkdir(newer, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644))

	now := time.Now()
	require.NoError(t, os.Chtimes(old, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(newer, now, now))

	got, err := FindLatestInput(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, got)

	pdf := filepath.Join(dir, "scan.PDF")
	require.NoError(t, os.WriteFile(pdf, nil, 0o644))
	require.NoError(t, os.Chtimes(pdf, now.Add(time.Minute), now.Add(time.Minute)))
	got, err = FindLatestInput(dir)
	require.NoError(t, err)
	assert.Equal(t, pdf, got)

	_, err = FindLatestInput(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
