package source

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorClampsWithoutWraparound(t *testing.T) {
	dir := t.TempDir()
	for i := 1; i <= 3; i++ {
		writePNG(t, filepath.Join(dir, fmt.Sprintf("c%d.png", i)), 4*i, 4)
	}
	seq, err := Load(dir, testExts, nil)
	require.NoError(t, err)

	c := NewCursor(seq)
	assert.Equal(t, 0, c.Index())
	assert.False(t, c.Previous())
	assert.Equal(t, 0, c.Index())

	assert.True(t, c.Next())
	assert.True(t, c.Next())
	assert.False(t, c.Next())
	assert.Equal(t, 2, c.Index())

	img, err := c.Current()
	require.NoError(t, err)
	assert.Equal(t, 12, img.Bounds().Dx())

	again, err := c.Current()
	require.NoError(t, err)
	assert.Same(t, img, again)

	c.Seek(-5)
	assert.Equal(t, 0, c.Index())
	c.Seek(99)
	assert.Equal(t, 2, c.Index())

	size, err := c.CurrentSize()
	require.NoError(t, err)
	assert.Equal(t, 12, size.X)
}
