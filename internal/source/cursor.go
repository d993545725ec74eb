package source

import "image"

// Cursor walks a Source one frame at a time and keeps the decoded current
// frame so repeated redraws do not hit the disk.
type Cursor struct {
	src   Source
	index int

	cached      image.Image
	cachedIndex int
}

func NewCursor(src Source) *Cursor {
	return &Cursor{src: src, cachedIndex: -1}
}

func (c *Cursor) Source() Source { return c.src }

func (c *Cursor) Index() int { return c.index }

func (c *Cursor) Len() int { return c.src.FrameCount() }

// Next moves forward one frame. It reports false at the last frame; there is
// no wraparound.
func (c *Cursor) Next() bool {
	if c.index >= c.src.FrameCount()-1 {
		return false
	}
	c.index++
	return true
}

// Previous moves back one frame, reporting false at the first frame.
func (c *Cursor) Previous() bool {
	if c.index <= 0 {
		return false
	}
	c.index--
	return true
}

// Seek jumps to index, clamped to the valid range.
func (c *Cursor) Seek(index int) {
	n := c.src.FrameCount()
	switch {
	case index < 0:
		index = 0
	case index >= n:
		index = n - 1
	}
	c.index = index
}

// Current returns the decoded frame at the cursor.
func (c *Cursor) Current() (image.Image, error) {
	if c.cached != nil && c.cachedIndex == c.index {
		return c.cached, nil
	}
	img, err := c.src.Frame(c.index)
	if err != nil {
		return nil, err
	}
	c.cached, c.cachedIndex = img, c.index
	return img, nil
}

// CurrentSize returns the size of the frame at the cursor without decoding it.
func (c *Cursor) CurrentSize() (image.Point, error) {
	return c.src.FrameSize(c.index)
}
