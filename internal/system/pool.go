package system

import (
	"image"
	"sync"
)

// FramePool recycles *image.RGBA buffers of equal size so that streaming a
// long sequence does not allocate a fresh crop for every frame.
type FramePool struct {
	mu    sync.RWMutex
	pools map[image.Point]*sync.Pool
}

func NewFramePool() *FramePool {
	return &FramePool{pools: make(map[image.Point]*sync.Pool)}
}

// Get returns a buffer with bounds (0,0)-size. Its contents are undefined.
func (p *FramePool) Get(size image.Point) *image.RGBA {
	p.mu.RLock()
	pool, ok := p.pools[size]
	p.mu.RUnlock()

	if !ok {
		p.mu.Lock()
		pool, ok = p.pools[size]
		if !ok {
			pool = &sync.Pool{
				New: func() any {
					return image.NewRGBA(image.Rectangle{Max: size})
				},
			}
			p.pools[size] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

// Put hands img back for reuse. Buffers of a size never requested through
// Get, or with a non-zero origin, are dropped.
func (p *FramePool) Put(img *image.RGBA) {
	if img == nil || img.Rect.Min != (image.Point{}) {
		return
	}
	p.mu.RLock()
	pool, ok := p.pools[img.Rect.Size()]
	p.mu.RUnlock()

	if ok {
		pool.Put(img)
	}
}
