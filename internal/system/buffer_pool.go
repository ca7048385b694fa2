package system

import (
	"sync"

	"github.com/ivlev/framefx/internal/frame"
)

type poolKey struct{ w, h int }

// BufferPool reuses frame buffers of the same size to keep per-frame
// scratch allocations off the garbage collector.
type BufferPool struct {
	pools map[poolKey]*sync.Pool
	mu    sync.RWMutex
}

// NewBufferPool returns an empty pool.
func NewBufferPool() *BufferPool {
	return &BufferPool{pools: make(map[poolKey]*sync.Pool)}
}

// Get returns a w×h buffer. Its contents are undefined; callers overwrite it.
func (p *BufferPool) Get(w, h int) *frame.Buffer {
	if w <= 0 || h <= 0 {
		return frame.New(0, 0)
	}
	key := poolKey{w, h}
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					return frame.New(w, h)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*frame.Buffer)
}

// Put hands b back for reuse. Buffers of sizes never requested are dropped.
func (p *BufferPool) Put(b *frame.Buffer) {
	if b.Empty() {
		return
	}
	p.mu.RLock()
	pool, exists := p.pools[poolKey{b.Width, b.Height}]
	p.mu.RUnlock()

	if exists {
		pool.Put(b)
	}
}
