//go:build !rp2040

package platform

import (
	"sync"
	"time"

	"thermoblink/hal"
)

// RecordingPin is an output that remembers what it was driven to.
type RecordingPin struct {
	mu    sync.Mutex
	level bool
	sets  uint32
	highs uint32
	last  time.Time
}

func (p *RecordingPin) Set(level bool) {
	p.mu.Lock()
	p.level = level
	p.sets++
	if level {
		p.highs++
	}
	p.last = time.Now()
	p.mu.Unlock()
}

func (p *RecordingPin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// Sets is the number of writes; Highs counts writes of true.
func (p *RecordingPin) Sets() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sets
}

func (p *RecordingPin) Highs() uint32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.highs
}

func (p *RecordingPin) LastSet() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// SimButton is an active-low push button with a pull-up. Handlers are
// invoked synchronously from Press, standing in for interrupt context.
type SimButton struct {
	mu      sync.Mutex
	level   bool
	edge    hal.Edge
	handler func()
}

func NewSimButton() *SimButton { return &SimButton{level: true} }

func (b *SimButton) Get() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level
}

func (b *SimButton) SetIRQ(edge hal.Edge, handler func()) error {
	b.mu.Lock()
	b.edge, b.handler = edge, handler
	b.mu.Unlock()
	return nil
}

func (b *SimButton) ClearIRQ() error {
	b.mu.Lock()
	b.edge, b.handler = hal.EdgeNone, nil
	b.mu.Unlock()
	return nil
}

// Press pulls the line low then releases it.
func (b *SimButton) Press() {
	b.drive(false)
	b.drive(true)
}

func (b *SimButton) drive(level bool) {
	b.mu.Lock()
	if b.level == level {
		b.mu.Unlock()
		return
	}
	b.level = level
	h, e := b.handler, b.edge
	b.mu.Unlock()

	fire := e == hal.EdgeBoth ||
		(e == hal.EdgeFalling && !level) ||
		(e == hal.EdgeRising && level)
	if fire && h != nil {
		h()
	}
}
