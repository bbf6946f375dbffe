package button

import (
	"context"
	"sync/atomic"
	"time"

	"thermoblink/hal"
)

// EdgeWaiter turns falling-edge interrupts on an IRQPin into a blocking
// wait. The handler runs in interrupt context: it only does a non-blocking
// send, so edges arriving while one is already queued are folded into it.
type EdgeWaiter struct {
	pin      hal.IRQPin
	debounce time.Duration
	isrQ     chan struct{}
	drops    uint32
	last     time.Time
	now      func() time.Time
}

// NewEdgeWaiter arms the falling-edge IRQ on pin. Edges closer than
// debounce to the previously accepted one are discarded (0 disables).
func NewEdgeWaiter(pin hal.IRQPin, debounce time.Duration) (*EdgeWaiter, error) {
	w := &EdgeWaiter{
		pin:      pin,
		debounce: debounce,
		isrQ:     make(chan struct{}, 1),
		now:      time.Now,
	}
	if err := pin.SetIRQ(hal.EdgeFalling, w.isr); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *EdgeWaiter) isr() {
	select {
	case w.isrQ <- struct{}{}:
	default:
		atomic.AddUint32(&w.drops, 1)
	}
}

// WaitFallingEdge blocks until the next accepted falling edge or ctx ends.
func (w *EdgeWaiter) WaitFallingEdge(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.isrQ:
		}
		now := w.now()
		if w.debounce > 0 && !w.last.IsZero() && now.Sub(w.last) < w.debounce {
			continue
		}
		w.last = now
		return nil
	}
}

// Coalesced reports edges folded into an already queued one.
func (w *EdgeWaiter) Coalesced() uint32 { return atomic.LoadUint32(&w.drops) }

// Close disarms the interrupt.
func (w *EdgeWaiter) Close() error { return w.pin.ClearIRQ() }
