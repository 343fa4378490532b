// SPDX-License-Identifier: MIT

package bridge

import (
	"sync"

	"github.com/streambridge/core/internal/metrics"
	"github.com/streambridge/core/internal/runtime"
)

// hub fans runtime events out to event-stream subscribers. The runtime's
// forwarding task calls publish in emission order; each subscriber sees that
// order on its own buffered channel. A subscriber that cannot keep up has
// events dropped rather than stalling the sink.
type hub struct {
	mu   sync.Mutex
	subs map[chan runtime.Event]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[chan runtime.Event]struct{})}
}

func (h *hub) subscribe(buffer int) chan runtime.Event {
	ch := make(chan runtime.Event, buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *hub) unsubscribe(ch chan runtime.Event) {
	h.mu.Lock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *hub) publish(event runtime.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- event:
		default:
			metrics.IncBoundaryDrop("slow_event_subscriber")
		}
	}
}
