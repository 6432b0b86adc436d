package transport

import (
	"sync"

	"github.com/tessro/onetap/internal/core"
)

// Hub fans events out to subscribed handlers. The zero value is ready to use.
type Hub struct {
	mu       sync.Mutex
	next     int
	handlers map[int]core.EventHandler
}

// Subscribe registers h. The returned function unregisters it and is safe to
// call more than once.
func (h *Hub) Subscribe(handler core.EventHandler) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.handlers == nil {
		h.handlers = make(map[int]core.EventHandler)
	}
	id := h.next
	h.next++
	h.handlers[id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.handlers, id)
			h.mu.Unlock()
		})
	}
}

// Emit delivers ev to every handler registered at the time of the call.
func (h *Hub) Emit(ev core.Event) {
	h.mu.Lock()
	handlers := make([]core.EventHandler, 0, len(h.handlers))
	for id := 0; id < h.next; id++ {
		if fn, ok := h.handlers[id]; ok {
			handlers = append(handlers, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range handlers {
		fn(ev)
	}
}
