package inspector

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
)

// Hub fans snapshots out to subscribed clients. Slow clients miss frames
// instead of blocking the frame loop.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[int]chan []byte
	nextID      int
	latest      []byte
	buffer      int
}

// NewHub creates a hub whose subscriber channels hold buffer messages.
func NewHub(buffer int) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subscribers: make(map[int]chan []byte),
		buffer:      buffer,
	}
}

// Register creates a subscriber channel. The latest snapshot, if any, is queued first.
func (h *Hub) Register() (int, <-chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextID
	h.nextID++
	ch := make(chan []byte, h.buffer)
	if h.latest != nil {
		ch <- h.latest
	}
	h.subscribers[id] = ch
	return id, ch
}

// Unregister closes and drops a subscriber.
func (h *Hub) Unregister(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[id]; ok {
		close(ch)
		delete(h.subscribers, id)
	}
}

// Broadcast encodes s once and offers it to every subscriber.
func (h *Hub) Broadcast(s Snapshot) error {
	msg, err := json.Marshal(s)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.latest = msg
	for _, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

// Latest returns the last broadcast message.
func (h *Hub) Latest() []byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest
}

// SubscriberCount returns the number of connected clients.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Run broadcasts every snapshot received on in until ctx is done or in is closed.
func (h *Hub) Run(ctx context.Context, in <-chan Snapshot) {
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-in:
			if !ok {
				return
			}
			if err := h.Broadcast(s); err != nil {
				slog.Warn("inspector snapshot dropped", "tick", s.Tick, "error", err)
			}
		}
	}
}
