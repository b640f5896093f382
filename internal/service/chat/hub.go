package chat

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/zhouzirui/z-messenger/internal/model/chat"
)

const subscriberBuffer = 32

// Hub fans message events out to per-chat subscribers.
// A subscriber that falls behind loses events rather than blocking publishers.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[int64]map[uint64]chan chat.Event
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[uint64]chan chat.Event)}
}

// Subscribe registers interest in chatID. The returned cancel func closes the channel.
func (h *Hub) Subscribe(chatID int64) (<-chan chat.Event, func()) {
	ch := make(chan chat.Event, subscriberBuffer)

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[chatID] == nil {
		h.subs[chatID] = make(map[uint64]chan chat.Event)
	}
	h.subs[chatID][id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[chatID], id)
			if len(h.subs[chatID]) == 0 {
				delete(h.subs, chatID)
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers event to every subscriber of its chat.
func (h *Hub) Publish(event chat.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, ch := range h.subs[event.ChatID] {
		select {
		case ch <- event:
		default:
			log.Warn().Int64("chat_id", event.ChatID).Uint64("subscriber", id).Msg("[chat] subscriber lagging, event dropped")
		}
	}
}

// Subscribers reports how many listeners chatID currently has.
func (h *Hub) Subscribers(chatID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[chatID])
}
