// Package event delivers notifications about completed stash operations.
package event

import (
	"log/slog"
	"sync"
	"time"
)

// Event names.
const (
	SwapCreated  = "swap_created"
	SwapAccepted = "swap_accepted"
	SwapDeclined = "swap_declined"
	ItemsRemoved = "items_removed"
	DropPickedUp = "drop_picked_up"
	TradeUsed    = "trade_used"
)

// Event describes something that happened in a stash.
type Event struct {
	Name          string    `json:"name"`
	StashID       int64     `json:"stash_id"`
	ActorID       int64     `json:"actor_id"`
	RelatedUserID int64     `json:"related_user_id,omitempty"`
	ObjectID      int64     `json:"object_id,omitempty"`
	Time          time.Time `json:"time"`
}

// Handler receives emitted events.
type Handler func(Event)

// Bus fans events out to subscribers. Events are emitted after the change they
// describe has been committed, so handlers cannot affect it.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	all      []Handler
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe registers h for events named name. An empty name subscribes to all events.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if name == "" {
		b.all = append(b.all, h)
		return
	}
	b.handlers[name] = append(b.handlers[name], h)
}

// Emit logs e and delivers it to its subscribers. A nil bus only logs.
func (b *Bus) Emit(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	slog.Info("event", "name", e.Name, "stash", e.StashID, "actor", e.ActorID,
		"related_user", e.RelatedUserID, "object", e.ObjectID)

	if b == nil {
		return
	}

	b.mu.RLock()
	handlers := append(append([]Handler(nil), b.handlers[e.Name]...), b.all...)
	b.mu.RUnlock()

	for _, h := range handlers {
		deliver(h, e)
	}
}

func deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "name", e.Name, "panic", r)
		}
	}()
	h(e)
}
