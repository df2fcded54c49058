package services

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventOrderCompleted = "order.completed"
	EventOrderRefunded  = "order.refunded"
	EventBalanceChanged = "balance.changed"
)

// Event is pushed to the user's live subscribers
type Event struct {
	Type      string          `json:"type"`
	UserID    uint            `json:"user_id"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// EventBus fans events out to per-user subscribers
type EventBus interface {
	Publish(ev Event)
	Subscribe(userID uint) (<-chan Event, func())
}

// LocalEventBus delivers in process. A slow subscriber loses events
// instead of blocking the publisher.
type LocalEventBus struct {
	mu     sync.RWMutex
	subs   map[uint]map[chan Event]struct{}
	buffer int
}

func NewLocalEventBus(buffer int) *LocalEventBus {
	if buffer <= 0 {
		buffer = 16
	}
	return &LocalEventBus{subs: make(map[uint]map[chan Event]struct{}), buffer: buffer}
}

func (b *LocalEventBus) Publish(ev Event) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *LocalEventBus) Subscribe(userID uint) (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	if b.subs[userID] == nil {
		b.subs[userID] = make(map[chan Event]struct{})
	}
	b.subs[userID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs[userID], ch)
			if len(b.subs[userID]) == 0 {
				delete(b.subs, userID)
			}
			b.mu.Unlock()
			close(ch)
		})
	}
}

// NewEvent marshals payload into an Event; marshal failures leave Payload empty
func NewEvent(typ string, userID uint, payload any) Event {
	ev := Event{Type: typ, UserID: userID, CreatedAt: time.Now().UTC()}
	if payload != nil {
		if b, err := json.Marshal(payload); err == nil {
			ev.Payload = b
		}
	}
	return ev
}
