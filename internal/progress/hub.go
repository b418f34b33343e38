package progress

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// EventType classifies a search event
type EventType string

const (
	SearchStarted   EventType = "started"
	SearchProgress  EventType = "progress"
	SearchCompleted EventType = "completed"
	SearchFailed    EventType = "failed"
)

// Event is one search update fanned out to subscribers.
type Event struct {
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Hub fans search events out to subscribers. Slow subscribers lose events
// rather than stall a search.
type Hub struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
	log  zerolog.Logger
}

// NewHub creates an empty hub
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		subs: make(map[int]chan Event),
		log:  log.With().Str("component", "progress_hub").Logger(),
	}
}

// Subscribe registers a subscriber with the given buffer. The returned func
// unsubscribes and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, buffer)

	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers e to every subscriber without blocking. A nil hub drops it.
func (h *Hub) Publish(e Event) {
	if h == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.log.Warn().
				Str("event_type", string(e.Type)).
				Str("run_id", e.RunID).
				Msg("Subscriber channel full, dropping event")
		}
	}
}

// Subscribers returns the current subscriber count
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
