package notifications

import (
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Tone classifies how a toast is rendered.
type Tone string

const (
	// ToneSuccess confirms a completed action.
	ToneSuccess Tone = "success"
	// ToneInfo carries neutral information such as new order notices.
	ToneInfo Tone = "info"
	// ToneWarning reports a partial failure.
	ToneWarning Tone = "warning"
	// ToneDanger reports a failed action.
	ToneDanger Tone = "danger"
)

// Toast is a dismissible, non-blocking notification shown to staff.
type Toast struct {
	ID        string    `json:"id"`
	Tone      Tone      `json:"tone"`
	Title     string    `json:"title,omitempty"`
	Message   string    `json:"message"`
	Action    string    `json:"action,omitempty"`
	Entity    string    `json:"entity,omitempty"`
	Details   []string  `json:"details,omitempty"`
	Blocking  bool      `json:"blocking,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

const defaultCapacity = 20

// Queue is a bounded FIFO of toasts waiting to be delivered with the next response.
// When full, the oldest toast is dropped.
type Queue struct {
	mu       sync.Mutex
	items    []Toast
	capacity int
	now      func() time.Time
}

// NewQueue creates a queue holding at most capacity toasts.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Queue{capacity: capacity, now: time.Now}
}

// Notify enqueues a toast, assigning an id and timestamp when missing.
func (q *Queue) Notify(toast Toast) {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if strings.TrimSpace(toast.ID) == "" {
		toast.ID = ulid.Make().String()
	}
	if toast.CreatedAt.IsZero() {
		toast.CreatedAt = q.now()
	}
	if toast.Tone == "" {
		toast.Tone = ToneInfo
	}
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
	}
	q.items = append(q.items, toast)
}

// Len reports the number of pending toasts.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Drain removes and returns every pending toast in arrival order.
func (q *Queue) Drain() []Toast {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}
