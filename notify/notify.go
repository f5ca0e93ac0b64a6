package notify

import (
	"sync"
)

const (
	KindServerError = "serverError"
	KindInfo        = "info"

	subscriberBuffer = 16
)

// Notification is a user facing toast raised outside the normal return path.
type Notification struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code,omitempty"`
	URL        string `json:"url,omitempty"`
}

// Notifier accepts notifications. Publish must not block.
type Notifier interface {
	Publish(n Notification)
}

// Bus fans notifications out to every subscriber. A subscriber that falls
// behind loses its oldest queued notifications.
type Bus struct {
	mu      sync.Mutex
	subs    map[int]chan Notification
	nextSub int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Notification)}
}

func (b *Bus) Publish(n Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- n:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- n:
		default:
		}
	}
}

// Subscribe returns the notification stream and a cancel func that closes it.
func (b *Bus) Subscribe() (<-chan Notification, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSub
	b.nextSub++
	ch := make(chan Notification, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Discard drops every notification
type Discard struct{}

func (Discard) Publish(Notification) {}
