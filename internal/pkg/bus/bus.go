package bus

import "sync"

// Topic names a channel of related events.
type Topic string

const (
	TopicFeedUpdated    Topic = "feed.updated"
	TopicAlignmentSaved Topic = "alignment.saved"
	TopicProfileUpdated Topic = "profile.updated"
)

// Event is a published payload tagged with its topic.
type Event struct {
	Topic Topic
	Data  interface{}
}

// Handler receives events for a subscribed topic. Handlers run synchronously
// on the publisher's goroutine and must not block.
type Handler func(Event)

// Bus is an in-process publish/subscribe service with named topics and
// explicit subscriber lifecycle. Safe for concurrent use.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[Topic]map[int]Handler
}

func New() *Bus {
	return &Bus{subs: make(map[Topic]map[int]Handler)}
}

// Subscribe registers h for topic and returns an unsubscribe function.
// Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(topic Topic, h Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	b.subs[topic][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[topic], id)
	}
}

// Publish delivers data to every current subscriber of topic.
func (b *Bus) Publish(topic Topic, data interface{}) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()
	for _, h := range handlers {
		h(Event{Topic: topic, Data: data})
	}
}
