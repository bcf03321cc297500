package bus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublish_DeliversToSubscriber(t *testing.T) {
	b := New()
	var got []Event
	b.Subscribe(TopicFeedUpdated, func(e Event) { got = append(got, e) })

	b.Publish(TopicFeedUpdated, 42)

	assert.Len(t, got, 1)
	assert.Equal(t, TopicFeedUpdated, got[0].Topic)
	assert.Equal(t, 42, got[0].Data)
}

func TestPublish_TopicIsolation(t *testing.T) {
	b := New()
	calls := 0
	b.Subscribe(TopicFeedUpdated, func(Event) { calls++ })

	b.Publish(TopicAlignmentSaved, "x")

	assert.Zero(t, calls)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	unsub := b.Subscribe(TopicProfileUpdated, func(Event) { calls++ })

	b.Publish(TopicProfileUpdated, nil)
	unsub()
	b.Publish(TopicProfileUpdated, nil)
	unsub() // second call is a no-op

	assert.Equal(t, 1, calls)
}

func TestPublish_MultipleSubscribers(t *testing.T) {
	b := New()
	a, c := 0, 0
	b.Subscribe(TopicFeedUpdated, func(Event) { a++ })
	b.Subscribe(TopicFeedUpdated, func(Event) { c++ })

	b.Publish(TopicFeedUpdated, nil)

	assert.Equal(t, 1, a)
	assert.Equal(t, 1, c)
}
