package events

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventBus(t *testing.T) {
	t.Run("delivers to subscribers of the type only", func(t *testing.T) {
		bus := NewEventBus()
		var starts, stops atomic.Int32
		bus.Subscribe(EventServiceStart, func(e Event) { starts.Add(1) })
		bus.Subscribe(EventServiceShutdown, func(e Event) { stops.Add(1) })

		bus.Publish(Event{Type: EventServiceStart, RoomID: 1})
		bus.Publish(Event{Type: EventServiceStart, RoomID: 2})
		bus.Wait()

		assert.Equal(t, int32(2), starts.Load())
		assert.Equal(t, int32(0), stops.Load())
	})

	t.Run("unsubscribe stops delivery", func(t *testing.T) {
		bus := NewEventBus()
		var mu sync.Mutex
		var got []int
		keep := bus.Subscribe(EventServiceStart, func(e Event) {
			mu.Lock()
			got = append(got, e.RoomID)
			mu.Unlock()
		})
		drop := bus.Subscribe(EventServiceStart, func(e Event) { t.Error("unsubscribed handler called") })
		bus.Unsubscribe(drop)

		bus.Publish(Event{Type: EventServiceStart, RoomID: 7})
		bus.Wait()
		assert.Equal(t, []int{7}, got)

		bus.Unsubscribe(keep)
		bus.Publish(Event{Type: EventServiceStart, RoomID: 8})
		bus.Wait()
		assert.Equal(t, []int{7}, got)
	})

	t.Run("event names", func(t *testing.T) {
		assert.Equal(t, "ServicePreempted", EventServicePreempted.String())
		assert.Equal(t, "Unknown", EventType(999).String())
	})
}
