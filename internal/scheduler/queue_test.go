package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryQueue(t *testing.T) {
	t.Run("fifo order and index", func(t *testing.T) {
		q := newEntryQueue()
		for _, id := range []int{3, 1, 2} {
			require.True(t, q.PushBack(&entry{roomID: id}))
		}
		assert.Equal(t, []int{3, 1, 2}, q.RoomIDs())
		assert.Equal(t, 3, q.Len())

		e, ok := q.Get(1)
		require.True(t, ok)
		assert.Equal(t, 1, e.roomID)
	})

	t.Run("one entry per room", func(t *testing.T) {
		q := newEntryQueue()
		require.True(t, q.PushBack(&entry{roomID: 1}))
		assert.False(t, q.PushBack(&entry{roomID: 1}))
		assert.Equal(t, 1, q.Len())
	})

	t.Run("remove from middle keeps order and positions", func(t *testing.T) {
		q := newEntryQueue()
		for _, id := range []int{1, 2, 3, 4} {
			q.PushBack(&entry{roomID: id})
		}
		e, ok := q.Remove(2)
		require.True(t, ok)
		assert.Equal(t, 2, e.roomID)
		assert.Equal(t, []int{1, 3, 4}, q.RoomIDs())

		// 移除后索引仍然正确
		for _, id := range []int{1, 3, 4} {
			got, ok := q.Get(id)
			require.True(t, ok)
			assert.Equal(t, id, got.roomID)
		}
		_, ok = q.Remove(2)
		assert.False(t, ok)

		// 重新入队到队尾
		q.PushBack(e)
		assert.Equal(t, []int{1, 3, 4, 2}, q.RoomIDs())
	})

	t.Run("entries copy survives mutation", func(t *testing.T) {
		q := newEntryQueue()
		for _, id := range []int{1, 2, 3} {
			q.PushBack(&entry{roomID: id})
		}
		var seen []int
		for _, e := range q.Entries() {
			seen = append(seen, e.roomID)
			q.Remove(e.roomID)
		}
		assert.Equal(t, []int{1, 2, 3}, seen)
		assert.Zero(t, q.Len())
	})

	t.Run("clear", func(t *testing.T) {
		q := newEntryQueue()
		q.PushBack(&entry{roomID: 1})
		q.Clear()
		assert.Zero(t, q.Len())
		assert.False(t, q.Has(1))
	})
}
