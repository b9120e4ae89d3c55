package scheduler

import (
	"time"

	"acdispatch/internal/types"
)

// entry 一个已接受且仍开启的服务请求
type entry struct {
	roomID    int
	target    float64
	speed     types.Speed
	open      bool
	ttl       int       // 剩余时间片
	beginTime time.Time // 当前送风区间开始时间
	beginTemp float64   // 当前送风区间开始温度
}

// entryQueue 有序队列, 按房间号索引位置
// 每个房间最多一个条目
type entryQueue struct {
	items []*entry
	pos   map[int]int
}

func newEntryQueue() *entryQueue {
	return &entryQueue{pos: make(map[int]int)}
}

func (q *entryQueue) Len() int { return len(q.items) }

func (q *entryQueue) Get(roomID int) (*entry, bool) {
	i, ok := q.pos[roomID]
	if !ok {
		return nil, false
	}
	return q.items[i], true
}

func (q *entryQueue) Has(roomID int) bool {
	_, ok := q.pos[roomID]
	return ok
}

// PushBack 追加到队尾, 房间已在队列中时返回 false
func (q *entryQueue) PushBack(e *entry) bool {
	if q.Has(e.roomID) {
		return false
	}
	q.pos[e.roomID] = len(q.items)
	q.items = append(q.items, e)
	return true
}

// Remove 从任意位置移除并保持其余顺序
func (q *entryQueue) Remove(roomID int) (*entry, bool) {
	i, ok := q.pos[roomID]
	if !ok {
		return nil, false
	}
	e := q.items[i]
	copy(q.items[i:], q.items[i+1:])
	q.items[len(q.items)-1] = nil
	q.items = q.items[:len(q.items)-1]
	delete(q.pos, roomID)
	for j := i; j < len(q.items); j++ {
		q.pos[q.items[j].roomID] = j
	}
	return e, true
}

// Entries 返回当前顺序的拷贝, 遍历期间可以修改队列
func (q *entryQueue) Entries() []*entry {
	out := make([]*entry, len(q.items))
	copy(out, q.items)
	return out
}

func (q *entryQueue) RoomIDs() []int {
	ids := make([]int, len(q.items))
	for i, e := range q.items {
		ids[i] = e.roomID
	}
	return ids
}

func (q *entryQueue) Clear() {
	q.items = nil
	q.pos = make(map[int]int)
}
