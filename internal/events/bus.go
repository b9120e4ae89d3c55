package events

import (
	"sync"
)

type subscriber struct {
	id      uint64
	handler Handler
}

// EventBus 是事件总线的实现
type EventBus struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[EventType][]subscriber
	wg       sync.WaitGroup
}

// NewEventBus 创建新的事件总线
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]subscriber),
	}
}

// Publish 发布事件, 处理器异步执行, 不阻塞调用方
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, sub := range eb.handlers[event.Type] {
		eb.wg.Add(1)
		go func(h Handler) {
			defer eb.wg.Done()
			h(event)
		}(sub.handler)
	}
}

// Subscribe 订阅事件
func (eb *EventBus) Subscribe(eventType EventType, handler Handler) Subscription {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.nextID++
	eb.handlers[eventType] = append(eb.handlers[eventType], subscriber{id: eb.nextID, handler: handler})
	return Subscription{id: eb.nextID, EventType: eventType}
}

// Unsubscribe 取消订阅
func (eb *EventBus) Unsubscribe(sub Subscription) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	subs := eb.handlers[sub.EventType]
	for i, s := range subs {
		if s.id == sub.id {
			eb.handlers[sub.EventType] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Wait 等待已发布事件的处理器全部返回
func (eb *EventBus) Wait() {
	eb.wg.Wait()
}
