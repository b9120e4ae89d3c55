package events

import (
	"time"

	"acdispatch/internal/types"
)

// EventType 事件类型定义
type EventType int

const (
	// 系统事件
	EventSystemOpened EventType = iota
	EventSystemClosed
	EventConfigChanged
	EventSchedulerReset

	// 调度事件
	EventRequestAccepted  // 请求进入等待队列
	EventServiceStart     // 进入服务队列
	EventServiceComplete  // 到达目标温度
	EventServicePreempted // 被高风速抢占
	EventTimeSliceExpired // 时间片用完
	EventServiceShutdown  // 关机
	EventQueueStatusChange

	// 计费事件
	EventSegmentPersisted
	EventSegmentDropped
)

// Event 事件结构
type Event struct {
	Type      EventType   `json:"type"`
	RoomID    int         `json:"room_id"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Handler 事件处理函数类型
type Handler func(Event)

// Subscription 事件订阅信息
type Subscription struct {
	id        uint64
	EventType EventType
}

// QueueStatusData 每个 tick 结束后的队列快照
type QueueStatusData struct {
	Seq          uint64               `json:"seq"` // tick 序号, 单调递增
	ServiceQueue []int                `json:"service_queue"`
	WaitQueue    []int                `json:"wait_queue"`
	Statuses     map[types.Status]int `json:"statuses"`
}

// SegmentData 计费区间写入结果
type SegmentData struct {
	Segment types.UsageSegment `json:"segment"`
	Fee     float64            `json:"fee"`
	Reason  string             `json:"reason,omitempty"`
}

// EventNames 提供事件类型的字符串表示
var EventNames = map[EventType]string{
	EventSystemOpened:      "SystemOpened",
	EventSystemClosed:      "SystemClosed",
	EventConfigChanged:     "ConfigChanged",
	EventSchedulerReset:    "SchedulerReset",
	EventRequestAccepted:   "RequestAccepted",
	EventServiceStart:      "ServiceStart",
	EventServiceComplete:   "ServiceComplete",
	EventServicePreempted:  "ServicePreempted",
	EventTimeSliceExpired:  "TimeSliceExpired",
	EventServiceShutdown:   "ServiceShutdown",
	EventQueueStatusChange: "QueueStatusChange",
	EventSegmentPersisted:  "SegmentPersisted",
	EventSegmentDropped:    "SegmentDropped",
}

func (t EventType) String() string {
	if name, ok := EventNames[t]; ok {
		return name
	}
	return "Unknown"
}
