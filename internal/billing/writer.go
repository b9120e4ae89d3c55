package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"acdispatch/internal/config"
	"acdispatch/internal/db"
	"acdispatch/internal/events"
	"acdispatch/internal/logger"
	"acdispatch/internal/types"

	"github.com/google/uuid"
)

var (
	ErrWriterRunning    = errors.New("usage writer already running")
	ErrWriterNotRunning = errors.New("usage writer not running")
)

// Store 送风详单持久化
type Store interface {
	CreateRecord(ctx context.Context, record *db.UsageRecord) error
}

// ConfigSource 提供写入时的单价
type ConfigSource interface {
	SchedulerConfig() config.SchedulerConfig
}

type Publisher interface {
	Publish(event events.Event)
}

// Fee 费用 = 单价 × 温度变化量
func Fee(price float64, seg types.UsageSegment) float64 {
	return price * seg.Delta()
}

// Writer 异步写回送风区间
// Emit 只入队, 计费和持久化在后台协程完成, 调度 tick 不受存储延迟影响
type Writer struct {
	store   Store
	configs ConfigSource
	bus     Publisher

	mu      sync.Mutex
	queue   []types.UsageSegment
	notify  chan struct{}
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewWriter(store Store, configs ConfigSource, bus Publisher) *Writer {
	return &Writer{
		store:   store,
		configs: configs,
		bus:     bus,
		notify:  make(chan struct{}, 1),
	}
}

// Emit 入队, 不阻塞
func (w *Writer) Emit(seg types.UsageSegment) {
	w.mu.Lock()
	w.queue = append(w.queue, seg)
	w.mu.Unlock()

	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Pending 尚未处理的区间数
func (w *Writer) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *Writer) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrWriterRunning
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running = true
	go w.run(loopCtx, w.done)
	return nil
}

// Stop 停止后台协程, 返回前写完已入队的区间
func (w *Writer) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return ErrWriterNotRunning
	}
	w.cancel()
	done := w.done
	w.running = false
	w.mu.Unlock()

	select {
	case <-done:
		logger.Info("Usage writer stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("usage writer stop: %w", ctx.Err())
	}
}

func (w *Writer) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	// 取消只停止循环, 已开始的写入不中断
	writeCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			w.flush(writeCtx)
			return
		case <-w.notify:
			w.flush(writeCtx)
		}
	}
}

func (w *Writer) take() []types.UsageSegment {
	w.mu.Lock()
	defer w.mu.Unlock()
	batch := w.queue
	w.queue = nil
	return batch
}

func (w *Writer) flush(ctx context.Context) {
	for {
		batch := w.take()
		if len(batch) == 0 {
			return
		}
		for _, seg := range batch {
			w.write(ctx, seg)
		}
	}
}

// write 处理单个区间, 失败只记录日志并丢弃
func (w *Writer) write(ctx context.Context, seg types.UsageSegment) {
	if seg.BeginTemp == seg.EndTemp {
		w.publish(events.EventSegmentDropped, seg, 0, "zero-delta")
		return
	}

	price := w.configs.SchedulerConfig().Price
	record := &db.UsageRecord{
		ID:        uuid.NewString(),
		RoomID:    seg.RoomID,
		BeginTime: seg.BeginTime,
		EndTime:   seg.EndTime,
		BeginTemp: seg.BeginTemp,
		EndTemp:   seg.EndTemp,
		Speed:     string(seg.Speed),
		Price:     price,
		Fee:       Fee(price, seg),
	}
	// TODO: persist failed segments to a retry table instead of dropping them.
	if err := w.store.CreateRecord(ctx, record); err != nil {
		logger.Error("Dropping usage segment for room %d (%.2f -> %.2f): %v", seg.RoomID, seg.BeginTemp, seg.EndTemp, err)
		w.publish(events.EventSegmentDropped, seg, record.Fee, "persist")
		return
	}
	w.publish(events.EventSegmentPersisted, seg, record.Fee, "")
}

func (w *Writer) publish(t events.EventType, seg types.UsageSegment, fee float64, reason string) {
	if w.bus == nil {
		return
	}
	w.bus.Publish(events.Event{
		Type:      t,
		RoomID:    seg.RoomID,
		Timestamp: seg.EndTime,
		Data:      events.SegmentData{Segment: seg, Fee: fee, Reason: reason},
	})
}
