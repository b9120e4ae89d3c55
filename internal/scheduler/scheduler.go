package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"acdispatch/internal/config"
	"acdispatch/internal/events"
	"acdispatch/internal/logger"
	"acdispatch/internal/types"

	"github.com/samber/lo"
	"k8s.io/utils/clock"
)

var (
	ErrAlreadyRunning = errors.New("scheduler already running")
	ErrNotRunning     = errors.New("scheduler not running")
)

// RoomCatalog 外部房间目录
type RoomCatalog interface {
	Profiles(ctx context.Context) ([]types.RoomProfile, error)
}

// ConfigSource 提供 Reset 时生效的调度参数
type ConfigSource interface {
	SchedulerConfig() config.SchedulerConfig
}

// SegmentSink 接收送风区间, 不得阻塞
type SegmentSink interface {
	Emit(segment types.UsageSegment)
}

type Publisher interface {
	Publish(event events.Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(events.Event) {}

type Option func(*Scheduler)

func WithClock(c clock.WithTicker) Option {
	return func(s *Scheduler) { s.clock = c }
}

func WithPublisher(p Publisher) Option {
	return func(s *Scheduler) { s.bus = p }
}

type roomState struct {
	profile types.RoomProfile
	state   types.ACState
}

// snapshot 每个 tick 结束后发布的只读视图
type snapshot struct {
	statuses map[int]types.ACState
	service  []int
	waiting  []int
}

type resetRequest struct {
	ctx    context.Context
	result chan error
}

// Scheduler 调度器
// 队列和房间状态只由调度协程修改, 外部通过 Submit 和 Reset 与之通信
type Scheduler struct {
	catalog RoomCatalog
	configs ConfigSource
	sink    SegmentSink
	bus     Publisher
	clock   clock.WithTicker

	intake intakeQueue
	resets chan resetRequest
	view   atomic.Pointer[snapshot]

	// 调度协程独占
	cfg     config.SchedulerConfig
	rooms   map[int]*roomState
	service *entryQueue
	waiting *entryQueue
	seq     uint64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(catalog RoomCatalog, configs ConfigSource, sink SegmentSink, opts ...Option) *Scheduler {
	s := &Scheduler{
		catalog: catalog,
		configs: configs,
		sink:    sink,
		bus:     nopPublisher{},
		clock:   clock.RealClock{},
		resets:  make(chan resetRequest),
		rooms:   make(map[int]*roomState),
		service: newEntryQueue(),
		waiting: newEntryQueue(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.view.Store(&snapshot{statuses: map[int]types.ACState{}})
	return s
}

// Start 加载房间目录并启动调度协程
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyRunning
	}
	if err := s.reset(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.run(loopCtx, s.done)

	logger.Info("Scheduler started: %d rooms, tick %v, capacity %d", len(s.rooms), s.cfg.TickInterval, s.cfg.Capacity)
	return nil
}

// Stop 停止调度, 等待当前 tick 结束
// 调度协程退出前 running 保持为 true, 期间的 Reset 仍交给调度协程或等待其退出
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.cancel()
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
		logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
}

// Done 调度协程退出时关闭, 未启动时返回 nil
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	interval := s.cfg.TickInterval
	ticker := s.clock.NewTicker(interval)
	defer func() { ticker.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.resets:
			err := s.reset(req.ctx)
			req.result <- err
			if err == nil && s.cfg.TickInterval != interval {
				ticker.Stop()
				interval = s.cfg.TickInterval
				ticker = s.clock.NewTicker(interval)
			}
		case <-ticker.C():
			s.safeTick()
		}
	}
}

func (s *Scheduler) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Scheduler tick panicked: %v", r)
		}
	}()
	s.tick()
}

// Submit 提交请求, 不阻塞, 在下一个 tick 被处理
func (s *Scheduler) Submit(req types.Request) {
	s.intake.push(req)
}

// Reset 清空队列并重新加载房间目录, 运行中时交给调度协程执行
func (s *Scheduler) Reset(ctx context.Context) error {
	for {
		s.mu.Lock()
		if !s.running {
			err := s.reset(ctx)
			s.mu.Unlock()
			return err
		}
		done := s.done
		s.mu.Unlock()

		req := resetRequest{ctx: ctx, result: make(chan error, 1)}
		select {
		case s.resets <- req:
		case <-done:
			// 调度协程已退出, 重新判断
			continue
		case <-ctx.Done():
			return ctx.Err()
		}
		select {
		case err := <-req.result:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Scheduler) reset(ctx context.Context) error {
	cfg := s.configs.SchedulerConfig()
	profiles, err := s.catalog.Profiles(ctx)
	if err != nil {
		return fmt.Errorf("load room catalog: %w", err)
	}

	s.cfg = cfg
	s.service.Clear()
	s.waiting.Clear()
	s.intake.drain()
	s.rooms = make(map[int]*roomState, len(profiles))
	for _, p := range profiles {
		s.rooms[p.ID] = &roomState{
			profile: p,
			state: types.ACState{
				RoomID:      p.ID,
				CurrentTemp: p.AmbientTemp,
				TargetTemp:  cfg.DefaultTemp,
				Speed:       cfg.DefaultSpeed,
				Status:      types.StatusClosed,
				Cooling:     cfg.Cooling(),
			},
		}
	}
	s.publishView()
	s.publish(events.EventSchedulerReset, 0, len(profiles))
	logger.Info("Scheduler reset: %d rooms, mode %s", len(profiles), cfg.Mode)
	return nil
}

// StatusOf 房间当前状态
func (s *Scheduler) StatusOf(roomID int) (types.ACState, bool) {
	st, ok := s.view.Load().statuses[roomID]
	return st, ok
}

// AllStatuses 所有房间状态的拷贝
func (s *Scheduler) AllStatuses() map[int]types.ACState {
	return lo.Assign(s.view.Load().statuses)
}

// Queues 服务队列和等待队列中的房间号, 按队列顺序
func (s *Scheduler) Queues() (service, waiting []int) {
	v := s.view.Load()
	return append([]int(nil), v.service...), append([]int(nil), v.waiting...)
}

func (s *Scheduler) publishView() {
	v := &snapshot{
		statuses: make(map[int]types.ACState, len(s.rooms)),
		service:  s.service.RoomIDs(),
		waiting:  s.waiting.RoomIDs(),
	}
	for id, r := range s.rooms {
		v.statuses[id] = r.state
	}
	s.view.Store(v)
}

func (s *Scheduler) publish(t events.EventType, roomID int, data interface{}) {
	s.bus.Publish(events.Event{Type: t, RoomID: roomID, Timestamp: s.clock.Now(), Data: data})
}

// intakeQueue 多生产者单消费者的请求队列
type intakeQueue struct {
	mu      sync.Mutex
	pending []types.Request
}

func (q *intakeQueue) push(req types.Request) {
	q.mu.Lock()
	q.pending = append(q.pending, req)
	q.mu.Unlock()
}

func (q *intakeQueue) drain() []types.Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}
