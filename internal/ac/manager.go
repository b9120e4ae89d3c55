package ac

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"acdispatch/internal/config"
	"acdispatch/internal/db"
	"acdispatch/internal/events"
	"acdispatch/internal/logger"
	"acdispatch/internal/types"
)

var (
	ErrUnknownRoom = errors.New("unknown room")
	ErrACOff       = errors.New("air conditioner is off")
)

// Dispatcher 调度器对外接口
type Dispatcher interface {
	Submit(req types.Request)
	Reset(ctx context.Context) error
	StatusOf(roomID int) (types.ACState, bool)
}

// RoomLookup 查询房间室温
type RoomLookup interface {
	GetRoom(ctx context.Context, roomID int) (*db.Room, error)
}

type Publisher interface {
	Publish(event events.Event)
}

// Manager 中央空调管理: 总开关, 调度参数, 房间请求准入
type Manager struct {
	configs db.IACConfigRepository
	rooms   RoomLookup
	bus     Publisher

	// 串行化开关机和配置变更
	opMu     sync.Mutex
	mu       sync.RWMutex
	enabled  bool
	cfg      config.SchedulerConfig
	dispatch Dispatcher
}

func NewManager(configs db.IACConfigRepository, rooms RoomLookup, defaults config.SchedulerConfig, bus Publisher) *Manager {
	return &Manager{
		configs: configs,
		rooms:   rooms,
		bus:     bus,
		cfg:     defaults,
	}
}

// Attach 绑定调度器, 调度器创建时需要 Manager 作为配置来源
func (m *Manager) Attach(d Dispatcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatch = d
}

// Load 恢复上次保存的总开关和调度参数
func (m *Manager) Load(ctx context.Context) error {
	rec, err := m.configs.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ac config: %w", err)
	}
	if rec == nil {
		return nil
	}
	cfg := fromRecord(rec)
	if err := cfg.Validate(); err != nil {
		logger.Warn("Ignoring stored ac config: %v", err)
		return nil
	}

	m.mu.Lock()
	m.cfg = cfg
	m.enabled = rec.MainUnitOn
	m.mu.Unlock()
	logger.Info("Restored ac config: mode %s, main unit on %v", cfg.Mode, rec.MainUnitOn)
	return nil
}

// SchedulerConfig 当前调度参数
func (m *Manager) SchedulerConfig() config.SchedulerConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

func (m *Manager) Enabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.enabled
}

func (m *Manager) dispatcher() Dispatcher {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dispatch
}

// Open 开启中央空调并应用参数
func (m *Manager) Open(ctx context.Context, cfg config.SchedulerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.apply(ctx, cfg, true); err != nil {
		return err
	}
	m.publish(events.EventSystemOpened, cfg)
	logger.Info("Central AC opened in %s mode", cfg.Mode)
	return nil
}

// Close 关闭中央空调, 所有房间回到关机状态
func (m *Manager) Close(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.configs.SetMainUnitState(ctx, false); err != nil {
		return fmt.Errorf("save main unit state: %w", err)
	}
	m.mu.Lock()
	m.enabled = false
	m.mu.Unlock()

	if err := m.reset(ctx); err != nil {
		return err
	}
	m.publish(events.EventSystemClosed, nil)
	logger.Info("Central AC closed")
	return nil
}

// Configure 运行中修改参数
func (m *Manager) Configure(ctx context.Context, cfg config.SchedulerConfig) error {
	if !m.Enabled() {
		return ErrSystemNotOpen
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.opMu.Lock()
	defer m.opMu.Unlock()

	if err := m.apply(ctx, cfg, true); err != nil {
		return err
	}
	m.publish(events.EventConfigChanged, cfg)
	return nil
}

// Reset 重新同步调度器, 仅在系统开启时允许
func (m *Manager) Reset(ctx context.Context) error {
	if !m.Enabled() {
		return ErrSystemNotOpen
	}
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.reset(ctx)
}

// RoomsChanged 房间目录变化后重新同步
func (m *Manager) RoomsChanged(ctx context.Context) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.reset(ctx)
}

func (m *Manager) apply(ctx context.Context, cfg config.SchedulerConfig, on bool) error {
	if err := m.configs.Save(ctx, toRecord(cfg, on)); err != nil {
		return fmt.Errorf("save ac config: %w", err)
	}
	m.mu.Lock()
	m.cfg = cfg
	m.enabled = on
	m.mu.Unlock()
	return m.reset(ctx)
}

func (m *Manager) reset(ctx context.Context) error {
	d := m.dispatcher()
	if d == nil {
		return nil
	}
	return d.Reset(ctx)
}

// Submit 校验后提交请求
func (m *Manager) Submit(ctx context.Context, req types.Request) error {
	d := m.dispatcher()
	if d == nil {
		return ErrSystemNotOpen
	}

	m.mu.RLock()
	cfg, enabled := m.cfg, m.enabled
	m.mu.RUnlock()

	ambient := 0.0
	if req.Open && enabled {
		room, err := m.rooms.GetRoom(ctx, req.RoomID)
		if err != nil {
			if errors.Is(err, db.ErrRoomNotFound) {
				return fmt.Errorf("room %d: %w", req.RoomID, ErrUnknownRoom)
			}
			return err
		}
		ambient = room.AmbientTemp
	}
	if err := Validate(req, cfg, enabled, ambient); err != nil {
		return err
	}

	d.Submit(req)
	logger.Debug("Submitted %s", req)
	return nil
}

// PowerOn 按默认目标温度和风速开机
func (m *Manager) PowerOn(ctx context.Context, roomID int) error {
	cfg := m.SchedulerConfig()
	return m.Submit(ctx, types.Request{RoomID: roomID, Open: true, TargetTemp: cfg.DefaultTemp, Speed: cfg.DefaultSpeed})
}

func (m *Manager) PowerOff(ctx context.Context, roomID int) error {
	return m.Submit(ctx, types.Request{RoomID: roomID, Open: false})
}

// ChangeTemp 保持当前风速修改目标温度
func (m *Manager) ChangeTemp(ctx context.Context, roomID int, target float64) error {
	st, err := m.activeState(roomID)
	if err != nil {
		return err
	}
	return m.Submit(ctx, types.Request{RoomID: roomID, Open: true, TargetTemp: target, Speed: st.Speed})
}

// ChangeSpeed 保持当前目标温度修改风速
func (m *Manager) ChangeSpeed(ctx context.Context, roomID int, speed types.Speed) error {
	st, err := m.activeState(roomID)
	if err != nil {
		return err
	}
	return m.Submit(ctx, types.Request{RoomID: roomID, Open: true, TargetTemp: st.TargetTemp, Speed: speed})
}

func (m *Manager) activeState(roomID int) (types.ACState, error) {
	d := m.dispatcher()
	if d == nil || !m.Enabled() {
		return types.ACState{}, ErrSystemNotOpen
	}
	st, ok := d.StatusOf(roomID)
	if !ok {
		return types.ACState{}, fmt.Errorf("room %d: %w", roomID, ErrUnknownRoom)
	}
	if st.Status == types.StatusClosed {
		return types.ACState{}, fmt.Errorf("room %d: %w", roomID, ErrACOff)
	}
	return st, nil
}

func (m *Manager) publish(t events.EventType, data interface{}) {
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.Event{Type: t, Timestamp: time.Now(), Data: data})
}

func toRecord(cfg config.SchedulerConfig, on bool) *db.ACConfig {
	return &db.ACConfig{
		Mode:         string(cfg.Mode),
		MinTemp:      cfg.MinTemp,
		MaxTemp:      cfg.MaxTemp,
		LowRate:      cfg.LowRate,
		MediumRate:   cfg.MediumRate,
		HighRate:     cfg.HighRate,
		BackSpeed:    cfg.BackSpeed,
		Threshold:    cfg.Threshold,
		Price:        cfg.Price,
		Factor:       cfg.Factor,
		Capacity:     cfg.Capacity,
		TimeSlice:    cfg.TimeSlice,
		TickInterval: cfg.TickInterval,
		DefaultTemp:  cfg.DefaultTemp,
		DefaultSpeed: string(cfg.DefaultSpeed),
		MainUnitOn:   on,
	}
}

func fromRecord(rec *db.ACConfig) config.SchedulerConfig {
	return config.SchedulerConfig{
		Mode:         types.Mode(rec.Mode),
		MinTemp:      rec.MinTemp,
		MaxTemp:      rec.MaxTemp,
		LowRate:      rec.LowRate,
		MediumRate:   rec.MediumRate,
		HighRate:     rec.HighRate,
		BackSpeed:    rec.BackSpeed,
		Threshold:    rec.Threshold,
		Price:        rec.Price,
		Factor:       rec.Factor,
		Capacity:     rec.Capacity,
		TimeSlice:    rec.TimeSlice,
		TickInterval: rec.TickInterval,
		DefaultTemp:  rec.DefaultTemp,
		DefaultSpeed: types.Speed(rec.DefaultSpeed),
	}
}
