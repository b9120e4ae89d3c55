// internal/monitor/monitor.go

package monitor

import (
	"net/http"
	"sync"
	"time"

	"acdispatch/internal/events"
	"acdispatch/internal/logger"
	"acdispatch/internal/types"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// QueueSource 调度器只读视图
type QueueSource interface {
	Queues() (service, waiting []int)
	AllStatuses() map[int]types.ACState
}

// dispatchEvents 计入 acd_dispatch_events_total 的事件
var dispatchEvents = []events.EventType{
	events.EventRequestAccepted,
	events.EventServiceStart,
	events.EventServiceComplete,
	events.EventServicePreempted,
	events.EventTimeSliceExpired,
	events.EventServiceShutdown,
	events.EventSchedulerReset,
}

type Monitor struct {
	eventBus        *events.EventBus
	source          QueueSource
	monitorInterval time.Duration
	registry        *prometheus.Registry

	serviceQueueLength prometheus.Gauge
	waitQueueLength    prometheus.Gauge
	roomsByStatus      *prometheus.GaugeVec
	dispatchTotal      *prometheus.CounterVec
	segmentsPersisted  prometheus.Counter
	segmentsDropped    *prometheus.CounterVec
	feeTotal           prometheus.Counter

	// 队列类指标由事件和轮询共同写入
	gaugeMu sync.Mutex
	lastSeq uint64

	mu       sync.Mutex
	subs     []events.Subscription
	stopChan chan struct{}
	done     chan struct{}
}

func NewMonitor(eventBus *events.EventBus, source QueueSource, interval time.Duration) *Monitor {
	if interval == 0 {
		interval = 5 * time.Second // 默认5秒更新一次
	}

	m := &Monitor{
		eventBus:        eventBus,
		source:          source,
		monitorInterval: interval,
		registry:        prometheus.NewRegistry(),
		serviceQueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acd_service_queue_length",
			Help: "Rooms currently being served.",
		}),
		waitQueueLength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "acd_waiting_queue_length",
			Help: "Rooms waiting for a service slot.",
		}),
		roomsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "acd_rooms_by_status",
			Help: "Rooms per AC status.",
		}, []string{"status"}),
		dispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acd_dispatch_events_total",
			Help: "Dispatch events by type.",
		}, []string{"type"}),
		segmentsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acd_segments_persisted_total",
			Help: "Usage segments written to storage.",
		}),
		segmentsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "acd_segments_dropped_total",
			Help: "Usage segments not written, by reason.",
		}, []string{"reason"}),
		feeTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "acd_fee_total",
			Help: "Sum of fees of persisted segments.",
		}),
	}
	m.registry.MustRegister(
		m.serviceQueueLength,
		m.waitQueueLength,
		m.roomsByStatus,
		m.dispatchTotal,
		m.segmentsPersisted,
		m.segmentsDropped,
		m.feeTotal,
	)
	return m
}

// Registry 指标注册表
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}

// Handler /metrics 处理器
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Monitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopChan != nil {
		return
	}

	m.subs = append(m.subs,
		m.eventBus.Subscribe(events.EventQueueStatusChange, m.onQueueStatus),
		m.eventBus.Subscribe(events.EventSegmentPersisted, m.onSegment),
		m.eventBus.Subscribe(events.EventSegmentDropped, m.onSegment),
	)
	for _, t := range dispatchEvents {
		m.subs = append(m.subs, m.eventBus.Subscribe(t, m.onDispatch))
	}

	m.stopChan = make(chan struct{})
	m.done = make(chan struct{})
	go m.run(m.stopChan, m.done)
	logger.Info("Monitor started with interval: %v", m.monitorInterval)
}

func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopChan == nil {
		return
	}
	for _, sub := range m.subs {
		m.eventBus.Unsubscribe(sub)
	}
	m.subs = nil
	close(m.stopChan)
	<-m.done
	m.stopChan = nil
	logger.Info("Monitor stopped")
}

func (m *Monitor) run(stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(m.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.poll()
		case <-stop:
			return
		}
	}
}

// poll 定时从调度器快照校准队列指标, 并输出状态报告
// 快照总是最新的, 以轮询结果为准; 事件只在两次轮询之间提供更及时的值
func (m *Monitor) poll() {
	service, waiting := m.source.Queues()
	statuses := m.source.AllStatuses()

	counts := make(map[types.Status]int)
	for _, st := range statuses {
		counts[st.Status]++
	}
	m.gaugeMu.Lock()
	m.observeQueues(len(service), len(waiting), counts)
	m.gaugeMu.Unlock()

	logger.Debug("Service queue %v, wait queue %v", service, waiting)
	for _, id := range service {
		st := statuses[id]
		logger.Debug("Room %d: Speed=%s, Current=%.2f°C, Target=%.1f°C", id, st.Speed, st.CurrentTemp, st.TargetTemp)
	}
}

func (m *Monitor) observeQueues(service, waiting int, counts map[types.Status]int) {
	m.serviceQueueLength.Set(float64(service))
	m.waitQueueLength.Set(float64(waiting))
	for _, s := range []types.Status{types.StatusClosed, types.StatusWaiting, types.StatusWorking} {
		m.roomsByStatus.WithLabelValues(string(s)).Set(float64(counts[s]))
	}
}

// onQueueStatus 事件异步投递, 序号不大于已应用序号的旧快照直接丢弃
func (m *Monitor) onQueueStatus(e events.Event) {
	data, ok := e.Data.(events.QueueStatusData)
	if !ok {
		return
	}
	m.gaugeMu.Lock()
	defer m.gaugeMu.Unlock()
	if data.Seq <= m.lastSeq {
		return
	}
	m.lastSeq = data.Seq
	m.observeQueues(len(data.ServiceQueue), len(data.WaitQueue), data.Statuses)
}

func (m *Monitor) onDispatch(e events.Event) {
	m.dispatchTotal.WithLabelValues(e.Type.String()).Inc()
}

func (m *Monitor) onSegment(e events.Event) {
	data, ok := e.Data.(events.SegmentData)
	if !ok {
		return
	}
	if e.Type == events.EventSegmentDropped {
		m.segmentsDropped.WithLabelValues(data.Reason).Inc()
		return
	}
	m.segmentsPersisted.Inc()
	m.feeTotal.Add(data.Fee)
}
