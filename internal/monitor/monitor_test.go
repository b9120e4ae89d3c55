package monitor

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"acdispatch/internal/events"
	"acdispatch/internal/types"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSource struct {
	service, waiting []int
	statuses         map[int]types.ACState
}

func (s staticSource) Queues() ([]int, []int) { return s.service, s.waiting }

func (s staticSource) AllStatuses() map[int]types.ACState { return s.statuses }

func TestMonitorEvents(t *testing.T) {
	bus := events.NewEventBus()
	m := NewMonitor(bus, staticSource{}, time.Hour)
	m.Start()
	defer m.Stop()

	bus.Publish(events.Event{Type: events.EventQueueStatusChange, Data: events.QueueStatusData{
		Seq:          1,
		ServiceQueue: []int{1, 2, 3},
		WaitQueue:    []int{4},
		Statuses:     map[types.Status]int{types.StatusWorking: 3, types.StatusWaiting: 1, types.StatusClosed: 1},
	}})
	bus.Publish(events.Event{Type: events.EventServicePreempted, RoomID: 2})
	bus.Publish(events.Event{Type: events.EventServicePreempted, RoomID: 3})
	bus.Publish(events.Event{Type: events.EventSegmentPersisted, Data: events.SegmentData{Fee: 1.5}})
	bus.Publish(events.Event{Type: events.EventSegmentPersisted, Data: events.SegmentData{Fee: 2}})
	bus.Publish(events.Event{Type: events.EventSegmentDropped, Data: events.SegmentData{Reason: "zero-delta"}})
	bus.Wait()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.serviceQueueLength))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.waitQueueLength))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.roomsByStatus.WithLabelValues("closed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.dispatchTotal.WithLabelValues("ServicePreempted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.segmentsPersisted))
	assert.InDelta(t, 3.5, testutil.ToFloat64(m.feeTotal), 1e-12)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.segmentsDropped.WithLabelValues("zero-delta")))
}

func TestMonitorIgnoresStaleQueueStatus(t *testing.T) {
	m := NewMonitor(events.NewEventBus(), staticSource{}, time.Hour)
	queueEvent := func(seq uint64, service, waiting []int) events.Event {
		return events.Event{Type: events.EventQueueStatusChange, Data: events.QueueStatusData{
			Seq:          seq,
			ServiceQueue: service,
			WaitQueue:    waiting,
			Statuses:     map[types.Status]int{types.StatusWorking: len(service), types.StatusWaiting: len(waiting)},
		}}
	}

	m.onQueueStatus(queueEvent(5, []int{1, 2, 3}, []int{4, 5}))
	// 晚到的旧快照
	m.onQueueStatus(queueEvent(4, []int{1}, nil))
	m.onQueueStatus(queueEvent(5, []int{1}, nil))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.serviceQueueLength))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.waitQueueLength))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.roomsByStatus.WithLabelValues("waiting")))

	m.onQueueStatus(queueEvent(6, []int{1}, nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.serviceQueueLength))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.waitQueueLength))
}

func TestMonitorPoll(t *testing.T) {
	src := staticSource{
		service: []int{1},
		waiting: []int{2, 3},
		statuses: map[int]types.ACState{
			1: {RoomID: 1, Status: types.StatusWorking},
			2: {RoomID: 2, Status: types.StatusWaiting},
			3: {RoomID: 3, Status: types.StatusWaiting},
		},
	}
	m := NewMonitor(events.NewEventBus(), src, time.Hour)
	m.poll()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.serviceQueueLength))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.waitQueueLength))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.roomsByStatus.WithLabelValues("waiting")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.roomsByStatus.WithLabelValues("closed")))
}

func TestMonitorHandler(t *testing.T) {
	m := NewMonitor(events.NewEventBus(), staticSource{}, 0)
	assert.Equal(t, 5*time.Second, m.monitorInterval)
	m.poll()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "acd_service_queue_length 0"))
}

func TestMonitorStartStopIdempotent(t *testing.T) {
	m := NewMonitor(events.NewEventBus(), staticSource{}, 10*time.Millisecond)
	m.Stop()
	m.Start()
	m.Start()
	time.Sleep(30 * time.Millisecond)
	m.Stop()
	m.Stop()
}
