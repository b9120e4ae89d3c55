package scheduler

import (
	"testing"

	"acdispatch/internal/config"
	"acdispatch/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	L = types.SpeedLow
	M = types.SpeedMedium
	H = types.SpeedHigh
)

func on(room int, target float64, speed types.Speed) types.Request {
	return types.Request{RoomID: room, Open: true, TargetTemp: target, Speed: speed}
}

func off(room int) types.Request {
	return types.Request{RoomID: room, Open: false}
}

// 制热验收用例: 五个房间, 每步一分钟(加速 6 倍下 10 个 tick)
var (
	hotRooms = []types.RoomProfile{
		{ID: 1, AmbientTemp: 10},
		{ID: 2, AmbientTemp: 15},
		{ID: 3, AmbientTemp: 18},
		{ID: 4, AmbientTemp: 12},
		{ID: 5, AmbientTemp: 14},
	}
	hotCases = [][]types.Request{
		{},
		{on(1, 22, M)},
		{on(1, 24, M), on(2, 24, M)},
		{on(3, 22, M)},
		{on(2, 25, M), on(4, 22, M), on(5, 22, M)},
		{on(3, 27, M), on(5, 22, H)},
		{on(1, 24, H)},
		{},
		{on(5, 24, H)},
		{},
		{on(1, 28, H), on(4, 28, H)},
		{},
		{on(5, 24, M)},
		{on(2, 25, H)},
		{},
		{off(1), on(3, 27, L)},
		{},
		{off(5)},
		{on(3, 27, H)},
		{on(1, 28, H), on(4, 25, M)},
		{},
		{on(2, 27, M), on(5, 24, M)},
		{},
		{},
		{},
		{off(1), off(3), off(5)},
		{off(2), off(4)},
	}
)

func acceptanceConfig(mode types.Mode) config.SchedulerConfig {
	cfg := config.DefaultScheduler()
	cfg.Mode = mode
	cfg.MinTemp, cfg.MaxTemp = 18, 28
	cfg.LowRate, cfg.MediumRate, cfg.HighRate = 3, 2, 1
	cfg.BackSpeed = 0.5
	cfg.Threshold = 0.5
	cfg.Factor = 6
	cfg.Price = 1
	cfg.Capacity = 3
	cfg.TimeSlice = 20
	return cfg
}

func TestHeatingScenario(t *testing.T) {
	cfg := acceptanceConfig(types.ModeHeating)
	h := newHarness(t, cfg, hotRooms)

	const ticksPerStep = 10
	for step, requests := range hotCases {
		for _, req := range requests {
			h.s.Submit(req)
		}
		for i := 0; i < ticksPerStep; i++ {
			h.ticks(1)

			service, waiting := h.s.Queues()
			require.LessOrEqual(t, len(service), cfg.Capacity, "step %d", step)
			for _, id := range service {
				require.NotContains(t, waiting, id, "step %d: room %d in both queues", step, id)
				require.Equal(t, types.StatusWorking, h.status(t, id).Status)
			}
			for _, id := range waiting {
				require.Equal(t, types.StatusWaiting, h.status(t, id).Status)
			}
		}
	}

	// 全部关机后队列为空
	service, waiting := h.s.Queues()
	assert.Empty(t, service)
	assert.Empty(t, waiting)

	fees := map[int]float64{}
	total := 0.0
	for _, seg := range h.sink.all() {
		fee := cfg.Price * seg.Delta()
		fees[seg.RoomID] += fee
		total += fee
	}

	// 每步固定 10 次 tick 的确定性回放
	assert.InDelta(t, 16.5, fees[1], 0.01)
	assert.InDelta(t, 11.0, fees[2], 0.01)
	assert.InDelta(t, 10.33, fees[3], 0.01)
	assert.InDelta(t, 12.0, fees[4], 0.01)
	assert.InDelta(t, 8.5, fees[5], 0.01)
	assert.InDelta(t, 58.33, total, 0.01)
}

func TestHeatingScenarioSegmentsAreContiguous(t *testing.T) {
	cfg := acceptanceConfig(types.ModeHeating)
	h := newHarness(t, cfg, hotRooms)
	for _, requests := range hotCases {
		for _, req := range requests {
			h.s.Submit(req)
		}
		h.ticks(10)
	}

	for _, room := range hotRooms {
		segs := h.sink.forRoom(room.ID)
		require.NotEmpty(t, segs, "room %d", room.ID)
		for i, seg := range segs {
			assert.False(t, seg.EndTime.Before(seg.BeginTime), "room %d segment %d", room.ID, i)
			// 制热模式下送风区间温度不会下降
			assert.GreaterOrEqual(t, seg.EndTemp, seg.BeginTemp, "room %d segment %d", room.ID, i)
			if i > 0 {
				assert.False(t, seg.BeginTime.Before(segs[i-1].EndTime), "room %d segments overlap", room.ID)
			}
		}
	}
}
