package scheduler

import (
	"time"

	"acdispatch/internal/events"
	"acdispatch/internal/logger"
	"acdispatch/internal/thermal"
	"acdispatch/internal/types"
)

// tick 按固定顺序执行一次调度
func (s *Scheduler) tick() {
	now := s.clock.Now()

	s.advanceTemperatures()
	s.releaseOnTarget(now)
	s.drainIntake(now)
	s.rotateExpired(now)
	s.processShutdowns(now)
	s.refill(now)
	s.preempt(now)

	s.publishView()
	s.seq++
	service, waiting := s.service.RoomIDs(), s.waiting.RoomIDs()
	s.publish(events.EventQueueStatusChange, 0, events.QueueStatusData{
		Seq:          s.seq,
		ServiceQueue: service,
		WaitQueue:    waiting,
		Statuses:     s.countStatuses(),
	})
}

func (s *Scheduler) advanceTemperatures() {
	cooling := s.cfg.Cooling()
	for _, e := range s.service.items {
		r := s.rooms[e.roomID]
		r.state.CurrentTemp += thermal.Step(cooling, s.cfg.RateOf(e.speed), s.cfg.Factor)
		e.ttl--
	}
	for id, r := range s.rooms {
		if s.service.Has(id) || r.state.Status == types.StatusWorking {
			continue
		}
		r.state.CurrentTemp = thermal.Drift(cooling, r.state.CurrentTemp, r.profile.AmbientTemp, s.cfg.BackSpeed, s.cfg.Factor)
	}
}

func (s *Scheduler) releaseOnTarget(now time.Time) {
	for _, e := range s.service.Entries() {
		r := s.rooms[e.roomID]
		if !r.state.OnTarget() {
			continue
		}
		s.emit(e, now)
		s.service.Remove(e.roomID)
		r.state.Status = types.StatusClosed
		s.publish(events.EventServiceComplete, e.roomID, r.state)
	}
}

func (s *Scheduler) drainIntake(now time.Time) {
	for _, req := range s.intake.drain() {
		s.isolate(req.RoomID, "intake", func() { s.apply(req, now) })
	}
}

func (s *Scheduler) apply(req types.Request, now time.Time) {
	r, ok := s.rooms[req.RoomID]
	if !ok {
		logger.Debug("Dropping request for unknown room %d", req.RoomID)
		return
	}

	if e, ok := s.service.Get(req.RoomID); ok {
		if !req.Open {
			e.open = false
			return
		}
		// 送风中修改参数: 结束旧区间, 以新参数替换条目并重新计时
		s.emit(e, now)
		e.target, e.speed = req.TargetTemp, req.Speed
		e.beginTime, e.beginTemp = now, r.state.CurrentTemp
		e.ttl = s.cfg.TimeSlice
		r.state.TargetTemp, r.state.Speed = req.TargetTemp, req.Speed
		return
	}

	if e, ok := s.waiting.Get(req.RoomID); ok {
		e.open = req.Open
		if req.Open {
			e.target, e.speed = req.TargetTemp, req.Speed
			r.state.TargetTemp, r.state.Speed = req.TargetTemp, req.Speed
		}
		return
	}

	if !req.Open {
		return
	}
	s.waiting.PushBack(&entry{
		roomID: req.RoomID,
		target: req.TargetTemp,
		speed:  req.Speed,
		open:   true,
		ttl:    s.cfg.TimeSlice,
	})
	r.state.TargetTemp, r.state.Speed = req.TargetTemp, req.Speed
	r.state.Status = types.StatusWaiting
	s.publish(events.EventRequestAccepted, req.RoomID, req)
}

func (s *Scheduler) rotateExpired(now time.Time) {
	for _, e := range s.service.Entries() {
		if e.ttl > 0 {
			continue
		}
		s.emit(e, now)
		e.ttl = s.cfg.TimeSlice
		s.service.Remove(e.roomID)
		s.waiting.PushBack(e)
		s.rooms[e.roomID].state.Status = types.StatusWaiting
		s.publish(events.EventTimeSliceExpired, e.roomID, nil)
	}
}

func (s *Scheduler) processShutdowns(now time.Time) {
	for _, e := range s.service.Entries() {
		if e.open {
			continue
		}
		s.emit(e, now)
		s.service.Remove(e.roomID)
		s.rooms[e.roomID].state.Status = types.StatusClosed
		s.publish(events.EventServiceShutdown, e.roomID, nil)
	}
	for _, e := range s.waiting.Entries() {
		if e.open {
			continue
		}
		s.waiting.Remove(e.roomID)
		s.rooms[e.roomID].state.Status = types.StatusClosed
		s.publish(events.EventServiceShutdown, e.roomID, nil)
	}
}

// refill 按等待顺序补满服务队列, 温差不足阈值的条目跳过但不阻塞后续条目
func (s *Scheduler) refill(now time.Time) {
	for _, e := range s.waiting.Entries() {
		if s.service.Len() >= s.cfg.Capacity {
			return
		}
		if s.gap(e) < s.cfg.Threshold {
			continue
		}
		s.waiting.Remove(e.roomID)
		s.promote(e, now)
	}
}

// preempt 高风速等待条目抢占低风速服务条目, 每次交换后从等待队首重新扫描
func (s *Scheduler) preempt(now time.Time) {
	for s.preemptOnce(now) {
	}
}

func (s *Scheduler) preemptOnce(now time.Time) bool {
	for _, w := range s.waiting.items {
		if s.gap(w) < s.cfg.Threshold {
			continue
		}
		for _, victim := range s.service.items {
			if victim.speed.Priority() >= w.speed.Priority() || s.gap(victim) <= s.cfg.Threshold {
				continue
			}
			s.emit(victim, now)
			s.service.Remove(victim.roomID)
			victim.ttl = s.cfg.TimeSlice
			s.waiting.PushBack(victim)
			s.rooms[victim.roomID].state.Status = types.StatusWaiting
			s.publish(events.EventServicePreempted, victim.roomID, w.roomID)

			s.waiting.Remove(w.roomID)
			s.promote(w, now)
			return true
		}
	}
	return false
}

func (s *Scheduler) promote(e *entry, now time.Time) {
	r := s.rooms[e.roomID]
	e.beginTime, e.beginTemp = now, r.state.CurrentTemp
	e.ttl = s.cfg.TimeSlice
	s.service.PushBack(e)
	r.state.Status = types.StatusWorking
	s.publish(events.EventServiceStart, e.roomID, e.speed)
}

// emit 结束条目当前的送风区间
func (s *Scheduler) emit(e *entry, now time.Time) {
	s.sink.Emit(types.UsageSegment{
		RoomID:    e.roomID,
		BeginTime: e.beginTime,
		EndTime:   now,
		BeginTemp: e.beginTemp,
		EndTemp:   s.rooms[e.roomID].state.CurrentTemp,
		Speed:     e.speed,
	})
}

func (s *Scheduler) gap(e *entry) float64 {
	st := s.rooms[e.roomID].state
	return thermal.Gap(st.Cooling, st.CurrentTemp, e.target)
}

func (s *Scheduler) countStatuses() map[types.Status]int {
	counts := map[types.Status]int{}
	for _, r := range s.rooms {
		counts[r.state.Status]++
	}
	return counts
}

// isolate 单个房间处理出错不影响同一 tick 中的其他房间
func (s *Scheduler) isolate(roomID int, step string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Scheduler %s failed for room %d: %v", step, roomID, r)
		}
	}()
	fn()
}
