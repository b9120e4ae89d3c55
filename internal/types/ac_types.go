// internal/types/ac_types.go

package types

import (
	"fmt"
	"time"
)

// Mode 空调工作模式
type Mode string

const (
	ModeCooling Mode = "cooling"
	ModeHeating Mode = "heating"
)

func (m Mode) Cooling() bool { return m == ModeCooling }

// Speed 风速
type Speed string

const (
	SpeedLow    Speed = "low"
	SpeedMedium Speed = "medium"
	SpeedHigh   Speed = "high"
)

// speedPriority 风速优先级, 数值越大优先级越高
var speedPriority = map[Speed]int{
	SpeedLow:    1,
	SpeedMedium: 2,
	SpeedHigh:   3,
}

// Priority 返回风速优先级, 未知风速返回0
func (s Speed) Priority() int {
	return speedPriority[s]
}

func (s Speed) Valid() bool {
	_, ok := speedPriority[s]
	return ok
}

// ParseSpeed 解析风速字符串
func ParseSpeed(v string) (Speed, error) {
	s := Speed(v)
	if !s.Valid() {
		return "", fmt.Errorf("invalid fan speed %q", v)
	}
	return s, nil
}

// Status 空调生命周期状态
type Status string

const (
	StatusClosed  Status = "closed"
	StatusWaiting Status = "waiting"
	StatusWorking Status = "working"
)

// RoomProfile 房间目录信息, 调度器只读
type RoomProfile struct {
	ID          int     `json:"roomId"`
	Name        string  `json:"name"`
	AmbientTemp float64 `json:"ambientTemperature"`
}

// ACState 房间空调的实时状态
type ACState struct {
	RoomID      int     `json:"roomId"`
	CurrentTemp float64 `json:"currentTemperature"`
	TargetTemp  float64 `json:"targetTemperature"`
	Speed       Speed   `json:"fanSpeed"`
	Status      Status  `json:"status"`
	Cooling     bool    `json:"cooling"`
}

// OnTarget 制冷时当前温度不高于目标, 制热时不低于目标
func (s ACState) OnTarget() bool {
	if s.Cooling {
		return s.CurrentTemp <= s.TargetTemp
	}
	return s.CurrentTemp >= s.TargetTemp
}

// Request 房间提交的服务请求
type Request struct {
	RoomID     int     `json:"roomId"`
	Open       bool    `json:"open"`
	TargetTemp float64 `json:"targetTemperature"`
	Speed      Speed   `json:"fanSpeed"`
}

func (r Request) String() string {
	return fmt.Sprintf("room %d open=%v target=%.2f speed=%s", r.RoomID, r.Open, r.TargetTemp, r.Speed)
}

// UsageSegment 一段连续送风区间, 计费的基本单位
type UsageSegment struct {
	RoomID    int       `json:"roomId"`
	BeginTime time.Time `json:"beginTime"`
	EndTime   time.Time `json:"endTime"`
	BeginTemp float64   `json:"beginTemperature"`
	EndTemp   float64   `json:"endTemperature"`
	Speed     Speed     `json:"fanSpeed"`
}

// Delta 温度变化量(绝对值)
func (u UsageSegment) Delta() float64 {
	if u.BeginTemp > u.EndTemp {
		return u.BeginTemp - u.EndTemp
	}
	return u.EndTemp - u.BeginTemp
}
