// internal/handlers/ac_handler.go

package handlers

import (
	"context"
	"fmt"

	"acdispatch/internal/ac"
	"acdispatch/internal/types"

	"github.com/gin-gonic/gin"
)

// Controller 房间请求入口
type Controller interface {
	PowerOn(ctx context.Context, roomID int) error
	PowerOff(ctx context.Context, roomID int) error
	ChangeTemp(ctx context.Context, roomID int, target float64) error
	ChangeSpeed(ctx context.Context, roomID int, speed types.Speed) error
	Submit(ctx context.Context, req types.Request) error
}

// StatusView 调度器只读视图
type StatusView interface {
	StatusOf(roomID int) (types.ACState, bool)
	AllStatuses() map[int]types.ACState
	Queues() (service, waiting []int)
}

// FeeSource 房间未结账费用
type FeeSource interface {
	Total(ctx context.Context, roomID int) (float64, error)
}

// 开关机请求
type PowerRequest struct {
	RoomNumber int `json:"roomNumber" binding:"required,gt=0"` // 房间号
}

// 温度调节请求
type ChangeTempRequest struct {
	RoomNumber        int     `json:"roomNumber" binding:"required,gt=0"`
	TargetTemperature float64 `json:"targetTemperature" binding:"required"`
}

// 风速调节请求
type ChangeSpeedRequest struct {
	RoomNumber      int    `json:"roomNumber" binding:"required,gt=0"`
	CurrentFanSpeed string `json:"currentFanSpeed" binding:"required,oneof=low medium high"`
}

// 完整的房间请求
type ACRequest struct {
	RoomNumber        int     `json:"roomNumber" binding:"required,gt=0"`
	Open              bool    `json:"open"`
	TargetTemperature float64 `json:"targetTemperature"`
	FanSpeed          string  `json:"fanSpeed" binding:"omitempty,oneof=low medium high"`
}

// 房间状态响应
type RoomStatusResponse struct {
	RoomNumber         int     `json:"roomNumber"`
	Status             string  `json:"status"`
	OperationMode      string  `json:"operationMode"`
	CurrentTemperature float64 `json:"currentTemperature"`
	TargetTemperature  float64 `json:"targetTemperature"`
	CurrentFanSpeed    string  `json:"currentFanSpeed"`
	TotalCost          float64 `json:"totalCost"`
}

// 顾客空调面板
type ACHandler struct {
	controller Controller
	view       StatusView
	fees       FeeSource
}

func NewACHandler(controller Controller, view StatusView, fees FeeSource) *ACHandler {
	return &ACHandler{controller: controller, view: view, fees: fees}
}

func (h *ACHandler) PowerOn(c *gin.Context) {
	var req PowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.controller.PowerOn(c.Request.Context(), req.RoomNumber); err != nil {
		fail(c, "开机失败", err)
		return
	}
	ok(c, "开机请求已受理", gin.H{"roomNumber": req.RoomNumber})
}

func (h *ACHandler) PowerOff(c *gin.Context) {
	var req PowerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.controller.PowerOff(c.Request.Context(), req.RoomNumber); err != nil {
		fail(c, "关机失败", err)
		return
	}
	ok(c, "关机请求已受理", gin.H{"roomNumber": req.RoomNumber})
}

func (h *ACHandler) ChangeTemp(c *gin.Context) {
	var req ChangeTempRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.controller.ChangeTemp(c.Request.Context(), req.RoomNumber, req.TargetTemperature); err != nil {
		fail(c, "调温失败", err)
		return
	}
	ok(c, "调温请求已受理", gin.H{"roomNumber": req.RoomNumber, "targetTemperature": req.TargetTemperature})
}

func (h *ACHandler) ChangeSpeed(c *gin.Context) {
	var req ChangeSpeedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	speed := types.Speed(req.CurrentFanSpeed)
	if err := h.controller.ChangeSpeed(c.Request.Context(), req.RoomNumber, speed); err != nil {
		fail(c, "调风失败", err)
		return
	}
	ok(c, "调风请求已受理", gin.H{"roomNumber": req.RoomNumber, "currentFanSpeed": speed})
}

// Request 一次提交开关, 目标温度和风速
func (h *ACHandler) Request(c *gin.Context) {
	var req ACRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	acReq := types.Request{RoomID: req.RoomNumber, Open: req.Open, TargetTemp: req.TargetTemperature, Speed: types.Speed(req.FanSpeed)}
	if req.Open && req.FanSpeed == "" {
		badRequest(c, fmt.Errorf("fanSpeed is required when open"))
		return
	}
	if err := h.controller.Submit(c.Request.Context(), acReq); err != nil {
		fail(c, "请求失败", err)
		return
	}
	ok(c, "请求已受理", acReq)
}

func (h *ACHandler) Status(c *gin.Context) {
	roomID, valid := roomParam(c)
	if !valid {
		return
	}
	st, found := h.view.StatusOf(roomID)
	if !found {
		fail(c, fmt.Sprintf("房间 %d 不存在", roomID), fmt.Errorf("room %d: %w", roomID, ac.ErrUnknownRoom))
		return
	}
	total, err := h.fees.Total(c.Request.Context(), roomID)
	if err != nil {
		fail(c, "查询费用失败", err)
		return
	}

	mode := types.ModeHeating
	if st.Cooling {
		mode = types.ModeCooling
	}
	ok(c, "ok", RoomStatusResponse{
		RoomNumber:         roomID,
		Status:             string(st.Status),
		OperationMode:      string(mode),
		CurrentTemperature: st.CurrentTemp,
		TargetTemperature:  st.TargetTemp,
		CurrentFanSpeed:    string(st.Speed),
		TotalCost:          total,
	})
}
