package handlers

import (
	"context"
	"fmt"

	"acdispatch/internal/db"
	"acdispatch/internal/logger"

	"github.com/gin-gonic/gin"
)

// RoomSync 房间目录变化后重新同步调度器
type RoomSync interface {
	RoomsChanged(ctx context.Context) error
}

type CreateRoomRequest struct {
	RoomID      int      `json:"roomId" binding:"required,gt=0"`
	Name        string   `json:"name"`
	AmbientTemp *float64 `json:"ambientTemperature" binding:"required"` // 指针区分缺省与 0 度
}

type RoomHandler struct {
	roomRepo db.IRoomRepository
	sync     RoomSync
}

func NewRoomHandler(roomRepo db.IRoomRepository, sync RoomSync) *RoomHandler {
	return &RoomHandler{roomRepo: roomRepo, sync: sync}
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomRepo.ListRooms(c.Request.Context())
	if err != nil {
		fail(c, "获取房间失败", err)
		return
	}
	ok(c, "获取房间成功", rooms)
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Name == "" {
		req.Name = fmt.Sprintf("%d", req.RoomID)
	}

	room := &db.Room{RoomID: req.RoomID, Name: req.Name, AmbientTemp: *req.AmbientTemp}
	if err := h.roomRepo.CreateRoom(c.Request.Context(), room); err != nil {
		fail(c, "添加房间失败", err)
		return
	}
	h.resync(c.Request.Context())
	ok(c, "添加房间成功", room)
}

func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID, valid := roomParam(c)
	if !valid {
		return
	}
	if err := h.roomRepo.DeleteRoom(c.Request.Context(), roomID); err != nil {
		fail(c, fmt.Sprintf("房间 %d 删除失败", roomID), err)
		return
	}
	h.resync(c.Request.Context())
	ok(c, "删除房间成功", gin.H{"roomId": roomID})
}

// resync 失败不影响目录变更本身
func (h *RoomHandler) resync(ctx context.Context) {
	if err := h.sync.RoomsChanged(ctx); err != nil {
		logger.Error("Failed to resync scheduler after room change: %v", err)
	}
}
