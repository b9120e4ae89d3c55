package handlers

import (
	"context"

	"acdispatch/internal/config"

	"github.com/gin-gonic/gin"
)

// Admin 中央空调管理接口
type Admin interface {
	Open(ctx context.Context, cfg config.SchedulerConfig) error
	Close(ctx context.Context) error
	Configure(ctx context.Context, cfg config.SchedulerConfig) error
	Reset(ctx context.Context) error
	Enabled() bool
	SchedulerConfig() config.SchedulerConfig
}

type AdminHandler struct {
	admin Admin
	view  StatusView
}

func NewAdminHandler(admin Admin, view StatusView) *AdminHandler {
	return &AdminHandler{admin: admin, view: view}
}

// bindConfig 以当前参数为基础, 请求体只需包含要修改的字段
func (h *AdminHandler) bindConfig(c *gin.Context) (config.SchedulerConfig, bool) {
	cfg := h.admin.SchedulerConfig()
	if c.Request.ContentLength == 0 {
		return cfg, true
	}
	if err := c.ShouldBindJSON(&cfg); err != nil {
		badRequest(c, err)
		return cfg, false
	}
	return cfg, true
}

func (h *AdminHandler) Open(c *gin.Context) {
	cfg, valid := h.bindConfig(c)
	if !valid {
		return
	}
	if err := h.admin.Open(c.Request.Context(), cfg); err != nil {
		fail(c, "开启中央空调失败", err)
		return
	}
	ok(c, "中央空调已开启", h.admin.SchedulerConfig())
}

func (h *AdminHandler) Close(c *gin.Context) {
	if err := h.admin.Close(c.Request.Context()); err != nil {
		fail(c, "关闭中央空调失败", err)
		return
	}
	ok(c, "中央空调已关闭", nil)
}

func (h *AdminHandler) Configure(c *gin.Context) {
	cfg, valid := h.bindConfig(c)
	if !valid {
		return
	}
	if err := h.admin.Configure(c.Request.Context(), cfg); err != nil {
		fail(c, "修改参数失败", err)
		return
	}
	ok(c, "参数已更新", h.admin.SchedulerConfig())
}

func (h *AdminHandler) Reset(c *gin.Context) {
	if err := h.admin.Reset(c.Request.Context()); err != nil {
		fail(c, "重置失败", err)
		return
	}
	ok(c, "调度器已重置", nil)
}

// Status 总开关, 参数和所有房间状态
func (h *AdminHandler) Status(c *gin.Context) {
	ok(c, "ok", gin.H{
		"enabled": h.admin.Enabled(),
		"config":  h.admin.SchedulerConfig(),
		"rooms":   h.view.AllStatuses(),
	})
}

// Queues 服务队列和等待队列
func (h *AdminHandler) Queues(c *gin.Context) {
	service, waiting := h.view.Queues()
	ok(c, "ok", gin.H{"serviceQueue": service, "waitQueue": waiting})
}
