// api/router.go

package api

import (
	"net/http"

	"acdispatch/internal/handlers"
	"acdispatch/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	AC      *handlers.ACHandler
	Admin   *handlers.AdminHandler
	Room    *handlers.RoomHandler
	Billing *handlers.BillingHandler
	Metrics http.Handler
}

func SetupRouter(h Handlers, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	// 使用CORS中间件
	router.Use(middleware.Cors(allowedOrigins))

	// 顾客空调控制面板路由组
	panel := router.Group("/panel")
	{
		// 开机
		panel.POST("/poweron", h.AC.PowerOn)
		// 关机
		panel.POST("/poweroff", h.AC.PowerOff)
		// 调节温度
		panel.POST("/changetemp", h.AC.ChangeTemp)
		// 调节风速
		panel.POST("/changespeed", h.AC.ChangeSpeed)
		panel.POST("/request", h.AC.Request)
		panel.GET("/status/:roomId", h.AC.Status)
	}

	admin := router.Group("/admin")
	{
		admin.GET("/status", h.Admin.Status)
		admin.GET("/queues", h.Admin.Queues)
		admin.POST("/open", h.Admin.Open)
		admin.POST("/close", h.Admin.Close)
		admin.POST("/configure", h.Admin.Configure)
		admin.POST("/reset", h.Admin.Reset)

		admin.GET("/rooms", h.Room.ListRooms)
		admin.POST("/rooms", h.Room.CreateRoom)
		admin.DELETE("/rooms/:roomId", h.Room.DeleteRoom)
	}

	billing := router.Group("/billing")
	{
		billing.GET("/:roomId/details", h.Billing.GetDetails)
		billing.GET("/:roomId/total", h.Billing.GetTotal)
		billing.POST("/:roomId/checkout", h.Billing.Checkout)
	}

	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	return router
}
