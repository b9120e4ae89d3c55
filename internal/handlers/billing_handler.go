package handlers

import (
	"acdispatch/internal/billing"

	"github.com/gin-gonic/gin"
)

type BillingHandler struct {
	billingService billing.BillingService
}

func NewBillingHandler(billingService billing.BillingService) *BillingHandler {
	return &BillingHandler{billingService: billingService}
}

// 详单查询参数
type QueryDetailsRequest struct {
	Merge bool `form:"merge"`
}

// GetDetails 获取房间详单
func (h *BillingHandler) GetDetails(c *gin.Context) {
	roomID, valid := roomParam(c)
	if !valid {
		return
	}
	var query QueryDetailsRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		badRequest(c, err)
		return
	}

	details, err := h.billingService.Details(c.Request.Context(), roomID, query.Merge)
	if err != nil {
		fail(c, "获取详单失败", err)
		return
	}
	ok(c, "获取详单成功", details)
}

// GetTotal 获取房间未结账费用
func (h *BillingHandler) GetTotal(c *gin.Context) {
	roomID, valid := roomParam(c)
	if !valid {
		return
	}
	total, err := h.billingService.Total(c.Request.Context(), roomID)
	if err != nil {
		fail(c, "获取费用失败", err)
		return
	}
	ok(c, "获取费用成功", gin.H{"roomId": roomID, "total": total})
}

// Checkout 结账
func (h *BillingHandler) Checkout(c *gin.Context) {
	roomID, valid := roomParam(c)
	if !valid {
		return
	}
	summary, err := h.billingService.Checkout(c.Request.Context(), roomID)
	if err != nil {
		fail(c, "结账失败", err)
		return
	}
	ok(c, "结账成功", summary)
}
