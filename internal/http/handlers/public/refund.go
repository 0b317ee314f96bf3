package public

import (
	"errors"
	"strconv"

	"github.com/moban-market/internal/http/response"
	"github.com/moban-market/internal/service"

	"github.com/gin-gonic/gin"
)

// RequestRefundRequest 退款申请请求
type RequestRefundRequest struct {
	OrderID uint   `json:"order_id" binding:"required"`
	Reason  string `json:"reason"`
}

// RequestRefund 为已支付订单申请退款
func (h *Handler) RequestRefund(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req RequestRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	refund, err := h.RefundService.Request(userID, req.OrderID, req.Reason)
	if err != nil {
		respondRefundRequestError(c, err)
		return
	}
	response.Success(c, refund)
}

// GetRefund 获取当前用户退款详情
func (h *Handler) GetRefund(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	refundID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || refundID == 0 {
		respondError(c, response.CodeBadRequest, "error.refund_id_invalid", nil)
		return
	}

	refund, err := h.RefundService.GetForUser(userID, uint(refundID))
	if err != nil {
		if errors.Is(err, service.ErrRefundNotFound) {
			respondError(c, response.CodeNotFound, "error.refund_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.refund_fetch_failed", err)
		return
	}
	response.Success(c, refund)
}
