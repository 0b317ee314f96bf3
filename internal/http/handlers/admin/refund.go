package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/moban-market/internal/http/response"
	"github.com/moban-market/internal/repository"
	"github.com/moban-market/internal/service"

	"github.com/gin-gonic/gin"
)

// GetAdminRefunds 获取退款列表
func (h *Handler) GetAdminRefunds(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))
	var orderID uint
	if raw := strings.TrimSpace(c.Query("order_id")); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		orderID = uint(parsed)
	}

	refunds, total, err := h.RefundService.List(repository.RefundListFilter{
		Page:     page,
		PageSize: pageSize,
		Status:   status,
		OrderID:  orderID,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.refund_fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, refunds, pagination)
}

// RefundDecisionRequest 退款裁决请求
type RefundDecisionRequest struct {
	Note string `json:"note"`
}

// ApproveRefund 批准退款
func (h *Handler) ApproveRefund(c *gin.Context) {
	refundID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || refundID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var req RefundDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	refund, err := h.RefundService.Approve(c.Request.Context(), uint(refundID), req.Note)
	if err != nil {
		respondRefundDecisionError(c, err, "error.refund_approve_failed")
		return
	}
	requestLog(c).Infow("refund_approved", "refund_id", refund.ID, "refund_no", refund.RefundNo)
	response.Success(c, refund)
}

// RejectRefund 驳回退款
func (h *Handler) RejectRefund(c *gin.Context) {
	refundID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || refundID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var req RefundDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	refund, err := h.RefundService.Reject(uint(refundID), req.Note)
	if err != nil {
		respondRefundDecisionError(c, err, "error.refund_reject_failed")
		return
	}
	requestLog(c).Infow("refund_rejected", "refund_id", refund.ID, "refund_no", refund.RefundNo)
	response.Success(c, refund)
}

func respondRefundDecisionError(c *gin.Context, err error, fallbackKey string) {
	switch {
	case errors.Is(err, service.ErrRefundNotFound):
		respondError(c, response.CodeNotFound, "error.refund_not_found", nil)
	case errors.Is(err, service.ErrRefundStatusConflict):
		respondError(c, response.CodeBadRequest, "error.refund_status_conflict", nil)
	case errors.Is(err, service.ErrRefundGatewayFailed):
		respondError(c, response.CodeBadRequest, "error.refund_gateway_failed", nil)
	case errors.Is(err, service.ErrOrderNotFound):
		respondError(c, response.CodeNotFound, "error.order_not_found", nil)
	case errors.Is(err, service.ErrOrderStatusConflict):
		respondError(c, response.CodeBadRequest, "error.order_status_conflict", nil)
	default:
		respondError(c, response.CodeInternal, fallbackKey, err)
	}
}
