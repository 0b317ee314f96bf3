package public

import (
	"github.com/moban-market/internal/http/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ValidateCouponRequest 优惠券试算请求
type ValidateCouponRequest struct {
	Code        string  `json:"code" binding:"required"`
	OrderAmount float64 `json:"order_amount"`
	Scope       string  `json:"scope"`
}

// ValidateCoupon 按金额与范围试算优惠券，不占用使用次数
func (h *Handler) ValidateCoupon(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req ValidateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	quote, err := h.PricingService.ValidateCoupon(userID, req.Code, decimal.NewFromFloat(req.OrderAmount), req.Scope)
	if err != nil {
		respondCouponValidateError(c, err)
		return
	}
	response.Success(c, quote)
}
