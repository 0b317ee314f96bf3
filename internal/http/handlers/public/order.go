package public

import (
	"errors"
	"strconv"
	"strings"

	"github.com/moban-market/internal/http/response"
	"github.com/moban-market/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderItemRequest 订单行请求
type OrderItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"required"`
}

// QuoteOrderRequest 订单报价请求
type QuoteOrderRequest struct {
	Items      []OrderItemRequest `json:"items" binding:"required"`
	CouponCode string             `json:"coupon_code"`
}

// QuoteOrder 订单金额预览，不产生任何落库副作用
func (h *Handler) QuoteOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req QuoteOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	quote, err := h.OrderService.Quote(userID, buildQuoteItems(req.Items), req.CouponCode)
	if err != nil {
		respondOrderQuoteError(c, err)
		return
	}
	response.Success(c, quote)
}

// CreateOrderRequest 创建订单请求
type CreateOrderRequest struct {
	Items      []OrderItemRequest `json:"items" binding:"required"`
	CouponCode string             `json:"coupon_code"`
}

// CreateOrder 创建订单
func (h *Handler) CreateOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	order, err := h.OrderService.Create(userID, buildQuoteItems(req.Items), req.CouponCode)
	if err != nil {
		respondOrderCreateError(c, err)
		return
	}
	response.Success(c, order)
}

// ListOrders 获取当前用户订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))
	orderNo := strings.TrimSpace(c.Query("order_no"))

	orders, total, err := h.OrderService.ListForUser(userID, status, orderNo, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, orders, pagination)
}

// GetOrder 获取当前用户订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}

	order, err := h.OrderService.GetForUser(userID, uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}
	response.Success(c, order)
}

// PayOrder 发起订单支付并在网关成功后确认
func (h *Handler) PayOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}

	order, err := h.OrderService.Pay(c.Request.Context(), userID, uint(orderID))
	if err != nil {
		respondOrderPayError(c, err)
		return
	}
	response.Success(c, order)
}

// ConfirmOrderRequest 支付确认请求
type ConfirmOrderRequest struct {
	GatewayRef string `json:"gateway_ref"`
}

// ConfirmOrder 幂等确认订单支付
func (h *Handler) ConfirmOrder(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	orderID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || orderID == 0 {
		respondError(c, response.CodeBadRequest, "error.order_id_invalid", nil)
		return
	}
	var req ConfirmOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	// 归属校验在确认之前完成
	if _, err := h.OrderService.GetForUser(userID, uint(orderID)); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			respondError(c, response.CodeNotFound, "error.order_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.order_fetch_failed", err)
		return
	}

	order, err := h.OrderService.ConfirmPayment(c.Request.Context(), uint(orderID), strings.TrimSpace(req.GatewayRef))
	if err != nil {
		respondOrderPayError(c, err)
		return
	}
	response.Success(c, order)
}

func buildQuoteItems(items []OrderItemRequest) []service.QuoteItemInput {
	result := make([]service.QuoteItemInput, 0, len(items))
	for _, item := range items {
		result = append(result, service.QuoteItemInput{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}
	return result
}
