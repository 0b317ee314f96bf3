package admin

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/moban-market/internal/http/response"
	"github.com/moban-market/internal/repository"
	"github.com/moban-market/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// CouponRequest 创建/更新优惠券请求
type CouponRequest struct {
	Code            string  `json:"code" binding:"required"`
	Type            string  `json:"type" binding:"required"`
	Value           float64 `json:"value" binding:"required"`
	MinAmount       float64 `json:"min_amount"`
	MaxDiscount     float64 `json:"max_discount"`
	UsageLimit      int     `json:"usage_limit"`
	PerUserLimit    int     `json:"per_user_limit"`
	Scope           string  `json:"scope"`
	ScopeProductIDs string  `json:"scope_product_ids"`
	StartsAt        string  `json:"starts_at"`
	EndsAt          string  `json:"ends_at"`
	IsActive        *bool   `json:"is_active"`
}

func (r CouponRequest) toServiceInput() (service.CouponInput, error) {
	startsAt, err := parseTimeNullable(r.StartsAt)
	if err != nil {
		return service.CouponInput{}, err
	}
	endsAt, err := parseTimeNullable(r.EndsAt)
	if err != nil {
		return service.CouponInput{}, err
	}
	return service.CouponInput{
		Code:            r.Code,
		Type:            r.Type,
		Value:           decimal.NewFromFloat(r.Value),
		MinAmount:       decimal.NewFromFloat(r.MinAmount),
		MaxDiscount:     decimal.NewFromFloat(r.MaxDiscount),
		UsageLimit:      r.UsageLimit,
		PerUserLimit:    r.PerUserLimit,
		Scope:           r.Scope,
		ScopeProductIDs: r.ScopeProductIDs,
		StartsAt:        startsAt,
		EndsAt:          endsAt,
		IsActive:        r.IsActive,
	}, nil
}

// CreateCoupon 创建优惠券
func (h *Handler) CreateCoupon(c *gin.Context) {
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toServiceInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	coupon, err := h.CouponService.Create(input)
	if err != nil {
		respondCouponWriteError(c, err, "error.coupon_create_failed")
		return
	}
	response.Success(c, coupon)
}

// UpdateCoupon 更新优惠券
func (h *Handler) UpdateCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || couponID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var req CouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	input, err := req.toServiceInput()
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	coupon, err := h.CouponService.Update(uint(couponID), input)
	if err != nil {
		respondCouponWriteError(c, err, "error.coupon_update_failed")
		return
	}
	response.Success(c, coupon)
}

// DeleteCoupon 删除优惠券
func (h *Handler) DeleteCoupon(c *gin.Context) {
	couponID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || couponID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.CouponService.Delete(uint(couponID)); err != nil {
		if errors.Is(err, service.ErrCouponNotFound) {
			respondError(c, response.CodeNotFound, "error.coupon_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.coupon_delete_failed", err)
		return
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}

// GetAdminCoupons 获取优惠券列表
func (h *Handler) GetAdminCoupons(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	code := strings.TrimSpace(c.Query("code"))
	var isActive *bool
	if raw := c.Query("is_active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
		isActive = &parsed
	}

	coupons, total, err := h.CouponService.List(repository.CouponListFilter{
		Page:     page,
		PageSize: pageSize,
		Code:     code,
		IsActive: isActive,
	})
	if err != nil {
		respondError(c, response.CodeInternal, "error.coupon_fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, coupons, pagination)
}

func respondCouponWriteError(c *gin.Context, err error, fallbackKey string) {
	switch {
	case errors.Is(err, service.ErrCouponNotFound):
		respondError(c, response.CodeNotFound, "error.coupon_not_found", nil)
	case errors.Is(err, service.ErrCouponTypeInvalid):
		respondError(c, response.CodeBadRequest, "error.coupon_type_invalid", nil)
	case errors.Is(err, service.ErrCouponValueInvalid):
		respondError(c, response.CodeBadRequest, "error.coupon_value_invalid", nil)
	case errors.Is(err, service.ErrCouponScopeInvalid):
		respondError(c, response.CodeBadRequest, "error.coupon_scope_invalid", nil)
	case errors.Is(err, service.ErrCouponCodeExists):
		respondError(c, response.CodeBadRequest, "error.coupon_code_exists", nil)
	default:
		respondError(c, response.CodeInternal, fallbackKey, err)
	}
}

func parseTimeNullable(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
