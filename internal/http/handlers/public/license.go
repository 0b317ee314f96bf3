package public

import (
	"strconv"
	"strings"

	"github.com/moban-market/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListLicenses 获取当前用户授权列表
func (h *Handler) ListLicenses(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	status := strings.TrimSpace(c.Query("status"))

	licenses, total, err := h.LicenseService.ListForUser(userID, status, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.license_fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, licenses, pagination)
}

// VerifyLicenseRequest 授权校验请求
type VerifyLicenseRequest struct {
	LicenseKey string `json:"license_key" binding:"required"`
}

// VerifyLicense 校验授权并计一次访问。
// 拒绝不是接口错误，结果以 allowed/reason 返回。
func (h *Handler) VerifyLicense(c *gin.Context) {
	var req VerifyLicenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.LicenseService.VerifyAccess(req.LicenseKey)
	if err != nil {
		respondError(c, response.CodeInternal, "error.license_verify_failed", err)
		return
	}
	response.Success(c, result)
}

// ConsumeLicenseAccessRequest 按商品消费授权访问请求
type ConsumeLicenseAccessRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
}

// ConsumeLicenseAccess 按当前用户与商品定位生效授权并计一次访问。
// 拒绝不是接口错误，结果以 allowed/reason 返回。
func (h *Handler) ConsumeLicenseAccess(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	var req ConsumeLicenseAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	result, err := h.LicenseService.ConsumeAccessForProduct(userID, req.ProductID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.license_verify_failed", err)
		return
	}
	response.Success(c, result)
}
