package admin

import (
	"errors"
	"strconv"
	"strings"

	"github.com/moban-market/internal/http/response"
	"github.com/moban-market/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ProductRequest 创建/更新商品请求
type ProductRequest struct {
	Slug             string  `json:"slug" binding:"required"`
	Name             string  `json:"name" binding:"required"`
	Description      string  `json:"description"`
	Price            float64 `json:"price"`
	Kind             string  `json:"kind"`
	DeliveryType     string  `json:"delivery_type"`
	FileURL          string  `json:"file_url"`
	ExternalURL      string  `json:"external_url"`
	LicenseMaxAccess int     `json:"license_max_access"`
	Status           string  `json:"status"`
	SortOrder        int     `json:"sort_order"`
}

func (r ProductRequest) toServiceInput() service.ProductInput {
	return service.ProductInput{
		Slug:             r.Slug,
		Name:             r.Name,
		Description:      r.Description,
		Price:            decimal.NewFromFloat(r.Price),
		Kind:             r.Kind,
		DeliveryType:     r.DeliveryType,
		FileURL:          r.FileURL,
		ExternalURL:      r.ExternalURL,
		LicenseMaxAccess: r.LicenseMaxAccess,
		Status:           r.Status,
		SortOrder:        r.SortOrder,
	}
}

// CreateProduct 创建商品
func (h *Handler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	product, err := h.ProductService.Create(req.toServiceInput())
	if err != nil {
		respondProductWriteError(c, err, "error.product_create_failed")
		return
	}
	response.Success(c, product)
}

// UpdateProduct 更新商品
func (h *Handler) UpdateProduct(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	product, err := h.ProductService.Update(uint(productID), req.toServiceInput())
	if err != nil {
		respondProductWriteError(c, err, "error.product_update_failed")
		return
	}
	response.Success(c, product)
}

// DeleteProduct 删除商品
func (h *Handler) DeleteProduct(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	if err := h.ProductService.Delete(uint(productID)); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.product_delete_failed", err)
		return
	}
	response.Success(c, gin.H{
		"deleted": true,
	})
}

// GetAdminProducts 获取后台商品列表
func (h *Handler) GetAdminProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)

	search := strings.TrimSpace(c.Query("search"))
	status := strings.TrimSpace(c.Query("status"))

	products, total, err := h.ProductService.ListAdmin(search, status, page, pageSize)
	if err != nil {
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}

	pagination := response.NewPagination(page, pageSize, total)
	response.SuccessWithPage(c, products, pagination)
}

// GetAdminProduct 获取后台商品详情
func (h *Handler) GetAdminProduct(c *gin.Context) {
	productID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || productID == 0 {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	product, err := h.ProductService.GetAdminByID(uint(productID))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.product_not_found", nil)
			return
		}
		respondError(c, response.CodeInternal, "error.product_fetch_failed", err)
		return
	}
	response.Success(c, product)
}

func respondProductWriteError(c *gin.Context, err error, fallbackKey string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(c, response.CodeNotFound, "error.product_not_found", nil)
	case errors.Is(err, service.ErrProductPriceInvalid):
		respondError(c, response.CodeBadRequest, "error.product_price_invalid", nil)
	case errors.Is(err, service.ErrProductKindInvalid):
		respondError(c, response.CodeBadRequest, "error.product_kind_invalid", nil)
	case errors.Is(err, service.ErrProductDeliveryInvalid):
		respondError(c, response.CodeBadRequest, "error.product_delivery_invalid", nil)
	case errors.Is(err, service.ErrSlugExists):
		respondError(c, response.CodeBadRequest, "error.product_slug_exists", nil)
	default:
		respondError(c, response.CodeInternal, fallbackKey, err)
	}
}
