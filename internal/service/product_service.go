package service

import (
	"strings"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/repository"

	"github.com/shopspring/decimal"
)

// ProductService 商品业务服务
type ProductService struct {
	repo repository.ProductRepository
}

// NewProductService 创建商品服务
func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

// ProductInput 创建/更新商品输入
type ProductInput struct {
	Slug             string
	Name             string
	Description      string
	Price            decimal.Decimal
	Kind             string
	DeliveryType     string
	FileURL          string
	ExternalURL      string
	LicenseMaxAccess int
	Status           string
	SortOrder        int
}

// ListPublic 获取公开商品列表
func (s *ProductService) ListPublic(search string, page, pageSize int) ([]models.Product, int64, error) {
	return s.repo.List(repository.ProductListFilter{
		Page:       page,
		PageSize:   pageSize,
		Search:     search,
		OnlyOnSale: true,
	})
}

// GetPublicBySlug 获取公开商品详情
func (s *ProductService) GetPublicBySlug(slug string) (*models.Product, error) {
	product, err := s.repo.GetBySlug(slug, true)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// ListAdmin 获取后台商品列表
func (s *ProductService) ListAdmin(search, status string, page, pageSize int) ([]models.Product, int64, error) {
	return s.repo.List(repository.ProductListFilter{
		Page:     page,
		PageSize: pageSize,
		Search:   search,
		Status:   status,
	})
}

// GetAdminByID 获取后台商品详情
func (s *ProductService) GetAdminByID(id uint) (*models.Product, error) {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	return product, nil
}

// Create 创建商品
func (s *ProductService) Create(input ProductInput) (*models.Product, error) {
	price := input.Price.Round(2)
	if price.LessThan(decimal.Zero) {
		return nil, ErrProductPriceInvalid
	}
	kind, err := normalizeProductKind(input.Kind)
	if err != nil {
		return nil, err
	}
	deliveryType, err := normalizeDeliveryType(input.DeliveryType)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.CountBySlug(input.Slug, nil)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	status := normalizeProductStatus(input.Status)
	product := models.Product{
		Slug:             strings.TrimSpace(input.Slug),
		Name:             strings.TrimSpace(input.Name),
		Description:      input.Description,
		Price:            models.NewMoneyFromDecimal(price),
		Kind:             kind,
		DeliveryType:     deliveryType,
		FileURL:          strings.TrimSpace(input.FileURL),
		ExternalURL:      strings.TrimSpace(input.ExternalURL),
		LicenseMaxAccess: input.LicenseMaxAccess,
		Status:           status,
		SortOrder:        input.SortOrder,
	}
	if err := s.repo.Create(&product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Update 更新商品
func (s *ProductService) Update(id uint, input ProductInput) (*models.Product, error) {
	price := input.Price.Round(2)
	if price.LessThan(decimal.Zero) {
		return nil, ErrProductPriceInvalid
	}
	product, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrNotFound
	}
	kind, err := normalizeProductKind(input.Kind)
	if err != nil {
		return nil, err
	}
	deliveryType, err := normalizeDeliveryType(input.DeliveryType)
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountBySlug(input.Slug, &id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrSlugExists
	}

	product.Slug = strings.TrimSpace(input.Slug)
	product.Name = strings.TrimSpace(input.Name)
	product.Description = input.Description
	product.Price = models.NewMoneyFromDecimal(price)
	product.Kind = kind
	product.DeliveryType = deliveryType
	product.FileURL = strings.TrimSpace(input.FileURL)
	product.ExternalURL = strings.TrimSpace(input.ExternalURL)
	product.LicenseMaxAccess = input.LicenseMaxAccess
	product.Status = normalizeProductStatus(input.Status)
	product.SortOrder = input.SortOrder

	if err := s.repo.Update(product); err != nil {
		return nil, err
	}
	return product, nil
}

// Delete 删除商品
func (s *ProductService) Delete(id uint) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product == nil {
		return ErrNotFound
	}
	return s.repo.Delete(id)
}

func normalizeProductKind(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", constants.ProductKindGood:
		return constants.ProductKindGood, nil
	case constants.ProductKindService:
		return constants.ProductKindService, nil
	default:
		return "", ErrProductKindInvalid
	}
}

func normalizeDeliveryType(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", constants.DeliveryTypeFile:
		return constants.DeliveryTypeFile, nil
	case constants.DeliveryTypeExternal:
		return constants.DeliveryTypeExternal, nil
	default:
		return "", ErrProductDeliveryInvalid
	}
}

func normalizeProductStatus(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case constants.ProductStatusOffSale:
		return constants.ProductStatusOffSale
	default:
		return constants.ProductStatusOnSale
	}
}
