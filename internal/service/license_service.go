package service

import (
	"strings"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/repository"
)

// 授权校验拒绝原因
const (
	AccessDeniedNotFound  = "not_found"
	AccessDeniedRevoked   = "revoked"
	AccessDeniedExhausted = "access_limit_reached"
)

// AccessResult 授权校验结果
type AccessResult struct {
	Allowed bool            `json:"allowed"`
	Reason  string          `json:"reason,omitempty"`
	License *models.License `json:"license,omitempty"`
}

// LicenseService 授权业务服务
type LicenseService struct {
	licenseRepo repository.LicenseRepository
}

// NewLicenseService 创建授权服务
func NewLicenseService(licenseRepo repository.LicenseRepository) *LicenseService {
	return &LicenseService{licenseRepo: licenseRepo}
}

// VerifyAccess 校验授权并记一次访问。
// 允许访问时通过条件递增累计访问次数，并发下不会超过访问上限。
func (s *LicenseService) VerifyAccess(licenseKey string) (*AccessResult, error) {
	license, err := s.licenseRepo.GetByKey(strings.TrimSpace(licenseKey))
	if err != nil {
		return nil, err
	}
	if license == nil {
		return &AccessResult{Allowed: false, Reason: AccessDeniedNotFound}, nil
	}
	if license.Status != constants.LicenseStatusActive {
		return &AccessResult{Allowed: false, Reason: AccessDeniedRevoked, License: license}, nil
	}
	ok, err := s.licenseRepo.IncrementAccess(license.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &AccessResult{Allowed: false, Reason: AccessDeniedExhausted, License: license}, nil
	}
	license.AccessCount++
	return &AccessResult{Allowed: true, License: license}, nil
}

// ConsumeAccessForProduct 按买家与商品定位生效授权并记一次访问。
// 买家名下没有该商品的生效授权时按 not_found 拒绝。
func (s *LicenseService) ConsumeAccessForProduct(userID, productID uint) (*AccessResult, error) {
	license, err := s.licenseRepo.GetActiveByUserAndProduct(userID, productID)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return &AccessResult{Allowed: false, Reason: AccessDeniedNotFound}, nil
	}
	ok, err := s.licenseRepo.IncrementAccess(license.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &AccessResult{Allowed: false, Reason: AccessDeniedExhausted, License: license}, nil
	}
	license.AccessCount++
	return &AccessResult{Allowed: true, License: license}, nil
}

// GetByKey 获取授权详情
func (s *LicenseService) GetByKey(licenseKey string) (*models.License, error) {
	license, err := s.licenseRepo.GetByKey(strings.TrimSpace(licenseKey))
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, ErrLicenseNotFound
	}
	return license, nil
}

// ListForUser 获取用户授权列表
func (s *LicenseService) ListForUser(userID uint, status string, page, pageSize int) ([]models.License, int64, error) {
	return s.licenseRepo.List(repository.LicenseListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   status,
	})
}
