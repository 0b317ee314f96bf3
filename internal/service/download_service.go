package service

import (
	"strings"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DownloadGrant 核销成功后的下载授权
type DownloadGrant struct {
	Credential *models.DownloadCredential `json:"credential"`
	FileURL    string                     `json:"file_url"`
}

// DownloadService 下载凭证业务服务
type DownloadService struct {
	credentialRepo repository.DownloadCredentialRepository
	licenseRepo    repository.LicenseRepository
	productRepo    repository.ProductRepository

	tokenTTLMinutes int
}

// NewDownloadService 创建下载凭证服务
func NewDownloadService(
	credentialRepo repository.DownloadCredentialRepository,
	licenseRepo repository.LicenseRepository,
	productRepo repository.ProductRepository,
	tokenTTLMinutes int,
) *DownloadService {
	if tokenTTLMinutes <= 0 {
		tokenTTLMinutes = 60
	}
	return &DownloadService{
		credentialRepo:  credentialRepo,
		licenseRepo:     licenseRepo,
		productRepo:     productRepo,
		tokenTTLMinutes: tokenTTLMinutes,
	}
}

// Redeem 核销下载令牌。
// 校验顺序：不存在 -> 已使用 -> 已过期 -> 授权失效。
// 核销与授权访问计数在同一事务内完成：令牌标记使用为一次性条件更新，
// 授权计数为条件递增（撤销或超限的授权递增失败），并发重复核销只有一次成功。
func (s *DownloadService) Redeem(token string) (*DownloadGrant, error) {
	token = strings.TrimSpace(token)
	credential, err := s.credentialRepo.GetByToken(token)
	if err != nil {
		return nil, err
	}
	if credential == nil {
		return nil, ErrDownloadTokenNotFound
	}
	if credential.Used {
		return nil, ErrDownloadTokenUsed
	}
	now := time.Now()
	if !now.Before(credential.ExpiresAt) {
		return nil, ErrDownloadTokenExpired
	}

	license, err := s.licenseRepo.GetByID(credential.LicenseID)
	if err != nil {
		return nil, err
	}
	if license == nil {
		return nil, ErrLicenseNotFound
	}
	if license.Status != constants.LicenseStatusActive {
		return nil, ErrLicenseNotActive
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		granted, err := s.licenseRepo.WithTx(tx).IncrementAccess(license.ID)
		if err != nil {
			return err
		}
		if !granted {
			return ErrLicenseExhausted
		}
		marked, err := s.credentialRepo.WithTx(tx).MarkUsed(token, now)
		if err != nil {
			return err
		}
		if !marked {
			return ErrDownloadTokenUsed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	credential.Used = true
	credential.UsedAt = &now

	product, err := s.productRepo.GetByID(credential.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	return &DownloadGrant{
		Credential: credential,
		FileURL:    product.FileURL,
	}, nil
}

// Reissue 为仍然生效的授权补发下载凭证。
// 仅 file 类型商品可补发，external 类型商品没有下载凭证。
func (s *DownloadService) Reissue(userID uint, licenseKey string) (*models.DownloadCredential, error) {
	license, err := s.licenseRepo.GetByKey(strings.TrimSpace(licenseKey))
	if err != nil {
		return nil, err
	}
	if license == nil || license.UserID != userID {
		return nil, ErrLicenseNotFound
	}
	if license.Status != constants.LicenseStatusActive {
		return nil, ErrLicenseNotActive
	}
	if license.MaxAccess > 0 && license.AccessCount >= license.MaxAccess {
		return nil, ErrLicenseExhausted
	}
	product, err := s.productRepo.GetByID(license.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, ErrProductNotFound
	}
	if product.DeliveryType != constants.DeliveryTypeFile {
		return nil, ErrDownloadNotFileDelivery
	}

	credential := &models.DownloadCredential{
		Token:     uuid.NewString(),
		LicenseID: license.ID,
		OrderID:   license.OrderID,
		UserID:    license.UserID,
		ProductID: license.ProductID,
		ExpiresAt: time.Now().Add(time.Duration(s.tokenTTLMinutes) * time.Minute),
	}
	if err := s.credentialRepo.Create(credential); err != nil {
		return nil, err
	}
	return credential, nil
}
