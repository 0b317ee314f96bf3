package repository

import (
	"errors"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"

	"gorm.io/gorm"
)

// LicenseRepository 授权数据访问接口
type LicenseRepository interface {
	CreateBatch(items []models.License) error
	GetByID(id uint) (*models.License, error)
	GetByKey(licenseKey string) (*models.License, error)
	GetActiveByUserAndProduct(userID, productID uint) (*models.License, error)
	ListByOrder(orderID uint) ([]models.License, error)
	List(filter LicenseListFilter) ([]models.License, int64, error)
	IncrementAccess(id uint) (bool, error)
	RevokeByOrder(orderID uint, revokedAt time.Time) (int64, error)
	WithTx(tx *gorm.DB) *GormLicenseRepository
}

// GormLicenseRepository GORM 实现
type GormLicenseRepository struct {
	db *gorm.DB
}

// NewLicenseRepository 创建授权仓库
func NewLicenseRepository(db *gorm.DB) *GormLicenseRepository {
	return &GormLicenseRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLicenseRepository) WithTx(tx *gorm.DB) *GormLicenseRepository {
	if tx == nil {
		return r
	}
	return &GormLicenseRepository{db: tx}
}

// CreateBatch 批量创建授权
func (r *GormLicenseRepository) CreateBatch(items []models.License) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Create(&items).Error
}

// GetByID 根据ID获取授权
func (r *GormLicenseRepository) GetByID(id uint) (*models.License, error) {
	var license models.License
	if err := r.db.First(&license, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

// GetByKey 根据授权密钥获取授权
func (r *GormLicenseRepository) GetByKey(licenseKey string) (*models.License, error) {
	var license models.License
	if err := r.db.Where("license_key = ?", licenseKey).First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

// GetActiveByUserAndProduct 按买家与商品获取最近签发的生效授权
func (r *GormLicenseRepository) GetActiveByUserAndProduct(userID, productID uint) (*models.License, error) {
	var license models.License
	if err := r.db.
		Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, constants.LicenseStatusActive).
		Order("issued_at desc").
		First(&license).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &license, nil
}

// ListByOrder 按订单获取授权列表
func (r *GormLicenseRepository) ListByOrder(orderID uint) ([]models.License, error) {
	var licenses []models.License
	if err := r.db.Where("order_id = ?", orderID).
		Order("id asc").
		Find(&licenses).Error; err != nil {
		return nil, err
	}
	return licenses, nil
}

// List 获取授权列表
func (r *GormLicenseRepository) List(filter LicenseListFilter) ([]models.License, int64, error) {
	query := r.db.Model(&models.License{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.ProductID != 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var licenses []models.License
	if err := query.Order("id desc").Find(&licenses).Error; err != nil {
		return nil, 0, err
	}
	return licenses, total, nil
}

// IncrementAccess 条件递增访问次数。
// 仅对未达上限的生效授权生效，返回 false 表示次数已耗尽或授权不可用。
func (r *GormLicenseRepository) IncrementAccess(id uint) (bool, error) {
	result := r.db.Model(&models.License{}).
		Where("id = ? AND status = ?", id, constants.LicenseStatusActive).
		Where("max_access = 0 OR access_count < max_access").
		UpdateColumn("access_count", gorm.Expr("access_count + ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RevokeByOrder 吊销订单下全部生效授权
func (r *GormLicenseRepository) RevokeByOrder(orderID uint, revokedAt time.Time) (int64, error) {
	if revokedAt.IsZero() {
		revokedAt = time.Now()
	}
	result := r.db.Model(&models.License{}).
		Where("order_id = ? AND status = ?", orderID, constants.LicenseStatusActive).
		Updates(map[string]interface{}{
			"status":     constants.LicenseStatusRevoked,
			"revoked_at": revokedAt,
			"updated_at": revokedAt,
		})
	return result.RowsAffected, result.Error
}
