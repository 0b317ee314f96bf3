package repository

import (
	"errors"
	"time"

	"github.com/moban-market/internal/models"

	"gorm.io/gorm"
)

// DownloadCredentialRepository 下载凭证数据访问接口
type DownloadCredentialRepository interface {
	Create(credential *models.DownloadCredential) error
	CreateBatch(items []models.DownloadCredential) error
	GetByToken(token string) (*models.DownloadCredential, error)
	MarkUsed(token string, usedAt time.Time) (bool, error)
	ListByOrder(orderID uint) ([]models.DownloadCredential, error)
	WithTx(tx *gorm.DB) *GormDownloadCredentialRepository
}

// GormDownloadCredentialRepository GORM 实现
type GormDownloadCredentialRepository struct {
	db *gorm.DB
}

// NewDownloadCredentialRepository 创建下载凭证仓库
func NewDownloadCredentialRepository(db *gorm.DB) *GormDownloadCredentialRepository {
	return &GormDownloadCredentialRepository{db: db}
}

// WithTx 绑定事务
func (r *GormDownloadCredentialRepository) WithTx(tx *gorm.DB) *GormDownloadCredentialRepository {
	if tx == nil {
		return r
	}
	return &GormDownloadCredentialRepository{db: tx}
}

// Create 创建下载凭证
func (r *GormDownloadCredentialRepository) Create(credential *models.DownloadCredential) error {
	return r.db.Create(credential).Error
}

// CreateBatch 批量创建下载凭证
func (r *GormDownloadCredentialRepository) CreateBatch(items []models.DownloadCredential) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Create(&items).Error
}

// GetByToken 根据令牌获取下载凭证
func (r *GormDownloadCredentialRepository) GetByToken(token string) (*models.DownloadCredential, error) {
	var credential models.DownloadCredential
	if err := r.db.Where("token = ?", token).First(&credential).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &credential, nil
}

// MarkUsed 一次性核销令牌。
// 仅当令牌未被使用时才更新，返回 false 表示已被并发核销。
func (r *GormDownloadCredentialRepository) MarkUsed(token string, usedAt time.Time) (bool, error) {
	if usedAt.IsZero() {
		usedAt = time.Now()
	}
	result := r.db.Model(&models.DownloadCredential{}).
		Where("token = ? AND used = ?", token, false).
		Updates(map[string]interface{}{
			"used":       true,
			"used_at":    usedAt,
			"updated_at": usedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByOrder 按订单获取下载凭证
func (r *GormDownloadCredentialRepository) ListByOrder(orderID uint) ([]models.DownloadCredential, error) {
	var items []models.DownloadCredential
	if err := r.db.Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
