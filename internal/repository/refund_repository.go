package repository

import (
	"errors"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"

	"gorm.io/gorm"
)

// RefundRepository 退款数据访问接口
type RefundRepository interface {
	Create(refund *models.Refund) error
	GetByID(id uint) (*models.Refund, error)
	GetByOrderID(orderID uint) (*models.Refund, error)
	List(filter RefundListFilter) ([]models.Refund, int64, error)
	Decide(id uint, toStatus, note, gatewayRef string, decidedAt time.Time) (bool, error)
	WithTx(tx *gorm.DB) *GormRefundRepository
}

// GormRefundRepository GORM 实现
type GormRefundRepository struct {
	db *gorm.DB
}

// NewRefundRepository 创建退款仓库
func NewRefundRepository(db *gorm.DB) *GormRefundRepository {
	return &GormRefundRepository{db: db}
}

// WithTx 绑定事务
func (r *GormRefundRepository) WithTx(tx *gorm.DB) *GormRefundRepository {
	if tx == nil {
		return r
	}
	return &GormRefundRepository{db: tx}
}

// Create 创建退款单
func (r *GormRefundRepository) Create(refund *models.Refund) error {
	return r.db.Create(refund).Error
}

// GetByID 根据 ID 获取退款单
func (r *GormRefundRepository) GetByID(id uint) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.First(&refund, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// GetByOrderID 根据订单获取退款单
func (r *GormRefundRepository) GetByOrderID(orderID uint) (*models.Refund, error) {
	var refund models.Refund
	if err := r.db.Where("order_id = ?", orderID).First(&refund).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &refund, nil
}

// List 获取退款列表
func (r *GormRefundRepository) List(filter RefundListFilter) ([]models.Refund, int64, error) {
	query := r.db.Model(&models.Refund{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.OrderID != 0 {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = applyPagination(query, filter.Page, filter.PageSize)

	var refunds []models.Refund
	if err := query.Order("id desc").Find(&refunds).Error; err != nil {
		return nil, 0, err
	}
	return refunds, total, nil
}

// Decide 条件落定退款结论。
// 仅当退款单仍处于 requested 时才更新，返回 false 表示结论已被并发写入。
func (r *GormRefundRepository) Decide(id uint, toStatus, note, gatewayRef string, decidedAt time.Time) (bool, error) {
	if decidedAt.IsZero() {
		decidedAt = time.Now()
	}
	result := r.db.Model(&models.Refund{}).
		Where("id = ? AND status = ?", id, constants.RefundStatusRequested).
		Updates(map[string]interface{}{
			"status":      toStatus,
			"note":        note,
			"gateway_ref": gatewayRef,
			"decided_at":  decidedAt,
			"updated_at":  decidedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
