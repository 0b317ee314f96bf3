package models

import (
	"time"

	"gorm.io/gorm"
)

// DownloadCredential 下载凭证（一次性下载令牌）
type DownloadCredential struct {
	ID        uint           `gorm:"primarykey" json:"id"`                // 主键
	Token     string         `gorm:"uniqueIndex;not null" json:"token"`   // 下载令牌
	LicenseID uint           `gorm:"index;not null" json:"license_id"`    // 授权ID
	OrderID   uint           `gorm:"index;not null" json:"order_id"`      // 订单ID
	UserID    uint           `gorm:"index;not null" json:"user_id"`       // 用户ID
	ProductID uint           `gorm:"index;not null" json:"product_id"`    // 商品ID
	ExpiresAt time.Time      `gorm:"index;not null" json:"expires_at"`    // 过期时间
	Used      bool           `gorm:"not null;default:false" json:"used"`  // 是否已使用
	UsedAt    *time.Time     `json:"used_at,omitempty"`                   // 使用时间
	CreatedAt time.Time      `gorm:"index" json:"created_at"`             // 创建时间
	UpdatedAt time.Time      `gorm:"index" json:"updated_at"`             // 更新时间
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`                      // 软删除时间
}

// TableName 指定表名
func (DownloadCredential) TableName() string {
	return "download_credentials"
}
