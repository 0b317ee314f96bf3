package models

import (
	"time"

	"gorm.io/gorm"
)

// License 授权（购买后获得的使用权）
type License struct {
	ID          uint           `gorm:"primarykey" json:"id"`                       // 主键
	LicenseKey  string         `gorm:"uniqueIndex;not null" json:"license_key"`    // 授权密钥
	OrderID     uint           `gorm:"index;not null" json:"order_id"`             // 订单ID
	OrderItemID uint           `gorm:"index;not null" json:"order_item_id"`        // 订单项ID
	UserID      uint           `gorm:"index;not null" json:"user_id"`              // 用户ID
	ProductID   uint           `gorm:"index;not null" json:"product_id"`           // 商品ID
	Status      string         `gorm:"index;not null;default:'active'" json:"status"` // 授权状态（active/revoked）
	MaxAccess   int            `gorm:"not null;default:0" json:"max_access"`       // 访问上限（0 表示不限制）
	AccessCount int            `gorm:"not null;default:0" json:"access_count"`     // 已访问次数
	IssuedAt    time.Time      `gorm:"index" json:"issued_at"`                     // 签发时间
	RevokedAt   *time.Time     `json:"revoked_at,omitempty"`                       // 吊销时间
	CreatedAt   time.Time      `gorm:"index" json:"created_at"`                    // 创建时间
	UpdatedAt   time.Time      `gorm:"index" json:"updated_at"`                    // 更新时间
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`                             // 软删除时间
}

// TableName 指定表名
func (License) TableName() string {
	return "licenses"
}
