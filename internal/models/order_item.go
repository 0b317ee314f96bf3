package models

import (
	"time"

	"gorm.io/gorm"
)

// OrderItem 订单项表
type OrderItem struct {
	ID           uint           `gorm:"primarykey" json:"id"`                                     // 主键
	OrderID      uint           `gorm:"index;not null" json:"order_id"`                           // 订单ID
	ProductID    uint           `gorm:"index;not null" json:"product_id"`                         // 商品ID
	ProductName  string         `gorm:"not null" json:"product_name"`                             // 商品名称快照
	DeliveryType string         `gorm:"not null" json:"delivery_type"`                            // 交付类型快照
	Kind         string         `gorm:"type:varchar(20);not null;default:'good'" json:"kind"`     // 商品种类快照（good/service）
	UnitPrice    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"unit_price"` // 单价快照
	Quantity     int            `gorm:"not null" json:"quantity"`                                 // 数量
	TotalPrice   Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 小计
	PlatformFee  Money          `gorm:"type:decimal(20,2);not null;default:0" json:"platform_fee"` // 平台抽成快照（按种类固定比例）
	Payout       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"payout"`      // 结算金额快照（小计减抽成）
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt    time.Time      `gorm:"index" json:"updated_at"`                                  // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (OrderItem) TableName() string {
	return "order_items"
}
