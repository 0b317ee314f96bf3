package models

import (
	"time"

	"gorm.io/gorm"
)

// Refund 退款单
type Refund struct {
	ID         uint           `gorm:"primarykey" json:"id"`                                  // 主键
	RefundNo   string         `gorm:"uniqueIndex;not null" json:"refund_no"`                 // 退款编号
	OrderID    uint           `gorm:"uniqueIndex;not null" json:"order_id"`                  // 订单ID（一单一笔）
	UserID     uint           `gorm:"index;not null" json:"user_id"`                         // 用户ID
	Amount     Money          `gorm:"type:decimal(20,2);not null;default:0" json:"amount"`  // 退款金额
	Reason     string         `gorm:"type:varchar(500)" json:"reason"`                       // 申请原因
	Status     string         `gorm:"index;not null;default:'requested'" json:"status"`     // 退款状态（requested/processed/rejected）
	Note       string         `gorm:"type:varchar(500)" json:"note,omitempty"`               // 处理备注
	GatewayRef string         `gorm:"type:varchar(128)" json:"gateway_ref,omitempty"`        // 网关退款流水号
	DecidedAt  *time.Time     `gorm:"index" json:"decided_at,omitempty"`                     // 处理时间
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt  time.Time      `gorm:"index" json:"updated_at"`                               // 更新时间
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`                                        // 软删除时间
}

// TableName 指定表名
func (Refund) TableName() string {
	return "refunds"
}
