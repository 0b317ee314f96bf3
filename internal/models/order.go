package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单表
type Order struct {
	ID             uint           `gorm:"primarykey" json:"id"`                                          // 主键
	OrderNo        string         `gorm:"uniqueIndex;not null" json:"order_no"`                          // 订单编号
	UserID         uint           `gorm:"index;not null" json:"user_id"`                                 // 用户ID
	Status         string         `gorm:"index;not null" json:"status"`                                  // 订单状态
	Currency       string         `gorm:"not null" json:"currency"`                                      // 币种
	Subtotal       Money          `gorm:"type:decimal(20,2);not null;default:0" json:"subtotal"`         // 折前金额
	DiscountAmount Money          `gorm:"type:decimal(20,2);not null;default:0" json:"discount_amount"`  // 优惠金额
	TotalAmount    Money          `gorm:"type:decimal(20,2);not null;default:0" json:"total_amount"`     // 实付金额
	CouponID       *uint          `gorm:"index" json:"coupon_id,omitempty"`                              // 优惠券ID
	CouponCode     string         `gorm:"type:varchar(64)" json:"coupon_code,omitempty"`                 // 优惠码快照
	PaymentMethod  string         `gorm:"type:varchar(32)" json:"payment_method,omitempty"`              // 支付方式标签（确认支付时写入）
	GatewayRef     string         `gorm:"type:varchar(128)" json:"gateway_ref,omitempty"`                // 支付网关流水号
	FailReason     string         `gorm:"type:varchar(200)" json:"fail_reason,omitempty"`                // 支付失败原因
	ExpiresAt      *time.Time     `gorm:"index" json:"expires_at"`                                       // 待支付过期时间
	PaidAt         *time.Time     `gorm:"index" json:"paid_at"`                                          // 支付时间
	RefundedAt     *time.Time     `gorm:"index" json:"refunded_at"`                                      // 退款时间
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`                                       // 创建时间
	UpdatedAt      time.Time      `gorm:"index" json:"updated_at"`                                       // 更新时间
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`                                                // 软删除时间

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"` // 订单项
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
