package models

import (
	"time"

	"gorm.io/gorm"
)

// Product 商品表（数字模板商品）
type Product struct {
	ID               uint           `gorm:"primarykey" json:"id"`                                     // 主键
	Slug             string         `gorm:"uniqueIndex;not null" json:"slug"`                         // 唯一标识
	Name             string         `gorm:"not null" json:"name"`                                     // 商品名称
	Description      string         `gorm:"type:text" json:"description"`                             // 商品描述
	Price            Money          `gorm:"type:decimal(20,2);not null;default:0" json:"price"`      // 价格
	Kind             string         `gorm:"type:varchar(20);not null;default:'good';index" json:"kind"` // 商品种类（good/service），决定平台抽成比例
	DeliveryType     string         `gorm:"type:varchar(20);not null;default:'file'" json:"delivery_type"` // 交付类型（file/external）
	FileURL          string         `gorm:"type:varchar(500)" json:"-"`                               // 文件地址（file 类型，不对外返回）
	ExternalURL      string         `gorm:"type:varchar(500)" json:"external_url,omitempty"`          // 外链地址（external 类型）
	LicenseMaxAccess int            `gorm:"not null;default:0" json:"license_max_access"`             // 单授权访问上限（0 表示不限制）
	Status           string         `gorm:"type:varchar(20);not null;default:'on_sale';index" json:"status"` // 上架状态（on_sale/off_sale）
	SortOrder        int            `gorm:"default:0;index" json:"sort_order"`                        // 排序权重
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt        time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间
}

// TableName 指定表名
func (Product) TableName() string {
	return "products"
}
