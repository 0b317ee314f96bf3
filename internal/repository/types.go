package repository

import "time"

// ProductListFilter 查询商品列表的过滤条件
type ProductListFilter struct {
	Page       int
	PageSize   int
	Search     string
	Status     string
	OnlyOnSale bool
}

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	Status      string
	OrderNo     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// CouponListFilter 查询优惠券列表的过滤条件
type CouponListFilter struct {
	Page     int
	PageSize int
	Code     string
	IsActive *bool
}

// LicenseListFilter 查询授权列表的过滤条件
type LicenseListFilter struct {
	Page      int
	PageSize  int
	UserID    uint
	ProductID uint
	Status    string
}

// RefundListFilter 查询退款列表的过滤条件
type RefundListFilter struct {
	Page        int
	PageSize    int
	UserID      uint
	OrderID     uint
	Status      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
