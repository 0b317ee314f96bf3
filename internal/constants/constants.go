package constants

// 订单状态常量
const (
	OrderStatusPending  = "pending"
	OrderStatusPaid     = "paid"
	OrderStatusFailed   = "failed"
	OrderStatusExpired  = "expired"
	OrderStatusRefunded = "refunded"
)

// 优惠券类型常量
const (
	CouponTypeFixed      = "fixed"
	CouponTypePercentage = "percentage"
)

// 优惠券适用范围常量
const (
	CouponScopeAll      = "all"
	CouponScopeGoods    = "goods"
	CouponScopeServices = "services"
)

// 商品状态常量
const (
	ProductStatusOnSale  = "on_sale"
	ProductStatusOffSale = "off_sale"
)

// 商品种类常量
const (
	ProductKindGood    = "good"
	ProductKindService = "service"
)

// 商品交付类型常量
const (
	DeliveryTypeFile     = "file"
	DeliveryTypeExternal = "external"
)

// 授权状态常量
const (
	LicenseStatusActive  = "active"
	LicenseStatusRevoked = "revoked"
)

// 退款状态常量
const (
	RefundStatusRequested = "requested"
	RefundStatusProcessed = "processed"
	RefundStatusRejected  = "rejected"
)

// 用户状态常量
const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// 支付提供方常量
const (
	PaymentProviderDemo = "demo"
)

// 队列常量
const (
	QueueDefault           = "default"
	TaskOrderPaidNotify    = "notify:order_paid"
	TaskRefundResultNotify = "notify:refund_result"
	TaskOrderExpireScan    = "order:expire_scan"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "mb"
)

// 币种常量
const (
	SiteCurrencyDefault = "USD"
)
