package service

import "errors"

// 通用错误
var (
	ErrNotFound = errors.New("resource not found")
)

// 用户与认证错误
var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserDisabled       = errors.New("user disabled")
	ErrTokenInvalid       = errors.New("token invalid")
)

// 商品错误
var (
	ErrProductNotFound        = errors.New("product not found")
	ErrProductOffSale         = errors.New("product off sale")
	ErrProductPriceInvalid    = errors.New("product price invalid")
	ErrProductDeliveryInvalid = errors.New("product delivery type invalid")
	ErrProductKindInvalid     = errors.New("product kind invalid")
	ErrSlugExists             = errors.New("slug already exists")
)

// 优惠券错误
var (
	ErrCouponNotFound           = errors.New("coupon not found")
	ErrCouponDisabled           = errors.New("coupon disabled")
	ErrCouponNotStarted         = errors.New("coupon not started")
	ErrCouponExpired            = errors.New("coupon expired")
	ErrCouponExhausted          = errors.New("coupon usage limit reached")
	ErrCouponUserLimitReached   = errors.New("coupon per-user limit reached")
	ErrCouponScopeMismatch      = errors.New("coupon not applicable to this order type")
	ErrCouponProductNotEligible = errors.New("coupon not applicable to these products")
	ErrCouponMinAmountNotMet    = errors.New("order amount below coupon threshold")
	ErrCouponTypeInvalid        = errors.New("coupon type invalid")
	ErrCouponScopeInvalid       = errors.New("coupon scope invalid")
	ErrCouponValueInvalid       = errors.New("coupon value invalid")
	ErrCouponCodeExists         = errors.New("coupon code already exists")
)

// 订单错误
var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrOrderItemsEmpty      = errors.New("order items empty")
	ErrOrderQuantityInvalid = errors.New("order item quantity invalid")
	ErrOrderNotPayable      = errors.New("order not payable")
	ErrOrderStatusConflict  = errors.New("order status conflict")
	ErrPaymentFailed        = errors.New("payment failed")
)

// 授权错误
var (
	ErrLicenseNotFound  = errors.New("license not found")
	ErrLicenseNotActive = errors.New("license not active")
	ErrLicenseExhausted = errors.New("license access limit reached")
)

// 下载凭证错误
var (
	ErrDownloadTokenNotFound   = errors.New("download token not found")
	ErrDownloadTokenUsed       = errors.New("download token already used")
	ErrDownloadTokenExpired    = errors.New("download token expired")
	ErrDownloadNotFileDelivery = errors.New("product not file delivery")
)

// 退款错误
var (
	ErrRefundNotFound       = errors.New("refund not found")
	ErrRefundAlreadyExists  = errors.New("refund already exists for order")
	ErrRefundOrderNotPaid   = errors.New("order not refundable")
	ErrRefundWindowClosed   = errors.New("refund window closed")
	ErrRefundStatusConflict = errors.New("refund status conflict")
	ErrRefundGatewayFailed  = errors.New("refund gateway failed")
)
