package public

import (
	"errors"

	"github.com/moban-market/internal/http/response"
	"github.com/moban-market/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

func concatMappedHandlerErrors(groups ...[]mappedHandlerError) []mappedHandlerError {
	total := 0
	for _, group := range groups {
		total += len(group)
	}
	result := make([]mappedHandlerError, 0, total)
	for _, group := range groups {
		result = append(result, group...)
	}
	return result
}

var quoteCommonErrorRules = []mappedHandlerError{
	{target: service.ErrOrderItemsEmpty, code: response.CodeBadRequest, key: "error.order_items_empty"},
	{target: service.ErrOrderQuantityInvalid, code: response.CodeBadRequest, key: "error.order_quantity_invalid"},
	{target: service.ErrProductNotFound, code: response.CodeBadRequest, key: "error.product_not_found"},
	{target: service.ErrProductOffSale, code: response.CodeBadRequest, key: "error.product_off_sale"},
	{target: service.ErrCouponNotFound, code: response.CodeBadRequest, key: "error.coupon_not_found"},
	{target: service.ErrCouponDisabled, code: response.CodeBadRequest, key: "error.coupon_disabled"},
	{target: service.ErrCouponNotStarted, code: response.CodeBadRequest, key: "error.coupon_not_started"},
	{target: service.ErrCouponExpired, code: response.CodeBadRequest, key: "error.coupon_expired"},
	{target: service.ErrCouponExhausted, code: response.CodeBadRequest, key: "error.coupon_exhausted"},
	{target: service.ErrCouponUserLimitReached, code: response.CodeBadRequest, key: "error.coupon_user_limit_reached"},
	{target: service.ErrCouponScopeMismatch, code: response.CodeBadRequest, key: "error.coupon_scope_mismatch"},
	{target: service.ErrCouponProductNotEligible, code: response.CodeBadRequest, key: "error.coupon_product_not_eligible"},
	{target: service.ErrCouponMinAmountNotMet, code: response.CodeBadRequest, key: "error.coupon_min_amount_not_met"},
}

var couponValidateErrorRules = []mappedHandlerError{
	{target: service.ErrCouponScopeInvalid, code: response.CodeBadRequest, key: "error.coupon_scope_invalid"},
}

var orderPayErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrOrderNotPayable, code: response.CodeBadRequest, key: "error.order_not_payable"},
	{target: service.ErrOrderStatusConflict, code: response.CodeBadRequest, key: "error.order_status_conflict"},
	{target: service.ErrCouponExhausted, code: response.CodeBadRequest, key: "error.coupon_exhausted"},
	{target: service.ErrPaymentFailed, code: response.CodeBadRequest, key: "error.payment_failed"},
}

var downloadRedeemErrorRules = []mappedHandlerError{
	{target: service.ErrDownloadTokenNotFound, code: response.CodeNotFound, key: "error.download_token_not_found"},
	{target: service.ErrDownloadTokenUsed, code: response.CodeBadRequest, key: "error.download_token_used"},
	{target: service.ErrDownloadTokenExpired, code: response.CodeBadRequest, key: "error.download_token_expired"},
	{target: service.ErrLicenseNotFound, code: response.CodeNotFound, key: "error.license_not_found"},
	{target: service.ErrLicenseNotActive, code: response.CodeBadRequest, key: "error.license_not_active"},
	{target: service.ErrLicenseExhausted, code: response.CodeBadRequest, key: "error.license_access_exhausted"},
}

var downloadReissueErrorRules = []mappedHandlerError{
	{target: service.ErrLicenseNotFound, code: response.CodeNotFound, key: "error.license_not_found"},
	{target: service.ErrLicenseNotActive, code: response.CodeBadRequest, key: "error.license_not_active"},
	{target: service.ErrLicenseExhausted, code: response.CodeBadRequest, key: "error.license_access_exhausted"},
	{target: service.ErrDownloadNotFileDelivery, code: response.CodeBadRequest, key: "error.download_not_file_delivery"},
}

var refundRequestErrorRules = []mappedHandlerError{
	{target: service.ErrOrderNotFound, code: response.CodeNotFound, key: "error.order_not_found"},
	{target: service.ErrRefundOrderNotPaid, code: response.CodeBadRequest, key: "error.refund_order_not_paid"},
	{target: service.ErrRefundWindowClosed, code: response.CodeBadRequest, key: "error.refund_window_closed"},
	{target: service.ErrRefundAlreadyExists, code: response.CodeBadRequest, key: "error.refund_already_exists"},
}

func respondCouponValidateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(couponValidateErrorRules, quoteCommonErrorRules), response.CodeInternal, "error.coupon_validate_failed")
}

func respondOrderQuoteError(c *gin.Context, err error) {
	respondWithMappedError(c, err, quoteCommonErrorRules, response.CodeInternal, "error.order_quote_failed")
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, quoteCommonErrorRules, response.CodeInternal, "error.order_create_failed")
}

func respondOrderPayError(c *gin.Context, err error) {
	respondWithMappedError(c, err, concatMappedHandlerErrors(orderPayErrorRules, quoteCommonErrorRules), response.CodeInternal, "error.order_pay_failed")
}

func respondDownloadRedeemError(c *gin.Context, err error) {
	respondWithMappedError(c, err, downloadRedeemErrorRules, response.CodeInternal, "error.download_redeem_failed")
}

func respondDownloadReissueError(c *gin.Context, err error) {
	respondWithMappedError(c, err, downloadReissueErrorRules, response.CodeInternal, "error.download_reissue_failed")
}

func respondRefundRequestError(c *gin.Context, err error) {
	respondWithMappedError(c, err, refundRequestErrorRules, response.CodeInternal, "error.refund_request_failed")
}
