package service

import (
	"strconv"
	"strings"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// QuoteItemInput 报价明细输入
type QuoteItemInput struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// QuoteLine 报价明细
type QuoteLine struct {
	Product     models.Product `json:"product"`
	Quantity    int            `json:"quantity"`
	Kind        string         `json:"kind"`
	UnitPrice   models.Money   `json:"unit_price"`
	TotalPrice  models.Money   `json:"total_price"`
	PlatformFee models.Money   `json:"platform_fee"`
	Payout      models.Money   `json:"payout"`
}

// QuoteResult 报价结果
type QuoteResult struct {
	Lines    []QuoteLine    `json:"lines"`
	Subtotal models.Money   `json:"subtotal"`
	Discount models.Money   `json:"discount"`
	Total    models.Money   `json:"total"`
	Coupon   *models.Coupon `json:"coupon,omitempty"`
}

// CouponQuote 优惠券试算结果
type CouponQuote struct {
	Valid       bool         `json:"valid"`
	Discount    models.Money `json:"discount"`
	FinalAmount models.Money `json:"final_amount"`
}

// PricingService 定价与优惠券计算服务
type PricingService struct {
	productRepo       repository.ProductRepository
	couponRepo        repository.CouponRepository
	usageRepo         repository.CouponUsageRepository
	feePercentGood    decimal.Decimal
	feePercentService decimal.Decimal
}

// NewPricingService 创建定价服务。
// feePercentGood / feePercentService 为平台抽成百分比，按商品种类取值。
func NewPricingService(
	productRepo repository.ProductRepository,
	couponRepo repository.CouponRepository,
	usageRepo repository.CouponUsageRepository,
	feePercentGood float64,
	feePercentService float64,
) *PricingService {
	return &PricingService{
		productRepo:       productRepo,
		couponRepo:        couponRepo,
		usageRepo:         usageRepo,
		feePercentGood:    clampFeePercent(feePercentGood),
		feePercentService: clampFeePercent(feePercentService),
	}
}

func clampFeePercent(percent float64) decimal.Decimal {
	if percent < 0 {
		return decimal.Zero
	}
	if percent > 100 {
		return decimal.NewFromInt(100)
	}
	return decimal.NewFromFloat(percent)
}

// Quote 计算订单金额。
// 保证 total = subtotal - discount 且永不为负，金额统一保留 2 位小数。
func (s *PricingService) Quote(userID uint, items []QuoteItemInput, couponCode string) (*QuoteResult, error) {
	if len(items) == 0 {
		return nil, ErrOrderItemsEmpty
	}

	productIDs := make([]uint, 0, len(items))
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, ErrOrderQuantityInvalid
		}
		productIDs = append(productIDs, item.ProductID)
	}

	products, err := s.productRepo.ListByIDs(productIDs)
	if err != nil {
		return nil, err
	}
	productByID := make(map[uint]models.Product, len(products))
	for _, product := range products {
		productByID[product.ID] = product
	}

	result := &QuoteResult{
		Lines:    make([]QuoteLine, 0, len(items)),
		Subtotal: models.MoneyZero(),
		Discount: models.MoneyZero(),
	}
	subtotal := decimal.Zero
	for _, item := range items {
		product, ok := productByID[item.ProductID]
		if !ok {
			return nil, ErrProductNotFound
		}
		if product.Status != constants.ProductStatusOnSale {
			return nil, ErrProductOffSale
		}
		lineTotal := product.Price.Decimal.Mul(decimal.NewFromInt(int64(item.Quantity))).Round(2)
		platformFee := lineTotal.Mul(s.feePercentFor(product.Kind)).Div(decimal.NewFromInt(100)).Round(2)
		result.Lines = append(result.Lines, QuoteLine{
			Product:     product,
			Quantity:    item.Quantity,
			Kind:        productKindOrDefault(product.Kind),
			UnitPrice:   product.Price,
			TotalPrice:  models.NewMoneyFromDecimal(lineTotal),
			PlatformFee: models.NewMoneyFromDecimal(platformFee),
			Payout:      models.NewMoneyFromDecimal(lineTotal.Sub(platformFee)),
		})
		subtotal = subtotal.Add(lineTotal)
	}
	result.Subtotal = models.NewMoneyFromDecimal(subtotal)

	discount := decimal.Zero
	if strings.TrimSpace(couponCode) != "" {
		coupon, err := s.validateCoupon(couponCode, userID, subtotal, result.Lines)
		if err != nil {
			return nil, err
		}
		discount = s.discountFor(coupon, subtotal, result.Lines)
		result.Coupon = coupon
	}
	result.Discount = models.NewMoneyFromDecimal(discount)
	result.Total = models.NewMoneyFromDecimal(subtotal.Sub(discount))
	return result, nil
}

// ValidateCoupon 按金额与范围试算优惠券，不占用额度。
// scope 为请求方声明的订单范围（all/goods/services，空视为 all）。
func (s *PricingService) ValidateCoupon(userID uint, code string, orderAmount decimal.Decimal, scope string) (*CouponQuote, error) {
	requested, err := normalizeCouponScope(scope)
	if err != nil {
		return nil, err
	}
	if orderAmount.LessThan(decimal.Zero) {
		orderAmount = decimal.Zero
	}
	orderAmount = orderAmount.Round(2)
	coupon, err := s.checkCoupon(code, userID, orderAmount, requested)
	if err != nil {
		return nil, err
	}
	discount := s.discountFor(coupon, orderAmount, nil)
	return &CouponQuote{
		Valid:       true,
		Discount:    models.NewMoneyFromDecimal(discount),
		FinalAmount: models.NewMoneyFromDecimal(orderAmount.Sub(discount)),
	}, nil
}

// validateCoupon 在报价流程内校验优惠券，订单范围由明细的商品种类推导。
func (s *PricingService) validateCoupon(code string, userID uint, subtotal decimal.Decimal, lines []QuoteLine) (*models.Coupon, error) {
	coupon, err := s.checkCoupon(code, userID, subtotal, orderScope(lines))
	if err != nil {
		return nil, err
	}
	if scopeSubtotal(coupon, lines).IsZero() {
		return nil, ErrCouponProductNotEligible
	}
	return coupon, nil
}

// checkCoupon 校验优惠券可用性。
// 校验顺序：存在 -> 启用 -> 时间窗口 -> 总使用上限 -> 每人上限 -> 适用范围 -> 使用门槛，
// 返回第一个不满足的校验错误。
func (s *PricingService) checkCoupon(code string, userID uint, orderAmount decimal.Decimal, requestedScope string) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByCode(strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	if !coupon.IsActive {
		return nil, ErrCouponDisabled
	}
	now := time.Now()
	if coupon.StartsAt != nil && now.Before(*coupon.StartsAt) {
		return nil, ErrCouponNotStarted
	}
	if coupon.EndsAt != nil && !now.Before(*coupon.EndsAt) {
		return nil, ErrCouponExpired
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return nil, ErrCouponExhausted
	}
	if coupon.PerUserLimit > 0 {
		used, err := s.usageRepo.CountByUser(coupon.ID, userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(coupon.PerUserLimit) {
			return nil, ErrCouponUserLimitReached
		}
	}
	if !couponScopeMatches(coupon.Scope, requestedScope) {
		return nil, ErrCouponScopeMismatch
	}
	if coupon.MinAmount.Decimal.GreaterThan(decimal.Zero) && orderAmount.LessThan(coupon.MinAmount.Decimal) {
		return nil, ErrCouponMinAmountNotMet
	}
	return coupon, nil
}

// discountFor 计算优惠金额。
// 百分比券按适用商品小计计算并受最大优惠金额限制，固定券不超过适用商品小计，
// 最终优惠不超过订单折前金额。无明细时（按金额试算）以订单金额为基数。
func (s *PricingService) discountFor(coupon *models.Coupon, subtotal decimal.Decimal, lines []QuoteLine) decimal.Decimal {
	base := subtotal
	if len(lines) > 0 {
		base = scopeSubtotal(coupon, lines)
	}
	var discount decimal.Decimal
	switch coupon.Type {
	case constants.CouponTypePercentage:
		discount = base.Mul(coupon.Value.Decimal).Div(decimal.NewFromInt(100)).Round(2)
		if coupon.MaxDiscount.Decimal.GreaterThan(decimal.Zero) && discount.GreaterThan(coupon.MaxDiscount.Decimal) {
			discount = coupon.MaxDiscount.Decimal
		}
	case constants.CouponTypeFixed:
		discount = coupon.Value.Decimal
		if discount.GreaterThan(base) {
			discount = base
		}
	default:
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	return discount.Round(2)
}

// RecordUsage 在支付确认事务内占用优惠券额度并落使用记录。
// 使用条件递增保证并发下 used_count 不超过 usage_limit。
func (s *PricingService) RecordUsage(tx *gorm.DB, couponID, userID, orderID uint, discount models.Money) error {
	ok, err := s.couponRepo.WithTx(tx).ConsumeUsage(couponID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCouponExhausted
	}
	usage := models.CouponUsage{
		CouponID:       couponID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: discount,
	}
	return s.usageRepo.WithTx(tx).Create(&usage)
}

// feePercentFor 按商品种类返回平台抽成百分比。
func (s *PricingService) feePercentFor(kind string) decimal.Decimal {
	if kind == constants.ProductKindService {
		return s.feePercentService
	}
	return s.feePercentGood
}

func productKindOrDefault(kind string) string {
	if kind == constants.ProductKindService {
		return constants.ProductKindService
	}
	return constants.ProductKindGood
}

// orderScope 由订单明细推导请求范围：全为实物模板记 goods，全为服务记 services，混合记 all。
func orderScope(lines []QuoteLine) string {
	var goods, services bool
	for _, line := range lines {
		if line.Kind == constants.ProductKindService {
			services = true
		} else {
			goods = true
		}
	}
	switch {
	case goods && services:
		return constants.CouponScopeAll
	case services:
		return constants.CouponScopeServices
	default:
		return constants.CouponScopeGoods
	}
}

// couponScopeMatches 范围匹配规则：券为 all（或未设置）匹配一切，否则必须与请求范围相等。
func couponScopeMatches(couponScope, requestedScope string) bool {
	if couponScope == "" || couponScope == constants.CouponScopeAll {
		return true
	}
	return couponScope == requestedScope
}

// scopeSubtotal 计算优惠券适用商品的小计。
// 范围为空表示适用全部商品。
func scopeSubtotal(coupon *models.Coupon, lines []QuoteLine) decimal.Decimal {
	scope := parseScopeProductIDs(coupon.ScopeProductIDs)
	total := decimal.Zero
	for _, line := range lines {
		if len(scope) > 0 {
			if _, ok := scope[line.Product.ID]; !ok {
				continue
			}
		}
		total = total.Add(line.TotalPrice.Decimal)
	}
	return total
}

func parseScopeProductIDs(raw string) map[uint]struct{} {
	scope := make(map[uint]struct{})
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			continue
		}
		scope[uint(id)] = struct{}{}
	}
	return scope
}
