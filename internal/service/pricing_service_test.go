package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupPricingServiceTest(t *testing.T) (*PricingService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:pricing_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Product{},
		&models.Coupon{},
		&models.CouponUsage{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	svc := NewPricingService(
		repository.NewProductRepository(db),
		repository.NewCouponRepository(db),
		repository.NewCouponUsageRepository(db),
		10,
		20,
	)
	return svc, db
}

func seedPricingProduct(t *testing.T, db *gorm.DB, slug string, price float64) models.Product {
	t.Helper()
	return seedPricingProductKind(t, db, slug, constants.ProductKindGood, price)
}

func seedPricingProductKind(t *testing.T, db *gorm.DB, slug, kind string, price float64) models.Product {
	t.Helper()
	product := models.Product{
		Slug:         slug,
		Name:         slug,
		Price:        models.NewMoneyFromDecimal(decimal.NewFromFloat(price)),
		Kind:         kind,
		DeliveryType: constants.DeliveryTypeFile,
		Status:       constants.ProductStatusOnSale,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestQuoteSubtotalDiscountTotal(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	product := seedPricingProduct(t, db, "template-kit", 100)

	end := time.Now().Add(time.Hour)
	coupon := models.Coupon{
		Code:        "SAVE20",
		Type:        constants.CouponTypePercentage,
		Value:       models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
		MaxDiscount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		EndsAt:      &end,
		IsActive:    true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	result, err := svc.Quote(1, []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}, "SAVE20")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !result.Subtotal.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("subtotal want 100 got %s", result.Subtotal.Decimal.String())
	}
	// 20% 应为 20，但最大优惠金额限制为 10
	if !result.Discount.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("discount want 10 got %s", result.Discount.Decimal.String())
	}
	if !result.Total.Decimal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("total want 90 got %s", result.Total.Decimal.String())
	}
	if !result.Total.Decimal.Equal(result.Subtotal.Decimal.Sub(result.Discount.Decimal)) {
		t.Fatalf("total != subtotal - discount: %+v", result)
	}
}

func TestQuoteFixedCouponNeverNegative(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	product := seedPricingProduct(t, db, "cheap-template", 30)

	coupon := models.Coupon{
		Code:     "BIG50",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		IsActive: true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	result, err := svc.Quote(1, []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}, "BIG50")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !result.Discount.Decimal.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("discount should be clamped to subtotal, got %s", result.Discount.Decimal.String())
	}
	if !result.Total.Decimal.Equal(decimal.Zero) {
		t.Fatalf("total want 0 got %s", result.Total.Decimal.String())
	}
}

func TestQuoteRejectsInvalidItems(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	product := seedPricingProduct(t, db, "some-template", 10)

	if _, err := svc.Quote(1, nil, ""); !errors.Is(err, ErrOrderItemsEmpty) {
		t.Fatalf("expected items empty error, got: %v", err)
	}
	if _, err := svc.Quote(1, []QuoteItemInput{{ProductID: product.ID, Quantity: 0}}, ""); !errors.Is(err, ErrOrderQuantityInvalid) {
		t.Fatalf("expected quantity invalid error, got: %v", err)
	}
	if _, err := svc.Quote(1, []QuoteItemInput{{ProductID: 999, Quantity: 1}}, ""); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected product not found error, got: %v", err)
	}
}

func TestQuoteRejectsOffSaleProduct(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	product := seedPricingProduct(t, db, "retired-template", 10)
	if err := db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("status", constants.ProductStatusOffSale).Error; err != nil {
		t.Fatalf("update product failed: %v", err)
	}

	if _, err := svc.Quote(1, []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}, ""); !errors.Is(err, ErrProductOffSale) {
		t.Fatalf("expected off sale error, got: %v", err)
	}
}

func TestQuoteCouponValidationOrder(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	product := seedPricingProduct(t, db, "order-template", 100)
	items := []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}

	if _, err := svc.Quote(1, items, "MISSING"); !errors.Is(err, ErrCouponNotFound) {
		t.Fatalf("expected coupon not found, got: %v", err)
	}

	// 禁用且已过期的券应先命中禁用校验
	past := time.Now().Add(-time.Hour)
	disabled := models.Coupon{
		Code:     "DISABLED",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		EndsAt:   &past,
		IsActive: false,
	}
	if err := db.Create(&disabled).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	if _, err := svc.Quote(1, items, "DISABLED"); !errors.Is(err, ErrCouponDisabled) {
		t.Fatalf("expected coupon disabled, got: %v", err)
	}

	future := time.Now().Add(time.Hour)
	notStarted := models.Coupon{
		Code:     "SOON",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		StartsAt: &future,
		IsActive: true,
	}
	if err := db.Create(&notStarted).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	if _, err := svc.Quote(1, items, "SOON"); !errors.Is(err, ErrCouponNotStarted) {
		t.Fatalf("expected coupon not started, got: %v", err)
	}

	expired := models.Coupon{
		Code:     "LATE",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		EndsAt:   &past,
		IsActive: true,
	}
	if err := db.Create(&expired).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	if _, err := svc.Quote(1, items, "LATE"); !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("expected coupon expired, got: %v", err)
	}

	exhausted := models.Coupon{
		Code:       "GONE",
		Type:       constants.CouponTypeFixed,
		Value:      models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		UsageLimit: 1,
		UsedCount:  1,
		IsActive:   true,
	}
	if err := db.Create(&exhausted).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	if _, err := svc.Quote(1, items, "GONE"); !errors.Is(err, ErrCouponExhausted) {
		t.Fatalf("expected coupon exhausted, got: %v", err)
	}
}

func TestQuoteCouponPerUserLimit(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	product := seedPricingProduct(t, db, "limited-template", 100)

	coupon := models.Coupon{
		Code:         "ONCE",
		Type:         constants.CouponTypeFixed,
		Value:        models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		PerUserLimit: 1,
		IsActive:     true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	usage := models.CouponUsage{
		CouponID:       coupon.ID,
		UserID:         1,
		OrderID:        100,
		DiscountAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
	}
	if err := db.Create(&usage).Error; err != nil {
		t.Fatalf("create usage failed: %v", err)
	}

	items := []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}
	if _, err := svc.Quote(1, items, "ONCE"); !errors.Is(err, ErrCouponUserLimitReached) {
		t.Fatalf("expected per-user limit reached, got: %v", err)
	}
	// 其他用户不受影响
	if _, err := svc.Quote(2, items, "ONCE"); err != nil {
		t.Fatalf("other user quote failed: %v", err)
	}
}

func TestQuoteCouponScopeAndThreshold(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	inScope := seedPricingProduct(t, db, "scoped-template", 40)
	outScope := seedPricingProduct(t, db, "other-template", 60)

	coupon := models.Coupon{
		Code:            "SCOPED",
		Type:            constants.CouponTypeFixed,
		Value:           models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		ScopeProductIDs: fmt.Sprintf("%d", inScope.ID),
		IsActive:        true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	// 订单中不含适用商品
	if _, err := svc.Quote(1, []QuoteItemInput{{ProductID: outScope.ID, Quantity: 1}}, "SCOPED"); !errors.Is(err, ErrCouponProductNotEligible) {
		t.Fatalf("expected product not eligible, got: %v", err)
	}

	// 固定券优惠不超过适用商品小计
	result, err := svc.Quote(1, []QuoteItemInput{
		{ProductID: inScope.ID, Quantity: 1},
		{ProductID: outScope.ID, Quantity: 1},
	}, "SCOPED")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if !result.Discount.Decimal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("discount should be capped at scoped subtotal 40, got %s", result.Discount.Decimal.String())
	}

	threshold := models.Coupon{
		Code:      "MIN200",
		Type:      constants.CouponTypeFixed,
		Value:     models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		MinAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
		IsActive:  true,
	}
	if err := db.Create(&threshold).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	if _, err := svc.Quote(1, []QuoteItemInput{{ProductID: outScope.ID, Quantity: 1}}, "MIN200"); !errors.Is(err, ErrCouponMinAmountNotMet) {
		t.Fatalf("expected min amount not met, got: %v", err)
	}
}

func TestQuoteFeeSplitByKind(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	good := seedPricingProductKind(t, db, "good-template", constants.ProductKindGood, 100)
	serviceProd := seedPricingProductKind(t, db, "design-service", constants.ProductKindService, 50)

	result, err := svc.Quote(1, []QuoteItemInput{
		{ProductID: good.ID, Quantity: 1},
		{ProductID: serviceProd.ID, Quantity: 2},
	}, "")
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}
	if len(result.Lines) != 2 {
		t.Fatalf("lines want 2 got %d", len(result.Lines))
	}

	// good 抽成 10%：100 -> 10/90
	goodLine := result.Lines[0]
	if goodLine.Kind != constants.ProductKindGood {
		t.Fatalf("kind want good got %s", goodLine.Kind)
	}
	if !goodLine.PlatformFee.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("good fee want 10 got %s", goodLine.PlatformFee.Decimal.String())
	}
	if !goodLine.Payout.Decimal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("good payout want 90 got %s", goodLine.Payout.Decimal.String())
	}

	// service 抽成 20%：50x2=100 -> 20/80
	serviceLine := result.Lines[1]
	if serviceLine.Kind != constants.ProductKindService {
		t.Fatalf("kind want service got %s", serviceLine.Kind)
	}
	if !serviceLine.PlatformFee.Decimal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("service fee want 20 got %s", serviceLine.PlatformFee.Decimal.String())
	}
	if !serviceLine.Payout.Decimal.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("service payout want 80 got %s", serviceLine.Payout.Decimal.String())
	}

	for _, line := range result.Lines {
		if !line.PlatformFee.Decimal.Add(line.Payout.Decimal).Equal(line.TotalPrice.Decimal) {
			t.Fatalf("fee + payout != line total: %+v", line)
		}
	}
}

func TestQuoteCouponKindScope(t *testing.T) {
	svc, db := setupPricingServiceTest(t)
	good := seedPricingProductKind(t, db, "kit-template", constants.ProductKindGood, 100)
	serviceProd := seedPricingProductKind(t, db, "setup-service", constants.ProductKindService, 100)

	goodsOnly := models.Coupon{
		Code:     "GOODS10",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Scope:    constants.CouponScopeGoods,
		IsActive: true,
	}
	if err := db.Create(&goodsOnly).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	// 纯实物模板订单可用
	result, err := svc.Quote(1, []QuoteItemInput{{ProductID: good.ID, Quantity: 1}}, "GOODS10")
	if err != nil {
		t.Fatalf("goods-only order quote failed: %v", err)
	}
	if !result.Discount.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("discount want 10 got %s", result.Discount.Decimal.String())
	}

	// 纯服务订单与混合订单均不可用
	if _, err := svc.Quote(1, []QuoteItemInput{{ProductID: serviceProd.ID, Quantity: 1}}, "GOODS10"); !errors.Is(err, ErrCouponScopeMismatch) {
		t.Fatalf("services order expected scope mismatch, got: %v", err)
	}
	if _, err := svc.Quote(1, []QuoteItemInput{
		{ProductID: good.ID, Quantity: 1},
		{ProductID: serviceProd.ID, Quantity: 1},
	}, "GOODS10"); !errors.Is(err, ErrCouponScopeMismatch) {
		t.Fatalf("mixed order expected scope mismatch, got: %v", err)
	}

	// all 范围的券不受种类限制
	anyScope := models.Coupon{
		Code:     "ANY5",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		Scope:    constants.CouponScopeAll,
		IsActive: true,
	}
	if err := db.Create(&anyScope).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	if _, err := svc.Quote(1, []QuoteItemInput{
		{ProductID: good.ID, Quantity: 1},
		{ProductID: serviceProd.ID, Quantity: 1},
	}, "ANY5"); err != nil {
		t.Fatalf("all-scope coupon on mixed order failed: %v", err)
	}
}

func TestValidateCouponByAmount(t *testing.T) {
	svc, db := setupPricingServiceTest(t)

	coupon := models.Coupon{
		Code:        "SAVE20",
		Type:        constants.CouponTypePercentage,
		Value:       models.NewMoneyFromDecimal(decimal.NewFromInt(20)),
		MaxDiscount: models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		Scope:       constants.CouponScopeAll,
		IsActive:    true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	quote, err := svc.ValidateCoupon(1, "SAVE20", decimal.NewFromInt(100), "")
	if err != nil {
		t.Fatalf("validate coupon failed: %v", err)
	}
	if !quote.Valid {
		t.Fatalf("coupon should be valid")
	}
	if !quote.Discount.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("discount want 10 got %s", quote.Discount.Decimal.String())
	}
	if !quote.FinalAmount.Decimal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("final amount want 90 got %s", quote.FinalAmount.Decimal.String())
	}

	// 范围不匹配
	servicesOnly := models.Coupon{
		Code:     "SVC5",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		Scope:    constants.CouponScopeServices,
		IsActive: true,
	}
	if err := db.Create(&servicesOnly).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	if _, err := svc.ValidateCoupon(1, "SVC5", decimal.NewFromInt(100), constants.CouponScopeGoods); !errors.Is(err, ErrCouponScopeMismatch) {
		t.Fatalf("expected scope mismatch, got: %v", err)
	}
	if _, err := svc.ValidateCoupon(1, "SVC5", decimal.NewFromInt(100), constants.CouponScopeServices); err != nil {
		t.Fatalf("matching scope validate failed: %v", err)
	}

	// 非法范围参数
	if _, err := svc.ValidateCoupon(1, "SAVE20", decimal.NewFromInt(100), "everything"); !errors.Is(err, ErrCouponScopeInvalid) {
		t.Fatalf("expected scope invalid, got: %v", err)
	}

	// 金额门槛按传入金额校验
	threshold := models.Coupon{
		Code:      "MIN200",
		Type:      constants.CouponTypeFixed,
		Value:     models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		MinAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(200)),
		IsActive:  true,
	}
	if err := db.Create(&threshold).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}
	if _, err := svc.ValidateCoupon(1, "MIN200", decimal.NewFromInt(100), ""); !errors.Is(err, ErrCouponMinAmountNotMet) {
		t.Fatalf("expected min amount not met, got: %v", err)
	}
}

func TestRecordUsageRespectsUsageLimit(t *testing.T) {
	svc, db := setupPricingServiceTest(t)

	coupon := models.Coupon{
		Code:       "LIMIT1",
		Type:       constants.CouponTypeFixed,
		Value:      models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		UsageLimit: 1,
		IsActive:   true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	discount := models.NewMoneyFromDecimal(decimal.NewFromInt(5))
	if err := svc.RecordUsage(db, coupon.ID, 1, 10, discount); err != nil {
		t.Fatalf("first record usage failed: %v", err)
	}
	if err := svc.RecordUsage(db, coupon.ID, 2, 11, discount); !errors.Is(err, ErrCouponExhausted) {
		t.Fatalf("expected coupon exhausted, got: %v", err)
	}

	var stored models.Coupon
	if err := db.First(&stored, coupon.ID).Error; err != nil {
		t.Fatalf("load coupon failed: %v", err)
	}
	if stored.UsedCount != 1 {
		t.Fatalf("used_count want 1 got %d", stored.UsedCount)
	}
}

func TestParseScopeProductIDs(t *testing.T) {
	scope := parseScopeProductIDs(" 1, 2,abc,0, ,3 ")
	if len(scope) != 3 {
		t.Fatalf("expected 3 ids, got %d", len(scope))
	}
	for _, id := range []uint{1, 2, 3} {
		if _, ok := scope[id]; !ok {
			t.Fatalf("missing id %d in scope", id)
		}
	}
}
