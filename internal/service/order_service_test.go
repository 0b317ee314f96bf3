package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/payment/demo"
	"github.com/moban-market/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupOrderServiceTest(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Coupon{},
		&models.CouponUsage{},
		&models.Order{},
		&models.OrderItem{},
		&models.License{},
		&models.DownloadCredential{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	productRepo := repository.NewProductRepository(db)
	pricing := NewPricingService(
		productRepo,
		repository.NewCouponRepository(db),
		repository.NewCouponUsageRepository(db),
		10,
		20,
	)
	svc := NewOrderService(
		repository.NewOrderRepository(db),
		productRepo,
		repository.NewLicenseRepository(db),
		repository.NewDownloadCredentialRepository(db),
		pricing,
		demo.New(),
		nil,
		"USD",
		30,
		60,
	)
	return svc, db
}

func seedOrderProduct(t *testing.T, db *gorm.DB, slug, deliveryType string, price float64) models.Product {
	t.Helper()
	product := models.Product{
		Slug:             slug,
		Name:             slug,
		Price:            models.NewMoneyFromDecimal(decimal.NewFromFloat(price)),
		Kind:             constants.ProductKindGood,
		DeliveryType:     deliveryType,
		FileURL:          "https://cdn.example.com/" + slug + ".zip",
		ExternalURL:      "https://example.com/" + slug,
		LicenseMaxAccess: 3,
		Status:           constants.ProductStatusOnSale,
	}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func TestCreateOrderSnapshotsQuote(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	product := seedOrderProduct(t, db, "create-template", constants.DeliveryTypeFile, 50)

	coupon := models.Coupon{
		Code:     "FIVE",
		Type:     constants.CouponTypeFixed,
		Value:    models.NewMoneyFromDecimal(decimal.NewFromInt(5)),
		IsActive: true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	order, err := svc.Create(1, []QuoteItemInput{{ProductID: product.ID, Quantity: 2}}, "FIVE")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.Status != constants.OrderStatusPending {
		t.Fatalf("status want pending got %s", order.Status)
	}
	if !strings.HasPrefix(order.OrderNo, "MB") {
		t.Fatalf("order no should start with MB, got %s", order.OrderNo)
	}
	if !order.Subtotal.Decimal.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("subtotal want 100 got %s", order.Subtotal.Decimal.String())
	}
	if !order.TotalAmount.Decimal.Equal(decimal.NewFromInt(95)) {
		t.Fatalf("total want 95 got %s", order.TotalAmount.Decimal.String())
	}
	if order.CouponID == nil || order.CouponCode != "FIVE" {
		t.Fatalf("coupon snapshot missing: %+v", order)
	}
	if order.ExpiresAt == nil || !order.ExpiresAt.After(time.Now()) {
		t.Fatalf("expires_at should be in the future: %+v", order.ExpiresAt)
	}

	// 订单项快照包含种类与分账金额
	var items []models.OrderItem
	if err := db.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		t.Fatalf("load order items failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items want 1 got %d", len(items))
	}
	item := items[0]
	if item.Kind != constants.ProductKindGood {
		t.Fatalf("item kind want good got %s", item.Kind)
	}
	if !item.PlatformFee.Decimal.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("platform fee want 10 got %s", item.PlatformFee.Decimal.String())
	}
	if !item.Payout.Decimal.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("payout want 90 got %s", item.Payout.Decimal.String())
	}

	// 创建阶段不得占用优惠券额度
	var stored models.Coupon
	if err := db.First(&stored, coupon.ID).Error; err != nil {
		t.Fatalf("load coupon failed: %v", err)
	}
	if stored.UsedCount != 0 {
		t.Fatalf("used_count should stay 0 before payment, got %d", stored.UsedCount)
	}
}

func TestConfirmPaymentIssuesEntitlements(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	fileProduct := seedOrderProduct(t, db, "file-template", constants.DeliveryTypeFile, 40)
	externalProduct := seedOrderProduct(t, db, "external-template", constants.DeliveryTypeExternal, 20)

	order, err := svc.Create(1, []QuoteItemInput{
		{ProductID: fileProduct.ID, Quantity: 2},
		{ProductID: externalProduct.ID, Quantity: 1},
	}, "")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	confirmed, err := svc.ConfirmPayment(context.Background(), order.ID, "gw_test_123")
	if err != nil {
		t.Fatalf("confirm payment failed: %v", err)
	}
	if confirmed.Status != constants.OrderStatusPaid {
		t.Fatalf("status want paid got %s", confirmed.Status)
	}
	if confirmed.PaidAt == nil {
		t.Fatalf("paid_at should be set")
	}
	if confirmed.GatewayRef != "gw_test_123" {
		t.Fatalf("gateway ref want gw_test_123 got %s", confirmed.GatewayRef)
	}
	if confirmed.PaymentMethod != constants.PaymentProviderDemo {
		t.Fatalf("payment method want demo got %s", confirmed.PaymentMethod)
	}

	// 每个购买数量一条授权
	var licenses []models.License
	if err := db.Where("order_id = ?", order.ID).Find(&licenses).Error; err != nil {
		t.Fatalf("load licenses failed: %v", err)
	}
	if len(licenses) != 3 {
		t.Fatalf("licenses want 3 got %d", len(licenses))
	}

	// 仅 file 类型商品签发下载凭证
	var credentials []models.DownloadCredential
	if err := db.Where("order_id = ?", order.ID).Find(&credentials).Error; err != nil {
		t.Fatalf("load credentials failed: %v", err)
	}
	if len(credentials) != 2 {
		t.Fatalf("credentials want 2 got %d", len(credentials))
	}
	for _, credential := range credentials {
		if credential.ProductID != fileProduct.ID {
			t.Fatalf("credential issued for non-file product: %+v", credential)
		}
	}
}

func TestConfirmPaymentIdempotent(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	product := seedOrderProduct(t, db, "idem-template", constants.DeliveryTypeFile, 10)

	order, err := svc.Create(1, []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}, "")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.ConfirmPayment(context.Background(), order.ID, "gw_first"); err != nil {
		t.Fatalf("first confirm failed: %v", err)
	}
	again, err := svc.ConfirmPayment(context.Background(), order.ID, "gw_second")
	if err != nil {
		t.Fatalf("second confirm should be idempotent, got: %v", err)
	}
	if again.GatewayRef != "gw_first" {
		t.Fatalf("gateway ref should keep first value, got %s", again.GatewayRef)
	}

	var licenseCount int64
	if err := db.Model(&models.License{}).Where("order_id = ?", order.ID).Count(&licenseCount).Error; err != nil {
		t.Fatalf("count licenses failed: %v", err)
	}
	if licenseCount != 1 {
		t.Fatalf("licenses want 1 got %d", licenseCount)
	}
}

func TestConfirmPaymentCouponExhaustedRollsBack(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	product := seedOrderProduct(t, db, "race-template", constants.DeliveryTypeFile, 100)

	coupon := models.Coupon{
		Code:       "LAST1",
		Type:       constants.CouponTypeFixed,
		Value:      models.NewMoneyFromDecimal(decimal.NewFromInt(10)),
		UsageLimit: 1,
		IsActive:   true,
	}
	if err := db.Create(&coupon).Error; err != nil {
		t.Fatalf("create coupon failed: %v", err)
	}

	order, err := svc.Create(1, []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}, "LAST1")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	// 模拟支付前额度被并发订单耗尽
	if err := db.Model(&models.Coupon{}).Where("id = ?", coupon.ID).
		Update("used_count", 1).Error; err != nil {
		t.Fatalf("update coupon failed: %v", err)
	}

	if _, err := svc.ConfirmPayment(context.Background(), order.ID, "gw_race"); !errors.Is(err, ErrCouponExhausted) {
		t.Fatalf("expected coupon exhausted, got: %v", err)
	}

	// 事务整体回滚：订单仍为 pending，无授权与凭证
	current, err := svc.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if current.Status != constants.OrderStatusPending {
		t.Fatalf("order should stay pending, got %s", current.Status)
	}
	var licenseCount int64
	if err := db.Model(&models.License{}).Where("order_id = ?", order.ID).Count(&licenseCount).Error; err != nil {
		t.Fatalf("count licenses failed: %v", err)
	}
	if licenseCount != 0 {
		t.Fatalf("licenses should be rolled back, got %d", licenseCount)
	}
}

func TestPayWithDemoGatewayConfirmsOrder(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	product := seedOrderProduct(t, db, "pay-template", constants.DeliveryTypeFile, 25)

	order, err := svc.Create(7, []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}, "")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	paid, err := svc.Pay(context.Background(), 7, order.ID)
	if err != nil {
		t.Fatalf("pay failed: %v", err)
	}
	if paid.Status != constants.OrderStatusPaid {
		t.Fatalf("status want paid got %s", paid.Status)
	}

	// 授权已随支付签发
	var licenseCount int64
	if err := db.Model(&models.License{}).Where("order_id = ?", order.ID).Count(&licenseCount).Error; err != nil {
		t.Fatalf("count licenses failed: %v", err)
	}
	if licenseCount != 1 {
		t.Fatalf("licenses want 1 got %d", licenseCount)
	}
}

func TestPayRejectsOtherUsersOrder(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	product := seedOrderProduct(t, db, "owner-template", constants.DeliveryTypeFile, 25)

	order, err := svc.Create(7, []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}, "")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if _, err := svc.Pay(context.Background(), 8, order.ID); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected order not found for other user, got: %v", err)
	}
}

func TestFailPaymentTransition(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	product := seedOrderProduct(t, db, "fail-template", constants.DeliveryTypeFile, 25)

	order, err := svc.Create(1, []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}, "")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	failed, err := svc.FailPayment(order.ID, "card declined")
	if err != nil {
		t.Fatalf("fail payment failed: %v", err)
	}
	if failed.Status != constants.OrderStatusFailed {
		t.Fatalf("status want failed got %s", failed.Status)
	}
	if failed.FailReason != "card declined" {
		t.Fatalf("fail reason want card declined got %s", failed.FailReason)
	}

	// failed 为终态，不可再确认支付
	if _, err := svc.ConfirmPayment(context.Background(), order.ID, "gw_late"); !errors.Is(err, ErrOrderNotPayable) {
		t.Fatalf("expected not payable, got: %v", err)
	}
}

func TestExpireOverdueOrders(t *testing.T) {
	svc, db := setupOrderServiceTest(t)
	product := seedOrderProduct(t, db, "expire-template", constants.DeliveryTypeFile, 25)

	order, err := svc.Create(1, []QuoteItemInput{{ProductID: product.ID, Quantity: 1}}, "")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	past := time.Now().Add(-time.Minute)
	if err := db.Model(&models.Order{}).Where("id = ?", order.ID).
		Update("expires_at", past).Error; err != nil {
		t.Fatalf("update order failed: %v", err)
	}

	expired, err := svc.ExpireOverdueOrders(time.Now())
	if err != nil {
		t.Fatalf("expire overdue failed: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expired count want 1 got %d", expired)
	}
	current, err := svc.orderRepo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if current.Status != constants.OrderStatusExpired {
		t.Fatalf("status want expired got %s", current.Status)
	}
}
