package service

import (
	"context"
	"errors"
	"fmt"
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

func setupRefundServiceTest(t *testing.T) (*RefundService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:refund_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
		&models.Order{},
		&models.OrderItem{},
		&models.License{},
		&models.Refund{},
	); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	svc := NewRefundService(
		repository.NewRefundRepository(db),
		repository.NewOrderRepository(db),
		repository.NewLicenseRepository(db),
		demo.New(),
		nil,
		14,
	)
	return svc, db
}

func seedRefundOrder(t *testing.T, db *gorm.DB, userID uint, status string, paidAt *time.Time) models.Order {
	t.Helper()
	order := models.Order{
		OrderNo:     fmt.Sprintf("MB%d", time.Now().UnixNano()),
		UserID:      userID,
		Status:      status,
		Currency:    "USD",
		Subtotal:    models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(50)),
		GatewayRef:  "gw_paid_ref",
		PaidAt:      paidAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	return order
}

func TestRequestRefundWithinWindow(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	paidAt := time.Now().Add(-13 * 24 * time.Hour)
	order := seedRefundOrder(t, db, 1, constants.OrderStatusPaid, &paidAt)

	refund, err := svc.Request(1, order.ID, "not what I expected")
	if err != nil {
		t.Fatalf("request refund failed: %v", err)
	}
	if refund.Status != constants.RefundStatusRequested {
		t.Fatalf("status want requested got %s", refund.Status)
	}
	if !refund.Amount.Decimal.Equal(order.TotalAmount.Decimal) {
		t.Fatalf("refund amount should equal order total, got %s", refund.Amount.Decimal.String())
	}
	if refund.RefundNo == "" || refund.RefundNo[:2] != "RF" {
		t.Fatalf("refund no should start with RF, got %s", refund.RefundNo)
	}
}

func TestRequestRefundWindowClosed(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	paidAt := time.Now().Add(-15 * 24 * time.Hour)
	order := seedRefundOrder(t, db, 1, constants.OrderStatusPaid, &paidAt)

	if _, err := svc.Request(1, order.ID, "too late"); !errors.Is(err, ErrRefundWindowClosed) {
		t.Fatalf("expected window closed, got: %v", err)
	}
}

func TestRequestRefundRequiresPaidOrder(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	order := seedRefundOrder(t, db, 1, constants.OrderStatusPending, nil)

	if _, err := svc.Request(1, order.ID, "still pending"); !errors.Is(err, ErrRefundOrderNotPaid) {
		t.Fatalf("expected order not refundable, got: %v", err)
	}
	if _, err := svc.Request(2, order.ID, "wrong user"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected order not found for other user, got: %v", err)
	}
}

func TestRequestRefundOnlyOncePerOrder(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	paidAt := time.Now().Add(-time.Hour)
	order := seedRefundOrder(t, db, 1, constants.OrderStatusPaid, &paidAt)

	if _, err := svc.Request(1, order.ID, "first"); err != nil {
		t.Fatalf("first request failed: %v", err)
	}
	if _, err := svc.Request(1, order.ID, "second"); !errors.Is(err, ErrRefundAlreadyExists) {
		t.Fatalf("expected refund already exists, got: %v", err)
	}
}

func TestApproveRefundRevokesLicenses(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	paidAt := time.Now().Add(-time.Hour)
	order := seedRefundOrder(t, db, 1, constants.OrderStatusPaid, &paidAt)

	licenses := []models.License{
		{LicenseKey: "lic-a", OrderID: order.ID, UserID: 1, ProductID: 1, Status: constants.LicenseStatusActive, IssuedAt: paidAt},
		{LicenseKey: "lic-b", OrderID: order.ID, UserID: 1, ProductID: 1, Status: constants.LicenseStatusActive, IssuedAt: paidAt},
	}
	if err := db.Create(&licenses).Error; err != nil {
		t.Fatalf("create licenses failed: %v", err)
	}

	refund, err := svc.Request(1, order.ID, "please refund")
	if err != nil {
		t.Fatalf("request refund failed: %v", err)
	}

	approved, err := svc.Approve(context.Background(), refund.ID, "ok by support")
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != constants.RefundStatusProcessed {
		t.Fatalf("status want processed got %s", approved.Status)
	}
	if approved.GatewayRef == "" {
		t.Fatalf("gateway ref should be recorded")
	}
	if approved.DecidedAt == nil {
		t.Fatalf("decided_at should be set")
	}

	var current models.Order
	if err := db.First(&current, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if current.Status != constants.OrderStatusRefunded {
		t.Fatalf("order status want refunded got %s", current.Status)
	}

	var activeCount int64
	if err := db.Model(&models.License{}).
		Where("order_id = ? AND status = ?", order.ID, constants.LicenseStatusActive).
		Count(&activeCount).Error; err != nil {
		t.Fatalf("count licenses failed: %v", err)
	}
	if activeCount != 0 {
		t.Fatalf("all licenses should be revoked, %d still active", activeCount)
	}
}

func TestRefundDecisionIsTerminal(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	paidAt := time.Now().Add(-time.Hour)
	order := seedRefundOrder(t, db, 1, constants.OrderStatusPaid, &paidAt)

	refund, err := svc.Request(1, order.ID, "refund please")
	if err != nil {
		t.Fatalf("request refund failed: %v", err)
	}
	if _, err := svc.Reject(refund.ID, "out of policy"); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if _, err := svc.Approve(context.Background(), refund.ID, "changed my mind"); !errors.Is(err, ErrRefundStatusConflict) {
		t.Fatalf("expected status conflict after rejection, got: %v", err)
	}
	if _, err := svc.Reject(refund.ID, "again"); !errors.Is(err, ErrRefundStatusConflict) {
		t.Fatalf("expected status conflict on second rejection, got: %v", err)
	}

	// 驳回不改变订单状态与授权
	var current models.Order
	if err := db.First(&current, order.ID).Error; err != nil {
		t.Fatalf("load order failed: %v", err)
	}
	if current.Status != constants.OrderStatusPaid {
		t.Fatalf("order should stay paid after rejection, got %s", current.Status)
	}
}

func TestGetRefundForUserChecksOwnership(t *testing.T) {
	svc, db := setupRefundServiceTest(t)
	paidAt := time.Now().Add(-time.Hour)
	order := seedRefundOrder(t, db, 1, constants.OrderStatusPaid, &paidAt)

	refund, err := svc.Request(1, order.ID, "mine")
	if err != nil {
		t.Fatalf("request refund failed: %v", err)
	}
	if _, err := svc.GetForUser(1, refund.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := svc.GetForUser(2, refund.ID); !errors.Is(err, ErrRefundNotFound) {
		t.Fatalf("expected not found for other user, got: %v", err)
	}
}
