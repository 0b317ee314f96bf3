package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/queue"
	"github.com/moban-market/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupNotificationTest(t *testing.T, webhookURL string) (*NotificationService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:notification_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewNotificationService(repository.NewOrderRepository(db), webhookURL, 1), db
}

func TestDispatchOrderPaidPostsWebhook(t *testing.T) {
	received := make(chan map[string]interface{}, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode webhook body failed: %v", err)
		}
		received <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc, db := setupNotificationTest(t, server.URL)
	paidAt := time.Now()
	order := models.Order{
		OrderNo:     "MB20260831000001",
		UserID:      7,
		Status:      constants.OrderStatusPaid,
		Currency:    "USD",
		TotalAmount: models.NewMoneyFromDecimal(decimal.NewFromInt(42)),
		PaidAt:      &paidAt,
	}
	if err := db.Create(&order).Error; err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	if err := svc.DispatchOrderPaid(context.Background(), queue.OrderPaidNotifyPayload{OrderID: order.ID, OrderNo: order.OrderNo}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	select {
	case body := <-received:
		if body["event"] != "order.paid" {
			t.Fatalf("event want order.paid got %v", body["event"])
		}
		if body["order_no"] != order.OrderNo {
			t.Fatalf("order_no want %s got %v", order.OrderNo, body["order_no"])
		}
	case <-time.After(time.Second):
		t.Fatalf("webhook not called")
	}
}

func TestDispatchOrderPaidSkipsMissingOrder(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc, _ := setupNotificationTest(t, server.URL)
	if err := svc.DispatchOrderPaid(context.Background(), queue.OrderPaidNotifyPayload{OrderID: 999}); err != nil {
		t.Fatalf("dispatch should skip missing order, got: %v", err)
	}
	if called {
		t.Fatalf("webhook should not be called for missing order")
	}
}

func TestDispatchRefundResultFailsOnErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc, _ := setupNotificationTest(t, server.URL)
	err := svc.DispatchRefundResult(context.Background(), queue.RefundResultNotifyPayload{
		RefundNo: "RF20260831000001",
		OrderNo:  "MB20260831000001",
		Status:   constants.RefundStatusProcessed,
	})
	if err == nil {
		t.Fatalf("expected error for 5xx webhook response")
	}
}

func TestNotificationDisabledWithoutURL(t *testing.T) {
	svc := NewNotificationService(nil, "  ", 0)
	if svc.Enabled() {
		t.Fatalf("blank url should disable notifications")
	}
	if err := svc.DispatchRefundResult(context.Background(), queue.RefundResultNotifyPayload{}); err != nil {
		t.Fatalf("disabled dispatch should be a no-op, got: %v", err)
	}
}
