package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/moban-market/internal/logger"
	"github.com/moban-market/internal/queue"
	"github.com/moban-market/internal/repository"
)

// NotificationService 站外通知服务。
// 事件通过异步队列投递，由 worker 调用本服务向配置的 webhook 地址推送。
type NotificationService struct {
	orderRepo  repository.OrderRepository
	webhookURL string
	client     *http.Client
}

// NewNotificationService 创建通知服务
func NewNotificationService(orderRepo repository.OrderRepository, webhookURL string, timeoutSeconds int) *NotificationService {
	if timeoutSeconds <= 0 {
		timeoutSeconds = 5
	}
	return &NotificationService{
		orderRepo:  orderRepo,
		webhookURL: strings.TrimSpace(webhookURL),
		client: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

// Enabled 是否配置了 webhook 地址
func (s *NotificationService) Enabled() bool {
	return s != nil && s.webhookURL != ""
}

// DispatchOrderPaid 推送订单支付成功事件
func (s *NotificationService) DispatchOrderPaid(ctx context.Context, payload queue.OrderPaidNotifyPayload) error {
	if !s.Enabled() {
		return nil
	}
	order, err := s.orderRepo.GetByID(payload.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		logger.Debugw("notify_order_paid_skip_order_not_found", "order_id", payload.OrderID)
		return nil
	}
	return s.post(ctx, map[string]interface{}{
		"event":        "order.paid",
		"order_no":     order.OrderNo,
		"user_id":      order.UserID,
		"total_amount": order.TotalAmount,
		"currency":     order.Currency,
		"paid_at":      order.PaidAt,
	})
}

// DispatchRefundResult 推送退款结论事件
func (s *NotificationService) DispatchRefundResult(ctx context.Context, payload queue.RefundResultNotifyPayload) error {
	if !s.Enabled() {
		return nil
	}
	return s.post(ctx, map[string]interface{}{
		"event":     "refund." + payload.Status,
		"refund_no": payload.RefundNo,
		"order_no":  payload.OrderNo,
		"status":    payload.Status,
	})
}

func (s *NotificationService) post(ctx context.Context, body map[string]interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
	}
	return nil
}
