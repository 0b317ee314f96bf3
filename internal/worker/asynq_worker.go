package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/moban-market/internal/logger"
	"github.com/moban-market/internal/provider"
	"github.com/moban-market/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskOrderPaidNotify, c.handleOrderPaidNotify)
	mux.HandleFunc(queue.TaskRefundResultNotify, c.handleRefundResultNotify)
	mux.HandleFunc(queue.TaskOrderExpireScan, c.handleOrderExpireScan)
}

func (c *Consumer) handleOrderPaidNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_paid_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderPaidNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_paid_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_order_paid_notify_skip_invalid_payload", "order_id", payload.OrderID)
		return nil
	}
	if c.NotificationService == nil || !c.NotificationService.Enabled() {
		logger.Debugw("worker_order_paid_notify_skip_disabled", "order_id", payload.OrderID)
		return nil
	}
	if err := c.NotificationService.DispatchOrderPaid(ctx, payload); err != nil {
		logger.Warnw("worker_order_paid_notify_failed",
			"order_id", payload.OrderID,
			"order_no", payload.OrderNo,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleRefundResultNotify(ctx context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_refund_result_notify_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.RefundResultNotifyPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_refund_result_notify_unmarshal_failed", "error", err)
		return err
	}
	if payload.RefundID == 0 {
		logger.Debugw("worker_refund_result_notify_skip_invalid_payload", "refund_id", payload.RefundID)
		return nil
	}
	if c.NotificationService == nil || !c.NotificationService.Enabled() {
		logger.Debugw("worker_refund_result_notify_skip_disabled", "refund_id", payload.RefundID)
		return nil
	}
	if err := c.NotificationService.DispatchRefundResult(ctx, payload); err != nil {
		logger.Warnw("worker_refund_result_notify_failed",
			"refund_id", payload.RefundID,
			"refund_no", payload.RefundNo,
			"error", err,
		)
		return err
	}
	return nil
}

func (c *Consumer) handleOrderExpireScan(_ context.Context, task *asynq.Task) error {
	if c == nil || task == nil {
		logger.Debugw("worker_order_expire_scan_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	var payload queue.OrderExpireScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_order_expire_scan_unmarshal_failed", "error", err)
		return err
	}
	if c.OrderService == nil {
		logger.Warnw("worker_order_expire_scan_skip_order_service_nil", "order_id", payload.OrderID)
		return nil
	}
	expired, err := c.OrderService.ExpireOverdueOrders(time.Now())
	if err != nil {
		logger.Warnw("worker_order_expire_scan_failed", "order_id", payload.OrderID, "error", err)
		return err
	}
	if expired > 0 {
		logger.Infow("worker_order_expire_scan_done", "expired_count", expired)
	}
	return nil
}
