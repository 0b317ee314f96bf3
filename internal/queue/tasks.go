package queue

import (
	"encoding/json"

	"github.com/moban-market/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderPaidNotify 订单支付成功通知任务
	TaskOrderPaidNotify = constants.TaskOrderPaidNotify
	// TaskRefundResultNotify 退款结论通知任务
	TaskRefundResultNotify = constants.TaskRefundResultNotify
	// TaskOrderExpireScan 订单超时失效任务
	TaskOrderExpireScan = constants.TaskOrderExpireScan
)

// OrderPaidNotifyPayload 订单支付成功通知任务载荷
type OrderPaidNotifyPayload struct {
	OrderID uint   `json:"order_id"`
	OrderNo string `json:"order_no"`
}

// RefundResultNotifyPayload 退款结论通知任务载荷
type RefundResultNotifyPayload struct {
	RefundID uint   `json:"refund_id"`
	RefundNo string `json:"refund_no"`
	OrderNo  string `json:"order_no"`
	Status   string `json:"status"`
}

// OrderExpireScanPayload 订单超时失效任务载荷
type OrderExpireScanPayload struct {
	OrderID uint `json:"order_id"`
}

// NewOrderPaidNotifyTask 创建订单支付成功通知任务
func NewOrderPaidNotifyTask(payload OrderPaidNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderPaidNotify, body), nil
}

// NewRefundResultNotifyTask 创建退款结论通知任务
func NewRefundResultNotifyTask(payload RefundResultNotifyPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRefundResultNotify, body), nil
}

// NewOrderExpireScanTask 创建订单超时失效任务
func NewOrderExpireScanTask(payload OrderExpireScanPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderExpireScan, body), nil
}
