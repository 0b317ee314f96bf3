package payment

import (
	"context"

	"github.com/moban-market/internal/models"
)

// ChargeRequest 收款请求
type ChargeRequest struct {
	OrderNo  string       `json:"order_no"`
	Amount   models.Money `json:"amount"`
	Currency string       `json:"currency"`
	Subject  string       `json:"subject"`
}

// ChargeResult 收款结果
type ChargeResult struct {
	GatewayRef string `json:"gateway_ref"`
	Paid       bool   `json:"paid"`
}

// RefundRequest 退款请求
type RefundRequest struct {
	OrderNo    string       `json:"order_no"`
	GatewayRef string       `json:"gateway_ref"`
	Amount     models.Money `json:"amount"`
	Reason     string       `json:"reason"`
}

// RefundResult 退款结果
type RefundResult struct {
	GatewayRef string `json:"gateway_ref"`
}

// Provider 支付提供方接口
type Provider interface {
	Name() string
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}
