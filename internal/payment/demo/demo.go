// Package demo 提供开发与测试环境使用的内置支付提供方，收款与退款即时成功。
package demo

import (
	"context"
	"errors"
	"strings"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/payment"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount 金额非法
	ErrInvalidAmount = errors.New("demo: invalid amount")
	// ErrMissingOrderNo 缺少订单号
	ErrMissingOrderNo = errors.New("demo: missing order no")
	// ErrMissingGatewayRef 缺少网关流水号
	ErrMissingGatewayRef = errors.New("demo: missing gateway ref")
)

// Provider 内置支付提供方
type Provider struct{}

// New 创建内置支付提供方
func New() *Provider {
	return &Provider{}
}

// Name 提供方名称
func (p *Provider) Name() string {
	return constants.PaymentProviderDemo
}

// Charge 发起收款，立即成功
func (p *Provider) Charge(_ context.Context, req payment.ChargeRequest) (*payment.ChargeResult, error) {
	if strings.TrimSpace(req.OrderNo) == "" {
		return nil, ErrMissingOrderNo
	}
	if req.Amount.Decimal.LessThan(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	return &payment.ChargeResult{
		GatewayRef: "demo_" + uuid.NewString(),
		Paid:       true,
	}, nil
}

// Refund 发起退款，立即成功
func (p *Provider) Refund(_ context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	if strings.TrimSpace(req.OrderNo) == "" {
		return nil, ErrMissingOrderNo
	}
	if strings.TrimSpace(req.GatewayRef) == "" {
		return nil, ErrMissingGatewayRef
	}
	if req.Amount.Decimal.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}
	return &payment.RefundResult{
		GatewayRef: "demo_refund_" + uuid.NewString(),
	}, nil
}
