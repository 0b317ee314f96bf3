package service

import (
	"context"
	"strings"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/logger"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/payment"
	"github.com/moban-market/internal/queue"
	"github.com/moban-market/internal/repository"

	"gorm.io/gorm"
)

// RefundService 退款业务服务
type RefundService struct {
	refundRepo  repository.RefundRepository
	orderRepo   repository.OrderRepository
	licenseRepo repository.LicenseRepository
	gateway     payment.Provider
	queueClient *queue.Client

	windowDays int
}

// NewRefundService 创建退款服务
func NewRefundService(
	refundRepo repository.RefundRepository,
	orderRepo repository.OrderRepository,
	licenseRepo repository.LicenseRepository,
	gateway payment.Provider,
	queueClient *queue.Client,
	windowDays int,
) *RefundService {
	if windowDays <= 0 {
		windowDays = 14
	}
	return &RefundService{
		refundRepo:  refundRepo,
		orderRepo:   orderRepo,
		licenseRepo: licenseRepo,
		gateway:     gateway,
		queueClient: queueClient,
		windowDays:  windowDays,
	}
}

// Request 申请退款。
// 仅已支付订单可退，一单只允许一笔退款，且需在退款窗口期内申请。
func (s *RefundService) Request(userID, orderID uint, reason string) (*models.Refund, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status != constants.OrderStatusPaid {
		return nil, ErrRefundOrderNotPaid
	}
	if order.PaidAt == nil || time.Since(*order.PaidAt) > time.Duration(s.windowDays)*24*time.Hour {
		return nil, ErrRefundWindowClosed
	}

	existing, err := s.refundRepo.GetByOrderID(order.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrRefundAlreadyExists
	}

	refund := &models.Refund{
		RefundNo: generateRefundNo(),
		OrderID:  order.ID,
		UserID:   userID,
		Amount:   order.TotalAmount,
		Reason:   strings.TrimSpace(reason),
		Status:   constants.RefundStatusRequested,
	}
	if err := s.refundRepo.Create(refund); err != nil {
		return nil, err
	}
	return refund, nil
}

// Approve 批准退款。
// 先调用支付网关退款，网关成功后在同一事务内落定退款结论、
// 将订单置为 refunded 并吊销订单下全部授权。网关失败时退款单保持 requested。
func (s *RefundService) Approve(ctx context.Context, refundID uint, note string) (*models.Refund, error) {
	refund, err := s.refundRepo.GetByID(refundID)
	if err != nil {
		return nil, err
	}
	if refund == nil {
		return nil, ErrRefundNotFound
	}
	if refund.Status != constants.RefundStatusRequested {
		return nil, ErrRefundStatusConflict
	}
	order, err := s.orderRepo.GetByID(refund.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}

	gatewayResult, err := s.gateway.Refund(ctx, payment.RefundRequest{
		OrderNo:    order.OrderNo,
		GatewayRef: order.GatewayRef,
		Amount:     refund.Amount,
		Reason:     refund.Reason,
	})
	if err != nil {
		logger.Warnw("refund_gateway_failed",
			"refund_id", refund.ID,
			"refund_no", refund.RefundNo,
			"order_no", order.OrderNo,
			"error", err,
		)
		return nil, ErrRefundGatewayFailed
	}

	decidedAt := time.Now()
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		ok, err := s.refundRepo.WithTx(tx).Decide(refund.ID, constants.RefundStatusProcessed, strings.TrimSpace(note), gatewayResult.GatewayRef, decidedAt)
		if err != nil {
			return err
		}
		if !ok {
			return ErrRefundStatusConflict
		}
		ok, err = s.orderRepo.WithTx(tx).TransitionStatus(order.ID, constants.OrderStatusPaid, constants.OrderStatusRefunded, map[string]interface{}{
			"refunded_at": decidedAt,
		})
		if err != nil {
			return err
		}
		if !ok {
			return ErrOrderStatusConflict
		}
		_, err = s.licenseRepo.WithTx(tx).RevokeByOrder(order.ID, decidedAt)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.enqueueResultNotify(refund.ID, refund.RefundNo, order.OrderNo, constants.RefundStatusProcessed)
	return s.refundRepo.GetByID(refund.ID)
}

// Reject 驳回退款，requested 为唯一可驳回状态
func (s *RefundService) Reject(refundID uint, note string) (*models.Refund, error) {
	refund, err := s.refundRepo.GetByID(refundID)
	if err != nil {
		return nil, err
	}
	if refund == nil {
		return nil, ErrRefundNotFound
	}
	if refund.Status != constants.RefundStatusRequested {
		return nil, ErrRefundStatusConflict
	}
	ok, err := s.refundRepo.Decide(refund.ID, constants.RefundStatusRejected, strings.TrimSpace(note), "", time.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrRefundStatusConflict
	}

	order, err := s.orderRepo.GetByID(refund.OrderID)
	if err == nil && order != nil {
		s.enqueueResultNotify(refund.ID, refund.RefundNo, order.OrderNo, constants.RefundStatusRejected)
	}
	return s.refundRepo.GetByID(refund.ID)
}

// GetForUser 获取用户退款详情
func (s *RefundService) GetForUser(userID, refundID uint) (*models.Refund, error) {
	refund, err := s.refundRepo.GetByID(refundID)
	if err != nil {
		return nil, err
	}
	if refund == nil || refund.UserID != userID {
		return nil, ErrRefundNotFound
	}
	return refund, nil
}

// List 获取退款列表
func (s *RefundService) List(filter repository.RefundListFilter) ([]models.Refund, int64, error) {
	return s.refundRepo.List(filter)
}

func (s *RefundService) enqueueResultNotify(refundID uint, refundNo, orderNo, status string) {
	if !s.queueClient.Enabled() {
		return
	}
	if err := s.queueClient.EnqueueRefundResultNotify(queue.RefundResultNotifyPayload{
		RefundID: refundID,
		RefundNo: refundNo,
		OrderNo:  orderNo,
		Status:   status,
	}); err != nil {
		logger.Warnw("refund_result_notify_enqueue_failed", "refund_id", refundID, "error", err)
	}
}
