package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/logger"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/payment"
	"github.com/moban-market/internal/queue"
	"github.com/moban-market/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// errAlreadyConfirmed 事务内部信号：并发确认中本次为重复确认，需要无副作用回滚。
var errAlreadyConfirmed = errors.New("order already confirmed")

// OrderService 订单业务服务
type OrderService struct {
	orderRepo      repository.OrderRepository
	productRepo    repository.ProductRepository
	licenseRepo    repository.LicenseRepository
	credentialRepo repository.DownloadCredentialRepository
	pricing        *PricingService
	gateway        payment.Provider
	queueClient    *queue.Client

	currency                string
	paymentExpireMinutes    int
	downloadTokenTTLMinutes int
}

// NewOrderService 创建订单服务
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	licenseRepo repository.LicenseRepository,
	credentialRepo repository.DownloadCredentialRepository,
	pricing *PricingService,
	gateway payment.Provider,
	queueClient *queue.Client,
	currency string,
	paymentExpireMinutes int,
	downloadTokenTTLMinutes int,
) *OrderService {
	if currency == "" {
		currency = constants.SiteCurrencyDefault
	}
	if paymentExpireMinutes <= 0 {
		paymentExpireMinutes = 30
	}
	if downloadTokenTTLMinutes <= 0 {
		downloadTokenTTLMinutes = 60
	}
	return &OrderService{
		orderRepo:               orderRepo,
		productRepo:             productRepo,
		licenseRepo:             licenseRepo,
		credentialRepo:          credentialRepo,
		pricing:                 pricing,
		gateway:                 gateway,
		queueClient:             queueClient,
		currency:                currency,
		paymentExpireMinutes:    paymentExpireMinutes,
		downloadTokenTTLMinutes: downloadTokenTTLMinutes,
	}
}

// Quote 试算订单金额
func (s *OrderService) Quote(userID uint, items []QuoteItemInput, couponCode string) (*QuoteResult, error) {
	return s.pricing.Quote(userID, items, couponCode)
}

// Create 创建订单。
// 优惠券此时仅做校验与金额快照，使用次数在支付确认时才占用。
func (s *OrderService) Create(userID uint, items []QuoteItemInput, couponCode string) (*models.Order, error) {
	quote, err := s.pricing.Quote(userID, items, couponCode)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(time.Duration(s.paymentExpireMinutes) * time.Minute)
	order := &models.Order{
		OrderNo:        generateOrderNo(),
		UserID:         userID,
		Status:         constants.OrderStatusPending,
		Currency:       s.currency,
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.Discount,
		TotalAmount:    quote.Total,
		ExpiresAt:      &expiresAt,
	}
	if quote.Coupon != nil {
		couponID := quote.Coupon.ID
		order.CouponID = &couponID
		order.CouponCode = quote.Coupon.Code
	}

	orderItems := make([]models.OrderItem, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		orderItems = append(orderItems, models.OrderItem{
			ProductID:    line.Product.ID,
			ProductName:  line.Product.Name,
			DeliveryType: line.Product.DeliveryType,
			Kind:         line.Kind,
			UnitPrice:    line.UnitPrice,
			Quantity:     line.Quantity,
			TotalPrice:   line.TotalPrice,
			PlatformFee:  line.PlatformFee,
			Payout:       line.Payout,
		})
	}

	err = models.DB.Transaction(func(tx *gorm.DB) error {
		return s.orderRepo.WithTx(tx).Create(order, orderItems)
	})
	if err != nil {
		return nil, err
	}

	if s.queueClient.Enabled() {
		delay := time.Until(expiresAt)
		if err := s.queueClient.EnqueueOrderExpireScan(queue.OrderExpireScanPayload{OrderID: order.ID}, delay); err != nil {
			logger.Warnw("order_expire_scan_enqueue_failed", "order_id", order.ID, "error", err)
		}
	}
	return order, nil
}

// Pay 发起支付并在网关同步成功时确认订单
func (s *OrderService) Pay(ctx context.Context, userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusPaid {
		return order, nil
	}
	if order.Status != constants.OrderStatusPending {
		return nil, ErrOrderNotPayable
	}

	result, err := s.gateway.Charge(ctx, payment.ChargeRequest{
		OrderNo:  order.OrderNo,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Subject:  fmt.Sprintf("order %s", order.OrderNo),
	})
	if err != nil {
		logger.Warnw("order_charge_failed", "order_id", order.ID, "order_no", order.OrderNo, "error", err)
		if _, failErr := s.FailPayment(order.ID, err.Error()); failErr != nil {
			logger.Warnw("order_mark_failed_error", "order_id", order.ID, "error", failErr)
		}
		return nil, ErrPaymentFailed
	}
	if !result.Paid {
		return order, nil
	}
	return s.ConfirmPayment(ctx, order.ID, result.GatewayRef)
}

// ConfirmPayment 确认支付结果。
// 幂等：已支付订单直接返回且不产生任何副作用。
// 原子：状态流转、优惠券占用、授权签发、下载凭证签发在同一事务内完成。
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID uint, gatewayRef string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if order.Status == constants.OrderStatusPaid {
		return order, nil
	}
	if !isTransitionAllowed(order.Status, constants.OrderStatusPaid) {
		return nil, ErrOrderNotPayable
	}

	paidAt := time.Now()
	updates := map[string]interface{}{
		"paid_at":     paidAt,
		"gateway_ref": gatewayRef,
	}
	if s.gateway != nil {
		updates["payment_method"] = s.gateway.Name()
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		ok, err := s.orderRepo.WithTx(tx).TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusPaid, updates)
		if err != nil {
			return err
		}
		if !ok {
			current, err := s.orderRepo.WithTx(tx).GetByID(order.ID)
			if err != nil {
				return err
			}
			if current != nil && current.Status == constants.OrderStatusPaid {
				return errAlreadyConfirmed
			}
			return ErrOrderNotPayable
		}

		if order.CouponID != nil {
			if err := s.pricing.RecordUsage(tx, *order.CouponID, order.UserID, order.ID, order.DiscountAmount); err != nil {
				return err
			}
		}
		return s.issueEntitlements(tx, order, paidAt)
	})
	if errors.Is(err, errAlreadyConfirmed) {
		return s.orderRepo.GetByID(order.ID)
	}
	if err != nil {
		return nil, err
	}

	if s.queueClient.Enabled() {
		if err := s.queueClient.EnqueueOrderPaidNotify(queue.OrderPaidNotifyPayload{
			OrderID: order.ID,
			OrderNo: order.OrderNo,
		}); err != nil {
			logger.Warnw("order_paid_notify_enqueue_failed", "order_id", order.ID, "error", err)
		}
	}
	return s.orderRepo.GetByID(order.ID)
}

// issueEntitlements 在支付确认事务内签发授权与下载凭证。
// 每个购买数量签发一条授权，file 类型商品随授权签发一次性下载凭证，
// external 类型商品不签发下载凭证。
func (s *OrderService) issueEntitlements(tx *gorm.DB, order *models.Order, paidAt time.Time) error {
	productIDs := make([]uint, 0, len(order.Items))
	for _, item := range order.Items {
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := s.productRepo.WithTx(tx).ListByIDs(productIDs)
	if err != nil {
		return err
	}
	productByID := make(map[uint]models.Product, len(products))
	for _, product := range products {
		productByID[product.ID] = product
	}

	licenses := make([]models.License, 0)
	for _, item := range order.Items {
		product, ok := productByID[item.ProductID]
		if !ok {
			return ErrProductNotFound
		}
		for i := 0; i < item.Quantity; i++ {
			licenses = append(licenses, models.License{
				LicenseKey:  uuid.NewString(),
				OrderID:     order.ID,
				OrderItemID: item.ID,
				UserID:      order.UserID,
				ProductID:   item.ProductID,
				Status:      constants.LicenseStatusActive,
				MaxAccess:   product.LicenseMaxAccess,
				IssuedAt:    paidAt,
			})
		}
	}
	if err := s.licenseRepo.WithTx(tx).CreateBatch(licenses); err != nil {
		return err
	}

	tokenExpiresAt := paidAt.Add(time.Duration(s.downloadTokenTTLMinutes) * time.Minute)
	credentials := make([]models.DownloadCredential, 0)
	for _, license := range licenses {
		product := productByID[license.ProductID]
		if product.DeliveryType != constants.DeliveryTypeFile {
			continue
		}
		credentials = append(credentials, models.DownloadCredential{
			Token:     uuid.NewString(),
			LicenseID: license.ID,
			OrderID:   order.ID,
			UserID:    order.UserID,
			ProductID: license.ProductID,
			ExpiresAt: tokenExpiresAt,
		})
	}
	return s.credentialRepo.WithTx(tx).CreateBatch(credentials)
}

// FailPayment 标记支付失败
func (s *OrderService) FailPayment(orderID uint, reason string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if !isTransitionAllowed(order.Status, constants.OrderStatusFailed) {
		return nil, ErrOrderStatusConflict
	}
	ok, err := s.orderRepo.TransitionStatus(order.ID, constants.OrderStatusPending, constants.OrderStatusFailed, map[string]interface{}{
		"fail_reason": reason,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderStatusConflict
	}
	return s.orderRepo.GetByID(order.ID)
}

// ExpireOverdueOrders 批量关闭超时未支付订单
func (s *OrderService) ExpireOverdueOrders(now time.Time) (int64, error) {
	if now.IsZero() {
		now = time.Now()
	}
	expired, err := s.orderRepo.ExpireOverdue(now)
	if err != nil {
		return 0, err
	}
	if expired > 0 {
		logger.Infow("orders_expired", "count", expired)
	}
	return expired, nil
}

// GetForUser 获取用户订单详情
func (s *OrderService) GetForUser(userID, orderID uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByIDAndUser(orderID, userID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListForUser 获取用户订单列表
func (s *OrderService) ListForUser(userID uint, status, orderNo string, page, pageSize int) ([]models.Order, int64, error) {
	return s.orderRepo.ListByUser(repository.OrderListFilter{
		Page:     page,
		PageSize: pageSize,
		UserID:   userID,
		Status:   status,
		OrderNo:  orderNo,
	})
}

// ListAdmin 管理端订单列表
func (s *OrderService) ListAdmin(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.ListAdmin(filter)
}

// generateOrderNo 生成订单号：MB + 时间戳 + 6 位随机数字
func generateOrderNo() string {
	return "MB" + time.Now().Format("20060102150405") + randNumeric(6)
}

// generateRefundNo 生成退款单号：RF + 时间戳 + 6 位随机数字
func generateRefundNo() string {
	return "RF" + time.Now().Format("20060102150405") + randNumeric(6)
}

func randNumeric(length int) string {
	digits := make([]byte, length)
	max := big.NewInt(10)
	for i := range digits {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			digits[i] = '0'
			continue
		}
		digits[i] = byte('0' + n.Int64())
	}
	return string(digits)
}
