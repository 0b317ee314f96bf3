package service

import (
	"strings"
	"time"

	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/repository"

	"github.com/shopspring/decimal"
)

// CouponService 优惠券管理服务
type CouponService struct {
	couponRepo repository.CouponRepository
}

// NewCouponService 创建优惠券管理服务
func NewCouponService(couponRepo repository.CouponRepository) *CouponService {
	return &CouponService{couponRepo: couponRepo}
}

// CouponInput 创建/更新优惠券输入
type CouponInput struct {
	Code            string
	Type            string
	Value           decimal.Decimal
	MinAmount       decimal.Decimal
	MaxDiscount     decimal.Decimal
	UsageLimit      int
	PerUserLimit    int
	Scope           string
	ScopeProductIDs string
	StartsAt        *time.Time
	EndsAt          *time.Time
	IsActive        *bool
}

// Create 创建优惠券
func (s *CouponService) Create(input CouponInput) (*models.Coupon, error) {
	code := strings.TrimSpace(input.Code)
	if code == "" {
		return nil, ErrCouponNotFound
	}
	couponType, err := normalizeCouponType(input.Type)
	if err != nil {
		return nil, err
	}
	if err := validateCouponValue(couponType, input.Value); err != nil {
		return nil, err
	}
	scope, err := normalizeCouponScope(input.Scope)
	if err != nil {
		return nil, err
	}

	existing, err := s.couponRepo.GetByCode(code)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCouponCodeExists
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}
	coupon := &models.Coupon{
		Code:            code,
		Type:            couponType,
		Value:           models.NewMoneyFromDecimal(input.Value),
		MinAmount:       models.NewMoneyFromDecimal(input.MinAmount),
		MaxDiscount:     models.NewMoneyFromDecimal(input.MaxDiscount),
		UsageLimit:      input.UsageLimit,
		PerUserLimit:    input.PerUserLimit,
		Scope:           scope,
		ScopeProductIDs: strings.TrimSpace(input.ScopeProductIDs),
		StartsAt:        input.StartsAt,
		EndsAt:          input.EndsAt,
		IsActive:        isActive,
	}
	if err := s.couponRepo.Create(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// Update 更新优惠券。
// used_count 由支付确认路径维护，此处不可修改。
func (s *CouponService) Update(id uint, input CouponInput) (*models.Coupon, error) {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if coupon == nil {
		return nil, ErrCouponNotFound
	}
	couponType, err := normalizeCouponType(input.Type)
	if err != nil {
		return nil, err
	}
	if err := validateCouponValue(couponType, input.Value); err != nil {
		return nil, err
	}
	scope, err := normalizeCouponScope(input.Scope)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(input.Code)
	if code != "" && code != coupon.Code {
		existing, err := s.couponRepo.GetByCode(code)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != coupon.ID {
			return nil, ErrCouponCodeExists
		}
		coupon.Code = code
	}

	coupon.Type = couponType
	coupon.Value = models.NewMoneyFromDecimal(input.Value)
	coupon.MinAmount = models.NewMoneyFromDecimal(input.MinAmount)
	coupon.MaxDiscount = models.NewMoneyFromDecimal(input.MaxDiscount)
	coupon.UsageLimit = input.UsageLimit
	coupon.PerUserLimit = input.PerUserLimit
	coupon.Scope = scope
	coupon.ScopeProductIDs = strings.TrimSpace(input.ScopeProductIDs)
	coupon.StartsAt = input.StartsAt
	coupon.EndsAt = input.EndsAt
	if input.IsActive != nil {
		coupon.IsActive = *input.IsActive
	}
	if err := s.couponRepo.Update(coupon); err != nil {
		return nil, err
	}
	return coupon, nil
}

// List 获取优惠券列表
func (s *CouponService) List(filter repository.CouponListFilter) ([]models.Coupon, int64, error) {
	return s.couponRepo.List(filter)
}

// Delete 删除优惠券
func (s *CouponService) Delete(id uint) error {
	coupon, err := s.couponRepo.GetByID(id)
	if err != nil {
		return err
	}
	if coupon == nil {
		return ErrCouponNotFound
	}
	return s.couponRepo.Delete(id)
}

func normalizeCouponType(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case constants.CouponTypeFixed:
		return constants.CouponTypeFixed, nil
	case constants.CouponTypePercentage:
		return constants.CouponTypePercentage, nil
	default:
		return "", ErrCouponTypeInvalid
	}
}

// normalizeCouponScope 归一化适用范围，空值视为 all。
func normalizeCouponScope(raw string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", constants.CouponScopeAll:
		return constants.CouponScopeAll, nil
	case constants.CouponScopeGoods:
		return constants.CouponScopeGoods, nil
	case constants.CouponScopeServices:
		return constants.CouponScopeServices, nil
	default:
		return "", ErrCouponScopeInvalid
	}
}

func validateCouponValue(couponType string, value decimal.Decimal) error {
	if value.LessThanOrEqual(decimal.Zero) {
		return ErrCouponValueInvalid
	}
	if couponType == constants.CouponTypePercentage && value.GreaterThan(decimal.NewFromInt(100)) {
		return ErrCouponValueInvalid
	}
	return nil
}
