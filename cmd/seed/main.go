package main

import (
	"fmt"
	"time"

	"github.com/moban-market/internal/config"
	"github.com/moban-market/internal/constants"
	"github.com/moban-market/internal/logger"
	"github.com/moban-market/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 添加商品
	products := []models.Product{
		{
			Slug:             "landing-page-kit",
			Name:             "Landing Page Kit",
			Description:      "Responsive landing page templates with dark mode and form components.",
			Price:            models.NewMoneyFromDecimal(decimal.NewFromFloat(29.00)),
			Kind:             constants.ProductKindGood,
			DeliveryType:     constants.DeliveryTypeFile,
			FileURL:          "https://cdn.moban.market/files/landing-page-kit.zip",
			LicenseMaxAccess: 5,
			Status:           constants.ProductStatusOnSale,
			SortOrder:        300,
		},
		{
			Slug:             "admin-dashboard-pro",
			Name:             "Admin Dashboard Pro",
			Description:      "Full admin dashboard template with charts, tables and auth pages.",
			Price:            models.NewMoneyFromDecimal(decimal.NewFromFloat(59.00)),
			Kind:             constants.ProductKindGood,
			DeliveryType:     constants.DeliveryTypeFile,
			FileURL:          "https://cdn.moban.market/files/admin-dashboard-pro.zip",
			LicenseMaxAccess: 3,
			Status:           constants.ProductStatusOnSale,
			SortOrder:        280,
		},
		{
			Slug:             "email-template-pack",
			Name:             "Email Template Pack",
			Description:      "Transactional and marketing email templates tested across major clients.",
			Price:            models.NewMoneyFromDecimal(decimal.NewFromFloat(19.00)),
			Kind:             constants.ProductKindGood,
			DeliveryType:     constants.DeliveryTypeFile,
			FileURL:          "https://cdn.moban.market/files/email-template-pack.zip",
			LicenseMaxAccess: 0,
			Status:           constants.ProductStatusOnSale,
			SortOrder:        260,
		},
		{
			Slug:             "icon-library-access",
			Name:             "Icon Library Access",
			Description:      "One year access to the hosted icon library with weekly updates.",
			Price:            models.NewMoneyFromDecimal(decimal.NewFromFloat(39.00)),
			Kind:             constants.ProductKindService,
			DeliveryType:     constants.DeliveryTypeExternal,
			ExternalURL:      "https://icons.moban.market/redeem",
			LicenseMaxAccess: 0,
			Status:           constants.ProductStatusOnSale,
			SortOrder:        240,
		},
		{
			Slug:             "legacy-ui-kit",
			Name:             "Legacy UI Kit",
			Description:      "Older UI kit kept for existing customers, no longer sold.",
			Price:            models.NewMoneyFromDecimal(decimal.NewFromFloat(9.00)),
			Kind:             constants.ProductKindGood,
			DeliveryType:     constants.DeliveryTypeFile,
			FileURL:          "https://cdn.moban.market/files/legacy-ui-kit.zip",
			LicenseMaxAccess: 1,
			Status:           constants.ProductStatusOffSale,
			SortOrder:        100,
		},
	}

	for _, prod := range products {
		var existing models.Product
		if err := models.DB.Where("slug = ?", prod.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&prod).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", prod.Slug)
			}
		} else {
			existing.Name = prod.Name
			existing.Description = prod.Description
			existing.Price = prod.Price
			existing.Kind = prod.Kind
			existing.DeliveryType = prod.DeliveryType
			existing.FileURL = prod.FileURL
			existing.ExternalURL = prod.ExternalURL
			existing.LicenseMaxAccess = prod.LicenseMaxAccess
			existing.Status = prod.Status
			existing.SortOrder = prod.SortOrder
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update product %s: %v", prod.Slug, err)
			} else {
				stdLog.Printf("Updated product: %s", prod.Slug)
			}
		}
	}

	// 添加优惠券
	now := time.Now()
	welcomeEnd := now.AddDate(0, 3, 0)
	flashStart := now.Add(-24 * time.Hour)
	flashEnd := now.AddDate(0, 0, 7)

	coupons := []models.Coupon{
		{
			Code:         "WELCOME10",
			Type:         constants.CouponTypeFixed,
			Value:        models.NewMoneyFromDecimal(decimal.NewFromFloat(10.00)),
			MinAmount:    models.NewMoneyFromDecimal(decimal.NewFromFloat(30.00)),
			UsageLimit:   0,
			PerUserLimit: 1,
			Scope:        constants.CouponScopeAll,
			EndsAt:       &welcomeEnd,
			IsActive:     true,
		},
		{
			Code:         "SAVE20",
			Type:         constants.CouponTypePercentage,
			Value:        models.NewMoneyFromDecimal(decimal.NewFromFloat(20)),
			MaxDiscount:  models.NewMoneyFromDecimal(decimal.NewFromFloat(10.00)),
			UsageLimit:   100,
			PerUserLimit: 2,
			Scope:        constants.CouponScopeGoods,
			StartsAt:     &flashStart,
			EndsAt:       &flashEnd,
			IsActive:     true,
		},
		{
			Code:            "DASH5",
			Type:            constants.CouponTypeFixed,
			Value:           models.NewMoneyFromDecimal(decimal.NewFromFloat(5.00)),
			Scope:           constants.CouponScopeAll,
			ScopeProductIDs: "2",
			UsageLimit:      50,
			PerUserLimit:    1,
			IsActive:        true,
		},
	}

	for _, coupon := range coupons {
		var existing models.Coupon
		if err := models.DB.Where("code = ?", coupon.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&coupon).Error; err != nil {
				stdLog.Printf("Failed to create coupon %s: %v", coupon.Code, err)
			} else {
				stdLog.Printf("Created coupon: %s", coupon.Code)
			}
		} else {
			stdLog.Printf("Coupon already exists: %s", coupon.Code)
		}
	}

	// 添加演示用户
	demoUsers := []struct {
		Email       string
		Password    string
		DisplayName string
	}{
		{Email: "demo@moban.market", Password: "demo-password-123", DisplayName: "Demo Buyer"},
	}

	for _, du := range demoUsers {
		var existing models.User
		if err := models.DB.Where("email = ?", du.Email).First(&existing).Error; err != nil {
			hash, hashErr := bcrypt.GenerateFromPassword([]byte(du.Password), bcrypt.DefaultCost)
			if hashErr != nil {
				stdLog.Printf("Failed to hash password for %s: %v", du.Email, hashErr)
				continue
			}
			user := models.User{
				Email:        du.Email,
				PasswordHash: string(hash),
				DisplayName:  du.DisplayName,
				Status:       constants.UserStatusActive,
			}
			if err := models.DB.Create(&user).Error; err != nil {
				stdLog.Printf("Failed to create user %s: %v", du.Email, err)
			} else {
				stdLog.Printf("Created user: %s", du.Email)
			}
		} else {
			stdLog.Printf("User already exists: %s", du.Email)
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 5 Products (file + external delivery)")
	fmt.Println("- 3 Coupons (fixed, percentage, product-scoped)")
	fmt.Println("- 1 Demo user")
}
