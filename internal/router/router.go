package router

import (
	"fmt"
	"strings"

	"github.com/moban-market/internal/cache"
	"github.com/moban-market/internal/config"
	adminhandlers "github.com/moban-market/internal/http/handlers/admin"
	publichandlers "github.com/moban-market/internal/http/handlers/public"
	"github.com/moban-market/internal/logger"
	"github.com/moban-market/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "mb"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.login_too_many",
	}
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.login_too_many",
	}
	redeemRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:download_redeem", redisPrefix),
		WindowSeconds: cfg.Security.RedeemRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RedeemRateLimit.MaxAttempts,
		MessageKey:    "error.redeem_too_many",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		apiV1.GET("/products", publicHandler.GetProducts)
		apiV1.GET("/products/:slug", publicHandler.GetProductBySlug)
		apiV1.POST("/licenses/verify", publicHandler.VerifyLicense)
		apiV1.POST("/downloads/redeem", RateLimitMiddleware(redisClient, redeemRule, KeyByIP), publicHandler.RedeemDownload)

		// 用户认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", publicHandler.Register)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.Login)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo))
		{
			user.POST("/coupons/validate", publicHandler.ValidateCoupon)
			user.POST("/orders/quote", publicHandler.QuoteOrder)
			user.POST("/orders", publicHandler.CreateOrder)
			user.GET("/orders", publicHandler.ListOrders)
			user.GET("/orders/:id", publicHandler.GetOrder)
			user.POST("/orders/:id/pay", publicHandler.PayOrder)
			user.POST("/orders/:id/confirm", publicHandler.ConfirmOrder)
			user.GET("/licenses", publicHandler.ListLicenses)
			user.POST("/licenses/consume", publicHandler.ConsumeLicenseAccess)
			user.POST("/downloads/reissue", publicHandler.ReissueDownload)
			user.POST("/refunds", publicHandler.RequestRefund)
			user.GET("/refunds/:id", publicHandler.GetRefund)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.Login)

			// 需要鉴权的接口
			authorized := admin.Use(AdminJWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				// 商品管理
				authorized.GET("/products", adminHandler.GetAdminProducts)
				authorized.GET("/products/:id", adminHandler.GetAdminProduct)
				authorized.POST("/products", adminHandler.CreateProduct)
				authorized.PUT("/products/:id", adminHandler.UpdateProduct)
				authorized.DELETE("/products/:id", adminHandler.DeleteProduct)

				// 优惠券管理
				authorized.POST("/coupons", adminHandler.CreateCoupon)
				authorized.GET("/coupons", adminHandler.GetAdminCoupons)
				authorized.PUT("/coupons/:id", adminHandler.UpdateCoupon)
				authorized.DELETE("/coupons/:id", adminHandler.DeleteCoupon)

				// 订单管理
				authorized.GET("/orders", adminHandler.GetAdminOrders)

				// 退款管理
				authorized.GET("/refunds", adminHandler.GetAdminRefunds)
				authorized.POST("/refunds/:id/approve", adminHandler.ApproveRefund)
				authorized.POST("/refunds/:id/reject", adminHandler.RejectRefund)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
