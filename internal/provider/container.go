package provider

import (
	"github.com/moban-market/internal/cache"
	"github.com/moban-market/internal/config"
	"github.com/moban-market/internal/logger"
	"github.com/moban-market/internal/models"
	"github.com/moban-market/internal/payment/demo"
	"github.com/moban-market/internal/queue"
	"github.com/moban-market/internal/repository"
	"github.com/moban-market/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	AdminRepo              repository.AdminRepository
	UserRepo               repository.UserRepository
	ProductRepo            repository.ProductRepository
	OrderRepo              repository.OrderRepository
	CouponRepo             repository.CouponRepository
	CouponUsageRepo        repository.CouponUsageRepository
	LicenseRepo            repository.LicenseRepository
	DownloadCredentialRepo repository.DownloadCredentialRepository
	RefundRepo             repository.RefundRepository

	// Services
	AuthService         *service.AuthService
	ProductService      *service.ProductService
	PricingService      *service.PricingService
	CouponService       *service.CouponService
	OrderService        *service.OrderService
	LicenseService      *service.LicenseService
	DownloadService     *service.DownloadService
	RefundService       *service.RefundService
	NotificationService *service.NotificationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.AdminRepo = repository.NewAdminRepository(db)
	c.UserRepo = repository.NewUserRepository(db)
	c.ProductRepo = repository.NewProductRepository(db)
	c.OrderRepo = repository.NewOrderRepository(db)
	c.CouponRepo = repository.NewCouponRepository(db)
	c.CouponUsageRepo = repository.NewCouponUsageRepository(db)
	c.LicenseRepo = repository.NewLicenseRepository(db)
	c.DownloadCredentialRepo = repository.NewDownloadCredentialRepository(db)
	c.RefundRepo = repository.NewRefundRepository(db)
}

func (c *Container) initServices() {
	gateway := demo.New()

	c.AuthService = service.NewAuthService(c.Config, c.UserRepo, c.AdminRepo)
	c.ProductService = service.NewProductService(c.ProductRepo)
	c.PricingService = service.NewPricingService(
		c.ProductRepo,
		c.CouponRepo,
		c.CouponUsageRepo,
		c.Config.Pricing.FeePercentGood,
		c.Config.Pricing.FeePercentService,
	)
	c.CouponService = service.NewCouponService(c.CouponRepo)
	c.OrderService = service.NewOrderService(
		c.OrderRepo,
		c.ProductRepo,
		c.LicenseRepo,
		c.DownloadCredentialRepo,
		c.PricingService,
		gateway,
		c.QueueClient,
		c.Config.Site.Currency,
		c.Config.Order.PaymentExpireMinutes,
		c.Config.Download.TokenTTLMinutes,
	)
	c.LicenseService = service.NewLicenseService(c.LicenseRepo)
	c.DownloadService = service.NewDownloadService(c.DownloadCredentialRepo, c.LicenseRepo, c.ProductRepo, c.Config.Download.TokenTTLMinutes)
	c.RefundService = service.NewRefundService(c.RefundRepo, c.OrderRepo, c.LicenseRepo, gateway, c.QueueClient, c.Config.Refund.WindowDays)
	if c.Config.Notify.Enabled {
		c.NotificationService = service.NewNotificationService(c.OrderRepo, c.Config.Notify.WebhookURL, c.Config.Notify.TimeoutSeconds)
	}
}
