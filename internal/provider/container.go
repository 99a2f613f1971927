package provider

import (
	"github.com/greenmess-next/internal/authz"
	"github.com/greenmess-next/internal/cache"
	"github.com/greenmess-next/internal/config"
	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/models"
	"github.com/greenmess-next/internal/queue"
	"github.com/greenmess-next/internal/repository"
	"github.com/greenmess-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo      repository.UserRepository
	SurplusRepo   repository.SurplusRepository
	BookingRepo   repository.BookingRepository
	RewardRepo    repository.RewardRepository
	DashboardRepo repository.DashboardRepository

	// Services
	AuthzService        *authz.Service
	AuthService         *service.AuthService
	CaptchaService      *service.CaptchaService
	UserService         *service.UserService
	SurplusService      *service.SurplusService
	BookingService      *service.BookingService
	RewardService       *service.RewardService
	NotificationService *service.NotificationService
	DashboardService    *service.DashboardService
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
	c.UserRepo = repository.NewUserRepository(db)
	c.SurplusRepo = repository.NewSurplusRepository(db)
	c.BookingRepo = repository.NewBookingRepository(db)
	c.RewardRepo = repository.NewRewardRepository(db)
	c.DashboardRepo = repository.NewDashboardRepository(db)
}

func (c *Container) initServices() {
	authzService, err := authz.NewService(models.DB)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AuthService = service.NewAuthService(c.Config, c.UserRepo)
	c.CaptchaService = service.NewCaptchaService(c.Config.Captcha)
	c.UserService = service.NewUserService(c.UserRepo, c.AuthService)
	c.SurplusService = service.NewSurplusService(c.SurplusRepo, c.QueueClient, c.Config.Surplus.ExpiryHorizonHours, c.Config.Rewards.CollectionCredits)
	c.BookingService = service.NewBookingService(c.BookingRepo, c.UserRepo, c.QueueClient, c.Config.Rewards.AttendanceCredits, c.Config.Bookings.NoShowGraceHours)
	c.RewardService = service.NewRewardService(c.RewardRepo, c.UserRepo)
	c.NotificationService = service.NewNotificationService(c.UserRepo, c.SurplusRepo)
	c.DashboardService = service.NewDashboardService(c.DashboardRepo)
}
