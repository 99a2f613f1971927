package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/greenmess-next/internal/authz"
	"github.com/greenmess-next/internal/cache"
	"github.com/greenmess-next/internal/config"
	adminhandlers "github.com/greenmess-next/internal/http/handlers/admin"
	publichandlers "github.com/greenmess-next/internal/http/handlers/public"
	"github.com/greenmess-next/internal/http/response"
	"github.com/greenmess-next/internal/logger"
	"github.com/greenmess-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/管理端分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "gm"
	}
	redisClient := cache.Client()
	loginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.login_rate_limited",
	}
	registerRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:register", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.register_rate_limited",
	}
	surplusLogRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:surplus_log", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.surplus_log_rate_limited",
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
		apiV1.GET("/captcha/image", publicHandler.GetImageCaptcha)

		// 认证接口
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", RateLimitMiddleware(redisClient, registerRule, KeyByIP), publicHandler.UserRegister)
			auth.POST("/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("email")), publicHandler.UserLogin)
		}

		// 登录态接口（所有角色可用）
		me := apiV1.Group("")
		me.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo))
		{
			me.GET("/me", publicHandler.GetMe)
			me.PUT("/me/profile", publicHandler.UpdateProfile)
			me.PUT("/me/password", publicHandler.ChangePassword)
		}

		// 角色受控接口
		authorized := apiV1.Group("")
		authorized.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.UserRepo), RBACMiddleware(c.AuthzService))
		{
			// 余量食物
			authorized.GET("/surplus", publicHandler.ListAvailableSurplus)
			authorized.POST("/surplus", RateLimitMiddleware(redisClient, surplusLogRule, KeyByIP), publicHandler.LogSurplus)
			authorized.GET("/surplus/my-claims", publicHandler.ListMyClaims)
			authorized.GET("/surplus/:id", publicHandler.GetSurplus)
			authorized.POST("/surplus/:id/claim", publicHandler.ClaimSurplus)
			authorized.POST("/surplus/:id/collect", publicHandler.CollectSurplus)

			// 餐食预约
			authorized.POST("/bookings", publicHandler.CreateBooking)
			authorized.GET("/bookings", publicHandler.ListMyBookings)
			authorized.GET("/bookings/:id", publicHandler.GetBooking)
			authorized.POST("/bookings/:id/attend", publicHandler.AttendBooking)

			// 绿色积分
			authorized.GET("/rewards/balance", publicHandler.GetMyRewardBalance)
			authorized.GET("/rewards/transactions", publicHandler.ListMyRewardTransactions)

			// 管理端
			admin := authorized.Group("/admin")
			{
				// 仪表盘
				admin.GET("/dashboard/overview", adminHandler.GetDashboardOverview)
				admin.GET("/dashboard/trends", adminHandler.GetDashboardTrends)
				admin.GET("/dashboard/rankings", adminHandler.GetDashboardRankings)

				// 余量记录管理
				admin.GET("/surplus", adminHandler.ListSurplusAdmin)
				admin.POST("/surplus/expire-sweep", adminHandler.RunExpireSweep)

				// 预约管理
				admin.GET("/bookings", adminHandler.ListBookingsAdmin)
				admin.POST("/bookings/no-show-sweep", adminHandler.RunNoShowSweep)

				// 用户管理
				admin.GET("/users", adminHandler.ListUsers)
				admin.POST("/users", adminHandler.CreateUser)
				admin.PUT("/users/batch-status", adminHandler.BatchUpdateUserStatus)
				admin.GET("/users/:id", adminHandler.GetUser)
				admin.POST("/users/:id/credits/adjust", adminHandler.AdjustCredits)

				// 积分流水
				admin.GET("/rewards/transactions", adminHandler.ListRewardTransactionsAdmin)

				// 权限管理
				admin.GET("/authz/me", adminHandler.GetAuthzMe)
				admin.GET("/authz/roles", adminHandler.ListAuthzRoles)
				admin.POST("/authz/roles", adminHandler.CreateAuthzRole)
				admin.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
				admin.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
				admin.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
				admin.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
				admin.GET("/authz/users/:id/roles", adminHandler.GetAuthzUserRoles)
				admin.PUT("/authz/users/:id/roles", adminHandler.SetAuthzUserRoles)
				admin.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
					response.Success(ctx, buildPermissionCatalog(r))
				})
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type permissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildPermissionCatalog(engine *gin.Engine) []permissionCatalogItem {
	if engine == nil {
		return []permissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]permissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/") {
			continue
		}
		if item.Path == "/api/v1/auth/login" || item.Path == "/api/v1/auth/register" || item.Path == "/api/v1/captcha/image" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, permissionCatalogItem{
			Module:     derivePermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func derivePermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
