// Package main 是应用程序入口
package main

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/dumeirei/hotel-pms-backend/internal/common/cache"
	"github.com/dumeirei/hotel-pms-backend/internal/common/config"
	"github.com/dumeirei/hotel-pms-backend/internal/common/crypto"
	"github.com/dumeirei/hotel-pms-backend/internal/common/jwt"
	"github.com/dumeirei/hotel-pms-backend/internal/common/metrics"
	"github.com/dumeirei/hotel-pms-backend/internal/common/response"
	"github.com/dumeirei/hotel-pms-backend/internal/common/tracing"
	authHandler "github.com/dumeirei/hotel-pms-backend/internal/handler/auth"
	billingHandler "github.com/dumeirei/hotel-pms-backend/internal/handler/billing"
	registryHandler "github.com/dumeirei/hotel-pms-backend/internal/handler/registry"
	reportHandler "github.com/dumeirei/hotel-pms-backend/internal/handler/report"
	reservationHandler "github.com/dumeirei/hotel-pms-backend/internal/handler/reservation"
	"github.com/dumeirei/hotel-pms-backend/internal/middleware"
	"github.com/dumeirei/hotel-pms-backend/internal/repository"
	authService "github.com/dumeirei/hotel-pms-backend/internal/service/auth"
	billingService "github.com/dumeirei/hotel-pms-backend/internal/service/billing"
	"github.com/dumeirei/hotel-pms-backend/internal/service/events"
	registryService "github.com/dumeirei/hotel-pms-backend/internal/service/registry"
	reportService "github.com/dumeirei/hotel-pms-backend/internal/service/report"
	reservationService "github.com/dumeirei/hotel-pms-backend/internal/service/reservation"
)

// services 应用服务集合
type services struct {
	jwtManager      *jwt.Manager
	reservationRepo *repository.ReservationRepository

	auth         *authService.AuthService
	rooms        *registryService.RoomService
	parties      *registryService.PartyService
	reservations *reservationService.ReservationService
	lines        *reservationService.LineService
	history      *reservationService.HistoryService
	charges      *billingService.ChargeService
	invoices     *billingService.InvoiceService
	reports      *reportService.ReportService
}

// buildServices 初始化仓储与服务
func buildServices(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	m *metrics.Metrics,
	tracer *tracing.Tracer,
	publisher events.Publisher,
) *services {
	jwtManager := jwt.NewManager(&jwt.Config{
		Secret:           cfg.JWT.Secret,
		AccessExpireTime: cfg.JWT.AccessTokenDuration(),
		Issuer:           cfg.JWT.Issuer,
	})

	// 初始化仓储
	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	clientRepo := repository.NewClientRepository(db)
	companyRepo := repository.NewCompanyRepository(db)
	reservationRepo := repository.NewReservationRepository(db)
	lineRepo := repository.NewLineRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	detailRepo := repository.NewInvoiceDetailRepository(db)

	// 初始化服务
	historySvc := reservationService.NewHistoryService(db, historyRepo, reservationRepo)
	lineSvc := reservationService.NewLineService(db, reservationRepo, lineRepo, detailRepo, historySvc)
	reportSvc := reportService.NewReportService(
		reservationRepo, roomRepo, invoiceRepo,
		cache.New(redisClient, cache.KeyPrefixReport),
		cfg.Business.ReportCacheDuration(),
		m, tracer,
	)
	// 预订与发票写入后经事件发布清除报表缓存
	publisher = reportService.NewInvalidatingPublisher(publisher, reportSvc)

	return &services{
		jwtManager:      jwtManager,
		reservationRepo: reservationRepo,

		auth:    authService.NewAuthService(userRepo, jwtManager, crypto.NewHasher(cfg.Crypto.BcryptCost)),
		rooms:   registryService.NewRoomService(roomRepo),
		parties: registryService.NewPartyService(clientRepo, companyRepo),
		reservations: reservationService.NewReservationService(
			db, reservationRepo, roomRepo, lineRepo, detailRepo, clientRepo, companyRepo,
			lineSvc, historySvc, publisher, m,
		),
		lines:    lineSvc,
		history:  historySvc,
		charges:  billingService.NewChargeService(db, detailRepo, reservationRepo, lineRepo, historySvc, m),
		invoices: billingService.NewInvoiceService(db, invoiceRepo, detailRepo, reservationRepo, historySvc, publisher, m),
		reports:  reportSvc,
	}
}

// setupRouter 设置路由
func setupRouter(
	r *gin.Engine,
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	m *metrics.Metrics,
	svc *services,
) {
	// 初始化处理器
	authH := authHandler.NewHandler(svc.auth)
	registryH := registryHandler.NewHandler(svc.rooms, svc.parties, svc.reservations)
	reservationH := reservationHandler.NewHandler(svc.reservations, svc.lines, svc.history)
	billingH := billingHandler.NewHandler(svc.charges, svc.invoices)
	reportH := reportHandler.NewHandler(svc.reports)

	// 全局中间件
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RealIP())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.RequestSizeLimiter(1 << 20))
	r.Use(middleware.CORS(&cfg.CORS))
	r.Use(middleware.AccessLog(logger))
	if cfg.Tracing.Enabled {
		r.Use(middleware.Tracing(cfg.Tracing.ServiceName, "/health", "/ping", "/ready", cfg.Metrics.Path))
	}
	if cfg.Metrics.Enabled {
		r.Use(m.Middleware(cfg.Metrics.Path))
		r.GET(cfg.Metrics.Path, m.Handler())
	}

	// 健康检查（不需要认证）
	r.GET("/health", healthHandler)
	r.GET("/ping", pingHandler)
	r.GET("/ready", readyHandler(db, redisClient))

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 公开接口
		var loginLimiter []gin.HandlerFunc
		if cfg.RateLimit.Enabled {
			loginLimiter = append(loginLimiter, middleware.LoginRateLimit(
				redisClient,
				cfg.RateLimit.LoginAttempts,
				time.Duration(cfg.RateLimit.LoginWindow)*time.Second,
			))
		}
		authH.RegisterRoutes(v1, loginLimiter...)

		// 前台与管理员
		staff := v1.Group("")
		staff.Use(middleware.Auth(svc.jwtManager), middleware.RequireStaff())
		{
			authH.RegisterProtectedRoutes(staff)
			registryH.RegisterRoutes(staff)
			reservationH.RegisterRoutes(staff)
			billingH.RegisterRoutes(staff)
			reportH.RegisterRoutes(staff)
		}

		// 仅管理员
		admin := v1.Group("")
		admin.Use(middleware.Auth(svc.jwtManager), middleware.RequireAdmin())
		{
			registryH.RegisterAdminRoutes(admin)
			authH.RegisterAdminRoutes(admin)
		}
	}

	// 404 处理
	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})
}
