package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campusworks/college-cms-api/api/swagger"
	"github.com/campusworks/college-cms-api/internal/handler"
	"github.com/campusworks/college-cms-api/internal/middleware"
	"github.com/campusworks/college-cms-api/internal/models"
	"github.com/campusworks/college-cms-api/internal/repository"
	"github.com/campusworks/college-cms-api/internal/service"
	"github.com/campusworks/college-cms-api/pkg/config"
	"github.com/campusworks/college-cms-api/pkg/database"
	"github.com/campusworks/college-cms-api/pkg/logger"
	corsmiddleware "github.com/campusworks/college-cms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusworks/college-cms-api/pkg/middleware/requestid"
	"github.com/campusworks/college-cms-api/pkg/storage"

	rediscache "github.com/campusworks/college-cms-api/pkg/cache"
)

// @title College CMS API
// @version 0.1.0
// @description Backend for the college public website and its admin panel
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := rediscache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close()

	mediaStore, err := storage.NewLocalStorage(cfg.Media.Dir)
	if err != nil {
		logr.Fatal("failed to init media storage", zap.Error(err))
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	grantRepo := repository.NewGrantRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	heroRepo := repository.NewHeroImageRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	magazineRepo := repository.NewMagazineRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.ContentTTL, logr, cfg.Cache.Enabled)
	activitySvc := service.NewActivityService(auditRepo, logr, service.ActivityConfig{
		RecentLimit: cfg.Audit.RecentLimit,
		ExportLimit: cfg.Audit.ExportLimit,
	})
	attachmentSvc := service.NewAttachmentService(mediaStore, metricsSvc, logr, service.UploadPolicy{
		MaxFileSizeBytes: cfg.Uploads.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Uploads.AllowedMIMEs,
	})
	authSvc := service.NewAuthService(userRepo, activitySvc, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "college-cms-api",
	})
	userSvc := service.NewUserService(userRepo, activitySvc, nil, logr)
	permissionSvc := service.NewPermissionService(grantRepo, cacheSvc, metricsSvc, logr, cfg.Cache.PermissionTTL)
	roleSvc := service.NewRoleService(grantRepo, userRepo, permissionSvc, nil, logr, service.RolesConfig{
		DefaultLevel: models.RoleLevel(cfg.Roles.DefaultLevel),
	})
	heroSvc := service.NewHeroImageService(heroRepo, attachmentSvc, cacheSvc, activitySvc, nil, logr)
	noticeSvc := service.NewNoticeService(noticeRepo, attachmentSvc, cacheSvc, activitySvc, nil, logr)
	magazineSvc := service.NewMagazineService(magazineRepo, attachmentSvc, cacheSvc, activitySvc, nil, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, departmentRepo.GallerySlots(), attachmentSvc, cacheSvc, activitySvc, nil, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	roleHandler := handler.NewRoleHandler(roleSvc, permissionSvc)
	activityHandler := handler.NewActivityHandler(activitySvc)
	uploadHandler := handler.NewUploadHandler(attachmentSvc, permissionSvc)
	heroHandler := handler.NewHeroImageHandler(heroSvc)
	noticeHandler := handler.NewNoticeHandler(noticeSvc)
	magazineHandler := handler.NewMagazineHandler(magazineSvc)
	departmentHandler := handler.NewDepartmentHandler(departmentSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.WithResponseMeta())
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	r.Static(cfg.Media.PublicURL, cfg.Media.Dir)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	// Public read surface.
	public := api.Group("", middleware.OptionalJWT(authSvc))
	{
		public.GET("/hero-images", heroHandler.List)
		public.GET("/hero-images/:id", heroHandler.Get)
		public.GET("/notices", noticeHandler.List)
		public.GET("/notices/:id", noticeHandler.Get)
		public.GET("/magazines", magazineHandler.List)
		public.GET("/magazines/:id", magazineHandler.Get)
		public.GET("/departments", departmentHandler.List)
		public.GET("/departments/:id", departmentHandler.Get)
		public.GET("/departments/:id/gallery", departmentHandler.ListGallery)
	}

	admin := api.Group("/admin", middleware.JWT(authSvc))
	{
		users := admin.Group("/users", middleware.RequirePage(permissionSvc, "users"))
		{
			users.GET("", userHandler.List)
			users.GET("/:id", userHandler.Get)
			users.POST("", userHandler.Create)
			users.PUT("/:id", userHandler.Update)
			users.DELETE("/:id", userHandler.Delete)
		}

		// The gate rejects callers with no role-management authority; the
		// fine-grained visibility and escalation rules live in RoleService.
		roles := admin.Group("/roles", middleware.RequireRoleManager(permissionSvc))
		{
			roles.GET("", roleHandler.List)
			roles.GET("/:id", roleHandler.Get)
			roles.POST("", roleHandler.Upsert)
			roles.DELETE("/:id", roleHandler.Revoke)
		}
		admin.GET("/role-pages", roleHandler.AvailablePages)
		admin.GET("/my-permissions", roleHandler.MyPermissions)

		// The audit trail exposes every admin's actions, so reads are
		// restricted to role managers rather than passing as safe methods.
		activity := admin.Group("/activity", middleware.RequireRoleManager(permissionSvc))
		{
			activity.GET("", activityHandler.Recent)
			activity.GET("/actor/:id", activityHandler.ForActor)
			activity.GET("/export", activityHandler.Export)
		}

		admin.POST("/uploads", uploadHandler.Upload)

		hero := admin.Group("/hero-images", middleware.RequirePage(permissionSvc, "hero-images"))
		{
			hero.POST("", heroHandler.Create)
			hero.PUT("/:id", heroHandler.Update)
			hero.DELETE("/:id", heroHandler.Delete)
		}

		notices := admin.Group("/notices", middleware.RequirePage(permissionSvc, "notices"))
		{
			notices.POST("", noticeHandler.Create)
			notices.PUT("/:id", noticeHandler.Update)
			notices.DELETE("/:id", noticeHandler.Delete)
		}

		magazines := admin.Group("/magazines", middleware.RequirePage(permissionSvc, "magazines"))
		{
			magazines.POST("", magazineHandler.Create)
			magazines.PUT("/:id", magazineHandler.Update)
			magazines.DELETE("/:id", magazineHandler.Delete)
		}

		departments := admin.Group("", middleware.RequirePage(permissionSvc, "departments"))
		{
			departments.POST("/departments", departmentHandler.Create)
			departments.PUT("/departments/:id", departmentHandler.Update)
			departments.DELETE("/departments/:id", departmentHandler.Delete)
			departments.POST("/departments/:id/gallery", departmentHandler.AddGalleryItem)
			departments.PUT("/gallery/:itemId/media", departmentHandler.ReplaceGalleryMedia)
			departments.DELETE("/gallery/:itemId", departmentHandler.RemoveGalleryItem)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
