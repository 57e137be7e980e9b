package main

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/academic-tracker-api/internal/handler"
	"github.com/noah-isme/academic-tracker-api/internal/middleware"
	"github.com/noah-isme/academic-tracker-api/internal/models"
	"github.com/noah-isme/academic-tracker-api/internal/service"
	"github.com/noah-isme/academic-tracker-api/pkg/config"
	"github.com/noah-isme/academic-tracker-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/academic-tracker-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academic-tracker-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth       *handler.AuthHandler
	attendance *handler.AttendanceHandler
	marks      *handler.MarksHandler
	goals      *handler.GoalsHandler
	analytics  *handler.AnalyticsHandler
	dashboard  *handler.DashboardHandler
	metrics    *handler.MetricsHandler
	reports    *handler.ReportHandler
}

func newRouter(cfg *config.Config, h routeHandlers, tokens middleware.TokenValidator, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group("/" + strings.Trim(cfg.APIPrefix, "/"))

	limiter := middleware.NewTokenBucket(cfg.RateLimit.PerMinute, cfg.RateLimit.Burst, metrics)
	public := api.Group("/auth", limiter.Middleware())
	public.POST("/register", h.auth.Register)
	public.POST("/login", h.auth.Login)
	public.POST("/refresh", h.auth.Refresh)

	if h.reports != nil {
		api.GET("/export/:token", h.reports.DownloadReport)
	}

	secured := api.Group("", middleware.JWT(tokens))
	secured.POST("/auth/logout", h.auth.Logout)
	secured.GET("/auth/me", h.auth.Me)

	attendance := secured.Group("/attendance/subjects")
	attendance.GET("", h.attendance.List)
	attendance.POST("", h.attendance.Create)
	attendance.PUT("/:id", h.attendance.Update)
	attendance.DELETE("/:id", h.attendance.Delete)
	attendance.POST("/:id/mark", h.attendance.Mark)
	attendance.POST("/:id/undo", h.attendance.Undo)
	attendance.GET("/:id/projection", h.attendance.Projection)

	marks := secured.Group("/marks/subjects")
	marks.GET("", h.marks.List)
	marks.POST("", h.marks.Create)
	marks.DELETE("/:id", h.marks.Delete)
	marks.POST("/:id/exams", h.marks.AddExam)
	marks.DELETE("/:id/exams/:index", h.marks.RemoveExam)
	marks.GET("/:id/goal", h.marks.Goal)

	secured.GET("/goals", h.goals.Get)
	secured.PUT("/goals", h.goals.Update)

	analytics := secured.Group("/analytics")
	analytics.GET("/summary", h.analytics.Summary)
	analytics.GET("/overview", h.analytics.Overview)
	analytics.GET("/trends/attendance", h.analytics.AttendanceTrend)
	analytics.GET("/trends/marks", h.analytics.MarksTrend)

	secured.GET("/dashboard", h.dashboard.Get)

	if h.reports != nil {
		secured.POST("/reports", h.reports.GenerateReport)
		secured.GET("/reports", h.reports.ListReports)
		secured.GET("/reports/:id", h.reports.ReportStatus)
	}

	r.GET("/metrics/snapshot", middleware.JWT(tokens), middleware.RequireRoles(models.RoleAdmin), h.analytics.System)

	return r
}
