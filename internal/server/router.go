package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/kramikkk/vitalink-ai/internal/handlers"
	"github.com/kramikkk/vitalink-ai/internal/middleware"
)

const serviceName = "vitalink"

type RouterConfig struct {
	AuthHandler         *handlers.AuthHandler
	AuthMiddleware      *middleware.AuthMiddleware
	UserHandler         *handlers.UserHandler
	DeviceHandler       *handlers.DeviceHandler
	MetricHandler       *handlers.MetricHandler
	AlertHandler        *handlers.AlertHandler
	ModelHandler        *handlers.ModelHandler
	SensorStreamHandler *handlers.SensorStreamHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Span per request; a no-op until InitTracing has installed a provider.
	router.Use(otelgin.Middleware(serviceName))
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/auth/register", cfg.AuthHandler.Register)
	router.POST("/auth/login", cfg.AuthHandler.Login)
	// Wristband endpoints: the device has no user token, it identifies
	// itself by device_id and pairing code.
	router.POST("/devices/pair/register", cfg.DeviceHandler.RegisterForPairing)
	router.GET("/devices/:device_id/status", cfg.DeviceHandler.Status)
	router.POST("/devices/readings", cfg.SensorStreamHandler.Ingest)
	router.GET("/ws/sensors", cfg.SensorStreamHandler.Stream)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)
	// User
	protected.GET("/user", cfg.UserHandler.Me)
	// Pairing
	protected.POST("/devices/pair", cfg.DeviceHandler.PairWithCode)
	protected.GET("/devices/my-device", cfg.DeviceHandler.MyDevice)
	protected.POST("/devices/unpair", cfg.DeviceHandler.Unpair)
	// Metrics
	protected.GET("/metrics/latest", cfg.MetricHandler.Latest)
	protected.GET("/metrics/history", cfg.MetricHandler.History)
	// Alerts
	protected.GET("/alerts", cfg.AlertHandler.List)
	protected.POST("/alerts/:alert_id/read", cfg.AlertHandler.MarkRead)
	protected.POST("/alerts/read-all", cfg.AlertHandler.MarkAllRead)

	// ===============
	// || Admin     ||
	// ===============
	admin := protected.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAdmin())
	admin.GET("/students", cfg.UserHandler.ListStudents)
	admin.GET("/devices", cfg.DeviceHandler.List)
	admin.POST("/devices/:device_id/unpair", cfg.DeviceHandler.AdminUnpair)
	admin.DELETE("/devices/:device_id", cfg.DeviceHandler.Delete)
	admin.GET("/students/:student_id/metrics/latest", cfg.MetricHandler.LatestForStudent)
	admin.GET("/students/:student_id/metrics/history", cfg.MetricHandler.HistoryForStudent)
	admin.GET("/students/:student_id/alerts", cfg.AlertHandler.ListForStudent)
	admin.POST("/model/train", cfg.ModelHandler.Train)
	admin.GET("/model/status", cfg.ModelHandler.Status)

	return router
}
