package handlers

import (
	"traffic_control/internal/logger"
	"traffic_control/internal/metrics"
	"traffic_control/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services, metrics, and logging.
type Handler struct {
	services *service.Service
	metrics  *metrics.Collector
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, m *metrics.Collector, log *logger.Logger) *Handler {
	return &Handler{services: services, metrics: m, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Live junction state push, same port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerSchedulerRoutes(api)
		h.registerJunctionRoutes(api)
		h.registerTrafficLightRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerSchedulerRoutes(api *gin.RouterGroup) {
	sched := api.Group("/scheduler")
	{
		sched.POST("/start", h.startScheduler)
		sched.POST("/stop", h.stopScheduler)
		sched.POST("/emergency-stop", h.emergencyStop)
		sched.GET("/status", h.schedulerStatus)
	}
}

func (h *Handler) registerJunctionRoutes(api *gin.RouterGroup) {
	junctions := api.Group("/junctions")
	{
		junctions.GET("", h.listJunctions)
		junctions.POST("", h.createJunction)
		junctions.GET("/:id", h.getJunction)
		junctions.POST("/:id/sync-inventory", h.syncInventory)
		junctions.POST("/:id/lights/:direction/force-green", h.forceGreen)
		junctions.POST("/:id/lights/:direction/resume-auto", h.resumeAuto)
		junctions.PUT("/:id/lights/:direction/durations", h.saveDurations)
	}
}

func (h *Handler) registerTrafficLightRoutes(api *gin.RouterGroup) {
	lights := api.Group("/traffic-lights")
	{
		lights.GET("/:id/eta", h.compareEta)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
		logs.GET("/recent", h.getRecentLogs)
	}
}
