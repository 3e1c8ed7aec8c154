package httpapi

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/freedom_case_2/fire-router/internal/config"
	"github.com/freedom_case_2/fire-router/internal/http/handlers"
	"github.com/freedom_case_2/fire-router/internal/http/middleware"

	_ "github.com/freedom_case_2/fire-router/docs"
)

// Router wires the handlers. A nil gatherer serves the default registry on
// /metrics.
func Router(cfg config.Config, h *handlers.Handler, gatherer prometheus.Gatherer, logger zerolog.Logger) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Admin-Key", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" || cfg.CORSAllowed == "" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		for _, o := range strings.Split(cfg.CORSAllowed, ",") {
			if o = strings.TrimSpace(o); o != "" {
				corsCfg.AllowOrigins = append(corsCfg.AllowOrigins, o)
			}
		}
	}
	r.Use(cors.New(corsCfg))

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.GET("/offices", h.OfficesList)
		api.GET("/managers", h.ManagersList)
		api.GET("/assignments", h.AssignmentsList)
		api.GET("/assignments/:ticket_id", h.AssignmentDetails)
		api.GET("/stats", h.Stats)
	}

	admin := api.Group("")
	admin.Use(middleware.AdminKey(cfg.AdminKey))
	{
		admin.POST("/offices", h.UpsertOffices)
		admin.POST("/managers", h.UpsertManagers)
		admin.POST("/tickets", h.SubmitTickets)
		admin.POST("/process", h.Process)
		admin.POST("/route", h.Route)
		admin.POST("/debug/route", h.DebugRoute)
		admin.POST("/admin/counter/reset", h.ResetCounter)
		admin.POST("/admin/workloads/restore", h.RestoreWorkloads)
		admin.POST("/admin/offices/geocode", h.GeocodeOffices)
		admin.POST("/admin/reset", h.ResetAll)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
