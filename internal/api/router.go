package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/dbpool"
	"github.com/tenantguardhq/tenantguard/internal/middleware"
	"github.com/tenantguardhq/tenantguard/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log          *logrus.Logger
	Pool         *dbpool.Pool
	Hub          *ws.Hub
	Audit        AuditService
	Provisioning ProvisioningService
	CORSOrigins  []string
	Version      string
}

// maxBodySize caps request bodies; provisioning metadata is small.
const maxBodySize = 1 << 20 // 1 MB

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", middleware.TenantIDHeader, middleware.TenantSlugHeader, middleware.ActorIDHeader},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.PrometheusMiddleware())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.Hub, log, deps.Version)
	provisioning := NewProvisioningHandler(deps.Provisioning, log)
	audit := NewAuditHandler(deps.Audit, log)

	// Health and readiness run outside tenant binding.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// Everything else requires a bound tenant context.
	api.Use(middleware.TenantBinder(log))

	// Provisioning.
	api.POST("/provisioning/jobs", provisioning.Schedule)
	api.GET("/provisioning/jobs", provisioning.List)
	api.GET("/provisioning/jobs/:id", provisioning.Get)
	api.GET("/provisioning/jobs/:id/events", provisioning.Events)
	api.GET("/provisioning/config", provisioning.RuntimeConfig)

	// Audit.
	api.GET("/audit", audit.Query)
	api.DELETE("/audit", audit.Purge)

	// WebSocket event stream.
	api.GET("/ws", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins))
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
