package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/httputil"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

// Boundary header contract. The identity provider in front of this service
// authenticates the caller and stamps these headers; tenantguard itself does
// not perform authentication.
const (
	TenantIDHeader   = "x-tenant-id"
	TenantSlugHeader = "x-tenant-slug"
	ActorIDHeader    = "x-actor-id"
)

// ResolveTenantContext derives a TenantContext from inbound request headers.
// A missing tenant identifier fails closed with *MissingTenantContextError.
// The actor type is "user" when an actor ID is present, else "system".
func ResolveTenantContext(headers http.Header) (tenantctx.TenantContext, error) {
	tenantID := strings.TrimSpace(headers.Get(TenantIDHeader))
	if tenantID == "" {
		return tenantctx.TenantContext{}, &tenantctx.MissingTenantContextError{}
	}

	actorID := strings.TrimSpace(headers.Get(ActorIDHeader))

	actorType := tenantctx.ActorSystem
	if actorID != "" {
		actorType = tenantctx.ActorUser
	}

	return tenantctx.TenantContext{
		TenantID:   tenantID,
		TenantSlug: strings.TrimSpace(headers.Get(TenantSlugHeader)),
		ActorID:    actorID,
		ActorType:  actorType,
	}, nil
}

// TenantBinder returns Gin middleware that resolves the tenant context from
// request headers and installs it on the request context for the duration of
// the request. Routes behind this middleware can rely on tenantctx.Require
// succeeding.
func TenantBinder(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tc, err := ResolveTenantContext(c.Request.Header)
		if err != nil {
			log.WithFields(logrus.Fields{
				"method":     c.Request.Method,
				"path":       c.Request.URL.Path,
				"request_id": c.GetString(RequestIDKey),
			}).Warn("request missing tenant identifier header")
			httputil.RespondError(c, http.StatusUnauthorized, "missing_tenant_context", "request is missing tenant identifier header")

			return
		}

		c.Set("tenant_id", tc.TenantID)
		if tc.ActorID != "" {
			c.Set("actor_id", tc.ActorID)
		}
		c.Request = c.Request.WithContext(tenantctx.With(c.Request.Context(), tc))
		c.Next()
	}
}
