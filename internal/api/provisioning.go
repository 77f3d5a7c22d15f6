package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/models"
	"github.com/tenantguardhq/tenantguard/internal/store"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

// ProvisioningHandler serves provisioning job endpoints.
type ProvisioningHandler struct {
	svc ProvisioningService
	log *logrus.Logger
}

// NewProvisioningHandler creates a ProvisioningHandler.
func NewProvisioningHandler(svc ProvisioningService, log *logrus.Logger) *ProvisioningHandler {
	return &ProvisioningHandler{svc: svc, log: log}
}

// scheduleRequest is the JSON body for POST /api/v1/provisioning/jobs.
type scheduleRequest struct {
	Trigger  string         `json:"trigger" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

// Schedule handles POST /api/v1/provisioning/jobs.
func (h *ProvisioningHandler) Schedule(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body: "+err.Error())
		return
	}

	trigger := models.ProvisioningTrigger(req.Trigger)
	if !models.ValidTrigger(trigger) {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest,
			"trigger must be one of SUBSCRIPTION_ACTIVATED, MANUAL_OVERRIDE, SYSTEM_RECOVERY")
		return
	}

	job, err := h.svc.Schedule(c.Request.Context(), tenantID, trigger, req.Metadata, c.GetString("actor_id"))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrJobInProgress):
			respondError(c, http.StatusConflict, ErrCodeConflict, "a provisioning job is already in progress for this tenant")
		case errors.Is(err, store.ErrTenantNotFound):
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "tenant not found")
		case tenantctx.IsIsolation(err):
			respondError(c, http.StatusForbidden, ErrCodeForbidden, "cross-tenant provisioning is not permitted")
		default:
			h.log.WithError(err).Error("failed to schedule provisioning job")
			respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to schedule provisioning job")
		}
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"data": job})
}

// List handles GET /api/v1/provisioning/jobs.
func (h *ProvisioningHandler) List(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	status := models.ProvisioningStatus(c.Query("status"))
	switch status {
	case "", models.StatusPending, models.StatusExecuting, models.StatusCompleted, models.StatusFailed:
	default:
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "unknown status filter")
		return
	}

	limit := parseInt(c.Query("limit"), 50)
	offset := parseOffset(c.Query("offset"))

	jobs, hasMore, err := h.svc.ListJobs(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.log.WithError(err).Error("failed to list provisioning jobs")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to list provisioning jobs")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data":     jobs,
		"has_more": hasMore,
	})
}

// Get handles GET /api/v1/provisioning/jobs/:id.
func (h *ProvisioningHandler) Get(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	jobID := c.Param("id")
	if err := validateJobID(jobID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	job, err := h.svc.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "provisioning job not found")
			return
		}
		h.log.WithError(err).Error("failed to get provisioning job")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to get provisioning job")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": job})
}

// Events handles GET /api/v1/provisioning/jobs/:id/events.
func (h *ProvisioningHandler) Events(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	jobID := c.Param("id")
	if err := validateJobID(jobID); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	// Event trail access goes through the job lookup so unknown or
	// foreign job IDs return 404 rather than an empty trail.
	if _, err := h.svc.GetJob(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "provisioning job not found")
			return
		}
		h.log.WithError(err).Error("failed to get provisioning job")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to get provisioning job")
		return
	}

	events, err := h.svc.ListEvents(c.Request.Context(), jobID)
	if err != nil {
		h.log.WithError(err).Error("failed to list provisioning events")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to list provisioning events")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": events})
}

// RuntimeConfig handles GET /api/v1/provisioning/config.
func (h *ProvisioningHandler) RuntimeConfig(c *gin.Context) {
	tenantID := getTenantID(c)
	if tenantID == "" {
		return
	}

	cfg, err := h.svc.RuntimeConfig(c.Request.Context())
	if err != nil {
		if errors.Is(err, store.ErrRuntimeConfigNotFound) {
			respondError(c, http.StatusNotFound, ErrCodeNotFound, "tenant has no runtime config; provisioning has not completed")
			return
		}
		h.log.WithError(err).Error("failed to get runtime config")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "failed to get runtime config")
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": cfg})
}
