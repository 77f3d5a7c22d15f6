package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tenantguardhq/tenantguard/internal/api"
	"github.com/tenantguardhq/tenantguard/internal/models"
	"github.com/tenantguardhq/tenantguard/internal/store"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

const testJobID = "33333333-3333-3333-3333-333333333333"

func setupProvisioningRouter(svc *mockProvisioningService) *gin.Engine {
	r := newTestRouter()
	h := api.NewProvisioningHandler(svc, testLogger())
	r.POST("/provisioning/jobs", h.Schedule)
	r.GET("/provisioning/jobs", h.List)
	r.GET("/provisioning/jobs/:id", h.Get)
	r.GET("/provisioning/jobs/:id/events", h.Events)
	r.GET("/provisioning/config", h.RuntimeConfig)
	return r
}

func TestScheduleAccepted(t *testing.T) {
	var gotTrigger models.ProvisioningTrigger
	svc := &mockProvisioningService{
		schedule: func(_ context.Context, tenantID string, trigger models.ProvisioningTrigger, _ map[string]any, _ string) (*models.ProvisioningJob, error) {
			gotTrigger = trigger
			return &models.ProvisioningJob{ID: testJobID, TenantID: tenantID, Trigger: trigger, Status: models.StatusPending}, nil
		},
	}

	env := setupProvisioningRouter(svc)
	w := doRequest(env, http.MethodPost, "/provisioning/jobs", `{"trigger":"MANUAL_OVERRIDE"}`)

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	if gotTrigger != models.TriggerManualOverride {
		t.Errorf("trigger = %q", gotTrigger)
	}

	var resp struct {
		Data models.ProvisioningJob `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.ID != testJobID || resp.Data.Status != models.StatusPending {
		t.Errorf("job = %+v", resp.Data)
	}
}

func TestScheduleRejectsBadTrigger(t *testing.T) {
	env := setupProvisioningRouter(&mockProvisioningService{})

	tests := []struct {
		name string
		body string
	}{
		{"unknown trigger", `{"trigger":"MAKE_IT_SO"}`},
		{"missing trigger", `{}`},
		{"malformed json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(env, http.MethodPost, "/provisioning/jobs", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestScheduleConflict(t *testing.T) {
	svc := &mockProvisioningService{
		schedule: func(context.Context, string, models.ProvisioningTrigger, map[string]any, string) (*models.ProvisioningJob, error) {
			return nil, store.ErrJobInProgress
		},
	}

	env := setupProvisioningRouter(svc)
	w := doRequest(env, http.MethodPost, "/provisioning/jobs", `{"trigger":"SYSTEM_RECOVERY"}`)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestScheduleIsolationDenied(t *testing.T) {
	svc := &mockProvisioningService{
		schedule: func(context.Context, string, models.ProvisioningTrigger, map[string]any, string) (*models.ProvisioningJob, error) {
			return nil, &tenantctx.TenantIsolationError{TenantID: testTenantID, TargetTenantID: "other"}
		},
	}

	env := setupProvisioningRouter(svc)
	w := doRequest(env, http.MethodPost, "/provisioning/jobs", `{"trigger":"MANUAL_OVERRIDE"}`)

	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestGetJobNotFound(t *testing.T) {
	svc := &mockProvisioningService{
		getJob: func(context.Context, string) (*models.ProvisioningJob, error) {
			return nil, store.ErrJobNotFound
		},
	}

	env := setupProvisioningRouter(svc)
	w := doRequest(env, http.MethodGet, "/provisioning/jobs/"+testJobID, "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetJobRejectsNonUUID(t *testing.T) {
	env := setupProvisioningRouter(&mockProvisioningService{})
	w := doRequest(env, http.MethodGet, "/provisioning/jobs/not-a-uuid", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestListJobsFiltersAndPaging(t *testing.T) {
	var gotStatus models.ProvisioningStatus
	var gotLimit, gotOffset int
	svc := &mockProvisioningService{
		listJobs: func(_ context.Context, status models.ProvisioningStatus, limit, offset int) ([]models.ProvisioningJob, bool, error) {
			gotStatus, gotLimit, gotOffset = status, limit, offset
			return []models.ProvisioningJob{{ID: testJobID}}, true, nil
		},
	}

	env := setupProvisioningRouter(svc)
	w := doRequest(env, http.MethodGet, "/provisioning/jobs?status=FAILED&limit=10&offset=20", "")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if gotStatus != models.StatusFailed || gotLimit != 10 || gotOffset != 20 {
		t.Errorf("got (%s, %d, %d)", gotStatus, gotLimit, gotOffset)
	}

	var resp struct {
		HasMore bool `json:"has_more"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.HasMore {
		t.Error("has_more not propagated")
	}
}

func TestListJobsRejectsUnknownStatus(t *testing.T) {
	env := setupProvisioningRouter(&mockProvisioningService{})
	w := doRequest(env, http.MethodGet, "/provisioning/jobs?status=DONE", "")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestJobEventsUnknownJobIs404(t *testing.T) {
	svc := &mockProvisioningService{
		getJob: func(context.Context, string) (*models.ProvisioningJob, error) {
			return nil, store.ErrJobNotFound
		},
	}

	env := setupProvisioningRouter(svc)
	w := doRequest(env, http.MethodGet, "/provisioning/jobs/"+testJobID+"/events", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRuntimeConfigBeforeProvisioningIs404(t *testing.T) {
	svc := &mockProvisioningService{
		runtimeConfig: func(context.Context) (*models.RuntimeConfig, error) {
			return nil, store.ErrRuntimeConfigNotFound
		},
	}

	env := setupProvisioningRouter(svc)
	w := doRequest(env, http.MethodGet, "/provisioning/config", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}
