package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/isolation"
	"github.com/tenantguardhq/tenantguard/internal/metrics"
	"github.com/tenantguardhq/tenantguard/internal/models"
	"github.com/tenantguardhq/tenantguard/internal/store"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

// ErrUnknownTrigger is returned when Schedule is called with a trigger
// outside the known set.
var ErrUnknownTrigger = errors.New("unknown provisioning trigger")

// Orchestrator drives the provisioning job state machine:
//
//	PENDING --(worker picks up job)--> EXECUTING --(schema ready, config upserted)--> COMPLETED
//	EXECUTING --(any step fails)--> FAILED
//
// All job and event writes run under the target tenant's own ambient context,
// so provisioning passes through the same isolation checks as ordinary
// application writes.
type Orchestrator struct {
	repo     ProvisioningRepo
	tenants  TenantLookup
	config   RuntimeConfigRepo
	enforcer *isolation.Enforcer
	events   EventPublisher
	log      *logrus.Logger
}

// NewOrchestrator creates an Orchestrator. events may be nil.
func NewOrchestrator(
	repo ProvisioningRepo,
	tenants TenantLookup,
	config RuntimeConfigRepo,
	enforcer *isolation.Enforcer,
	events EventPublisher,
	log *logrus.Logger,
) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		tenants:  tenants,
		config:   config,
		enforcer: enforcer,
		events:   events,
		log:      log,
	}
}

// NormalizeSchemaName derives a safe schema identifier from a tenant slug or
// ID: lower-cased, with every character outside [a-zA-Z0-9_] replaced by an
// underscore. Deterministic and idempotent.
func NormalizeSchemaName(slugOrID string) string {
	var b strings.Builder
	b.Grow(len(slugOrID))

	for _, r := range slugOrID {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune('_')
		}
	}

	return b.String()
}

// Schedule creates a PENDING provisioning job for tenantID and emits a
// "queued" event. At most one PENDING/EXECUTING job may exist per tenant;
// scheduling against an in-flight job returns store.ErrJobInProgress. The
// check-then-create here is advisory — the database's partial unique index
// closes the race between concurrent schedulers.
//
// StartedAt is set immediately only for SUBSCRIPTION_ACTIVATED, which implies
// a synchronous expectation; other triggers start the clock when a worker
// actually begins execution.
func (o *Orchestrator) Schedule(
	ctx context.Context,
	tenantID string,
	trigger models.ProvisioningTrigger,
	metadata map[string]any,
	actorID string,
) (*models.ProvisioningJob, error) {
	if !models.ValidTrigger(trigger) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTrigger, trigger)
	}

	d := isolation.Descriptor{
		TargetTenantID: tenantID,
		ResourceType:   "TenantProvisioningJob",
		Operation:      isolation.OpWrite,
		Metadata:       map[string]any{"trigger": string(trigger), "actor_id": actorID},
	}

	var job *models.ProvisioningJob

	err := o.enforcer.RunIsolated(ctx, d, func(ctx context.Context) error {
		schemaName, err := o.resolveSchemaName(ctx, tenantID)
		if err != nil {
			return err
		}

		active, err := o.repo.HasActiveJob(ctx)
		if err != nil {
			return err
		}
		if active {
			return store.ErrJobInProgress
		}

		job = &models.ProvisioningJob{
			TenantID:     tenantID,
			Trigger:      trigger,
			Status:       models.StatusPending,
			TargetSchema: schemaName,
			Metadata:     metadata,
		}
		if trigger == models.TriggerSubscriptionActivated {
			now := time.Now().UTC()
			job.StartedAt = &now
		}

		if err := o.repo.CreateJob(ctx, job); err != nil {
			return err
		}

		o.emitEvent(ctx, job, "queued", models.StatusPending, map[string]any{
			"schema_name": schemaName,
			"trigger":     string(trigger),
		})

		metrics.ProvisioningJobsTotal.WithLabelValues(string(models.StatusPending)).Inc()

		o.log.WithFields(logrus.Fields{
			"job_id":        job.ID,
			"tenant_id":     tenantID,
			"trigger":       trigger,
			"target_schema": schemaName,
		}).Info("provisioning.scheduled")

		return nil
	})
	if err != nil {
		return nil, err
	}

	return job, nil
}

// Execute runs one PENDING job to a terminal state. The schema creation,
// runtime-config upsert, and COMPLETED status commit atomically; any step
// failure captures error details on the job and transitions it to FAILED.
// A FAILED job is never retried in place — recovery is a fresh
// SYSTEM_RECOVERY job.
func (o *Orchestrator) Execute(ctx context.Context, job *models.ProvisioningJob) error {
	scope := tenantctx.TenantContext{
		TenantID:  job.TenantID,
		ActorID:   "provisioning-worker",
		ActorType: tenantctx.ActorSystem,
	}

	return tenantctx.Run(ctx, scope, func(ctx context.Context) error {
		schemaName := job.TargetSchema
		if schemaName == "" {
			schemaName = NormalizeSchemaName(job.TenantID)
		}

		if err := o.repo.MarkExecuting(ctx, job.ID); err != nil {
			if errors.Is(err, store.ErrInvalidTransition) {
				// Another worker got here first; not a failure.
				o.log.WithField("job_id", job.ID).Debug("job no longer pending, skipping")
				return nil
			}
			return err
		}

		metrics.ProvisioningJobsTotal.WithLabelValues(string(models.StatusExecuting)).Inc()
		o.emitEvent(ctx, job, "executing", models.StatusExecuting, map[string]any{
			"schema_name": schemaName,
		})

		if err := o.repo.CompleteJob(ctx, job.ID, schemaName); err != nil {
			o.failJob(ctx, job, schemaName, err)
			return fmt.Errorf("provisioning job %s failed: %w", job.ID, err)
		}

		metrics.ProvisioningJobsTotal.WithLabelValues(string(models.StatusCompleted)).Inc()
		o.emitEvent(ctx, job, "completed", models.StatusCompleted, map[string]any{
			"schema_name": schemaName,
		})

		o.log.WithFields(logrus.Fields{
			"job_id":        job.ID,
			"tenant_id":     job.TenantID,
			"target_schema": schemaName,
		}).Info("provisioning.completed")

		return nil
	})
}

// GetJob returns one of the ambient tenant's jobs (pass-through).
func (o *Orchestrator) GetJob(ctx context.Context, jobID string) (*models.ProvisioningJob, error) {
	return o.repo.GetJob(ctx, jobID)
}

// ListJobs returns the ambient tenant's jobs (pass-through).
func (o *Orchestrator) ListJobs(
	ctx context.Context, status models.ProvisioningStatus, limit, offset int,
) ([]models.ProvisioningJob, bool, error) {
	return o.repo.ListJobs(ctx, status, limit, offset)
}

// ListEvents returns a job's event trail (pass-through).
func (o *Orchestrator) ListEvents(ctx context.Context, jobID string) ([]models.ProvisioningEvent, error) {
	return o.repo.ListEvents(ctx, jobID)
}

// RuntimeConfig returns the ambient tenant's runtime config (pass-through).
func (o *Orchestrator) RuntimeConfig(ctx context.Context) (*models.RuntimeConfig, error) {
	return o.config.Get(ctx)
}

// resolveSchemaName derives the target schema from the tenant's slug,
// falling back to the tenant ID.
func (o *Orchestrator) resolveSchemaName(ctx context.Context, tenantID string) (string, error) {
	tenant, err := o.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		return "", err
	}

	source := tenant.Slug
	if source == "" {
		source = tenant.ID
	}

	return NormalizeSchemaName(source), nil
}

// failJob records a step failure: error details onto the job, a "failed"
// event, FAILED status. Failures here are logged but never mask the original
// step error.
func (o *Orchestrator) failJob(ctx context.Context, job *models.ProvisioningJob, schemaName string, cause error) {
	if err := o.repo.FailJob(ctx, job.ID, map[string]any{"message": cause.Error()}); err != nil {
		o.log.WithError(err).WithField("job_id", job.ID).Error("failed to record job failure")
	}

	metrics.ProvisioningJobsTotal.WithLabelValues(string(models.StatusFailed)).Inc()
	o.emitEvent(ctx, job, "failed", models.StatusFailed, map[string]any{
		"schema_name": schemaName,
		"message":     cause.Error(),
	})

	o.log.WithError(cause).WithFields(logrus.Fields{
		"job_id":    job.ID,
		"tenant_id": job.TenantID,
	}).Error("provisioning.failed")
}

// emitEvent appends to the job's event trail and publishes to the live
// stream. The trail is the durable record; an insert failure is logged and
// does not abort the state transition that already happened.
func (o *Orchestrator) emitEvent(
	ctx context.Context,
	job *models.ProvisioningJob,
	action string,
	status models.ProvisioningStatus,
	payload map[string]any,
) {
	ev := models.ProvisioningEvent{
		JobID:    job.ID,
		TenantID: job.TenantID,
		Action:   action,
		Status:   status,
		Payload:  payload,
	}

	if err := o.repo.InsertEvent(ctx, ev); err != nil {
		o.log.WithError(err).WithFields(logrus.Fields{
			"job_id": job.ID,
			"action": action,
		}).Warn("failed to insert provisioning event")
	}

	if o.events != nil {
		o.events.Publish(job.TenantID, "provisioning."+action, map[string]any{
			"job_id":  job.ID,
			"status":  string(status),
			"payload": payload,
		})
	}
}
