package store

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/models"
	"github.com/tenantguardhq/tenantguard/internal/tenantctx"
)

// requireAmbient returns the ambient tenant context for non-transactional
// queries that filter by tenant ID directly.
func requireAmbient(ctx context.Context) (tenantctx.TenantContext, error) {
	return tenantctx.Require(ctx)
}

// marshalJSONField marshals an optional JSON column value, keeping nil nil.
func marshalJSONField(m map[string]any) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob scans one provisioning job row in jobColumns order.
func scanJob(row rowScanner, log *logrus.Logger) (*models.ProvisioningJob, error) {
	var job models.ProvisioningJob
	var errorJSON, metadataJSON []byte

	if err := row.Scan(
		&job.ID, &job.TenantID, &job.Trigger, &job.Status, &job.TargetSchema,
		&job.StartedAt, &job.CompletedAt, &errorJSON, &metadataJSON, &job.CreatedAt,
	); err != nil {
		return nil, err
	}

	if errorJSON != nil {
		if err := json.Unmarshal(errorJSON, &job.ErrorDetails); err != nil {
			log.WithError(err).Warn("failed to unmarshal job error details")
		}
	}
	if metadataJSON != nil {
		if err := json.Unmarshal(metadataJSON, &job.Metadata); err != nil {
			log.WithError(err).Warn("failed to unmarshal job metadata")
		}
	}

	return &job, nil
}
