package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/tenantguardhq/tenantguard/internal/models"
)

// AuditStore provides data access for the tenant_audit_log table.
type AuditStore struct {
	Base
}

// NewAuditStore creates an AuditStore.
func NewAuditStore(base Base) *AuditStore {
	return &AuditStore{Base: base}
}

// InsertEntry appends one audit entry. The entry's tenant must match the
// ambient tenant; callers recording a decision against another tenant
// re-scope first (see service.TenantAuditLogger).
func (s *AuditStore) InsertEntry(ctx context.Context, e models.AuditEntry) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, tc, err := s.beginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	if err := requireTenantMatch(tc, e.TenantID, "TenantAuditLog"); err != nil {
		return err
	}

	var metadataJSON []byte
	if e.Metadata != nil {
		metadataJSON, err = json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling audit metadata: %w", err)
		}
	}

	var actor *string
	if e.ActorID != "" {
		actor = &e.ActorID
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tenant_audit_log (tenant_id, actor_id, action, resource_type, resource_id, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.TenantID, actor, e.Action, e.ResourceType, nullable(e.ResourceID), metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}

	return tx.Commit(ctx)
}

// buildAuditFilter builds the WHERE clause and args from AuditQueryOpts. The
// ambient tenant predicate always comes first: the query must stay scoped
// even against a role the RLS policies do not bind.
func buildAuditFilter(tenantID string, opts models.AuditQueryOpts) (where string, args []any, nextArg int) {
	conditions := []string{"tenant_id = $1"}
	args = append(args, tenantID)
	argIdx := 2

	if opts.ResourceType != "" {
		conditions = append(conditions, "resource_type = $"+strconv.Itoa(argIdx))
		args = append(args, opts.ResourceType)
		argIdx++
	}
	if opts.ResourceID != "" {
		conditions = append(conditions, "resource_id = $"+strconv.Itoa(argIdx))
		args = append(args, opts.ResourceID)
		argIdx++
	}
	if opts.Action != "" {
		conditions = append(conditions, "action = $"+strconv.Itoa(argIdx))
		args = append(args, opts.Action)
		argIdx++
	}
	if opts.Since != nil {
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(argIdx))
		args = append(args, *opts.Since)
		argIdx++
	}

	return "WHERE " + strings.Join(conditions, " AND "), args, argIdx
}

// QueryEntries returns audit entries for the ambient tenant matching the
// given filters. Returns entries, hasMore flag, and any error.
func (s *AuditStore) QueryEntries(
	ctx context.Context, opts models.AuditQueryOpts,
) ([]models.AuditEntry, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, tc, err := s.beginReadTx(ctx)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	where, args, argIdx := buildAuditFilter(tc.TenantID, opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(
		"SELECT id, tenant_id, actor_id, action, resource_type, resource_id, metadata, created_at FROM tenant_audit_log %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, argIdx, argIdx+1,
	)
	args = append(args, limit+1, opts.Offset)

	entries, err := scanAuditRows(ctx, tx, query, args, s.Log)
	if err != nil {
		return nil, false, err
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}

	return entries, hasMore, nil
}

// scanAuditRows executes a query and scans audit entries from the result.
func scanAuditRows(ctx context.Context, tx pgx.Tx, query string, args []any, log *logrus.Logger) ([]models.AuditEntry, error) {
	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit log: %w", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		var metadataJSON []byte
		var actor, resourceID *string

		if err := rows.Scan(&e.ID, &e.TenantID, &actor, &e.Action, &e.ResourceType, &resourceID, &metadataJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if actor != nil {
			e.ActorID = *actor
		}
		if resourceID != nil {
			e.ResourceID = *resourceID
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				log.WithError(err).Warn("failed to unmarshal audit metadata")
			}
		}
		entries = append(entries, e)
	}

	return entries, nil
}

// purgeBatchSize limits the number of rows deleted per transaction to avoid
// holding long locks on tenant_audit_log.
const purgeBatchSize = 5000

// PurgeOldEntries deletes the ambient tenant's audit entries older than
// retentionDays in batches. Returns the number of deleted entries.
func (s *AuditStore) PurgeOldEntries(ctx context.Context, retentionDays int) (int, error) {
	var totalDeleted int

	for {
		batchCtx, cancel := withTimeout(ctx)

		deleted, err := s.purgeOldEntriesBatch(batchCtx, retentionDays)
		cancel()

		if err != nil {
			return totalDeleted, err
		}

		totalDeleted += deleted
		if deleted < purgeBatchSize {
			break
		}
	}

	return totalDeleted, nil
}

// purgeOldEntriesBatch deletes a single batch of expired audit entries.
func (s *AuditStore) purgeOldEntriesBatch(ctx context.Context, retentionDays int) (int, error) {
	tx, tc, err := s.beginTx(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on early return.

	tag, err := tx.Exec(ctx,
		`DELETE FROM tenant_audit_log WHERE ctid IN (
			SELECT ctid FROM tenant_audit_log
			WHERE tenant_id = $1 AND created_at < NOW() - make_interval(days => $2)
			LIMIT $3
		)`,
		tc.TenantID, retentionDays, purgeBatchSize,
	)
	if err != nil {
		return 0, fmt.Errorf("purging audit entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	return int(tag.RowsAffected()), nil
}

// nullable converts an empty string to a NULL-able pointer.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
