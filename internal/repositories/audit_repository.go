package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"catalog_backend/internal/models"
)

// AuditRepository persists the append-only mutation trail and the
// first-event milestone rows.
type AuditRepository interface {
	WriteAuditLog(executor SQLExecutor, entry *models.AuditLog) (int64, error)
	// RecordFirstEvent records a tenant milestone at most once per
	// (organization, type). Runs against the pool, outside any mutation
	// transaction; callers treat failures as non-fatal.
	RecordFirstEvent(organizationID int64, actorID *int64, milestoneType string, metadata *string) error
}

type auditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new instance of AuditRepository.
func NewAuditRepository(db *sql.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) WriteAuditLog(executor SQLExecutor, entry *models.AuditLog) (int64, error) {
	query := `INSERT INTO audit_logs
	            (organization_id, actor_id, action, entity, entity_id, before, after, request_id, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING id`
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		entry.OrganizationID, entry.ActorID, entry.Action, entry.Entity, entry.EntityID,
		entry.Before, entry.After, entry.RequestID, entry.CreatedAt,
	).Scan(&entry.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: writing audit log (%s %s %d): %v", ErrDatabaseError, entry.Action, entry.Entity, entry.EntityID, err)
	}
	return entry.ID, nil
}

func (r *auditRepository) RecordFirstEvent(organizationID int64, actorID *int64, milestoneType string, metadata *string) error {
	query := `INSERT INTO org_milestones (organization_id, actor_id, milestone_type, metadata, created_at)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (organization_id, milestone_type) DO NOTHING`
	_, err := r.db.Exec(query, organizationID, actorID, milestoneType, metadata, time.Now())
	if err != nil {
		return fmt.Errorf("%w: recording milestone '%s' for organization %d: %v", ErrDatabaseError, milestoneType, organizationID, err)
	}
	return nil
}
