package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"catalog_backend/internal/models"
)

// ReferenceRepository covers the read-mostly foreign rows a catalog mutation
// validates against: units, suppliers, the category registry and the
// organization's plan row.
type ReferenceRepository interface {
	UnitExists(executor SQLExecutor, organizationID, unitID int64) (bool, error)
	SupplierExists(executor SQLExecutor, organizationID, supplierID int64) (bool, error)
	// EnsureCategory idempotently registers a category by normalized name and
	// returns its id.
	EnsureCategory(executor SQLExecutor, organizationID int64, name string) (int64, error)
	GetOrganization(executor SQLExecutor, organizationID int64) (*models.Organization, error)
}

type referenceRepository struct {
	db *sql.DB
}

// NewReferenceRepository creates a new instance of ReferenceRepository.
func NewReferenceRepository(db *sql.DB) ReferenceRepository {
	return &referenceRepository{db: db}
}

func (r *referenceRepository) UnitExists(executor SQLExecutor, organizationID, unitID int64) (bool, error) {
	var exists bool
	err := executor.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM units WHERE id = $1 AND organization_id = $2)`,
		unitID, organizationID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking unit %d existence: %v", ErrDatabaseError, unitID, err)
	}
	return exists, nil
}

func (r *referenceRepository) SupplierExists(executor SQLExecutor, organizationID, supplierID int64) (bool, error) {
	var exists bool
	err := executor.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM suppliers WHERE id = $1 AND organization_id = $2)`,
		supplierID, organizationID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking supplier %d existence: %v", ErrDatabaseError, supplierID, err)
	}
	return exists, nil
}

func (r *referenceRepository) EnsureCategory(executor SQLExecutor, organizationID int64, name string) (int64, error) {
	var id int64
	// Insert-or-fetch in one statement; the DO UPDATE no-op makes RETURNING
	// yield the id on the conflict path too.
	query := `INSERT INTO product_categories (organization_id, name, created_at)
	          VALUES ($1, $2, $3)
	          ON CONFLICT (organization_id, name) DO UPDATE SET name = EXCLUDED.name
	          RETURNING id`
	err := executor.QueryRow(query, organizationID, name, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%w: ensuring category '%s' for organization %d: %v", ErrDatabaseError, name, organizationID, err)
	}
	return id, nil
}

func (r *referenceRepository) GetOrganization(executor SQLExecutor, organizationID int64) (*models.Organization, error) {
	organization := &models.Organization{}
	err := executor.QueryRow(
		`SELECT id, name, plan_product_limit, created_at FROM organizations WHERE id = $1`,
		organizationID,
	).Scan(&organization.ID, &organization.Name, &organization.PlanProductLimit, &organization.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting organization %d: %v", ErrDatabaseError, organizationID, err)
	}
	return organization, nil
}
