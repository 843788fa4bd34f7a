package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"catalog_backend/internal/models"

	"github.com/lib/pq"
)

// BundleRepository defines the interface for bundle-component edge operations.
type BundleRepository interface {
	CreateComponent(executor SQLExecutor, component *models.BundleComponent) (int64, error)
	GetComponentsByBundleID(executor SQLExecutor, bundleProductID int64) ([]models.BundleComponent, error)
	DeleteComponentsByBundleID(executor SQLExecutor, bundleProductID int64) (int64, error)
}

type bundleRepository struct {
	db *sql.DB
}

// NewBundleRepository creates a new instance of BundleRepository.
func NewBundleRepository(db *sql.DB) BundleRepository {
	return &bundleRepository{db: db}
}

func (r *bundleRepository) CreateComponent(executor SQLExecutor, component *models.BundleComponent) (int64, error) {
	query := `INSERT INTO bundle_components (bundle_product_id, component_product_id, component_variant_id, quantity)
	          VALUES ($1, $2, $3, $4)
	          RETURNING id`
	err := executor.QueryRow(query,
		component.BundleProductID, component.ComponentProductID, component.ComponentVariantID, component.Quantity,
	).Scan(&component.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: creating bundle component (constraint: %s)", ErrDuplicateKey, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating bundle component for product ID %d: %v", ErrDatabaseError, component.BundleProductID, err)
	}
	return component.ID, nil
}

func (r *bundleRepository) GetComponentsByBundleID(executor SQLExecutor, bundleProductID int64) ([]models.BundleComponent, error) {
	components := []models.BundleComponent{}
	query := `SELECT id, bundle_product_id, component_product_id, component_variant_id, quantity
	          FROM bundle_components
	          WHERE bundle_product_id = $1
	          ORDER BY id`
	rows, err := executor.Query(query, bundleProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying bundle components for product ID %d: %v", ErrDatabaseError, bundleProductID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var component models.BundleComponent
		if err := rows.Scan(
			&component.ID, &component.BundleProductID, &component.ComponentProductID,
			&component.ComponentVariantID, &component.Quantity,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning bundle component: %v", ErrDatabaseError, err)
		}
		components = append(components, component)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating bundle component rows: %v", ErrDatabaseError, err)
	}
	return components, nil
}

func (r *bundleRepository) DeleteComponentsByBundleID(executor SQLExecutor, bundleProductID int64) (int64, error) {
	result, err := executor.Exec(`DELETE FROM bundle_components WHERE bundle_product_id = $1`, bundleProductID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting bundle components for product ID %d: %v", ErrDatabaseError, bundleProductID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}
