package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"catalog_backend/internal/models"
)

// CostRepository upserts the per-(organization, product, variantKey) cost rows
// written as a side effect of create/update/import.
type CostRepository interface {
	// UpsertCost writes the cost for the given key. cost_basis_qty floors at 1
	// and never decreases below it.
	UpsertCost(executor SQLExecutor, cost *models.ProductCost) error
	GetCost(executor SQLExecutor, organizationID, productID int64, variantKey string) (*models.ProductCost, error)
}

type costRepository struct {
	db *sql.DB
}

// NewCostRepository creates a new instance of CostRepository.
func NewCostRepository(db *sql.DB) CostRepository {
	return &costRepository{db: db}
}

func (r *costRepository) UpsertCost(executor SQLExecutor, cost *models.ProductCost) error {
	if cost.VariantKey == "" {
		cost.VariantKey = models.CostVariantKeyBase
	}
	if cost.CostBasisQty < 1 {
		cost.CostBasisQty = 1
	}
	query := `INSERT INTO product_costs (organization_id, product_id, variant_key, cost_kgs, cost_basis_qty, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          ON CONFLICT (organization_id, product_id, variant_key)
	          DO UPDATE SET cost_kgs = EXCLUDED.cost_kgs,
	                        cost_basis_qty = GREATEST(product_costs.cost_basis_qty, 1),
	                        updated_at = EXCLUDED.updated_at`
	_, err := executor.Exec(query,
		cost.OrganizationID, cost.ProductID, cost.VariantKey, cost.CostKgs, cost.CostBasisQty, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("%w: upserting cost for product ID %d: %v", ErrDatabaseError, cost.ProductID, err)
	}
	return nil
}

func (r *costRepository) GetCost(executor SQLExecutor, organizationID, productID int64, variantKey string) (*models.ProductCost, error) {
	cost := &models.ProductCost{}
	query := `SELECT id, organization_id, product_id, variant_key, cost_kgs, cost_basis_qty, updated_at
	          FROM product_costs
	          WHERE organization_id = $1 AND product_id = $2 AND variant_key = $3`
	err := executor.QueryRow(query, organizationID, productID, variantKey).Scan(
		&cost.ID, &cost.OrganizationID, &cost.ProductID, &cost.VariantKey,
		&cost.CostKgs, &cost.CostBasisQty, &cost.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting cost for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	return cost, nil
}
