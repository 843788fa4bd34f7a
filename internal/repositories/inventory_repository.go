package repositories

import (
	"database/sql"
	"fmt"
	"time"
)

// InventoryRepository covers the slice of inventory state the catalog core
// touches: base snapshot rows, min-stock, and movement counts for guards.
type InventoryRepository interface {
	// EnsureBaseSnapshots inserts a zero-valued base snapshot row for every
	// store of the organization for the given product, skipping rows that
	// already exist. Idempotent; safe to call on every mutation.
	EnsureBaseSnapshots(executor SQLExecutor, organizationID, productID int64) error
	UpsertMinStock(executor SQLExecutor, organizationID, storeID, productID int64, minStock float64) error
	CountMovementsByProductID(executor SQLExecutor, productID int64) (int, error)
	StoreExists(executor SQLExecutor, organizationID, storeID int64) (bool, error)
}

type inventoryRepository struct {
	db *sql.DB
}

// NewInventoryRepository creates a new instance of InventoryRepository.
func NewInventoryRepository(db *sql.DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) EnsureBaseSnapshots(executor SQLExecutor, organizationID, productID int64) error {
	query := `INSERT INTO inventory_snapshots (organization_id, store_id, product_id, variant_id, on_hand, on_order, updated_at)
	          SELECT $1, s.id, $2, NULL, 0, 0, $3
	          FROM stores s
	          WHERE s.organization_id = $1
	          ON CONFLICT (store_id, product_id) WHERE variant_id IS NULL DO NOTHING`
	_, err := executor.Exec(query, organizationID, productID, time.Now())
	if err != nil {
		return fmt.Errorf("%w: ensuring base snapshots for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	return nil
}

func (r *inventoryRepository) UpsertMinStock(executor SQLExecutor, organizationID, storeID, productID int64, minStock float64) error {
	query := `INSERT INTO inventory_snapshots (organization_id, store_id, product_id, variant_id, on_hand, on_order, min_stock, updated_at)
	          VALUES ($1, $2, $3, NULL, 0, 0, $4, $5)
	          ON CONFLICT (store_id, product_id) WHERE variant_id IS NULL
	          DO UPDATE SET min_stock = EXCLUDED.min_stock, updated_at = EXCLUDED.updated_at`
	_, err := executor.Exec(query, organizationID, storeID, productID, minStock, time.Now())
	if err != nil {
		return fmt.Errorf("%w: upserting min stock for product ID %d in store %d: %v", ErrDatabaseError, productID, storeID, err)
	}
	return nil
}

func (r *inventoryRepository) CountMovementsByProductID(executor SQLExecutor, productID int64) (int, error) {
	var count int
	err := executor.QueryRow(`SELECT COUNT(*) FROM stock_movements WHERE product_id = $1`, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting stock movements for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	return count, nil
}

func (r *inventoryRepository) StoreExists(executor SQLExecutor, organizationID, storeID int64) (bool, error) {
	var exists bool
	err := executor.QueryRow(
		`SELECT EXISTS (SELECT 1 FROM stores WHERE id = $1 AND organization_id = $2)`,
		storeID, organizationID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking store %d existence: %v", ErrDatabaseError, storeID, err)
	}
	return exists, nil
}
