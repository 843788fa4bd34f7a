package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"catalog_backend/internal/models"

	"github.com/lib/pq"
)

// VariantUsage aggregates the historical references that block deactivation of
// a set of variants.
type VariantUsage struct {
	StockMovements     int
	NonzeroSnapshots   int
	PurchaseOrderLines int
}

// Referenced reports whether any historical row points at the counted variants.
func (u VariantUsage) Referenced() bool {
	return u.StockMovements > 0 || u.NonzeroSnapshots > 0 || u.PurchaseOrderLines > 0
}

// VariantRepository defines the interface for product-variant database
// operations, including the attribute-value rows mirroring variant.Attributes.
type VariantRepository interface {
	CreateVariant(executor SQLExecutor, variant *models.ProductVariant) (int64, error)
	UpdateVariant(executor SQLExecutor, variant *models.ProductVariant) error
	GetVariantByID(executor SQLExecutor, variantID int64) (*models.ProductVariant, error)
	GetActiveVariantsByProductID(executor SQLExecutor, productID int64) ([]models.ProductVariant, error)
	DeactivateVariants(executor SQLExecutor, variantIDs []int64) (int64, error)

	// CountUsage counts stock movements, nonzero inventory snapshots and
	// purchase-order lines referencing any of the given variant ids.
	CountUsage(executor SQLExecutor, variantIDs []int64) (VariantUsage, error)

	// Attribute-value rows (full replace per variant on update)
	CreateAttributeValue(executor SQLExecutor, value *models.VariantAttributeValue) (int64, error)
	GetAttributeValuesByVariantID(executor SQLExecutor, variantID int64) ([]models.VariantAttributeValue, error)
	DeleteAttributeValuesByVariantID(executor SQLExecutor, variantID int64) (int64, error)
}

type variantRepository struct {
	db *sql.DB
}

// NewVariantRepository creates a new instance of VariantRepository.
func NewVariantRepository(db *sql.DB) VariantRepository {
	return &variantRepository{db: db}
}

func (r *variantRepository) CreateVariant(executor SQLExecutor, variant *models.ProductVariant) (int64, error) {
	query := `INSERT INTO product_variants (product_id, name, sku, is_active, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	currentTime := time.Now()
	if variant.CreatedAt.IsZero() {
		variant.CreatedAt = currentTime
	}
	variant.UpdatedAt = currentTime

	err := executor.QueryRow(query,
		variant.ProductID, variant.Name, variant.SKU, variant.IsActive,
		variant.CreatedAt, variant.UpdatedAt,
	).Scan(&variant.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: creating variant '%s' (constraint: %s)", ErrDuplicateKey, variant.Name, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating variant for product ID %d: %v", ErrDatabaseError, variant.ProductID, err)
	}
	return variant.ID, nil
}

func (r *variantRepository) UpdateVariant(executor SQLExecutor, variant *models.ProductVariant) error {
	query := `UPDATE product_variants SET name = $1, sku = $2, is_active = $3, updated_at = $4
	          WHERE id = $5 AND product_id = $6`
	result, err := executor.Exec(query,
		variant.Name, variant.SKU, variant.IsActive, time.Now(), variant.ID, variant.ProductID,
	)
	if err != nil {
		return fmt.Errorf("%w: updating variant ID %d: %v", ErrDatabaseError, variant.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *variantRepository) GetVariantByID(executor SQLExecutor, variantID int64) (*models.ProductVariant, error) {
	variant := &models.ProductVariant{}
	query := `SELECT id, product_id, name, sku, is_active, created_at, updated_at
	          FROM product_variants
	          WHERE id = $1`
	err := executor.QueryRow(query, variantID).Scan(
		&variant.ID, &variant.ProductID, &variant.Name, &variant.SKU, &variant.IsActive,
		&variant.CreatedAt, &variant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting variant by ID %d: %v", ErrDatabaseError, variantID, err)
	}
	return variant, nil
}

func (r *variantRepository) GetActiveVariantsByProductID(executor SQLExecutor, productID int64) ([]models.ProductVariant, error) {
	variants := []models.ProductVariant{}
	query := `SELECT id, product_id, name, sku, is_active, created_at, updated_at
	          FROM product_variants
	          WHERE product_id = $1 AND is_active = TRUE
	          ORDER BY id`
	rows, err := executor.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying variants for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var variant models.ProductVariant
		if err := rows.Scan(
			&variant.ID, &variant.ProductID, &variant.Name, &variant.SKU, &variant.IsActive,
			&variant.CreatedAt, &variant.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning variant: %v", ErrDatabaseError, err)
		}
		variants = append(variants, variant)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating variant rows: %v", ErrDatabaseError, err)
	}
	return variants, nil
}

func (r *variantRepository) DeactivateVariants(executor SQLExecutor, variantIDs []int64) (int64, error) {
	if len(variantIDs) == 0 {
		return 0, nil
	}
	result, err := executor.Exec(
		`UPDATE product_variants SET is_active = FALSE, updated_at = $1 WHERE id = ANY($2)`,
		time.Now(), pq.Array(variantIDs),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: deactivating variants: %v", ErrDatabaseError, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

func (r *variantRepository) CountUsage(executor SQLExecutor, variantIDs []int64) (VariantUsage, error) {
	usage := VariantUsage{}
	if len(variantIDs) == 0 {
		return usage, nil
	}
	query := `SELECT
	            (SELECT COUNT(*) FROM stock_movements WHERE variant_id = ANY($1)),
	            (SELECT COUNT(*) FROM inventory_snapshots WHERE variant_id = ANY($1) AND (on_hand <> 0 OR on_order <> 0)),
	            (SELECT COUNT(*) FROM purchase_order_lines WHERE variant_id = ANY($1))`
	err := executor.QueryRow(query, pq.Array(variantIDs)).Scan(
		&usage.StockMovements, &usage.NonzeroSnapshots, &usage.PurchaseOrderLines,
	)
	if err != nil {
		return usage, fmt.Errorf("%w: counting variant usage: %v", ErrDatabaseError, err)
	}
	return usage, nil
}

// --- Attribute Value Methods ---

func (r *variantRepository) CreateAttributeValue(executor SQLExecutor, value *models.VariantAttributeValue) (int64, error) {
	query := `INSERT INTO variant_attribute_values (variant_id, attr_key, attr_type, text_value, number_value, selections)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id`
	err := executor.QueryRow(query,
		value.VariantID, value.AttrKey, value.AttrType, value.TextValue, value.NumberValue,
		pq.Array(value.Selections),
	).Scan(&value.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating attribute value '%s' for variant ID %d: %v", ErrDatabaseError, value.AttrKey, value.VariantID, err)
	}
	return value.ID, nil
}

func (r *variantRepository) GetAttributeValuesByVariantID(executor SQLExecutor, variantID int64) ([]models.VariantAttributeValue, error) {
	values := []models.VariantAttributeValue{}
	query := `SELECT id, variant_id, attr_key, attr_type, text_value, number_value, selections
	          FROM variant_attribute_values
	          WHERE variant_id = $1
	          ORDER BY attr_key`
	rows, err := executor.Query(query, variantID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying attribute values for variant ID %d: %v", ErrDatabaseError, variantID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var value models.VariantAttributeValue
		if err := rows.Scan(
			&value.ID, &value.VariantID, &value.AttrKey, &value.AttrType,
			&value.TextValue, &value.NumberValue, pq.Array(&value.Selections),
		); err != nil {
			return nil, fmt.Errorf("%w: scanning attribute value: %v", ErrDatabaseError, err)
		}
		values = append(values, value)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating attribute value rows: %v", ErrDatabaseError, err)
	}
	return values, nil
}

func (r *variantRepository) DeleteAttributeValuesByVariantID(executor SQLExecutor, variantID int64) (int64, error) {
	result, err := executor.Exec(`DELETE FROM variant_attribute_values WHERE variant_id = $1`, variantID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting attribute values for variant ID %d: %v", ErrDatabaseError, variantID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}
