package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog_backend/internal/models"

	"github.com/lib/pq"
)

// ProductRepository defines the interface for product-related database operations.
// The product row and its wholly owned children (packs, images, barcodes) live here;
// variants and bundle edges have their own repositories.
type ProductRepository interface {
	// Product row methods
	CreateProduct(executor SQLExecutor, product *models.Product) (int64, error)
	UpdateProduct(executor SQLExecutor, product *models.Product) error
	GetProductByID(executor SQLExecutor, organizationID, productID int64) (*models.Product, error)
	GetProductBySKU(executor SQLExecutor, organizationID int64, sku string) (*models.Product, error)
	GetProducts(organizationID int64, filters models.ProductFilters) ([]models.Product, int, error)
	SKUExists(executor SQLExecutor, organizationID int64, sku string, excludeProductID int64) (bool, error)
	CountProducts(executor SQLExecutor, organizationID int64) (int, error)

	// Pack methods (fully replaced on each update)
	CreatePack(executor SQLExecutor, pack *models.ProductPack) (int64, error)
	GetPacksByProductID(executor SQLExecutor, productID int64) ([]models.ProductPack, error)
	DeletePacksByProductID(executor SQLExecutor, productID int64) (int64, error)

	// Image methods
	CreateImage(executor SQLExecutor, image *models.ProductImage) (int64, error)
	GetImagesByProductID(executor SQLExecutor, productID int64) ([]models.ProductImage, error)
	DeleteImagesByProductID(executor SQLExecutor, productID int64) (int64, error)

	// Barcode methods
	CreateBarcode(executor SQLExecutor, barcode *models.ProductBarcode) (int64, error)
	GetBarcodesByProductID(executor SQLExecutor, productID int64) ([]models.ProductBarcode, error)
	DeleteBarcodesByProductID(executor SQLExecutor, productID int64) (int64, error)
	DeleteBarcodesByValues(executor SQLExecutor, productID int64, values []string) (int64, error)
	// FindExistingBarcodeValues probes both the product-level and pack-level
	// barcode namespaces of one organization and returns the candidate values
	// already taken, excluding rows owned by excludeProductID.
	FindExistingBarcodeValues(executor SQLExecutor, organizationID int64, values []string, excludeProductID int64) ([]string, error)
	// GetBarcodeStatuses returns the filtered product set with per-product
	// barcode counts, capped at maxRows. Used by bulk barcode generation.
	GetBarcodeStatuses(executor SQLExecutor, organizationID int64, filters models.ProductFilters, maxRows int) ([]models.ProductBarcodeStatus, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository.
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

// --- Product Row Methods ---

func (r *productRepository) CreateProduct(executor SQLExecutor, product *models.Product) (int64, error) {
	query := `INSERT INTO products
	            (organization_id, sku, name, category_id, supplier_id, base_unit_id, base_price_kgs,
	             description, photo_url, is_bundle, is_deleted, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          RETURNING id`
	currentTime := time.Now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = currentTime
	}
	product.UpdatedAt = currentTime

	err := executor.QueryRow(query,
		product.OrganizationID, product.SKU, product.Name, product.CategoryID, product.SupplierID,
		product.BaseUnitID, product.BasePriceKgs, product.Description, product.PhotoURL,
		product.IsBundle, product.IsDeleted, product.CreatedAt, product.UpdatedAt,
	).Scan(&product.ID)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: creating product SKU '%s' (constraint: %s)", ErrDuplicateKey, product.SKU, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating product: %v", ErrDatabaseError, err)
	}
	return product.ID, nil
}

func (r *productRepository) UpdateProduct(executor SQLExecutor, product *models.Product) error {
	query := `UPDATE products SET
	            sku = $1, name = $2, category_id = $3, supplier_id = $4, base_unit_id = $5,
	            base_price_kgs = $6, description = $7, photo_url = $8, is_bundle = $9,
	            is_deleted = $10, updated_at = $11
	          WHERE id = $12 AND organization_id = $13`
	result, err := executor.Exec(query,
		product.SKU, product.Name, product.CategoryID, product.SupplierID, product.BaseUnitID,
		product.BasePriceKgs, product.Description, product.PhotoURL, product.IsBundle,
		product.IsDeleted, time.Now(), product.ID, product.OrganizationID,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("%w: updating product SKU '%s' (constraint: %s)", ErrDuplicateKey, product.SKU, pqErr.Constraint)
		}
		return fmt.Errorf("%w: updating product ID %d: %v", ErrDatabaseError, product.ID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

const productColumns = `id, organization_id, sku, name, category_id, supplier_id, base_unit_id,
	            base_price_kgs, description, photo_url, is_bundle, is_deleted, created_at, updated_at`

func scanProduct(row interface {
	Scan(dest ...interface{}) error
}, product *models.Product) error {
	return row.Scan(
		&product.ID, &product.OrganizationID, &product.SKU, &product.Name, &product.CategoryID,
		&product.SupplierID, &product.BaseUnitID, &product.BasePriceKgs, &product.Description,
		&product.PhotoURL, &product.IsBundle, &product.IsDeleted, &product.CreatedAt, &product.UpdatedAt,
	)
}

func (r *productRepository) GetProductByID(executor SQLExecutor, organizationID, productID int64) (*models.Product, error) {
	product := &models.Product{}
	query := `SELECT ` + productColumns + `
	          FROM products
	          WHERE id = $1 AND organization_id = $2 AND is_deleted = FALSE`
	err := scanProduct(executor.QueryRow(query, productID, organizationID), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting product by ID %d: %v", ErrDatabaseError, productID, err)
	}
	return product, nil
}

func (r *productRepository) GetProductBySKU(executor SQLExecutor, organizationID int64, sku string) (*models.Product, error) {
	product := &models.Product{}
	query := `SELECT ` + productColumns + `
	          FROM products
	          WHERE organization_id = $1 AND sku = $2 AND is_deleted = FALSE`
	err := scanProduct(executor.QueryRow(query, organizationID, sku), product)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: getting product by SKU '%s': %v", ErrDatabaseError, sku, err)
	}
	return product, nil
}

func buildProductFilterConditions(organizationID int64, filters models.ProductFilters, conditions []string, args []interface{}) ([]string, []interface{}) {
	argCount := len(args) + 1
	conditions = append(conditions, fmt.Sprintf("p.organization_id = $%d", argCount))
	args = append(args, organizationID)
	argCount++

	conditions = append(conditions, "p.is_deleted = FALSE")

	if len(filters.IDs) > 0 {
		conditions = append(conditions, fmt.Sprintf("p.id = ANY($%d)", argCount))
		args = append(args, pq.Array(filters.IDs))
		argCount++
	}
	if filters.Search != nil && *filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(p.name ILIKE $%d OR p.sku ILIKE $%d)", argCount, argCount))
		args = append(args, "%"+*filters.Search+"%")
		argCount++
	}
	if filters.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argCount))
		args = append(args, *filters.CategoryID)
		argCount++
	}
	if filters.IsBundle != nil {
		conditions = append(conditions, fmt.Sprintf("p.is_bundle = $%d", argCount))
		args = append(args, *filters.IsBundle)
		argCount++
	}
	if filters.StoreID != nil {
		conditions = append(conditions, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM inventory_snapshots s WHERE s.product_id = p.id AND s.store_id = $%d)", argCount))
		args = append(args, *filters.StoreID)
	}
	return conditions, args
}

func (r *productRepository) GetProducts(organizationID int64, filters models.ProductFilters) ([]models.Product, int, error) {
	products := []models.Product{}
	totalCount := 0

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT
	    p.id, p.organization_id, p.sku, p.name, p.category_id, p.supplier_id, p.base_unit_id,
	    p.base_price_kgs, p.description, p.photo_url, p.is_bundle, p.is_deleted, p.created_at, p.updated_at,
	    pc.name AS category_name,
	    COUNT(*) OVER() AS total_count
	  FROM products p
	  LEFT JOIN product_categories pc ON p.category_id = pc.id`)

	conditions, args := buildProductFilterConditions(organizationID, filters, nil, nil)
	queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	queryBuilder.WriteString(" ORDER BY p.name")

	argCount := len(args) + 1
	if filters.PageSize > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1))
		page := filters.Page
		if page <= 0 {
			page = 1
		}
		args = append(args, filters.PageSize, (page-1)*filters.PageSize)
	}

	rows, err := r.db.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: querying products: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var product models.Product
		var categoryName sql.NullString
		if err := rows.Scan(
			&product.ID, &product.OrganizationID, &product.SKU, &product.Name, &product.CategoryID,
			&product.SupplierID, &product.BaseUnitID, &product.BasePriceKgs, &product.Description,
			&product.PhotoURL, &product.IsBundle, &product.IsDeleted, &product.CreatedAt, &product.UpdatedAt,
			&categoryName, &totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("%w: scanning product: %v", ErrDatabaseError, err)
		}
		if product.CategoryID != nil && categoryName.Valid {
			product.Category = &models.ProductCategory{
				ID:             *product.CategoryID,
				OrganizationID: product.OrganizationID,
				Name:           categoryName.String,
			}
		}
		products = append(products, product)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%w: iterating product rows: %v", ErrDatabaseError, err)
	}
	return products, totalCount, nil
}

func (r *productRepository) SKUExists(executor SQLExecutor, organizationID int64, sku string, excludeProductID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (
	            SELECT 1 FROM products
	            WHERE organization_id = $1 AND sku = $2 AND id <> $3
	          )`
	err := executor.QueryRow(query, organizationID, sku, excludeProductID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%w: checking SKU '%s' existence: %v", ErrDatabaseError, sku, err)
	}
	return exists, nil
}

func (r *productRepository) CountProducts(executor SQLExecutor, organizationID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM products WHERE organization_id = $1 AND is_deleted = FALSE`
	err := executor.QueryRow(query, organizationID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting products for organization %d: %v", ErrDatabaseError, organizationID, err)
	}
	return count, nil
}

// --- Pack Methods ---

func (r *productRepository) CreatePack(executor SQLExecutor, pack *models.ProductPack) (int64, error) {
	query := `INSERT INTO product_packs
	            (product_id, pack_name, pack_barcode, multiplier_to_base, allow_purchasing, allow_receiving, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)
	          RETURNING id`
	if pack.CreatedAt.IsZero() {
		pack.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query,
		pack.ProductID, pack.PackName, pack.PackBarcode, pack.MultiplierToBase,
		pack.AllowPurchasing, pack.AllowReceiving, pack.CreatedAt,
	).Scan(&pack.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: creating pack '%s' (constraint: %s)", ErrDuplicateKey, pack.PackName, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating pack for product ID %d: %v", ErrDatabaseError, pack.ProductID, err)
	}
	return pack.ID, nil
}

func (r *productRepository) GetPacksByProductID(executor SQLExecutor, productID int64) ([]models.ProductPack, error) {
	packs := []models.ProductPack{}
	query := `SELECT id, product_id, pack_name, pack_barcode, multiplier_to_base, allow_purchasing, allow_receiving, created_at
	          FROM product_packs
	          WHERE product_id = $1
	          ORDER BY id`
	rows, err := executor.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying packs for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var pack models.ProductPack
		if err := rows.Scan(
			&pack.ID, &pack.ProductID, &pack.PackName, &pack.PackBarcode, &pack.MultiplierToBase,
			&pack.AllowPurchasing, &pack.AllowReceiving, &pack.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning pack: %v", ErrDatabaseError, err)
		}
		packs = append(packs, pack)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating pack rows: %v", ErrDatabaseError, err)
	}
	return packs, nil
}

func (r *productRepository) DeletePacksByProductID(executor SQLExecutor, productID int64) (int64, error) {
	result, err := executor.Exec(`DELETE FROM product_packs WHERE product_id = $1`, productID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting packs for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

// --- Image Methods ---

func (r *productRepository) CreateImage(executor SQLExecutor, image *models.ProductImage) (int64, error) {
	query := `INSERT INTO product_images (product_id, url, position)
	          VALUES ($1, $2, $3)
	          RETURNING id`
	err := executor.QueryRow(query, image.ProductID, image.URL, image.Position).Scan(&image.ID)
	if err != nil {
		return 0, fmt.Errorf("%w: creating image for product ID %d: %v", ErrDatabaseError, image.ProductID, err)
	}
	return image.ID, nil
}

func (r *productRepository) GetImagesByProductID(executor SQLExecutor, productID int64) ([]models.ProductImage, error) {
	images := []models.ProductImage{}
	query := `SELECT id, product_id, url, position
	          FROM product_images
	          WHERE product_id = $1
	          ORDER BY position`
	rows, err := executor.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying images for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var image models.ProductImage
		if err := rows.Scan(&image.ID, &image.ProductID, &image.URL, &image.Position); err != nil {
			return nil, fmt.Errorf("%w: scanning image: %v", ErrDatabaseError, err)
		}
		images = append(images, image)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating image rows: %v", ErrDatabaseError, err)
	}
	return images, nil
}

func (r *productRepository) DeleteImagesByProductID(executor SQLExecutor, productID int64) (int64, error) {
	result, err := executor.Exec(`DELETE FROM product_images WHERE product_id = $1`, productID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting images for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

// --- Barcode Methods ---

func (r *productRepository) CreateBarcode(executor SQLExecutor, barcode *models.ProductBarcode) (int64, error) {
	query := `INSERT INTO product_barcodes (product_id, value, created_at)
	          VALUES ($1, $2, $3)
	          RETURNING id`
	if barcode.CreatedAt.IsZero() {
		barcode.CreatedAt = time.Now()
	}
	err := executor.QueryRow(query, barcode.ProductID, barcode.Value, barcode.CreatedAt).Scan(&barcode.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return 0, fmt.Errorf("%w: creating barcode '%s' (constraint: %s)", ErrDuplicateKey, barcode.Value, pqErr.Constraint)
		}
		return 0, fmt.Errorf("%w: creating barcode for product ID %d: %v", ErrDatabaseError, barcode.ProductID, err)
	}
	return barcode.ID, nil
}

func (r *productRepository) GetBarcodesByProductID(executor SQLExecutor, productID int64) ([]models.ProductBarcode, error) {
	barcodes := []models.ProductBarcode{}
	query := `SELECT id, product_id, value, created_at
	          FROM product_barcodes
	          WHERE product_id = $1
	          ORDER BY id`
	rows, err := executor.Query(query, productID)
	if err != nil {
		return nil, fmt.Errorf("%w: querying barcodes for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var barcode models.ProductBarcode
		if err := rows.Scan(&barcode.ID, &barcode.ProductID, &barcode.Value, &barcode.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scanning barcode: %v", ErrDatabaseError, err)
		}
		barcodes = append(barcodes, barcode)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating barcode rows: %v", ErrDatabaseError, err)
	}
	return barcodes, nil
}

func (r *productRepository) DeleteBarcodesByProductID(executor SQLExecutor, productID int64) (int64, error) {
	result, err := executor.Exec(`DELETE FROM product_barcodes WHERE product_id = $1`, productID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting barcodes for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

func (r *productRepository) DeleteBarcodesByValues(executor SQLExecutor, productID int64, values []string) (int64, error) {
	if len(values) == 0 {
		return 0, nil
	}
	result, err := executor.Exec(
		`DELETE FROM product_barcodes WHERE product_id = $1 AND value = ANY($2)`,
		productID, pq.Array(values),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting barcodes by value for product ID %d: %v", ErrDatabaseError, productID, err)
	}
	rowsAffected, _ := result.RowsAffected()
	return rowsAffected, nil
}

func (r *productRepository) FindExistingBarcodeValues(executor SQLExecutor, organizationID int64, values []string, excludeProductID int64) ([]string, error) {
	taken := []string{}
	if len(values) == 0 {
		return taken, nil
	}
	// Both namespaces share one uniqueness domain: product-level barcodes and
	// pack-level barcodes.
	query := `SELECT b.value
	          FROM product_barcodes b
	          JOIN products p ON b.product_id = p.id
	          WHERE p.organization_id = $1 AND b.value = ANY($2) AND b.product_id <> $3
	          UNION
	          SELECT pk.pack_barcode
	          FROM product_packs pk
	          JOIN products p ON pk.product_id = p.id
	          WHERE p.organization_id = $1 AND pk.pack_barcode = ANY($2) AND pk.product_id <> $3`
	rows, err := executor.Query(query, organizationID, pq.Array(values), excludeProductID)
	if err != nil {
		return nil, fmt.Errorf("%w: probing barcode namespace for organization %d: %v", ErrDatabaseError, organizationID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, fmt.Errorf("%w: scanning taken barcode value: %v", ErrDatabaseError, err)
		}
		taken = append(taken, value)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating taken barcode values: %v", ErrDatabaseError, err)
	}
	return taken, nil
}

func (r *productRepository) GetBarcodeStatuses(executor SQLExecutor, organizationID int64, filters models.ProductFilters, maxRows int) ([]models.ProductBarcodeStatus, error) {
	statuses := []models.ProductBarcodeStatus{}

	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT p.id, p.sku,
	    (SELECT COUNT(*) FROM product_barcodes b WHERE b.product_id = p.id) AS barcode_count
	  FROM products p`)

	conditions, args := buildProductFilterConditions(organizationID, filters, nil, nil)
	queryBuilder.WriteString(" WHERE " + strings.Join(conditions, " AND "))
	queryBuilder.WriteString(" ORDER BY p.id")
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)+1))
	args = append(args, maxRows)

	rows, err := executor.Query(queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying barcode statuses: %v", ErrDatabaseError, err)
	}
	defer rows.Close()

	for rows.Next() {
		var status models.ProductBarcodeStatus
		if err := rows.Scan(&status.ProductID, &status.SKU, &status.BarcodeCount); err != nil {
			return nil, fmt.Errorf("%w: scanning barcode status: %v", ErrDatabaseError, err)
		}
		statuses = append(statuses, status)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating barcode status rows: %v", ErrDatabaseError, err)
	}
	return statuses, nil
}
