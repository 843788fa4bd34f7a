package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"catalog_backend/internal/models"
	"catalog_backend/internal/repositories"

	"github.com/google/uuid"
)

// defaultImportTimeout bounds the whole import batch; exceeding it aborts the
// transaction with no partial commit.
const defaultImportTimeout = 120 * time.Second

// Import modes.
const (
	ImportModeFull           = "full"
	ImportModeUpdateSelected = "update_selected"
)

// Import field names accepted in an updateMask.
const (
	ImportFieldName        = "name"
	ImportFieldCategory    = "category"
	ImportFieldUnit        = "base_unit_id"
	ImportFieldPrice       = "base_price_kgs"
	ImportFieldDescription = "description"
	ImportFieldSupplier    = "supplier_id"
	ImportFieldBarcodes    = "barcodes"
	ImportFieldCost        = "cost"
	ImportFieldMinStock    = "min_stock"
)

// Row actions reported back per SKU.
const (
	ImportActionCreated = "created"
	ImportActionUpdated = "updated"
	ImportActionSkipped = "skipped"
)

// --- Import DTOs ---

// ImportRow is one incoming catalog row, keyed by SKU. Nil pointer fields are
// "not supplied" and never touch existing data.
type ImportRow struct {
	SKU              string   `json:"sku"`
	Name             string   `json:"name"`
	Category         *string  `json:"category"`
	BaseUnitID       *int64   `json:"base_unit_id"`
	BasePriceKgs     *float64 `json:"base_price_kgs"`
	Description      *string  `json:"description"`
	SupplierID       *int64   `json:"supplier_id"`
	Barcodes         []string `json:"barcodes"`
	AvgCostKgs       *float64 `json:"avg_cost_kgs"`
	PurchasePriceKgs *float64 `json:"purchase_price_kgs"`
	MinStock         *float64 `json:"min_stock"`
	StoreID          *int64   `json:"store_id"`
}

// ImportProductsRequest is the full input of importProducts.
type ImportProductsRequest struct {
	Rows       []ImportRow `json:"rows" binding:"required"`
	Mode       string      `json:"mode"`
	UpdateMask []string    `json:"update_mask"`
}

// ImportRowResult reports what happened to one row.
type ImportRowResult struct {
	SKU    string `json:"sku"`
	Action string `json:"action"`
}

// ImportProductsResult is the per-row report of a committed import.
type ImportProductsResult struct {
	Rows []ImportRowResult `json:"rows"`
}

// --- ImportService Interface ---

// ImportService merges catalog rows into the tenant's catalog. The whole
// batch is one transaction: any malformed row rolls every row back.
type ImportService interface {
	ImportProducts(ctx context.Context, organizationID int64, actorID *int64, req ImportProductsRequest) (*ImportProductsResult, error)
}

// --- importService Implementation ---

type importService struct {
	txManager     repositories.TxManager
	productRepo   repositories.ProductRepository
	inventoryRepo repositories.InventoryRepository
	referenceRepo repositories.ReferenceRepository
	costRepo      repositories.CostRepository
	auditRepo     repositories.AuditRepository
	guard         *integrityGuard
	timeout       time.Duration
}

// NewImportService creates a new instance of ImportService. A non-positive
// timeout falls back to the default batch bound.
func NewImportService(
	txManager repositories.TxManager,
	productRepo repositories.ProductRepository,
	variantRepo repositories.VariantRepository,
	bundleRepo repositories.BundleRepository,
	inventoryRepo repositories.InventoryRepository,
	referenceRepo repositories.ReferenceRepository,
	costRepo repositories.CostRepository,
	auditRepo repositories.AuditRepository,
	timeout time.Duration,
) ImportService {
	if timeout <= 0 {
		timeout = defaultImportTimeout
	}
	return &importService{
		txManager:     txManager,
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
		referenceRepo: referenceRepo,
		costRepo:      costRepo,
		auditRepo:     auditRepo,
		guard:         newIntegrityGuard(productRepo, variantRepo, bundleRepo, inventoryRepo),
		timeout:       timeout,
	}
}

func (s *importService) ImportProducts(ctx context.Context, organizationID int64, actorID *int64, req ImportProductsRequest) (*ImportProductsResult, error) {
	mode := req.Mode
	if mode == "" {
		mode = ImportModeFull
	}
	if mode != ImportModeFull && mode != ImportModeUpdateSelected {
		return nil, fmt.Errorf("%w: unknown import mode '%s'", ErrImportRowInvalid, mode)
	}
	mask, err := buildUpdateMask(mode, req.UpdateMask)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	result := &ImportProductsResult{Rows: make([]ImportRowResult, 0, len(req.Rows))}

	err = s.txManager.WithinTransaction(ctx, func(executor repositories.SQLExecutor) error {
		// Rows are processed strictly in order so error attribution and
		// last-row-wins semantics for repeated SKUs stay predictable.
		for i, row := range req.Rows {
			action, err := s.applyRow(executor, organizationID, mode, mask, row)
			if err != nil {
				return fmt.Errorf("row %d (sku '%s'): %w", i+1, strings.TrimSpace(row.SKU), err)
			}
			result.Rows = append(result.Rows, ImportRowResult{SKU: NormalizeIdentifier(row.SKU), Action: action})
		}

		entry := &models.AuditLog{
			OrganizationID: organizationID,
			ActorID:        actorID,
			Action:         "import",
			Entity:         "product_batch",
			EntityID:       0,
			After:          marshalSnapshot(result),
			RequestID:      uuid.NewString(),
		}
		if _, err := s.auditRepo.WriteAuditLog(executor, entry); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyRow merges one row and reports its action.
func (s *importService) applyRow(executor repositories.SQLExecutor, organizationID int64, mode string, mask map[string]bool, row ImportRow) (string, error) {
	sku := NormalizeIdentifier(row.SKU)
	if sku == "" {
		return "", fmt.Errorf("%w: sku is mandatory", ErrSKURequired)
	}

	existing, err := s.productRepo.GetProductBySKU(executor, organizationID, sku)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return "", fmt.Errorf("failed to look up SKU: %w", err)
	}

	if existing == nil {
		if mode == ImportModeUpdateSelected {
			return ImportActionSkipped, nil
		}
		if err := s.createFromRow(executor, organizationID, sku, row); err != nil {
			return "", err
		}
		return ImportActionCreated, nil
	}

	if err := s.updateFromRow(executor, organizationID, mask, existing, row); err != nil {
		return "", err
	}
	return ImportActionUpdated, nil
}

func (s *importService) createFromRow(executor repositories.SQLExecutor, organizationID int64, sku string, row ImportRow) error {
	name := strings.TrimSpace(row.Name)
	if name == "" {
		return fmt.Errorf("%w: name is mandatory for new products", ErrNameRequired)
	}
	if row.BaseUnitID == nil || *row.BaseUnitID <= 0 {
		return fmt.Errorf("%w: base unit is mandatory for new products", ErrUnitRequired)
	}
	if err := s.validateUnit(executor, organizationID, *row.BaseUnitID); err != nil {
		return err
	}
	if err := s.validateSupplier(executor, organizationID, row.SupplierID); err != nil {
		return err
	}

	var basePrice float64
	if row.BasePriceKgs != nil {
		normalized, err := NormalizeFiniteNonNegative(*row.BasePriceKgs, ErrImportRowInvalid)
		if err != nil {
			return err
		}
		basePrice = normalized
	}

	categoryID, err := s.resolveCategory(executor, organizationID, row.Category)
	if err != nil {
		return err
	}

	product := &models.Product{
		OrganizationID: organizationID,
		SKU:            sku,
		Name:           name,
		CategoryID:     categoryID,
		SupplierID:     row.SupplierID,
		BaseUnitID:     *row.BaseUnitID,
		BasePriceKgs:   basePrice,
		Description:    row.Description,
	}
	if _, err := s.productRepo.CreateProduct(executor, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return fmt.Errorf("%w: SKU '%s'", ErrUniqueConstraintViolation, sku)
		}
		return fmt.Errorf("failed to insert product: %w", err)
	}

	if len(row.Barcodes) > 0 {
		barcodes, err := NormalizeIdentifierSet(row.Barcodes, ErrDuplicateBarcode)
		if err != nil {
			return err
		}
		if err := s.guard.checkBarcodeNamespace(executor, organizationID, barcodes, nil, product.ID); err != nil {
			return err
		}
		for _, value := range barcodes {
			barcode := models.ProductBarcode{ProductID: product.ID, Value: value}
			if _, err := s.productRepo.CreateBarcode(executor, &barcode); err != nil {
				if errors.Is(err, repositories.ErrDuplicateKey) {
					return fmt.Errorf("%w: barcode '%s'", ErrUniqueConstraintViolation, value)
				}
				return fmt.Errorf("failed to insert barcode: %w", err)
			}
		}
	}

	if err := s.upsertRowCost(executor, organizationID, product.ID, row); err != nil {
		return err
	}
	if err := s.upsertRowMinStock(executor, organizationID, product.ID, row); err != nil {
		return err
	}
	if err := s.inventoryRepo.EnsureBaseSnapshots(executor, organizationID, product.ID); err != nil {
		return fmt.Errorf("failed to ensure base snapshots: %w", err)
	}
	return nil
}

func (s *importService) updateFromRow(executor repositories.SQLExecutor, organizationID int64, mask map[string]bool, existing *models.Product, row ImportRow) error {
	product := *existing

	if mask[ImportFieldName] {
		if name := strings.TrimSpace(row.Name); name != "" {
			product.Name = name
		}
	}
	if mask[ImportFieldUnit] && row.BaseUnitID != nil {
		if *row.BaseUnitID <= 0 {
			return fmt.Errorf("%w: base unit ID must be positive", ErrImportRowInvalid)
		}
		if err := s.validateUnit(executor, organizationID, *row.BaseUnitID); err != nil {
			return err
		}
		if err := s.guard.checkUnitChange(executor, existing, *row.BaseUnitID); err != nil {
			return err
		}
		product.BaseUnitID = *row.BaseUnitID
	}
	if mask[ImportFieldPrice] && row.BasePriceKgs != nil {
		normalized, err := NormalizeFiniteNonNegative(*row.BasePriceKgs, ErrImportRowInvalid)
		if err != nil {
			return err
		}
		product.BasePriceKgs = normalized
	}
	if mask[ImportFieldCategory] && row.Category != nil {
		categoryID, err := s.resolveCategory(executor, organizationID, row.Category)
		if err != nil {
			return err
		}
		product.CategoryID = categoryID
	}
	if mask[ImportFieldDescription] && row.Description != nil {
		product.Description = row.Description
	}
	if mask[ImportFieldSupplier] && row.SupplierID != nil {
		if err := s.validateSupplier(executor, organizationID, row.SupplierID); err != nil {
			return err
		}
		product.SupplierID = row.SupplierID
	}

	if err := s.productRepo.UpdateProduct(executor, &product); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return fmt.Errorf("%w: SKU '%s'", ErrUniqueConstraintViolation, product.SKU)
		}
		return fmt.Errorf("failed to update product row: %w", err)
	}

	if mask[ImportFieldBarcodes] && row.Barcodes != nil {
		if err := s.reconcileBarcodes(executor, organizationID, product.ID, row.Barcodes); err != nil {
			return err
		}
	}
	if mask[ImportFieldCost] {
		if err := s.upsertRowCost(executor, organizationID, product.ID, row); err != nil {
			return err
		}
	}
	if mask[ImportFieldMinStock] {
		if err := s.upsertRowMinStock(executor, organizationID, product.ID, row); err != nil {
			return err
		}
	}
	if err := s.inventoryRepo.EnsureBaseSnapshots(executor, organizationID, product.ID); err != nil {
		return fmt.Errorf("failed to ensure base snapshots: %w", err)
	}
	return nil
}

// reconcileBarcodes applies the symmetric difference between the stored and
// incoming barcode sets: removed values are deleted, added values inserted,
// unchanged rows keep their ids.
func (s *importService) reconcileBarcodes(executor repositories.SQLExecutor, organizationID, productID int64, raw []string) error {
	incoming, err := NormalizeIdentifierSet(raw, ErrDuplicateBarcode)
	if err != nil {
		return err
	}
	incomingSet := make(map[string]bool, len(incoming))
	for _, value := range incoming {
		incomingSet[value] = true
	}

	current, err := s.productRepo.GetBarcodesByProductID(executor, productID)
	if err != nil {
		return fmt.Errorf("failed to load current barcodes: %w", err)
	}
	currentSet := make(map[string]bool, len(current))
	for _, barcode := range current {
		currentSet[barcode.Value] = true
	}

	removed := []string{}
	for _, barcode := range current {
		if !incomingSet[barcode.Value] {
			removed = append(removed, barcode.Value)
		}
	}
	added := []string{}
	for _, value := range incoming {
		if !currentSet[value] {
			added = append(added, value)
		}
	}

	if len(removed) > 0 {
		if _, err := s.productRepo.DeleteBarcodesByValues(executor, productID, removed); err != nil {
			return fmt.Errorf("failed to delete removed barcodes: %w", err)
		}
	}
	if len(added) > 0 {
		if err := s.guard.checkBarcodeNamespace(executor, organizationID, added, nil, productID); err != nil {
			return err
		}
		for _, value := range added {
			barcode := models.ProductBarcode{ProductID: productID, Value: value}
			if _, err := s.productRepo.CreateBarcode(executor, &barcode); err != nil {
				if errors.Is(err, repositories.ErrDuplicateKey) {
					return fmt.Errorf("%w: barcode '%s'", ErrUniqueConstraintViolation, value)
				}
				return fmt.Errorf("failed to insert barcode: %w", err)
			}
		}
	}
	return nil
}

func (s *importService) upsertRowCost(executor repositories.SQLExecutor, organizationID, productID int64, row ImportRow) error {
	raw := row.AvgCostKgs
	if raw == nil {
		raw = row.PurchasePriceKgs
	}
	if raw == nil {
		return nil
	}
	cost, err := NormalizeFiniteNonNegative(*raw, ErrImportRowInvalid)
	if err != nil {
		return err
	}
	record := &models.ProductCost{
		OrganizationID: organizationID,
		ProductID:      productID,
		VariantKey:     models.CostVariantKeyBase,
		CostKgs:        cost,
		CostBasisQty:   1,
	}
	if err := s.costRepo.UpsertCost(executor, record); err != nil {
		return fmt.Errorf("failed to upsert product cost: %w", err)
	}
	return nil
}

func (s *importService) upsertRowMinStock(executor repositories.SQLExecutor, organizationID, productID int64, row ImportRow) error {
	if row.MinStock == nil {
		return nil
	}
	minStock, err := NormalizeFiniteNonNegative(*row.MinStock, ErrImportRowInvalid)
	if err != nil {
		return err
	}
	if row.StoreID == nil || *row.StoreID <= 0 {
		return fmt.Errorf("%w: min_stock requires a target store", ErrImportRowInvalid)
	}
	exists, err := s.inventoryRepo.StoreExists(executor, organizationID, *row.StoreID)
	if err != nil {
		return fmt.Errorf("failed to check store: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: store ID %d not found", ErrImportRowInvalid, *row.StoreID)
	}
	if err := s.inventoryRepo.UpsertMinStock(executor, organizationID, *row.StoreID, productID, minStock); err != nil {
		return fmt.Errorf("failed to upsert min stock: %w", err)
	}
	return nil
}

func (s *importService) validateUnit(executor repositories.SQLExecutor, organizationID, unitID int64) error {
	exists, err := s.referenceRepo.UnitExists(executor, organizationID, unitID)
	if err != nil {
		return fmt.Errorf("failed to check unit: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: unit ID %d", ErrUnitNotFound, unitID)
	}
	return nil
}

func (s *importService) validateSupplier(executor repositories.SQLExecutor, organizationID int64, supplierID *int64) error {
	if supplierID == nil {
		return nil
	}
	exists, err := s.referenceRepo.SupplierExists(executor, organizationID, *supplierID)
	if err != nil {
		return fmt.Errorf("failed to check supplier: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: supplier ID %d", ErrSupplierNotFound, *supplierID)
	}
	return nil
}

func (s *importService) resolveCategory(executor repositories.SQLExecutor, organizationID int64, category *string) (*int64, error) {
	if category == nil {
		return nil, nil
	}
	name := strings.TrimSpace(*category)
	if name == "" {
		return nil, nil
	}
	id, err := s.referenceRepo.EnsureCategory(executor, organizationID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure category '%s': %w", name, err)
	}
	return &id, nil
}

// buildUpdateMask resolves which fields a row may touch. Full mode covers
// every supported field; update_selected requires an explicit, known mask.
func buildUpdateMask(mode string, updateMask []string) (map[string]bool, error) {
	known := map[string]bool{
		ImportFieldName:        true,
		ImportFieldCategory:    true,
		ImportFieldUnit:        true,
		ImportFieldPrice:       true,
		ImportFieldDescription: true,
		ImportFieldSupplier:    true,
		ImportFieldBarcodes:    true,
		ImportFieldCost:        true,
		ImportFieldMinStock:    true,
	}
	if mode == ImportModeFull {
		return known, nil
	}
	if len(updateMask) == 0 {
		return nil, fmt.Errorf("%w: update_selected mode requires a non-empty update mask", ErrImportRowInvalid)
	}
	mask := make(map[string]bool, len(updateMask))
	for _, field := range updateMask {
		field = strings.TrimSpace(field)
		if !known[field] {
			return nil, fmt.Errorf("%w: unknown update mask field '%s'", ErrImportRowInvalid, field)
		}
		mask[field] = true
	}
	return mask, nil
}
