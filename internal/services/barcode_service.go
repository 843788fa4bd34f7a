package services

import (
	"context"
	"errors"
	"fmt"

	"catalog_backend/internal/models"
	"catalog_backend/internal/repositories"

	"github.com/google/uuid"
)

// maxBarcodeGenerationAttempts bounds the generate-and-probe loop of
// generateUniqueBarcodeValue.
const maxBarcodeGenerationAttempts = 10

// --- DTOs ---

// GenerateBarcodeRequest asks for one new barcode on a product. With Force
// set, existing barcodes are replaced atomically; without it, a product that
// already has barcodes is rejected.
type GenerateBarcodeRequest struct {
	Mode  string `json:"mode"`
	Force bool   `json:"force"`
}

// BulkGenerateBarcodesRequest scans a filtered product set and generates a
// value for every product that currently has no barcode at all.
type BulkGenerateBarcodesRequest struct {
	Mode    string                `json:"mode"`
	Filters models.ProductFilters `json:"filters"`
}

// BulkGenerateBarcodesResult reports the outcome of one bulk generation run.
type BulkGenerateBarcodesResult struct {
	Scanned           int     `json:"scanned"`
	Generated         int     `json:"generated"`
	Skipped           int     `json:"skipped"`
	TouchedProductIDs []int64 `json:"touched_product_ids"`
}

// --- BarcodeService Interface ---

type BarcodeService interface {
	GenerateProductBarcode(ctx context.Context, organizationID int64, actorID *int64, productID int64, req GenerateBarcodeRequest) (*models.ProductBarcode, error)
	BulkGenerateProductBarcodes(ctx context.Context, organizationID int64, actorID *int64, req BulkGenerateBarcodesRequest) (*BulkGenerateBarcodesResult, error)
}

// --- barcodeService Implementation ---

type barcodeService struct {
	txManager   repositories.TxManager
	productRepo repositories.ProductRepository
	auditRepo   repositories.AuditRepository
	generator   BarcodeValueGenerator
	bulkRowCap  int
}

// NewBarcodeService creates a new instance of BarcodeService. bulkRowCap
// bounds how many products one bulk generation call may scan.
func NewBarcodeService(
	txManager repositories.TxManager,
	productRepo repositories.ProductRepository,
	auditRepo repositories.AuditRepository,
	generator BarcodeValueGenerator,
	bulkRowCap int,
) BarcodeService {
	return &barcodeService{
		txManager:   txManager,
		productRepo: productRepo,
		auditRepo:   auditRepo,
		generator:   generator,
		bulkRowCap:  bulkRowCap,
	}
}

// generateUniqueBarcodeValue delegates to the symbology generator, probes the
// organization's barcode namespaces for a collision, and regenerates on a
// hit. The retry is bounded; exhausting it surfaces a typed failure instead
// of looping.
func (s *barcodeService) generateUniqueBarcodeValue(executor repositories.SQLExecutor, organizationID int64, mode string) (string, error) {
	if mode == "" {
		mode = BarcodeModeEAN13
	}
	for attempt := 0; attempt < maxBarcodeGenerationAttempts; attempt++ {
		value, err := s.generator.Generate(mode)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrBarcodeGenerationFailed, err)
		}
		taken, err := s.productRepo.FindExistingBarcodeValues(executor, organizationID, []string{value}, 0)
		if err != nil {
			return "", fmt.Errorf("failed to probe barcode namespace: %w", err)
		}
		if len(taken) == 0 {
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: no free value after %d attempts", ErrBarcodeGenerationFailed, maxBarcodeGenerationAttempts)
}

func (s *barcodeService) GenerateProductBarcode(ctx context.Context, organizationID int64, actorID *int64, productID int64, req GenerateBarcodeRequest) (*models.ProductBarcode, error) {
	var created *models.ProductBarcode

	err := s.txManager.WithinTransaction(ctx, func(executor repositories.SQLExecutor) error {
		product, err := s.productRepo.GetProductByID(executor, organizationID, productID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: product ID %d", ErrProductNotFound, productID)
			}
			return fmt.Errorf("failed to load product for barcode generation: %w", err)
		}

		existing, err := s.productRepo.GetBarcodesByProductID(executor, product.ID)
		if err != nil {
			return fmt.Errorf("failed to load existing barcodes: %w", err)
		}
		if len(existing) > 0 {
			if !req.Force {
				return fmt.Errorf("%w: product ID %d already has %d barcode(s)", ErrProductBarcodeExists, product.ID, len(existing))
			}
			// Atomic replace: the delete and the insert commit together, so no
			// empty-barcode window is ever visible outside this transaction.
			if _, err := s.productRepo.DeleteBarcodesByProductID(executor, product.ID); err != nil {
				return fmt.Errorf("failed to delete existing barcodes: %w", err)
			}
		}

		value, err := s.generateUniqueBarcodeValue(executor, organizationID, req.Mode)
		if err != nil {
			return err
		}
		barcode := &models.ProductBarcode{ProductID: product.ID, Value: value}
		if _, err := s.productRepo.CreateBarcode(executor, barcode); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("%w: barcode '%s'", ErrUniqueConstraintViolation, value)
			}
			return fmt.Errorf("failed to insert generated barcode: %w", err)
		}
		created = barcode

		entry := &models.AuditLog{
			OrganizationID: organizationID,
			ActorID:        actorID,
			Action:         "generate_barcode",
			Entity:         "product",
			EntityID:       product.ID,
			After:          marshalSnapshot(barcode),
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
	return created, nil
}

func (s *barcodeService) BulkGenerateProductBarcodes(ctx context.Context, organizationID int64, actorID *int64, req BulkGenerateBarcodesRequest) (*BulkGenerateBarcodesResult, error) {
	result := &BulkGenerateBarcodesResult{TouchedProductIDs: []int64{}}

	err := s.txManager.WithinTransaction(ctx, func(executor repositories.SQLExecutor) error {
		statuses, err := s.productRepo.GetBarcodeStatuses(executor, organizationID, req.Filters, s.bulkRowCap)
		if err != nil {
			return fmt.Errorf("failed to scan products for bulk barcode generation: %w", err)
		}

		for _, status := range statuses {
			result.Scanned++
			// Only products with zero barcodes get a value; the rest are
			// counted, not errored.
			if status.BarcodeCount > 0 {
				result.Skipped++
				continue
			}
			value, err := s.generateUniqueBarcodeValue(executor, organizationID, req.Mode)
			if err != nil {
				return err
			}
			barcode := &models.ProductBarcode{ProductID: status.ProductID, Value: value}
			if _, err := s.productRepo.CreateBarcode(executor, barcode); err != nil {
				if errors.Is(err, repositories.ErrDuplicateKey) {
					return fmt.Errorf("%w: barcode '%s'", ErrUniqueConstraintViolation, value)
				}
				return fmt.Errorf("failed to insert barcode for product ID %d: %w", status.ProductID, err)
			}
			result.Generated++
			result.TouchedProductIDs = append(result.TouchedProductIDs, status.ProductID)
		}

		entry := &models.AuditLog{
			OrganizationID: organizationID,
			ActorID:        actorID,
			Action:         "bulk_generate_barcodes",
			Entity:         "product_barcode",
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
