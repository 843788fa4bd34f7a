package services

import (
	"errors"
	"fmt"

	"catalog_backend/internal/models"
	"catalog_backend/internal/repositories"
)

// integrityGuard evaluates the cross-entity invariants of a catalog mutation
// before the corresponding write commits. Every check runs inside the
// mutation's transaction, so reject decisions observe the exact row set being
// committed.
type integrityGuard struct {
	productRepo   repositories.ProductRepository
	variantRepo   repositories.VariantRepository
	bundleRepo    repositories.BundleRepository
	inventoryRepo repositories.InventoryRepository
}

func newIntegrityGuard(
	productRepo repositories.ProductRepository,
	variantRepo repositories.VariantRepository,
	bundleRepo repositories.BundleRepository,
	inventoryRepo repositories.InventoryRepository,
) *integrityGuard {
	return &integrityGuard{
		productRepo:   productRepo,
		variantRepo:   variantRepo,
		bundleRepo:    bundleRepo,
		inventoryRepo: inventoryRepo,
	}
}

// checkUnitChange rejects a base-unit change on a product that already has
// stock movement history.
func (g *integrityGuard) checkUnitChange(executor repositories.SQLExecutor, prior *models.Product, newUnitID int64) error {
	if prior.BaseUnitID == newUnitID {
		return nil
	}
	count, err := g.inventoryRepo.CountMovementsByProductID(executor, prior.ID)
	if err != nil {
		return fmt.Errorf("failed to count stock movements for unit-change guard: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: product ID %d has %d stock movement(s)", ErrUnitChangeNotAllowed, prior.ID, count)
	}
	return nil
}

// checkVariantDeactivation rejects deactivation of variants referenced by
// stock movements, nonzero snapshots or purchase-order lines. The whole
// mutation fails; there is no partial deactivation.
func (g *integrityGuard) checkVariantDeactivation(executor repositories.SQLExecutor, variantIDs []int64) error {
	if len(variantIDs) == 0 {
		return nil
	}
	usage, err := g.variantRepo.CountUsage(executor, variantIDs)
	if err != nil {
		return fmt.Errorf("failed to count variant references: %w", err)
	}
	if usage.Referenced() {
		return fmt.Errorf("%w: %d movement(s), %d nonzero snapshot(s), %d purchase line(s)",
			ErrVariantInUse, usage.StockMovements, usage.NonzeroSnapshots, usage.PurchaseOrderLines)
	}
	return nil
}

// validateBundleComponents resolves and validates the component set of a
// bundle: positive integer quantities, no self-reference, no duplicate
// (product, variant) keys, component products existing and not tombstoned,
// component variants belonging to the stated product and active. A bundle
// resolving to zero components is rejected.
func (g *integrityGuard) validateBundleComponents(executor repositories.SQLExecutor, organizationID, bundleProductID int64, inputs []BundleComponentInput) ([]models.BundleComponent, error) {
	components := make([]models.BundleComponent, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))

	for _, input := range inputs {
		quantity, err := NormalizePositiveInt(input.Quantity, ErrBundleComponentInvalid)
		if err != nil {
			return nil, err
		}
		if input.ComponentProductID == bundleProductID {
			return nil, fmt.Errorf("%w: bundle cannot contain itself", ErrBundleComponentInvalid)
		}

		key := fmt.Sprintf("%d", input.ComponentProductID)
		if input.ComponentVariantID != nil {
			key = fmt.Sprintf("%d:%d", input.ComponentProductID, *input.ComponentVariantID)
		}
		if seen[key] {
			return nil, fmt.Errorf("%w: component (%s)", ErrBundleComponentDuplicate, key)
		}
		seen[key] = true

		_, err = g.productRepo.GetProductByID(executor, organizationID, input.ComponentProductID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, fmt.Errorf("%w: component product ID %d missing or archived", ErrBundleComponentInvalid, input.ComponentProductID)
			}
			return nil, fmt.Errorf("failed to load bundle component product: %w", err)
		}

		if input.ComponentVariantID != nil {
			variant, err := g.variantRepo.GetVariantByID(executor, *input.ComponentVariantID)
			if err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return nil, fmt.Errorf("%w: component variant ID %d not found", ErrBundleComponentInvalid, *input.ComponentVariantID)
				}
				return nil, fmt.Errorf("failed to load bundle component variant: %w", err)
			}
			if variant.ProductID != input.ComponentProductID || !variant.IsActive {
				return nil, fmt.Errorf("%w: variant ID %d does not belong to product %d or is inactive", ErrBundleComponentInvalid, variant.ID, input.ComponentProductID)
			}
		}

		components = append(components, models.BundleComponent{
			BundleProductID:    bundleProductID,
			ComponentProductID: input.ComponentProductID,
			ComponentVariantID: input.ComponentVariantID,
			Quantity:           quantity,
		})
	}

	if len(components) == 0 {
		return nil, fmt.Errorf("%w: a bundle needs at least one component", ErrBundleEmpty)
	}
	return components, nil
}

// syncBundleComponents writes a validated component set. replace mode deletes
// the existing edges first (update path); create-only mode inserts directly
// (initial create and duplication, where no prior edges exist).
func (g *integrityGuard) syncBundleComponents(executor repositories.SQLExecutor, components []models.BundleComponent, bundleProductID int64, replace bool) error {
	if replace {
		if _, err := g.bundleRepo.DeleteComponentsByBundleID(executor, bundleProductID); err != nil {
			return fmt.Errorf("failed to clear bundle components: %w", err)
		}
	}
	for i := range components {
		components[i].BundleProductID = bundleProductID
		if _, err := g.bundleRepo.CreateComponent(executor, &components[i]); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("%w: component product %d", ErrBundleComponentDuplicate, components[i].ComponentProductID)
			}
			return fmt.Errorf("failed to insert bundle component: %w", err)
		}
	}
	return nil
}

// checkBarcodeNamespace probes the organization-wide namespaces for the
// candidate product and pack barcode values, excluding the product being
// updated, and rejects on any hit.
func (g *integrityGuard) checkBarcodeNamespace(executor repositories.SQLExecutor, organizationID int64, productBarcodes, packBarcodes []string, excludeProductID int64) error {
	candidates := make([]string, 0, len(productBarcodes)+len(packBarcodes))
	candidates = append(candidates, productBarcodes...)
	candidates = append(candidates, packBarcodes...)
	if len(candidates) == 0 {
		return nil
	}
	taken, err := g.productRepo.FindExistingBarcodeValues(executor, organizationID, candidates, excludeProductID)
	if err != nil {
		return fmt.Errorf("failed to probe barcode namespace: %w", err)
	}
	if len(taken) == 0 {
		return nil
	}
	takenSet := make(map[string]bool, len(taken))
	for _, value := range taken {
		takenSet[value] = true
	}
	for _, value := range packBarcodes {
		if takenSet[value] {
			return fmt.Errorf("%w: '%s'", ErrPackBarcodeExists, value)
		}
	}
	for _, value := range productBarcodes {
		if takenSet[value] {
			return fmt.Errorf("%w: '%s'", ErrBarcodeExists, value)
		}
	}
	return nil
}
