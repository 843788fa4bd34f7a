package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"catalog_backend/internal/models"
	"catalog_backend/internal/repositories"
	"catalog_backend/pkg/utils"

	"github.com/google/uuid"
)

// maxCopySKUAttempts bounds the sequential -COPY probe of duplicateProduct.
const maxCopySKUAttempts = 5000

// MilestoneFirstProduct is recorded once per organization after its first
// product is created.
const MilestoneFirstProduct = "first_product_created"

// --- ProductService Interface ---

// ProductService coordinates catalog mutations. Every mutating method runs as
// one atomic transaction: guards and validation happen inside it, and any
// violation rolls the whole mutation back.
type ProductService interface {
	CreateProduct(ctx context.Context, organizationID int64, actorID *int64, req CreateProductRequest) (*models.Product, error)
	UpdateProduct(ctx context.Context, organizationID int64, actorID *int64, productID int64, req UpdateProductRequest) (*models.Product, error)
	DuplicateProduct(ctx context.Context, organizationID int64, actorID *int64, productID int64, req DuplicateProductRequest) (*DuplicateProductResult, error)
	GetProductByID(organizationID, productID int64) (*models.Product, error)
	GetProducts(organizationID int64, filters models.ProductFilters) ([]models.Product, int, error)
}

// --- productService Implementation ---

type productService struct {
	txManager     repositories.TxManager
	productRepo   repositories.ProductRepository
	variantRepo   repositories.VariantRepository
	bundleRepo    repositories.BundleRepository
	inventoryRepo repositories.InventoryRepository
	attributeRepo repositories.AttributeRepository
	referenceRepo repositories.ReferenceRepository
	costRepo      repositories.CostRepository
	auditRepo     repositories.AuditRepository
	guard         *integrityGuard
	planChecker   PlanLimitChecker
	imageResolver ImageResolver
	milestones    MilestoneRecorder
	db            *sql.DB // read path outside transactions
}

// NewProductService creates a new instance of ProductService.
func NewProductService(
	txManager repositories.TxManager,
	productRepo repositories.ProductRepository,
	variantRepo repositories.VariantRepository,
	bundleRepo repositories.BundleRepository,
	inventoryRepo repositories.InventoryRepository,
	attributeRepo repositories.AttributeRepository,
	referenceRepo repositories.ReferenceRepository,
	costRepo repositories.CostRepository,
	auditRepo repositories.AuditRepository,
	planChecker PlanLimitChecker,
	imageResolver ImageResolver,
	milestones MilestoneRecorder,
	db *sql.DB,
) ProductService {
	return &productService{
		txManager:     txManager,
		productRepo:   productRepo,
		variantRepo:   variantRepo,
		bundleRepo:    bundleRepo,
		inventoryRepo: inventoryRepo,
		attributeRepo: attributeRepo,
		referenceRepo: referenceRepo,
		costRepo:      costRepo,
		auditRepo:     auditRepo,
		guard:         newIntegrityGuard(productRepo, variantRepo, bundleRepo, inventoryRepo),
		planChecker:   planChecker,
		imageResolver: imageResolver,
		milestones:    milestones,
		db:            db,
	}
}

// --- Create ---

func (s *productService) CreateProduct(ctx context.Context, organizationID int64, actorID *int64, req CreateProductRequest) (*models.Product, error) {
	sku := NormalizeIdentifier(req.SKU)
	if sku == "" {
		return nil, fmt.Errorf("%w: sku is mandatory", ErrSKURequired)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is mandatory", ErrNameRequired)
	}
	if req.BaseUnitID <= 0 {
		return nil, fmt.Errorf("%w: base unit is mandatory", ErrUnitRequired)
	}
	basePrice, err := NormalizeFiniteNonNegative(req.BasePriceKgs, ErrPriceInvalid)
	if err != nil {
		return nil, err
	}

	var created *models.Product
	firstProduct := false

	err = s.txManager.WithinTransaction(ctx, func(executor repositories.SQLExecutor) error {
		if err := s.planChecker.AssertWithinLimits(executor, organizationID, "products"); err != nil {
			return err
		}
		if err := s.validateReferences(executor, organizationID, req.SupplierID, req.BaseUnitID); err != nil {
			return err
		}
		if err := checkVariantSKUInputs(req.Variants); err != nil {
			return err
		}

		definitions, err := s.attributeRepo.GetDefinitions(executor, organizationID)
		if err != nil {
			return fmt.Errorf("failed to load attribute definitions: %w", err)
		}
		variantValues := make([][]models.VariantAttributeValue, len(req.Variants))
		for i, variantInput := range req.Variants {
			values, err := ValidateVariantAttributes(definitions, variantInput.Attributes)
			if err != nil {
				return err
			}
			variantValues[i] = values
		}

		packs, packBarcodes, err := normalizePackInputs(req.Packs)
		if err != nil {
			return err
		}
		barcodes, err := normalizeBarcodeInputs(req.Barcodes, packBarcodes)
		if err != nil {
			return err
		}
		if err := s.guard.checkBarcodeNamespace(executor, organizationID, barcodes, packBarcodes, 0); err != nil {
			return err
		}

		var components []models.BundleComponent
		if req.IsBundle {
			components, err = s.guard.validateBundleComponents(executor, organizationID, 0, req.BundleComponents)
			if err != nil {
				return err
			}
		}

		categoryID, err := s.resolveCategory(executor, organizationID, req.Category)
		if err != nil {
			return err
		}

		imageCache := map[string]*string{}
		images, photoURL, err := s.resolveImages(organizationID, 0, req.Images, req.PhotoURL, imageCache)
		if err != nil {
			return err
		}

		product := &models.Product{
			OrganizationID: organizationID,
			SKU:            sku,
			Name:           name,
			CategoryID:     categoryID,
			SupplierID:     req.SupplierID,
			BaseUnitID:     req.BaseUnitID,
			BasePriceKgs:   basePrice,
			Description:    req.Description,
			PhotoURL:       photoURL,
			IsBundle:       req.IsBundle,
		}
		if _, err := s.productRepo.CreateProduct(executor, product); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("%w: SKU '%s'", ErrUniqueConstraintViolation, sku)
			}
			return fmt.Errorf("failed to insert product: %w", err)
		}

		if err := s.writeOwnedRows(executor, product.ID, packs, images, barcodes); err != nil {
			return err
		}
		for i, variantInput := range req.Variants {
			if err := s.createVariant(executor, product.ID, variantInput, variantValues[i]); err != nil {
				return err
			}
		}
		if req.IsBundle {
			if err := s.guard.syncBundleComponents(executor, components, product.ID, false); err != nil {
				return err
			}
		}

		if err := s.inventoryRepo.EnsureBaseSnapshots(executor, organizationID, product.ID); err != nil {
			return fmt.Errorf("failed to ensure base snapshots: %w", err)
		}
		if err := s.upsertCost(executor, organizationID, product.ID, req.CostKgs); err != nil {
			return err
		}

		created, err = s.loadAggregate(executor, organizationID, product.ID)
		if err != nil {
			return err
		}

		entry := &models.AuditLog{
			OrganizationID: organizationID,
			ActorID:        actorID,
			Action:         "create",
			Entity:         "product",
			EntityID:       product.ID,
			After:          marshalSnapshot(created),
			RequestID:      uuid.NewString(),
		}
		if _, err := s.auditRepo.WriteAuditLog(executor, entry); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		count, err := s.productRepo.CountProducts(executor, organizationID)
		if err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		firstProduct = count == 1
		return nil
	})
	if err != nil {
		return nil, err
	}

	if firstProduct {
		if err := s.milestones.RecordFirstEvent(organizationID, actorID, MilestoneFirstProduct, marshalSnapshot(map[string]int64{"product_id": created.ID})); err != nil {
			utils.LogError(err, "Failed to record first-product milestone")
		}
	}
	return created, nil
}

// --- Update ---

func (s *productService) UpdateProduct(ctx context.Context, organizationID int64, actorID *int64, productID int64, req UpdateProductRequest) (*models.Product, error) {
	sku := NormalizeIdentifier(req.SKU)
	if sku == "" {
		return nil, fmt.Errorf("%w: sku is mandatory", ErrSKURequired)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is mandatory", ErrNameRequired)
	}
	if req.BaseUnitID <= 0 {
		return nil, fmt.Errorf("%w: base unit is mandatory", ErrUnitRequired)
	}
	basePrice, err := NormalizeFiniteNonNegative(req.BasePriceKgs, ErrPriceInvalid)
	if err != nil {
		return nil, err
	}

	var updated *models.Product

	err = s.txManager.WithinTransaction(ctx, func(executor repositories.SQLExecutor) error {
		prior, err := s.loadAggregateOrNotFound(executor, organizationID, productID)
		if err != nil {
			return err
		}

		if err := s.validateReferences(executor, organizationID, req.SupplierID, req.BaseUnitID); err != nil {
			return err
		}
		if err := s.guard.checkUnitChange(executor, prior, req.BaseUnitID); err != nil {
			return err
		}
		if err := checkVariantSKUInputs(req.Variants); err != nil {
			return err
		}

		definitions, err := s.attributeRepo.GetDefinitions(executor, organizationID)
		if err != nil {
			return fmt.Errorf("failed to load attribute definitions: %w", err)
		}
		variantValues := make([][]models.VariantAttributeValue, len(req.Variants))
		for i, variantInput := range req.Variants {
			values, err := ValidateVariantAttributes(definitions, variantInput.Attributes)
			if err != nil {
				return err
			}
			variantValues[i] = values
		}

		packs, packBarcodes, err := normalizePackInputs(req.Packs)
		if err != nil {
			return err
		}
		barcodes, err := normalizeBarcodeInputs(req.Barcodes, packBarcodes)
		if err != nil {
			return err
		}
		if err := s.guard.checkBarcodeNamespace(executor, organizationID, barcodes, packBarcodes, productID); err != nil {
			return err
		}

		var components []models.BundleComponent
		if req.IsBundle {
			components, err = s.guard.validateBundleComponents(executor, organizationID, productID, req.BundleComponents)
			if err != nil {
				return err
			}
		}

		// Variant reconciliation: active variants absent from the request are
		// deactivation candidates and pass through the usage guard first.
		existing, err := s.variantRepo.GetActiveVariantsByProductID(executor, productID)
		if err != nil {
			return fmt.Errorf("failed to load existing variants: %w", err)
		}
		existingByID := make(map[int64]models.ProductVariant, len(existing))
		for _, variant := range existing {
			existingByID[variant.ID] = variant
		}
		incomingIDs := make(map[int64]bool, len(req.Variants))
		for _, variantInput := range req.Variants {
			if variantInput.ID != nil {
				if _, ok := existingByID[*variantInput.ID]; !ok {
					return fmt.Errorf("%w: variant ID %d does not belong to product %d", ErrVariantNotFound, *variantInput.ID, productID)
				}
				incomingIDs[*variantInput.ID] = true
			}
		}
		toDeactivate := []int64{}
		for _, variant := range existing {
			if !incomingIDs[variant.ID] {
				toDeactivate = append(toDeactivate, variant.ID)
			}
		}
		if err := s.guard.checkVariantDeactivation(executor, toDeactivate); err != nil {
			return err
		}
		if _, err := s.variantRepo.DeactivateVariants(executor, toDeactivate); err != nil {
			return fmt.Errorf("failed to deactivate variants: %w", err)
		}

		for i, variantInput := range req.Variants {
			if variantInput.ID != nil {
				variant := existingByID[*variantInput.ID]
				variant.Name = strings.TrimSpace(variantInput.Name)
				variant.SKU = normalizeOptionalIdentifier(variantInput.SKU)
				variant.IsActive = true
				if err := s.variantRepo.UpdateVariant(executor, &variant); err != nil {
					return fmt.Errorf("failed to update variant ID %d: %w", variant.ID, err)
				}
				// Full replace of attribute values, not a patch.
				if _, err := s.variantRepo.DeleteAttributeValuesByVariantID(executor, variant.ID); err != nil {
					return fmt.Errorf("failed to clear attribute values: %w", err)
				}
				for j := range variantValues[i] {
					variantValues[i][j].VariantID = variant.ID
					if _, err := s.variantRepo.CreateAttributeValue(executor, &variantValues[i][j]); err != nil {
						return fmt.Errorf("failed to insert attribute value: %w", err)
					}
				}
			} else {
				if err := s.createVariant(executor, productID, variantInput, variantValues[i]); err != nil {
					return err
				}
			}
		}

		// Packs are replaced wholesale.
		if _, err := s.productRepo.DeletePacksByProductID(executor, productID); err != nil {
			return fmt.Errorf("failed to clear packs: %w", err)
		}
		for i := range packs {
			packs[i].ProductID = productID
			if _, err := s.productRepo.CreatePack(executor, &packs[i]); err != nil {
				if errors.Is(err, repositories.ErrDuplicateKey) {
					return fmt.Errorf("%w: pack '%s'", ErrUniqueConstraintViolation, packs[i].PackName)
				}
				return fmt.Errorf("failed to insert pack: %w", err)
			}
		}

		// Barcodes are replaced wholesale on direct updates; the import engine
		// reconciles them by symmetric difference instead.
		if _, err := s.productRepo.DeleteBarcodesByProductID(executor, productID); err != nil {
			return fmt.Errorf("failed to clear barcodes: %w", err)
		}
		for _, value := range barcodes {
			barcode := models.ProductBarcode{ProductID: productID, Value: value}
			if _, err := s.productRepo.CreateBarcode(executor, &barcode); err != nil {
				if errors.Is(err, repositories.ErrDuplicateKey) {
					return fmt.Errorf("%w: barcode '%s'", ErrUniqueConstraintViolation, value)
				}
				return fmt.Errorf("failed to insert barcode: %w", err)
			}
		}

		categoryID, err := s.resolveCategory(executor, organizationID, req.Category)
		if err != nil {
			return err
		}

		photoURL := prior.PhotoURL
		imageCache := map[string]*string{}
		if req.Images != nil {
			if _, err := s.productRepo.DeleteImagesByProductID(executor, productID); err != nil {
				return fmt.Errorf("failed to clear images: %w", err)
			}
			images, resolvedPhoto, err := s.resolveImages(organizationID, productID, *req.Images, req.PhotoURL, imageCache)
			if err != nil {
				return err
			}
			for i := range images {
				images[i].ProductID = productID
				if _, err := s.productRepo.CreateImage(executor, &images[i]); err != nil {
					return fmt.Errorf("failed to insert image: %w", err)
				}
			}
			photoURL = resolvedPhoto
		} else if req.PhotoURL != nil {
			resolved, err := s.imageResolver.ResolveProductImageURL(*req.PhotoURL, organizationID, productID, imageCache)
			if err != nil {
				return fmt.Errorf("failed to resolve photo URL: %w", err)
			}
			photoURL = resolved
		}

		if req.IsBundle {
			if err := s.guard.syncBundleComponents(executor, components, productID, true); err != nil {
				return err
			}
		} else if prior.IsBundle {
			// The product stopped being a bundle: clear all edges.
			if _, err := s.bundleRepo.DeleteComponentsByBundleID(executor, productID); err != nil {
				return fmt.Errorf("failed to clear bundle components: %w", err)
			}
		}

		product := &models.Product{
			ID:             productID,
			OrganizationID: organizationID,
			SKU:            sku,
			Name:           name,
			CategoryID:     categoryID,
			SupplierID:     req.SupplierID,
			BaseUnitID:     req.BaseUnitID,
			BasePriceKgs:   basePrice,
			Description:    req.Description,
			PhotoURL:       photoURL,
			IsBundle:       req.IsBundle,
		}
		if err := s.productRepo.UpdateProduct(executor, product); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("%w: SKU '%s'", ErrUniqueConstraintViolation, sku)
			}
			if errors.Is(err, repositories.ErrNotFound) {
				return fmt.Errorf("%w: product ID %d", ErrProductNotFound, productID)
			}
			return fmt.Errorf("failed to update product row: %w", err)
		}

		if err := s.inventoryRepo.EnsureBaseSnapshots(executor, organizationID, productID); err != nil {
			return fmt.Errorf("failed to ensure base snapshots: %w", err)
		}
		if err := s.upsertCost(executor, organizationID, productID, req.CostKgs); err != nil {
			return err
		}

		updated, err = s.loadAggregate(executor, organizationID, productID)
		if err != nil {
			return err
		}

		entry := &models.AuditLog{
			OrganizationID: organizationID,
			ActorID:        actorID,
			Action:         "update",
			Entity:         "product",
			EntityID:       productID,
			Before:         marshalSnapshot(prior),
			After:          marshalSnapshot(updated),
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
	return updated, nil
}

// --- Duplicate ---

func (s *productService) DuplicateProduct(ctx context.Context, organizationID int64, actorID *int64, productID int64, req DuplicateProductRequest) (*DuplicateProductResult, error) {
	var result *DuplicateProductResult

	err := s.txManager.WithinTransaction(ctx, func(executor repositories.SQLExecutor) error {
		source, err := s.loadAggregateOrNotFound(executor, organizationID, productID)
		if err != nil {
			return err
		}

		if err := s.planChecker.AssertWithinLimits(executor, organizationID, "products"); err != nil {
			return err
		}

		var sku string
		if req.SKU != nil && strings.TrimSpace(*req.SKU) != "" {
			sku = NormalizeIdentifier(*req.SKU)
			exists, err := s.productRepo.SKUExists(executor, organizationID, sku, 0)
			if err != nil {
				return fmt.Errorf("failed to check supplied SKU: %w", err)
			}
			if exists {
				return fmt.Errorf("%w: SKU '%s'", ErrUniqueConstraintViolation, sku)
			}
		} else {
			sku, err = s.resolveCopySKU(executor, organizationID, source.SKU)
			if err != nil {
				return err
			}
		}

		copy := &models.Product{
			OrganizationID: organizationID,
			SKU:            sku,
			Name:           source.Name,
			CategoryID:     source.CategoryID,
			SupplierID:     source.SupplierID,
			BaseUnitID:     source.BaseUnitID,
			BasePriceKgs:   source.BasePriceKgs,
			Description:    source.Description,
			PhotoURL:       source.PhotoURL,
			IsBundle:       source.IsBundle,
		}
		if _, err := s.productRepo.CreateProduct(executor, copy); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("%w: SKU '%s'", ErrUniqueConstraintViolation, sku)
			}
			return fmt.Errorf("failed to insert duplicated product: %w", err)
		}

		// Packs are copied without their barcodes: copying barcode values
		// would force a namespace collision.
		for _, sourcePack := range source.Packs {
			pack := models.ProductPack{
				ProductID:        copy.ID,
				PackName:         sourcePack.PackName,
				MultiplierToBase: sourcePack.MultiplierToBase,
				AllowPurchasing:  sourcePack.AllowPurchasing,
				AllowReceiving:   sourcePack.AllowReceiving,
			}
			if _, err := s.productRepo.CreatePack(executor, &pack); err != nil {
				return fmt.Errorf("failed to copy pack '%s': %w", pack.PackName, err)
			}
		}
		for _, sourceImage := range source.Images {
			image := models.ProductImage{ProductID: copy.ID, URL: sourceImage.URL, Position: sourceImage.Position}
			if _, err := s.productRepo.CreateImage(executor, &image); err != nil {
				return fmt.Errorf("failed to copy image: %w", err)
			}
		}
		for _, sourceVariant := range source.Variants {
			variant := models.ProductVariant{
				ProductID: copy.ID,
				Name:      sourceVariant.Name,
				SKU:       sourceVariant.SKU,
				IsActive:  true,
			}
			if _, err := s.variantRepo.CreateVariant(executor, &variant); err != nil {
				return fmt.Errorf("failed to copy variant '%s': %w", variant.Name, err)
			}
			for _, sourceValue := range sourceVariant.AttributeValues {
				value := sourceValue
				value.ID = 0
				value.VariantID = variant.ID
				if _, err := s.variantRepo.CreateAttributeValue(executor, &value); err != nil {
					return fmt.Errorf("failed to copy attribute value: %w", err)
				}
			}
		}
		// Bundle edges are copied in create-only mode: the new product has no
		// prior edges to clear.
		for _, sourceComponent := range source.BundleComponents {
			component := models.BundleComponent{
				BundleProductID:    copy.ID,
				ComponentProductID: sourceComponent.ComponentProductID,
				ComponentVariantID: sourceComponent.ComponentVariantID,
				Quantity:           sourceComponent.Quantity,
			}
			if _, err := s.bundleRepo.CreateComponent(executor, &component); err != nil {
				return fmt.Errorf("failed to copy bundle component: %w", err)
			}
		}

		if err := s.inventoryRepo.EnsureBaseSnapshots(executor, organizationID, copy.ID); err != nil {
			return fmt.Errorf("failed to ensure base snapshots: %w", err)
		}

		entry := &models.AuditLog{
			OrganizationID: organizationID,
			ActorID:        actorID,
			Action:         "duplicate",
			Entity:         "product",
			EntityID:       copy.ID,
			Before:         marshalSnapshot(map[string]int64{"source_product_id": source.ID}),
			After:          marshalSnapshot(copy),
			RequestID:      uuid.NewString(),
		}
		if _, err := s.auditRepo.WriteAuditLog(executor, entry); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		result = &DuplicateProductResult{ProductID: copy.ID, SKU: sku, CopiedBarcodes: false}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveCopySKU probes S-COPY, S-COPY-2, S-COPY-3, ... for the first free
// candidate. The probe shares the insert's transaction; concurrent duplicates
// racing to the same candidate are settled by the unique SKU constraint.
func (s *productService) resolveCopySKU(executor repositories.SQLExecutor, organizationID int64, sourceSKU string) (string, error) {
	base := sourceSKU + "-COPY"
	candidate := base
	for attempt := 1; attempt <= maxCopySKUAttempts; attempt++ {
		exists, err := s.productRepo.SKUExists(executor, organizationID, candidate, 0)
		if err != nil {
			return "", fmt.Errorf("failed to probe copy SKU: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, attempt+1)
	}
	return "", fmt.Errorf("could not resolve a free copy SKU for '%s' after %d attempts", sourceSKU, maxCopySKUAttempts)
}

// --- Reads ---

func (s *productService) GetProductByID(organizationID, productID int64) (*models.Product, error) {
	return s.loadAggregateOrNotFound(s.db, organizationID, productID)
}

func (s *productService) GetProducts(organizationID int64, filters models.ProductFilters) ([]models.Product, int, error) {
	products, totalCount, err := s.productRepo.GetProducts(organizationID, filters)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get products: %w", err)
	}
	return products, totalCount, nil
}

// --- Shared helpers ---

func (s *productService) validateReferences(executor repositories.SQLExecutor, organizationID int64, supplierID *int64, unitID int64) error {
	exists, err := s.referenceRepo.UnitExists(executor, organizationID, unitID)
	if err != nil {
		return fmt.Errorf("failed to check unit: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: unit ID %d", ErrUnitNotFound, unitID)
	}
	if supplierID != nil {
		exists, err := s.referenceRepo.SupplierExists(executor, organizationID, *supplierID)
		if err != nil {
			return fmt.Errorf("failed to check supplier: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: supplier ID %d", ErrSupplierNotFound, *supplierID)
		}
	}
	return nil
}

func (s *productService) resolveCategory(executor repositories.SQLExecutor, organizationID int64, category *string) (*int64, error) {
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

// resolveImages resolves every incoming image reference plus an explicit
// photo override through the image collaborator, sharing one per-request
// cache, and reindexes positions to a contiguous 0-based sequence. Inputs
// resolving to an already-kept URL collapse to the first occurrence. The
// photo URL mirrors the override when given, otherwise position 0.
func (s *productService) resolveImages(organizationID, productID int64, inputs []ProductImageInput, photoOverride *string, cache map[string]*string) ([]models.ProductImage, *string, error) {
	images := make([]models.ProductImage, 0, len(inputs))
	seen := make(map[string]bool, len(inputs))
	for _, input := range inputs {
		resolved, err := s.imageResolver.ResolveProductImageURL(input.Value, organizationID, productID, cache)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve image: %w", err)
		}
		if resolved == nil || seen[*resolved] {
			continue
		}
		seen[*resolved] = true
		images = append(images, models.ProductImage{URL: *resolved, Position: len(images)})
	}

	var photoURL *string
	if photoOverride != nil {
		resolved, err := s.imageResolver.ResolveProductImageURL(*photoOverride, organizationID, productID, cache)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve photo URL: %w", err)
		}
		photoURL = resolved
	}
	if photoURL == nil && len(images) > 0 {
		photoURL = &images[0].URL
	}
	return images, photoURL, nil
}

func (s *productService) writeOwnedRows(executor repositories.SQLExecutor, productID int64, packs []models.ProductPack, images []models.ProductImage, barcodes []string) error {
	for i := range packs {
		packs[i].ProductID = productID
		if _, err := s.productRepo.CreatePack(executor, &packs[i]); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("%w: pack '%s'", ErrUniqueConstraintViolation, packs[i].PackName)
			}
			return fmt.Errorf("failed to insert pack: %w", err)
		}
	}
	for i := range images {
		images[i].ProductID = productID
		if _, err := s.productRepo.CreateImage(executor, &images[i]); err != nil {
			return fmt.Errorf("failed to insert image: %w", err)
		}
	}
	for _, value := range barcodes {
		barcode := models.ProductBarcode{ProductID: productID, Value: value}
		if _, err := s.productRepo.CreateBarcode(executor, &barcode); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("%w: barcode '%s'", ErrUniqueConstraintViolation, value)
			}
			return fmt.Errorf("failed to insert barcode: %w", err)
		}
	}
	return nil
}

func (s *productService) createVariant(executor repositories.SQLExecutor, productID int64, input ProductVariantInput, values []models.VariantAttributeValue) error {
	variant := models.ProductVariant{
		ProductID: productID,
		Name:      strings.TrimSpace(input.Name),
		SKU:       normalizeOptionalIdentifier(input.SKU),
		IsActive:  true,
	}
	if _, err := s.variantRepo.CreateVariant(executor, &variant); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return fmt.Errorf("%w: variant '%s'", ErrUniqueConstraintViolation, variant.Name)
		}
		return fmt.Errorf("failed to insert variant: %w", err)
	}
	for i := range values {
		values[i].VariantID = variant.ID
		if _, err := s.variantRepo.CreateAttributeValue(executor, &values[i]); err != nil {
			return fmt.Errorf("failed to insert attribute value: %w", err)
		}
	}
	return nil
}

func (s *productService) upsertCost(executor repositories.SQLExecutor, organizationID, productID int64, costKgs *float64) error {
	if costKgs == nil {
		return nil
	}
	cost, err := NormalizeFiniteNonNegative(*costKgs, ErrPriceInvalid)
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

func (s *productService) loadAggregateOrNotFound(executor repositories.SQLExecutor, organizationID, productID int64) (*models.Product, error) {
	product, err := s.loadAggregate(executor, organizationID, productID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, fmt.Errorf("%w: product ID %d", ErrProductNotFound, productID)
		}
		return nil, err
	}
	return product, nil
}

// loadAggregate reads the product row plus every owned child set.
func (s *productService) loadAggregate(executor repositories.SQLExecutor, organizationID, productID int64) (*models.Product, error) {
	product, err := s.productRepo.GetProductByID(executor, organizationID, productID)
	if err != nil {
		return nil, err
	}
	if product.Packs, err = s.productRepo.GetPacksByProductID(executor, productID); err != nil {
		return nil, fmt.Errorf("failed to load packs: %w", err)
	}
	if product.Images, err = s.productRepo.GetImagesByProductID(executor, productID); err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	if product.Barcodes, err = s.productRepo.GetBarcodesByProductID(executor, productID); err != nil {
		return nil, fmt.Errorf("failed to load barcodes: %w", err)
	}
	if product.Variants, err = s.variantRepo.GetActiveVariantsByProductID(executor, productID); err != nil {
		return nil, fmt.Errorf("failed to load variants: %w", err)
	}
	for i := range product.Variants {
		values, err := s.variantRepo.GetAttributeValuesByVariantID(executor, product.Variants[i].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load attribute values: %w", err)
		}
		product.Variants[i].AttributeValues = values
		product.Variants[i].Attributes = attributesFromValues(values)
	}
	if product.IsBundle {
		if product.BundleComponents, err = s.bundleRepo.GetComponentsByBundleID(executor, productID); err != nil {
			return nil, fmt.Errorf("failed to load bundle components: %w", err)
		}
	}
	cost, err := s.costRepo.GetCost(executor, organizationID, productID, models.CostVariantKeyBase)
	if err != nil && !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to load cost: %w", err)
	}
	product.Cost = cost
	return product, nil
}

// attributesFromValues rebuilds the attribute map mirror from typed rows.
func attributesFromValues(values []models.VariantAttributeValue) map[string]interface{} {
	if len(values) == 0 {
		return nil
	}
	attributes := make(map[string]interface{}, len(values))
	for _, value := range values {
		switch {
		case value.NumberValue != nil:
			attributes[value.AttrKey] = *value.NumberValue
		case len(value.Selections) > 0:
			attributes[value.AttrKey] = value.Selections
		case value.TextValue != nil:
			attributes[value.AttrKey] = *value.TextValue
		}
	}
	return attributes
}

func normalizeOptionalIdentifier(raw *string) *string {
	if raw == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
