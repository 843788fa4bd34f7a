package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"catalog_backend/internal/models"
	"catalog_backend/internal/repositories"
)

// fakeTxManager runs the transactional closure directly against the shared
// in-memory store. Guard checks run before any write in the services under
// test, so a rejected mutation leaves the store untouched.
type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) WithinTransaction(ctx context.Context, fn func(executor repositories.SQLExecutor) error) error {
	m.calls++
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(nil)
}

// fakeCatalogStore is an in-memory stand-in for every repository interface
// the services consume.
type fakeCatalogStore struct {
	nextID int64

	organization *models.Organization
	units        map[int64]bool
	suppliers    map[int64]bool
	stores       []models.Store
	definitions  []models.AttributeDefinition
	categories   map[string]int64

	products   map[int64]*models.Product
	packs      map[int64][]models.ProductPack
	images     map[int64][]models.ProductImage
	barcodes   map[int64][]models.ProductBarcode
	variants   map[int64]*models.ProductVariant
	attrValues map[int64][]models.VariantAttributeValue
	components map[int64][]models.BundleComponent

	snapshots map[string]*models.InventorySnapshot
	costs     map[string]*models.ProductCost

	movementsByProduct        map[int64]int
	movementsByVariant        map[int64]int
	nonzeroSnapshotsByVariant map[int64]int
	poLinesByVariant          map[int64]int

	audits     []models.AuditLog
	milestones map[string]int
}

func newFakeCatalogStore() *fakeCatalogStore {
	return &fakeCatalogStore{
		organization: &models.Organization{ID: 1, Name: "Test Org"},
		units:        map[int64]bool{1: true, 2: true},
		suppliers:    map[int64]bool{1: true},
		stores: []models.Store{
			{ID: 1, OrganizationID: 1, Name: "Main"},
			{ID: 2, OrganizationID: 1, Name: "Warehouse"},
		},
		categories:                map[string]int64{},
		products:                  map[int64]*models.Product{},
		packs:                     map[int64][]models.ProductPack{},
		images:                    map[int64][]models.ProductImage{},
		barcodes:                  map[int64][]models.ProductBarcode{},
		variants:                  map[int64]*models.ProductVariant{},
		attrValues:                map[int64][]models.VariantAttributeValue{},
		components:                map[int64][]models.BundleComponent{},
		snapshots:                 map[string]*models.InventorySnapshot{},
		costs:                     map[string]*models.ProductCost{},
		movementsByProduct:        map[int64]int{},
		movementsByVariant:        map[int64]int{},
		nonzeroSnapshotsByVariant: map[int64]int{},
		poLinesByVariant:          map[int64]int{},
		milestones:                map[string]int{},
	}
}

func (f *fakeCatalogStore) id() int64 {
	f.nextID++
	return f.nextID
}

func snapshotKey(storeID, productID int64) string {
	return fmt.Sprintf("%d:%d", storeID, productID)
}

func costKey(organizationID, productID int64, variantKey string) string {
	return fmt.Sprintf("%d:%d:%s", organizationID, productID, variantKey)
}

// --- ProductRepository ---

func (f *fakeCatalogStore) CreateProduct(_ repositories.SQLExecutor, product *models.Product) (int64, error) {
	for _, existing := range f.products {
		if existing.OrganizationID == product.OrganizationID && existing.SKU == product.SKU {
			return 0, fmt.Errorf("%w: sku", repositories.ErrDuplicateKey)
		}
	}
	product.ID = f.id()
	stored := *product
	f.products[product.ID] = &stored
	return product.ID, nil
}

func (f *fakeCatalogStore) UpdateProduct(_ repositories.SQLExecutor, product *models.Product) error {
	existing, ok := f.products[product.ID]
	if !ok || existing.IsDeleted {
		return repositories.ErrNotFound
	}
	for _, other := range f.products {
		if other.ID != product.ID && other.OrganizationID == product.OrganizationID && other.SKU == product.SKU {
			return fmt.Errorf("%w: sku", repositories.ErrDuplicateKey)
		}
	}
	stored := *product
	stored.CreatedAt = existing.CreatedAt
	f.products[product.ID] = &stored
	return nil
}

func (f *fakeCatalogStore) GetProductByID(_ repositories.SQLExecutor, organizationID, productID int64) (*models.Product, error) {
	product, ok := f.products[productID]
	if !ok || product.OrganizationID != organizationID || product.IsDeleted {
		return nil, repositories.ErrNotFound
	}
	clone := *product
	return &clone, nil
}

func (f *fakeCatalogStore) GetProductBySKU(_ repositories.SQLExecutor, organizationID int64, sku string) (*models.Product, error) {
	for _, product := range f.products {
		if product.OrganizationID == organizationID && product.SKU == sku && !product.IsDeleted {
			clone := *product
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeCatalogStore) GetProducts(organizationID int64, filters models.ProductFilters) ([]models.Product, int, error) {
	matched := []models.Product{}
	for _, product := range f.products {
		if product.OrganizationID != organizationID || product.IsDeleted {
			continue
		}
		if filters.Search != nil && !strings.Contains(strings.ToLower(product.Name), strings.ToLower(*filters.Search)) {
			continue
		}
		matched = append(matched, *product)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, len(matched), nil
}

func (f *fakeCatalogStore) SKUExists(_ repositories.SQLExecutor, organizationID int64, sku string, excludeProductID int64) (bool, error) {
	for _, product := range f.products {
		if product.OrganizationID == organizationID && product.SKU == sku && product.ID != excludeProductID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCatalogStore) CountProducts(_ repositories.SQLExecutor, organizationID int64) (int, error) {
	count := 0
	for _, product := range f.products {
		if product.OrganizationID == organizationID && !product.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (f *fakeCatalogStore) CreatePack(_ repositories.SQLExecutor, pack *models.ProductPack) (int64, error) {
	for _, existing := range f.packs[pack.ProductID] {
		if existing.PackName == pack.PackName {
			return 0, fmt.Errorf("%w: pack name", repositories.ErrDuplicateKey)
		}
	}
	pack.ID = f.id()
	f.packs[pack.ProductID] = append(f.packs[pack.ProductID], *pack)
	return pack.ID, nil
}

func (f *fakeCatalogStore) GetPacksByProductID(_ repositories.SQLExecutor, productID int64) ([]models.ProductPack, error) {
	return append([]models.ProductPack{}, f.packs[productID]...), nil
}

func (f *fakeCatalogStore) DeletePacksByProductID(_ repositories.SQLExecutor, productID int64) (int64, error) {
	deleted := int64(len(f.packs[productID]))
	delete(f.packs, productID)
	return deleted, nil
}

func (f *fakeCatalogStore) CreateImage(_ repositories.SQLExecutor, image *models.ProductImage) (int64, error) {
	image.ID = f.id()
	f.images[image.ProductID] = append(f.images[image.ProductID], *image)
	return image.ID, nil
}

func (f *fakeCatalogStore) GetImagesByProductID(_ repositories.SQLExecutor, productID int64) ([]models.ProductImage, error) {
	return append([]models.ProductImage{}, f.images[productID]...), nil
}

func (f *fakeCatalogStore) DeleteImagesByProductID(_ repositories.SQLExecutor, productID int64) (int64, error) {
	deleted := int64(len(f.images[productID]))
	delete(f.images, productID)
	return deleted, nil
}

func (f *fakeCatalogStore) CreateBarcode(_ repositories.SQLExecutor, barcode *models.ProductBarcode) (int64, error) {
	for _, rows := range f.barcodes {
		for _, existing := range rows {
			if existing.Value == barcode.Value {
				return 0, fmt.Errorf("%w: barcode value", repositories.ErrDuplicateKey)
			}
		}
	}
	barcode.ID = f.id()
	f.barcodes[barcode.ProductID] = append(f.barcodes[barcode.ProductID], *barcode)
	return barcode.ID, nil
}

func (f *fakeCatalogStore) GetBarcodesByProductID(_ repositories.SQLExecutor, productID int64) ([]models.ProductBarcode, error) {
	return append([]models.ProductBarcode{}, f.barcodes[productID]...), nil
}

func (f *fakeCatalogStore) DeleteBarcodesByProductID(_ repositories.SQLExecutor, productID int64) (int64, error) {
	deleted := int64(len(f.barcodes[productID]))
	delete(f.barcodes, productID)
	return deleted, nil
}

func (f *fakeCatalogStore) DeleteBarcodesByValues(_ repositories.SQLExecutor, productID int64, values []string) (int64, error) {
	drop := map[string]bool{}
	for _, value := range values {
		drop[value] = true
	}
	kept := []models.ProductBarcode{}
	deleted := int64(0)
	for _, barcode := range f.barcodes[productID] {
		if drop[barcode.Value] {
			deleted++
			continue
		}
		kept = append(kept, barcode)
	}
	f.barcodes[productID] = kept
	return deleted, nil
}

func (f *fakeCatalogStore) FindExistingBarcodeValues(_ repositories.SQLExecutor, organizationID int64, values []string, excludeProductID int64) ([]string, error) {
	wanted := map[string]bool{}
	for _, value := range values {
		wanted[value] = true
	}
	taken := []string{}
	seen := map[string]bool{}
	for productID, productBarcodes := range f.barcodes {
		product, ok := f.products[productID]
		if !ok || product.OrganizationID != organizationID || productID == excludeProductID {
			continue
		}
		for _, barcode := range productBarcodes {
			if wanted[barcode.Value] && !seen[barcode.Value] {
				seen[barcode.Value] = true
				taken = append(taken, barcode.Value)
			}
		}
	}
	for productID, productPacks := range f.packs {
		product, ok := f.products[productID]
		if !ok || product.OrganizationID != organizationID || productID == excludeProductID {
			continue
		}
		for _, pack := range productPacks {
			if pack.PackBarcode != nil && wanted[*pack.PackBarcode] && !seen[*pack.PackBarcode] {
				seen[*pack.PackBarcode] = true
				taken = append(taken, *pack.PackBarcode)
			}
		}
	}
	sort.Strings(taken)
	return taken, nil
}

func (f *fakeCatalogStore) GetBarcodeStatuses(_ repositories.SQLExecutor, organizationID int64, filters models.ProductFilters, maxRows int) ([]models.ProductBarcodeStatus, error) {
	statuses := []models.ProductBarcodeStatus{}
	ids := []int64{}
	for id, product := range f.products {
		if product.OrganizationID == organizationID && !product.IsDeleted {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if len(statuses) >= maxRows {
			break
		}
		statuses = append(statuses, models.ProductBarcodeStatus{
			ProductID:    id,
			SKU:          f.products[id].SKU,
			BarcodeCount: len(f.barcodes[id]),
		})
	}
	return statuses, nil
}

// --- VariantRepository ---

func (f *fakeCatalogStore) CreateVariant(_ repositories.SQLExecutor, variant *models.ProductVariant) (int64, error) {
	variant.ID = f.id()
	stored := *variant
	f.variants[variant.ID] = &stored
	return variant.ID, nil
}

func (f *fakeCatalogStore) UpdateVariant(_ repositories.SQLExecutor, variant *models.ProductVariant) error {
	existing, ok := f.variants[variant.ID]
	if !ok {
		return repositories.ErrNotFound
	}
	stored := *variant
	stored.ProductID = existing.ProductID
	f.variants[variant.ID] = &stored
	return nil
}

func (f *fakeCatalogStore) GetVariantByID(_ repositories.SQLExecutor, variantID int64) (*models.ProductVariant, error) {
	variant, ok := f.variants[variantID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *variant
	return &clone, nil
}

func (f *fakeCatalogStore) GetActiveVariantsByProductID(_ repositories.SQLExecutor, productID int64) ([]models.ProductVariant, error) {
	active := []models.ProductVariant{}
	for _, variant := range f.variants {
		if variant.ProductID == productID && variant.IsActive {
			active = append(active, *variant)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].ID < active[j].ID })
	return active, nil
}

func (f *fakeCatalogStore) DeactivateVariants(_ repositories.SQLExecutor, variantIDs []int64) (int64, error) {
	deactivated := int64(0)
	for _, id := range variantIDs {
		if variant, ok := f.variants[id]; ok && variant.IsActive {
			variant.IsActive = false
			deactivated++
		}
	}
	return deactivated, nil
}

func (f *fakeCatalogStore) CountUsage(_ repositories.SQLExecutor, variantIDs []int64) (repositories.VariantUsage, error) {
	usage := repositories.VariantUsage{}
	for _, id := range variantIDs {
		usage.StockMovements += f.movementsByVariant[id]
		usage.NonzeroSnapshots += f.nonzeroSnapshotsByVariant[id]
		usage.PurchaseOrderLines += f.poLinesByVariant[id]
	}
	return usage, nil
}

func (f *fakeCatalogStore) CreateAttributeValue(_ repositories.SQLExecutor, value *models.VariantAttributeValue) (int64, error) {
	value.ID = f.id()
	f.attrValues[value.VariantID] = append(f.attrValues[value.VariantID], *value)
	return value.ID, nil
}

func (f *fakeCatalogStore) GetAttributeValuesByVariantID(_ repositories.SQLExecutor, variantID int64) ([]models.VariantAttributeValue, error) {
	return append([]models.VariantAttributeValue{}, f.attrValues[variantID]...), nil
}

func (f *fakeCatalogStore) DeleteAttributeValuesByVariantID(_ repositories.SQLExecutor, variantID int64) (int64, error) {
	deleted := int64(len(f.attrValues[variantID]))
	delete(f.attrValues, variantID)
	return deleted, nil
}

// --- BundleRepository ---

func (f *fakeCatalogStore) CreateComponent(_ repositories.SQLExecutor, component *models.BundleComponent) (int64, error) {
	for _, existing := range f.components[component.BundleProductID] {
		if existing.ComponentProductID != component.ComponentProductID {
			continue
		}
		sameVariant := existing.ComponentVariantID == nil && component.ComponentVariantID == nil ||
			existing.ComponentVariantID != nil && component.ComponentVariantID != nil &&
				*existing.ComponentVariantID == *component.ComponentVariantID
		if sameVariant {
			return 0, fmt.Errorf("%w: bundle component", repositories.ErrDuplicateKey)
		}
	}
	component.ID = f.id()
	f.components[component.BundleProductID] = append(f.components[component.BundleProductID], *component)
	return component.ID, nil
}

func (f *fakeCatalogStore) GetComponentsByBundleID(_ repositories.SQLExecutor, bundleProductID int64) ([]models.BundleComponent, error) {
	return append([]models.BundleComponent{}, f.components[bundleProductID]...), nil
}

func (f *fakeCatalogStore) DeleteComponentsByBundleID(_ repositories.SQLExecutor, bundleProductID int64) (int64, error) {
	deleted := int64(len(f.components[bundleProductID]))
	delete(f.components, bundleProductID)
	return deleted, nil
}

// --- InventoryRepository ---

func (f *fakeCatalogStore) EnsureBaseSnapshots(_ repositories.SQLExecutor, organizationID, productID int64) error {
	for _, store := range f.stores {
		if store.OrganizationID != organizationID {
			continue
		}
		key := snapshotKey(store.ID, productID)
		if _, ok := f.snapshots[key]; !ok {
			f.snapshots[key] = &models.InventorySnapshot{
				OrganizationID: organizationID,
				StoreID:        store.ID,
				ProductID:      productID,
			}
		}
	}
	return nil
}

func (f *fakeCatalogStore) UpsertMinStock(_ repositories.SQLExecutor, organizationID, storeID, productID int64, minStock float64) error {
	key := snapshotKey(storeID, productID)
	snapshot, ok := f.snapshots[key]
	if !ok {
		snapshot = &models.InventorySnapshot{OrganizationID: organizationID, StoreID: storeID, ProductID: productID}
		f.snapshots[key] = snapshot
	}
	snapshot.MinStock = &minStock
	return nil
}

func (f *fakeCatalogStore) CountMovementsByProductID(_ repositories.SQLExecutor, productID int64) (int, error) {
	return f.movementsByProduct[productID], nil
}

func (f *fakeCatalogStore) StoreExists(_ repositories.SQLExecutor, organizationID, storeID int64) (bool, error) {
	for _, store := range f.stores {
		if store.ID == storeID && store.OrganizationID == organizationID {
			return true, nil
		}
	}
	return false, nil
}

// --- AttributeRepository ---

func (f *fakeCatalogStore) GetDefinitions(_ repositories.SQLExecutor, organizationID int64) ([]models.AttributeDefinition, error) {
	definitions := []models.AttributeDefinition{}
	for _, definition := range f.definitions {
		if definition.OrganizationID == organizationID {
			definitions = append(definitions, definition)
		}
	}
	return definitions, nil
}

// --- ReferenceRepository ---

func (f *fakeCatalogStore) UnitExists(_ repositories.SQLExecutor, organizationID, unitID int64) (bool, error) {
	return organizationID == f.organization.ID && f.units[unitID], nil
}

func (f *fakeCatalogStore) SupplierExists(_ repositories.SQLExecutor, organizationID, supplierID int64) (bool, error) {
	return organizationID == f.organization.ID && f.suppliers[supplierID], nil
}

func (f *fakeCatalogStore) EnsureCategory(_ repositories.SQLExecutor, organizationID int64, name string) (int64, error) {
	key := fmt.Sprintf("%d:%s", organizationID, name)
	if id, ok := f.categories[key]; ok {
		return id, nil
	}
	id := f.id()
	f.categories[key] = id
	return id, nil
}

func (f *fakeCatalogStore) GetOrganization(_ repositories.SQLExecutor, organizationID int64) (*models.Organization, error) {
	if f.organization == nil || f.organization.ID != organizationID {
		return nil, repositories.ErrNotFound
	}
	clone := *f.organization
	return &clone, nil
}

// --- CostRepository ---

func (f *fakeCatalogStore) UpsertCost(_ repositories.SQLExecutor, cost *models.ProductCost) error {
	if cost.CostBasisQty < 1 {
		cost.CostBasisQty = 1
	}
	clone := *cost
	f.costs[costKey(cost.OrganizationID, cost.ProductID, cost.VariantKey)] = &clone
	return nil
}

func (f *fakeCatalogStore) GetCost(_ repositories.SQLExecutor, organizationID, productID int64, variantKey string) (*models.ProductCost, error) {
	cost, ok := f.costs[costKey(organizationID, productID, variantKey)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *cost
	return &clone, nil
}

// --- AuditRepository ---

func (f *fakeCatalogStore) WriteAuditLog(_ repositories.SQLExecutor, entry *models.AuditLog) (int64, error) {
	entry.ID = f.id()
	f.audits = append(f.audits, *entry)
	return entry.ID, nil
}

func (f *fakeCatalogStore) RecordFirstEvent(organizationID int64, actorID *int64, milestoneType string, metadata *string) error {
	f.milestones[fmt.Sprintf("%d:%s", organizationID, milestoneType)]++
	return nil
}

// --- Wiring helpers ---

func newTestProductService(store *fakeCatalogStore) ProductService {
	return NewProductService(
		&fakeTxManager{}, store, store, store, store, store, store, store, store,
		NewPlanLimitChecker(store, store), NewURLImageResolver(), store, nil,
	)
}

func newTestBarcodeService(store *fakeCatalogStore, generator BarcodeValueGenerator) BarcodeService {
	if generator == nil {
		generator = NewBarcodeValueGenerator()
	}
	return NewBarcodeService(&fakeTxManager{}, store, store, generator, 100)
}

func newTestImportService(store *fakeCatalogStore) ImportService {
	return NewImportService(&fakeTxManager{}, store, store, store, store, store, store, store, 0)
}

func strPtr(s string) *string       { return &s }
func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
