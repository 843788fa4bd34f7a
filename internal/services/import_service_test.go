package services

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"catalog_backend/internal/models"
)

func TestImportProductsModeValidation(t *testing.T) {
	t.Parallel()

	store := newFakeCatalogStore()
	svc := newTestImportService(store)

	_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{Mode: "merge"})
	require.ErrorIs(t, err, ErrImportRowInvalid)

	_, err = svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{Mode: ImportModeUpdateSelected})
	require.ErrorIs(t, err, ErrImportRowInvalid)

	_, err = svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
		Mode:       ImportModeUpdateSelected,
		UpdateMask: []string{"made_up_field"},
	})
	require.ErrorIs(t, err, ErrImportRowInvalid)
}

func TestImportProductsFullMode(t *testing.T) {
	t.Parallel()

	t.Run("creates new products", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		svc := newTestImportService(store)

		result, err := svc.ImportProducts(context.Background(), 1, int64Ptr(5), ImportProductsRequest{
			Rows: []ImportRow{
				{
					SKU:        " SKU-1 ",
					Name:       "Rice 1kg",
					Category:   strPtr("Groceries"),
					BaseUnitID: int64Ptr(1),
					// JSON numbers decode as float64; cost prefers avg over purchase.
					BasePriceKgs:     float64Ptr(120),
					AvgCostKgs:       float64Ptr(80),
					PurchasePriceKgs: float64Ptr(85),
					Barcodes:         []string{"4601234567890"},
					MinStock:         float64Ptr(10),
					StoreID:          int64Ptr(1),
				},
			},
		})
		require.NoError(t, err)
		require.Len(t, result.Rows, 1)
		require.Equal(t, "SKU-1", result.Rows[0].SKU)
		require.Equal(t, ImportActionCreated, result.Rows[0].Action)

		product, err := store.GetProductBySKU(nil, 1, "SKU-1")
		require.NoError(t, err)
		require.Equal(t, "Rice 1kg", product.Name)
		require.Equal(t, 120.0, product.BasePriceKgs)
		require.NotNil(t, product.CategoryID)
		require.Len(t, store.barcodes[product.ID], 1)

		cost := store.costs[costKey(1, product.ID, models.CostVariantKeyBase)]
		require.NotNil(t, cost)
		require.Equal(t, 80.0, cost.CostKgs)

		snapshot := store.snapshots[snapshotKey(1, product.ID)]
		require.NotNil(t, snapshot)
		require.NotNil(t, snapshot.MinStock)
		require.Equal(t, 10.0, *snapshot.MinStock)
		require.NotNil(t, store.snapshots[snapshotKey(2, product.ID)])

		require.Len(t, store.audits, 1)
		require.Equal(t, "import", store.audits[0].Action)
		require.Equal(t, "product_batch", store.audits[0].Entity)
	})

	t.Run("updates existing products by sku", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		productID := seedProduct(store, "SKU-1")
		svc := newTestImportService(store)

		result, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Rows: []ImportRow{
				{SKU: "SKU-1", Name: "Renamed", BasePriceKgs: float64Ptr(55)},
				{SKU: "SKU-2", Name: "Brand New", BaseUnitID: int64Ptr(1)},
			},
		})
		require.NoError(t, err)
		require.Len(t, result.Rows, 2)
		require.Equal(t, ImportActionUpdated, result.Rows[0].Action)
		require.Equal(t, ImportActionCreated, result.Rows[1].Action)

		require.Equal(t, "Renamed", store.products[productID].Name)
		require.Equal(t, 55.0, store.products[productID].BasePriceKgs)
	})

	t.Run("new product requires name and unit", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		svc := newTestImportService(store)

		_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Rows: []ImportRow{{SKU: "SKU-1", BaseUnitID: int64Ptr(1)}},
		})
		require.ErrorIs(t, err, ErrNameRequired)

		_, err = svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Rows: []ImportRow{{SKU: "SKU-1", Name: "No Unit"}},
		})
		require.ErrorIs(t, err, ErrUnitRequired)

		_, err = svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Rows: []ImportRow{{SKU: "SKU-1", Name: "Bad Unit", BaseUnitID: int64Ptr(99)}},
		})
		require.ErrorIs(t, err, ErrUnitNotFound)
	})

	t.Run("malformed row aborts the whole batch", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		svc := newTestImportService(store)

		_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Rows: []ImportRow{
				{SKU: "SKU-1", Name: "Fine", BaseUnitID: int64Ptr(1)},
				{SKU: "SKU-2", Name: "Broken", BaseUnitID: int64Ptr(1), BasePriceKgs: float64Ptr(math.NaN())},
			},
		})
		require.ErrorIs(t, err, ErrImportRowInvalid)
		require.ErrorContains(t, err, "row 2")
	})

	t.Run("blank sku aborts the batch", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		svc := newTestImportService(store)

		_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Rows: []ImportRow{{SKU: "   ", Name: "No SKU", BaseUnitID: int64Ptr(1)}},
		})
		require.ErrorIs(t, err, ErrSKURequired)
	})

	t.Run("min stock requires a valid store", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		svc := newTestImportService(store)

		_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Rows: []ImportRow{{SKU: "SKU-1", Name: "P", BaseUnitID: int64Ptr(1), MinStock: float64Ptr(5)}},
		})
		require.ErrorIs(t, err, ErrImportRowInvalid)

		_, err = svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Rows: []ImportRow{{SKU: "SKU-1", Name: "P", BaseUnitID: int64Ptr(1), MinStock: float64Ptr(5), StoreID: int64Ptr(77)}},
		})
		require.ErrorIs(t, err, ErrImportRowInvalid)
	})

	t.Run("barcode namespace enforced across rows", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		svc := newTestImportService(store)

		_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Rows: []ImportRow{
				{SKU: "SKU-1", Name: "A", BaseUnitID: int64Ptr(1), Barcodes: []string{"SHARED"}},
				{SKU: "SKU-2", Name: "B", BaseUnitID: int64Ptr(1), Barcodes: []string{"SHARED"}},
			},
		})
		require.ErrorIs(t, err, ErrBarcodeExists)
	})
}

func TestImportProductsUpdateSelected(t *testing.T) {
	t.Parallel()

	t.Run("unmatched skus are skipped, not created", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		seedProduct(store, "SKU-1")
		svc := newTestImportService(store)

		result, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Mode:       ImportModeUpdateSelected,
			UpdateMask: []string{ImportFieldPrice},
			Rows: []ImportRow{
				{SKU: "SKU-1", BasePriceKgs: float64Ptr(70)},
				{SKU: "SKU-MISSING", BasePriceKgs: float64Ptr(70)},
			},
		})
		require.NoError(t, err)
		require.Equal(t, ImportActionUpdated, result.Rows[0].Action)
		require.Equal(t, ImportActionSkipped, result.Rows[1].Action)
		require.Len(t, store.products, 1)
	})

	t.Run("only masked fields change", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		productID := seedProduct(store, "SKU-1")
		store.products[productID].BasePriceKgs = 50
		svc := newTestImportService(store)

		_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Mode:       ImportModeUpdateSelected,
			UpdateMask: []string{ImportFieldName},
			Rows: []ImportRow{
				{SKU: "SKU-1", Name: "Renamed", BasePriceKgs: float64Ptr(9999), Description: strPtr("sneaky")},
			},
		})
		require.NoError(t, err)

		product := store.products[productID]
		require.Equal(t, "Renamed", product.Name)
		require.Equal(t, 50.0, product.BasePriceKgs)
		require.Nil(t, product.Description)
	})

	t.Run("unit change guard applies", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		productID := seedProduct(store, "SKU-1")
		store.movementsByProduct[productID] = 2
		svc := newTestImportService(store)

		_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Mode:       ImportModeUpdateSelected,
			UpdateMask: []string{ImportFieldUnit},
			Rows:       []ImportRow{{SKU: "SKU-1", BaseUnitID: int64Ptr(2)}},
		})
		require.ErrorIs(t, err, ErrUnitChangeNotAllowed)
		require.Equal(t, int64(1), store.products[productID].BaseUnitID)
	})

	t.Run("barcodes reconcile by difference", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		productID := seedProduct(store, "SKU-1")
		for _, value := range []string{"KEEP", "DROP"} {
			_, err := store.CreateBarcode(nil, &models.ProductBarcode{ProductID: productID, Value: value})
			require.NoError(t, err)
		}
		keptID := store.barcodes[productID][0].ID
		svc := newTestImportService(store)

		_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Mode:       ImportModeUpdateSelected,
			UpdateMask: []string{ImportFieldBarcodes},
			Rows:       []ImportRow{{SKU: "SKU-1", Barcodes: []string{"KEEP", "NEW"}}},
		})
		require.NoError(t, err)

		values := []string{}
		for _, barcode := range store.barcodes[productID] {
			values = append(values, barcode.Value)
		}
		require.ElementsMatch(t, []string{"KEEP", "NEW"}, values)

		// Unchanged values keep their rows.
		require.Equal(t, keptID, store.barcodes[productID][0].ID)
	})

	t.Run("nil barcodes leave the set alone", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		productID := seedProduct(store, "SKU-1")
		_, err := store.CreateBarcode(nil, &models.ProductBarcode{ProductID: productID, Value: "KEEP"})
		require.NoError(t, err)
		svc := newTestImportService(store)

		_, err = svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Mode:       ImportModeUpdateSelected,
			UpdateMask: []string{ImportFieldBarcodes, ImportFieldName},
			Rows:       []ImportRow{{SKU: "SKU-1", Name: "Renamed"}},
		})
		require.NoError(t, err)
		require.Len(t, store.barcodes[productID], 1)
	})

	t.Run("cost prefers avg over purchase price", func(t *testing.T) {
		t.Parallel()
		store := newFakeCatalogStore()
		productID := seedProduct(store, "SKU-1")
		svc := newTestImportService(store)

		_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Mode:       ImportModeUpdateSelected,
			UpdateMask: []string{ImportFieldCost},
			Rows:       []ImportRow{{SKU: "SKU-1", PurchasePriceKgs: float64Ptr(42)}},
		})
		require.NoError(t, err)
		cost := store.costs[costKey(1, productID, models.CostVariantKeyBase)]
		require.NotNil(t, cost)
		require.Equal(t, 42.0, cost.CostKgs)

		_, err = svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
			Mode:       ImportModeUpdateSelected,
			UpdateMask: []string{ImportFieldCost},
			Rows:       []ImportRow{{SKU: "SKU-1", AvgCostKgs: float64Ptr(40), PurchasePriceKgs: float64Ptr(45)}},
		})
		require.NoError(t, err)
		require.Equal(t, 40.0, store.costs[costKey(1, productID, models.CostVariantKeyBase)].CostKgs)
	})
}

func TestImportProductsWallClockLimit(t *testing.T) {
	t.Parallel()

	store := newFakeCatalogStore()
	svc := NewImportService(&fakeTxManager{}, store, store, store, store, store, store, store, time.Nanosecond)

	_, err := svc.ImportProducts(context.Background(), 1, nil, ImportProductsRequest{
		Rows: []ImportRow{{SKU: "SKU-1", Name: "Rice 1kg", BaseUnitID: int64Ptr(1), BasePriceKgs: float64Ptr(120)}},
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)

	// The batch never started; nothing was applied.
	require.Empty(t, store.products)
	require.Empty(t, store.audits)
}
