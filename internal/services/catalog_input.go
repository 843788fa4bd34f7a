package services

import (
	"fmt"
	"strings"

	"catalog_backend/internal/models"
)

// --- Mutation DTOs ---

// ProductPackInput is one purchasing/receiving pack in a mutation request.
// MultiplierToBase arrives as a float and is truncated to a positive integer.
type ProductPackInput struct {
	PackName         string  `json:"pack_name" binding:"required"`
	PackBarcode      *string `json:"pack_barcode"`
	MultiplierToBase float64 `json:"multiplier_to_base" binding:"required"`
	AllowPurchasing  bool    `json:"allow_purchasing"`
	AllowReceiving   bool    `json:"allow_receiving"`
}

// ProductVariantInput is one variant in a mutation request. On update, an ID
// ties the input to an existing variant; active variants whose ids are absent
// from the request are candidates for deactivation.
type ProductVariantInput struct {
	ID         *int64                 `json:"id"`
	Name       string                 `json:"name" binding:"required"`
	SKU        *string                `json:"sku"`
	Attributes map[string]interface{} `json:"attributes"`
}

// BundleComponentInput is one component edge in a mutation request.
type BundleComponentInput struct {
	ComponentProductID int64   `json:"component_product_id" binding:"required"`
	ComponentVariantID *int64  `json:"component_variant_id"`
	Quantity           float64 `json:"quantity" binding:"required"`
}

// ProductImageInput is one incoming image reference, resolved through the
// image storage collaborator before persistence.
type ProductImageInput struct {
	Value string `json:"value" binding:"required"`
}

// CreateProductRequest is the full input of createProduct.
type CreateProductRequest struct {
	SKU              string                 `json:"sku"`
	Name             string                 `json:"name"`
	Category         *string                `json:"category"`
	SupplierID       *int64                 `json:"supplier_id"`
	BaseUnitID       int64                  `json:"base_unit_id"`
	BasePriceKgs     float64                `json:"base_price_kgs"`
	Description      *string                `json:"description"`
	PhotoURL         *string                `json:"photo_url"`
	IsBundle         bool                   `json:"is_bundle"`
	Barcodes         []string               `json:"barcodes"`
	Packs            []ProductPackInput     `json:"packs"`
	Images           []ProductImageInput    `json:"images"`
	Variants         []ProductVariantInput  `json:"variants"`
	BundleComponents []BundleComponentInput `json:"bundle_components"`
	CostKgs          *float64               `json:"cost_kgs"`
}

// UpdateProductRequest is the full input of updateProduct. Images being nil
// means "leave images untouched"; an empty non-nil slice clears them.
type UpdateProductRequest struct {
	SKU              string                 `json:"sku"`
	Name             string                 `json:"name"`
	Category         *string                `json:"category"`
	SupplierID       *int64                 `json:"supplier_id"`
	BaseUnitID       int64                  `json:"base_unit_id"`
	BasePriceKgs     float64                `json:"base_price_kgs"`
	Description      *string                `json:"description"`
	PhotoURL         *string                `json:"photo_url"`
	IsBundle         bool                   `json:"is_bundle"`
	Barcodes         []string               `json:"barcodes"`
	Packs            []ProductPackInput     `json:"packs"`
	Images           *[]ProductImageInput   `json:"images"`
	Variants         []ProductVariantInput  `json:"variants"`
	BundleComponents []BundleComponentInput `json:"bundle_components"`
	CostKgs          *float64               `json:"cost_kgs"`
}

// DuplicateProductRequest optionally pins the SKU of the copy; when empty the
// sequential -COPY probe resolves one.
type DuplicateProductRequest struct {
	SKU *string `json:"sku"`
}

// DuplicateProductResult is the contract of duplicateProduct.
type DuplicateProductResult struct {
	ProductID      int64  `json:"product_id"`
	SKU            string `json:"sku"`
	CopiedBarcodes bool   `json:"copied_barcodes"`
}

// --- Normalization helpers ---

// normalizePackInputs trims pack names and barcodes, truncates multipliers,
// and rejects request-local duplicates: two packs sharing a name, or two
// packs sharing a barcode.
func normalizePackInputs(inputs []ProductPackInput) ([]models.ProductPack, []string, error) {
	packs := make([]models.ProductPack, 0, len(inputs))
	packBarcodes := make([]string, 0, len(inputs))
	seenNames := make(map[string]bool, len(inputs))
	seenBarcodes := make(map[string]bool, len(inputs))

	for _, input := range inputs {
		name := strings.TrimSpace(input.PackName)
		if name == "" {
			continue
		}
		if seenNames[name] {
			return nil, nil, fmt.Errorf("%w: pack name '%s'", ErrPackNameDuplicate, name)
		}
		seenNames[name] = true

		multiplier, err := NormalizePositiveInt(input.MultiplierToBase, ErrPackMultiplierInvalid)
		if err != nil {
			return nil, nil, err
		}

		pack := models.ProductPack{
			PackName:         name,
			MultiplierToBase: multiplier,
			AllowPurchasing:  input.AllowPurchasing,
			AllowReceiving:   input.AllowReceiving,
		}
		if input.PackBarcode != nil {
			barcode := strings.TrimSpace(*input.PackBarcode)
			if barcode != "" {
				if seenBarcodes[barcode] {
					return nil, nil, fmt.Errorf("%w: pack barcode '%s'", ErrPackBarcodeDuplicate, barcode)
				}
				seenBarcodes[barcode] = true
				pack.PackBarcode = &barcode
				packBarcodes = append(packBarcodes, barcode)
			}
		}
		packs = append(packs, pack)
	}
	return packs, packBarcodes, nil
}

// normalizeBarcodeInputs cleans the product-level barcode set and checks it
// against the request's pack barcodes: the two lists live in one namespace,
// so a value appearing in both is a request-local pack-barcode duplicate.
func normalizeBarcodeInputs(raw []string, packBarcodes []string) ([]string, error) {
	barcodes, err := NormalizeIdentifierSet(raw, ErrDuplicateBarcode)
	if err != nil {
		return nil, err
	}
	packSet := make(map[string]bool, len(packBarcodes))
	for _, barcode := range packBarcodes {
		packSet[barcode] = true
	}
	for _, barcode := range barcodes {
		if packSet[barcode] {
			return nil, fmt.Errorf("%w: '%s' is used as both product and pack barcode", ErrPackBarcodeDuplicate, barcode)
		}
	}
	return barcodes, nil
}

// checkVariantSKUInputs rejects a request that puts the same sub-SKU on two
// variants. Nil and blank sub-SKUs are unconstrained.
func checkVariantSKUInputs(inputs []ProductVariantInput) error {
	skus := make([]string, 0, len(inputs))
	for _, input := range inputs {
		if input.SKU != nil {
			skus = append(skus, *input.SKU)
		}
	}
	_, err := NormalizeIdentifierSet(skus, ErrUniqueConstraintViolation)
	return err
}
