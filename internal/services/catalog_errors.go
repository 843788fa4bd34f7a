package services

import "errors"

// Catalog mutation errors. Each sentinel carries the machine-readable code the
// API surfaces; handlers map them to HTTP statuses. All of them abort the
// enclosing transaction before any write of their category.
var (
	ErrProductNotFound  = errors.New("productNotFound")
	ErrSKURequired      = errors.New("skuRequired")
	ErrNameRequired     = errors.New("nameRequired")
	ErrUnitRequired     = errors.New("unitRequired")
	ErrUnitNotFound     = errors.New("unitNotFound")
	ErrSupplierNotFound = errors.New("supplierNotFound")

	// Barcode errors. ErrDuplicateBarcode is the request-local duplicate;
	// the *Exists variants are organization-wide collisions.
	ErrDuplicateBarcode     = errors.New("duplicateBarcode")
	ErrBarcodeExists        = errors.New("barcodeExists")
	ErrPackBarcodeExists    = errors.New("packBarcodeExists")
	ErrPackBarcodeDuplicate = errors.New("packBarcodeDuplicate")

	ErrPackNameDuplicate     = errors.New("packNameDuplicate")
	ErrPackMultiplierInvalid = errors.New("packMultiplierInvalid")

	ErrBundleEmpty              = errors.New("bundleEmpty")
	ErrBundleComponentInvalid   = errors.New("bundleComponentInvalid")
	ErrBundleComponentDuplicate = errors.New("bundleComponentDuplicate")

	ErrAttributeRequired      = errors.New("attributeRequired")
	ErrAttributeNumberInvalid = errors.New("attributeNumberInvalid")
	ErrAttributeValueInvalid  = errors.New("attributeValueInvalid")

	ErrUnitChangeNotAllowed = errors.New("unitChangeNotAllowed")
	ErrVariantInUse         = errors.New("variantInUse")
	ErrVariantNotFound      = errors.New("variantNotFound")

	ErrPriceInvalid = errors.New("priceInvalid")

	ErrProductBarcodeExists    = errors.New("productBarcodeExists")
	ErrBarcodeGenerationFailed = errors.New("barcodeGenerationFailed")

	ErrUniqueConstraintViolation = errors.New("uniqueConstraintViolation")
	ErrPlanLimitReached          = errors.New("planLimitReached")
	ErrImportRowInvalid          = errors.New("importRowInvalid")
)
