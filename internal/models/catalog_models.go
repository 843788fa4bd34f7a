package models

import "time"

// Product is a tenant-scoped catalog item. It owns its packs, images, barcodes,
// variants and, when IsBundle is set, its bundle components. Products are never
// hard-deleted; IsDeleted is a tombstone and read paths filter on it.
type Product struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	SKU            string    `json:"sku" db:"sku" binding:"required"`
	Name           string    `json:"name" db:"name" binding:"required"`
	CategoryID     *int64    `json:"category_id,omitempty" db:"category_id"`
	SupplierID     *int64    `json:"supplier_id,omitempty" db:"supplier_id"`
	BaseUnitID     int64     `json:"base_unit_id" db:"base_unit_id"`
	BasePriceKgs   float64   `json:"base_price_kgs" db:"base_price_kgs"`
	Description    *string   `json:"description,omitempty" db:"description"`
	PhotoURL       *string   `json:"photo_url,omitempty" db:"photo_url"`
	IsBundle       bool      `json:"is_bundle" db:"is_bundle"`
	IsDeleted      bool      `json:"is_deleted" db:"is_deleted"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`

	Category         *ProductCategory  `json:"category,omitempty"`
	Packs            []ProductPack     `json:"packs,omitempty"`
	Images           []ProductImage    `json:"images,omitempty"`
	Barcodes         []ProductBarcode  `json:"barcodes,omitempty"`
	Variants         []ProductVariant  `json:"variants,omitempty"`
	BundleComponents []BundleComponent `json:"bundle_components,omitempty"`
	Cost             *ProductCost      `json:"cost,omitempty"`
}

// ProductVariant is an optional sub-SKU of a product. IsActive is a tombstone:
// variants referenced by stock movements, nonzero snapshots or purchase-order
// lines are deactivated, never deleted.
type ProductVariant struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Name      string    `json:"name" db:"name" binding:"required"`
	SKU       *string   `json:"sku,omitempty" db:"sku"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Attributes mirrors the variant_attribute_values rows as a key -> raw value map.
	Attributes map[string]interface{} `json:"attributes,omitempty"`

	AttributeValues []VariantAttributeValue `json:"attribute_values,omitempty"`
}

// VariantAttributeValue is the queryable row form of one attribute on a variant.
// Exactly one of TextValue, NumberValue or Selections is populated, matching the
// attribute definition's type.
type VariantAttributeValue struct {
	ID          int64    `json:"id" db:"id"`
	VariantID   int64    `json:"variant_id" db:"variant_id"`
	AttrKey     string   `json:"attr_key" db:"attr_key"`
	AttrType    string   `json:"attr_type" db:"attr_type"`
	TextValue   *string  `json:"text_value,omitempty" db:"text_value"`
	NumberValue *float64 `json:"number_value,omitempty" db:"number_value"`
	Selections  []string `json:"selections,omitempty" db:"selections"`
}

// ProductPack is a purchasing/receiving unit multiplier of a product. Packs are
// replaced wholesale on every product update.
type ProductPack struct {
	ID               int64     `json:"id" db:"id"`
	ProductID        int64     `json:"product_id" db:"product_id"`
	PackName         string    `json:"pack_name" db:"pack_name" binding:"required"`
	PackBarcode      *string   `json:"pack_barcode,omitempty" db:"pack_barcode"`
	MultiplierToBase int       `json:"multiplier_to_base" db:"multiplier_to_base"`
	AllowPurchasing  bool      `json:"allow_purchasing" db:"allow_purchasing"`
	AllowReceiving   bool      `json:"allow_receiving" db:"allow_receiving"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// ProductBarcode is a scannable code value. Values are unique per organization
// across both the product-level and pack-level namespaces.
type ProductBarcode struct {
	ID        int64     `json:"id" db:"id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Value     string    `json:"value" db:"value" binding:"required"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ProductImage is one entry of a product's ordered image list. Position is
// renormalized to a contiguous 0-based sequence on every write; position 0 is
// mirrored into Product.PhotoURL.
type ProductImage struct {
	ID        int64  `json:"id" db:"id"`
	ProductID int64  `json:"product_id" db:"product_id"`
	URL       string `json:"url" db:"url"`
	Position  int    `json:"position" db:"position"`
}

// BundleComponent is an edge from a bundle product to a component product and
// optional variant, with a positive integer quantity.
type BundleComponent struct {
	ID                 int64  `json:"id" db:"id"`
	BundleProductID    int64  `json:"bundle_product_id" db:"bundle_product_id"`
	ComponentProductID int64  `json:"component_product_id" db:"component_product_id"`
	ComponentVariantID *int64 `json:"component_variant_id,omitempty" db:"component_variant_id"`
	Quantity           int    `json:"quantity" db:"quantity"`
}

// Attribute definition types.
const (
	AttributeTypeText        = "TEXT"
	AttributeTypeNumber      = "NUMBER"
	AttributeTypeSelect      = "SELECT"
	AttributeTypeMultiSelect = "MULTI_SELECT"
)

// AttributeDefinition is the organization-level schema entry for a variant
// custom field. Read-only to the catalog core.
type AttributeDefinition struct {
	ID             int64             `json:"id" db:"id"`
	OrganizationID int64             `json:"organization_id" db:"organization_id"`
	AttrKey        string            `json:"attr_key" db:"attr_key"`
	AttrType       string            `json:"attr_type" db:"attr_type"`
	Required       bool              `json:"required" db:"required"`
	Options        []AttributeOption `json:"options,omitempty"`
}

// AttributeOption is one locale-scoped option of a SELECT/MULTI_SELECT definition.
type AttributeOption struct {
	ID           int64  `json:"id" db:"id"`
	DefinitionID int64  `json:"definition_id" db:"definition_id"`
	Locale       string `json:"locale" db:"locale"`
	Value        string `json:"value" db:"value"`
}

// CostVariantKeyBase is the variant key of the product-level cost row.
const CostVariantKeyBase = "BASE"

// ProductCost is the per-(organization, product, variantKey) cost record,
// upserted as a side effect of create/update/import when a cost is supplied.
type ProductCost struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	ProductID      int64     `json:"product_id" db:"product_id"`
	VariantKey     string    `json:"variant_key" db:"variant_key"`
	CostKgs        float64   `json:"cost_kgs" db:"cost_kgs"`
	CostBasisQty   float64   `json:"cost_basis_qty" db:"cost_basis_qty"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// ProductCategory is the canonical organization-level category registry row.
type ProductCategory struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ProductBarcodeStatus is the slim row bulk barcode generation scans: a
// product identity plus how many barcodes it currently carries.
type ProductBarcodeStatus struct {
	ProductID    int64  `json:"product_id" db:"product_id"`
	SKU          string `json:"sku" db:"sku"`
	BarcodeCount int    `json:"barcode_count" db:"barcode_count"`
}

// ProductFilters narrows a catalog scan (list endpoint and bulk barcode
// generation share it).
type ProductFilters struct {
	IDs        []int64 `json:"ids,omitempty"`
	Search     *string `json:"search,omitempty"`
	CategoryID *int64  `json:"category_id,omitempty"`
	IsBundle   *bool   `json:"is_bundle,omitempty"`
	StoreID    *int64  `json:"store_id,omitempty"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
}
