package models

import "time"

// InventorySnapshot is the per-store, per-product(+variant) on-hand/on-order
// record. A zero-valued base row exists for every store for every non-deleted
// product; the catalog core only ever creates these base rows.
type InventorySnapshot struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	StoreID        int64     `json:"store_id" db:"store_id"`
	ProductID      int64     `json:"product_id" db:"product_id"`
	VariantID      *int64    `json:"variant_id,omitempty" db:"variant_id"`
	OnHand         float64   `json:"on_hand" db:"on_hand"`
	OnOrder        float64   `json:"on_order" db:"on_order"`
	MinStock       *float64  `json:"min_stock,omitempty" db:"min_stock"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// StockMovement is a historical inventory transaction. The catalog core never
// writes movements; it only counts them to guard unit changes and variant
// deactivation.
type StockMovement struct {
	ID              int64     `json:"id" db:"id"`
	OrganizationID  int64     `json:"organization_id" db:"organization_id"`
	StoreID         int64     `json:"store_id" db:"store_id"`
	ProductID       int64     `json:"product_id" db:"product_id"`
	VariantID       *int64    `json:"variant_id,omitempty" db:"variant_id"`
	MovementType    string    `json:"movement_type" db:"movement_type"`
	QuantityChanged float64   `json:"quantity_changed" db:"quantity_changed"`
	MovementDate    time.Time `json:"movement_date" db:"movement_date"`
}

// PurchaseOrderLine references a product/variant from purchasing history.
// Read-only to the catalog core (variant deactivation guard).
type PurchaseOrderLine struct {
	ID              int64   `json:"id" db:"id"`
	PurchaseOrderID int64   `json:"purchase_order_id" db:"purchase_order_id"`
	ProductID       int64   `json:"product_id" db:"product_id"`
	VariantID       *int64  `json:"variant_id,omitempty" db:"variant_id"`
	Quantity        float64 `json:"quantity" db:"quantity"`
}
