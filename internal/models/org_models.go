package models

import "time"

// Organization is a tenant. PlanProductLimit is nil for unlimited plans.
type Organization struct {
	ID               int64     `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	PlanProductLimit *int      `json:"plan_product_limit,omitempty" db:"plan_product_limit"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// User is an operator account scoped to one organization.
type User struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	Email          string    `json:"email" db:"email" binding:"required"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	FullName       *string   `json:"full_name,omitempty" db:"full_name"`
	Role           string    `json:"role" db:"role"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Unit is a unit of measure (pcs, kg, ...) scoped to an organization.
type Unit struct {
	ID             int64   `json:"id" db:"id"`
	OrganizationID int64   `json:"organization_id" db:"organization_id"`
	Name           string  `json:"name" db:"name"`
	ShortName      *string `json:"short_name,omitempty" db:"short_name"`
}

// Supplier is a vendor row referenced by products.
type Supplier struct {
	ID             int64  `json:"id" db:"id"`
	OrganizationID int64  `json:"organization_id" db:"organization_id"`
	Name           string `json:"name" db:"name"`
}

// Store is one physical location of an organization. Every non-deleted product
// carries a base inventory snapshot per store.
type Store struct {
	ID             int64  `json:"id" db:"id"`
	OrganizationID int64  `json:"organization_id" db:"organization_id"`
	Name           string `json:"name" db:"name"`
}

// AuditLog is an append-only record of one committed catalog mutation, with
// before/after snapshots serialized as JSON.
type AuditLog struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	ActorID        *int64    `json:"actor_id,omitempty" db:"actor_id"`
	Action         string    `json:"action" db:"action"`
	Entity         string    `json:"entity" db:"entity"`
	EntityID       int64     `json:"entity_id" db:"entity_id"`
	Before         *string   `json:"before,omitempty" db:"before"`
	After          *string   `json:"after,omitempty" db:"after"`
	RequestID      string    `json:"request_id" db:"request_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// OrgMilestone is a fire-and-forget tenant milestone ("first product created").
// At most one row per (organization, type).
type OrgMilestone struct {
	ID             int64     `json:"id" db:"id"`
	OrganizationID int64     `json:"organization_id" db:"organization_id"`
	ActorID        *int64    `json:"actor_id,omitempty" db:"actor_id"`
	MilestoneType  string    `json:"milestone_type" db:"milestone_type"`
	Metadata       *string   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}
