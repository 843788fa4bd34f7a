package services

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"catalog_backend/internal/repositories"
)

// External collaborators of the catalog core. The engine only depends on
// these narrow contracts; heavier implementations (object storage, billing)
// plug in behind them.

// ImageResolver turns an arbitrary incoming URL or data reference into a
// canonical stored URL, or nil when the value is unusable. The per-request
// cache avoids redundant resolution of repeated values.
type ImageResolver interface {
	ResolveProductImageURL(value string, organizationID, productID int64, cache map[string]*string) (*string, error)
}

// PlanLimitChecker rejects mutations that would exceed the tenant's plan.
type PlanLimitChecker interface {
	AssertWithinLimits(executor repositories.SQLExecutor, organizationID int64, kind string) error
}

// MilestoneRecorder is fire-and-forget tenant milestone tracking; the
// table-backed AuditRepository satisfies it.
type MilestoneRecorder interface {
	RecordFirstEvent(organizationID int64, actorID *int64, milestoneType string, metadata *string) error
}

// --- Default implementations ---

type urlImageResolver struct{}

// NewURLImageResolver returns a resolver that accepts absolute http(s) URLs
// as already canonical and rejects everything else as unresolvable.
func NewURLImageResolver() ImageResolver {
	return &urlImageResolver{}
}

func (r *urlImageResolver) ResolveProductImageURL(value string, organizationID, productID int64, cache map[string]*string) (*string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if cached, ok := cache[value]; ok {
		return cached, nil
	}
	var resolved *string
	if parsed, err := url.Parse(value); err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != "" {
		canonical := parsed.String()
		resolved = &canonical
	}
	cache[value] = resolved
	return resolved, nil
}

type planLimitChecker struct {
	referenceRepo repositories.ReferenceRepository
	productRepo   repositories.ProductRepository
}

// NewPlanLimitChecker returns a checker backed by the organization's plan row.
func NewPlanLimitChecker(referenceRepo repositories.ReferenceRepository, productRepo repositories.ProductRepository) PlanLimitChecker {
	return &planLimitChecker{referenceRepo: referenceRepo, productRepo: productRepo}
}

func (c *planLimitChecker) AssertWithinLimits(executor repositories.SQLExecutor, organizationID int64, kind string) error {
	if kind != "products" {
		return nil
	}
	organization, err := c.referenceRepo.GetOrganization(executor, organizationID)
	if err != nil {
		return fmt.Errorf("failed to load organization %d for plan check: %w", organizationID, err)
	}
	if organization.PlanProductLimit == nil {
		return nil
	}
	count, err := c.productRepo.CountProducts(executor, organizationID)
	if err != nil {
		return fmt.Errorf("failed to count products for plan check: %w", err)
	}
	if count >= *organization.PlanProductLimit {
		return fmt.Errorf("%w: organization %d is at its product limit of %d", ErrPlanLimitReached, organizationID, *organization.PlanProductLimit)
	}
	return nil
}

// marshalSnapshot serializes an audit before/after snapshot. Marshal failures
// degrade to nil rather than failing the mutation.
func marshalSnapshot(v interface{}) *string {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	text := string(data)
	return &text
}
