// Package store defines the persistence contracts for threat items,
// correlations, and the tenant inventory read-model, with an ArangoDB
// implementation and an in-memory implementation.
package store

import (
	"context"
	"time"

	"github.com/threatiq/threatiq-backend/model"
)

// ThreatFilter selects threat items for the query surface.
type ThreatFilter struct {
	Severity  string
	Exploited *bool
	Since     time.Time
	Limit     int
}

// CorrelationFilter selects correlation records for downstream consumers.
type CorrelationFilter struct {
	TenantID  string
	MinRisk   int
	Severity  string
	Exploited *bool
	Limit     int
}

// ThreatStore is the upsert-by-natural-key collection of threat items.
// The normalizer/orchestrator are its sole writers.
type ThreatStore interface {
	// Upsert inserts or updates the item keyed by its disclosure id. The
	// exploited flag is sticky: once true it is never reset by a later
	// upsert, and exploitation fields are preserved unless the incoming
	// item carries its own.
	Upsert(ctx context.Context, item *model.ThreatItem) error
	// Get returns the item for a disclosure id, or nil when absent.
	Get(ctx context.Context, id string) (*model.ThreatItem, error)
	// PublishedSince returns items published at or after cutoff.
	PublishedSince(ctx context.Context, cutoff time.Time) ([]model.ThreatItem, error)
	// List returns items matching the filter, newest first.
	List(ctx context.Context, filter ThreatFilter) ([]model.ThreatItem, error)
}

// CorrelationStore is the upsert-by-(threat, tenant) collection of
// correlation records. The correlation engine is its sole writer.
type CorrelationStore interface {
	// Upsert overwrites the record for (threat, tenant) wholesale,
	// preserving only the original creation timestamp.
	Upsert(ctx context.Context, corr *model.Correlation) error
	// Query returns records matching the filter, highest risk first.
	Query(ctx context.Context, filter CorrelationFilter) ([]model.Correlation, error)
}

// InventoryStore is the read-only view of tenants and their device scans,
// produced by the external scanning pipeline.
type InventoryStore interface {
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	GetTenant(ctx context.Context, id string) (*model.Tenant, error)
	// RecentScans returns up to limit scans for a tenant, newest first.
	RecentScans(ctx context.Context, tenantID string, limit int) ([]model.ScanRecord, error)
}
