package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/threatiq/threatiq-backend/model"
	"github.com/threatiq/threatiq-backend/util"
)

// Memory is an in-memory implementation of the store contracts, used by
// tests and local development. Upsert semantics mirror the ArangoDB
// implementation: sticky exploited flag, product union, preserved creation
// timestamps.
type Memory struct {
	mu           sync.RWMutex
	threats      map[string]*model.ThreatItem
	correlations map[string]*model.Correlation
	tenants      map[string]model.Tenant
	scans        map[string][]model.ScanRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		threats:      make(map[string]*model.ThreatItem),
		correlations: make(map[string]*model.Correlation),
		tenants:      make(map[string]model.Tenant),
		scans:        make(map[string][]model.ScanRecord),
	}
}

// Upsert inserts or merges a threat item by disclosure id.
func (m *Memory) Upsert(_ context.Context, item *model.ThreatItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item.UpdatedAt = time.Now().UTC()

	old, ok := m.threats[item.ID]
	if !ok {
		cp := *item
		m.threats[item.ID] = &cp
		return nil
	}

	merged := *item
	merged.Exploited = old.Exploited || item.Exploited
	merged.CreatedAt = old.CreatedAt
	if merged.ExploitationDate == nil {
		merged.ExploitationDate = old.ExploitationDate
	}
	if merged.Exploitation == nil {
		merged.Exploitation = old.Exploitation
	}

	products := append([]string{}, old.AffectedProducts...)
	for _, p := range item.AffectedProducts {
		if !util.Contains(products, p) {
			products = append(products, p)
		}
	}
	merged.AffectedProducts = products

	m.threats[item.ID] = &merged
	return nil
}

// Get returns the item for a disclosure id, or nil when absent. The id is
// uppercased before lookup, matching the ArangoDB implementation.
func (m *Memory) Get(_ context.Context, id string) (*model.ThreatItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	item, ok := m.threats[strings.ToUpper(strings.TrimSpace(id))]
	if !ok {
		return nil, nil
	}
	cp := *item
	return &cp, nil
}

// PublishedSince returns items published at or after cutoff.
func (m *Memory) PublishedSince(_ context.Context, cutoff time.Time) ([]model.ThreatItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []model.ThreatItem
	for _, item := range m.threats {
		if !item.PublishedDate.Before(cutoff) {
			items = append(items, *item)
		}
	}
	return items, nil
}

// List returns items matching the filter, newest first.
func (m *Memory) List(_ context.Context, filter ThreatFilter) ([]model.ThreatItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var items []model.ThreatItem
	for _, item := range m.threats {
		if filter.Severity != "" && string(item.Severity) != filter.Severity {
			continue
		}
		if filter.Exploited != nil && item.Exploited != *filter.Exploited {
			continue
		}
		if !filter.Since.IsZero() && item.PublishedDate.Before(filter.Since) {
			continue
		}
		items = append(items, *item)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedDate.After(items[j].PublishedDate)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

// UpsertCorrelation overwrites the record for (threat, tenant) wholesale,
// preserving only the original creation timestamp.
func (m *Memory) UpsertCorrelation(_ context.Context, corr *model.Correlation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := corr.TenantID + ":" + corr.ThreatID
	corr.UpdatedAt = time.Now().UTC()
	if old, ok := m.correlations[key]; ok {
		corr.CreatedAt = old.CreatedAt
	}
	cp := *corr
	m.correlations[key] = &cp
	return nil
}

// QueryCorrelations returns records matching the filter, highest risk first.
func (m *Memory) QueryCorrelations(_ context.Context, filter CorrelationFilter) ([]model.Correlation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var records []model.Correlation
	for _, corr := range m.correlations {
		if filter.TenantID != "" && corr.TenantID != filter.TenantID {
			continue
		}
		if filter.MinRisk > 0 && corr.RiskScore < filter.MinRisk {
			continue
		}
		if filter.Severity != "" && string(corr.ThreatDetails.Severity) != filter.Severity {
			continue
		}
		if filter.Exploited != nil && corr.ThreatDetails.Exploited != *filter.Exploited {
			continue
		}
		records = append(records, *corr)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].RiskScore > records[j].RiskScore
	})
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

// AddTenant seeds a tenant into the inventory read-model.
func (m *Memory) AddTenant(tenant model.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[tenant.ID] = tenant
}

// AddScan seeds a scan record into the inventory read-model.
func (m *Memory) AddScan(scan model.ScanRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scans[scan.TenantID] = append(m.scans[scan.TenantID], scan)
}

// ListTenants returns all known tenants.
func (m *Memory) ListTenants(_ context.Context) ([]model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tenants := make([]model.Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		tenants = append(tenants, t)
	}
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].ID < tenants[j].ID })
	return tenants, nil
}

// GetTenant returns one tenant by id, or nil when absent.
func (m *Memory) GetTenant(_ context.Context, id string) (*model.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

// RecentScans returns up to limit scans for a tenant, newest first.
func (m *Memory) RecentScans(_ context.Context, tenantID string, limit int) ([]model.ScanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	scans := append([]model.ScanRecord{}, m.scans[tenantID]...)
	sort.Slice(scans, func(i, j int) bool {
		return scans[i].ScannedAt.After(scans[j].ScannedAt)
	})
	if limit > 0 && len(scans) > limit {
		scans = scans[:limit]
	}
	return scans, nil
}

// memoryCorrelations adapts Memory to the CorrelationStore interface so one
// seeded instance can serve every contract in tests.
type memoryCorrelations struct{ *Memory }

// Correlations returns the Memory store's CorrelationStore view.
func (m *Memory) Correlations() CorrelationStore {
	return memoryCorrelations{m}
}

func (m memoryCorrelations) Upsert(ctx context.Context, corr *model.Correlation) error {
	return m.UpsertCorrelation(ctx, corr)
}

func (m memoryCorrelations) Query(ctx context.Context, filter CorrelationFilter) ([]model.Correlation, error) {
	return m.QueryCorrelations(ctx, filter)
}
