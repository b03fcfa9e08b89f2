package correlate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/threatiq/threatiq-backend/internal/store"
	"github.com/threatiq/threatiq-backend/model"
)

func seedThreat(t *testing.T, mem *store.Memory, id string, cvss float64, exploited bool, published time.Time, products ...string) {
	t.Helper()
	item := model.NewThreatItem(id)
	item.CVSSScore = cvss
	item.Severity = model.SeverityFromScore(cvss)
	item.Exploited = exploited
	item.PublishedDate = published
	item.AffectedProducts = products
	require.NoError(t, mem.Upsert(context.Background(), item))
}

func TestCorrelateTenantMatchesInventory(t *testing.T) {
	mem := store.NewMemory()
	clk := clock.NewMockClock()
	now := clk.Now().UTC()

	seedThreat(t, mem, "CVE-2024-1234", 9.8, true, now.Add(-24*time.Hour), "google chrome")

	tenant := model.Tenant{ID: "t1", Name: "Acme", InternetExposed: true, BusinessCritical: true}
	mem.AddTenant(tenant)
	mem.AddScan(model.ScanRecord{
		TenantID:  "t1",
		DeviceID:  "D1",
		ScannedAt: now.Add(-time.Hour),
		Software:  []model.SoftwareEntry{{Name: "Google Chrome", Version: "118.0"}},
	})

	engine := NewEngine(mem, mem, mem.Correlations(), clk, zap.NewNop(), Options{})

	written, err := engine.CorrelateTenant(context.Background(), tenant)
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	records, err := mem.QueryCorrelations(context.Background(), store.CorrelationFilter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	corr := records[0]
	assert.Equal(t, "CVE-2024-1234", corr.ThreatID)
	assert.Equal(t, []string{"D1"}, corr.ImpactedEndpoints)
	assert.Equal(t, 100, corr.RiskScore)
	assert.Equal(t, 1, corr.RiskFactors.EndpointCount)
	assert.True(t, corr.ThreatDetails.Exploited)
	assert.Equal(t, model.SeverityCritical, corr.ThreatDetails.Severity)
	assert.Equal(t, now, corr.LastChecked)

	require.Len(t, corr.ImpactedSoftware, 1)
	assert.Equal(t, "google chrome", corr.ImpactedSoftware[0].Name)
	assert.Equal(t, "118.0", corr.ImpactedSoftware[0].Version)
	require.NotNil(t, corr.ImpactedSoftware[0].VersionMajor)
	assert.Equal(t, 118, *corr.ImpactedSoftware[0].VersionMajor)
}

func TestCorrelateTenantNoMatchWritesNothing(t *testing.T) {
	mem := store.NewMemory()
	clk := clock.NewMockClock()
	now := clk.Now().UTC()

	seedThreat(t, mem, "CVE-2024-0042", 8.0, false, now, "microsoft word")

	tenant := model.Tenant{ID: "t1"}
	mem.AddTenant(tenant)
	mem.AddScan(model.ScanRecord{
		TenantID:  "t1",
		DeviceID:  "D1",
		ScannedAt: now,
		Software:  []model.SoftwareEntry{{Name: "Google Chrome", Version: "118.0"}},
	})

	engine := NewEngine(mem, mem, mem.Correlations(), clk, zap.NewNop(), Options{})

	written, err := engine.CorrelateTenant(context.Background(), tenant)
	require.NoError(t, err)
	assert.Zero(t, written)

	records, err := mem.QueryCorrelations(context.Background(), store.CorrelationFilter{})
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestCorrelateTenantIgnoresThreatsOutsideWindow(t *testing.T) {
	mem := store.NewMemory()
	clk := clock.NewMockClock()
	now := clk.Now().UTC()

	seedThreat(t, mem, "CVE-2020-9999", 9.8, true, now.AddDate(0, 0, -60), "google chrome")

	tenant := model.Tenant{ID: "t1"}
	mem.AddTenant(tenant)
	mem.AddScan(model.ScanRecord{
		TenantID:  "t1",
		DeviceID:  "D1",
		ScannedAt: now,
		Software:  []model.SoftwareEntry{{Name: "Google Chrome", Version: "118.0"}},
	})

	engine := NewEngine(mem, mem, mem.Correlations(), clk, zap.NewNop(), Options{WindowDays: 30})

	written, err := engine.CorrelateTenant(context.Background(), tenant)
	require.NoError(t, err)
	assert.Zero(t, written)
}

func TestCorrelateTenantRecomputesOnNewScan(t *testing.T) {
	mem := store.NewMemory()
	clk := clock.NewMockClock()
	now := clk.Now().UTC()

	seedThreat(t, mem, "CVE-2024-1234", 9.8, false, now, "google chrome")

	tenant := model.Tenant{ID: "t1"}
	mem.AddTenant(tenant)
	mem.AddScan(model.ScanRecord{
		TenantID:  "t1",
		DeviceID:  "D1",
		ScannedAt: now.Add(-2 * time.Hour),
		Software:  []model.SoftwareEntry{{Name: "Google Chrome", Version: "118.0"}},
	})

	engine := NewEngine(mem, mem, mem.Correlations(), clk, zap.NewNop(), Options{})

	_, err := engine.CorrelateTenant(context.Background(), tenant)
	require.NoError(t, err)

	mem.AddScan(model.ScanRecord{
		TenantID:  "t1",
		DeviceID:  "D2",
		ScannedAt: now.Add(-time.Hour),
		Software:  []model.SoftwareEntry{{Name: "Google Chrome", Version: "119.0"}},
	})

	_, err = engine.CorrelateTenant(context.Background(), tenant)
	require.NoError(t, err)

	records, err := mem.QueryCorrelations(context.Background(), store.CorrelationFilter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.ElementsMatch(t, []string{"D1", "D2"}, records[0].ImpactedEndpoints)
	assert.Equal(t, 2, records[0].RiskFactors.EndpointCount)
	assert.Len(t, records[0].ImpactedSoftware, 2)
}

// flakyInventory fails scan reads for one tenant to exercise error isolation.
type flakyInventory struct {
	*store.Memory
	failFor string
}

func (f flakyInventory) RecentScans(ctx context.Context, tenantID string, limit int) ([]model.ScanRecord, error) {
	if tenantID == f.failFor {
		return nil, errors.New("scan backend unavailable")
	}
	return f.Memory.RecentScans(ctx, tenantID, limit)
}

func TestFanoutIsolatesTenantFailures(t *testing.T) {
	mem := store.NewMemory()
	clk := clock.NewMockClock()
	now := clk.Now().UTC()

	seedThreat(t, mem, "CVE-2024-1234", 9.8, true, now, "google chrome")

	mem.AddTenant(model.Tenant{ID: "t-bad"})
	mem.AddTenant(model.Tenant{ID: "t-good"})
	mem.AddScan(model.ScanRecord{
		TenantID:  "t-good",
		DeviceID:  "D1",
		ScannedAt: now,
		Software:  []model.SoftwareEntry{{Name: "Google Chrome", Version: "118.0"}},
	})

	inventory := flakyInventory{Memory: mem, failFor: "t-bad"}
	engine := NewEngine(mem, inventory, mem.Correlations(), clk, zap.NewNop(), Options{})
	fanout := NewFanout(engine, inventory, zap.NewNop(), 2)

	succeeded := fanout.RunAll(context.Background())
	assert.Equal(t, 1, succeeded)

	records, err := mem.QueryCorrelations(context.Background(), store.CorrelationFilter{TenantID: "t-good"})
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestFanoutNoTenants(t *testing.T) {
	mem := store.NewMemory()
	engine := NewEngine(mem, mem, mem.Correlations(), clock.NewMockClock(), zap.NewNop(), Options{})
	fanout := NewFanout(engine, mem, zap.NewNop(), 0)

	assert.Zero(t, fanout.RunAll(context.Background()))
}
