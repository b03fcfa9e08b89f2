package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threatiq/threatiq-backend/model"
)

func TestMemoryUpsertMergesExistingItem(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	first := model.NewThreatItem("CVE-2024-1234")
	first.Exploited = true
	first.AffectedProducts = []string{"google chrome"}
	require.NoError(t, mem.Upsert(ctx, first))

	stored, err := mem.Get(ctx, "CVE-2024-1234")
	require.NoError(t, err)
	createdAt := stored.CreatedAt

	// A later non-exploited upsert must not reset the flag, and products union.
	second := model.NewThreatItem("CVE-2024-1234")
	second.CVSSScore = 9.8
	second.AffectedProducts = []string{"google chrome", "microsoft edge"}
	require.NoError(t, mem.Upsert(ctx, second))

	stored, err = mem.Get(ctx, "CVE-2024-1234")
	require.NoError(t, err)
	require.NotNil(t, stored)

	assert.True(t, stored.Exploited)
	assert.Equal(t, 9.8, stored.CVSSScore)
	assert.ElementsMatch(t, []string{"google chrome", "microsoft edge"}, stored.AffectedProducts)
	assert.Equal(t, createdAt, stored.CreatedAt)
}

func TestMemoryGetUnknownReturnsNil(t *testing.T) {
	mem := NewMemory()
	item, err := mem.Get(context.Background(), "CVE-1999-0001")
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestMemoryGetNormalizesID(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	require.NoError(t, mem.Upsert(ctx, model.NewThreatItem("CVE-2024-1234")))

	item, err := mem.Get(ctx, " cve-2024-1234 ")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "CVE-2024-1234", item.ID)
}

func TestMemoryPublishedSince(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	now := time.Now().UTC()

	recent := model.NewThreatItem("CVE-2024-0001")
	recent.PublishedDate = now.AddDate(0, 0, -5)
	require.NoError(t, mem.Upsert(ctx, recent))

	stale := model.NewThreatItem("CVE-2020-0001")
	stale.PublishedDate = now.AddDate(0, 0, -90)
	require.NoError(t, mem.Upsert(ctx, stale))

	items, err := mem.PublishedSince(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CVE-2024-0001", items[0].ID)
}

func TestMemoryListFilters(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	now := time.Now().UTC()

	critical := model.NewThreatItem("CVE-2024-0001")
	critical.Severity = model.SeverityCritical
	critical.Exploited = true
	critical.PublishedDate = now
	require.NoError(t, mem.Upsert(ctx, critical))

	low := model.NewThreatItem("CVE-2024-0002")
	low.Severity = model.SeverityLow
	low.PublishedDate = now.Add(-time.Hour)
	require.NoError(t, mem.Upsert(ctx, low))

	items, err := mem.List(ctx, ThreatFilter{Severity: "critical"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CVE-2024-0001", items[0].ID)

	exploited := true
	items, err = mem.List(ctx, ThreatFilter{Exploited: &exploited})
	require.NoError(t, err)
	assert.Len(t, items, 1)

	items, err = mem.List(ctx, ThreatFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "CVE-2024-0001", items[0].ID, "newest first")
}

func TestMemoryCorrelationUpsertPreservesCreation(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	corr := model.NewCorrelation("CVE-2024-0001", "t1")
	corr.RiskScore = 40
	require.NoError(t, mem.UpsertCorrelation(ctx, corr))

	records, err := mem.QueryCorrelations(ctx, CorrelationFilter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	createdAt := records[0].CreatedAt

	update := model.NewCorrelation("CVE-2024-0001", "t1")
	update.RiskScore = 90
	require.NoError(t, mem.UpsertCorrelation(ctx, update))

	records, err = mem.QueryCorrelations(ctx, CorrelationFilter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 90, records[0].RiskScore)
	assert.Equal(t, createdAt, records[0].CreatedAt)
}

func TestMemoryQueryCorrelationsOrdersByRisk(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()

	for i, score := range []int{30, 90, 60} {
		corr := model.NewCorrelation(fmt.Sprintf("CVE-2024-000%d", i+1), "t1")
		corr.RiskScore = score
		require.NoError(t, mem.UpsertCorrelation(ctx, corr))
	}

	records, err := mem.QueryCorrelations(ctx, CorrelationFilter{TenantID: "t1"})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, 90, records[0].RiskScore)
	assert.Equal(t, 60, records[1].RiskScore)
	assert.Equal(t, 30, records[2].RiskScore)

	records, err = mem.QueryCorrelations(ctx, CorrelationFilter{MinRisk: 50})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestMemoryRecentScans(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		mem.AddScan(model.ScanRecord{
			TenantID:  "t1",
			DeviceID:  "D1",
			ScannedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}

	scans, err := mem.RecentScans(ctx, "t1", 3)
	require.NoError(t, err)
	require.Len(t, scans, 3)
	assert.Equal(t, now, scans[0].ScannedAt)

	scans, err = mem.RecentScans(ctx, "unknown", 3)
	require.NoError(t, err)
	assert.Empty(t, scans)
}
