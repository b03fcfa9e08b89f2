package correlate

import (
	"context"
	"fmt"
	"time"

	"github.com/WatchBeam/clock"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/threatiq/threatiq-backend/internal/metrics"
	"github.com/threatiq/threatiq-backend/internal/normalize"
	"github.com/threatiq/threatiq-backend/internal/store"
	"github.com/threatiq/threatiq-backend/model"
	"github.com/threatiq/threatiq-backend/util"
)

// tokenCacheSize bounds the cached token lists for threat product strings.
// The same products are compared against every tenant's inventory within a
// cycle, so tokenization is worth caching across tenants.
const tokenCacheSize = 4096

// Options tune the correlation windows.
type Options struct {
	// WindowDays bounds which threats are re-correlated; items published
	// earlier are left alone.
	WindowDays int
	// ScanWindow is how many of the tenant's most recent scans form the
	// inventory.
	ScanWindow int
}

// Engine correlates threat items against one tenant's software inventory and
// is the sole writer of correlation records.
type Engine struct {
	threats      store.ThreatStore
	inventory    store.InventoryStore
	correlations store.CorrelationStore
	clock        clock.Clock
	log          *zap.Logger
	opts         Options
	tokens       *lru.Cache[string, []string]
}

// NewEngine builds a correlation engine with injected dependencies.
func NewEngine(threats store.ThreatStore, inventory store.InventoryStore, correlations store.CorrelationStore, clk clock.Clock, log *zap.Logger, opts Options) *Engine {
	if opts.WindowDays <= 0 {
		opts.WindowDays = 30
	}
	if opts.ScanWindow <= 0 {
		opts.ScanWindow = 10
	}
	tokens, _ := lru.New[string, []string](tokenCacheSize)
	return &Engine{
		threats:      threats,
		inventory:    inventory,
		correlations: correlations,
		clock:        clk,
		log:          log,
		opts:         opts,
		tokens:       tokens,
	}
}

// invProduct is one inventory index entry: a normalized software name, the
// devices it was seen on, and the observed (name, version) pairs behind it.
type invProduct struct {
	devices  map[string]struct{}
	versions map[string]map[string]struct{} // version -> device set
}

// CorrelateTenant recomputes correlations for a single tenant and returns
// the number of records written. Threats whose affected products match
// nothing in the inventory produce no record.
func (e *Engine) CorrelateTenant(ctx context.Context, tenant model.Tenant) (int, error) {
	now := e.clock.Now().UTC()
	cutoff := now.AddDate(0, 0, -e.opts.WindowDays)

	threats, err := e.threats.PublishedSince(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("loading recent threats: %w", err)
	}
	if len(threats) == 0 {
		return 0, nil
	}

	index, err := e.buildInventoryIndex(ctx, tenant.ID)
	if err != nil {
		return 0, fmt.Errorf("building inventory index for tenant %s: %w", tenant.ID, err)
	}
	if len(index) == 0 {
		return 0, nil
	}

	written := 0
	for i := range threats {
		threat := &threats[i]

		corr := e.matchThreat(threat, tenant, index, now)
		if corr == nil {
			continue
		}

		if err := e.correlations.Upsert(ctx, corr); err != nil {
			return written, fmt.Errorf("upserting correlation %s/%s: %w", tenant.ID, threat.ID, err)
		}
		metrics.CorrelationsWritten.Inc()
		written++
	}

	e.log.Debug("tenant correlation complete",
		zap.String("tenant", tenant.ID),
		zap.Int("threats", len(threats)),
		zap.Int("inventory_products", len(index)),
		zap.Int("correlations", written))

	return written, nil
}

// buildInventoryIndex maps normalized software name -> devices/versions from
// the tenant's most recent scans.
func (e *Engine) buildInventoryIndex(ctx context.Context, tenantID string) (map[string]*invProduct, error) {
	scans, err := e.inventory.RecentScans(ctx, tenantID, e.opts.ScanWindow)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*invProduct)
	for _, scan := range scans {
		for _, sw := range scan.Software {
			name := normalize.Normalize(sw.Name)
			if name == "" {
				continue
			}

			entry, ok := index[name]
			if !ok {
				entry = &invProduct{
					devices:  make(map[string]struct{}),
					versions: make(map[string]map[string]struct{}),
				}
				index[name] = entry
			}

			entry.devices[scan.DeviceID] = struct{}{}
			if entry.versions[sw.Version] == nil {
				entry.versions[sw.Version] = make(map[string]struct{})
			}
			entry.versions[sw.Version][scan.DeviceID] = struct{}{}
		}
	}
	return index, nil
}

// matchThreat applies the match predicate across the threat's affected
// products and the inventory index, returning a fully recomputed correlation
// record or nil when nothing matched.
func (e *Engine) matchThreat(threat *model.ThreatItem, tenant model.Tenant, index map[string]*invProduct, now time.Time) *model.Correlation {
	impactedDevices := make(map[string]struct{})
	var impactedSoftware []model.ImpactedSoftware

	for _, product := range threat.AffectedProducts {
		for invName, entry := range index {
			if !e.isMatch(product, invName) {
				continue
			}

			for device := range entry.devices {
				impactedDevices[device] = struct{}{}
			}

			for version, devices := range entry.versions {
				parsed := util.ParseSemanticVersion(version)
				impactedSoftware = append(impactedSoftware, model.ImpactedSoftware{
					Name:         invName,
					Version:      version,
					VersionMajor: parsed.Major,
					VersionMinor: parsed.Minor,
					VersionPatch: parsed.Patch,
					Endpoints:    setToSlice(devices),
				})
			}
		}
	}

	if len(impactedDevices) == 0 {
		return nil
	}

	endpoints := setToSlice(impactedDevices)
	score, factors := Score(threat.CVSSScore, threat.Exploited, len(endpoints), tenant.InternetExposed, tenant.BusinessCritical)

	corr := model.NewCorrelation(threat.ID, tenant.ID)
	corr.ImpactedEndpoints = endpoints
	corr.ImpactedSoftware = dedupeSoftware(impactedSoftware)
	corr.RiskScore = score
	corr.RiskFactors = factors
	corr.ThreatDetails = model.ThreatSnapshot{
		Severity:         threat.Severity,
		Exploited:        threat.Exploited,
		ExploitAvailable: threat.Exploitation != nil && threat.Exploitation.ExploitAvailable,
	}
	corr.ActionRecommendations = recommendations(threat, score, len(endpoints))
	corr.LastChecked = now
	return corr
}

// isMatch wraps IsMatch with a token cache for the threat-product side.
func (e *Engine) isMatch(threatProduct, inventoryProduct string) bool {
	if threatProduct == inventoryProduct {
		return true
	}

	threatTokens, ok := e.tokens.Get(threatProduct)
	if !ok {
		threatTokens = Tokenize(threatProduct)
		e.tokens.Add(threatProduct, threatTokens)
	}
	if len(threatTokens) == 0 {
		return false
	}

	return matchTokens(threatTokens, Tokenize(inventoryProduct))
}

// recommendations produces deterministic guidance strings for the record.
// Prose generation belongs to the recommendation catalogue upstream; these
// are terse, stable markers its templates key off.
func recommendations(threat *model.ThreatItem, score, endpointCount int) []string {
	recs := []string{
		fmt.Sprintf("Apply vendor patches for %s on all impacted software", threat.ID),
	}
	if threat.Exploited {
		recs = append(recs, "Active exploitation reported; prioritize remediation")
		if threat.Exploitation != nil && threat.Exploitation.RequiredAction != "" {
			recs = append(recs, threat.Exploitation.RequiredAction)
		}
	}
	if score >= 80 {
		recs = append(recs, fmt.Sprintf("Review network exposure of the %d impacted endpoints", endpointCount))
	}
	return recs
}

func setToSlice(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

// dedupeSoftware collapses duplicate (name, version) entries that can arise
// when multiple affected products match the same inventory key.
func dedupeSoftware(entries []model.ImpactedSoftware) []model.ImpactedSoftware {
	seen := make(map[string]bool, len(entries))
	out := entries[:0]
	for _, e := range entries {
		key := e.Name + "@" + e.Version
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}
