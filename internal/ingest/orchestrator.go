// Package ingest owns the ingestion cycle: fetching all feed sources
// concurrently, normalizing their records into the threat store, and handing
// off to the per-tenant correlation fan-out.
package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/WatchBeam/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/threatiq/threatiq-backend/internal/feeds"
	"github.com/threatiq/threatiq-backend/internal/metrics"
	"github.com/threatiq/threatiq-backend/internal/normalize"
	"github.com/threatiq/threatiq-backend/internal/store"
)

// ErrIngestionInProgress is returned by Trigger when a cycle is already
// running. Triggers are not queued.
var ErrIngestionInProgress = errors.New("ingestion already in progress")

// CVESource fetches recent disclosures from the CVE database feed.
type CVESource interface {
	FetchRecent(ctx context.Context, windowDays int) ([]feeds.CVERecord, error)
}

// KEVSource fetches the exploited-vulnerabilities snapshot.
type KEVSource interface {
	FetchSnapshot(ctx context.Context) ([]feeds.KEVEntry, error)
}

// Correlator is the fan-out hand-off invoked after each cycle.
type Correlator interface {
	RunAll(ctx context.Context) int
}

// Status reports the orchestrator's externally visible state.
type Status struct {
	IsRunning         bool       `json:"is_running"`   // scheduler loop active
	IsIngesting       bool       `json:"is_ingesting"` // a cycle is in flight
	LastIngestionTime *time.Time `json:"last_ingestion_time,omitempty"`
	NextScheduledTime *time.Time `json:"next_scheduled_time,omitempty"`
}

// Orchestrator drives ingestion cycles on a fixed cadence, with a manual
// trigger guarded by an atomic Idle/Running transition. All dependencies are
// injected so tests can run cycles without timers or network calls.
type Orchestrator struct {
	baseCtx    context.Context // bounds background cycles started by Trigger
	cve        CVESource
	kev        KEVSource
	threats    store.ThreatStore
	correlator Correlator
	clock      clock.Clock
	log        *zap.Logger

	interval   time.Duration
	windowDays int

	ingesting atomic.Bool // Idle/Running guard
	scheduled atomic.Bool

	mu      sync.Mutex // guards lastRun/nextRun
	lastRun *time.Time
	nextRun time.Time
}

// New builds an orchestrator with injected dependencies. ctx bounds
// background cycles started by Trigger, so shutdown cancels them.
func New(ctx context.Context, cve CVESource, kev KEVSource, threats store.ThreatStore, correlator Correlator, clk clock.Clock, log *zap.Logger, interval time.Duration, windowDays int) *Orchestrator {
	if interval <= 0 {
		interval = time.Hour
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &Orchestrator{
		baseCtx:    ctx,
		cve:        cve,
		kev:        kev,
		threats:    threats,
		correlator: correlator,
		clock:      clk,
		log:        log,
		interval:   interval,
		windowDays: windowDays,
	}
}

// Trigger starts a cycle in the background if the orchestrator is Idle, and
// fails with ErrIngestionInProgress otherwise. The Idle->Running transition
// is a compare-and-swap, so two concurrent triggers cannot both start. The
// cycle outlives the HTTP caller, so it runs on the service context rather
// than the request's.
func (o *Orchestrator) Trigger() error {
	if !o.ingesting.CompareAndSwap(false, true) {
		return ErrIngestionInProgress
	}
	go func() {
		defer o.ingesting.Store(false)
		o.runCycle(o.baseCtx)
	}()
	return nil
}

// RunCycle runs one cycle synchronously under the same Idle/Running guard.
func (o *Orchestrator) RunCycle(ctx context.Context) error {
	if !o.ingesting.CompareAndSwap(false, true) {
		return ErrIngestionInProgress
	}
	defer o.ingesting.Store(false)
	o.runCycle(ctx)
	return nil
}

// Run drives scheduled cycles until the context is canceled.
func (o *Orchestrator) Run(ctx context.Context) {
	o.scheduled.Store(true)
	defer o.scheduled.Store(false)

	for {
		next := o.clock.Now().Add(o.interval)
		o.mu.Lock()
		o.nextRun = next
		o.mu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-o.clock.After(o.interval):
		}

		if err := o.RunCycle(ctx); err != nil {
			// A manual trigger is still in flight; the scheduled run is
			// skipped rather than queued.
			o.log.Info("scheduled ingestion skipped", zap.Error(err))
		}
	}
}

// Status returns the current scheduler and cycle state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{
		IsRunning:   o.scheduled.Load(),
		IsIngesting: o.ingesting.Load(),
	}
	if o.lastRun != nil {
		t := *o.lastRun
		st.LastIngestionTime = &t
	}
	if st.IsRunning && !o.nextRun.IsZero() {
		t := o.nextRun
		st.NextScheduledTime = &t
	}
	return st
}

// runCycle fetches both sources concurrently, merges results sequentially,
// records the cycle start as the last ingestion time, and hands off to the
// correlation fan-out. A failure in one source never aborts the other.
func (o *Orchestrator) runCycle(ctx context.Context) {
	start := o.clock.Now()
	cycleID := uuid.NewString()
	log := o.log.With(zap.String("cycle_id", cycleID))

	log.Info("ingestion cycle started")

	var (
		wg         sync.WaitGroup
		cveRecords []feeds.CVERecord
		cveErr     error
		kevEntries []feeds.KEVEntry
		kevErr     error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		cveRecords, cveErr = o.cve.FetchRecent(ctx, o.windowDays)
	}()
	go func() {
		defer wg.Done()
		kevEntries, kevErr = o.kev.FetchSnapshot(ctx)
	}()
	wg.Wait()

	if cveErr != nil {
		metrics.FeedFetchErrors.WithLabelValues(normalize.SourceCVE).Inc()
		log.Warn("cve feed fetch failed, continuing with remaining sources", zap.Error(cveErr))
	}
	if kevErr != nil {
		metrics.FeedFetchErrors.WithLabelValues(normalize.SourceKEV).Inc()
		log.Warn("exploited-list fetch failed, continuing with remaining sources", zap.Error(kevErr))
	}

	upserted := o.mergeCVERecords(ctx, log, cveRecords)
	upserted += o.mergeKEVEntries(ctx, log, kevEntries)

	o.mu.Lock()
	o.lastRun = &start
	o.mu.Unlock()

	metrics.IngestionCycles.Inc()
	metrics.IngestionDuration.Observe(o.clock.Now().Sub(start).Seconds())

	log.Info("ingestion cycle complete",
		zap.Int("cve_records", len(cveRecords)),
		zap.Int("kev_entries", len(kevEntries)),
		zap.Int("threats_upserted", upserted))

	if o.correlator != nil {
		correlated := o.correlator.RunAll(ctx)
		log.Info("correlation fan-out complete", zap.Int("tenants", correlated))
	}
}

// mergeCVERecords normalizes and upserts CVE-database records one at a time.
// A malformed record is skipped and logged; the rest of the batch proceeds.
func (o *Orchestrator) mergeCVERecords(ctx context.Context, log *zap.Logger, records []feeds.CVERecord) int {
	upserted := 0
	for _, rec := range records {
		item, err := normalize.ThreatFromCVE(rec)
		if err != nil {
			metrics.RecordsSkipped.Inc()
			log.Warn("skipping malformed cve record", zap.Error(err))
			continue
		}
		if err := o.threats.Upsert(ctx, item); err != nil {
			log.Warn("upserting threat item", zap.String("threat", item.ID), zap.Error(err))
			continue
		}
		metrics.ThreatsUpserted.Inc()
		upserted++
	}
	return upserted
}

// mergeKEVEntries folds exploited-list entries into the store: existing
// items are upgraded to exploited, unknown identifiers synthesize new items.
func (o *Orchestrator) mergeKEVEntries(ctx context.Context, log *zap.Logger, entries []feeds.KEVEntry) int {
	upserted := 0
	for _, entry := range entries {
		existing, err := o.threats.Get(ctx, entry.CVEID)
		if err != nil {
			log.Warn("looking up threat item", zap.String("threat", entry.CVEID), zap.Error(err))
			continue
		}

		item, err := normalize.ApplyKEV(existing, entry)
		if err != nil {
			metrics.RecordsSkipped.Inc()
			log.Warn("skipping malformed exploited-list entry", zap.Error(err))
			continue
		}
		if err := o.threats.Upsert(ctx, item); err != nil {
			log.Warn("upserting threat item", zap.String("threat", item.ID), zap.Error(err))
			continue
		}
		metrics.ThreatsUpserted.Inc()
		upserted++
	}
	return upserted
}
