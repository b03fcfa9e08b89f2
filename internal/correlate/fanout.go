package correlate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/threatiq/threatiq-backend/internal/metrics"
	"github.com/threatiq/threatiq-backend/internal/store"
	"github.com/threatiq/threatiq-backend/model"
)

// Fanout runs the correlation engine for every known tenant on a bounded
// worker pool. A failure for one tenant is logged and never aborts the
// others.
type Fanout struct {
	engine    *Engine
	inventory store.InventoryStore
	log       *zap.Logger
	workers   int
}

// NewFanout builds the per-tenant fan-out coordinator.
func NewFanout(engine *Engine, inventory store.InventoryStore, log *zap.Logger, workers int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	return &Fanout{
		engine:    engine,
		inventory: inventory,
		log:       log,
		workers:   workers,
	}
}

// RunAll correlates every tenant and waits for completion. The returned
// count is the number of tenants that correlated without error.
func (f *Fanout) RunAll(ctx context.Context) int {
	tenants, err := f.inventory.ListTenants(ctx)
	if err != nil {
		f.log.Error("listing tenants for correlation fan-out", zap.Error(err))
		return 0
	}
	if len(tenants) == 0 {
		return 0
	}

	jobs := make(chan model.Tenant)
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < f.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for tenant := range jobs {
				written, err := f.engine.CorrelateTenant(ctx, tenant)
				if err != nil {
					metrics.TenantCorrelationErrors.Inc()
					f.log.Warn("tenant correlation failed",
						zap.String("tenant", tenant.ID),
						zap.Error(err))
					continue
				}
				mu.Lock()
				succeeded++
				mu.Unlock()
				if written > 0 {
					f.log.Info("tenant correlated",
						zap.String("tenant", tenant.ID),
						zap.Int("correlations", written))
				}
			}
		}()
	}

	for _, tenant := range tenants {
		select {
		case jobs <- tenant:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return succeeded
		}
	}
	close(jobs)
	wg.Wait()

	return succeeded
}
