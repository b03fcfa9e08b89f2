// Package kafka consumes scan-completed events so a tenant whose inventory
// just changed is re-correlated without waiting for the next scheduled
// ingestion cycle.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/threatiq/threatiq-backend/internal/correlate"
	"github.com/threatiq/threatiq-backend/internal/store"
)

// scanEvent is the payload published by the scanning pipeline when a device
// scan for a tenant completes.
type scanEvent struct {
	TenantID string `json:"tenant_id"`
	DeviceID string `json:"device_id"`
}

// RunEventProcessor starts a consumer for scan events and re-correlates the
// affected tenant on each message. It returns an error only when the broker
// is unreachable at startup; per-message failures are logged and skipped.
func RunEventProcessor(ctx context.Context, brokers []string, topic, groupID string, engine *correlate.Engine, inventory store.InventoryStore, log *zap.Logger) error {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}

	// Connection check before handing off to the background reader
	var conn *kafka.Conn
	var err error
	for i := 1; i <= 3; i++ {
		log.Info("kafka connection attempt", zap.Int("attempt", i))
		conn, err = dialer.DialContext(ctx, "tcp", brokers[0])
		if err == nil {
			conn.Close()
			break
		}
		if i < 3 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		return err
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MaxBytes: 10e6,
		Dialer:   dialer,
	})

	go func() {
		defer reader.Close()

		log.Info("scan event processor started", zap.String("topic", topic))

		for {
			select {
			case <-ctx.Done():
				return
			default:
				msg, err := reader.ReadMessage(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					continue
				}
				handleScanEvent(ctx, msg.Value, engine, inventory, log)
			}
		}
	}()

	return nil
}

func handleScanEvent(ctx context.Context, payload []byte, engine *correlate.Engine, inventory store.InventoryStore, log *zap.Logger) {
	var event scanEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Warn("skipping malformed scan event", zap.Error(err))
		return
	}
	if event.TenantID == "" {
		return
	}

	tenant, err := inventory.GetTenant(ctx, event.TenantID)
	if err != nil {
		log.Warn("loading tenant for scan event", zap.String("tenant", event.TenantID), zap.Error(err))
		return
	}
	if tenant == nil {
		log.Warn("scan event for unknown tenant", zap.String("tenant", event.TenantID))
		return
	}

	written, err := engine.CorrelateTenant(ctx, *tenant)
	if err != nil {
		log.Warn("on-demand tenant correlation failed", zap.String("tenant", tenant.ID), zap.Error(err))
		return
	}
	log.Info("on-demand tenant correlation complete",
		zap.String("tenant", tenant.ID),
		zap.Int("correlations", written))
}
