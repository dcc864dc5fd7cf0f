// Package worker keeps the local SQLite mirror in step with the remote
// database. It reacts to change events from the queue and also runs a
// periodic full refresh as a backup in case messages are lost.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"classfund/internal/amqp"
	"classfund/internal/core"
	"classfund/internal/hydrate"
	"classfund/internal/store"
)

// BundleWriter is the slice of the mirror the worker needs.
type BundleWriter interface {
	ReplaceBundle(ctx context.Context, bundle core.DataBundle) error
	LastSyncedAt(ctx context.Context) (time.Time, error)
}

type SyncWorker struct {
	remote store.Store
	mirror BundleWriter

	// Change events arrive in bursts when a whole roster is edited.
	// The run loop holds a debounce window open while events keep
	// coming and refreshes once when it closes.
	debounce time.Duration

	// One pending token is enough: every event means the same thing,
	// the mirror is out of date.
	kicks chan struct{}
}

func NewSyncWorker(remote store.Store, mirror BundleWriter, debounce time.Duration) *SyncWorker {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &SyncWorker{
		remote:   remote,
		mirror:   mirror,
		debounce: debounce,
		kicks:    make(chan struct{}, 1),
	}
}

// HandleChangeMessage marks the mirror out of date and returns
// immediately, so the consume loop can ack and take the next delivery
// without waiting on a remote fetch. The refresh itself happens in Run
// once the debounce window closes; if it fails there, the periodic
// pass covers it.
func (w *SyncWorker) HandleChangeMessage(ctx context.Context, msg *amqp.EntityChangeMessage) error {
	slog.InfoContext(ctx, "Change event received",
		"entity", msg.Entity,
		"id", msg.ID,
		"op", msg.Op)

	select {
	case w.kicks <- struct{}{}:
	default:
		// A refresh is already queued for this burst.
	}
	return nil
}

// Refresh pulls the full data set from the remote store and rewrites
// the mirror.
func (w *SyncWorker) Refresh(ctx context.Context) error {
	bundle, err := hydrate.Fetch(ctx, w.remote)
	if err != nil {
		return fmt.Errorf("fetch remote data: %w", err)
	}
	if err := w.mirror.ReplaceBundle(ctx, bundle); err != nil {
		return fmt.Errorf("replace mirror: %w", err)
	}
	return nil
}

// Run drives all mirror refreshes until the context is cancelled.
// Change events restart the debounce timer, so a serial burst of N
// deliveries collapses into a single refresh after the last one; the
// interval ticker refreshes regardless, covering lost events.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	debounce := time.NewTimer(w.debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping sync loop", "reason", ctx.Err())
			return
		case <-w.kicks:
			debounce.Reset(w.debounce)
		case <-debounce.C:
			if err := w.Refresh(ctx); err != nil {
				slog.ErrorContext(ctx, "Refresh after change events failed", "error", err)
			}
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic refresh failed", "error", err)
			}
		}
	}
}

// StartupSyncCheck refreshes the mirror at worker startup when it is
// empty or stale. Recovers from missed messages and worker downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context, maxAge time.Duration) error {
	lastSync, err := w.mirror.LastSyncedAt(ctx)
	if err != nil {
		return fmt.Errorf("read last sync time: %w", err)
	}

	if !lastSync.IsZero() && time.Since(lastSync) <= maxAge {
		slog.InfoContext(ctx, "Mirror is fresh",
			"last_sync", lastSync.Format(time.RFC3339),
			"age", time.Since(lastSync).Round(time.Second))
		return nil
	}

	if lastSync.IsZero() {
		slog.InfoContext(ctx, "Mirror has never been filled, running initial sync")
	} else {
		slog.InfoContext(ctx, "Mirror is stale, refreshing",
			"last_sync", lastSync.Format(time.RFC3339))
	}
	return w.Refresh(ctx)
}
