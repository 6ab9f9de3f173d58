package main

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

/*
overlapSkippingRunner starts run in the background unless the previous
run is still going, in which case the trigger is dropped.
*/
type overlapSkippingRunner struct {
	running atomic.Bool
	run     func()
}

func newOverlapSkippingRunner(run func()) *overlapSkippingRunner {
	return &overlapSkippingRunner{
		run: run,
	}
}

// Trigger reports whether a new run was started.
func (o *overlapSkippingRunner) Trigger() bool {
	if !o.running.CompareAndSwap(false, true) {
		slog.Info("indexer already running. skipping...")
		return false
	}

	go func() {
		defer o.running.Store(false)
		o.run()
	}()

	return true
}

/*
runIndexerSchedule triggers once right away and then on every tick of
interval. It returns when ctx is done.
*/
func runIndexerSchedule(ctx context.Context, interval time.Duration, trigger func() bool) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	trigger()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			trigger()
		}
	}
}
