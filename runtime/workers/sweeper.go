package workers

import (
	"context"
	"log/slog"
	"time"

	"pulsechat/contract"
)

// SessionSweeper is the interface the sweeper needs from the registry.
type SessionSweeper interface {
	SweepExpired() []string
}

// Ensure *SweeperWorker implements contract.Worker at compile time.
var _ contract.Worker = (*SweeperWorker)(nil)

// SweeperWorker periodically removes sessions that have been inactive
// longer than the session timeout. Identities that go fully offline are
// reported through onOffline so peers can be notified.
type SweeperWorker struct {
	registry  SessionSweeper
	interval  time.Duration
	onOffline func(identity string)
	log       *slog.Logger
}

func NewSweeperWorker(registry SessionSweeper, interval time.Duration,
	onOffline func(identity string), log *slog.Logger) *SweeperWorker {
	return &SweeperWorker{registry: registry, interval: interval, onOffline: onOffline, log: log}
}

func (w *SweeperWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping session sweeper")
			return ctx.Err()
		case <-ticker.C:
			wentOffline := w.registry.SweepExpired()
			for _, identity := range wentOffline {
				w.onOffline(identity)
			}
		}
	}
}
