package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shared-expense-ledger/internal/config"
	"github.com/shared-expense-ledger/internal/domain/outbox"
	"github.com/shared-expense-ledger/internal/domain/shared"
)

// Poller moves PENDING outbox messages to Kafka. A message that keeps failing
// is parked as FAILED_TO_PUBLISH after MaxRetryAttempts relays.
type Poller struct {
	outboxRepo  outbox.Repository
	relay       EventRelay
	logger      *slog.Logger
	interval    time.Duration
	batchSize   int
	maxAttempts int
}

func NewPoller(cfg *config.OutboxConfig, outboxRepo outbox.Repository, relay EventRelay, logger *slog.Logger) *Poller {
	return &Poller{
		outboxRepo:  outboxRepo,
		relay:       relay,
		logger:      logger.With("component", "outbox_poller"),
		interval:    cfg.PollingInterval,
		batchSize:   cfg.BatchSize,
		maxAttempts: cfg.MaxRetryAttempts,
	}
}

// Start blocks until ctx is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Outbox poller started",
		"interval", p.interval.String(),
		"batch_size", p.batchSize,
		"max_attempts", p.maxAttempts,
	)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopped")
			return
		case <-ticker.C:
			if err := p.relayPending(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("Outbox relay round failed", "error", err)
			}
		}
	}
}

// relayPending relays one batch. A failing message does not hold back the
// ones behind it.
func (p *Poller) relayPending(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.relay.Relay(ctx, msg); err != nil {
			p.recordFailure(ctx, msg, err)
		}
	}
	return nil
}

func (p *Poller) recordFailure(ctx context.Context, msg *outbox.Message, relayErr error) {
	log := p.logger.With("outbox_id", msg.ID, "event_id", msg.EventID.String(), "attempt", msg.Attempts+1)
	log.Error("Relaying outbox message failed", "error", relayErr)

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		log.Error("Could not count failed relay attempt", "error", err)
		return
	}
	if !msg.Exhausted(p.maxAttempts) {
		return
	}

	log.Warn("Giving up on outbox message", "status", shared.OutboxStatusFailedToPublish)
	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		log.Error("Could not park outbox message", "error", err)
	}
}
