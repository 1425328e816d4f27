package infra

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/multiplayers/arena/internal/repository"
)

// OutboxPoller drains the event_outbox table and publishes audit events to
// Kafka. Events are deleted only after a successful publish, so delivery is
// at-least-once.
type OutboxPoller struct {
	pool      *pgxpool.Pool
	outbox    repository.OutboxRepository
	producer  *KafkaProducer
	topic     string
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

// NewOutboxPoller creates a new outbox poller.
func NewOutboxPoller(pool *pgxpool.Pool, outbox repository.OutboxRepository, producer *KafkaProducer, topic string, logger *slog.Logger, interval time.Duration, batchSize int) *OutboxPoller {
	return &OutboxPoller{
		pool:      pool,
		outbox:    outbox,
		producer:  producer,
		topic:     topic,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run polls until the context is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("outbox poller stopping")
			return
		case <-ticker.C:
			if err := p.drain(ctx); err != nil {
				p.logger.Error("outbox drain failed", "error", err)
			}
		}
	}
}

func (p *OutboxPoller) drain(ctx context.Context) error {
	rows, err := p.outbox.FetchUnpublished(ctx, p.pool, p.batchSize)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	published := make([]int64, 0, len(rows))
	for _, row := range rows {
		value, err := json.Marshal(row.OutboxDraft)
		if err != nil {
			p.logger.Error("marshal outbox event", "seq_id", row.SeqID, "error", err)
			continue
		}
		if err := p.producer.Publish(ctx, p.topic, []byte(row.PartitionKey), value); err != nil {
			// Stop the batch; retry this and later events next tick.
			p.logger.Warn("publish outbox event", "seq_id", row.SeqID, "error", err)
			break
		}
		published = append(published, row.SeqID)
	}

	if err := p.outbox.MarkPublished(ctx, p.pool, published); err != nil {
		return err
	}

	if len(published) > 0 {
		p.logger.Info("published outbox batch", "count", len(published))
	}
	return nil
}
