// Package events relays order events from the transactional outbox to Kafka.
package events

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/model"
	"storefront/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a writer for topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

// Publisher polls the outbox and publishes unpublished events. Delivery is at least once:
// events are marked published only after Kafka acknowledged them.
type Publisher struct {
	repo      repository.OutboxRepository
	writer    MessageWriter
	interval  time.Duration
	batchSize int
	now       func() time.Time
	logger    zerolog.Logger
}

// NewPublisher creates a publisher that polls every interval for up to batchSize events.
func NewPublisher(repo repository.OutboxRepository, writer MessageWriter, interval time.Duration, batchSize int, logger zerolog.Logger) *Publisher {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Publisher{
		repo:      repo,
		writer:    writer,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
		logger:    logger.With().Str("component", "outbox-publisher").Logger(),
	}
}

// Run polls until ctx is cancelled, then closes the writer.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info().Dur("interval", p.interval).Int("batch_size", p.batchSize).Msg("outbox publisher started")

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("outbox publisher stopping")
			return p.writer.Close()
		case <-ticker.C:
			// Drain the backlog before waiting for the next tick.
			for {
				n, err := p.PublishPending(ctx)
				if err != nil {
					if ctx.Err() == nil {
						p.logger.Error().Err(err).Msg("outbox publish failed")
					}
					break
				}
				if n < p.batchSize {
					break
				}
			}
		}
	}
}

// PublishPending publishes one batch and returns how many events were published.
func (p *Publisher) PublishPending(ctx context.Context) (int, error) {
	pending, err := p.repo.FetchUnpublished(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("fetch outbox: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, len(pending))
	ids := make([]uuid.UUID, len(pending))
	for i, e := range pending {
		msgs[i] = toMessage(e)
		ids[i] = e.ID
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("write %d events: %w", len(msgs), err)
	}

	if err := p.repo.MarkPublished(ctx, ids, p.now().UTC()); err != nil {
		// The events will be sent again on the next poll.
		return 0, fmt.Errorf("mark published: %w", err)
	}

	p.logger.Debug().Int("count", len(pending)).Msg("outbox events published")
	return len(pending), nil
}

// toMessage keys the message by order id so every event of an order lands on one partition.
func toMessage(e model.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(e.AggregateID.String()),
		Value: e.Payload,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
			{Key: "event_id", Value: []byte(e.ID.String())},
		},
	}
}
