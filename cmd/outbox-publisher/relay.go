package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox/registry"
)

const (
	fallbackBatchSize   = 50
	fallbackPoll        = 500 * time.Millisecond
	fallbackMaxAttempts = 10
	sendTimeout         = 15 * time.Second
	maxBackoff          = 10 * time.Second
	jitterWindow        = 250 * time.Millisecond
)

type outcome int

const (
	outcomePublished outcome = iota
	outcomeRetry
	outcomeParked
)

type parkReason string

const (
	parkUndecodable parkReason = "undecodable"
	parkRejected    parkReason = "rejected"
	parkExhausted   parkReason = "exhausted"
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxStore interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
	CountPending(tx *gorm.DB, maxAttempts int) (int64, error)
}

type eventResolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type topicPublisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// RelayParams wires the outbox relay.
type RelayParams struct {
	Outbox     config.OutboxConfig
	Logger     *logger.Logger
	DB         dbClient
	PubSub     pubSubClient
	Store      outboxStore
	Registry   eventResolver
	Publishers func(topic string) topicPublisher
}

// Relay moves committed outbox rows for stock and order events onto Pub/Sub.
type Relay struct {
	logg        *logger.Logger
	db          dbClient
	pubsub      pubSubClient
	store       outboxStore
	registry    eventResolver
	publishers  func(topic string) topicPublisher
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

type batchStats struct {
	published int
	retried   int
	parked    int
}

func (b batchStats) total() int {
	return b.published + b.retried + b.parked
}

func NewRelay(params RelayParams) (*Relay, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Store == nil:
		return nil, errors.New("outbox store is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	publishers := params.Publishers
	if publishers == nil {
		publishers = func(topic string) topicPublisher {
			return wrapPublisher(params.PubSub.Publisher(topic))
		}
	}

	r := &Relay{
		logg:        params.Logger,
		db:          params.DB,
		pubsub:      params.PubSub,
		store:       params.Store,
		registry:    params.Registry,
		publishers:  publishers,
		batchSize:   params.Outbox.BatchSize,
		maxAttempts: params.Outbox.MaxAttempts,
		poll:        time.Duration(params.Outbox.PollIntervalMS) * time.Millisecond,
	}
	if r.batchSize <= 0 {
		r.batchSize = fallbackBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = fallbackMaxAttempts
	}
	if r.poll <= 0 {
		r.poll = fallbackPoll
	}
	return r, nil
}

// Run drains the outbox until ctx is cancelled. Full batches are followed
// immediately by the next fetch; failed fetches back off exponentially.
func (r *Relay) Run(ctx context.Context) error {
	if err := r.checkDependencies(ctx); err != nil {
		return err
	}

	wait := r.poll
	for {
		if err := ctx.Err(); err != nil {
			r.logg.Info(ctx, "outbox relay stopping")
			return err
		}

		stats, err := r.drain(ctx)
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox relay batch failed", err)
			wait = nextBackoff(wait, r.poll, maxBackoff)
		case stats.total() > 0:
			wait = r.poll
			continue
		default:
			wait = r.poll
		}

		if err := sleep(ctx, withJitter(wait)); err != nil {
			return err
		}
	}
}

func (r *Relay) checkDependencies(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		r.logg.Error(ctx, "database ping failed", err)
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := r.pubsub.Ping(ctx); err != nil {
		r.logg.Error(ctx, "pubsub ping failed", err)
		return fmt.Errorf("pubsub ping failed: %w", err)
	}

	var backlog int64
	if err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		backlog, err = r.store.CountPending(tx, r.maxAttempts)
		return err
	}); err != nil {
		return fmt.Errorf("count pending outbox rows: %w", err)
	}
	r.logg.Info(r.logg.WithField(ctx, "backlog", backlog), "outbox backlog loaded")
	return nil
}

// drain relays one batch inside a single transaction so row locks taken by
// the fetch are held until every row is marked.
func (r *Relay) drain(ctx context.Context) (batchStats, error) {
	var stats batchStats
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return err
		}
		for _, row := range rows {
			result, err := r.relay(ctx, tx, row)
			if err != nil {
				return err
			}
			switch result {
			case outcomePublished:
				stats.published++
			case outcomeRetry:
				stats.retried++
			case outcomeParked:
				stats.parked++
			}
		}
		return nil
	})
	if err == nil && stats.total() > 0 {
		r.logg.Info(r.logg.WithFields(ctx, map[string]any{
			"published": stats.published,
			"retried":   stats.retried,
			"parked":    stats.parked,
		}), "outbox batch relayed")
	}
	return stats, err
}

func (r *Relay) relay(ctx context.Context, tx *gorm.DB, row models.OutboxEvent) (outcome, error) {
	resolved, err := r.registry.Resolve(row)
	if err != nil {
		return r.park(ctx, tx, row, "", parkUndecodable, err)
	}

	topic := resolved.Topic
	sendErr := r.send(ctx, topic, buildMessage(row, resolved))

	var rejected registry.NonRetryableError
	switch {
	case sendErr == nil:
		if err := r.store.MarkPublishedTx(tx, row.ID); err != nil {
			return 0, fmt.Errorf("mark published %s: %w", row.ID, err)
		}
		r.logg.Debug(r.logg.WithFields(ctx, rowFields(row, topic)), "outbox event published")
		return outcomePublished, nil
	case errors.As(sendErr, &rejected):
		return r.park(ctx, tx, row, topic, parkRejected, sendErr)
	case row.AttemptCount+1 >= r.maxAttempts:
		return r.park(ctx, tx, row, topic, parkExhausted, fmt.Errorf("gave up after %d attempts: %w", row.AttemptCount+1, sendErr))
	}

	fields := rowFields(row, topic)
	fields["attempt_count"] = row.AttemptCount + 1
	fields["error"] = sendErr.Error()
	r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox publish failed, will retry")
	if err := r.store.MarkFailedTx(tx, row.ID, sendErr); err != nil {
		return 0, fmt.Errorf("mark failed %s: %w", row.ID, err)
	}
	return outcomeRetry, nil
}

// park exhausts the row's attempts so later fetches skip it. Payload and
// last_error stay on the row for manual replay.
func (r *Relay) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, topic string, reason parkReason, cause error) (outcome, error) {
	fields := rowFields(row, topic)
	fields["park_reason"] = string(reason)
	fields["error"] = cause.Error()
	r.logg.Warn(r.logg.WithFields(ctx, fields), "outbox event parked")

	if err := r.store.MarkTerminalTx(tx, row.ID, cause, r.maxAttempts); err != nil {
		return 0, fmt.Errorf("park %s: %w", row.ID, err)
	}
	return outcomeParked, nil
}

func (r *Relay) send(ctx context.Context, topic string, msg *gcppubsub.Message) error {
	pub := r.publishers(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", topic))
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	result := pub.Publish(sendCtx, msg)
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher for topic %s returned no result", topic))
	}
	_, err := result.Get(sendCtx)
	return err
}

// buildMessage forwards the stored envelope unchanged and lifts the business
// keys into attributes so subscribers can filter without decoding the body.
func buildMessage(row models.OutboxEvent, resolved *registry.ResolvedEvent) *gcppubsub.Message {
	attrs := map[string]string{
		"event_id":       resolved.Envelope.EventID,
		"event_type":     string(row.EventType),
		"aggregate_type": string(row.AggregateType),
		"aggregate_id":   row.AggregateID,
		"created_at":     row.CreatedAt.UTC().Format(time.RFC3339Nano),
	}

	switch p := resolved.Payload.(type) {
	case *payloads.PartStockStatusChangedEvent:
		attrs["category_id"] = p.CategoryID
		attrs["stock_status"] = string(p.Status)
		if p.PreviousStatus != "" {
			attrs["previous_stock_status"] = string(p.PreviousStatus)
		}
	case *payloads.OrderStatusChangedEvent:
		attrs["order_id"] = p.OrderID
		attrs["category_id"] = p.CategoryID
		if p.Status != "" {
			attrs["order_status"] = string(p.Status)
		}
		if p.Deleted {
			attrs["deleted"] = strconv.FormatBool(p.Deleted)
		}
	}

	return &gcppubsub.Message{Data: row.Payload, Attributes: attrs}
}

func rowFields(row models.OutboxEvent, topic string) map[string]any {
	fields := map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"aggregate_id":  row.AggregateID,
		"attempt_count": row.AttemptCount,
	}
	if topic != "" {
		fields["topic"] = topic
	}
	if row.LastError != nil {
		fields["last_error"] = *row.LastError
	}
	return fields
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, base, ceiling time.Duration) time.Duration {
	if current <= 0 {
		current = base
	}
	return min(current*2, ceiling)
}

func withJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return d + rand.N(jitterWindow)
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func wrapPublisher(p *gcppubsub.Publisher) topicPublisher {
	if p == nil {
		return nil
	}
	return gcpPublisher{pub: p}
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	res := g.pub.Publish(ctx, msg)
	if res == nil {
		return nil
	}
	return res
}
