package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox/registry"
)

func TestDrainRetriesTransientFailureAndPublishesTheRest(t *testing.T) {
	store := &memoryStore{rows: []models.OutboxEvent{partRow(t, "CPU001", 0), partRow(t, "GPU001", 0)}}
	pub := &recordingPublisher{results: []publishResult{stubResult{err: errors.New("unavailable")}, stubResult{}}}
	relay := newTestRelay(t, store, pub, &stubResolver{payload: lowStockPayload()}, config.OutboxConfig{})

	stats, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, batchStats{published: 1, retried: 1}, stats)
	assert.Equal(t, []uuid.UUID{store.rows[0].ID}, store.failed)
	assert.Equal(t, []uuid.UUID{store.rows[1].ID}, store.published)
	assert.Empty(t, store.parked)
}

func TestDrainParksUndecodableRows(t *testing.T) {
	row := partRow(t, "CPU001", 0)
	store := &memoryStore{rows: []models.OutboxEvent{row}}
	resolver := &stubResolver{err: registry.NewNonRetryableError(errors.New("unsupported event type"))}
	relay := newTestRelay(t, store, &recordingPublisher{}, resolver, config.OutboxConfig{})

	stats, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.parked)
	assert.Equal(t, []uuid.UUID{row.ID}, store.parked)
	assert.Equal(t, relay.maxAttempts, store.parkedAttempts)
	assert.Empty(t, store.published)
	assert.Empty(t, store.failed)
}

func TestDrainParksWhenAttemptsRunOut(t *testing.T) {
	store := &memoryStore{rows: []models.OutboxEvent{partRow(t, "GPU001", 1)}}
	pub := &recordingPublisher{results: []publishResult{stubResult{err: errors.New("deadline exceeded")}}}
	relay := newTestRelay(t, store, pub, &stubResolver{payload: lowStockPayload()}, config.OutboxConfig{MaxAttempts: 2})

	stats, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.parked)
	assert.Equal(t, 2, store.parkedAttempts)
	assert.Empty(t, store.failed)
}

func TestDrainParksWhenTopicHasNoPublisher(t *testing.T) {
	store := &memoryStore{rows: []models.OutboxEvent{partRow(t, "RAM001", 0)}}
	relay := newTestRelay(t, store, nil, &stubResolver{payload: lowStockPayload()}, config.OutboxConfig{})
	relay.publishers = func(string) topicPublisher { return nil }

	stats, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.parked)
}

func TestDrainEmptyOutbox(t *testing.T) {
	relay := newTestRelay(t, &memoryStore{}, &recordingPublisher{}, &stubResolver{}, config.OutboxConfig{})

	stats, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.total())
}

func TestBuildMessageLiftsStockAttributes(t *testing.T) {
	row := partRow(t, "SSD001", 0)
	resolved := &registry.ResolvedEvent{
		EventType: enums.EventPartStockStatusChanged,
		Topic:     "stock-alerts",
		Envelope:  outbox.Envelope{EventID: "evt-1"},
		Payload:   lowStockPayload(),
	}

	msg := buildMessage(row, resolved)
	assert.Equal(t, []byte(row.Payload), msg.Data)
	assert.Equal(t, "evt-1", msg.Attributes["event_id"])
	assert.Equal(t, string(enums.EventPartStockStatusChanged), msg.Attributes["event_type"])
	assert.Equal(t, "SSD001", msg.Attributes["aggregate_id"])
	assert.Equal(t, "SSD001", msg.Attributes["category_id"])
	assert.Equal(t, "Low Stock", msg.Attributes["stock_status"])
	assert.Equal(t, "In Stock", msg.Attributes["previous_stock_status"])
}

func TestBuildMessageLiftsOrderAttributes(t *testing.T) {
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   "ORD004",
	}
	resolved := &registry.ResolvedEvent{Payload: &payloads.OrderStatusChangedEvent{
		OrderID:        "ORD004",
		CategoryID:     "CPU001",
		Quantity:       8,
		PreviousStatus: enums.OrderStatusPending,
		Deleted:        true,
	}}

	attrs := buildMessage(row, resolved).Attributes
	assert.Equal(t, "ORD004", attrs["order_id"])
	assert.Equal(t, "CPU001", attrs["category_id"])
	assert.Equal(t, "true", attrs["deleted"])
	_, hasStatus := attrs["order_status"]
	assert.False(t, hasStatus)
}

func TestRelayPublishesToResolvedTopic(t *testing.T) {
	store := &memoryStore{rows: []models.OutboxEvent{partRow(t, "CPU001", 0)}}
	pub := &recordingPublisher{results: []publishResult{stubResult{}}}
	relay := newTestRelay(t, store, pub, &stubResolver{payload: lowStockPayload()}, config.OutboxConfig{})

	var topics []string
	relay.publishers = func(topic string) topicPublisher {
		topics = append(topics, topic)
		return pub
	}

	_, err := relay.drain(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"stock-alerts"}, topics)
	require.Len(t, pub.messages, 1)
}

func TestCheckDependencies(t *testing.T) {
	store := &memoryStore{pending: 3}
	relay := newTestRelay(t, store, &recordingPublisher{}, &stubResolver{}, config.OutboxConfig{})
	require.NoError(t, relay.checkDependencies(context.Background()))
	assert.True(t, store.counted)

	relay.pubsub = &stubPubSub{err: errors.New("topic missing")}
	assert.Error(t, relay.checkDependencies(context.Background()))
}

func TestNewRelayDefaultsAndRequirements(t *testing.T) {
	_, err := NewRelay(RelayParams{})
	require.Error(t, err)

	relay := newTestRelay(t, &memoryStore{}, nil, &stubResolver{}, config.OutboxConfig{})
	assert.Equal(t, fallbackBatchSize, relay.batchSize)
	assert.Equal(t, fallbackMaxAttempts, relay.maxAttempts)
	assert.Equal(t, fallbackPoll, relay.poll)
}

func TestNextBackoffCaps(t *testing.T) {
	base := 500 * time.Millisecond
	assert.Equal(t, time.Second, nextBackoff(0, base, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(8*time.Second, base, maxBackoff))

	jittered := withJitter(time.Second)
	assert.GreaterOrEqual(t, jittered, time.Second)
	assert.Less(t, jittered, time.Second+jitterWindow)
}

func newTestRelay(t *testing.T, store outboxStore, pub topicPublisher, resolver eventResolver, cfg config.OutboxConfig) *Relay {
	t.Helper()
	relay, err := NewRelay(RelayParams{
		Outbox:     cfg,
		Logger:     logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:         passthroughDB{},
		PubSub:     &stubPubSub{},
		Store:      store,
		Registry:   resolver,
		Publishers: func(string) topicPublisher { return pub },
	})
	require.NoError(t, err)
	return relay
}

func partRow(tb testing.TB, categoryID string, attempts int) models.OutboxEvent {
	tb.Helper()
	body, err := json.Marshal(outbox.Envelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{"category_id":"` + categoryID + `"}`),
	})
	require.NoError(tb, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventPartStockStatusChanged,
		AggregateType: enums.AggregatePart,
		AggregateID:   categoryID,
		Payload:       body,
		AttemptCount:  attempts,
		CreatedAt:     time.Now(),
	}
}

func lowStockPayload() *payloads.PartStockStatusChangedEvent {
	return &payloads.PartStockStatusChangedEvent{
		CategoryID:     "SSD001",
		PartName:       "Samsung 970 EVO",
		PreviousStatus: enums.StockStatusInStock,
		Status:         enums.StockStatusLowStock,
		Quantity:       2,
		AlertThreshold: 3,
	}
}

type memoryStore struct {
	rows           []models.OutboxEvent
	published      []uuid.UUID
	failed         []uuid.UUID
	parked         []uuid.UUID
	parkedAttempts int
	pending        int64
	counted        bool
}

func (m *memoryStore) FetchUnpublishedForPublish(*gorm.DB, int, int) ([]models.OutboxEvent, error) {
	return m.rows, nil
}

func (m *memoryStore) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	return nil
}

func (m *memoryStore) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.failed = append(m.failed, id)
	return nil
}

func (m *memoryStore) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, attempts int) error {
	m.parked = append(m.parked, id)
	m.parkedAttempts = attempts
	return nil
}

func (m *memoryStore) CountPending(*gorm.DB, int) (int64, error) {
	m.counted = true
	return m.pending, nil
}

type passthroughDB struct{}

func (passthroughDB) Ping(context.Context) error { return nil }

func (passthroughDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type stubPubSub struct {
	err error
}

func (s *stubPubSub) Ping(context.Context) error { return s.err }

func (s *stubPubSub) Publisher(string) *gcppubsub.Publisher { return nil }

type recordingPublisher struct {
	results  []publishResult
	messages []*gcppubsub.Message
}

func (r *recordingPublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	r.messages = append(r.messages, msg)
	if len(r.results) == 0 {
		return nil
	}
	next := r.results[0]
	r.results = r.results[1:]
	return next
}

type stubResult struct {
	err error
}

func (s stubResult) Get(context.Context) (string, error) { return "server-id", s.err }

type stubResolver struct {
	payload any
	err     error
}

func (s *stubResolver) Resolve(row models.OutboxEvent) (*registry.ResolvedEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &registry.ResolvedEvent{
		EventType: row.EventType,
		Topic:     "stock-alerts",
		Envelope:  outbox.Envelope{EventID: row.ID.String(), OccurredAt: time.Now()},
		Payload:   s.payload,
	}, nil
}
