package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox/payloads"
)

const supportedEnvelopeVersion = 1

// ResolvedEvent is an outbox row decoded and routed to its topic.
type ResolvedEvent struct {
	EventType enums.OutboxEventType
	Topic     string
	Envelope  outbox.Envelope
	Payload   any
}

type route struct {
	topic  string
	decode func(json.RawMessage) (any, error)
}

// EventRegistry maps each event type to its Pub/Sub topic and payload type.
type EventRegistry struct {
	routes map[enums.OutboxEventType]route
}

// NonRetryableError marks a row that will never publish, however often it is
// retried.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable outbox error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	stockTopic := strings.TrimSpace(cfg.StockAlertsTopic)
	ordersTopic := strings.TrimSpace(cfg.OrdersTopic)
	if stockTopic == "" || ordersTopic == "" {
		return nil, errors.New("stock alerts and orders topics are both required")
	}
	return &EventRegistry{routes: map[enums.OutboxEventType]route{
		enums.EventPartStockStatusChanged: {topic: stockTopic, decode: decodeAs[payloads.PartStockStatusChangedEvent]},
		enums.EventOrderStatusChanged:     {topic: ordersTopic, decode: decodeAs[payloads.OrderStatusChangedEvent]},
	}}, nil
}

func decodeAs[T any](data json.RawMessage) (any, error) {
	payload := new(T)
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// Topics lists the distinct topics the relay needs publishers for, sorted.
func (r *EventRegistry) Topics() []string {
	topics := make([]string, 0, len(r.routes))
	for _, rt := range r.routes {
		topics = append(topics, rt.topic)
	}
	slices.Sort(topics)
	return slices.Compact(topics)
}

// Resolve decodes row. Every failure is a NonRetryableError since the stored
// row cannot change between attempts.
func (r *EventRegistry) Resolve(row models.OutboxEvent) (*ResolvedEvent, error) {
	rt, ok := r.routes[row.EventType]
	if !ok {
		return nil, reject("unsupported event type %q", row.EventType)
	}
	if want := row.EventType.Aggregate(); row.AggregateType != want {
		return nil, reject("%s rows belong to %s, got %s", row.EventType, want, row.AggregateType)
	}
	if strings.TrimSpace(row.AggregateID) == "" {
		return nil, reject("%s row %s has no aggregate id", row.EventType, row.ID)
	}

	var env outbox.Envelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return nil, reject("decode envelope: %v", err)
	}
	if env.Version != supportedEnvelopeVersion {
		return nil, reject("envelope version %d not supported", env.Version)
	}
	if data := strings.TrimSpace(string(env.Data)); data == "" || data == "null" {
		return nil, reject("%s envelope carries no data", row.EventType)
	}
	payload, err := rt.decode(env.Data)
	if err != nil {
		return nil, reject("decode %s data: %v", row.EventType, err)
	}

	return &ResolvedEvent{EventType: row.EventType, Topic: rt.topic, Envelope: env, Payload: payload}, nil
}

func reject(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}
