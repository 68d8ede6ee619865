package enums

import "fmt"

// OutboxAggregateType is the entity an outbox event is keyed by.
type OutboxAggregateType string

const (
	AggregatePart  OutboxAggregateType = "part"
	AggregateOrder OutboxAggregateType = "order"
)

func (a OutboxAggregateType) IsValid() bool {
	return a == AggregatePart || a == AggregateOrder
}

// OutboxEventType names a domain event persisted to outbox_events.
type OutboxEventType string

const (
	EventPartStockStatusChanged OutboxEventType = "part_stock_status_changed"
	EventOrderStatusChanged     OutboxEventType = "order_status_changed"
)

// eventAggregates fixes the aggregate each event type belongs to.
var eventAggregates = map[OutboxEventType]OutboxAggregateType{
	EventPartStockStatusChanged: AggregatePart,
	EventOrderStatusChanged:     AggregateOrder,
}

func (e OutboxEventType) IsValid() bool {
	_, ok := eventAggregates[e]
	return ok
}

// Aggregate returns the aggregate type for e, or "" when e is unknown.
func (e OutboxEventType) Aggregate() OutboxAggregateType {
	return eventAggregates[e]
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	if e := OutboxEventType(value); e.IsValid() {
		return e, nil
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
