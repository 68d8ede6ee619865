package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
)

// OutboxEvent is a domain event written in the same transaction as the mutation that caused it.
type OutboxEvent struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	EventType     enums.OutboxEventType     `gorm:"column:event_type;size:64;not null"`
	AggregateType enums.OutboxAggregateType `gorm:"column:aggregate_type;size:32;not null"`
	AggregateID   string                    `gorm:"column:aggregate_id;size:32;not null"`
	Payload       json.RawMessage           `gorm:"column:payload;type:text;not null"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime;index:idx_outbox_events_unpublished,priority:2"`
	PublishedAt   *time.Time                `gorm:"column:published_at;index:idx_outbox_events_unpublished,priority:1"`
	AttemptCount  int                       `gorm:"column:attempt_count;not null;default:0"`
	LastError     *string                   `gorm:"column:last_error"`
}
