package models

import (
	"time"

	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
)

// ActivityLog is an append-only audit record of an inventory or order mutation.
type ActivityLog struct {
	ID         int64                `gorm:"column:id;primaryKey;autoIncrement"`
	ActivityID string               `gorm:"column:activity_id;size:36;not null;uniqueIndex:ux_activity_logs_activity_id"`
	PartName   string               `gorm:"column:part_name;not null"`
	CategoryID string               `gorm:"column:category_id;size:32;not null;index:idx_activity_logs_category_id"`
	ActionType enums.ActivityAction `gorm:"column:action_type;size:32;not null;index:idx_activity_logs_action_type"`
	Details    string               `gorm:"column:details;not null;default:''"`
	UserID     int64                `gorm:"column:user_id;not null"`
	OrderID    *string              `gorm:"column:order_id;size:32;index:idx_activity_logs_order_id"`
	CreatedAt  time.Time            `gorm:"column:created_at;not null;index:idx_activity_logs_created_at"`
}
