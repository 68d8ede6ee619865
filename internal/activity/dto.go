package activity

import (
	"time"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
)

// EntryDTO is the activity entry payload returned to clients.
type EntryDTO struct {
	ActivityID string    `json:"activity_id"`
	PartName   string    `json:"part_name"`
	CategoryID string    `json:"category_id"`
	ActionType string    `json:"action_type"`
	Details    string    `json:"details"`
	UserID     int64     `json:"user_id"`
	OrderID    *string   `json:"order_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewEntryDTO builds a DTO from the persisted model.
func NewEntryDTO(entry models.ActivityLog) EntryDTO {
	return EntryDTO{
		ActivityID: entry.ActivityID,
		PartName:   entry.PartName,
		CategoryID: entry.CategoryID,
		ActionType: string(entry.ActionType),
		Details:    entry.Details,
		UserID:     entry.UserID,
		OrderID:    entry.OrderID,
		CreatedAt:  entry.CreatedAt,
	}
}

// NewEntryDTOs maps a listing.
func NewEntryDTOs(entries []models.ActivityLog) []EntryDTO {
	out := make([]EntryDTO, 0, len(entries))
	for _, entry := range entries {
		out = append(out, NewEntryDTO(entry))
	}
	return out
}
