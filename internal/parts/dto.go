package parts

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
)

// PartDTO is the part payload returned to clients.
type PartDTO struct {
	CategoryID     string          `json:"category_id"`
	Name           string          `json:"name"`
	Brand          string          `json:"brand"`
	Category       string          `json:"category"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	AlertThreshold int             `json:"alert_threshold"`
	Status         string          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// NewPartDTO builds a DTO from the persisted model.
func NewPartDTO(part models.Part) PartDTO {
	return PartDTO{
		CategoryID:     part.CategoryID,
		Name:           part.Name,
		Brand:          part.Brand,
		Category:       string(part.Category),
		Price:          part.Price,
		Quantity:       part.Quantity,
		AlertThreshold: part.AlertThreshold,
		Status:         string(part.Status),
		CreatedAt:      part.CreatedAt,
		UpdatedAt:      part.UpdatedAt,
	}
}

func NewPartDTOs(parts []models.Part) []PartDTO {
	out := make([]PartDTO, 0, len(parts))
	for _, part := range parts {
		out = append(out, NewPartDTO(part))
	}
	return out
}
