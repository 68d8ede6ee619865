package orders

import (
	"time"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
)

const dateLayout = "2006-01-02"

// OrderDTO is the order payload returned to clients.
type OrderDTO struct {
	OrderID    string    `json:"order_id"`
	CategoryID string    `json:"category_id"`
	PartName   string    `json:"part_name"`
	Date       string    `json:"date"`
	Quantity   int       `json:"quantity"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewOrderDTO builds a DTO from the persisted model.
func NewOrderDTO(order models.Order) OrderDTO {
	return OrderDTO{
		OrderID:    order.OrderID,
		CategoryID: order.CategoryID,
		PartName:   order.PartName,
		Date:       order.Date.UTC().Format(dateLayout),
		Quantity:   order.Quantity,
		Status:     string(order.Status),
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
	}
}

func NewOrderDTOs(orders []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(orders))
	for _, order := range orders {
		out = append(out, NewOrderDTO(order))
	}
	return out
}

// ParseDate reads a YYYY-MM-DD calendar date as UTC midnight.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, value, time.UTC)
}
