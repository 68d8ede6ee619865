package payloads

import (
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
)

// PartStockStatusChangedEvent is emitted whenever a part's derived stock status moves.
type PartStockStatusChangedEvent struct {
	CategoryID     string            `json:"category_id"`
	PartName       string            `json:"part_name"`
	PreviousStatus enums.StockStatus `json:"previous_status,omitempty"`
	Status         enums.StockStatus `json:"status"`
	Quantity       int               `json:"quantity"`
	AlertThreshold int               `json:"alert_threshold"`
}

// OrderStatusChangedEvent is emitted when an order is created, transitions or is deleted.
type OrderStatusChangedEvent struct {
	OrderID        string            `json:"order_id"`
	CategoryID     string            `json:"category_id"`
	Quantity       int               `json:"quantity"`
	PreviousStatus enums.OrderStatus `json:"previous_status,omitempty"`
	Status         enums.OrderStatus `json:"status,omitempty"`
	Deleted        bool              `json:"deleted,omitempty"`
}
