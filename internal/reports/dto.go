package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hwinventory-backend/internal/parts"
)

// SummaryDTO is the dashboard summary returned to clients.
type SummaryDTO struct {
	TotalParts      int             `json:"total_parts"`
	TotalUnits      int             `json:"total_units"`
	TotalValue      decimal.Decimal `json:"total_value"`
	LowStock        int             `json:"low_stock"`
	OutOfStock      int             `json:"out_of_stock"`
	Discontinued    int             `json:"discontinued"`
	TotalOrders     int             `json:"total_orders"`
	PendingOrders   int             `json:"pending_orders"`
	CompletedOrders int             `json:"completed_orders"`
	CancelledOrders int             `json:"cancelled_orders"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

func NewSummaryDTO(s Summary) SummaryDTO {
	return SummaryDTO{
		TotalParts:      s.TotalParts,
		TotalUnits:      s.TotalUnits,
		TotalValue:      s.TotalValue,
		LowStock:        s.LowStock,
		OutOfStock:      s.OutOfStock,
		Discontinued:    s.Discontinued,
		TotalOrders:     s.TotalOrders,
		PendingOrders:   s.PendingOrders,
		CompletedOrders: s.CompletedOrders,
		CancelledOrders: s.CancelledOrders,
		GeneratedAt:     s.GeneratedAt,
	}
}

// StockAlertsDTO groups alerting parts by severity.
type StockAlertsDTO struct {
	LowStock    []parts.PartDTO `json:"low_stock"`
	OutOfStock  []parts.PartDTO `json:"out_of_stock"`
	GeneratedAt time.Time       `json:"generated_at"`
}

func NewStockAlertsDTO(a StockAlerts) StockAlertsDTO {
	return StockAlertsDTO{
		LowStock:    parts.NewPartDTOs(a.LowStock),
		OutOfStock:  parts.NewPartDTOs(a.OutOfStock),
		GeneratedAt: a.GeneratedAt,
	}
}
