package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
)

// Part is a stocked hardware component addressed by its category id (e.g. CPU001).
type Part struct {
	ID             int64              `gorm:"column:id;primaryKey;autoIncrement"`
	CategoryID     string             `gorm:"column:category_id;size:32;not null;uniqueIndex:ux_parts_category_id"`
	Name           string             `gorm:"column:name;not null"`
	Brand          string             `gorm:"column:brand;not null"`
	Category       enums.PartCategory `gorm:"column:category;size:64;not null;index:idx_parts_category"`
	Price          decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null;default:0;check:chk_parts_price,price >= 0"`
	Quantity       int                `gorm:"column:quantity;not null;default:0;check:chk_parts_quantity,quantity >= 0"`
	AlertThreshold int                `gorm:"column:alert_threshold;not null;default:0;check:chk_parts_alert_threshold,alert_threshold >= 0"`
	Status         enums.StockStatus  `gorm:"column:status;size:32;not null;index:idx_parts_status"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
