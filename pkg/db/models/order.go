package models

import (
	"time"

	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
)

// Order reserves a quantity of a single part until it is cancelled or deleted.
type Order struct {
	ID         int64             `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID    string            `gorm:"column:order_id;size:32;not null;uniqueIndex:ux_orders_order_id"`
	CategoryID string            `gorm:"column:category_id;size:32;not null;index:idx_orders_category_id"`
	PartName   string            `gorm:"column:part_name;not null"`
	Date       time.Time         `gorm:"column:order_date;type:date;not null"`
	Quantity   int               `gorm:"column:quantity;not null;check:chk_orders_quantity,quantity > 0"`
	Status     enums.OrderStatus `gorm:"column:status;size:16;not null;index:idx_orders_status"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// ReservedQuantity is the number of part units this order currently holds.
func (o Order) ReservedQuantity() int {
	if !o.Status.HoldsStock() {
		return 0
	}
	return o.Quantity
}
