// Package stock derives a part's availability label from its quantity.
package stock

import (
	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
)

// Classify maps a quantity and alert threshold to a stock status. A manual
// Discontinued override always wins; any other manual value is ignored.
func Classify(quantity, alertThreshold int, manual enums.StockStatus) enums.StockStatus {
	switch {
	case manual == enums.StockStatusDiscontinued:
		return enums.StockStatusDiscontinued
	case quantity <= 0:
		return enums.StockStatusOutOfStock
	case quantity <= alertThreshold:
		return enums.StockStatusLowStock
	default:
		return enums.StockStatusInStock
	}
}

// ForPart reclassifies a part using its current quantity, threshold and any
// Discontinued flag it already carries.
func ForPart(part *models.Part) enums.StockStatus {
	if part == nil {
		return ""
	}
	return Classify(part.Quantity, part.AlertThreshold, part.Status)
}

// IsAlert reports whether the status should surface in stock alerts.
func IsAlert(status enums.StockStatus) bool {
	return status == enums.StockStatusLowStock || status == enums.StockStatusOutOfStock
}
