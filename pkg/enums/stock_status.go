package enums

import "fmt"

// StockStatus is the derived availability label stored on every part.
type StockStatus string

const (
	StockStatusInStock      StockStatus = "In Stock"
	StockStatusLowStock     StockStatus = "Low Stock"
	StockStatusOutOfStock   StockStatus = "Out of Stock"
	StockStatusDiscontinued StockStatus = "Discontinued"
)

var validStockStatuses = []StockStatus{
	StockStatusInStock,
	StockStatusLowStock,
	StockStatusOutOfStock,
	StockStatusDiscontinued,
}

// String implements fmt.Stringer.
func (s StockStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockStatus.
func (s StockStatus) IsValid() bool {
	for _, candidate := range validStockStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockStatus converts raw input into a StockStatus.
func ParseStockStatus(value string) (StockStatus, error) {
	for _, candidate := range validStockStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock status %q", value)
}
