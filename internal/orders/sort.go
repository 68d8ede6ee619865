package orders

import (
	"sort"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
)

// SortForDisplay orders pending orders first, then each group by date and id,
// newest first. The input slice is not modified.
func SortForDisplay(orders []models.Order) []models.Order {
	out := make([]models.Order, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		aPending := a.Status == enums.OrderStatusPending
		bPending := b.Status == enums.OrderStatusPending
		if aPending != bPending {
			return aPending
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID > b.ID
	})
	return out
}
