package orders

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
)

func TestSortForDisplay(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	input := []models.Order{
		{ID: 1, OrderID: "ORD001", Date: day(1), Status: enums.OrderStatusCompleted},
		{ID: 2, OrderID: "ORD002", Date: day(1), Status: enums.OrderStatusPending},
		{ID: 3, OrderID: "ORD003", Date: day(5), Status: enums.OrderStatusCancelled},
		{ID: 4, OrderID: "ORD004", Date: day(1), Status: enums.OrderStatusPending},
		{ID: 5, OrderID: "ORD005", Date: day(3), Status: enums.OrderStatusPending},
	}

	sorted := SortForDisplay(input)

	ids := make([]string, 0, len(sorted))
	for _, order := range sorted {
		ids = append(ids, order.OrderID)
	}
	assert.Equal(t, []string{"ORD005", "ORD004", "ORD002", "ORD003", "ORD001"}, ids)
	assert.Equal(t, "ORD001", input[0].OrderID, "input must not be reordered")
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to enums.OrderStatus
		want     bool
	}{
		{enums.OrderStatusPending, enums.OrderStatusPending, true},
		{enums.OrderStatusPending, enums.OrderStatusCompleted, true},
		{enums.OrderStatusPending, enums.OrderStatusCancelled, true},
		{enums.OrderStatusCompleted, enums.OrderStatusPending, true},
		{enums.OrderStatusCompleted, enums.OrderStatusCompleted, true},
		{enums.OrderStatusCompleted, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusCancelled, false},
		{enums.OrderStatusCancelled, enums.OrderStatusPending, false},
		{enums.OrderStatusCancelled, enums.OrderStatusCompleted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
