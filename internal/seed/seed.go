package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/hwinventory-backend/internal/orders"
	"github.com/angelmondragon/hwinventory-backend/internal/parts"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

// ActorID is the user recorded on every sample ledger entry.
const ActorID int64 = 1

type partCatalog interface {
	List(ctx context.Context) ([]models.Part, error)
	Create(ctx context.Context, input parts.CreatePartInput) (*models.Part, error)
}

type orderBook interface {
	Create(ctx context.Context, input orders.CreateOrderInput) (*models.Order, error)
	Update(ctx context.Context, orderID string, input orders.UpdateOrderInput) (*models.Order, error)
}

type samplePart struct {
	id        string
	name      string
	brand     string
	category  enums.PartCategory
	price     int64
	quantity  int
	threshold int
}

type sampleOrder struct {
	id         string
	categoryID string
	quantity   int
	status     enums.OrderStatus
}

var sampleParts = []samplePart{
	{id: "CPU001", name: "Intel Core i7-12700K", brand: "Intel", category: enums.PartCategoryProcessor, price: 18000, quantity: 10, threshold: 3},
	{id: "GPU001", name: "NVIDIA RTX 3060", brand: "NVIDIA", category: enums.PartCategoryGraphics, price: 28000, quantity: 5, threshold: 2},
	{id: "SSD001", name: "Samsung 970 EVO 1TB", brand: "Samsung", category: enums.PartCategoryStorage, price: 6000, quantity: 8, threshold: 2},
	{id: "RAM001", name: "Corsair Vengeance 16GB", brand: "Corsair", category: enums.PartCategoryMemory, price: 3500, quantity: 15, threshold: 5},
}

var sampleOrders = []sampleOrder{
	{id: "ORD001", categoryID: "CPU001", quantity: 2, status: enums.OrderStatusCompleted},
	{id: "ORD002", categoryID: "GPU001", quantity: 1, status: enums.OrderStatusPending},
}

var sampleOrderDate = time.Date(2025, 7, 28, 0, 0, 0, 0, time.UTC)

// Result reports what a seed run wrote.
type Result struct {
	Parts   int
	Orders  int
	Skipped bool
}

// Run loads the sample catalogue through the services so stock, ledger and
// outbox stay consistent. A non-empty catalogue is left untouched.
func Run(ctx context.Context, catalog partCatalog, book orderBook, logg *logger.Logger) (Result, error) {
	existing, err := catalog.List(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("listing parts: %w", err)
	}
	if len(existing) > 0 {
		if logg != nil {
			logg.Info(logg.WithField(ctx, "parts", len(existing)), "catalogue not empty, skipping seed")
		}
		return Result{Skipped: true}, nil
	}

	var res Result
	for _, p := range sampleParts {
		if _, err := catalog.Create(ctx, parts.CreatePartInput{
			CategoryID:     p.id,
			Name:           p.name,
			Brand:          p.brand,
			Category:       p.category,
			Price:          decimal.NewFromInt(p.price),
			Quantity:       p.quantity,
			AlertThreshold: p.threshold,
			ActorID:        ActorID,
		}); err != nil {
			return res, fmt.Errorf("seeding part %s: %w", p.id, err)
		}
		res.Parts++
	}

	for _, o := range sampleOrders {
		if _, err := book.Create(ctx, orders.CreateOrderInput{
			OrderID:    o.id,
			CategoryID: o.categoryID,
			Date:       sampleOrderDate,
			Quantity:   o.quantity,
			ActorID:    ActorID,
		}); err != nil {
			return res, fmt.Errorf("seeding order %s: %w", o.id, err)
		}
		if o.status != enums.OrderStatusPending {
			status := o.status
			if _, err := book.Update(ctx, o.id, orders.UpdateOrderInput{Status: &status, ActorID: ActorID}); err != nil {
				return res, fmt.Errorf("completing order %s: %w", o.id, err)
			}
		}
		res.Orders++
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"parts": res.Parts, "orders": res.Orders}), "sample inventory seeded")
	}
	return res, nil
}
