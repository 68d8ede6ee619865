// Package reports aggregates stock and order figures for dashboards and exports.
package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
)

// Service exposes read-only inventory reports.
type Service interface {
	Summary(ctx context.Context) (*Summary, error)
	StockAlerts(ctx context.Context) (*StockAlerts, error)
	Export(ctx context.Context, kind ExportKind) (*Export, error)
}

// Summary is the dashboard roll-up of parts and orders.
type Summary struct {
	TotalParts      int
	TotalUnits      int
	TotalValue      decimal.Decimal
	LowStock        int
	OutOfStock      int
	Discontinued    int
	TotalOrders     int
	PendingOrders   int
	CompletedOrders int
	CancelledOrders int
	GeneratedAt     time.Time
}

// StockAlerts lists the parts that need restocking.
type StockAlerts struct {
	LowStock    []models.Part
	OutOfStock  []models.Part
	GeneratedAt time.Time
}

type partLister interface {
	List(ctx context.Context) ([]models.Part, error)
}

type orderLister interface {
	List(ctx context.Context) ([]models.Order, error)
}

type service struct {
	parts  partLister
	orders orderLister
	now    func() time.Time
}

// NewService wires the report service over part and order listings.
func NewService(parts partLister, orders orderLister) (Service, error) {
	if parts == nil {
		return nil, fmt.Errorf("part lister required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order lister required")
	}
	return &service{
		parts:  parts,
		orders: orders,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Summary(ctx context.Context) (*Summary, error) {
	parts, orders, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	summary := summarize(parts, orders)
	summary.GeneratedAt = s.now()
	return summary, nil
}

func (s *service) StockAlerts(ctx context.Context) (*StockAlerts, error) {
	parts, err := s.parts.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
	}
	alerts := collectAlerts(parts)
	alerts.GeneratedAt = s.now()
	return alerts, nil
}

func (s *service) load(ctx context.Context) ([]models.Part, []models.Order, error) {
	var (
		parts  []models.Part
		orders []models.Order
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		parts, err = s.parts.List(gctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		orders, err = s.orders.List(gctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return parts, orders, nil
}

func summarize(parts []models.Part, orders []models.Order) *Summary {
	summary := &Summary{
		TotalParts:  len(parts),
		TotalValue:  decimal.Zero,
		TotalOrders: len(orders),
	}
	for _, part := range parts {
		summary.TotalUnits += part.Quantity
		summary.TotalValue = summary.TotalValue.Add(part.Price.Mul(decimal.NewFromInt(int64(part.Quantity))))
		switch part.Status {
		case enums.StockStatusLowStock:
			summary.LowStock++
		case enums.StockStatusOutOfStock:
			summary.OutOfStock++
		case enums.StockStatusDiscontinued:
			summary.Discontinued++
		}
	}
	for _, order := range orders {
		switch order.Status {
		case enums.OrderStatusPending:
			summary.PendingOrders++
		case enums.OrderStatusCompleted:
			summary.CompletedOrders++
		case enums.OrderStatusCancelled:
			summary.CancelledOrders++
		}
	}
	return summary
}

func collectAlerts(parts []models.Part) *StockAlerts {
	alerts := &StockAlerts{
		LowStock:   []models.Part{},
		OutOfStock: []models.Part{},
	}
	for _, part := range parts {
		switch part.Status {
		case enums.StockStatusLowStock:
			alerts.LowStock = append(alerts.LowStock, part)
		case enums.StockStatusOutOfStock:
			alerts.OutOfStock = append(alerts.OutOfStock, part)
		}
	}
	byCategoryID := func(list []models.Part) func(i, j int) bool {
		return func(i, j int) bool { return list[i].CategoryID < list[j].CategoryID }
	}
	sort.SliceStable(alerts.LowStock, byCategoryID(alerts.LowStock))
	sort.SliceStable(alerts.OutOfStock, byCategoryID(alerts.OutOfStock))
	return alerts
}
