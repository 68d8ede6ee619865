package engine

import (
	"errors"
	"fmt"

	"github.com/angelmondragon/hwinventory-backend/internal/activity"
	"github.com/angelmondragon/hwinventory-backend/internal/backup"
	"github.com/angelmondragon/hwinventory-backend/internal/orders"
	"github.com/angelmondragon/hwinventory-backend/internal/parts"
	"github.com/angelmondragon/hwinventory-backend/internal/reports"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
	"github.com/angelmondragon/hwinventory-backend/pkg/metrics"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox"
)

// Engine bundles the inventory services that share one database client.
type Engine struct {
	Activity activity.Service
	Parts    parts.Service
	Orders   orders.Service
	Reports  reports.Service
	Backup   backup.Service
}

// New wires every service against client. logg and m may be nil.
func New(client *db.Client, logg *logger.Logger, m *metrics.InventoryMetrics) (*Engine, error) {
	if client == nil {
		return nil, errors.New("database client is required")
	}
	conn := client.DB()

	ledger, err := activity.NewService(activity.NewRepository(conn))
	if err != nil {
		return nil, fmt.Errorf("activity service: %w", err)
	}
	events := outbox.NewService(outbox.NewRepository(conn), logg)

	partSvc, err := parts.NewService(parts.NewRepository(conn), client, ledger, events, m)
	if err != nil {
		return nil, fmt.Errorf("part service: %w", err)
	}
	orderSvc, err := orders.NewService(orders.NewRepository(conn), client, partSvc, ledger, events, m)
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}
	reportSvc, err := reports.NewService(partSvc, orderSvc)
	if err != nil {
		return nil, fmt.Errorf("report service: %w", err)
	}

	backupSvc, err := backup.NewService(client, logg)
	if err != nil {
		return nil, fmt.Errorf("backup service: %w", err)
	}

	return &Engine{
		Activity: ledger,
		Parts:    partSvc,
		Orders:   orderSvc,
		Reports:  reportSvc,
		Backup:   backupSvc,
	}, nil
}
