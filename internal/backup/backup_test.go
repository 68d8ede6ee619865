package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/internal/activity"
	"github.com/angelmondragon/hwinventory-backend/internal/orders"
	"github.com/angelmondragon/hwinventory-backend/internal/parts"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/dbtest"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox"
)

type inventory struct {
	client *db.Client
	conn   *gorm.DB
	parts  parts.Service
	orders orders.Service
	backup Service
}

func newInventory(t *testing.T) inventory {
	t.Helper()
	client, conn := dbtest.Client(t)
	ledger, err := activity.NewService(activity.NewRepository(conn))
	require.NoError(t, err)
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	partSvc, err := parts.NewService(parts.NewRepository(conn), client, ledger, events, nil)
	require.NoError(t, err)
	orderSvc, err := orders.NewService(orders.NewRepository(conn), client, partSvc, ledger, events, nil)
	require.NoError(t, err)
	backupSvc, err := NewService(client, nil)
	require.NoError(t, err)
	backupSvc.(*service).now = func() time.Time { return time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC) }
	return inventory{client: client, conn: conn, parts: partSvc, orders: orderSvc, backup: backupSvc}
}

func (inv inventory) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for _, in := range []parts.CreatePartInput{
		{CategoryID: "CPU001", Name: "Intel Core i7-12700K", Brand: "Intel", Category: enums.PartCategoryProcessor, Price: decimal.RequireFromString("18000.50"), Quantity: 10, AlertThreshold: 3, ActorID: 1},
		{CategoryID: "GPU001", Name: "NVIDIA GeForce RTX 3060", Brand: "NVIDIA", Category: enums.PartCategoryGraphics, Price: decimal.NewFromInt(28000), Quantity: 4, AlertThreshold: 2, ActorID: 1},
		{CategoryID: "RAM001", Name: "Corsair 16GB", Brand: "Corsair", Category: enums.PartCategoryMemory, Price: decimal.NewFromInt(3500), Quantity: 6, AlertThreshold: 2, Status: enums.StockStatusDiscontinued, ActorID: 2},
	} {
		_, err := inv.parts.Create(ctx, in)
		require.NoError(t, err)
	}
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	_, err := inv.orders.Create(ctx, orderInput("CPU001", 4, day))
	require.NoError(t, err)
	_, err = inv.orders.Create(ctx, orderInput("GPU001", 3, day))
	require.NoError(t, err)
	cancelled := enums.OrderStatusCancelled
	_, err = inv.orders.Update(ctx, "ORD002", orders.UpdateOrderInput{Status: &cancelled, ActorID: 2})
	require.NoError(t, err)
}

func orderInput(categoryID string, qty int, day time.Time) orders.CreateOrderInput {
	return orders.CreateOrderInput{CategoryID: categoryID, Quantity: qty, Date: day, ActorID: 1}
}

func (inv inventory) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, inv.conn.Model(model).Count(&n).Error)
	return n
}

func TestExportRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	source := newInventory(t)
	source.seed(t)

	snap, err := source.backup.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, snap.Version)
	require.Len(t, snap.Parts, 3)
	require.Len(t, snap.Orders, 2)
	assert.Equal(t, "2026-03-02", snap.Orders[0].Date)
	assert.Equal(t, 6, snap.Parts[0].Quantity, "CPU001 keeps 4 units reserved")
	assert.Equal(t, 4, snap.Parts[1].Quantity, "cancelled GPU001 order released its stock")

	path, err := WriteFile(t.TempDir(), snap)
	require.NoError(t, err)
	assert.Equal(t, "inventory_20260304T153000Z.json", filepath.Base(path))
	loaded, err := ReadFile(path)
	require.NoError(t, err)

	target := newInventory(t)
	counts, err := target.backup.Restore(ctx, loaded)
	require.NoError(t, err)
	assert.Equal(t, &Counts{Parts: 3, Orders: 2, ActivityLogs: len(snap.ActivityLogs)}, counts)

	again, err := target.backup.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, again)

	// The restored store keeps working through the services.
	order, err := target.orders.Create(ctx, orderInput("CPU001", 6, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "ORD003", order.OrderID)
	cpu, err := target.parts.Get(ctx, "CPU001")
	require.NoError(t, err)
	assert.Equal(t, 0, cpu.Quantity)
	assert.Equal(t, enums.StockStatusOutOfStock, cpu.Status)
}

func TestRestoreReplacesExistingData(t *testing.T) {
	ctx := context.Background()
	inv := newInventory(t)
	inv.seed(t)

	snap := &Snapshot{
		Version: FormatVersion,
		Parts: []PartRecord{
			{CategoryID: "SSD001", Name: "Samsung 970 EVO", Brand: "Samsung", Category: enums.PartCategoryStorage, Price: decimal.NewFromInt(6000), Quantity: 1, AlertThreshold: 3, Status: enums.StockStatusInStock},
			{CategoryID: "PSU001", Name: "Corsair RM750", Brand: "Corsair", Category: enums.PartCategoryPowerSupply, Price: decimal.NewFromInt(5000), Quantity: 9, AlertThreshold: 1, Status: enums.StockStatusDiscontinued},
		},
	}
	counts, err := inv.backup.Restore(ctx, snap)
	require.NoError(t, err)
	assert.Equal(t, &Counts{Parts: 2}, counts)

	assert.Equal(t, int64(2), inv.count(t, &models.Part{}))
	assert.Zero(t, inv.count(t, &models.Order{}))
	assert.Zero(t, inv.count(t, &models.ActivityLog{}))

	ssd, err := inv.parts.Get(ctx, "SSD001")
	require.NoError(t, err)
	assert.Equal(t, enums.StockStatusLowStock, ssd.Status, "status is recomputed, not trusted")
	psu, err := inv.parts.Get(ctx, "PSU001")
	require.NoError(t, err)
	assert.Equal(t, enums.StockStatusDiscontinued, psu.Status)
}

func TestRestoreRejectsInvalidSnapshotUntouched(t *testing.T) {
	ctx := context.Background()
	inv := newInventory(t)
	inv.seed(t)
	partsBefore, ordersBefore := inv.count(t, &models.Part{}), inv.count(t, &models.Order{})

	_, err := inv.backup.Restore(ctx, &Snapshot{Version: 2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	_, err = inv.backup.Restore(ctx, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	bad := &Snapshot{
		Version: FormatVersion,
		Parts: []PartRecord{
			{CategoryID: "CPU001", Name: "Intel", Category: enums.PartCategoryProcessor, Quantity: -1},
			{CategoryID: "CPU001", Name: "Intel again", Category: enums.PartCategoryProcessor},
			{CategoryID: "XYZ001", Name: "Mystery", Category: "Toaster"},
		},
		Orders: []OrderRecord{
			{OrderID: "ORD001", CategoryID: "GPU404", Date: "2026-03-02", Quantity: 1, Status: enums.OrderStatusPending},
			{OrderID: "ORD002", CategoryID: "CPU001", Date: "03/02/2026", Quantity: 0, Status: "Shipped"},
		},
		ActivityLogs: []ActivityRecord{
			{ActivityID: "", ActionType: enums.ActivityActionAddition},
			{ActivityID: "a-1", ActionType: "Teleport"},
		},
	}
	_, err = inv.backup.Restore(ctx, bad)
	require.Error(t, err)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	problems, ok := details["problems"].([]string)
	require.True(t, ok)
	joined := strings.Join(problems, "\n")
	for _, want := range []string{
		"parts[0]: quantity and alert_threshold must not be negative",
		"parts[1]: duplicate category_id CPU001",
		`parts[2]: invalid category "Toaster"`,
		`orders[0]: part "GPU404" is not in the snapshot`,
		"orders[1]: quantity must be greater than zero",
		`orders[1]: invalid status "Shipped"`,
		"orders[1]: date must be YYYY-MM-DD",
		"activity_logs[0]: activity_id must be 1-36 characters",
		`activity_logs[1]: invalid action_type "Teleport"`,
	} {
		assert.Contains(t, joined, want)
	}

	assert.Equal(t, partsBefore, inv.count(t, &models.Part{}))
	assert.Equal(t, ordersBefore, inv.count(t, &models.Order{}))
}

// refusingTx runs the work and then fails, as a commit that the database
// refuses would.
type refusingTx struct {
	client *db.Client
}

func (r refusingTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := fn(tx); err != nil {
			return err
		}
		return errors.New("commit refused")
	})
}

func TestRestoreRollsBackWhenTransactionFails(t *testing.T) {
	ctx := context.Background()
	inv := newInventory(t)
	inv.seed(t)
	snap, err := inv.backup.Export(ctx)
	require.NoError(t, err)
	ledgerBefore := inv.count(t, &models.ActivityLog{})

	failing, err := NewService(refusingTx{client: inv.client}, nil)
	require.NoError(t, err)
	_, err = failing.Restore(ctx, &Snapshot{Version: FormatVersion})
	require.EqualError(t, err, "commit refused")

	after, err := inv.backup.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, after)
	assert.Equal(t, ledgerBefore, inv.count(t, &models.ActivityLog{}))
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"version":1,"parts":[],"users":[]}`))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "unknown tables are rejected: %v", err)

	_, err = Decode(strings.NewReader(`{"version":1,"parts":[`))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	snap, err := Decode(strings.NewReader(`{"version":1,"exported_at":"2026-03-04T15:30:00Z","parts":[],"orders":[],"activity_logs":[]}`))
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, snap.Version)
}

func TestListFilesNewestFirst(t *testing.T) {
	dir := t.TempDir()

	files, err := ListFiles(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, files)

	for _, at := range []time.Time{
		time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
		time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC),
	} {
		_, err := WriteFile(dir, &Snapshot{Version: FormatVersion, ExportedAt: at})
		require.NoError(t, err)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	files, err = ListFiles(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "inventory_20260304T153000Z.json", files[0].Name)
	assert.Equal(t, "inventory_20260301T080000Z.json", files[1].Name)
	assert.Positive(t, files[0].Size)
}
