package orders

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/internal/activity"
	"github.com/angelmondragon/hwinventory-backend/internal/parts"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/dbtest"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox"
)

type testHarness struct {
	orders Service
	parts  parts.Service
	ledger activity.Service
	client *db.Client
	conn   *gorm.DB
}

func newHarness(t *testing.T) testHarness {
	t.Helper()
	client, conn := dbtest.Client(t)
	ledger, err := activity.NewService(activity.NewRepository(conn))
	require.NoError(t, err)
	events := outbox.NewService(outbox.NewRepository(conn), nil)

	partSvc, err := parts.NewService(parts.NewRepository(conn), client, ledger, events, nil)
	require.NoError(t, err)
	orderSvc, err := NewService(NewRepository(conn), client, partSvc, ledger, events, nil)
	require.NoError(t, err)
	orderSvc.(*service).now = func() time.Time { return time.Date(2026, 3, 4, 15, 30, 0, 0, time.UTC) }

	h := testHarness{orders: orderSvc, parts: partSvc, ledger: ledger, client: client, conn: conn}
	h.seedPart(t, "CPU001", "Intel Core i7-12700K", enums.PartCategoryProcessor, 10, 3)
	h.seedPart(t, "GPU001", "NVIDIA GeForce RTX 3060", enums.PartCategoryGraphics, 5, 2)
	return h
}

func (h testHarness) seedPart(t *testing.T, id, name string, category enums.PartCategory, qty, threshold int) {
	t.Helper()
	_, err := h.parts.Create(context.Background(), parts.CreatePartInput{
		CategoryID:     id,
		Name:           name,
		Brand:          "Brand",
		Category:       category,
		Price:          decimal.NewFromInt(1000),
		Quantity:       qty,
		AlertThreshold: threshold,
		ActorID:        1,
	})
	require.NoError(t, err)
}

func (h testHarness) part(t *testing.T, id string) *models.Part {
	t.Helper()
	part, err := h.parts.Get(context.Background(), id)
	require.NoError(t, err)
	return part
}

func (h testHarness) ledgerLen(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.conn.Model(&models.ActivityLog{}).Count(&count).Error)
	return count
}

func (h testHarness) lastEntry(t *testing.T) models.ActivityLog {
	t.Helper()
	var entry models.ActivityLog
	require.NoError(t, h.conn.Order("id DESC").First(&entry).Error)
	return entry
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func statusPtr(v enums.OrderStatus) *enums.OrderStatus { return &v }

func TestCreateOrderDeductsStockAndLogs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	order, err := h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 8, ActorID: 1})
	require.NoError(t, err)
	assert.Equal(t, "ORD001", order.OrderID)
	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, "Intel Core i7-12700K", order.PartName)
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), order.Date)

	cpu := h.part(t, "CPU001")
	assert.Equal(t, 2, cpu.Quantity)
	assert.Equal(t, enums.StockStatusLowStock, cpu.Status)

	entry := h.lastEntry(t)
	assert.Equal(t, enums.ActivityActionCreateOrder, entry.ActionType)
	assert.Equal(t, "Created order ORD001 for 8 units (Status: Pending)", entry.Details)
	require.NotNil(t, entry.OrderID)
	assert.Equal(t, "ORD001", *entry.OrderID)

	next, err := h.orders.NextOrderID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ORD002", next)
}

func TestCreateOrderFailuresLeaveNoTrace(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	before := h.ledgerLen(t)

	_, err := h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 11})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))

	_, err = h.orders.Create(ctx, CreateOrderInput{CategoryID: "RAM404", Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 0})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.orders.Create(ctx, CreateOrderInput{OrderID: "ORD777", CategoryID: "CPU001", Quantity: 1})
	require.NoError(t, err)
	_, err = h.orders.Create(ctx, CreateOrderInput{OrderID: "ORD777", CategoryID: "CPU001", Quantity: 2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	assert.Equal(t, 9, h.part(t, "CPU001").Quantity)
	assert.Equal(t, before+1, h.ledgerLen(t))

	var orders int64
	require.NoError(t, h.conn.Model(&models.Order{}).Count(&orders).Error)
	assert.Equal(t, int64(1), orders)
}

func TestUpdateOrderQuantityAppliesNetDelta(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 8})
	require.NoError(t, err)

	updated, err := h.orders.Update(ctx, "ORD001", UpdateOrderInput{Quantity: intPtr(5)})
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Quantity)
	assert.Equal(t, 5, h.part(t, "CPU001").Quantity)
	assert.Equal(t, "Updated order ORD001 (quantity 8 -> 5)", h.lastEntry(t).Details)

	_, err = h.orders.Update(ctx, "ORD001", UpdateOrderInput{Quantity: intPtr(10)})
	require.NoError(t, err)
	cpu := h.part(t, "CPU001")
	assert.Equal(t, 0, cpu.Quantity)
	assert.Equal(t, enums.StockStatusOutOfStock, cpu.Status)

	before := h.ledgerLen(t)
	_, err = h.orders.Update(ctx, "ORD001", UpdateOrderInput{Quantity: intPtr(11)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock))
	assert.Equal(t, 0, h.part(t, "CPU001").Quantity)
	assert.Equal(t, before, h.ledgerLen(t))
}

func TestUpdateOrderStatusMachine(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orders.Create(ctx, CreateOrderInput{CategoryID: "GPU001", Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, h.part(t, "GPU001").Quantity)

	_, err = h.orders.Update(ctx, "ORD001", UpdateOrderInput{Status: statusPtr(enums.OrderStatusCompleted)})
	require.NoError(t, err)
	assert.Equal(t, 3, h.part(t, "GPU001").Quantity)
	assert.Equal(t, "Updated order ORD001 (status Pending -> Completed)", h.lastEntry(t).Details)

	_, err = h.orders.Update(ctx, "ORD001", UpdateOrderInput{Status: statusPtr(enums.OrderStatusCancelled)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	_, err = h.orders.Update(ctx, "ORD001", UpdateOrderInput{Status: statusPtr(enums.OrderStatusPending)})
	require.NoError(t, err)

	cancelled, err := h.orders.Update(ctx, "ORD001", UpdateOrderInput{Status: statusPtr(enums.OrderStatusCancelled)})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 5, h.part(t, "GPU001").Quantity)

	_, err = h.orders.Update(ctx, "ORD001", UpdateOrderInput{Quantity: intPtr(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	_, err = h.orders.Update(ctx, "ORD001", UpdateOrderInput{Status: statusPtr(enums.OrderStatusPending)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 5, h.part(t, "GPU001").Quantity)

	_, err = h.orders.Update(ctx, "ORD001", UpdateOrderInput{Status: statusPtr("Shipped")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestUpdateOrderMovesStockBetweenParts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 4})
	require.NoError(t, err)

	moved, err := h.orders.Update(ctx, "ORD001", UpdateOrderInput{CategoryID: strPtr("gpu001"), Quantity: intPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, "GPU001", moved.CategoryID)
	assert.Equal(t, "NVIDIA GeForce RTX 3060", moved.PartName)
	assert.Equal(t, 10, h.part(t, "CPU001").Quantity)
	assert.Equal(t, 2, h.part(t, "GPU001").Quantity)

	_, err = h.orders.Update(ctx, "ORD001", UpdateOrderInput{CategoryID: strPtr("PSU404")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Equal(t, 10, h.part(t, "CPU001").Quantity)
	assert.Equal(t, 2, h.part(t, "GPU001").Quantity)
}

func TestDeleteOrderRestoresStockOnce(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 6})
	require.NoError(t, err)
	require.NoError(t, h.orders.Delete(ctx, "ord001", 1))

	cpu := h.part(t, "CPU001")
	assert.Equal(t, 10, cpu.Quantity)
	assert.Equal(t, enums.StockStatusInStock, cpu.Status)
	entry := h.lastEntry(t)
	assert.Equal(t, enums.ActivityActionDeleted, entry.ActionType)
	assert.Equal(t, "Deleted order ORD001", entry.Details)

	_, err = h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 2})
	require.NoError(t, err)
	_, err = h.orders.Update(ctx, "ORD001", UpdateOrderInput{Status: statusPtr(enums.OrderStatusCancelled)})
	require.NoError(t, err)
	require.NoError(t, h.orders.Delete(ctx, "ORD001", 1))
	assert.Equal(t, 10, h.part(t, "CPU001").Quantity)

	err = h.orders.Delete(ctx, "ORD001", 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListOrdersPendingFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }
	_, err := h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 1, Date: day(1)})
	require.NoError(t, err)
	_, err = h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 1, Date: day(3)})
	require.NoError(t, err)
	_, err = h.orders.Create(ctx, CreateOrderInput{CategoryID: "GPU001", Quantity: 1, Date: day(2)})
	require.NoError(t, err)
	_, err = h.orders.Update(ctx, "ORD002", UpdateOrderInput{Status: statusPtr(enums.OrderStatusCompleted)})
	require.NoError(t, err)

	list, err := h.orders.List(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, order := range list {
		ids = append(ids, order.OrderID)
	}
	assert.Equal(t, []string{"ORD003", "ORD001", "ORD002"}, ids)
}

type noopRecorder struct{}

func (noopRecorder) AppendTx(ctx context.Context, tx *gorm.DB, input activity.AppendInput) (*models.ActivityLog, error) {
	return &models.ActivityLog{}, nil
}

type stubAdjuster struct {
	adjustFn func(ctx context.Context, tx *gorm.DB, categoryID string, delta int) (*models.Part, error)
}

func (s stubAdjuster) AdjustQuantity(ctx context.Context, tx *gorm.DB, categoryID string, delta int) (*models.Part, error) {
	return s.adjustFn(ctx, tx, categoryID, delta)
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	client, conn := dbtest.Client(t)
	repo := NewRepository(conn)
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	adjuster := stubAdjuster{}

	_, err := NewService(nil, client, adjuster, noopRecorder{}, events, nil)
	assert.Error(t, err)
	_, err = NewService(repo, nil, adjuster, noopRecorder{}, events, nil)
	assert.Error(t, err)
	_, err = NewService(repo, client, nil, noopRecorder{}, events, nil)
	assert.Error(t, err)
	_, err = NewService(repo, client, adjuster, nil, events, nil)
	assert.Error(t, err)
	_, err = NewService(repo, client, adjuster, noopRecorder{}, nil, nil)
	assert.Error(t, err)
}

func TestCreateOrderPassesNegativeDelta(t *testing.T) {
	client, conn := dbtest.Client(t)
	var gotDelta int
	adjuster := stubAdjuster{adjustFn: func(ctx context.Context, tx *gorm.DB, categoryID string, delta int) (*models.Part, error) {
		require.NotNil(t, tx)
		gotDelta = delta
		return &models.Part{CategoryID: categoryID, Name: "Samsung 970 EVO"}, nil
	}}
	svc, err := NewService(NewRepository(conn), client, adjuster, noopRecorder{}, outbox.NewService(outbox.NewRepository(conn), nil), nil)
	require.NoError(t, err)

	order, err := svc.Create(context.Background(), CreateOrderInput{CategoryID: "ssd001", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, -3, gotDelta)
	assert.Equal(t, "SSD001", order.CategoryID)
	assert.Equal(t, "Samsung 970 EVO", order.PartName)
}

// staleIDRepo hides existing order ids from the next *stale allocations, which is
// what a create sees when a concurrent insert commits between its read and its write.
type staleIDRepo struct {
	Repository
	stale *int
}

func (r staleIDRepo) WithTx(tx *gorm.DB) Repository {
	return staleIDRepo{Repository: r.Repository.WithTx(tx), stale: r.stale}
}

func (r staleIDRepo) ListOrderIDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	if *r.stale > 0 {
		*r.stale--
		return nil, nil
	}
	return r.Repository.ListOrderIDsWithPrefix(ctx, prefix)
}

func TestCreateOrderReallocatesCollidingGeneratedID(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 2, ActorID: 1})
	require.NoError(t, err)
	before := h.ledgerLen(t)

	stale := 1
	racing, err := NewService(staleIDRepo{Repository: NewRepository(h.conn), stale: &stale}, h.client, h.parts, h.ledger,
		outbox.NewService(outbox.NewRepository(h.conn), nil), nil)
	require.NoError(t, err)

	order, err := racing.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 3, ActorID: 1, Date: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, "ORD002", order.OrderID)

	// The rolled back attempt must not have deducted stock twice.
	assert.Equal(t, 5, h.part(t, "CPU001").Quantity)
	assert.Equal(t, before+1, h.ledgerLen(t))
}

func TestCreateOrderGivesUpAfterRepeatedIDCollisions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.orders.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 2, ActorID: 1})
	require.NoError(t, err)
	before := h.ledgerLen(t)

	stale := generatedIDAttempts
	racing, err := NewService(staleIDRepo{Repository: NewRepository(h.conn), stale: &stale}, h.client, h.parts, h.ledger,
		outbox.NewService(outbox.NewRepository(h.conn), nil), nil)
	require.NoError(t, err)

	_, err = racing.Create(ctx, CreateOrderInput{CategoryID: "CPU001", Quantity: 3, ActorID: 1})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
	assert.Equal(t, 8, h.part(t, "CPU001").Quantity)
	assert.Equal(t, before, h.ledgerLen(t))
}
