// Package backup exports the inventory as a JSON snapshot and restores one in a
// single transaction.
package backup

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/internal/stock"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

// FormatVersion is written into every snapshot; Restore refuses any other.
const FormatVersion = 1

const (
	dateLayout  = "2006-01-02"
	insertBatch = 200
	maxProblems = 20
)

// Snapshot is a point-in-time copy of parts, orders and the activity ledger.
type Snapshot struct {
	Version      int              `json:"version"`
	ExportedAt   time.Time        `json:"exported_at"`
	Parts        []PartRecord     `json:"parts"`
	Orders       []OrderRecord    `json:"orders"`
	ActivityLogs []ActivityRecord `json:"activity_logs"`
}

type PartRecord struct {
	CategoryID     string             `json:"category_id"`
	Name           string             `json:"name"`
	Brand          string             `json:"brand"`
	Category       enums.PartCategory `json:"category"`
	Price          decimal.Decimal    `json:"price"`
	Quantity       int                `json:"quantity"`
	AlertThreshold int                `json:"alert_threshold"`
	Status         enums.StockStatus  `json:"status"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

type OrderRecord struct {
	OrderID    string            `json:"order_id"`
	CategoryID string            `json:"category_id"`
	PartName   string            `json:"part_name"`
	Date       string            `json:"date"`
	Quantity   int               `json:"quantity"`
	Status     enums.OrderStatus `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

type ActivityRecord struct {
	ActivityID string               `json:"activity_id"`
	PartName   string               `json:"part_name"`
	CategoryID string               `json:"category_id"`
	ActionType enums.ActivityAction `json:"action_type"`
	Details    string               `json:"details"`
	UserID     int64                `json:"user_id"`
	OrderID    *string              `json:"order_id,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
}

// Counts reports how many rows a restore wrote per table.
type Counts struct {
	Parts        int `json:"parts"`
	Orders       int `json:"orders"`
	ActivityLogs int `json:"activity_logs"`
}

// Service snapshots and restores the whole inventory.
type Service interface {
	Export(ctx context.Context) (*Snapshot, error)
	Restore(ctx context.Context, snap *Snapshot) (*Counts, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	tx   txRunner
	logg *logger.Logger
	now  func() time.Time
}

// NewService builds the backup service. logg may be nil.
func NewService(tx txRunner, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		tx:   tx,
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

// Export reads the three tables inside one transaction so the snapshot never
// mixes an order with a part quantity from before it was placed.
func (s *service) Export(ctx context.Context) (*Snapshot, error) {
	var (
		parts   []models.Part
		orders  []models.Order
		entries []models.ActivityLog
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Order("category_id ASC").Find(&parts).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "export parts")
		}
		if err := tx.Order("id ASC").Find(&orders).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "export orders")
		}
		if err := tx.Order("id ASC").Find(&entries).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "export activity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Version:      FormatVersion,
		ExportedAt:   s.now(),
		Parts:        make([]PartRecord, 0, len(parts)),
		Orders:       make([]OrderRecord, 0, len(orders)),
		ActivityLogs: make([]ActivityRecord, 0, len(entries)),
	}
	for _, p := range parts {
		snap.Parts = append(snap.Parts, PartRecord{
			CategoryID:     p.CategoryID,
			Name:           p.Name,
			Brand:          p.Brand,
			Category:       p.Category,
			Price:          p.Price,
			Quantity:       p.Quantity,
			AlertThreshold: p.AlertThreshold,
			Status:         p.Status,
			CreatedAt:      p.CreatedAt.UTC(),
			UpdatedAt:      p.UpdatedAt.UTC(),
		})
	}
	for _, o := range orders {
		snap.Orders = append(snap.Orders, OrderRecord{
			OrderID:    o.OrderID,
			CategoryID: o.CategoryID,
			PartName:   o.PartName,
			Date:       o.Date.Format(dateLayout),
			Quantity:   o.Quantity,
			Status:     o.Status,
			CreatedAt:  o.CreatedAt.UTC(),
			UpdatedAt:  o.UpdatedAt.UTC(),
		})
	}
	for _, e := range entries {
		snap.ActivityLogs = append(snap.ActivityLogs, ActivityRecord{
			ActivityID: e.ActivityID,
			PartName:   e.PartName,
			CategoryID: e.CategoryID,
			ActionType: e.ActionType,
			Details:    e.Details,
			UserID:     e.UserID,
			OrderID:    e.OrderID,
			CreatedAt:  e.CreatedAt.UTC(),
		})
	}
	return snap, nil
}

// Restore replaces parts, orders and the activity ledger with the snapshot.
// The snapshot is checked in full before anything is touched, and the wipe and
// reload share one transaction, so a failure leaves the current data in place.
// Part statuses are recomputed from quantity and threshold; only Discontinued
// is taken from the file.
func (s *service) Restore(ctx context.Context, snap *Snapshot) (*Counts, error) {
	rows, err := prepare(snap)
	if err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		wipe := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.ActivityLog{}, &models.Order{}, &models.Part{}} {
			if err := wipe.Delete(model).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear inventory")
			}
		}
		if len(rows.parts) > 0 {
			if err := tx.CreateInBatches(rows.parts, insertBatch).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore parts")
			}
		}
		if len(rows.orders) > 0 {
			if err := tx.CreateInBatches(rows.orders, insertBatch).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore orders")
			}
		}
		if len(rows.entries) > 0 {
			if err := tx.CreateInBatches(rows.entries, insertBatch).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore activity")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	counts := &Counts{Parts: len(rows.parts), Orders: len(rows.orders), ActivityLogs: len(rows.entries)}
	if s.logg != nil {
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"exported_at":   snap.ExportedAt,
			"parts":         counts.Parts,
			"orders":        counts.Orders,
			"activity_logs": counts.ActivityLogs,
		}), "inventory restored from snapshot")
	}
	return counts, nil
}

type restoreRows struct {
	parts   []*models.Part
	orders  []*models.Order
	entries []*models.ActivityLog
}

// prepare validates snap and converts it to rows. Every problem found is
// reported at once, capped at maxProblems.
func prepare(snap *Snapshot) (*restoreRows, error) {
	if snap == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "snapshot is required")
	}
	if snap.Version != FormatVersion {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unsupported snapshot version %d", snap.Version)).
			WithDetails(map[string]any{"supported": FormatVersion})
	}

	var problems []string
	report := func(format string, args ...any) {
		if len(problems) < maxProblems {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	rows := &restoreRows{
		parts:   make([]*models.Part, 0, len(snap.Parts)),
		orders:  make([]*models.Order, 0, len(snap.Orders)),
		entries: make([]*models.ActivityLog, 0, len(snap.ActivityLogs)),
	}

	partIDs := make(map[string]struct{}, len(snap.Parts))
	for i, p := range snap.Parts {
		if p.CategoryID == "" {
			report("parts[%d]: category_id is required", i)
			continue
		}
		if _, dup := partIDs[p.CategoryID]; dup {
			report("parts[%d]: duplicate category_id %s", i, p.CategoryID)
			continue
		}
		partIDs[p.CategoryID] = struct{}{}
		if p.Name == "" {
			report("parts[%d]: name is required", i)
		}
		if !p.Category.IsValid() {
			report("parts[%d]: invalid category %q", i, p.Category)
		}
		if p.Price.IsNegative() {
			report("parts[%d]: price must not be negative", i)
		}
		if p.Quantity < 0 || p.AlertThreshold < 0 {
			report("parts[%d]: quantity and alert_threshold must not be negative", i)
		}
		if p.Status != "" && !p.Status.IsValid() {
			report("parts[%d]: invalid status %q", i, p.Status)
		}
		rows.parts = append(rows.parts, &models.Part{
			CategoryID:     p.CategoryID,
			Name:           p.Name,
			Brand:          p.Brand,
			Category:       p.Category,
			Price:          p.Price,
			Quantity:       p.Quantity,
			AlertThreshold: p.AlertThreshold,
			Status:         stock.Classify(p.Quantity, p.AlertThreshold, p.Status),
			CreatedAt:      p.CreatedAt,
			UpdatedAt:      p.UpdatedAt,
		})
	}

	orderIDs := make(map[string]struct{}, len(snap.Orders))
	for i, o := range snap.Orders {
		if o.OrderID == "" {
			report("orders[%d]: order_id is required", i)
			continue
		}
		if _, dup := orderIDs[o.OrderID]; dup {
			report("orders[%d]: duplicate order_id %s", i, o.OrderID)
			continue
		}
		orderIDs[o.OrderID] = struct{}{}
		if _, ok := partIDs[o.CategoryID]; !ok {
			report("orders[%d]: part %q is not in the snapshot", i, o.CategoryID)
		}
		if o.Quantity <= 0 {
			report("orders[%d]: quantity must be greater than zero", i)
		}
		if !o.Status.IsValid() {
			report("orders[%d]: invalid status %q", i, o.Status)
		}
		date, err := time.Parse(dateLayout, o.Date)
		if err != nil {
			report("orders[%d]: date must be YYYY-MM-DD", i)
		}
		rows.orders = append(rows.orders, &models.Order{
			OrderID:    o.OrderID,
			CategoryID: o.CategoryID,
			PartName:   o.PartName,
			Date:       date,
			Quantity:   o.Quantity,
			Status:     o.Status,
			CreatedAt:  o.CreatedAt,
			UpdatedAt:  o.UpdatedAt,
		})
	}

	activityIDs := make(map[string]struct{}, len(snap.ActivityLogs))
	for i, e := range snap.ActivityLogs {
		if e.ActivityID == "" || len(e.ActivityID) > 36 {
			report("activity_logs[%d]: activity_id must be 1-36 characters", i)
			continue
		}
		if _, dup := activityIDs[e.ActivityID]; dup {
			report("activity_logs[%d]: duplicate activity_id %s", i, e.ActivityID)
			continue
		}
		activityIDs[e.ActivityID] = struct{}{}
		if !e.ActionType.IsValid() {
			report("activity_logs[%d]: invalid action_type %q", i, e.ActionType)
		}
		rows.entries = append(rows.entries, &models.ActivityLog{
			ActivityID: e.ActivityID,
			PartName:   e.PartName,
			CategoryID: e.CategoryID,
			ActionType: e.ActionType,
			Details:    e.Details,
			UserID:     e.UserID,
			OrderID:    e.OrderID,
			CreatedAt:  e.CreatedAt,
		})
	}

	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "snapshot failed validation").
			WithDetails(map[string]any{"problems": problems})
	}
	return rows, nil
}
