package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/internal/activity"
	"github.com/angelmondragon/hwinventory-backend/internal/parts"
	"github.com/angelmondragon/hwinventory-backend/pkg/db"
	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
	"github.com/angelmondragon/hwinventory-backend/pkg/idgen"
	"github.com/angelmondragon/hwinventory-backend/pkg/metrics"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox"
	"github.com/angelmondragon/hwinventory-backend/pkg/outbox/payloads"
)

const (
	orderIDPrefix = "ORD"
	metricEntity  = "order"
)

// generatedIDAttempts bounds how often Create re-allocates a generated id that a
// concurrent create claimed first.
const generatedIDAttempts = 2

var errGeneratedIDTaken = errors.New("generated order id already taken")

// Service manages the order lifecycle and keeps part stock in step with it.
type Service interface {
	List(ctx context.Context) ([]models.Order, error)
	Get(ctx context.Context, orderID string) (*models.Order, error)
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Update(ctx context.Context, orderID string, input UpdateOrderInput) (*models.Order, error)
	Delete(ctx context.Context, orderID string, actorID int64) error
	NextOrderID(ctx context.Context) (string, error)
}

// CreateOrderInput holds the payload to place an order. New orders always start Pending.
type CreateOrderInput struct {
	OrderID    string
	CategoryID string
	Date       time.Time
	Quantity   int
	ActorID    int64
}

// UpdateOrderInput holds optional mutation values for an order.
type UpdateOrderInput struct {
	CategoryID *string
	Date       *time.Time
	Quantity   *int
	Status     *enums.OrderStatus
	ActorID    int64
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type activityRecorder interface {
	AppendTx(ctx context.Context, tx *gorm.DB, input activity.AppendInput) (*models.ActivityLog, error)
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	repo    Repository
	tx      txRunner
	stock   parts.StockAdjuster
	ledger  activityRecorder
	outbox  outboxPublisher
	metrics *metrics.InventoryMetrics
	now     func() time.Time
}

// NewService wires the order service. metrics may be nil.
func NewService(repo Repository, tx txRunner, stock parts.StockAdjuster, ledger activityRecorder, events outboxPublisher, m *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock adjuster required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("activity recorder required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		stock:   stock,
		ledger:  ledger,
		outbox:  events,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) List(ctx context.Context) ([]models.Order, error) {
	orders, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return SortForDisplay(orders), nil
}

func (s *service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	orderID = normalizeID(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, mapFindError(err, orderID)
	}
	return order, nil
}

func (s *service) NextOrderID(ctx context.Context) (string, error) {
	return nextOrderID(ctx, s.repo)
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (order *models.Order, err error) {
	defer s.observe("create", time.Now(), &err)

	categoryID := normalizeID(input.CategoryID)
	if categoryID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}

	date := calendarDate(input.Date)
	if input.Date.IsZero() {
		date = calendarDate(s.now())
	}

	for attempt := 1; ; attempt++ {
		order, err = s.create(ctx, input, categoryID, date)
		if !errors.Is(err, errGeneratedIDTaken) || attempt == generatedIDAttempts {
			break
		}
	}
	if errors.Is(err, errGeneratedIDTaken) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "generated order id collided with a concurrent create")
	}
	return order, err
}

// create runs one insert attempt. A unique violation on a generated id comes
// back as errGeneratedIDTaken and the whole transaction, stock deduction
// included, is rolled back before Create tries again.
func (s *service) create(ctx context.Context, input CreateOrderInput, categoryID string, date time.Time) (order *models.Order, err error) {
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		part, err := s.stock.AdjustQuantity(ctx, tx, categoryID, -input.Quantity)
		if err != nil {
			return err
		}

		orderID := normalizeID(input.OrderID)
		generatedID := orderID == ""
		if generatedID {
			generated, err := nextOrderID(ctx, repo)
			if err != nil {
				return err
			}
			orderID = generated
		}

		candidate := &models.Order{
			OrderID:    orderID,
			CategoryID: part.CategoryID,
			PartName:   part.Name,
			Date:       date,
			Quantity:   input.Quantity,
			Status:     enums.OrderStatusPending,
		}
		if err := repo.Create(ctx, candidate); err != nil {
			if db.IsUniqueViolation(err, "ux_orders_order_id") {
				if generatedID {
					return errGeneratedIDTaken
				}
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("order %s already exists", orderID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if _, err := s.ledger.AppendTx(ctx, tx, activity.AppendInput{
			PartName:   candidate.PartName,
			CategoryID: candidate.CategoryID,
			ActionType: enums.ActivityActionCreateOrder,
			Details:    fmt.Sprintf("Created order %s for %d units (Status: %s)", candidate.OrderID, candidate.Quantity, candidate.Status),
			UserID:     input.ActorID,
			OrderID:    &candidate.OrderID,
		}); err != nil {
			return err
		}

		if err := s.emitStatusChange(ctx, tx, candidate, "", false, input.ActorID); err != nil {
			return err
		}
		order = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Update(ctx context.Context, orderID string, input UpdateOrderInput) (order *models.Order, err error) {
	defer s.observe("update", time.Now(), &err)

	orderID = normalizeID(orderID)
	if orderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.Quantity != nil && *input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be greater than zero")
	}
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", *input.Status))
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByOrderIDForUpdate(ctx, orderID)
		if err != nil {
			return mapFindError(err, orderID)
		}
		before := *current

		next := *current
		if v := trimmedUpper(input.CategoryID); v != "" {
			next.CategoryID = v
		}
		if input.Quantity != nil {
			next.Quantity = *input.Quantity
		}
		if input.Date != nil && !input.Date.IsZero() {
			next.Date = calendarDate(*input.Date)
		}
		if input.Status != nil {
			next.Status = *input.Status
		}

		if !CanTransition(before.Status, next.Status) {
			return transitionError(orderID, before.Status, next.Status)
		}

		if err := s.reconcileStock(ctx, tx, before, &next); err != nil {
			return err
		}

		if err := repo.Save(ctx, &next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}

		if _, err := s.ledger.AppendTx(ctx, tx, activity.AppendInput{
			PartName:   next.PartName,
			CategoryID: next.CategoryID,
			ActionType: enums.ActivityActionUpdateOrder,
			Details:    describeUpdate(before, next),
			UserID:     input.ActorID,
			OrderID:    &next.OrderID,
		}); err != nil {
			return err
		}

		if next.Status != before.Status {
			if err := s.emitStatusChange(ctx, tx, &next, before.Status, false, input.ActorID); err != nil {
				return err
			}
		}
		order = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Delete(ctx context.Context, orderID string, actorID int64) (err error) {
	defer s.observe("delete", time.Now(), &err)

	orderID = normalizeID(orderID)
	if orderID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByOrderIDForUpdate(ctx, orderID)
		if err != nil {
			return mapFindError(err, orderID)
		}

		if reserved := current.ReservedQuantity(); reserved > 0 {
			if _, err := s.stock.AdjustQuantity(ctx, tx, current.CategoryID, reserved); err != nil {
				return err
			}
		}

		if err := repo.Delete(ctx, orderID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}

		if _, err := s.ledger.AppendTx(ctx, tx, activity.AppendInput{
			PartName:   current.PartName,
			CategoryID: current.CategoryID,
			ActionType: enums.ActivityActionDeleted,
			Details:    fmt.Sprintf("Deleted order %s", current.OrderID),
			UserID:     actorID,
			OrderID:    &current.OrderID,
		}); err != nil {
			return err
		}

		return s.emitStatusChange(ctx, tx, current, current.Status, true, actorID)
	})
}

// reconcileStock restores what the order held and takes what it holds now. On
// the same part both steps collapse into one adjustment of old minus new.
// next.PartName is refreshed when the part changes.
func (s *service) reconcileStock(ctx context.Context, tx *gorm.DB, before models.Order, next *models.Order) error {
	oldReserved := before.ReservedQuantity()
	newReserved := next.ReservedQuantity()

	if before.CategoryID == next.CategoryID {
		if delta := oldReserved - newReserved; delta != 0 {
			if _, err := s.stock.AdjustQuantity(ctx, tx, next.CategoryID, delta); err != nil {
				return err
			}
		}
		return nil
	}

	if oldReserved > 0 {
		if _, err := s.stock.AdjustQuantity(ctx, tx, before.CategoryID, oldReserved); err != nil {
			return err
		}
	}
	part, err := s.stock.AdjustQuantity(ctx, tx, next.CategoryID, -newReserved)
	if err != nil {
		return err
	}
	next.PartName = part.Name
	return nil
}

func (s *service) emitStatusChange(ctx context.Context, tx *gorm.DB, order *models.Order, previous enums.OrderStatus, deleted bool, actorID int64) error {
	data := payloads.OrderStatusChangedEvent{
		OrderID:        order.OrderID,
		CategoryID:     order.CategoryID,
		Quantity:       order.Quantity,
		PreviousStatus: previous,
		Status:         order.Status,
		Deleted:        deleted,
	}
	if deleted {
		data.Status = ""
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:   enums.EventOrderStatusChanged,
		AggregateID: order.OrderID,
		Actor:       outbox.ActorFor(actorID),
		Data:        data,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order event")
	}
	return nil
}

func (s *service) observe(operation string, started time.Time, err *error) {
	s.metrics.ObserveMutation(metricEntity, operation, metrics.OutcomeOf(*err), time.Since(started))
}

func nextOrderID(ctx context.Context, repo Repository) (string, error) {
	existing, err := repo.ListOrderIDsWithPrefix(ctx, orderIDPrefix)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order ids")
	}
	return idgen.Next(orderIDPrefix, existing), nil
}

func describeUpdate(before, after models.Order) string {
	var changes []string
	if before.CategoryID != after.CategoryID {
		changes = append(changes, fmt.Sprintf("part %s -> %s", before.CategoryID, after.CategoryID))
	}
	if before.Quantity != after.Quantity {
		changes = append(changes, fmt.Sprintf("quantity %d -> %d", before.Quantity, after.Quantity))
	}
	if !before.Date.Equal(after.Date) {
		changes = append(changes, fmt.Sprintf("date %s -> %s", before.Date.Format(dateLayout), after.Date.Format(dateLayout)))
	}
	if before.Status != after.Status {
		changes = append(changes, fmt.Sprintf("status %s -> %s", before.Status, after.Status))
	}
	if len(changes) == 0 {
		return fmt.Sprintf("Updated order %s", after.OrderID)
	}
	return fmt.Sprintf("Updated order %s (%s)", after.OrderID, strings.Join(changes, ", "))
}

func calendarDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func mapFindError(err error, orderID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("order %s not found", orderID))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}

func normalizeID(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func trimmedUpper(value *string) string {
	if value == nil {
		return ""
	}
	return normalizeID(*value)
}
