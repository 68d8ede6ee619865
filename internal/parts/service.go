package parts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/internal/activity"
	"github.com/angelmondragon/hwinventory-backend/internal/stock"
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
	detailsPartAdded   = "Added new part to inventory"
	detailsPartUpdated = "Updated part details"
	detailsPartDeleted = "Deleted part from inventory"

	metricEntity = "part"
)

// generatedIDAttempts bounds how often Create re-allocates a generated id that a
// concurrent create claimed first.
const generatedIDAttempts = 2

var errGeneratedIDTaken = errors.New("generated category id already taken")

// Service exposes part catalogue and stock operations.
type Service interface {
	StockAdjuster
	List(ctx context.Context) ([]models.Part, error)
	Get(ctx context.Context, categoryID string) (*models.Part, error)
	Create(ctx context.Context, input CreatePartInput) (*models.Part, error)
	Update(ctx context.Context, categoryID string, input UpdatePartInput) (*models.Part, error)
	Delete(ctx context.Context, categoryID string, actorID int64) error
	NextCategoryID(ctx context.Context, category enums.PartCategory) (string, error)
	ReconcileStatuses(ctx context.Context) ([]string, error)
}

// StockAdjuster moves a part's quantity inside an existing transaction.
type StockAdjuster interface {
	AdjustQuantity(ctx context.Context, tx *gorm.DB, categoryID string, delta int) (*models.Part, error)
}

// CreatePartInput holds the validated payload to add a part.
type CreatePartInput struct {
	CategoryID     string
	Name           string
	Brand          string
	Category       enums.PartCategory
	Price          decimal.Decimal
	Quantity       int
	AlertThreshold int
	Status         enums.StockStatus
	ActorID        int64
}

// UpdatePartInput holds optional mutation values for a part. Nil pointers and
// blank strings keep the stored value.
type UpdatePartInput struct {
	Name           *string
	Brand          *string
	Category       *enums.PartCategory
	Price          *decimal.Decimal
	Quantity       *int
	AlertThreshold *int
	Status         *enums.StockStatus
	ActorID        int64
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
	ledger  activityRecorder
	outbox  outboxPublisher
	metrics *metrics.InventoryMetrics
}

// NewService wires the part service. metrics may be nil.
func NewService(repo Repository, tx txRunner, ledger activityRecorder, events outboxPublisher, m *metrics.InventoryMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("part repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
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
		ledger:  ledger,
		outbox:  events,
		metrics: m,
	}, nil
}

func (s *service) List(ctx context.Context) ([]models.Part, error) {
	parts, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
	}
	return parts, nil
}

func (s *service) Get(ctx context.Context, categoryID string) (*models.Part, error) {
	categoryID = normalizeCategoryID(categoryID)
	if categoryID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	part, err := s.repo.FindByCategoryID(ctx, categoryID)
	if err != nil {
		return nil, mapFindError(err, categoryID)
	}
	return part, nil
}

func (s *service) Create(ctx context.Context, input CreatePartInput) (part *models.Part, err error) {
	defer s.observe("create", time.Now(), &err)

	if err := validateCreate(input); err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		part, err = s.create(ctx, input)
		if !errors.Is(err, errGeneratedIDTaken) || attempt == generatedIDAttempts {
			break
		}
	}
	if errors.Is(err, errGeneratedIDTaken) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "generated category id collided with a concurrent create")
	}
	return part, err
}

// create runs one insert attempt. A unique violation on a generated id comes
// back as errGeneratedIDTaken so Create can allocate again in a fresh transaction.
func (s *service) create(ctx context.Context, input CreatePartInput) (part *models.Part, err error) {
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		categoryID := normalizeCategoryID(input.CategoryID)
		generatedID := categoryID == ""
		if generatedID {
			generated, err := nextCategoryID(ctx, repo, input.Category)
			if err != nil {
				return err
			}
			categoryID = generated
		}

		manual := enums.StockStatus("")
		if input.Status == enums.StockStatusDiscontinued {
			manual = enums.StockStatusDiscontinued
		}

		candidate := &models.Part{
			CategoryID:     categoryID,
			Name:           strings.TrimSpace(input.Name),
			Brand:          strings.TrimSpace(input.Brand),
			Category:       input.Category,
			Price:          input.Price,
			Quantity:       input.Quantity,
			AlertThreshold: input.AlertThreshold,
			Status:         stock.Classify(input.Quantity, input.AlertThreshold, manual),
		}
		if err := repo.Create(ctx, candidate); err != nil {
			if db.IsUniqueViolation(err, "ux_parts_category_id") {
				if generatedID {
					return errGeneratedIDTaken
				}
				return pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("part %s already exists", categoryID))
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create part")
		}

		if _, err := s.ledger.AppendTx(ctx, tx, activity.AppendInput{
			PartName:   candidate.Name,
			CategoryID: candidate.CategoryID,
			ActionType: enums.ActivityActionAddition,
			Details:    detailsPartAdded,
			UserID:     input.ActorID,
		}); err != nil {
			return err
		}

		if err := s.emitStatusChange(ctx, tx, candidate, "", input.ActorID); err != nil {
			return err
		}
		part = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

func (s *service) Update(ctx context.Context, categoryID string, input UpdatePartInput) (part *models.Part, err error) {
	defer s.observe("update", time.Now(), &err)

	categoryID = normalizeCategoryID(categoryID)
	if categoryID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByCategoryIDForUpdate(ctx, categoryID)
		if err != nil {
			return mapFindError(err, categoryID)
		}
		previous := current.Status

		applyUpdate(current, input)

		if err := repo.Save(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update part")
		}

		if _, err := s.ledger.AppendTx(ctx, tx, activity.AppendInput{
			PartName:   current.Name,
			CategoryID: current.CategoryID,
			ActionType: enums.ActivityActionUpdate,
			Details:    detailsPartUpdated,
			UserID:     input.ActorID,
		}); err != nil {
			return err
		}

		if current.Status != previous {
			if err := s.emitStatusChange(ctx, tx, current, previous, input.ActorID); err != nil {
				return err
			}
		}
		part = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

func (s *service) Delete(ctx context.Context, categoryID string, actorID int64) (err error) {
	defer s.observe("delete", time.Now(), &err)

	categoryID = normalizeCategoryID(categoryID)
	if categoryID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		current, err := repo.FindByCategoryIDForUpdate(ctx, categoryID)
		if err != nil {
			return mapFindError(err, categoryID)
		}

		orders, err := repo.CountOrders(ctx, categoryID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count part orders")
		}
		if orders > 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("part %s is referenced by %d order(s)", categoryID, orders)).
				WithDetails(map[string]any{"category_id": categoryID, "orders": orders})
		}

		if _, err := s.ledger.AppendTx(ctx, tx, activity.AppendInput{
			PartName:   current.Name,
			CategoryID: current.CategoryID,
			ActionType: enums.ActivityActionDeletion,
			Details:    detailsPartDeleted,
			UserID:     actorID,
		}); err != nil {
			return err
		}

		if err := repo.Delete(ctx, categoryID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete part")
		}
		return nil
	})
}

func (s *service) NextCategoryID(ctx context.Context, category enums.PartCategory) (string, error) {
	if !category.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", category))
	}
	return nextCategoryID(ctx, s.repo, category)
}

// AdjustQuantity applies delta to the part's quantity within tx, reclassifies it
// and records a status change event when the label moves. It never writes an
// activity entry; callers log the operation that caused the adjustment.
func (s *service) AdjustQuantity(ctx context.Context, tx *gorm.DB, categoryID string, delta int) (*models.Part, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	categoryID = normalizeCategoryID(categoryID)
	repo := s.repo.WithTx(tx)

	if delta != 0 {
		affected, err := repo.AdjustQuantity(ctx, categoryID, delta)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "adjust part quantity")
		}
		if affected == 0 {
			current, err := repo.FindByCategoryID(ctx, categoryID)
			if err != nil {
				return nil, mapFindError(err, categoryID)
			}
			return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("only %d unit(s) of %s available", current.Quantity, categoryID)).
				WithDetails(map[string]any{
					"category_id": categoryID,
					"available":   current.Quantity,
					"requested":   -delta,
				})
		}
	}

	part, err := repo.FindByCategoryID(ctx, categoryID)
	if err != nil {
		return nil, mapFindError(err, categoryID)
	}

	previous := part.Status
	next := stock.ForPart(part)
	if next == previous {
		return part, nil
	}
	if err := repo.UpdateStatus(ctx, categoryID, next); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update part status")
	}
	part.Status = next
	if err := s.emitStatusChange(ctx, tx, part, previous, 0); err != nil {
		return nil, err
	}
	return part, nil
}

// ReconcileStatuses re-derives every stored status label and repairs rows that
// drifted, emitting the usual status change event for each. It returns the ids
// that were corrected.
func (s *service) ReconcileStatuses(ctx context.Context) (corrected []string, err error) {
	defer s.observe("reconcile", time.Now(), &err)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		parts, err := repo.List(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list parts")
		}
		for i := range parts {
			part := &parts[i]
			previous := part.Status
			next := stock.ForPart(part)
			if next == previous {
				continue
			}
			if err := repo.UpdateStatus(ctx, part.CategoryID, next); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update part status")
			}
			part.Status = next
			if err := s.emitStatusChange(ctx, tx, part, previous, 0); err != nil {
				return err
			}
			corrected = append(corrected, part.CategoryID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return corrected, nil
}

func (s *service) emitStatusChange(ctx context.Context, tx *gorm.DB, part *models.Part, previous enums.StockStatus, actorID int64) error {
	event := outbox.DomainEvent{
		EventType:   enums.EventPartStockStatusChanged,
		AggregateID: part.CategoryID,
		Actor:       outbox.ActorFor(actorID),
		Data: payloads.PartStockStatusChangedEvent{
			CategoryID:     part.CategoryID,
			PartName:       part.Name,
			PreviousStatus: previous,
			Status:         part.Status,
			Quantity:       part.Quantity,
			AlertThreshold: part.AlertThreshold,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock status event")
	}
	s.metrics.IncStatusTransition(string(part.Status))
	return nil
}

func (s *service) observe(operation string, started time.Time, err *error) {
	s.metrics.ObserveMutation(metricEntity, operation, metrics.OutcomeOf(*err), time.Since(started))
}

func nextCategoryID(ctx context.Context, repo Repository, category enums.PartCategory) (string, error) {
	prefix := category.Prefix()
	existing, err := repo.ListCategoryIDsWithPrefix(ctx, prefix)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list category ids")
	}
	return idgen.Next(prefix, existing), nil
}

func applyUpdate(part *models.Part, input UpdatePartInput) {
	if v := trimmed(input.Name); v != "" {
		part.Name = v
	}
	if v := trimmed(input.Brand); v != "" {
		part.Brand = v
	}
	if input.Category != nil && *input.Category != "" {
		part.Category = *input.Category
	}
	if input.Price != nil {
		part.Price = *input.Price
	}
	if input.Quantity != nil {
		part.Quantity = *input.Quantity
	}
	if input.AlertThreshold != nil {
		part.AlertThreshold = *input.AlertThreshold
	}

	switch {
	case input.Status == nil || *input.Status == "":
		part.Status = stock.ForPart(part)
	case *input.Status == enums.StockStatusDiscontinued:
		part.Status = enums.StockStatusDiscontinued
	default:
		part.Status = stock.Classify(part.Quantity, part.AlertThreshold, "")
	}
}

func validateCreate(input CreatePartInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(input.Brand) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "brand is required")
	}
	if !input.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", input.Category))
	}
	if input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if input.AlertThreshold < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "alert threshold must be non-negative")
	}
	if input.Status != "" && !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", input.Status))
	}
	return nil
}

func validateUpdate(input UpdatePartInput) error {
	if input.Category != nil && *input.Category != "" && !input.Category.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid category %q", *input.Category))
	}
	if input.Price != nil && input.Price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative")
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if input.AlertThreshold != nil && *input.AlertThreshold < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "alert threshold must be non-negative")
	}
	if input.Status != nil && *input.Status != "" && !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *input.Status))
	}
	return nil
}

func mapFindError(err error, categoryID string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("part %s not found", categoryID))
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load part")
}

func normalizeCategoryID(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

func trimmed(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
