package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/hwinventory-backend/pkg/errors"
)

// Service records and lists activity log entries.
type Service interface {
	Append(ctx context.Context, input AppendInput) (*models.ActivityLog, error)
	AppendTx(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.ActivityLog, error)
	List(ctx context.Context, filter Filter) ([]models.ActivityLog, error)
}

// AppendInput captures the immutable data an activity entry requires.
type AppendInput struct {
	PartName   string
	CategoryID string
	ActionType enums.ActivityAction
	Details    string
	UserID     int64
	OrderID    *string
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires an activity service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("activity repository required")
	}
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Append(ctx context.Context, input AppendInput) (*models.ActivityLog, error) {
	return s.append(ctx, s.repo, input)
}

// AppendTx writes the entry inside the caller's transaction so it commits or
// rolls back together with the mutation it describes.
func (s *service) AppendTx(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.ActivityLog, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	return s.append(ctx, s.repo.WithTx(tx), input)
}

func (s *service) append(ctx context.Context, repo Repository, input AppendInput) (*models.ActivityLog, error) {
	if err := validateAppend(input); err != nil {
		return nil, err
	}

	entry := &models.ActivityLog{
		ActivityID: uuid.NewString(),
		PartName:   strings.TrimSpace(input.PartName),
		CategoryID: strings.TrimSpace(input.CategoryID),
		ActionType: input.ActionType,
		Details:    input.Details,
		UserID:     input.UserID,
		OrderID:    normalizeOrderID(input.OrderID),
		CreatedAt:  s.now(),
	}

	if err := repo.Create(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append activity log")
	}
	return entry, nil
}

func (s *service) List(ctx context.Context, filter Filter) ([]models.ActivityLog, error) {
	if filter.Action != "" && !filter.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid action type %q", filter.Action))
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && startOfDay(filter.To).Before(startOfDay(filter.From)) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "to date must not be before from date")
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity logs")
	}
	return entries, nil
}

func validateAppend(input AppendInput) error {
	if strings.TrimSpace(input.PartName) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "part name is required")
	}
	if strings.TrimSpace(input.CategoryID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	if !input.ActionType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid action type %q", input.ActionType))
	}
	return nil
}

func normalizeOrderID(orderID *string) *string {
	if orderID == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*orderID)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
