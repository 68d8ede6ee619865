package activity

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
)

// Filter narrows an activity listing. Zero values leave a dimension unfiltered.
type Filter struct {
	From       time.Time
	To         time.Time
	Action     enums.ActivityAction
	CategoryID string
	OrderID    string
	Limit      int
}

// Repository manages persistence for activity log entries. There is no update or delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.ActivityLog) error
	List(ctx context.Context, filter Filter) ([]models.ActivityLog, error)
	Count(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an activity repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) List(ctx context.Context, filter Filter) ([]models.ActivityLog, error) {
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{})

	if !filter.From.IsZero() {
		query = query.Where("created_at >= ?", startOfDay(filter.From))
	}
	if !filter.To.IsZero() {
		query = query.Where("created_at < ?", startOfDay(filter.To).AddDate(0, 0, 1))
	}
	if filter.Action != "" {
		query = query.Where("action_type = ?", filter.Action)
	}
	if filter.CategoryID != "" {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.OrderID != "" {
		query = query.Where("order_id = ?", filter.OrderID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []models.ActivityLog
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Count(&count).Error
	return count, err
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
