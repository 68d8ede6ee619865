package orders

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
)

// Repository defines persistence operations for the orders table.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.Order, error)
	FindByOrderID(ctx context.Context, orderID string) (*models.Order, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	Save(ctx context.Context, order *models.Order) error
	Delete(ctx context.Context, orderID string) error
	ListOrderIDsWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Order("order_date DESC").
		Order("id DESC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindByOrderID(ctx context.Context, orderID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByOrderIDForUpdate(ctx context.Context, orderID string) (*models.Order, error) {
	query := r.db.WithContext(ctx).Where("order_id = ?", orderID)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var order models.Order
	if err := query.First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *repository) Delete(ctx context.Context, orderID string) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.Order{}).Error
}

func (r *repository) ListOrderIDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("order_id LIKE ?", prefix+"%").
		Pluck("order_id", &ids).Error
	return ids, err
}
