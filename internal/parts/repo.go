package parts

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
	"github.com/angelmondragon/hwinventory-backend/pkg/enums"
)

// Repository persists parts and the counters the service needs around them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.Part, error)
	FindByCategoryID(ctx context.Context, categoryID string) (*models.Part, error)
	FindByCategoryIDForUpdate(ctx context.Context, categoryID string) (*models.Part, error)
	Create(ctx context.Context, part *models.Part) error
	Save(ctx context.Context, part *models.Part) error
	Delete(ctx context.Context, categoryID string) error
	AdjustQuantity(ctx context.Context, categoryID string, delta int) (int64, error)
	UpdateStatus(ctx context.Context, categoryID string, status enums.StockStatus) error
	CountOrders(ctx context.Context, categoryID string) (int64, error)
	ListCategoryIDsWithPrefix(ctx context.Context, prefix string) ([]string, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a part repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.Part, error) {
	var parts []models.Part
	if err := r.db.WithContext(ctx).
		Order("category_id ASC").
		Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

func (r *repository) FindByCategoryID(ctx context.Context, categoryID string) (*models.Part, error) {
	var part models.Part
	if err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		First(&part).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

// FindByCategoryIDForUpdate locks the row for the rest of the transaction on
// Postgres. SQLite serialises writers on its own and has no row locks.
func (r *repository) FindByCategoryIDForUpdate(ctx context.Context, categoryID string) (*models.Part, error) {
	query := r.db.WithContext(ctx).Where("category_id = ?", categoryID)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var part models.Part
	if err := query.First(&part).Error; err != nil {
		return nil, err
	}
	return &part, nil
}

func (r *repository) Create(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Create(part).Error
}

func (r *repository) Save(ctx context.Context, part *models.Part) error {
	return r.db.WithContext(ctx).Save(part).Error
}

func (r *repository) Delete(ctx context.Context, categoryID string) error {
	return r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Delete(&models.Part{}).Error
}

// AdjustQuantity applies delta in a single guarded statement and reports how many
// rows changed. Zero rows means the part is missing or the result would go negative.
func (r *repository) AdjustQuantity(ctx context.Context, categoryID string, delta int) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("category_id = ? AND quantity + ? >= 0", categoryID, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	return res.RowsAffected, res.Error
}

func (r *repository) UpdateStatus(ctx context.Context, categoryID string, status enums.StockStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("category_id = ?", categoryID).
		Update("status", status).Error
}

func (r *repository) CountOrders(ctx context.Context, categoryID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

func (r *repository) ListCategoryIDsWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.Part{}).
		Where("category_id LIKE ?", prefix+"%").
		Pluck("category_id", &ids).Error
	return ids, err
}
