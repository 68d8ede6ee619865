package outbox

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/hwinventory-backend/pkg/db/models"
)

// maxErrorLen caps last_error so one verbose publisher error cannot bloat a row.
const maxErrorLen = 1024

var errTxRequired = errors.New("outbox: transaction required")

// Repository reads and updates outbox rows. Every write takes the caller's
// transaction so it commits with the part or order change it describes.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Create(&event).Error
}

// pending limits a query to rows that are unpublished and not yet parked.
func pending(maxAttempts int) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		q = q.Where("published_at IS NULL")
		if maxAttempts > 0 {
			q = q.Where("attempt_count < ?", maxAttempts)
		}
		return q
	}
}

// FetchUnpublishedForPublish returns up to limit pending rows, oldest first.
// Postgres row locks are taken with SKIP LOCKED so parallel relays split the
// backlog instead of double publishing.
func (r *Repository) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	if tx == nil {
		return nil, errTxRequired
	}
	q := tx.Scopes(pending(maxAttempts)).Order("created_at ASC, id ASC").Limit(limit)
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}
	var rows []models.OutboxEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Repository) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	return r.update(tx, id, map[string]any{"published_at": time.Now().UTC()})
}

// MarkFailedTx records err and spends one attempt.
func (r *Repository) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	return r.update(tx, id, map[string]any{
		"last_error":    truncateError(err),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	})
}

// MarkTerminalTx jumps the attempt count to the ceiling, which parks the row.
func (r *Repository) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	return r.update(tx, id, map[string]any{
		"last_error":    truncateError(err),
		"attempt_count": terminalAttempts,
	})
}

func (r *Repository) update(tx *gorm.DB, id uuid.UUID, fields map[string]any) error {
	if tx == nil {
		return errTxRequired
	}
	return tx.Model(&models.OutboxEvent{}).Where("id = ?", id).Updates(fields).Error
}

// CountPending runs outside a transaction when tx is nil.
func (r *Repository) CountPending(tx *gorm.DB, maxAttempts int) (int64, error) {
	conn := tx
	if conn == nil {
		conn = r.db
	}
	var n int64
	err := conn.Model(&models.OutboxEvent{}).Scopes(pending(maxAttempts)).Count(&n).Error
	return n, err
}

// DeletePublishedBefore removes rows delivered before cutoff. Parked rows stay
// until someone looks at them.
func (r *Repository) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error) {
	if tx == nil {
		return 0, errTxRequired
	}
	res := tx.Where("published_at IS NOT NULL AND published_at < ?", cutoff).Delete(&models.OutboxEvent{})
	return res.RowsAffected, res.Error
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) <= maxErrorLen {
		return msg
	}
	msg = msg[:maxErrorLen]
	for !utf8.ValidString(msg) {
		msg = msg[:len(msg)-1]
	}
	return msg
}
