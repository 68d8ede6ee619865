package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

const defaultOutboxRetention = 30 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPurger interface {
	DeletePublishedBefore(tx *gorm.DB, cutoff time.Time) (int64, error)
}

// outboxRetention deletes relayed outbox rows older than retention. Rows that
// were never published are kept whatever their age.
type outboxRetention struct {
	logg      *logger.Logger
	db        txRunner
	purger    outboxPurger
	retention time.Duration
	now       func() time.Time
}

func NewOutboxRetentionJob(logg *logger.Logger, db txRunner, purger outboxPurger, retention time.Duration) (Job, error) {
	if logg == nil || db == nil || purger == nil {
		return nil, errors.New("outbox retention needs a logger, a db and an outbox repository")
	}
	if retention <= 0 {
		retention = defaultOutboxRetention
	}
	return &outboxRetention{logg: logg, db: db, purger: purger, retention: retention, now: time.Now}, nil
}

func (j *outboxRetention) Name() string { return "outbox-retention" }

func (j *outboxRetention) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	var purged int64
	if err := j.db.WithTx(ctx, func(tx *gorm.DB) (err error) {
		purged, err = j.purger.DeletePublishedBefore(tx, cutoff)
		return err
	}); err != nil {
		return fmt.Errorf("purge outbox before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	if purged > 0 {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{"cutoff": cutoff, "purged": purged}), "published outbox rows purged")
	}
	return nil
}
