package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/hwinventory-backend/pkg/config"
	"github.com/angelmondragon/hwinventory-backend/pkg/logger"
)

// Pinger is satisfied by anything a readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Client is the single gorm handle shared by the part, order, activity and
// outbox repositories.
type Client struct {
	conn *gorm.DB
}

// New connects with the driver named by HWINV_DB_DRIVER. Postgres goes through
// pgx in simple protocol mode; anything else is treated as a sqlite file.
func New(ctx context.Context, cfg config.DBConfig, logg *logger.Logger) (*Client, error) {
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	var dialector gorm.Dialector
	if cfg.IsSQLite() {
		dialector = sqlite.Open(cfg.DSN)
	} else {
		dialector = postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
	}
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newQueryLogger(logg, cfg.SlowQueryThreshold),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Driver, err)
	}

	raw, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	configurePool(raw, cfg)

	if logg != nil {
		logg.Info(logg.WithField(ctx, "driver", cfg.Driver), "database connected")
	}
	return &Client{conn: conn}, nil
}

func configurePool(raw *sql.DB, cfg config.DBConfig) {
	if cfg.IsSQLite() {
		// sqlite allows one writer; a wider pool only trades latency for SQLITE_BUSY
		raw.SetMaxOpenConns(1)
		return
	}
	if cfg.MaxOpenConns > 0 {
		raw.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		raw.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	raw.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	raw.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

// FromGorm wraps a connection opened elsewhere, e.g. by dbtest.
func FromGorm(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func (c *Client) DB() *gorm.DB { return c.conn }

func (c *Client) Ping(ctx context.Context) error {
	raw, err := c.conn.DB()
	if err != nil {
		return err
	}
	return raw.PingContext(ctx)
}

func (c *Client) Close() error {
	raw, err := c.conn.DB()
	if err != nil {
		return err
	}
	return raw.Close()
}

// WithTx commits fn's writes together. A returned error or a panic inside fn
// rolls every one of them back.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
