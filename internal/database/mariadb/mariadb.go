// Package mariadb stores registered faces in MariaDB/MySQL as JSON text.
package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"github.com/suzWaks/frs-fyp-mobileApp/internal/config"
	"github.com/suzWaks/frs-fyp-mobileApp/internal/database"
)

// BackendName is the name the backend registers under.
const BackendName = "mariadb"

// Pool manages a MariaDB connection pool.
type Pool struct {
	db     *sql.DB
	logger logrus.FieldLogger
}

// NewPool creates a new MariaDB connection pool. Timestamps are always parsed
// into time.Time regardless of the DSN.
func NewPool(cfg *config.DatabaseConfig, logger logrus.FieldLogger) (*Pool, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, errors.New("MariaDB DSN is required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	dsn, err := mysql.ParseDSN(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid MariaDB DSN: %w", err)
	}
	dsn.ParseTime = true

	db, err := sql.Open("mysql", dsn.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MariaDB: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MariaDB: %w", err)
	}

	return &Pool{db: db, logger: logger.WithField("backend", BackendName)}, nil
}

// DB returns the underlying sql.DB for direct access.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// EnsureSchema creates the face_data table if it does not exist yet.
func (p *Pool) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS face_data (
			id CHAR(36) NOT NULL PRIMARY KEY,
			student_id VARCHAR(64) NOT NULL,
			student_name TEXT NOT NULL,
			embedding LONGTEXT NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			UNIQUE KEY face_data_student_id_key (student_id),
			KEY face_data_created_idx (created_at, id)
		) DEFAULT CHARSET = utf8mb4
	`)
	if err != nil {
		return fmt.Errorf("create face_data table: %w", err)
	}
	p.logger.Debug("face_data schema ready")
	return nil
}

// Initialize connects, ensures the schema and registers the face repository
// as the active storage backend. The caller owns the returned pool.
func Initialize(cfg *config.DatabaseConfig, logger logrus.FieldLogger) (*Pool, error) {
	pool, err := NewPool(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create MariaDB pool: %w", err)
	}

	if err := pool.EnsureSchema(context.Background()); err != nil {
		pool.Close()
		return nil, err
	}

	database.RegisterBackend(BackendName, NewFaceRepository(pool))
	return pool, nil
}
