package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/idrisskacou/Log-Store-2-DB/config"
	"github.com/idrisskacou/Log-Store-2-DB/models"

	"github.com/rs/zerolog/log"
)

const pingTimeout = 10 * time.Second

// Store persists log records into the logs table.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// NewStore wraps an already opened database handle.
func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open connects to the database described by cfg and verifies the connection.
// The returned Store keeps a pooled handle for its whole lifetime.
func Open(cfg *config.Config) (*Store, error) {
	dialect, err := DialectFor(cfg.DBDriver)
	if err != nil {
		return nil, err
	}

	driverName := dialect.DriverName
	if cfg.DBDebug {
		if driverName, err = debugDriverName(dialect); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(driverName, dialect.DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("db open %s: %w", dialect.Name, err)
	}
	if dialect.SingleConn {
		db.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping %s: %w", dialect.Name, err)
	}

	log.Info().Str("driver", dialect.Name).Str("database", cfg.DBName).Msg("Connected to database")
	return NewStore(db, dialect), nil
}

// InitializeSchema creates the logs table if it does not exist yet.
func (s *Store) InitializeSchema(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("db create logs table: %w", err)
		}
	}
	log.Info().Msg("Logs table created or already exists")
	return nil
}

// InsertRecord stores a single record in its own transaction:
// one parameterized insert followed by one commit.
func (s *Store) InsertRecord(ctx context.Context, record models.LogRecord) error {
	ts, err := record.Time()
	if err != nil {
		return fmt.Errorf("db insert: timestamp %q: %w", record.Timestamp, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db insert begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, s.dialect.InsertSQL,
		ts.UTC(),
		record.Status,
		record.NumberOfRequest,
		record.StatusDescription,
	); err != nil {
		return fmt.Errorf("db insert exec: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db insert commit: %w", err)
	}
	return nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
