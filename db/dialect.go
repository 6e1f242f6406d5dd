package db

import (
	"database/sql/driver"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/idrisskacou/Log-Store-2-DB/config"

	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/mattn/go-sqlite3"
)

// Dialect holds the per-database SQL for the logs table.
type Dialect struct {
	Name       string
	DriverName string   // name registered with database/sql
	Schema     []string // idempotent DDL, executed in order
	InsertSQL  string   // params: timestamp, status, number_of_request, status_description
	SingleConn bool     // limit the pool to one connection

	dsn    func(cfg *config.Config) string
	driver func() driver.Driver // nil when the driver cannot be wrapped with hooks
}

// DSN builds the connection string for cfg.
func (d Dialect) DSN(cfg *config.Config) string {
	return d.dsn(cfg)
}

var (
	// Postgres is the default store.
	Postgres = Dialect{
		Name:       config.DriverPostgres,
		DriverName: "pgx",
		Schema: []string{`
	CREATE TABLE IF NOT EXISTS logs (
	    id SERIAL PRIMARY KEY,
	    timestamp TIMESTAMP,
	    status INT,
	    number_of_request INT,
	    status_description TEXT
	)`},
		InsertSQL: `
	INSERT INTO logs (timestamp, status, number_of_request, status_description)
	VALUES ($1, $2, $3, $4)`,
		dsn:    postgresDSN,
		driver: stdlib.GetDefaultDriver,
	}

	SQLite = Dialect{
		Name:       config.DriverSQLite,
		DriverName: "sqlite3",
		Schema: []string{`
	CREATE TABLE IF NOT EXISTS logs (
	    id INTEGER PRIMARY KEY AUTOINCREMENT,
	    timestamp DATETIME,
	    status INTEGER,
	    number_of_request INTEGER,
	    status_description TEXT
	)`},
		InsertSQL: `
	INSERT INTO logs (timestamp, status, number_of_request, status_description)
	VALUES (?, ?, ?, ?)`,
		SingleConn: true,
		dsn: func(cfg *config.Config) string {
			return cfg.DBName + "?_journal_mode=WAL&_busy_timeout=5000"
		},
		driver: func() driver.Driver { return &sqlite3.SQLiteDriver{} },
	}

	// DuckDB has no AUTOINCREMENT; ids come from a sequence.
	DuckDB = Dialect{
		Name:       config.DriverDuckDB,
		DriverName: "duckdb",
		Schema: []string{
			`CREATE SEQUENCE IF NOT EXISTS logs_id_seq START 1`,
			`
	CREATE TABLE IF NOT EXISTS logs (
	    id BIGINT PRIMARY KEY DEFAULT nextval('logs_id_seq'),
	    timestamp TIMESTAMPTZ,
	    status INTEGER,
	    number_of_request INTEGER,
	    status_description VARCHAR
	)`,
		},
		InsertSQL: `
	INSERT INTO logs (timestamp, status, number_of_request, status_description)
	VALUES (?, ?, ?, ?)`,
		SingleConn: true,
		dsn: func(cfg *config.Config) string {
			return cfg.DBName
		},
	}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case config.DriverPostgres:
		return Postgres, nil
	case config.DriverSQLite:
		return SQLite, nil
	case config.DriverDuckDB:
		return DuckDB, nil
	default:
		return Dialect{}, fmt.Errorf("db: unsupported driver %q", name)
	}
}

// postgresDSN renders cfg as a postgres:// URL understood by pgx.
func postgresDSN(cfg *config.Config) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(cfg.DBHost, strconv.Itoa(cfg.DBPort)),
		Path:   "/" + cfg.DBName,
	}
	if cfg.DBUser != "" {
		if cfg.DBPassword != "" {
			u.User = url.UserPassword(cfg.DBUser, cfg.DBPassword)
		} else {
			u.User = url.User(cfg.DBUser)
		}
	}
	if cfg.DBSSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", cfg.DBSSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}
