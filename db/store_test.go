package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/idrisskacou/Log-Store-2-DB/config"
	"github.com/idrisskacou/Log-Store-2-DB/models"
)

var sampleRecord = models.LogRecord{
	Timestamp:         "10/Oct/2023:13:55:36 +0000",
	Status:            200,
	NumberOfRequest:   1024,
	StatusDescription: "OK",
}

// utcTime matches a time.Time argument equal to the wrapped instant and in UTC.
type utcTime time.Time

func (u utcTime) Match(v driver.Value) bool {
	ts, ok := v.(time.Time)
	return ok && ts.Equal(time.Time(u)) && ts.Location() == time.UTC
}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewStore(conn, Postgres), mock
}

func TestInsertRecord_OneExecOneCommit(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO logs").
		WithArgs(utcTime(time.Date(2023, 10, 10, 13, 55, 36, 0, time.UTC)), 200, 1024, "OK").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := store.InsertRecord(context.Background(), sampleRecord); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsertRecord_ConvertsToUTC(t *testing.T) {
	store, mock := newMockStore(t)

	rec := sampleRecord
	rec.Timestamp = "10/Oct/2023:15:55:36 +0200"

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO logs").
		WithArgs(utcTime(time.Date(2023, 10, 10, 13, 55, 36, 0, time.UTC)), 200, 1024, "OK").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	if err := store.InsertRecord(context.Background(), rec); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsertRecord_ExecErrorRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO logs").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := store.InsertRecord(context.Background(), sampleRecord)
	if err == nil || !strings.Contains(err.Error(), "db insert exec") {
		t.Fatalf("expected exec error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsertRecord_CommitError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO logs").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

	err := store.InsertRecord(context.Background(), sampleRecord)
	if err == nil || !strings.Contains(err.Error(), "db insert commit") {
		t.Fatalf("expected commit error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInsertRecord_BadTimestampTouchesNothing(t *testing.T) {
	store, mock := newMockStore(t)

	rec := sampleRecord
	rec.Timestamp = "yesterday"

	if err := store.InsertRecord(context.Background(), rec); err == nil {
		t.Fatal("expected timestamp error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database calls: %v", err)
	}
}

func TestInitializeSchema_RunsEveryStatement(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer conn.Close()
	store := NewStore(conn, DuckDB)

	mock.ExpectExec("CREATE SEQUENCE IF NOT EXISTS logs_id_seq").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS logs").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.InitializeSchema(context.Background()); err != nil {
		t.Fatalf("InitializeSchema failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestInitializeSchema_Error(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS logs").WillReturnError(errors.New("permission denied"))

	err := store.InitializeSchema(context.Background())
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func openSQLite(t *testing.T, debug bool) *Store {
	t.Helper()
	cfg := &config.Config{
		DBDriver: config.DriverSQLite,
		DBName:   filepath.Join(t.TempDir(), "logs.db"),
		DBDebug:  debug,
	}
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteRoundTrip(t *testing.T) {
	store := openSQLite(t, false)
	ctx := context.Background()

	// Running the schema twice must be harmless.
	for i := 0; i < 2; i++ {
		if err := store.InitializeSchema(ctx); err != nil {
			t.Fatalf("InitializeSchema #%d failed: %v", i+1, err)
		}
	}

	if err := store.InsertRecord(ctx, sampleRecord); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}
	notFound := models.LogRecord{
		Timestamp:         "11/Oct/2023:08:00:00 +0000",
		Status:            404,
		NumberOfRequest:   0,
		StatusDescription: "Not Found",
	}
	if err := store.InsertRecord(ctx, notFound); err != nil {
		t.Fatalf("InsertRecord failed: %v", err)
	}

	rows, err := store.DB().QueryContext(ctx,
		`SELECT id, timestamp, status, number_of_request, status_description FROM logs ORDER BY id`)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer rows.Close()

	type row struct {
		id     int64
		ts     time.Time
		status int
		bytes  int
		desc   string
	}
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.id, &r.ts, &r.status, &r.bytes, &r.desc); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		got = append(got, r)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[0].id >= got[1].id {
		t.Errorf("ids not increasing: %d, %d", got[0].id, got[1].id)
	}
	want := time.Date(2023, 10, 10, 13, 55, 36, 0, time.UTC)
	if !got[0].ts.Equal(want) {
		t.Errorf("timestamp: got %v, want %v", got[0].ts, want)
	}
	if got[0].status != 200 || got[0].bytes != 1024 || got[0].desc != "OK" {
		t.Errorf("unexpected first row: %+v", got[0])
	}
	if got[1].status != 404 || got[1].bytes != 0 || got[1].desc != "Not Found" {
		t.Errorf("unexpected second row: %+v", got[1])
	}
}

func TestOpen_DebugHooks(t *testing.T) {
	store := openSQLite(t, true)
	if err := store.InitializeSchema(context.Background()); err != nil {
		t.Fatalf("InitializeSchema failed: %v", err)
	}
	if err := store.InsertRecord(context.Background(), sampleRecord); err != nil {
		t.Fatalf("InsertRecord through hooked driver failed: %v", err)
	}

	// A second store reuses the registered driver.
	openSQLite(t, true)
}

func TestDebugDriverName_Unsupported(t *testing.T) {
	if _, err := debugDriverName(DuckDB); err == nil {
		t.Fatal("expected duckdb debug driver to be rejected")
	}
}

func TestHooks_AfterWithoutStart(t *testing.T) {
	h := &Hooks{}
	if _, err := h.After(context.Background(), "SELECT 1"); err != nil {
		t.Fatalf("After failed: %v", err)
	}
}

func TestDialectFor(t *testing.T) {
	for _, name := range []string{config.DriverPostgres, config.DriverSQLite, config.DriverDuckDB} {
		d, err := DialectFor(name)
		if err != nil {
			t.Fatalf("DialectFor(%q): %v", name, err)
		}
		if d.Name != name {
			t.Errorf("DialectFor(%q).Name = %q", name, d.Name)
		}
		if !strings.Contains(d.InsertSQL, "status_description") {
			t.Errorf("%s insert does not write status_description", name)
		}
	}
	if _, err := DialectFor("oracle"); err == nil {
		t.Error("expected error for unknown driver")
	}
}

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "full",
			cfg:  config.Config{DBHost: "db", DBPort: 5432, DBName: "nginx", DBUser: "ingest", DBPassword: "p@ss", DBSSLMode: "disable"},
			want: "postgres://ingest:p%40ss@db:5432/nginx?sslmode=disable",
		},
		{
			name: "no password",
			cfg:  config.Config{DBHost: "localhost", DBPort: 6543, DBName: "logs", DBUser: "ingest"},
			want: "postgres://ingest@localhost:6543/logs",
		},
		{
			name: "ipv6 host",
			cfg:  config.Config{DBHost: "::1", DBPort: 5432, DBName: "logs"},
			want: "postgres://[::1]:5432/logs",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Postgres.DSN(&tc.cfg); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
