package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // registers the sqlite3 driver

	"github.com/okian/posture/internal/domain/model"
	"github.com/okian/posture/pkg/metrics"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	defaultBusyTimeout  = 5 * time.Second
	defaultMaxOpenConns = 1

	consentKey = "consent"
)

// eventRow mirrors the events table. Timestamps are stored as unix nanos.
type eventRow struct {
	ID         string  `db:"id"`
	TS         int64   `db:"ts"`
	Label      string  `db:"label"`
	Confidence float64 `db:"confidence"`
}

func (r eventRow) toModel() model.PostureEvent {
	return model.PostureEvent{
		ID:         r.ID,
		Timestamp:  time.Unix(0, r.TS).UTC(),
		Label:      model.Label(r.Label),
		Confidence: r.Confidence,
	}
}

// SQLiteStore is the durable Store backed by a single SQLite file.
type SQLiteStore struct {
	db           *sqlx.DB
	path         string
	busyTimeout  time.Duration
	maxOpenConns int
	closed       atomic.Bool
}

// OpenSQLite opens (creating if needed) the database at path and applies
// pending migrations.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	s := &SQLiteStore{
		path:         path,
		busyTimeout:  defaultBusyTimeout,
		maxOpenConns: defaultMaxOpenConns,
	}
	for _, opt := range opts {
		opt(s)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL", path, s.busyTimeout.Milliseconds())
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(s.maxOpenConns)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	if err := migrateUp(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.db = db
	return s, nil
}

// migrateUp applies embedded migrations. The migrate instance is not closed
// because its sqlite3 driver would close the shared *sql.DB.
func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("migration setup: %w", err)
	}
	defer func() { _ = src.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Append inserts e. Ordering ties are broken by the autoincrement seq column.
func (s *SQLiteStore) Append(ctx context.Context, e model.PostureEvent) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryAppendLatency(float64(time.Since(start).Milliseconds()))
	}()

	if s.closed.Load() {
		return ErrClosed
	}
	if err := validate(e); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(id, ts, label, confidence) VALUES(?, ?, ?, ?)`,
		e.ID, e.Timestamp.UnixNano(), string(e.Label), e.Confidence)
	if err != nil {
		metrics.RecordRepositoryError("append")
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Query returns events inside w in timestamp then insertion order.
func (s *SQLiteStore) Query(ctx context.Context, w model.Window) ([]model.PostureEvent, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if s.closed.Load() {
		return nil, ErrClosed
	}
	var rows []eventRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, ts, label, confidence FROM events WHERE ts >= ? AND ts <= ? ORDER BY ts, seq`,
		w.From.UnixNano(), w.To.UnixNano())
	if err != nil {
		metrics.RecordRepositoryError("query")
		return nil, fmt.Errorf("query events: %w", err)
	}
	out := make([]model.PostureEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

// Count returns the number of stored events.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM events`); err != nil {
		metrics.RecordRepositoryError("count")
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}

// LoadConsent reads the consent setting. A missing row means disabled.
func (s *SQLiteStore) LoadConsent(ctx context.Context) (bool, error) {
	if s.closed.Load() {
		return false, ErrClosed
	}
	var v string
	err := s.db.GetContext(ctx, &v, `SELECT value FROM settings WHERE key = ?`, consentKey)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		metrics.RecordRepositoryError("load_consent")
		return false, fmt.Errorf("load consent: %w", err)
	}
	enabled, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("load consent: malformed value %q: %w", v, err)
	}
	return enabled, nil
}

// SaveConsent upserts the consent setting.
func (s *SQLiteStore) SaveConsent(ctx context.Context, enabled bool) error {
	if s.closed.Load() {
		return ErrClosed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings(key, value) VALUES(?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		consentKey, strconv.FormatBool(enabled))
	if err != nil {
		metrics.RecordRepositoryError("save_consent")
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}

// Close releases the database. It is safe to call more than once.
func (s *SQLiteStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}
