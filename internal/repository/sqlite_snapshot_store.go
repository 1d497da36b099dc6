package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"PerpDesk/internal/domain/models"
	domrepo "PerpDesk/internal/domain/repository"
	applogger "PerpDesk/pkg/logger"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    ts_ms     INTEGER NOT NULL UNIQUE,
    data      TEXT    NOT NULL
)`

// SQLiteSnapshotStore keeps snapshots as JSON documents keyed by capture time.
type SQLiteSnapshotStore struct {
	db *sql.DB
	l  *applogger.Logger
}

// OpenSQLiteSnapshotStore opens (and creates) the database at path.
func OpenSQLiteSnapshotStore(ctx context.Context, path string, l *applogger.Logger) (*SQLiteSnapshotStore, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// one writer; SQLite serialises anyway and this avoids SQLITE_BUSY under load
	db.SetMaxOpenConns(1)

	s := &SQLiteSnapshotStore{db: db, l: applogger.OrNop(l).With("snapshot_store")}
	if err := s.Init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

var _ domrepo.SnapshotStore = (*SQLiteSnapshotStore)(nil)

func (s *SQLiteSnapshotStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("init snapshot schema: %w", err)
	}
	return nil
}

// Append stores s. Snapshots must arrive in strictly increasing time order.
func (s *SQLiteSnapshotStore) Append(ctx context.Context, snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	ts := snap.Timestamp.UTC().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx, `SELECT MAX(ts_ms) FROM snapshots`).Scan(&last); err != nil {
		return fmt.Errorf("latest ts: %w", err)
	}
	if last.Valid && ts <= last.Int64 {
		return fmt.Errorf("append %s: %w", snap.Timestamp.UTC().Format(time.RFC3339), domrepo.ErrOutOfOrder)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO snapshots (ts_ms, data) VALUES (?, ?)`, ts, string(data)); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.l.Debug("snapshot stored", applogger.Time("ts", snap.Timestamp), applogger.Int("bytes", len(data)))
	return nil
}

// Latest returns up to n snapshots, newest first.
func (s *SQLiteSnapshotStore) Latest(ctx context.Context, n int) ([]models.Snapshot, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM snapshots ORDER BY ts_ms DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]models.Snapshot, 0, n)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var snap models.Snapshot
		if err := json.Unmarshal([]byte(data), &snap); err != nil {
			return nil, fmt.Errorf("decode snapshot: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteSnapshotStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

func (s *SQLiteSnapshotStore) Close() error {
	return s.db.Close()
}
