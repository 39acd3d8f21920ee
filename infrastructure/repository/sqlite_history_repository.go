package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ca-srg/relaunch/domain"
	"github.com/ca-srg/relaunch/domain/entity"
	"github.com/ca-srg/relaunch/domain/repository"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS cycles (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at     INTEGER NOT NULL,
	finished_at    INTEGER NOT NULL,
	result         TEXT    NOT NULL,
	version        TEXT    NOT NULL DEFAULT '',
	new_version    INTEGER NOT NULL DEFAULT 0,
	config_changed INTEGER NOT NULL DEFAULT 0,
	outcome        TEXT    NOT NULL DEFAULT 'none',
	reason         TEXT    NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS cycles_finished_at ON cycles (finished_at);
`

// SQLiteHistoryRepository implements HistoryRepository on a local SQLite file
type SQLiteHistoryRepository struct {
	db   *sql.DB
	path string
}

// NewSQLiteHistoryRepository opens (and creates if needed) the history database
func NewSQLiteHistoryRepository(path string) (*SQLiteHistoryRepository, error) {
	if path == "" {
		return nil, domain.ErrInvalidInput("history path", "must not be empty")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, domain.ErrRepository("open_history", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, domain.ErrRepository("open_history", err)
	}
	// sqlite3 はコネクションごとに :memory: を分けるので一本に絞る
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, domain.ErrRepository("migrate_history", err)
	}

	return &SQLiteHistoryRepository{db: db, path: path}, nil
}

// Save stores a record and sets its ID
func (r *SQLiteHistoryRepository) Save(ctx context.Context, record *entity.CycleRecord) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cycles (started_at, finished_at, result, version, new_version, config_changed, outcome, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.StartedAt.UnixMilli(),
		record.FinishedAt.UnixMilli(),
		string(record.Result),
		record.Version,
		record.NewVersion,
		record.ConfigChanged,
		record.Outcome.String(),
		record.Reason,
	)
	if err != nil {
		return domain.ErrRepository("save_cycle", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.ErrRepository("save_cycle", err)
	}
	record.ID = id
	return nil
}

// Recent returns up to limit records, newest first
func (r *SQLiteHistoryRepository) Recent(ctx context.Context, limit int) ([]*entity.CycleRecord, error) {
	if limit <= 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, result, version, new_version, config_changed, outcome, reason
		 FROM cycles ORDER BY finished_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, domain.ErrRepository("recent_cycles", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []*entity.CycleRecord
	for rows.Next() {
		var (
			rec               entity.CycleRecord
			started, finished int64
			result, outcome   string
		)
		if err := rows.Scan(&rec.ID, &started, &finished, &result, &rec.Version,
			&rec.NewVersion, &rec.ConfigChanged, &outcome, &rec.Reason); err != nil {
			return nil, domain.ErrRepository("recent_cycles", err)
		}
		rec.StartedAt = time.UnixMilli(started)
		rec.FinishedAt = time.UnixMilli(finished)
		rec.Result = entity.CycleResult(result)
		if rec.Outcome, err = entity.ParseDialogOutcome(outcome); err != nil {
			return nil, domain.ErrRepository("recent_cycles", err)
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrRepository("recent_cycles", err)
	}
	return records, nil
}

// CountByResult returns how many cycles ended with each result since the given time
func (r *SQLiteHistoryRepository) CountByResult(ctx context.Context, since time.Time) (map[entity.CycleResult]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT result, COUNT(*) FROM cycles WHERE finished_at >= ? GROUP BY result`, since.UnixMilli())
	if err != nil {
		return nil, domain.ErrRepository("count_cycles", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[entity.CycleResult]int)
	for rows.Next() {
		var (
			result string
			n      int
		)
		if err := rows.Scan(&result, &n); err != nil {
			return nil, domain.ErrRepository("count_cycles", err)
		}
		counts[entity.CycleResult(result)] = n
	}
	return counts, rows.Err()
}

// Prune deletes records that finished before the given time
func (r *SQLiteHistoryRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cycles WHERE finished_at < ?`, before.UnixMilli())
	if err != nil {
		return 0, domain.ErrRepository("prune_cycles", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, domain.ErrRepository("prune_cycles", err)
	}
	return n, nil
}

// Path returns the database file path
func (r *SQLiteHistoryRepository) Path() string {
	return r.path
}

// Close releases the database handle
func (r *SQLiteHistoryRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	return nil
}

var _ repository.HistoryRepository = (*SQLiteHistoryRepository)(nil)
