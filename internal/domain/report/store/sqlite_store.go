// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ManuGH/reportstream/internal/domain/report/model"
	"github.com/ManuGH/reportstream/internal/persistence/sqlite"
	"github.com/google/uuid"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS reports (
	report_id TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	status    TEXT NOT NULL,
	created_at INTEGER NOT NULL DEFAULT (unixepoch())
);`

const sqliteOwnerIndex = `CREATE INDEX IF NOT EXISTS idx_reports_user_id ON reports(user_id, created_at);`

// SQLiteStore keeps reports in a single table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (or creates) the database at cfg.Path and applies the schema.
func OpenSQLiteStore(ctx context.Context, cfg SQLiteConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, errors.New("store: sqlite path is required")
	}
	scfg := sqlite.DefaultConfig()
	if cfg.BusyTimeout > 0 {
		scfg.BusyTimeout = cfg.BusyTimeout
	}
	db, err := sqlite.Open(cfg.Path, scfg)
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(ctx, db, sqliteSchema, sqliteOwnerIndex); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) InsertReport(ctx context.Context, r model.Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (report_id, user_id, status) VALUES (?, ?, ?)
		ON CONFLICT(report_id) DO UPDATE SET user_id = excluded.user_id, status = excluded.status`,
		r.ReportID.String(), r.UserID.String(), r.Status.String())
	if err != nil {
		return fmt.Errorf("sqlite insert report %s: %w", r.ReportID, err)
	}
	return nil
}

func (s *SQLiteStore) ListReports(ctx context.Context, owner uuid.UUID) ([]model.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT report_id, status FROM reports WHERE user_id = ? ORDER BY created_at, rowid`,
		owner.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite list reports: %w", err)
	}
	defer rows.Close()

	var out []model.Report
	for rows.Next() {
		row := storedReport{UserID: owner.String()}
		if err := rows.Scan(&row.ReportID, &row.Status); err != nil {
			return nil, fmt.Errorf("sqlite scan report: %w", err)
		}
		if r, ok := row.toReport(); ok {
			out = append(out, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list reports: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) (uuid.UUID, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`UPDATE reports SET status = ? WHERE report_id = ? RETURNING user_id`,
		status.String(), id.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("sqlite update status %s: %w", id, err)
	}
	owner, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("sqlite update status %s: stored owner %q: %w", id, raw, err)
	}
	return owner, true, nil
}

func (s *SQLiteStore) GetStatus(ctx context.Context, id uuid.UUID) (model.Status, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM reports WHERE report_id = ?`, id.String()).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get status %s: %w", id, err)
	}
	st, err := model.ParseStatus(raw)
	if err != nil {
		return "", false, nil
	}
	return st, true, nil
}
