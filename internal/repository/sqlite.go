package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"wxsend/internal/model"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS deliveries (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	group_name TEXT NOT NULL DEFAULT '',
	audio_url TEXT NOT NULL,
	message TEXT NOT NULL DEFAULT '',
	local_path TEXT NOT NULL DEFAULT '',
	platform TEXT NOT NULL,
	status TEXT NOT NULL,
	error_message TEXT,
	duration_ms INTEGER,
	created_at INTEGER NOT NULL,
	finished_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_deliveries_created ON deliveries(created_at);
`

type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the delivery history database at path
func NewSQLiteRepository(path string) (DeliveryRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer at a time.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &sqliteRepository{db: db}, nil
}

// Create creates a new delivery record
func (r *sqliteRepository) Create(ctx context.Context, d *model.Delivery) error {
	query := `
		INSERT INTO deliveries (
			id, kind, group_name, audio_url, message, local_path, platform,
			status, error_message, duration_ms, created_at, finished_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		d.ID.String(),
		d.Kind,
		d.GroupName,
		d.AudioURL,
		d.Message,
		d.LocalPath,
		d.Platform,
		d.Status,
		d.ErrorMessage,
		d.DurationMs,
		d.CreatedAt.UnixNano(),
		unixNanoOrNil(d.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery: %w", err)
	}
	return nil
}

// UpdateResult updates the outcome of a delivery
func (r *sqliteRepository) UpdateResult(ctx context.Context, d *model.Delivery) error {
	query := `
		UPDATE deliveries
		SET
			status = ?,
			local_path = ?,
			error_message = ?,
			duration_ms = ?,
			finished_at = ?
		WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, query,
		d.Status,
		d.LocalPath,
		d.ErrorMessage,
		d.DurationMs,
		unixNanoOrNil(d.FinishedAt),
		d.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update delivery: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a delivery by ID
func (r *sqliteRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Delivery, error) {
	query := `
		SELECT
			id, kind, group_name, audio_url, message, local_path, platform,
			status, error_message, duration_ms, created_at, finished_at
		FROM deliveries
		WHERE id = ?
	`

	d, err := scanDelivery(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get delivery: %w", err)
	}
	return d, nil
}

// List retrieves deliveries newest first with pagination
func (r *sqliteRepository) List(ctx context.Context, limit, offset int) ([]model.Delivery, error) {
	query := `
		SELECT
			id, kind, group_name, audio_url, message, local_path, platform,
			status, error_message, duration_ms, created_at, finished_at
		FROM deliveries
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query deliveries: %w", err)
	}
	defer rows.Close()

	deliveries := []model.Delivery{}
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan delivery: %w", err)
		}
		deliveries = append(deliveries, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return deliveries, nil
}

func (r *sqliteRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDelivery(row rowScanner) (*model.Delivery, error) {
	var (
		d          model.Delivery
		id         string
		createdAt  int64
		finishedAt sql.NullInt64
	)
	err := row.Scan(
		&id,
		&d.Kind,
		&d.GroupName,
		&d.AudioURL,
		&d.Message,
		&d.LocalPath,
		&d.Platform,
		&d.Status,
		&d.ErrorMessage,
		&d.DurationMs,
		&createdAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid delivery id %q: %w", id, err)
	}
	d.ID = parsed
	d.CreatedAt = time.Unix(0, createdAt)
	if finishedAt.Valid {
		t := time.Unix(0, finishedAt.Int64)
		d.FinishedAt = &t
	}
	return &d, nil
}

func unixNanoOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixNano()
}
