package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/deletion-planner/internal/model"
)

// SQLiteStore implements Cache using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Cache = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// An in-memory database exists per connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// taskRow is the flattened task_snapshots row.
type taskRow struct {
	Filter          string `db:"filter"`
	Position        int    `db:"position"`
	ID              int64  `db:"id"`
	Title           string `db:"title"`
	Description     string `db:"description"`
	Priority        int    `db:"priority"`
	Category        string `db:"category"`
	Status          string `db:"status"`
	DeferralCount   int    `db:"deferral_count"`
	CompletionCount int    `db:"completion_count"`
	SortOrder       int    `db:"sort_order"`
	CreatedAt       string `db:"created_at"`
	UpdatedAt       string `db:"updated_at"`
}

func (r taskRow) task() model.Task {
	return model.Task{
		ID:              r.ID,
		Title:           r.Title,
		Description:     r.Description,
		Priority:        model.Priority(r.Priority),
		Category:        model.Category(r.Category),
		Status:          model.TaskStatus(r.Status),
		DeferralCount:   r.DeferralCount,
		CompletionCount: r.CompletionCount,
		SortOrder:       r.SortOrder,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// SaveTasks replaces the cached listing for filter in one transaction.
func (s *SQLiteStore) SaveTasks(
	ctx context.Context,
	filter model.TaskFilter,
	tasks []model.Task,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM task_snapshots WHERE filter = ?", string(filter)); err != nil {
		return fmt.Errorf("clearing %s snapshot: %w", filter, err)
	}

	const insert = `
		INSERT INTO task_snapshots (
			filter, position, id, title, description, priority, category,
			status, deferral_count, completion_count, sort_order,
			created_at, updated_at
		) VALUES (
			:filter, :position, :id, :title, :description, :priority, :category,
			:status, :deferral_count, :completion_count, :sort_order,
			:created_at, :updated_at
		)`

	for i, t := range tasks {
		row := taskRow{
			Filter:          string(filter),
			Position:        i,
			ID:              t.ID,
			Title:           t.Title,
			Description:     t.Description,
			Priority:        int(t.Priority),
			Category:        string(t.Category),
			Status:          string(t.Status),
			DeferralCount:   t.DeferralCount,
			CompletionCount: t.CompletionCount,
			SortOrder:       t.SortOrder,
			CreatedAt:       t.CreatedAt,
			UpdatedAt:       t.UpdatedAt,
		}
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("caching task %d: %w", t.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO snapshot_meta (filter, fetched_at) VALUES (?, ?)",
		string(filter), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("stamping %s snapshot: %w", filter, err)
	}

	return tx.Commit()
}

// LoadTasks returns the cached listing for filter in its original order.
func (s *SQLiteStore) LoadTasks(
	ctx context.Context,
	filter model.TaskFilter,
) ([]model.Task, time.Time, error) {
	var fetchedAt time.Time
	err := s.db.GetContext(ctx, &fetchedAt,
		"SELECT fetched_at FROM snapshot_meta WHERE filter = ?", string(filter))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading %s snapshot time: %w", filter, err)
	}

	var rows []taskRow
	err = s.db.SelectContext(ctx, &rows,
		"SELECT * FROM task_snapshots WHERE filter = ? ORDER BY position", string(filter))
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading %s snapshot: %w", filter, err)
	}

	tasks := make([]model.Task, len(rows))
	for i, r := range rows {
		tasks[i] = r.task()
	}
	return tasks, fetchedAt, nil
}

// SavePlan caches plan as JSON, without its deletion suggestions.
func (s *SQLiteStore) SavePlan(ctx context.Context, plan model.Plan) error {
	if plan.Date == "" {
		return fmt.Errorf("caching plan: missing date")
	}
	plan.Suggestions = nil

	payload, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshaling plan %s: %w", plan.Date, err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO plan_snapshots (date, payload, fetched_at) VALUES (?, ?, ?)",
		plan.Date, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("caching plan %s: %w", plan.Date, err)
	}
	return nil
}

// LoadPlan returns the cached plan for date.
func (s *SQLiteStore) LoadPlan(ctx context.Context, date string) (*model.Plan, time.Time, error) {
	var row struct {
		Payload   string    `db:"payload"`
		FetchedAt time.Time `db:"fetched_at"`
	}
	err := s.db.GetContext(ctx, &row,
		"SELECT payload, fetched_at FROM plan_snapshots WHERE date = ?", date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, ErrNoSnapshot
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("reading plan %s: %w", date, err)
	}

	var plan model.Plan
	if err := json.Unmarshal([]byte(row.Payload), &plan); err != nil {
		return nil, time.Time{}, fmt.Errorf("decoding cached plan %s: %w", date, err)
	}
	return &plan, row.FetchedAt, nil
}

// DeletePlan drops the cached plan for date.
func (s *SQLiteStore) DeletePlan(ctx context.Context, date string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM plan_snapshots WHERE date = ?", date); err != nil {
		return fmt.Errorf("deleting cached plan %s: %w", date, err)
	}
	return nil
}
