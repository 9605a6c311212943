// Package sqlite is a single-file task store for local and single-node
// deployments. Each task is kept as a JSON document next to the columns
// that listing filters on, with assignees inverted into their own table.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS tasks (
    task_id    TEXT PRIMARY KEY,
    status     TEXT    NOT NULL,
    updated_at INTEGER NOT NULL,
    doc        TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_status_updated ON tasks (status, updated_at DESC);

CREATE TABLE IF NOT EXISTS task_assignees (
    task_id TEXT NOT NULL REFERENCES tasks (task_id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    PRIMARY KEY (task_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_task_assignees_user ON task_assignees (user_id);
`

type Storage struct {
	db *sql.DB
}

// Open creates the database file if needed and applies the schema.
// ":memory:" gives a private in-process database.
func Open(path string) (*Storage, error) {
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// one writer at a time; also keeps ":memory:" on a single connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info("Repository: sqlite store ready", zap.String("path", path))
	return &Storage{db: db}, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Create(ctx context.Context, t *task.Task) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO tasks (task_id, status, updated_at, doc)
				VALUES (?, ?, ?, ?) ON CONFLICT (task_id) DO NOTHING`,
			t.ID.String(), string(t.Status), t.UpdatedAt.UnixNano(), mustDoc(t))
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repo.ErrAlreadyExists
		}
		return writeAssignees(ctx, tx, t)
	})
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	return getTask(ctx, s.db, id)
}

// UpdateFields is a read-modify-write inside one immediate transaction.
func (s *Storage) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*task.Task, error) {
	var updated *task.Task
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := repo.ApplyFields(t, fields, time.Now().UTC()); err != nil {
			return err
		}
		if err := putTask(ctx, tx, t); err != nil {
			return err
		}
		if _, ok := fields[repo.FieldAssignedMembers]; ok {
			if err := writeAssignees(ctx, tx, t); err != nil {
				return err
			}
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Storage) AppendActivity(ctx context.Context, id uuid.UUID, entry task.ActivityEntry) (task.ActivityEntry, error) {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		t, err := getTask(ctx, tx, id)
		if err != nil {
			return err
		}
		t.ActivityLog = append(t.ActivityLog, entry)
		if now := time.Now().UTC(); now.After(t.UpdatedAt) {
			t.UpdatedAt = now
		}
		return putTask(ctx, tx, t)
	})
	if err != nil {
		return task.ActivityEntry{}, err
	}
	return entry, nil
}

func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE task_id = ?`, id.String())
	if err != nil {
		logger.Error("Repository: failed to delete task", err)
		return fmt.Errorf("delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) ListAll(ctx context.Context, limit int) ([]*task.Task, error) {
	return s.list(ctx, `SELECT doc FROM tasks ORDER BY updated_at DESC LIMIT ?`, limitArg(limit))
}

func (s *Storage) ListByStatus(ctx context.Context, status task.Status, limit int) ([]*task.Task, error) {
	return s.list(ctx, `SELECT doc FROM tasks WHERE status = ? ORDER BY updated_at DESC LIMIT ?`,
		string(status), limitArg(limit))
}

func (s *Storage) ListForAssignee(ctx context.Context, userID string, limit int) ([]*task.Task, error) {
	return s.list(ctx, `SELECT t.doc FROM tasks t
			JOIN task_assignees a ON a.task_id = t.task_id
			WHERE a.user_id = ?
			ORDER BY t.updated_at DESC LIMIT ?`, userID, limitArg(limit))
}

func (s *Storage) list(ctx context.Context, query string, args ...any) ([]*task.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Error("Repository: failed to list tasks", err)
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t, err := fromDoc(doc)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

func (s *Storage) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getTask(ctx context.Context, q querier, id uuid.UUID) (*task.Task, error) {
	var doc string
	err := q.QueryRowContext(ctx, `SELECT doc FROM tasks WHERE task_id = ?`, id.String()).Scan(&doc)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return fromDoc(doc)
}

func putTask(ctx context.Context, tx *sql.Tx, t *task.Task) error {
	_, err := tx.ExecContext(ctx, `UPDATE tasks SET status = ?, updated_at = ?, doc = ? WHERE task_id = ?`,
		string(t.Status), t.UpdatedAt.UnixNano(), mustDoc(t), t.ID.String())
	if err != nil {
		return fmt.Errorf("write task: %w", err)
	}
	return nil
}

func writeAssignees(ctx context.Context, tx *sql.Tx, t *task.Task) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id = ?`, t.ID.String()); err != nil {
		return fmt.Errorf("clear assignees: %w", err)
	}
	for _, member := range t.AssignedMembers {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO task_assignees (task_id, user_id) VALUES (?, ?)`,
			t.ID.String(), member); err != nil {
			return fmt.Errorf("write assignee: %w", err)
		}
	}
	return nil
}

func mustDoc(t *task.Task) string {
	// Task holds only JSON-safe values
	b, _ := json.Marshal(t)
	return string(b)
}

func fromDoc(doc string) (*task.Task, error) {
	t := &task.Task{}
	if err := json.Unmarshal([]byte(doc), t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if t.AssignedMembers == nil {
		t.AssignedMembers = []string{}
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, nil
}

// SQLite treats a negative limit as no limit.
func limitArg(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
