package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"taskManager/internal/logger"
	"taskManager/internal/models/task"
	repo "taskManager/internal/repository"
	"taskManager/internal/repository/pgpool"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const taskColumns = `task_id,
				title,
				description,
				status,
				priority,
				created_by,
				created_by_name,
				created_by_email,
				due_date,
				assigned_members,
				tags,
				created_at,
				updated_at,
				last_status_update,
				activity_log`

type Storage struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		logger.Error("Repository: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Create inserts the task only if its id is unused.
func (s *Storage) Create(ctx context.Context, t *task.Task) error {
	start := time.Now()
	defer pgpool.Observe("create", start)

	query := `INSERT INTO tasks (` + taskColumns + `)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
				ON CONFLICT (task_id) DO NOTHING`

	activity := t.ActivityLog
	if activity == nil {
		activity = []task.ActivityEntry{}
	}

	tag, err := s.pool.Exec(ctx, query,
		t.ID,
		t.Title,
		t.Description,
		string(t.Status),
		string(t.Priority),
		t.CreatedBy,
		t.CreatedByName,
		t.CreatedByEmail,
		t.DueDate,
		nonNil(t.AssignedMembers),
		nonNil(t.Tags),
		t.CreatedAt,
		t.UpdatedAt,
		t.LastStatusUpdate,
		activity,
	)
	if err != nil {
		logger.Error("Repository: failed to insert task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("insert task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		logger.Warn("Repository: duplicate task id on create", zap.String("task_id", t.ID.String()))
		return repo.ErrAlreadyExists
	}
	return nil
}

func (s *Storage) GetByID(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	start := time.Now()
	defer pgpool.Observe("get", start)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE task_id = $1`

	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to get task", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// UpdateFields writes only the given columns and returns the full task.
func (s *Storage) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*task.Task, error) {
	start := time.Now()
	defer pgpool.Observe("update", start)

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	slices.Sort(names)

	sets := make([]string, 0, len(names)+1)
	args := []any{id}
	for _, name := range names {
		column, value, err := columnValue(name, fields[name])
		if err != nil {
			return nil, err
		}
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at = GREATEST(updated_at, $%d)", len(args)))

	query := `UPDATE tasks SET ` + strings.Join(sets, ", ") + `
			WHERE task_id = $1
			RETURNING ` + taskColumns

	t, err := scanTask(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repo.ErrNotFound
		}
		logger.Error("Repository: failed to update task", err, zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("update task: %w", err)
	}
	return t, nil
}

// AppendActivity concatenates onto the JSONB log so concurrent appends never
// overwrite each other.
func (s *Storage) AppendActivity(ctx context.Context, id uuid.UUID, entry task.ActivityEntry) (task.ActivityEntry, error) {
	start := time.Now()
	defer pgpool.Observe("append_activity", start)

	query := `UPDATE tasks
				SET activity_log = activity_log || $2::jsonb,
				updated_at = GREATEST(updated_at, $3)
			WHERE task_id = $1`

	tag, err := s.pool.Exec(ctx, query, id, []task.ActivityEntry{entry}, time.Now().UTC())
	if err != nil {
		logger.Error("Repository: failed to append activity", err, zap.Duration("ms", time.Since(start)))
		return task.ActivityEntry{}, fmt.Errorf("append activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return task.ActivityEntry{}, repo.ErrNotFound
	}
	return entry, nil
}

func (s *Storage) Delete(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	defer pgpool.Observe("delete", start)

	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE task_id = $1`, id)
	if err != nil {
		logger.Error("Repository: failed to delete task", err, zap.Duration("ms", time.Since(start)))
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (s *Storage) ListAll(ctx context.Context, limit int) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
				ORDER BY updated_at DESC
				LIMIT NULLIF($1::int, 0)`
	return s.list(ctx, "list_all", query, limit)
}

func (s *Storage) ListByStatus(ctx context.Context, status task.Status, limit int) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
				WHERE status = $2
				ORDER BY updated_at DESC
				LIMIT NULLIF($1::int, 0)`
	return s.list(ctx, "list_by_status", query, limit, string(status))
}

func (s *Storage) ListForAssignee(ctx context.Context, userID string, limit int) ([]*task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks
				WHERE assigned_members @> ARRAY[$2::text]
				ORDER BY updated_at DESC
				LIMIT NULLIF($1::int, 0)`
	return s.list(ctx, "list_for_assignee", query, limit, userID)
}

func (s *Storage) list(ctx context.Context, op, query string, limit int, args ...any) ([]*task.Task, error) {
	start := time.Now()
	defer pgpool.Observe(op, start)

	rows, err := s.pool.Query(ctx, query, append([]any{limit}, args...)...)
	if err != nil {
		logger.Error("Repository: failed to list tasks", err, zap.String("op", op), zap.Duration("ms", time.Since(start)))
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			logger.Error("Repository: failed to scan task", err)
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		logger.Error("Repository: row iteration failed", err)
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	t := &task.Task{}
	err := row.Scan(
		&t.ID,
		&t.Title,
		&t.Description,
		&t.Status,
		&t.Priority,
		&t.CreatedBy,
		&t.CreatedByName,
		&t.CreatedByEmail,
		&t.DueDate,
		&t.AssignedMembers,
		&t.Tags,
		&t.CreatedAt,
		&t.UpdatedAt,
		&t.LastStatusUpdate,
		&t.ActivityLog,
	)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	if t.DueDate != nil {
		d := t.DueDate.UTC()
		t.DueDate = &d
	}
	return t, nil
}

// columnValue maps a repository field onto its column and a value pgx can encode.
func columnValue(name string, value any) (string, any, error) {
	scratch := &task.Task{}
	if err := repo.ApplyFields(scratch, map[string]any{name: value}, time.Time{}); err != nil {
		return "", nil, err
	}

	switch name {
	case repo.FieldTitle:
		return "title", scratch.Title, nil
	case repo.FieldDescription:
		return "description", scratch.Description, nil
	case repo.FieldPriority:
		return "priority", string(scratch.Priority), nil
	case repo.FieldStatus:
		return "status", string(scratch.Status), nil
	case repo.FieldDueDate:
		return "due_date", scratch.DueDate, nil
	case repo.FieldTags:
		return "tags", nonNil(scratch.Tags), nil
	case repo.FieldAssignedMembers:
		return "assigned_members", nonNil(scratch.AssignedMembers), nil
	case repo.FieldLastStatusUpdate:
		return "last_status_update", scratch.LastStatusUpdate, nil
	}
	return "", nil, fmt.Errorf("%w: %s", repo.ErrUnknownField, name)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
