package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"taskManager/internal/directory"
	"taskManager/internal/logger"
	"taskManager/internal/models/user"
	"taskManager/internal/repository/pgpool"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const userSelect = `SELECT u.user_id, u.email, u.name, u.enabled, u.status, u.created_at,
				COALESCE(array_agg(g.group_name ORDER BY g.group_name)
					FILTER (WHERE g.group_name IS NOT NULL), '{}') AS groups
			FROM users u
			LEFT JOIN user_groups g ON g.user_id = u.user_id`

type Directory struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Directory {
	return &Directory{pool: pool}
}

func (d *Directory) HealthCheck(ctx context.Context) error {
	if err := d.pool.Ping(ctx); err != nil {
		logger.Error("Directory: ping failed", err)
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// AddUser inserts the user and its groups in one transaction.
func (d *Directory) AddUser(ctx context.Context, u user.User) error {
	start := time.Now()
	defer pgpool.Observe("add_user", start)

	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}
	if u.Name == "" {
		u.Name = u.Email
	}
	if u.Status == "" {
		u.Status = "CONFIRMED"
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO users (user_id, email, name, enabled, status, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
			u.ID, u.Email, u.Name, u.Enabled, u.Status, u.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return directory.ErrUserExists
			}
			logger.Error("Directory: failed to insert user", err)
			return fmt.Errorf("insert user: %w", err)
		}

		for _, group := range directory.DefaultGroups(u.Groups) {
			if _, err := tx.Exec(ctx, `INSERT INTO user_groups (user_id, group_name) VALUES ($1, $2)
					ON CONFLICT DO NOTHING`, u.ID, group); err != nil {
				logger.Error("Directory: failed to insert user group", err, zap.String("group", group))
				return fmt.Errorf("insert user group: %w", err)
			}
		}
		return nil
	})
}

func (d *Directory) GetUser(ctx context.Context, id string) (*user.User, error) {
	start := time.Now()
	defer pgpool.Observe("get_user", start)

	query := userSelect + ` WHERE u.user_id = $1 GROUP BY u.user_id`

	u, err := scanUser(d.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, directory.ErrUserNotFound
		}
		logger.Error("Directory: failed to get user", err)
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (d *Directory) ResolveEmail(ctx context.Context, id string) (string, error) {
	var email string
	err := d.pool.QueryRow(ctx, `SELECT email FROM users WHERE user_id = $1`, id).Scan(&email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", directory.ErrUserNotFound
		}
		return "", fmt.Errorf("resolve email: %w", err)
	}
	return email, nil
}

func (d *Directory) GroupsFor(ctx context.Context, id string) ([]string, error) {
	u, err := d.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Groups, nil
}

func (d *Directory) ListUsers(ctx context.Context, limit int) ([]user.User, error) {
	query := userSelect + ` GROUP BY u.user_id
			ORDER BY u.created_at, u.user_id
			LIMIT NULLIF($1::int, 0)`
	return d.list(ctx, "list_users", query, limit)
}

func (d *Directory) ListUsersInGroup(ctx context.Context, group string, limit int) ([]user.User, error) {
	query := userSelect + ` WHERE EXISTS (
				SELECT 1 FROM user_groups m WHERE m.user_id = u.user_id AND m.group_name = $2)
			GROUP BY u.user_id
			ORDER BY u.created_at, u.user_id
			LIMIT NULLIF($1::int, 0)`
	return d.list(ctx, "list_users_in_group", query, limit, group)
}

func (d *Directory) SetEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := d.pool.Exec(ctx, `UPDATE users SET enabled = $2 WHERE user_id = $1`, id, enabled)
	if err != nil {
		logger.Error("Directory: failed to update user", err)
		return fmt.Errorf("set enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return directory.ErrUserNotFound
	}
	return nil
}

func (d *Directory) list(ctx context.Context, op, query string, limit int, args ...any) ([]user.User, error) {
	start := time.Now()
	defer pgpool.Observe(op, start)

	rows, err := d.pool.Query(ctx, query, append([]any{limit}, args...)...)
	if err != nil {
		logger.Error("Directory: failed to list users", err, zap.String("op", op))
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []user.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (*user.User, error) {
	u := &user.User{}
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Enabled, &u.Status, &u.CreatedAt, &u.Groups); err != nil {
		return nil, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.Role = user.RoleFromGroups(u.Groups)
	return u, nil
}
