package inmemory

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"taskManager/internal/directory"
	"taskManager/internal/logger"
	"taskManager/internal/models/user"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Directory struct {
	mtx   sync.RWMutex
	users map[string]user.User
	order []string
}

func New() *Directory {
	return &Directory{users: make(map[string]user.User)}
}

type seedFile struct {
	Users []seedUser `yaml:"users"`
}

type seedUser struct {
	ID      string   `yaml:"id"`
	Email   string   `yaml:"email"`
	Name    string   `yaml:"name"`
	Groups  []string `yaml:"groups"`
	Enabled *bool    `yaml:"enabled"`
}

// LoadFile builds a directory from a YAML seed file.
func LoadFile(path string) (*Directory, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open user seed %s: %w", path, err)
	}
	defer file.Close()

	var seed seedFile
	if err := yaml.NewDecoder(file).Decode(&seed); err != nil {
		return nil, fmt.Errorf("parse user seed %s: %w", path, err)
	}

	d := New()
	for _, su := range seed.Users {
		enabled := true
		if su.Enabled != nil {
			enabled = *su.Enabled
		}
		if err := d.AddUser(context.Background(), user.User{
			ID:      su.ID,
			Email:   su.Email,
			Name:    su.Name,
			Groups:  su.Groups,
			Enabled: enabled,
		}); err != nil {
			return nil, fmt.Errorf("seed user %q: %w", su.ID, err)
		}
	}

	logger.Info("Directory: users loaded from seed", zap.String("path", path), zap.Int("count", len(seed.Users)))
	return d, nil
}

func (d *Directory) HealthCheck(ctx context.Context) error {
	return nil
}

// AddUser registers a user; without explicit groups the user joins Members.
func (d *Directory) AddUser(ctx context.Context, u user.User) error {
	if u.ID == "" {
		return fmt.Errorf("user id is required")
	}

	d.mtx.Lock()
	defer d.mtx.Unlock()

	if _, ok := d.users[u.ID]; ok {
		return directory.ErrUserExists
	}
	u.Groups = slices.Clone(directory.DefaultGroups(u.Groups))
	u.Role = user.RoleFromGroups(u.Groups)
	if u.Name == "" {
		u.Name = u.Email
	}
	if u.Status == "" {
		u.Status = "CONFIRMED"
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	d.users[u.ID] = u
	d.order = append(d.order, u.ID)
	return nil
}

func (d *Directory) GetUser(ctx context.Context, id string) (*user.User, error) {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return nil, directory.ErrUserNotFound
	}
	u.Groups = slices.Clone(u.Groups)
	return &u, nil
}

func (d *Directory) ResolveEmail(ctx context.Context, id string) (string, error) {
	u, err := d.GetUser(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Email, nil
}

func (d *Directory) GroupsFor(ctx context.Context, id string) ([]string, error) {
	u, err := d.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return u.Groups, nil
}

func (d *Directory) ListUsers(ctx context.Context, limit int) ([]user.User, error) {
	return d.list(limit, func(user.User) bool { return true }), nil
}

func (d *Directory) ListUsersInGroup(ctx context.Context, group string, limit int) ([]user.User, error) {
	return d.list(limit, func(u user.User) bool { return user.IsInRole(u.Groups, group) }), nil
}

func (d *Directory) SetEnabled(ctx context.Context, id string, enabled bool) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	u, ok := d.users[id]
	if !ok {
		return directory.ErrUserNotFound
	}
	u.Enabled = enabled
	d.users[id] = u
	return nil
}

func (d *Directory) list(limit int, match func(user.User) bool) []user.User {
	d.mtx.RLock()
	defer d.mtx.RUnlock()

	res := []user.User{}
	for _, id := range d.order {
		if limit > 0 && len(res) >= limit {
			break
		}
		u := d.users[id]
		if !match(u) {
			continue
		}
		u.Groups = slices.Clone(u.Groups)
		res = append(res, u)
	}
	return res
}
