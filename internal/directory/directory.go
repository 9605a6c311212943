// Package directory holds the user directory shared by its backends: users,
// their Admins/Members group membership and their enabled state.
package directory

import (
	"context"
	"errors"
	"fmt"

	"taskManager/internal/models/user"
)

var ErrUserNotFound = errors.New("user not found")
var ErrUserExists = errors.New("user already exists")

// DefaultGroups is what a new signup gets when no groups are given.
func DefaultGroups(groups []string) []string {
	if len(groups) == 0 {
		return []string{user.GroupMembers}
	}
	return groups
}

// Active reports whether a user may be listed; disabled accounts are hidden.
func Active(u user.User) bool {
	return u.Enabled
}

type lister interface {
	ListUsers(ctx context.Context, limit int) ([]user.User, error)
}

type adder interface {
	AddUser(ctx context.Context, u user.User) error
}

// Import copies every user of src into dst. Users dst already knows are
// skipped, so importing the same seed twice is harmless.
func Import(ctx context.Context, src lister, dst adder) (int, error) {
	users, err := src.ListUsers(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("list seed users: %w", err)
	}

	added := 0
	for _, u := range users {
		err := dst.AddUser(ctx, u)
		if errors.Is(err, ErrUserExists) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("import user %q: %w", u.ID, err)
		}
		added++
	}
	return added, nil
}
