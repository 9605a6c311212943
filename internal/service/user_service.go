package service

import (
	"context"

	"taskManager/internal/directory"
	"taskManager/internal/logger"
	"taskManager/internal/models/user"
	"taskManager/internal/policy"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const roleLookupConcurrency = 8

type UserService struct {
	users UserDirectory
}

func NewUserService(users UserDirectory) *UserService {
	return &UserService{users: users}
}

// ListUsers returns enabled users, optionally narrowed to one group, with each
// user's groups and role looked up concurrently.
func (s *UserService) ListUsers(ctx context.Context, caller *user.Caller, group string, limit int) ([]user.User, error) {
	if err := authorize(policy.Request{Caller: caller, Op: policy.OpListUsers}); err != nil {
		return nil, err
	}

	var (
		listed []user.User
		err    error
	)
	if group == "" {
		listed, err = s.users.ListUsers(ctx, limit)
	} else {
		listed, err = s.users.ListUsersInGroup(ctx, group, limit)
	}
	if err != nil {
		logger.Error("Service: failed to list users", err, zap.String("group", group))
		return nil, NewInternal("Failed to list users", err)
	}

	active := make([]user.User, 0, len(listed))
	for _, u := range listed {
		if directory.Active(u) {
			active = append(active, u)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(roleLookupConcurrency)
	for i := range active {
		g.Go(func() error {
			groups, err := s.users.GroupsFor(gctx, active[i].ID)
			if err != nil {
				return err
			}
			active[i].Groups = groups
			active[i].Role = user.RoleFromGroups(groups)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("Service: failed to resolve user roles", err)
		return nil, NewInternal("Failed to list users", err)
	}

	return active, nil
}
