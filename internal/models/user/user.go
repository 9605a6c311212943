package user

import (
	"slices"
	"time"
)

type Role string

const RoleAdmin Role = "ADMIN"
const RoleMember Role = "MEMBER"

const GroupAdmins = "Admins"
const GroupMembers = "Members"

type User struct {
	ID        string    `json:"userId"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Enabled   bool      `json:"enabled"`
	Status    string    `json:"status,omitempty"`
	Groups    []string  `json:"groups,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Caller is the identity resolved from request credentials. It is passed
// explicitly into every service and policy call.
type Caller struct {
	ID     string
	Email  string
	Name   string
	Groups []string
}

func IsInRole(groups []string, role string) bool {
	return slices.Contains(groups, role)
}

// RoleFromGroups maps directory groups onto a role; MEMBER is the default.
func RoleFromGroups(groups []string) Role {
	if IsInRole(groups, GroupAdmins) {
		return RoleAdmin
	}
	return RoleMember
}

func (c *Caller) IsAdmin() bool {
	return c != nil && IsInRole(c.Groups, GroupAdmins)
}

// DisplayName falls back to the email the way directory records do.
func (c *Caller) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Email
}
