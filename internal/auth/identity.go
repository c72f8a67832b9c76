package auth

import (
	"context"
	"strings"
)

// Role is the access level carried in a token.
type Role string

const (
	RoleViewer   Role = "viewer"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

var roleRanks = map[Role]int{
	RoleViewer:   1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// ParseRole accepts a role name case-insensitively.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := roleRanks[role]; !ok {
		return "", false
	}
	return role, true
}

// Allows reports whether r grants at least the required level.
func (r Role) Allows(required Role) bool {
	return roleRanks[r] > 0 && roleRanks[r] >= roleRanks[required]
}

// Identity is the authenticated caller of a request.
type Identity struct {
	TenantID string
	Role     Role
	Subject  string
}

type identityKey struct{}

// WithIdentity stores the caller identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller identity, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// TenantIDFromContext returns the caller tenant or "" for anonymous requests.
func TenantIDFromContext(ctx context.Context) string {
	id, _ := IdentityFromContext(ctx)
	return id.TenantID
}
