// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Role names carried in token claims.
const (
	RoleAdmin  = "admin"
	RoleGrower = "grower"
)

// UserContext contains the authenticated caller as reported by the token verifier.
type UserContext struct {
	UserID string
	// GrowerID is set for grower accounts; empty for admins.
	GrowerID string
	Roles    []string
	IsAdmin  bool
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanActForGrower reports whether the caller may read or modify data owned by growerID.
func CanActForGrower(ctx context.Context, growerID string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	if u.IsAdmin {
		return true
	}
	return u.GrowerID != "" && u.GrowerID == growerID
}
