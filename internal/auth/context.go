package auth

import (
	"context"
	"slices"
	"strings"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// CallerContextKey is the key for storing the Caller in a request context
	CallerContextKey ContextKey = "caller"
)

// Caller is the identity resolved by the gateway in front of the service.
// The engine trusts it and does no authorization of its own.
type Caller struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles,omitempty"`
}

// HasRole reports whether the caller carries role.
func (c *Caller) HasRole(role string) bool {
	if c == nil {
		return false
	}
	return slices.Contains(c.Roles, role)
}

// WithCaller returns a copy of ctx carrying caller.
func WithCaller(ctx context.Context, caller *Caller) context.Context {
	return context.WithValue(ctx, CallerContextKey, caller)
}

// GetCaller extracts the Caller from a request context.
// Returns nil if the request did not identify a user.
func GetCaller(ctx context.Context) *Caller {
	caller, ok := ctx.Value(CallerContextKey).(*Caller)
	if !ok {
		return nil
	}
	return caller
}

// CallerID returns the caller's user id, or "" when there is none.
func CallerID(ctx context.Context) string {
	if caller := GetCaller(ctx); caller != nil {
		return caller.UserID
	}
	return ""
}

func parseRoles(header string) []string {
	if header == "" {
		return nil
	}
	var roles []string
	for _, r := range strings.Split(header, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}
