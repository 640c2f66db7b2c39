package middleware

import (
	"context"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"

	// ParentIDKey is the context key for the authenticated parent ID
	ParentIDKey contextKey = "parent_id"
)

// Claims represents the validated claims of a parent's bearer token
type Claims struct {
	Subject   string
	ParentID  uuid.UUID
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// GetRequestIDFromContext retrieves the request ID from context.
// Falls back to the ID set by chi's RequestID middleware.
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return chimiddleware.GetReqID(ctx)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves JWT claims from context
func GetClaimsFromContext(ctx context.Context) *Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds JWT claims and the parent ID they carry to the context
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return WithParentID(ctx, claims.ParentID)
}

// GetParentIDFromContext retrieves the authenticated parent ID from context
func GetParentIDFromContext(ctx context.Context) uuid.UUID {
	if val := ctx.Value(ParentIDKey); val != nil {
		if parentID, ok := val.(uuid.UUID); ok {
			return parentID
		}
	}
	return uuid.Nil
}

// WithParentID adds a parent ID to the context
func WithParentID(ctx context.Context, parentID uuid.UUID) context.Context {
	return context.WithValue(ctx, ParentIDKey, parentID)
}
