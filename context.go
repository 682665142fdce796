package accesskit

import (
	"context"
)

// Context keys for accesskit values.
type contextKey string

const (
	contextKeyUserID     contextKey = "accesskit:user_id"
	contextKeyIPAddress  contextKey = "accesskit:ip_address"
	contextKeyUserAgent  contextKey = "accesskit:user_agent"
	contextKeyRequestID  contextKey = "accesskit:request_id"
	contextKeyAuthorizer contextKey = "accesskit:authorizer"
)

// WithUserID adds the ID of the authenticated user to the context.
func WithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, contextKeyUserID, userID)
}

// GetUserID retrieves the user ID from context.
func GetUserID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(contextKeyUserID).(int64)
	return id, ok
}

// MustGetUserID retrieves the user ID from context.
// Panics if not set.
func MustGetUserID(ctx context.Context) int64 {
	id, ok := GetUserID(ctx)
	if !ok {
		panic("accesskit: user ID not in context")
	}
	return id
}

// WithIPAddress adds the client IP address to the context.
func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, contextKeyIPAddress, ip)
}

// GetIPAddress retrieves the IP address from context.
func GetIPAddress(ctx context.Context) string {
	s, _ := ctx.Value(contextKeyIPAddress).(string)
	return s
}

// WithUserAgent adds the user agent to the context.
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, contextKeyUserAgent, ua)
}

// GetUserAgent retrieves the user agent from context.
func GetUserAgent(ctx context.Context) string {
	s, _ := ctx.Value(contextKeyUserAgent).(string)
	return s
}

// WithRequestID adds a request ID to the context for log correlation.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, requestID)
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	s, _ := ctx.Value(contextKeyRequestID).(string)
	return s
}

// WithAuthorizer adds an Authorizer to the context.
// This is set by middleware and can be retrieved in handlers.
func WithAuthorizer(ctx context.Context, auth *Authorizer) context.Context {
	return context.WithValue(ctx, contextKeyAuthorizer, auth)
}

// GetAuthorizer retrieves the Authorizer from context.
// Returns nil if not set.
func GetAuthorizer(ctx context.Context) *Authorizer {
	auth, _ := ctx.Value(contextKeyAuthorizer).(*Authorizer)
	return auth
}

// FromContext retrieves the Authorizer from context.
// Alias for GetAuthorizer for convenience.
func FromContext(ctx context.Context) *Authorizer {
	return GetAuthorizer(ctx)
}

// RequestContext holds the request details attached to log events.
type RequestContext struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// GetRequestContext extracts the request details from context.
func GetRequestContext(ctx context.Context) RequestContext {
	return RequestContext{
		RequestID: GetRequestID(ctx),
		IPAddress: GetIPAddress(ctx),
		UserAgent: GetUserAgent(ctx),
	}
}

// WithRequestContext adds all request details to context at once.
func WithRequestContext(ctx context.Context, rc RequestContext) context.Context {
	if rc.RequestID != "" {
		ctx = WithRequestID(ctx, rc.RequestID)
	}
	if rc.IPAddress != "" {
		ctx = WithIPAddress(ctx, rc.IPAddress)
	}
	if rc.UserAgent != "" {
		ctx = WithUserAgent(ctx, rc.UserAgent)
	}
	return ctx
}
