// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them; keeping the
// package free of net/http lets services import only what they need.
package requestcontext

import (
	"context"
)

type (
	guardIDKey   struct{}
	orgIDKey     struct{}
	requestIDKey struct{}
	deviceKey    struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyGuardID        = guardIDKey{}
	ContextKeyOrganizationID = orgIDKey{}
	ContextKeyRequestID      = requestIDKey{}
	ContextKeyDevice         = deviceKey{}
)

// WithGuardID stores the authenticated guard id.
func WithGuardID(ctx context.Context, guardID string) context.Context {
	return context.WithValue(ctx, ContextKeyGuardID, guardID)
}

// GuardID returns the authenticated guard id, or "" when absent.
func GuardID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyGuardID).(string)
	return v
}

// WithOrganizationID stores the caller's organization id.
func WithOrganizationID(ctx context.Context, orgID string) context.Context {
	return context.WithValue(ctx, ContextKeyOrganizationID, orgID)
}

// OrganizationID returns the caller's organization id, or "" when absent.
func OrganizationID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyOrganizationID).(string)
	return v
}

// WithRequestID stores the correlation id for the request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestID returns the correlation id, or "" when absent.
func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ContextKeyRequestID).(string)
	return v
}

// Device describes the client device as derived from the User-Agent header.
// Used to annotate tracking lifecycle audit events.
type Device struct {
	Platform string
	OS       string
	Mobile   bool
}

// WithDevice stores device metadata for the request.
func WithDevice(ctx context.Context, d Device) context.Context {
	return context.WithValue(ctx, ContextKeyDevice, d)
}

// DeviceInfo returns the device metadata, or the zero value when absent.
func DeviceInfo(ctx context.Context) Device {
	v, _ := ctx.Value(ContextKeyDevice).(Device)
	return v
}
