// Package requestcontext carries per-request values (request ID, resolved
// client address, request time) through context.Context.
package requestcontext

import (
	"context"
	"time"
)

// UnknownClient is the identity every unresolvable caller shares.
const UnknownClient = "unknown"

type (
	requestIDKey struct{}
	clientIPKey  struct{}
	userAgentKey struct{}
	nowKey       struct{}
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID or "" outside an HTTP request.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithClientMetadata(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, clientIPKey{}, ip)
	return context.WithValue(ctx, userAgentKey{}, userAgent)
}

// ClientIP returns the resolved client address, or UnknownClient when the
// metadata middleware did not run or could not resolve one.
func ClientIP(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return UnknownClient
}

// UserAgent returns the caller's User-Agent, recorded on quota audit lines.
func UserAgent(ctx context.Context) string {
	ua, _ := ctx.Value(userAgentKey{}).(string)
	return ua
}

// WithTime pins the request's notion of "now".
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, nowKey{}, t)
}

// Now returns the pinned request time, falling back to the wall clock for
// workers and tests that never went through the HTTP chain.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(nowKey{}).(time.Time); ok {
		return t
	}
	return time.Now()
}
