package core

import "context"

type contextKey string

const ctxKeyClient contextKey = "audit_client"

// ClientInfo identifies the caller of a write for audit logging.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// ContextWithClient attaches client info to ctx.
func ContextWithClient(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, ctxKeyClient, info)
}

// ClientFromContext returns the client info attached to ctx, or the zero value.
func ClientFromContext(ctx context.Context) ClientInfo {
	if v, ok := ctx.Value(ctxKeyClient).(ClientInfo); ok {
		return v
	}
	return ClientInfo{}
}
