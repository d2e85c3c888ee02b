package authgate

import "context"

type contextKey string

const clientIPKey contextKey = "authgate.client_ip"

// WithClientIP attaches the caller's network address to the context.
// Engine operations copy it into audit events when present.
func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey, ip)
}

func clientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
