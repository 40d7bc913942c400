package logger

import "context"

// requestIDCtxKey is unexported so only this package can stamp the ID.
type requestIDCtxKey struct{}

// WithRequestID stamps the request ID consumed by the HTTP request
// logger.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// RequestID returns the request ID stamped on ctx, or "" when there is
// none.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}
