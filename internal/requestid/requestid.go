package requestid

import (
	"context"

	"github.com/google/uuid"
)

const maxLen = 128

type ctxKey struct{}

func New() string {
	return uuid.NewString()
}

// FromHeader keeps a client-supplied X-Request-ID when it is short and
// printable ASCII, and otherwise generates a fresh one so a caller cannot
// inject arbitrary text into log lines.
func FromHeader(h string) string {
	if h == "" || len(h) > maxLen {
		return New()
	}
	for i := 0; i < len(h); i++ {
		if h[i] < 0x21 || h[i] > 0x7e {
			return New()
		}
	}
	return h
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns "" if no request ID is attached.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
