package logging

import (
	"context"
	"sync"
)

type fieldsKey struct{}

// Fields collects attributes learned while a request is being served, such
// as the resolved actor, so the access log line can carry them.
type Fields struct {
	mu   sync.Mutex
	args []any
}

func WithFields(ctx context.Context) (context.Context, *Fields) {
	if ctx == nil {
		ctx = context.Background()
	}
	f := &Fields{}
	return context.WithValue(ctx, fieldsKey{}, f), f
}

// Annotate appends key/value pairs to the request fields. Without
// WithFields upstream it is a no-op.
func Annotate(ctx context.Context, args ...any) {
	if ctx == nil || len(args) == 0 {
		return
	}
	f, ok := ctx.Value(fieldsKey{}).(*Fields)
	if !ok || f == nil {
		return
	}
	f.mu.Lock()
	f.args = append(f.args, args...)
	f.mu.Unlock()
}

func (f *Fields) Args() []any {
	if f == nil {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.args...)
}
