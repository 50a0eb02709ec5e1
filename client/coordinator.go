package client

import "context"

// Coordinator tears a session down when the server answers 401 or 403.
// However many requests of one session fail together, OnUnauthorized runs
// once for that session. Every session is torn down on its own.
type Coordinator struct {
	onUnauthorized func(ctx context.Context, s *Session)
}

func NewCoordinator(onUnauthorized func(ctx context.Context, s *Session)) *Coordinator {
	return &Coordinator{onUnauthorized: onUnauthorized}
}

func (c *Coordinator) unauthorized(ctx context.Context, s *Session) {
	if !s.loggingOut.CompareAndSwap(false, true) {
		return
	}
	s.Close()
	if c.onUnauthorized != nil {
		c.onUnauthorized(ctx, s)
	}
}
