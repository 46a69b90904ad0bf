package session

import "context"

type ctxKey struct{}

// WithSession returns a copy of ctx carrying s. Middleware does this for
// every request; call it directly only when driving Load and Commit by hand.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// MustFromContext is FromContext for handlers mounted behind Middleware.
// It panics when ctx carries no session.
func MustFromContext(ctx context.Context) *Session {
	s, ok := FromContext(ctx)
	if !ok {
		panic("session: no session in context")
	}
	return s
}
