package shared

import "context"

type ctxKeySession struct{}

// ContextWithSession attaches the loaded session to the request
// context. The session middleware is the only writer.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKeySession{}, sess)
}

// SessionFromContext returns the request session, or nil for
// anonymous requests.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(ctxKeySession{}).(*Session)
	return sess
}

// IsAuthenticated reports whether the request carries a logged-in
// session.
func IsAuthenticated(ctx context.Context) bool {
	sess := SessionFromContext(ctx)
	return sess != nil && sess.User() != ""
}
