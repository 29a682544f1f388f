package auth

import "context"

type subjectKey struct{}

// WithSubject records the authenticated username on ctx.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

// SubjectFromContext returns the username set by JWTMiddleware, or "".
func SubjectFromContext(ctx context.Context) string {
	sub, _ := ctx.Value(subjectKey{}).(string)
	return sub
}
