package auth

import "context"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// subjectContextKey is the context key for the authenticated user ID.
	subjectContextKey contextKey = "auth_subject"
)

// ContextWithSubject stores the authenticated user ID in the context.
func ContextWithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectContextKey, subjectID)
}

// SubjectFromContext returns the authenticated user ID.
// Returns empty string if not authenticated.
func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(subjectContextKey).(string)
	return subject
}
