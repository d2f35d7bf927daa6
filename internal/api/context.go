package api

import (
	"context"

	"github.com/terra-clan/certificate-studio/internal/sessions"
)

type contextKey string

const (
	profileContextKey contextKey = "profile_id"
	sessionContextKey contextKey = "session"
)

// ProfileFromContext extracts the profile id from context
func ProfileFromContext(ctx context.Context) string {
	id, _ := ctx.Value(profileContextKey).(string)
	return id
}

// ContextWithProfile adds the profile id to context
func ContextWithProfile(ctx context.Context, profileID string) context.Context {
	return context.WithValue(ctx, profileContextKey, profileID)
}

// SessionFromContext extracts the profile session from context
func SessionFromContext(ctx context.Context) *sessions.Session {
	sess, ok := ctx.Value(sessionContextKey).(*sessions.Session)
	if !ok {
		return nil
	}
	return sess
}

// ContextWithSession adds the profile session to context
func ContextWithSession(ctx context.Context, sess *sessions.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
