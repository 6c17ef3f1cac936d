package http

import (
	"context"
	"errors"
)

type contextKey string

const userIDKey contextKey = "user-id"

var errNoUser = errors.New("user_id is not provided in context")

func withUserID(ctx context.Context, userID int32) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user of the request.
func UserIDFromContext(ctx context.Context) (int32, error) {
	userID, ok := ctx.Value(userIDKey).(int32)
	if !ok {
		return 0, errNoUser
	}
	return userID, nil
}
