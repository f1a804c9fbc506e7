// Package logging wraps zap the way both services initialize and enrich it:
// JSON production logging by default, console logging under APP_ENV=development,
// and a small set of context-field helpers so request-scoped identifiers flow into
// every log line without threading a logger through every function signature.
package logging

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const loggerKey ctxKey = iota

// Init builds the process-wide logger for the given environment name.
func Init(env string) (*zap.Logger, error) {
	if env == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// WithContext returns a context carrying logger, enriched with any given fields.
func WithContext(ctx context.Context, logger *zap.Logger, fields ...zap.Field) context.Context {
	return context.WithValue(ctx, loggerKey, logger.With(fields...))
}

// FromContext returns the logger stashed in ctx, or a no-op logger if none was set.
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// CorrelationID is the zap field key used for the request correlation id.
func CorrelationID(id string) zap.Field { return zap.String("correlation_id", id) }

// UserID is the zap field key used for an authenticated user id.
func UserID(id int) zap.Field { return zap.Int("user_id", id) }

// RoomID is the zap field key used for a chat room id.
func RoomID(id int) zap.Field { return zap.Int("room_id", id) }

// BackendID is the zap field key used for an LB backend replica id.
func BackendID(id string) zap.Field { return zap.String("backend_id", id) }

// RedactSecret truncates a secret-shaped value so it is safe to log, e.g. for
// x-lb-secret and session cookie values caught in request logging.
func RedactSecret(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}
