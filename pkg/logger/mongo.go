package logger

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/event"
	"go.uber.org/zap"
)

// NewMongoCommandMonitor returns a driver command monitor that logs failed and slow
// commands, and every command at debug level. slowQuerySeconds of 0 disables slow logging.
func NewMongoCommandMonitor(l *zap.Logger, slowQuerySeconds float64) *event.CommandMonitor {
	slowThreshold := time.Duration(slowQuerySeconds * float64(time.Second))

	return &event.CommandMonitor{
		Succeeded: func(ctx context.Context, e *event.CommandSucceededEvent) {
			logger := WithContext(ctx, l)
			fields := []zap.Field{
				zap.String("command", e.CommandName),
				zap.Int64("driver_request_id", e.RequestID),
				zap.Duration("elapsed", e.Duration),
			}

			if slowThreshold > 0 && e.Duration > slowThreshold {
				fields = append(fields, zap.Duration("threshold", slowThreshold))
				logger.Warn("mongo slow command", fields...)
				return
			}

			logger.Debug("mongo command", fields...)
		},
		Failed: func(ctx context.Context, e *event.CommandFailedEvent) {
			WithContext(ctx, l).Error("mongo command error",
				zap.String("command", e.CommandName),
				zap.Int64("driver_request_id", e.RequestID),
				zap.Duration("elapsed", e.Duration),
				zap.String("failure", e.Failure),
			)
		},
	}
}
