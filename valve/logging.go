package valve

import (
	"context"
	"time"

	"github.com/bjaus/piper"
	"go.uber.org/zap"
)

// LoggingOption configures the Logging valve.
type LoggingOption func(*loggingConfig)

type loggingConfig struct {
	slow time.Duration
}

// WithSlowThreshold sets the duration above which a successful request is
// logged at Warn level. The default is one second.
func WithSlowThreshold(d time.Duration) LoggingOption {
	return func(c *loggingConfig) {
		if d > 0 {
			c.slow = d
		}
	}
}

// WithConfig applies the logging settings of cfg: its SlowThreshold, when
// set, becomes the slow request threshold.
//
//	cfg, _ := piper.LoadConfig()
//	valve.Logging[GetUser, *User](logger, valve.WithConfig(cfg))
func WithConfig(cfg piper.Config) LoggingOption {
	return WithSlowThreshold(cfg.SlowThreshold)
}

// Logging returns a valve that logs every request passing through it.
// Failures are logged at Error, slow requests at Warn, and everything else
// at Debug to avoid log spam. The error is returned unchanged.
func Logging[R, T any](logger *zap.Logger, opts ...LoggingOption) piper.Valve[R, T] {
	cfg := loggingConfig{slow: time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	key := piper.KeyOf[R, T]()
	log := logger.With(
		zap.Stringer("request", key.Request),
		zap.Stringer("response", key.Response),
	)

	return piper.ValveFunc[R, T](func(ctx context.Context, req R, next piper.Next[R, T]) (T, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		duration := time.Since(start)

		fields := []zap.Field{zap.Duration("duration", duration)}
		if id := CorrelationID(ctx); id != "" {
			fields = append(fields, zap.String("correlation_id", id))
		}

		switch {
		case err != nil:
			log.Error("request failed", append(fields, zap.Error(err))...)
		case duration > cfg.slow:
			log.Warn("slow request", fields...)
		default:
			log.Debug("request", fields...)
		}
		return resp, err
	})
}
