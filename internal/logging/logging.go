// Package logging builds the zap loggers used across the service.
package logging

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// RequestIDHeader is the header and log field carrying the request id.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

var base = newTmpLogger()

// Config selects the encoder and level of the process logger.
type Config struct {
	Level  string
	Pretty bool
}

// New builds a zap logger. Pretty selects the development console encoder.
func New(cfg Config) (*zap.Logger, error) {
	var c zap.Config
	var opts []zap.Option
	if cfg.Pretty {
		c = zap.NewDevelopmentConfig()
		opts = append(opts, zap.AddStacktrace(zap.ErrorLevel))
	} else {
		c = zap.NewProductionConfig()
	}

	levelName := cfg.Level
	if levelName == "" {
		levelName = "info"
	}
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("could not parse log level %s", cfg.Level)
	}
	c.Level = level

	return c.Build(opts...)
}

// Init replaces the process-wide logger.
func Init(cfg Config) error {
	l, err := New(cfg)
	if err != nil {
		return err
	}
	base = l
	return nil
}

// L returns the process-wide logger.
func L() *zap.Logger {
	return base
}

// SetLogger replaces the process-wide logger with l. Tests use zap.NewNop().
func SetLogger(l *zap.Logger) {
	base = l
}

// WithRequestID stores a request id in ctx.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// FromContext returns the process logger annotated with the request id of ctx.
func FromContext(ctx context.Context) *zap.Logger {
	requestID := RequestID(ctx)
	if requestID == "" {
		return base
	}
	return base.With(zap.String("x_request_id", requestID))
}

func newTmpLogger() *zap.Logger {
	c := zap.NewProductionConfig()
	c.DisableStacktrace = true
	l, err := c.Build()
	if err != nil {
		panic(err)
	}
	return l
}
