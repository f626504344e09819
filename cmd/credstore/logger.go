package main

import (
	"context"
	"fmt"

	credstore "github.com/goliatone/go-credstore"
	"github.com/goliatone/go-credstore/activitymap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger adapts a zap sugared logger to credstore.Logger
type zapLogger struct {
	log *zap.SugaredLogger
}

var _ credstore.Logger = zapLogger{}

func newLogger(debug, events bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.OutputPaths = []string{"stderr"}
	switch {
	case debug:
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case events:
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}

func (l zapLogger) Debug(format string, args ...any) { l.log.Debugf(format, args...) }
func (l zapLogger) Info(format string, args ...any)  { l.log.Infof(format, args...) }
func (l zapLogger) Warn(format string, args ...any)  { l.log.Warnf(format, args...) }
func (l zapLogger) Error(format string, args ...any) { l.log.Errorf(format, args...) }

// eventSink writes normalized activity events as structured log entries.
func eventSink(log *zap.Logger) credstore.ActivitySink {
	return credstore.ActivitySinkFunc(func(ctx context.Context, event credstore.ActivityEvent) error {
		if log == nil {
			return fmt.Errorf("event logger not configured")
		}
		out := activitymap.Normalize(event)
		log.Info("account activity",
			zap.String("verb", out.Verb),
			zap.String("actor_id", out.ActorID),
			zap.String("object_type", out.ObjectType),
			zap.String("object_id", out.ObjectID),
			zap.String("channel", out.Channel),
			zap.Any("metadata", out.Metadata),
			zap.Time("occurred_at", out.OccurredAt),
		)
		return nil
	})
}
