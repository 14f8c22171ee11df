// Package sentryutil wraps the Sentry client. Every function is a no-op when
// Sentry was not initialized with a DSN.
package sentryutil

import (
	"context"
	"log/slog"
	"time"

	"github.com/diewo77/ownervalue/internal/config"
	"github.com/getsentry/sentry-go"
)

// Init configures the global Sentry hub. Failures are logged and never fatal.
func Init(cfg config.SentryConfig, release string, log *slog.Logger) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     release,
		SampleRate:  cfg.SampleRate,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// owner contact details never leave the service
			event.User = sentry.User{}
			return event
		},
	})
	if err != nil {
		log.Warn("sentry init failed", "error", err)
		return
	}
	if cfg.DSN == "" {
		log.Info("SENTRY_DSN empty, error tracking disabled")
	} else {
		log.Info("sentry initialized", "environment", cfg.Environment)
	}
}

// Flush drains buffered events before exit.
func Flush() { sentry.Flush(2 * time.Second) }

// Hub returns the request-scoped hub, or a clone of the current one.
func Hub(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub().Clone()
}

// CaptureError reports err with tags.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := Hub(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// CaptureMessage reports a warning-level message.
func CaptureMessage(ctx context.Context, msg string, tags map[string]string) {
	hub := Hub(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentry.LevelWarning)
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureMessage(msg)
	})
}
