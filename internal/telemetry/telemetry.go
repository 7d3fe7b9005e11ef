// Package telemetry reports pipeline failures to Sentry.
//
// Reporting is opt-in: with no DSN configured every method is a no-op.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

// Reporter sends failures to one Sentry project. A nil *Reporter is valid
// and reports nothing.
type Reporter struct {
	hub *sentry.Hub
}

// Start returns a Reporter for dsn, or nil when dsn is empty.
func Start(dsn, release string) (*Reporter, error) {
	if dsn == "" {
		return nil, nil
	}
	return start(sentry.ClientOptions{
		Dsn:         dsn,
		Release:     "pgmembed@" + release,
		Environment: "build",
	})
}

func start(opts sentry.ClientOptions) (*Reporter, error) {
	client, err := sentry.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("configuring error reporting: %w", err)
	}
	return &Reporter{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// Capture reports err with the given tags. Nil errors are ignored.
func (r *Reporter) Capture(err error, tags map[string]string) {
	if r == nil || err == nil {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
}

// Close flushes queued events.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	r.hub.Flush(flushTimeout)
}
