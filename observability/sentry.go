package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

const sentryFlushTimeout = 2 * time.Second

// InitSentry wires crash reporting for the verification service. An empty
// DSN is a valid configuration, not an error: local runs and tests report
// nowhere.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

// FlushSentry drains buffered events before shutdown. Bounded so a dead
// Sentry endpoint cannot hold the process open.
func FlushSentry() {
	sentry.Flush(sentryFlushTimeout)
}
