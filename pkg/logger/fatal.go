package logger

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
)

const sentryFlushTimeout = 2 * time.Second

// SetupSentry enables error reporting when dsn is not empty.
func SetupSentry(dsn, release string) error {
	if dsn == "" {
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:     dsn,
		Release: release,
	})
	if err != nil {
		return fmt.Errorf("initializing sentry: %w", err)
	}

	return nil
}

// Fatal logs err, reports it to sentry when enabled and exits with status 1.
func Fatal(log Logger, msg string, err error) {
	log.Error(msg, "error", err)

	if sentry.CurrentHub().Client() != nil {
		sentry.CaptureException(fmt.Errorf("%s: %w", msg, err))
		sentry.Flush(sentryFlushTimeout)
	}

	os.Exit(1)
}
