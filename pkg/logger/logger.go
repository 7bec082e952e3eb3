// Package logger configures the process-wide logrus logger.
package logger

import (
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// New creates a logger at the given level, falling back to info when the
// level does not parse. Timestamps are RFC3339 so dispatch log lines can be
// compared against occurrence instants directly; format "json" switches to
// structured output for log shippers.
func New(level, format string) *logrus.Logger {
	l := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	l.SetLevel(parsed)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	}
	l.SetOutput(os.Stdout)

	return l
}
