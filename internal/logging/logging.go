package logging

import (
	"github.com/sirupsen/logrus"
)

// New returns a logger configured for the given level name. Unknown level
// names fall back to info.
func New(level string) *logrus.Logger {
	logger := logrus.New()

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	logger.SetLevel(parsed)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}
