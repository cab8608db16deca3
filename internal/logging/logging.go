// Package logging builds the process-wide structured logger.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a configured logrus logger. Development gets human-readable
// debug output; anything else logs JSON at info level.
func New(appName, env string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if env == "development" {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	logger.WithFields(logrus.Fields{"app": appName, "env": env}).Info("logger initialized")
	return logger
}
