// internal/config/logger.go
package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// ConfigureLogger sets up the standard logrus logger used across the service.
func ConfigureLogger(c *Config) {
	if c.IsProduction() {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
}
