// Package buildlog configures logging for build invocations.
package buildlog

import (
	"os"

	"github.com/charmbracelet/log"
)

// LevelEnvVar overrides the log level, e.g. "debug" or "warn".
const LevelEnvVar = "WESLBUILD_LOG_LEVEL"

// New returns a logger for one build, honoring LevelEnvVar. An unknown level
// value falls back to info with a warning rather than failing the build.
func New() *log.Logger {
	level := log.InfoLevel
	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix: "weslbuild",
	})
	if raw := os.Getenv(LevelEnvVar); raw != "" {
		parsed, err := log.ParseLevel(raw)
		if err != nil {
			logger.Warn("unknown log level, using info", "value", raw)
		} else {
			level = parsed
		}
	}
	logger.SetLevel(level)
	return logger
}
