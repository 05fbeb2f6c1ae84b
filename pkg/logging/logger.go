// Package logging builds the service logger and scrubs credentials from
// values destined for log output.
package logging

import (
	"go.uber.org/zap"
)

// New builds a zap logger for the environment: human-readable output for
// local development, JSON for everything else.
func New(env string) (*zap.Logger, error) {
	if env == "local" || env == "dev" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
