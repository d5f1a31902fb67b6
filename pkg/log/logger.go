// Package log configures logrus for the CLI and adapts it for badger.
package log

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// New returns a text logger writing to out at the named level ("debug", "info", ...).
// Logs never go to stdout by default since the MCP stdio transport owns it.
func New(level string, out io.Writer) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05.000"})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logger, fmt.Errorf("invalid log level '%s': %w", level, err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}
