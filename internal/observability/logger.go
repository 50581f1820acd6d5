// Package observability configures process-wide logging for the CLI.
//
// The library packages never log; structured logging is a CLI concern.
// CLILogger defaults to a nop logger so importing this package has no
// side effects until InitCLILogger runs.
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// CLILogger is the logger used by CLI commands. Nop until initialized.
var CLILogger = zap.NewNop()

// InitCLILogger builds the CLI logger at the given level. Output goes to
// stderr so stdout stays clean for JSONL and table output.
func InitCLILogger(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}

	CLILogger = logger
	return nil
}

// Sync flushes buffered log entries. Called on process exit.
func Sync() {
	_ = CLILogger.Sync()
}
