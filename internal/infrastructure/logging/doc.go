// Package logging provides structured logging for Entry Guard Core.
//
// This package wraps Go's standard log/slog package to provide
// consistent, structured logging across the entire application.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for development (human-readable)
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//   - Thread-safe for concurrent use
//
// # Configuration
//
// Logging is configured via the LoggingConfig in config.yaml:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting entry guard", "site_id", cfg.Site.ID)
//	logger.Error("broker connect failed", "error", err)
//
// Tests that need to assert on output use NewWithWriter; tests that do
// not care use Discard.
//
// # Security
//
// Never log the door credential, keypad buffer contents, broker passwords
// or cloud store tokens. Log lengths and outcomes instead:
//
//	logger.Info("credential rejected", "entered_len", n, "failed_attempts", k)
package logging
