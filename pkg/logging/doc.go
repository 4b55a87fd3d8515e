// Package logging provides structured logging utilities for scrape-relay components.
//
// # Overview
//
// This package wraps the standard library slog package with relay-specific
// defaults and conventions for consistent logging across all components. It
// supports environment-based log level configuration, module/version context
// injection, and automatic source location tracking for debug logs.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Detailed diagnostic information with source location
//   - INFO: General informational messages (default)
//   - WARN/WARNING: Warning messages for potentially problematic situations
//   - ERROR: Error messages for failures requiring attention
//
// # Usage
//
// Setting the default logger (recommended):
//
//	func main() {
//	    logging.SetDefaultStructuredLogger("relay", "v1.0.0")
//
//	    // Use slog as normal
//	    slog.Info("merged fragment", "job", jobName)
//	    slog.Debug("detailed state", "aggregate", doc)
//	    slog.Error("operation failed", "error", err)
//	}
//
// Creating a custom logger:
//
//	logger := logging.NewStructuredLogger("relayd", "v2.0.0", "debug")
//	logger.Info("server starting", "port", 8080)
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls logging verbosity:
//
//	LOG_LEVEL=debug relay lint ./rules
//
// If LOG_LEVEL is not set, defaults to INFO level.
//
// # Output Format
//
// All logs are written to stderr in JSON format:
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "merged fragment",
//	    "module": "relay",
//	    "version": "v1.0.0",
//	    "job": "juju_lma_1234567_am_prometheus_scrape"
//	}
package logging
