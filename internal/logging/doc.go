// Package logging provides structured logging for the smartcast tools.
//
// This package wraps a global zap logger. It is silent by default so CLI output
// stays clean; set SMARTCAST_LOG_LEVEL (or pass --log-level) to enable it.
//
// # Log Levels
//
//   - Debug: every device request and response, tree traversal steps
//   - Info: discovery complete, bridge clients, state changes
//   - Warn: failed requests, unrecognised node types, poll errors
//   - Error: startup failures
//
// # Structured Logging
//
//	logging.Info("Settings discovery complete",
//	    zap.String("host", "192.168.1.40"),
//	    zap.Int("nodes", 58),
//	)
//
// Library packages take a *zap.Logger option and fall back to Named(component)
// on the global logger.
//
// Logs go to stderr so they never mix with command output.
package logging
