// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// This package extends slog to provide:
//   - Automatic sanitization of sensitive values (cookies, tokens, credentials)
//   - Configurable log levels with verbose mode support
//   - Consistent log formatting across the application
//   - Compatibility with tornago's slog-based logging
//
// # Security Features
//
// LeakHound routinely handles site credentials attached to monitored
// targets, messaging-account API secrets, Tor control-port passwords, and
// archive passwords parsed out of leak pages. The SecureHandler masks all
// of these in log output:
//   - HTTP headers (Authorization, Cookie, Set-Cookie, X-Api-Key)
//   - Credential fields (password, token, api_hash, session_string)
//   - Secret values detected by pattern matching (JWTs, basic auth, keys)
//
// Even in verbose mode, sensitive values are masked to prevent accidental
// exposure of secrets in logs that may be shared or stored.
//
// # Usage
//
//	// Create a secure logger
//	logger := log.NewSecureLogger(os.Stderr, true) // verbose=true
//
//	// Use as a standard slog.Logger
//	logger.Info("fetch prepared",
//	    "cookie", "session=abc123",  // Will be sanitized
//	    "url", "http://example.onion",
//	)
//
//	// Set as default logger
//	slog.SetDefault(logger)
package log
