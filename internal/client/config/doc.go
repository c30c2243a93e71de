// Package config loads runtime configuration for the docverify client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / -config or DOCVERIFY_CONFIG.
//  3. Environment variables DOCVERIFY_*, with a .env file in the working
//     directory loaded first (existing variables are not overridden).
//  4. Command-line flags.
//
// Supported flags
//
//	-a string   base URL of the verification backend
//	-d string   path of the local SQLite database
//	-l string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations use timex.Duration, so "1.5s" and integer nanoseconds both work:
//
//	{
//	  "server_url": "http://127.0.0.1:5000",
//	  "database_path": "docverify.db",
//	  "login_timeout": "15s",
//	  "min_loading_time": "1.5s",
//	  "auth_check_timeout": "8s",
//	  "log_backend": "zap"
//	}
package config
