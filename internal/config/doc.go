// Package config loads the server configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// environment variables. Command-line flags are applied last by the caller,
// so the effective precedence is flag > env > file > default.
package config
