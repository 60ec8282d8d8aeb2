// Package config loads and validates the service configuration from
// config.yaml and environment variables via viper. Provider credentials,
// circuit breaker tuning, and server settings all live here; the router is
// constructed once from the loaded config and there is no hot reload.
package config
