// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, seed services, health check and circuit breaker
// tuning, and logging levels.
package config
