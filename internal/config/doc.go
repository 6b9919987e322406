// Package config handles YAML (or TOML) configuration loading with environment
// variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// The chat endpoint is chosen per environment (development, production, ...)
// from the endpoints map.
package config
