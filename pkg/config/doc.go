// Package config loads typed configuration from environment variables.
//
// It combines github.com/joho/godotenv for .env files with
// github.com/caarlos0/env/v11 for struct tag parsing, and caches each parsed
// type for the life of the process. Nested structs pick up a prefix through
// the envPrefix tag, which is how session cookie settings become
// SESSION_COOKIE_* variables.
//
// Use Reset in tests after changing the environment.
package config
