// Package config defines the server configuration structure.
//
// Configuration is loaded by internal/infra/confloader with the
// priority: environment variables > config file > defaults.
// Environment variables use the BOARDMESH_ prefix, e.g.
// BOARDMESH_SERVER_ADDR or BOARDMESH_STORAGE_BACKEND.
//
// This package contains:
//
//   - spec.go: the typed configuration structure (koanf tags)
//   - default.go: default values
//   - verify.go: validation run at startup before anything binds
package config
