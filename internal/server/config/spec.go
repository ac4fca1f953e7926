// Package config defines the server configuration structure.
package config

import "time"

// ServerConfig is the root configuration for boardmesh-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Sync    SyncSection    `koanf:"sync"`
	Auth    AuthSection    `koanf:"auth"`
	HTTP    HTTPSection    `koanf:"http"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	// Addr is the listen address for the combined HTTP/WebSocket server.
	Addr string `koanf:"addr"`

	// TLSCertFile and TLSKeyFile enable TLS when both are set.
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StorageSection configures snapshot persistence.
type StorageSection struct {
	// Backend selects the store: "memory", "badger", or "postgres".
	Backend string `koanf:"backend"`

	// DataDir is the Badger storage directory.
	DataDir string `koanf:"data_dir"`

	// PostgresDSN is the PostgreSQL connection string.
	PostgresDSN string `koanf:"postgres_dsn"`

	// EncryptionKey is an optional 64-char hex key for at-rest
	// encryption (Badger backend only).
	EncryptionKey string `koanf:"encryption_key"`

	// GCInterval is the Badger value-log GC interval.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// SyncSection configures the WebSocket sync protocol.
type SyncSection struct {
	// MaxSnapshotBytes caps snapshot size on all write paths.
	// 0 selects the default (8 MiB).
	MaxSnapshotBytes int64 `koanf:"max_snapshot_bytes"`

	// HeartbeatInterval is how often idle peers are pinged.
	HeartbeatInterval time.Duration `koanf:"heartbeat_interval"`

	// HeartbeatTimeout is how long a peer may stay silent.
	HeartbeatTimeout time.Duration `koanf:"heartbeat_timeout"`

	// SendBuffer is the per-connection outbound frame buffer.
	SendBuffer int `koanf:"send_buffer"`

	// InboundRate limits inbound frames per second per connection.
	InboundRate float64 `koanf:"inbound_rate"`

	// InboundBurst is the inbound limiter burst.
	InboundBurst int `koanf:"inbound_burst"`
}

// AuthSection configures bearer token authentication.
type AuthSection struct {
	// Tokens is the static token table. Tokens are stored as SHA-256
	// hashes; plaintext never appears in configuration.
	Tokens []TokenEntry `koanf:"tokens"`
}

// TokenEntry grants one token access to documents.
type TokenEntry struct {
	// Hash is the SHA-256 hex hash of the bearer token.
	Hash string `koanf:"hash"`

	// UserID identifies the token's owner.
	UserID string `koanf:"user_id"`

	// Documents restricts the token to specific document ids.
	// Empty means every document.
	Documents []string `koanf:"documents"`
}

// HTTPSection configures REST API behavior.
type HTTPSection struct {
	// CORSAllowedOrigins is the allowed origin list (empty = allow all).
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// RateLimit is the per-IP request rate limit (0 = off).
	RateLimit int `koanf:"rate_limit"`

	// EnableAudit enables per-request audit logging.
	EnableAudit bool `koanf:"enable_audit"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}
