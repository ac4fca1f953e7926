// Package config defines the server configuration structure.
package config

import "time"

// Default configuration values.
const (
	DefaultAddr            = "127.0.0.1:5480"
	DefaultShutdownTimeout = 30 * time.Second

	DefaultStorageBackend = "memory"
	DefaultDataDir        = "/var/lib/boardmesh-server/data"
	DefaultGCInterval     = 10 * time.Minute

	DefaultHeartbeatInterval = 20 * time.Second
	DefaultHeartbeatTimeout  = 60 * time.Second
	DefaultSendBuffer        = 256
	DefaultInboundRate       = 50
	DefaultInboundBurst      = 100

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:            DefaultAddr,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Storage: StorageSection{
			Backend:    DefaultStorageBackend,
			DataDir:    DefaultDataDir,
			GCInterval: DefaultGCInterval,
		},
		Sync: SyncSection{
			HeartbeatInterval: DefaultHeartbeatInterval,
			HeartbeatTimeout:  DefaultHeartbeatTimeout,
			SendBuffer:        DefaultSendBuffer,
			InboundRate:       DefaultInboundRate,
			InboundBurst:      DefaultInboundBurst,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
