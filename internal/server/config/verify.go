// Package config defines the server configuration structure.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyStorage(&cfg.Storage); err != nil {
		return err
	}
	if err := verifySync(&cfg.Sync); err != nil {
		return err
	}
	return verifyAuth(&cfg.Auth)
}

func verifyServer(cfg *ServerSection) error {
	if cfg.Addr == "" {
		return errors.New("server.addr is required")
	}
	if (cfg.TLSCertFile == "") != (cfg.TLSKeyFile == "") {
		return errors.New("server.tls_cert_file and server.tls_key_file must be set together")
	}
	return nil
}

func verifyStorage(cfg *StorageSection) error {
	switch cfg.Backend {
	case "memory":
		return nil

	case "badger":
		if cfg.DataDir == "" {
			return errors.New("storage.data_dir is required for the badger backend")
		}
		if cfg.EncryptionKey != "" {
			key, err := hex.DecodeString(cfg.EncryptionKey)
			if err != nil || len(key) != 32 {
				return errors.New("storage.encryption_key must be 64 hex characters")
			}
		}
		if err := os.MkdirAll(cfg.DataDir, 0750); err != nil {
			return errors.New("cannot create data directory: " + err.Error())
		}
		return nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres backend")
		}
		return nil

	default:
		return fmt.Errorf("storage.backend %q is not one of memory, badger, postgres", cfg.Backend)
	}
}

func verifySync(cfg *SyncSection) error {
	if cfg.MaxSnapshotBytes < 0 {
		return errors.New("sync.max_snapshot_bytes must not be negative")
	}
	if cfg.HeartbeatInterval > 0 && cfg.HeartbeatTimeout > 0 &&
		cfg.HeartbeatTimeout <= cfg.HeartbeatInterval {
		return errors.New("sync.heartbeat_timeout must exceed sync.heartbeat_interval")
	}
	return nil
}

func verifyAuth(cfg *AuthSection) error {
	for i, entry := range cfg.Tokens {
		if entry.Hash == "" {
			return fmt.Errorf("auth.tokens[%d].hash is required", i)
		}
		if _, err := hex.DecodeString(entry.Hash); err != nil || len(entry.Hash) != 64 {
			return fmt.Errorf("auth.tokens[%d].hash must be a SHA-256 hex digest", i)
		}
		if entry.UserID == "" {
			return fmt.Errorf("auth.tokens[%d].user_id is required", i)
		}
	}
	return nil
}
