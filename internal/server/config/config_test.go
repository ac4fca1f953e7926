// Package config defines the server configuration structure.
package config

import (
	"strings"
	"testing"
)

func TestDefault_PassesVerify(t *testing.T) {
	if err := Verify(Default()); err != nil {
		t.Fatalf("default config failed verification: %v", err)
	}
}

func TestVerify_Storage(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ServerConfig)
		wantErr string
	}{
		{
			"unknown backend",
			func(c *ServerConfig) { c.Storage.Backend = "etcd" },
			"storage.backend",
		},
		{
			"badger without data dir",
			func(c *ServerConfig) {
				c.Storage.Backend = "badger"
				c.Storage.DataDir = ""
			},
			"data_dir",
		},
		{
			"postgres without dsn",
			func(c *ServerConfig) { c.Storage.Backend = "postgres" },
			"postgres_dsn",
		},
		{
			"bad encryption key",
			func(c *ServerConfig) {
				c.Storage.Backend = "badger"
				c.Storage.DataDir = "testdata-tmp"
				c.Storage.EncryptionKey = "tooshort"
			},
			"encryption_key",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Verify(cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Verify = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestVerify_Sync(t *testing.T) {
	cfg := Default()
	cfg.Sync.HeartbeatInterval = DefaultHeartbeatTimeout
	cfg.Sync.HeartbeatTimeout = DefaultHeartbeatInterval

	err := Verify(cfg)
	if err == nil || !strings.Contains(err.Error(), "heartbeat_timeout") {
		t.Errorf("Verify = %v, want heartbeat_timeout error", err)
	}
}

func TestVerify_AuthTokens(t *testing.T) {
	cfg := Default()
	cfg.Auth.Tokens = []TokenEntry{{Hash: "nothex", UserID: "u"}}

	err := Verify(cfg)
	if err == nil || !strings.Contains(err.Error(), "hash") {
		t.Errorf("Verify = %v, want hash error", err)
	}

	cfg.Auth.Tokens = []TokenEntry{{
		Hash:   strings.Repeat("ab", 32),
		UserID: "",
	}}
	err = Verify(cfg)
	if err == nil || !strings.Contains(err.Error(), "user_id") {
		t.Errorf("Verify = %v, want user_id error", err)
	}

	cfg.Auth.Tokens = []TokenEntry{{
		Hash:   strings.Repeat("ab", 32),
		UserID: "alice",
	}}
	if err := Verify(cfg); err != nil {
		t.Errorf("Verify with valid token entry failed: %v", err)
	}
}

func TestVerify_TLSPair(t *testing.T) {
	cfg := Default()
	cfg.Server.TLSCertFile = "cert.pem"

	err := Verify(cfg)
	if err == nil || !strings.Contains(err.Error(), "tls") {
		t.Errorf("Verify = %v, want tls pairing error", err)
	}
}
