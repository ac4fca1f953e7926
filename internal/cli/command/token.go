// Package command provides CLI command definitions for boardmesh-cli.
package command

import (
	"encoding/hex"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/pkg/token"
)

// TokenCommand returns the token provisioning command.
//
// Servers never store raw tokens; auth.tokens entries in the server
// config carry the SHA-256 hash, so provisioning emits both halves:
// the bearer token for the client and the hash for the config.
func TokenCommand() *cli.Command {
	return &cli.Command{
		Name:  "token",
		Usage: "Provision and check bearer tokens",
		Subcommands: []*cli.Command{
			{
				Name:   "new",
				Usage:  "Generate a bearer token and the hash to put in the server config",
				Action: tokenNew,
			},
			{
				Name:      "hash",
				Usage:     "Print the config hash of an existing token",
				ArgsUsage: "TOKEN",
				Action:    tokenHash,
			},
			{
				Name:      "verify",
				Usage:     "Check a token against a config hash",
				ArgsUsage: "TOKEN HASH",
				Action:    tokenVerify,
			},
			{
				Name:   "storage-key",
				Usage:  "Generate a storage encryption key (storage.encryption_key)",
				Action: tokenStorageKey,
			},
		},
	}
}

func tokenNew(c *cli.Context) error {
	bearer, err := token.GenerateBearer()
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "token: %s\n", bearer)
	fmt.Fprintf(c.App.Writer, "hash:  %s\n", token.Hash(bearer))
	return nil
}

func tokenHash(c *cli.Context) error {
	raw := c.Args().First()
	if raw == "" {
		return fmt.Errorf("token required")
	}
	fmt.Fprintln(c.App.Writer, token.Hash(raw))
	return nil
}

func tokenVerify(c *cli.Context) error {
	raw := c.Args().First()
	hash := c.Args().Get(1)
	if raw == "" || hash == "" {
		return fmt.Errorf("token and hash required")
	}
	if !token.Verify(raw, hash) {
		return fmt.Errorf("token does not match hash")
	}
	fmt.Fprintln(c.App.Writer, "ok")
	return nil
}

func tokenStorageKey(c *cli.Context) error {
	key, err := token.GenerateBytes(32)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	fmt.Fprintln(c.App.Writer, hex.EncodeToString(key))
	return nil
}
