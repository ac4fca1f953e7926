// Package command provides CLI command definitions for boardmesh-cli.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Fetch a document snapshot",
		ArgsUsage: "DOCUMENT_ID",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "version-only",
				Usage: "Print only the document version",
			},
		},
		Action: documentGet,
	}
}

// PutCommand returns the put command.
func PutCommand() *cli.Command {
	return &cli.Command{
		Name:      "put",
		Usage:     "Replace a document snapshot from FILE (or stdin with -)",
		ArgsUsage: "DOCUMENT_ID [FILE]",
		Action:    documentPut,
	}
}

func documentGet(c *cli.Context) error {
	documentID := c.Args().First()
	if documentID == "" {
		return fmt.Errorf("document ID required")
	}

	flags := ParseGlobalFlags(c)
	client := NewClient(flags.Server, flags.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if c.Bool("version-only") {
		version, err := client.GetVersion(ctx, documentID)
		if err != nil {
			return err
		}
		fmt.Println(version)
		return nil
	}

	snapshot, version, err := client.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	switch flags.Output {
	case "raw":
		os.Stdout.Write(snapshot)
		fmt.Println()
	default:
		var buf bytes.Buffer
		if err := json.Indent(&buf, snapshot, "", "  "); err != nil {
			os.Stdout.Write(snapshot)
			fmt.Println()
		} else {
			fmt.Println(buf.String())
		}
		fmt.Fprintf(os.Stderr, "version: %d\n", version)
	}
	return nil
}

func documentPut(c *cli.Context) error {
	documentID := c.Args().First()
	if documentID == "" {
		return fmt.Errorf("document ID required")
	}

	source := c.Args().Get(1)
	var snapshot []byte
	var err error
	switch source {
	case "", "-":
		snapshot, err = io.ReadAll(os.Stdin)
	default:
		snapshot, err = os.ReadFile(source)
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	if !json.Valid(snapshot) {
		return fmt.Errorf("snapshot is not valid JSON")
	}

	flags := ParseGlobalFlags(c)
	client := NewClient(flags.Server, flags.Token)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	version, err := client.PutDocument(ctx, documentID, snapshot, flags.ClientID)
	if err != nil {
		return err
	}

	fmt.Printf("version: %d\n", version)
	return nil
}
