// Package command provides CLI command definitions for boardmesh-cli.
package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/boardmesh-go/pkg/reconcile"
)

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Follow a document, printing every applied snapshot",
		ArgsUsage: "DOCUMENT_ID",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "resync",
				Usage: "Version poll interval",
				Value: 30 * time.Second,
			},
			&cli.StringFlag{
				Name:  "out",
				Usage: "Write snapshots to FILE instead of stdout",
			},
		},
		Action: documentWatch,
	}
}

func documentWatch(c *cli.Context) error {
	documentID := c.Args().First()
	if documentID == "" {
		return fmt.Errorf("document ID required")
	}

	flags := ParseGlobalFlags(c)
	outPath := c.String("out")

	apply := func(snapshot []byte, version int64) {
		if outPath != "" {
			if err := os.WriteFile(outPath, snapshot, 0600); err != nil {
				PrintError("write %s: %v", outPath, err)
				return
			}
			fmt.Fprintf(os.Stderr, "version %d -> %s\n", version, outPath)
			return
		}

		var buf bytes.Buffer
		if json.Indent(&buf, snapshot, "", "  ") == nil {
			snapshot = buf.Bytes()
		}
		fmt.Printf("--- version %d ---\n%s\n", version, snapshot)
	}

	rec, err := reconcile.New(reconcile.Config{
		ServerURL:      flags.Server,
		DocumentID:     documentID,
		Token:          flags.Token,
		ClientID:       flags.ClientID,
		ResyncInterval: c.Duration("resync"),
		Apply:          apply,
		OnError: func(err error) {
			PrintError("%v", err)
		},
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "watching %s (client %s), ctrl-c to stop\n", documentID, rec.ClientID())
	if err := rec.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
