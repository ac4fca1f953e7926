// Package main provides the entry point for boardmesh-cli.
//
// boardmesh-cli is the command-line tool for BoardMesh documents:
// fetching and replacing snapshots over REST, and following a document
// live over the sync protocol.
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/boardmesh-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
