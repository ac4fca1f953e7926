// Package command provides CLI command definitions for boardmesh-cli.
//
// It uses urfave/cli/v2 for command parsing.
package command

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "boardmesh-cli",
		Usage:   "BoardMesh document command-line tool",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildTime),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			GetCommand(),
			PutCommand(),
			WatchCommand(),
			TokenCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "BoardMesh server URL (e.g., http://localhost:5480)",
			EnvVars: []string{"BOARDMESH_SERVER"},
			Value:   "http://localhost:5480",
		},
		&cli.StringFlag{
			Name:    "token",
			Aliases: []string{"t"},
			Usage:   "Bearer token for authentication",
			EnvVars: []string{"BOARDMESH_TOKEN"},
		},
		&cli.StringFlag{
			Name:    "client-id",
			Aliases: []string{"c"},
			Usage:   "Client identifier for echo suppression (default: random)",
			EnvVars: []string{"BOARDMESH_CLIENT_ID"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: json, raw",
			Value:   "json",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server   string
	Token    string
	ClientID string
	Output   string // json, raw
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:   c.String("server"),
		Token:    c.String("token"),
		ClientID: c.String("client-id"),
		Output:   c.String("output"),
	}
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
