// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/spx/internal/formatter"
	"github.com/urfave/cli/v3"
)

const version = "0.3.0"

// App returns the root command. Every subcommand inherits --config.
func (r *Runner) App() *cli.Command {
	return &cli.Command{
		Name:    "spx",
		Usage:   "Mirror a Spotify library (playlists, saved tracks, albums, shows) to XSPF files and back",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Before:   r.Before,
		After:    r.After,
		Commands: r.register(),
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		exportCommand, importCommand, deleteCommand, authCommand, setupCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

func kindFlag(usage string) cli.Flag {
	return &cli.StringFlag{
		Name:    "kind",
		Aliases: []string{"k"},
		Usage:   usage + " (playlist, saved_tracks, saved_albums, saved_shows)",
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Write every playlist and saved collection to a directory of .xspf files",
		ArgsUsage: "<dir>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "path"},
		},
		Flags:  []cli.Flag{kindFlag("Export a single collection kind")},
		Action: r.Export,
	}
}

func importCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "import",
		Usage:     "Merge a directory of .xspf files, or a single file, into the library",
		ArgsUsage: "<dir|file.xspf>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "path"},
		},
		Action: r.Import,
	}
}

func deleteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "delete",
		Usage:  "Delete owned playlists and saved items, confirming each collection kind",
		Flags:  []cli.Flag{kindFlag("Delete a single collection kind")},
		Action: r.Delete,
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authorize spx with Spotify using OAuth2 and save the tokens to the config file",
		Action: r.Auth,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file from a template and initialize the journal database",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "reset", Usage: "clear the journal after confirmation"},
		},
		Action: r.Setup,
	}
}

func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded export, import and delete units",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Maximum number of entries to show (0 for all)",
				Value:   20,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (text, csv, json)",
				Value:   string(formatter.FormatText),
			},
			&cli.StringFlag{
				Name:  "run",
				Usage: "Only show entries from this run ID",
			},
			&cli.BoolFlag{
				Name:  "last",
				Usage: "Only show entries from the most recent run",
			},
		},
		Action: r.History,
	}
}
