// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func userFlag(required bool) *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "user",
		Aliases:  []string{"u"},
		Usage:    "User ID",
		Required: required,
		Sources:  cli.EnvVars("PLX_USER"),
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"},
	}
}

func idArgument() []cli.Argument {
	return []cli.Argument{&cli.StringArg{Name: "id"}}
}

// authCommand connects accounts
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Connect and check playlist service accounts",
		Commands: []*cli.Command{
			{
				Name:  "spotify",
				Usage: "Authorize plx to manage a user's Spotify playlists (OAuth2)",
				Flags: []cli.Flag{
					userFlag(true),
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: 2 * time.Minute,
					},
				},
				Action: r.SpotifyAuth,
			},
			{
				Name:  "status",
				Usage: "Show whether a user has a stored credential",
				Flags: []cli.Flag{
					userFlag(true),
					&cli.BoolFlag{Name: "check", Usage: "Exchange the credential to verify it still works"},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// spotifyCommand handles Spotify lookups
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify playlist lookups",
		Commands: []*cli.Command{
			{
				Name:  "playlists",
				Usage: "List a user's Spotify playlists and their IDs",
				Flags: append([]cli.Flag{
					userFlag(true),
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of playlists to return", Value: 50},
				}, jsonFlags()...),
				Action: r.SpotifyPlaylists,
			},
		},
	}
}

// userCommand manages users
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage users",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "Display name", Required: true},
					&cli.BoolFlag{Name: "no-snapshots", Usage: "Disable automatic snapshots before each run"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.UserAdd,
			},
			{
				Name:   "list",
				Usage:  "List users",
				Flags:  jsonFlags(),
				Action: r.UserList,
			},
			{
				Name:   "delete",
				Usage:  "Delete a user and everything they own",
				Flags:  []cli.Flag{userFlag(true)},
				Action: r.UserDelete,
			},
			{
				Name:  "snapshots",
				Usage: "Turn automatic snapshots on or off",
				Commands: []*cli.Command{
					{Name: "on", Usage: "Snapshot playlists before each run", Flags: []cli.Flag{userFlag(true)}, Action: r.UserSnapshots(true)},
					{Name: "off", Usage: "Stop snapshotting playlists", Flags: []cli.Flag{userFlag(true)}, Action: r.UserSnapshots(false)},
				},
			},
		},
	}
}

// scheduleCommand manages and runs schedules
func scheduleCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "schedule",
		Aliases: []string{"s"},
		Usage:   "Manage and run scheduled playlist jobs",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Create a schedule",
				Flags: []cli.Flag{
					userFlag(true),
					&cli.StringFlag{Name: "job", Usage: "merge, reorder, merge_and_reorder or rotate", Required: true},
					&cli.StringFlag{Name: "target", Usage: "Target (production) playlist ID", Required: true},
					&cli.StringFlag{Name: "target-name", Usage: "Target playlist name, for display"},
					&cli.StringSliceFlag{Name: "source", Usage: "Source playlist ID (repeatable)"},
					&cli.StringFlag{Name: "algorithm", Usage: "Reorder algorithm: shuffle, reverse, artist_spread, recently_added"},
					&cli.StringFlag{Name: "params", Usage: "Algorithm parameters as a JSON object, e.g. '{\"seed\": 42}'"},
					&cli.StringFlag{Name: "mode", Usage: "Rotation mode: archive_oldest, refresh or swap"},
					&cli.IntFlag{Name: "count", Usage: "Tracks moved per rotation"},
					&cli.StringFlag{Name: "cron", Usage: "Standard 5-field cron expression; leave empty for manual runs"},
					&cli.BoolFlag{Name: "disabled", Usage: "Create the schedule disabled"},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.ScheduleAdd,
			},
			{
				Name:   "list",
				Usage:  "List schedules",
				Flags:  append([]cli.Flag{userFlag(false)}, jsonFlags()...),
				Action: r.ScheduleList,
			},
			{
				Name:      "show",
				Usage:     "Show a schedule and its recent runs",
				Arguments: idArgument(),
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}},
				Action:    r.ScheduleShow,
			},
			{
				Name:      "enable",
				Usage:     "Enable a schedule",
				Arguments: idArgument(),
				Action:    r.ScheduleSetEnabled(true),
			},
			{
				Name:      "disable",
				Usage:     "Disable a schedule",
				Arguments: idArgument(),
				Action:    r.ScheduleSetEnabled(false),
			},
			{
				Name:      "delete",
				Usage:     "Delete a schedule and its history",
				Arguments: idArgument(),
				Action:    r.ScheduleDelete,
			},
			{
				Name:      "run",
				Usage:     "Run schedules now",
				ArgsUsage: "[id...]",
				Flags: []cli.Flag{
					userFlag(false),
					&cli.BoolFlag{Name: "all", Usage: "Run every enabled schedule"},
					&cli.IntFlag{Name: "concurrency", Usage: "Concurrent runs for several schedules", Value: 4},
				},
				Action: r.ScheduleRun,
			},
			{
				Name:      "history",
				Usage:     "Show a schedule's execution history",
				Arguments: idArgument(),
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of runs", Value: 20},
					&cli.BoolFlag{Name: "markdown", Usage: "Render a Markdown table"},
				}, jsonFlags()...),
				Action: r.ScheduleHistory,
			},
		},
	}
}

// pairCommand manages archive pairs used by rotate schedules
func pairCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "pair",
		Usage: "Manage production/archive playlist pairs for rotation",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Pair a production playlist with an archive playlist",
				Flags: []cli.Flag{
					userFlag(true),
					&cli.StringFlag{Name: "production", Usage: "Production playlist ID", Required: true},
					&cli.StringFlag{Name: "production-name", Usage: "Production playlist name"},
					&cli.StringFlag{Name: "archive", Usage: "Archive playlist ID", Required: true},
					&cli.StringFlag{Name: "archive-name", Usage: "Archive playlist name"},
				},
				Action: r.PairAdd,
			},
			{
				Name:   "list",
				Usage:  "List archive pairs",
				Flags:  append([]cli.Flag{userFlag(true)}, jsonFlags()...),
				Action: r.PairList,
			},
			{
				Name:      "delete",
				Usage:     "Delete an archive pair",
				Arguments: idArgument(),
				Flags:     []cli.Flag{userFlag(true)},
				Action:    r.PairDelete,
			},
		},
	}
}

// snapshotCommand lists, exports and takes snapshots
func snapshotCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Inspect and export playlist snapshots",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List snapshots, newest first",
				Flags: append([]cli.Flag{
					userFlag(true),
					&cli.StringFlag{Name: "playlist", Usage: "Only snapshots of this playlist ID"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of snapshots", Value: 20},
				}, jsonFlags()...),
				Action: r.SnapshotList,
			},
			{
				Name:      "export",
				Usage:     "Write a snapshot to a file",
				Arguments: idArgument(),
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "csv, txt or json", Value: "csv"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file path"},
				},
				Action: r.SnapshotExport,
			},
			{
				Name:  "take",
				Usage: "Capture a playlist now",
				Flags: []cli.Flag{
					userFlag(true),
					&cli.StringFlag{Name: "playlist", Usage: "Playlist ID", Required: true},
					&cli.StringFlag{Name: "name", Usage: "Playlist name, for display"},
				},
				Action: r.SnapshotTake,
			},
		},
	}
}

// activityCommand prints the activity log
func activityCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "activity",
		Usage: "Show a user's activity log",
		Flags: append([]cli.Flag{
			userFlag(true),
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of entries", Value: 20},
		}, jsonFlags()...),
		Action: r.ActivityList,
	}
}

// daemonCommand runs the cron trigger
func daemonCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Run enabled schedules on their cron expressions until interrupted",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "tz", Usage: "IANA time zone for cron expressions (default: local)", Sources: cli.EnvVars("PLX_TZ")},
			&cli.BoolFlag{Name: "run-on-start", Usage: "Run every enabled schedule once before waiting for cron"},
		},
		Action: r.Daemon,
	}
}

// tuiCommand launches the dashboard
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Interactive schedule dashboard",
		Flags: []cli.Flag{
			userFlag(false),
			&cli.StringFlag{Name: "log-file", Usage: "Where to write logs while the dashboard is open", Value: "./tmp/plx-tui.log"},
		},
		Action: r.TUI,
	}
}
