// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output raw JSON"}
}

func playlistIDFlag() cli.Flag {
	return &cli.Int64Flag{Name: "id", Usage: "Playlist ID", Required: true}
}

// serveCommand runs the proxy and web shell
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the proxy server and web player",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the web player in a browser once listening",
			},
		},
		Action: r.Serve,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "config",
				Usage:  "Write a config.toml populated with defaults",
				Action: r.SetupConfig,
			},
		},
	}
}

// authCommand manages the stored proxy session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in through the proxy and store the session",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Account username",
						Sources: cli.EnvVars("MUSIX_USERNAME"),
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("MUSIX_PASSWORD"),
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Import the session cookies from a file holding a browser 'Copy as cURL' command",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create an account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first-name", Usage: "First name", Required: true},
					&cli.StringFlag{Name: "last-name", Usage: "Last name", Required: true},
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username", Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("MUSIX_PASSWORD"), Required: true},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "logout",
				Usage:  "Log out and forget the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show stored sessions and proxy health",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.AuthStatus,
			},
		},
	}
}

func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Browse and download songs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List one page of songs",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"s"}, Usage: "Filter by title"},
					&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
					&cli.IntFlag{Name: "per-page", Usage: "Songs per page (defaults to client.songs_per_page)"},
					jsonFlag(),
				},
				Action: r.SongsList,
			},
			{
				Name:  "download",
				Usage: "Download one song",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "Song ID", Required: true},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Directory to save into (defaults to downloads.dir)"},
					&cli.BoolFlag{Name: "overwrite", Usage: "Download again even when already saved"},
				},
				Action: r.SongsDownload,
			},
		},
	}
}

func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"pl"},
		Usage:   "Manage playlists",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List one page of playlists",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "page", Usage: "Page number", Value: 1},
					&cli.IntFlag{Name: "per-page", Usage: "Playlists per page (defaults to client.playlists_per_page)"},
					jsonFlag(),
				},
				Action: r.PlaylistsList,
			},
			{
				Name:   "show",
				Usage:  "Show a playlist and its songs",
				Flags:  []cli.Flag{playlistIDFlag(), jsonFlag()},
				Action: r.PlaylistsShow,
			},
			{
				Name:  "create",
				Usage: "Create a playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Playlist title", Required: true},
					&cli.StringFlag{Name: "cover", Usage: "Cover filename returned by upload-cover"},
				},
				Action: r.PlaylistsCreate,
			},
			{
				Name:  "update",
				Usage: "Rename a playlist or change its cover",
				Flags: []cli.Flag{
					playlistIDFlag(),
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"},
					&cli.StringFlag{Name: "cover", Usage: "New cover filename"},
				},
				Action: r.PlaylistsUpdate,
			},
			{
				Name:   "delete",
				Usage:  "Delete a playlist",
				Flags:  []cli.Flag{playlistIDFlag()},
				Action: r.PlaylistsDelete,
			},
			{
				Name:  "add-song",
				Usage: "Add a song to a playlist",
				Flags: []cli.Flag{
					playlistIDFlag(),
					&cli.Int64Flag{Name: "song", Usage: "Song ID", Required: true},
				},
				Action: r.PlaylistsAddSong,
			},
			{
				Name:  "remove-song",
				Usage: "Remove a song from a playlist",
				Flags: []cli.Flag{
					playlistIDFlag(),
					&cli.Int64Flag{Name: "song", Usage: "Song ID", Required: true},
				},
				Action: r.PlaylistsRemoveSong,
			},
			{
				Name:  "upload-cover",
				Usage: "Upload a cover image and print its filename",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "id", Usage: "Also set the uploaded cover on this playlist"},
				},
				Action: r.PlaylistsUploadCover,
			},
			{
				Name:  "export",
				Usage: "Export a playlist to disk",
				Flags: []cli.Flag{
					playlistIDFlag(),
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, markdown or txt",
						Value:   "json",
					},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory", Value: "."},
				},
				Action: r.PlaylistsExport,
			},
			{
				Name:  "download",
				Usage: "Download every song of a playlist",
				Flags: []cli.Flag{
					playlistIDFlag(),
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Directory to save into (defaults to downloads.dir)"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent downloads (defaults to downloads.workers)"},
					&cli.BoolFlag{Name: "overwrite", Usage: "Download again even when already saved"},
				},
				Action: r.PlaylistsDownload,
			},
		},
	}
}

func downloadsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "downloads",
		Usage: "Inspect recorded downloads",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recorded downloads",
				Flags: []cli.Flag{
					&cli.Int64Flag{Name: "playlist", Usage: "Only downloads made for this playlist"},
					jsonFlag(),
				},
				Action: r.DownloadsList,
			},
		},
	}
}

// apiCommand handles direct upstream API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the upstream music API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET an upstream path with the stored session, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				},
				Action: r.APIGet,
			},
			{
				Name:   "health",
				Usage:  "Check the proxy health endpoint",
				Action: r.APIHealth,
			},
		},
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the terminal player",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the player owns the terminal",
				Value: "musix-tui.log",
			},
		},
		Action: r.TUI,
	}
}
