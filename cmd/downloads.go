package main

import (
	"context"

	"github.com/samber/lo"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/musix/internal/formatter"
	"github.com/desertthunder/musix/internal/models"
)

// DownloadsList prints the recorded downloads, newest first.
func (r *Runner) DownloadsList(ctx context.Context, cmd *cli.Command) error {
	repo, err := r.downloads()
	if err != nil {
		return err
	}

	var playlistID *int64
	if cmd.IsSet("playlist") {
		id := cmd.Int64("playlist")
		playlistID = &id
	}

	records, err := repo.List(playlistID)
	if err != nil {
		return err
	}
	downloads := lo.Map(records, func(d *models.Download, _ int) models.Download { return *d })

	if cmd.Bool("json") {
		return r.writeJSON(downloads, true)
	}
	if len(downloads) == 0 {
		return r.writePlain("No downloads recorded\n")
	}
	formatter.DownloadsTable(r.output, downloads)
	return nil
}
