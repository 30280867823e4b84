package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/musix/internal/formatter"
	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/services"
	"github.com/desertthunder/musix/internal/shared"
	"github.com/desertthunder/musix/internal/tasks"
)

// PlaylistsList prints one page of playlists.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient()
	if err != nil {
		return err
	}

	perPage := cmd.Int("per-page")
	if perPage <= 0 {
		perPage = r.cfg().Client.PlaylistsPerPage
	}

	page, err := client.Playlists(ctx, services.PageQuery{Page: max(cmd.Int("page"), 1), PerPage: perPage})
	if err != nil {
		return r.apiError(err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, true)
	}
	if len(page.Items) == 0 {
		return r.writePlain("No playlists yet. Create one with 'musix playlists create --title ...'\n")
	}

	formatter.PlaylistsTable(r.output, page.Items)
	formatter.PageFooter(r.output, page)
	return nil
}

// PlaylistsShow prints a playlist and its songs.
func (r *Runner) PlaylistsShow(ctx context.Context, cmd *cli.Command) error {
	detail, err := r.fetchPlaylist(ctx, cmd.Int64("id"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(detail, true)
	}

	formatter.PlaylistDetailTable(r.output, detail)
	return r.writePlain("cover: %s\n", models.CoverURL(detail.Cover, r.cfg().Upstream.MediaURL))
}

func (r *Runner) fetchPlaylist(ctx context.Context, id int64) (models.PlaylistDetail, error) {
	if id <= 0 {
		return models.PlaylistDetail{}, fmt.Errorf("%w: --id must be a positive playlist id", shared.ErrInvalidFlag)
	}
	client, err := r.apiClient()
	if err != nil {
		return models.PlaylistDetail{}, err
	}
	detail, err := client.Playlist(ctx, id)
	if err != nil {
		return models.PlaylistDetail{}, r.apiError(err)
	}
	return detail, nil
}

// PlaylistsCreate creates a playlist.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	title := strings.TrimSpace(cmd.String("title"))
	if title == "" {
		return fmt.Errorf("%w: --title must not be blank", shared.ErrInvalidFlag)
	}

	client, err := r.apiClient()
	if err != nil {
		return err
	}

	if _, err := client.CreatePlaylist(ctx, title, cmd.String("cover")); err != nil {
		return r.apiError(err)
	}
	r.logger.Info("playlist created", "title", title)
	return r.writePlain("✓ Created playlist %q\n", title)
}

// PlaylistsUpdate changes a playlist's title and/or cover.
func (r *Runner) PlaylistsUpdate(ctx context.Context, cmd *cli.Command) error {
	var in services.PlaylistUpdate
	if cmd.IsSet("title") {
		title := strings.TrimSpace(cmd.String("title"))
		if title == "" {
			return fmt.Errorf("%w: --title must not be blank", shared.ErrInvalidFlag)
		}
		in.Title = &title
	}
	if cmd.IsSet("cover") {
		cover := cmd.String("cover")
		in.Cover = &cover
	}
	if in.Title == nil && in.Cover == nil {
		return fmt.Errorf("%w: pass --title and/or --cover", shared.ErrMissingArgument)
	}

	client, err := r.apiClient()
	if err != nil {
		return err
	}
	id := cmd.Int64("id")
	if _, err := client.UpdatePlaylist(ctx, id, in); err != nil {
		return r.apiError(err)
	}
	return r.writePlain("✓ Updated playlist %d\n", id)
}

// PlaylistsDelete deletes a playlist.
func (r *Runner) PlaylistsDelete(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient()
	if err != nil {
		return err
	}
	id := cmd.Int64("id")
	if err := client.DeletePlaylist(ctx, id); err != nil {
		return r.apiError(err)
	}
	return r.writePlain("✓ Deleted playlist %d\n", id)
}

// PlaylistsAddSong appends a song to a playlist.
func (r *Runner) PlaylistsAddSong(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient()
	if err != nil {
		return err
	}
	id, song := cmd.Int64("id"), cmd.Int64("song")
	if err := client.AddSong(ctx, id, song); err != nil {
		return r.apiError(err)
	}
	return r.writePlain("✓ Added song %d to playlist %d\n", song, id)
}

// PlaylistsRemoveSong removes a song from a playlist.
func (r *Runner) PlaylistsRemoveSong(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient()
	if err != nil {
		return err
	}
	id, song := cmd.Int64("id"), cmd.Int64("song")
	if err := client.RemoveSong(ctx, id, song); err != nil {
		return r.apiError(err)
	}
	return r.writePlain("✓ Removed song %d from playlist %d\n", song, id)
}

// PlaylistsUploadCover uploads an image and prints the stored filename. With --id the
// playlist's cover is set to it.
func (r *Runner) PlaylistsUploadCover(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: image path", shared.ErrMissingArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInvalidArgument, err)
	}
	defer f.Close()

	client, err := r.apiClient()
	if err != nil {
		return err
	}

	filename, err := client.UploadCover(ctx, path, f)
	if err != nil {
		return r.apiError(err)
	}
	r.logger.Info("cover uploaded", "file", path, "filename", filename)

	if id := cmd.Int64("id"); id > 0 {
		if _, err := client.UpdatePlaylist(ctx, id, services.PlaylistUpdate{Cover: &filename}); err != nil {
			return r.apiError(err)
		}
		return r.writePlain("✓ Cover %s set on playlist %d\n", filename, id)
	}
	return r.writePlain("%s\n", filename)
}

// PlaylistsExport writes a playlist to disk in the chosen format.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	detail, err := r.fetchPlaylist(ctx, cmd.Int64("id"))
	if err != nil {
		return err
	}

	format := strings.ToLower(cmd.String("format"))
	cover := models.CoverURL(detail.Cover, r.cfg().Upstream.MediaURL)

	files, err := formatter.WriteExport(format, detail, cmd.String("output"), cover)
	if err != nil {
		return err
	}

	r.logger.Info("playlist exported", "id", detail.ID, "format", format, "files", len(files))
	r.writePlain("✓ Exported %s (%d songs)\n", detail.Title, len(detail.Songs))
	for _, f := range files {
		r.writePlain("  %s\n", f)
	}
	return nil
}

// PlaylistsDownload downloads every song of a playlist.
func (r *Runner) PlaylistsDownload(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Int64("id")
	if id <= 0 {
		return fmt.Errorf("%w: --id must be a positive playlist id", shared.ErrInvalidFlag)
	}

	engine, err := r.downloadEngine()
	if err != nil {
		return err
	}

	opts := r.downloadOpts(cmd)
	result, err := r.withProgress(func(prog chan<- tasks.ProgressUpdate) (*tasks.DownloadResult, error) {
		return engine.DownloadPlaylist(ctx, prog, id, opts)
	})
	if err != nil {
		r.writeDownloadSummary(result)
		return r.apiError(err)
	}

	r.writePlainHeader(result.Playlist)
	return r.writeDownloadSummary(result)
}
