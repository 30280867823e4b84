package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/musix/internal/formatter"
	"github.com/desertthunder/musix/internal/models"
	"github.com/desertthunder/musix/internal/repositories"
	"github.com/desertthunder/musix/internal/services"
	"github.com/desertthunder/musix/internal/shared"
	"github.com/desertthunder/musix/internal/tasks"
)

// SongsList prints one page of songs, optionally filtered by title.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	client, err := r.apiClient()
	if err != nil {
		return err
	}

	perPage := cmd.Int("per-page")
	if perPage <= 0 {
		perPage = r.cfg().Client.SongsPerPage
	}
	q := services.PageQuery{
		Page:    max(cmd.Int("page"), 1),
		PerPage: perPage,
		Term:    shared.NormalizeTerm(cmd.String("search")),
	}

	r.logger.Debug("fetching songs", "page", q.Page, "per_page", q.PerPage, "term", q.Term)
	page, err := client.Songs(ctx, q)
	if err != nil {
		return r.apiError(err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, true)
	}

	if len(page.Items) == 0 {
		if q.Term != "" {
			return r.writePlain("No songs match %q\n", q.Term)
		}
		return r.writePlain("No songs found\n")
	}

	formatter.SongsTable(r.output, page.Items, (page.CurrentPage-1)*page.PerPage)
	formatter.PageFooter(r.output, page)
	return nil
}

// SongsDownload saves one song into the downloads directory.
func (r *Runner) SongsDownload(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Int64("id")
	if id <= 0 {
		return fmt.Errorf("%w: --id must be a positive song id", shared.ErrInvalidFlag)
	}

	engine, err := r.downloadEngine()
	if err != nil {
		return err
	}

	opts := r.downloadOpts(cmd)
	result, err := r.withProgress(func(prog chan<- tasks.ProgressUpdate) (*tasks.DownloadResult, error) {
		return engine.DownloadSongs(ctx, prog, []models.Song{{ID: id}}, opts)
	})
	if err != nil {
		return err
	}
	return r.writeDownloadSummary(result)
}

// downloadEngine wires the proxy client and the downloads table into a [tasks.Engine].
func (r *Runner) downloadEngine() (*tasks.Engine, error) {
	client, err := r.apiClient()
	if err != nil {
		return nil, err
	}
	repo, err := r.downloads()
	if err != nil {
		return nil, err
	}
	return tasks.NewEngine(client, repositories.NewDownloadRecorder(repo), shared.WithLogger(r.logger, "component", "downloads")), nil
}

func (r *Runner) downloadOpts(cmd *cli.Command) tasks.DownloadOpts {
	config := r.cfg().Downloads
	opts := tasks.DownloadOpts{
		Dir:       config.Dir,
		Workers:   config.Workers,
		RateLimit: config.RequestsPerSecond,
		Overwrite: cmd.Bool("overwrite"),
	}
	if dir := cmd.String("output"); dir != "" {
		opts.Dir = dir
	}
	if cmd.IsSet("workers") {
		opts.Workers = cmd.Int("workers")
	}
	return opts
}

// withProgress runs fn with a progress channel whose updates are printed as they arrive.
func (r *Runner) withProgress(fn func(chan<- tasks.ProgressUpdate) (*tasks.DownloadResult, error)) (*tasks.DownloadResult, error) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchPlaylist:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.DownloadSong:
				r.logger.Debug(update.Message, "step", update.Step, "total", update.Total)
			case tasks.SongDownloaded:
				r.writePlain("  ✓ [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.SongSkipped:
				r.writePlain("  · [%d/%d] %s\n", update.Step, update.Total, update.Message)
			case tasks.SongFailed:
				r.writePlain("  ✗ [%d/%d] %s\n", update.Step, update.Total, update.Message)
			}
		}
	}()

	result, err := fn(progressCh)
	close(progressCh)
	<-done
	return result, err
}

func (r *Runner) writeDownloadSummary(result *tasks.DownloadResult) error {
	if result == nil {
		return nil
	}
	r.writePlainln("%d downloaded, %d skipped, %d failed (%s) into %s",
		result.Downloaded, result.Skipped, result.Failed, formatter.FormatSize(result.Bytes), result.Dir)
	if result.Failed > 0 {
		for _, res := range result.Results {
			if res.Err != nil {
				r.logger.Error("download failed", "song", res.SongID, "title", res.Title, "error", res.Err)
			}
		}
		return fmt.Errorf("%w: %d of %d songs failed", shared.ErrAPIRequest, result.Failed, result.Total)
	}
	return nil
}
