package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/musix/internal/library"
	"github.com/desertthunder/musix/internal/player"
	"github.com/desertthunder/musix/internal/shared"
	"github.com/desertthunder/musix/internal/ui"
)

// TUI launches the terminal player: the library browser with the now-playing sheet.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, closer, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	defer closer.Close()
	r.SetLogger(fileLogger)

	client, err := r.apiClient()
	if err != nil {
		return err
	}
	config := r.cfg()

	ctx, store, teardown := player.Provide(ctx)
	defer teardown()

	if !player.AudioAvailable {
		fileLogger.Warn("audio output unavailable, tracks will not be heard", "error", shared.ErrAudioUnavailable)
	}
	out := player.NewBeepOutput(client.Open, player.SpeakerConfig{
		SampleRate: config.Player.SampleRate,
		Buffer:     time.Duration(config.Player.BufferMS) * time.Millisecond,
		Quality:    config.Player.ResampleQuality,
		Tick:       time.Duration(config.Player.TickMS) * time.Millisecond,
	}, fileLogger)

	engine := player.NewEngine(store, out, fileLogger)
	engine.Start(ctx)
	defer func() {
		if err := engine.Close(); err != nil {
			fileLogger.Warn("failed to close audio engine", "error", err)
		}
	}()

	lib := library.New(client, library.Options{
		SongsPerPage:     config.Client.SongsPerPage,
		PlaylistsPerPage: config.Client.PlaylistsPerPage,
		Logger:           fileLogger,
	})

	model, err := ui.NewModel(ctx, lib, ui.Options{
		MediaURL: config.Upstream.MediaURL,
		Debounce: config.Client.SearchDebounce(),
		Logger:   fileLogger,
	})
	if err != nil {
		return err
	}
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
