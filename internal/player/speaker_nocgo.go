//go:build !((linux && cgo) || windows || darwin)

package player

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/musix/internal/shared"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires cgo on linux for the native sound libraries.
const AudioAvailable = false

// BeepOutput is a silent output for builds without audio support. Every Play fails,
// which the engine turns into a paused state.
type BeepOutput struct {
	mu  sync.Mutex
	url string
}

// NewBeepOutput returns a silent output.
func NewBeepOutput(_ OpenFunc, _ SpeakerConfig, _ *log.Logger) *BeepOutput {
	return &BeepOutput{}
}

func (b *BeepOutput) Load(_ context.Context, url string, _ Events) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.url = url
	return nil
}

func (b *BeepOutput) Unload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.url = ""
}

func (b *BeepOutput) Play(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.url == "" {
		return errNoSource
	}
	return shared.ErrAudioUnavailable
}

func (b *BeepOutput) Pause() {}

func (b *BeepOutput) Close() error { return nil }
