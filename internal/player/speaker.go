package player

import (
	"context"
	"errors"
	"io"
	"time"
)

// OpenFunc opens an audio source URL for streaming.
type OpenFunc func(ctx context.Context, url string) (io.ReadCloser, error)

// SpeakerConfig tunes the speaker output.
type SpeakerConfig struct {
	SampleRate int
	Buffer     time.Duration
	Quality    int
	Tick       time.Duration
}

func (c SpeakerConfig) withDefaults() SpeakerConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = 44100
	}
	if c.Buffer <= 0 {
		c.Buffer = 100 * time.Millisecond
	}
	if c.Quality <= 0 {
		c.Quality = 4
	}
	if c.Tick <= 0 {
		c.Tick = 250 * time.Millisecond
	}
	return c
}

var (
	errNoSource   = errors.New("player: no source attached")
	errSuperseded = errors.New("player: source replaced before playback started")
)
