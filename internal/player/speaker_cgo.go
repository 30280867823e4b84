//go:build (linux && cgo) || windows || darwin

package player

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker(rate beep.SampleRate, buffer time.Duration) error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(rate, rate.N(buffer))
	})
	return speakerErr
}

// BeepOutput streams MP3 sources to the system speaker.
//
// Sources are opened lazily on the first Play, decoded while they download and
// resampled to the speaker rate.
type BeepOutput struct {
	open   OpenFunc
	cfg    SpeakerConfig
	logger *log.Logger
	decode func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)
	init   func(beep.SampleRate, time.Duration) error

	mu     sync.Mutex
	url    string
	events Events
	token  uint64
	stream beep.StreamSeekCloser
	format beep.Format
	ctrl   *beep.Ctrl
	stop   chan struct{}
}

// NewBeepOutput returns a speaker output reading sources through open.
func NewBeepOutput(open OpenFunc, cfg SpeakerConfig, logger *log.Logger) *BeepOutput {
	if logger == nil {
		logger = log.Default()
	}
	return &BeepOutput{
		open:   open,
		cfg:    cfg.withDefaults(),
		logger: logger.WithPrefix("speaker"),
		decode: mp3.Decode,
		init:   initSpeaker,
	}
}

func (b *BeepOutput) Load(_ context.Context, url string, events Events) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	b.token++
	b.url = url
	b.events = events
	return nil
}

func (b *BeepOutput) Unload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopLocked()
	b.token++
	b.url = ""
	b.events = Events{}
}

func (b *BeepOutput) Play(ctx context.Context) error {
	b.mu.Lock()
	if b.url == "" {
		b.mu.Unlock()
		return errNoSource
	}
	if b.ctrl != nil {
		speaker.Lock()
		b.ctrl.Paused = false
		speaker.Unlock()
		b.mu.Unlock()
		return nil
	}
	token, url := b.token, b.url
	b.mu.Unlock()

	body, err := b.open(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	stream, format, err := b.decode(body)
	if err != nil {
		body.Close()
		return fmt.Errorf("failed to decode source: %w", err)
	}

	rate := beep.SampleRate(b.cfg.SampleRate)
	if err := b.init(rate, b.cfg.Buffer); err != nil {
		stream.Close()
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	b.mu.Lock()
	if token != b.token {
		b.mu.Unlock()
		stream.Close()
		return errSuperseded
	}
	if b.ctrl != nil {
		// a concurrent Play for this source already started it
		b.mu.Unlock()
		stream.Close()
		return nil
	}
	b.stream = stream
	b.format = format
	b.ctrl = &beep.Ctrl{Streamer: beep.Resample(b.cfg.Quality, format.SampleRate, rate, stream)}
	b.stop = make(chan struct{})
	ctrl, stop := b.ctrl, b.stop
	b.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		// never block the audio thread
		go b.finished(token)
	})))
	go b.tick(token, stop)

	b.logger.Debug("playing", "url", url, "rate", format.SampleRate)
	return nil
}

func (b *BeepOutput) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.ctrl != nil {
		speaker.Lock()
		b.ctrl.Paused = true
		speaker.Unlock()
	}
}

func (b *BeepOutput) Close() error {
	b.Unload()
	return nil
}

// stopLocked silences and releases the current stream. b.mu must be held.
func (b *BeepOutput) stopLocked() {
	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
	if b.ctrl != nil {
		speaker.Lock()
		b.ctrl.Paused = true
		b.ctrl.Streamer = nil
		speaker.Unlock()
		b.ctrl = nil
	}
	if b.stream != nil {
		if err := b.stream.Close(); err != nil {
			b.logger.Debug("failed to close stream", "err", err)
		}
		b.stream = nil
	}
}

func (b *BeepOutput) finished(token uint64) {
	b.mu.Lock()
	if token != b.token || b.stream == nil {
		b.mu.Unlock()
		return
	}
	events := b.events
	err := b.stream.Err()
	// the next Play reopens the source from the start
	b.stopLocked()
	b.mu.Unlock()

	if err != nil && err != io.EOF {
		events.fail(err)
		return
	}
	events.ended()
}

func (b *BeepOutput) tick(token uint64, stop <-chan struct{}) {
	ticker := time.NewTicker(b.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			b.mu.Lock()
			if token != b.token || b.stream == nil {
				b.mu.Unlock()
				return
			}
			speaker.Lock()
			pos := b.stream.Position()
			speaker.Unlock()
			seconds := b.format.SampleRate.D(pos).Seconds()
			events := b.events
			b.mu.Unlock()

			events.timeUpdate(seconds)
		}
	}
}
