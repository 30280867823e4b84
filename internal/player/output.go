package player

import "context"

// Events are the reports an [Output] sends back while a source is attached.
//
// Callbacks may be invoked from any goroutine.
type Events struct {
	TimeUpdate func(seconds float64)
	Ended      func()
	Error      func(err error)
}

func (e Events) timeUpdate(seconds float64) {
	if e.TimeUpdate != nil {
		e.TimeUpdate(seconds)
	}
}

func (e Events) ended() {
	if e.Ended != nil {
		e.Ended()
	}
}

func (e Events) fail(err error) {
	if e.Error != nil {
		e.Error(err)
	}
}

// Output is an audio device that plays one source at a time.
type Output interface {
	// Load attaches url as the current source. Events for that source are
	// reported through events until the next Load or Unload.
	Load(ctx context.Context, url string, events Events) error
	// Unload stops playback and detaches the current source.
	Unload()
	// Play starts or resumes playback and returns once audio is running or has failed.
	Play(ctx context.Context) error
	// Pause halts playback, keeping the source attached.
	Pause()
	// Close releases the device.
	Close() error
}
