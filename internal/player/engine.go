package player

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
)

// Engine keeps an [Output] in step with a [Store].
//
// It reconciles only when the pair (audio URL, play intent) changes, so the
// setters it calls itself never trigger another load or play.
type Engine struct {
	store  *Store
	out    Output
	logger *log.Logger

	mu          sync.Mutex
	generation  uint64
	boundURL    string
	failedURL   string
	lastURL     string
	lastPlaying bool
	seen        bool
	closed      bool

	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewEngine binds out to store. Call [Engine.Start] to begin reacting to changes.
func NewEngine(store *Store, out Output, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{store: store, out: out, logger: logger.WithPrefix("engine")}
}

// Start subscribes to the store and reconciles its current state.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()

	e.unsubscribe = e.store.Subscribe(e.reconcile)
	e.reconcile(e.store.Snapshot())
}

// Close detaches from the store, waits for in-flight play requests and releases the output.
func (e *Engine) Close() error {
	if e.unsubscribe != nil {
		e.unsubscribe()
	}

	e.mu.Lock()
	e.closed = true
	e.generation++
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()

	e.wg.Wait()
	e.out.Unload()
	return e.out.Close()
}

// Generation returns the identity of the currently attached source.
func (e *Engine) Generation() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

func (e *Engine) reconcile(s State) {
	url, playing := s.AudioURL(), s.IsPlaying

	e.mu.Lock()
	if e.closed || (e.seen && url == e.lastURL && playing == e.lastPlaying) {
		e.mu.Unlock()
		return
	}
	e.seen, e.lastURL, e.lastPlaying = true, url, playing

	if url == "" {
		if e.boundURL != "" {
			e.generation++
			e.boundURL = ""
			e.out.Unload()
			e.logger.Debug("source detached")
		}
		e.mu.Unlock()
		e.store.SetPlaying(false)
		e.store.SetLoadingAudio(false)
		return
	}

	if url != e.boundURL && url == e.failedURL && !playing {
		// retried on the next play request
		e.mu.Unlock()
		e.store.SetLoadingAudio(false)
		return
	}

	if url != e.boundURL {
		e.generation++
		e.boundURL = url
		e.out.Unload()
		err := e.out.Load(e.ctx, url, e.events(e.generation, url))
		if err != nil {
			e.generation++
			e.boundURL, e.failedURL = "", url
		} else {
			e.failedURL = ""
		}
		e.mu.Unlock()

		e.store.setPositionFor(url, 0)
		if err != nil {
			e.logger.Warn("failed to load source", "url", url, "err", err)
			e.store.SetPlaying(false)
			return
		}
		e.logger.Debug("source attached", "url", url)
		e.mu.Lock()
	}

	if !playing {
		e.out.Pause()
		e.mu.Unlock()
		e.store.SetLoadingAudio(false)
		return
	}

	gen, ctx := e.generation, e.ctx
	e.wg.Add(1)
	e.mu.Unlock()

	go e.play(ctx, gen, url)
}

// play runs one asynchronous play request for generation gen.
func (e *Engine) play(ctx context.Context, gen uint64, url string) {
	defer e.wg.Done()

	err := e.out.Play(ctx)

	e.mu.Lock()
	if gen != e.generation {
		e.mu.Unlock()
		e.logger.Debug("discarding play result for superseded source", "url", url)
		return
	}
	wantPlaying := e.lastPlaying
	if err == nil && !wantPlaying {
		// paused while the request was in flight
		e.out.Pause()
	}
	e.mu.Unlock()

	if err != nil {
		e.logger.Warn("playback failed", "url", url, "err", err)
		e.store.SetPlaying(false)
		return
	}
	e.store.SetLoadingAudio(false)
}

// events builds the device callbacks for generation gen playing url.
func (e *Engine) events(gen uint64, url string) Events {
	current := func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return gen == e.generation
	}

	stop := func() {
		e.store.SetPlaying(false)
		e.store.SetLoadingAudio(false)
	}

	return Events{
		TimeUpdate: func(seconds float64) {
			if finite(seconds) && current() {
				e.store.setPositionFor(url, seconds)
			}
		},
		Ended: func() {
			if current() {
				e.logger.Debug("track ended")
				stop()
			}
		},
		Error: func(err error) {
			if current() {
				e.logger.Warn("audio device error", "err", err)
				stop()
			}
		},
	}
}
