package playback

import (
	"context"
	"time"
)

type event interface{}

type startEvent struct {
	text string
	sink Sink
	done chan struct{}
}

type tickEvent struct {
	token uint64
}

type interruptEvent struct {
	sink Sink
}

type controlEvent int

const (
	controlPause controlEvent = iota
	controlResume
	controlToggle
	controlSkip
	controlAbandon
)

// Runner drives a Machine from a single goroutine. Controls and timer ticks
// are posted as events, so transitions never overlap.
type Runner struct {
	machine *Machine
	events  chan event
	quit    chan struct{}
	tickers map[uint64]chan struct{}
	done    chan struct{}
}

// NewRunner creates a runner around a new Machine built from opts.
// opts.Timer is replaced by the runner's own ticker-based timer.
func NewRunner(opts Options) *Runner {
	r := &Runner{
		events:  make(chan event),
		quit:    make(chan struct{}),
		tickers: make(map[uint64]chan struct{}),
	}

	onChange := opts.OnChange
	opts.OnChange = func(s State) {
		if onChange != nil {
			onChange(s)
		}
		if s == Completed || s == Idle {
			r.settle()
		}
	}
	opts.Timer = (*runnerTimer)(r)

	r.machine = New(opts)
	return r
}

// Run processes events until ctx is cancelled
func (r *Runner) Run(ctx context.Context) {
	defer close(r.quit)
	defer r.stopTickers()

	for {
		select {
		case <-ctx.Done():
			r.machine.Abandon()
			return
		case ev := <-r.events:
			r.handle(ev)
		}
	}
}

// Start begins a session. The returned channel is closed when that session
// completes, is abandoned or is superseded.
func (r *Runner) Start(text string, sink Sink) <-chan struct{} {
	done := make(chan struct{})
	if !r.post(startEvent{text: text, sink: sink, done: done}) {
		close(done)
	}
	return done
}

// Pause pauses the live session
func (r *Runner) Pause() { r.post(controlPause) }

// Resume resumes a paused session
func (r *Runner) Resume() { r.post(controlResume) }

// TogglePause flips between paused and playing
func (r *Runner) TogglePause() { r.post(controlToggle) }

// Skip force-completes the live session
func (r *Runner) Skip() { r.post(controlSkip) }

// Interrupt force-completes the live session if it writes to sink
func (r *Runner) Interrupt(sink Sink) { r.post(interruptEvent{sink: sink}) }

// Abandon drops the live session without committing it
func (r *Runner) Abandon() { r.post(controlAbandon) }

// Wait blocks until done is closed or ctx ends
func (r *Runner) Wait(ctx context.Context, done <-chan struct{}) error {
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) post(ev event) bool {
	select {
	case r.events <- ev:
		return true
	case <-r.quit:
		return false
	}
}

func (r *Runner) handle(ev event) {
	switch ev := ev.(type) {
	case startEvent:
		r.settle()
		r.done = ev.done
		r.machine.Start(ev.text, ev.sink)
	case tickEvent:
		r.machine.Tick(ev.token)
	case interruptEvent:
		r.machine.Interrupt(ev.sink)
	case controlEvent:
		switch ev {
		case controlPause:
			r.machine.Pause()
		case controlResume:
			r.machine.Resume()
		case controlToggle:
			r.machine.TogglePause()
		case controlSkip:
			r.machine.Skip()
		case controlAbandon:
			r.machine.Abandon()
		}
	}
}

// settle releases whoever waits on the current session
func (r *Runner) settle() {
	if r.done != nil {
		close(r.done)
		r.done = nil
	}
}

func (r *Runner) stopTickers() {
	for token, stop := range r.tickers {
		close(stop)
		delete(r.tickers, token)
	}
}

// runnerTimer implements Timer with one time.Ticker goroutine per arm.
// Arm and Disarm are only called from the Run goroutine.
type runnerTimer Runner

func (t *runnerTimer) Arm(token uint64, interval time.Duration) {
	stop := make(chan struct{})
	t.tickers[token] = stop
	events, quit := t.events, t.quit

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				select {
				case events <- tickEvent{token: token}:
				case <-stop:
					return
				case <-quit:
					return
				}
			}
		}
	}()
}

func (t *runnerTimer) Disarm(token uint64) {
	if stop, ok := t.tickers[token]; ok {
		close(stop)
		delete(t.tickers, token)
	}
}
