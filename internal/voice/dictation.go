package voice

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Locale is the only recognition language
const Locale = "en-US"

// Alternative is one hypothesis for a recognised phrase
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Result holds the alternatives for one phrase, best first
type Result []Alternative

// recognizerLine is one line of recogniser output
type recognizerLine struct {
	Results []Result `json:"results"`
	Final   bool     `json:"final"`
}

// Event is delivered for every interim result and once when the session ends
type Event struct {
	Transcript string
	Final      bool
	Done       bool
	Err        error
}

// Transcript joins the top alternative of every result, in order
func Transcript(results []Result) string {
	var sb strings.Builder
	for _, r := range results {
		if len(r) > 0 {
			sb.WriteString(r[0].Transcript)
		}
	}
	return sb.String()
}

// ErrUnsupported is returned by Start when no recogniser is available
var ErrUnsupported = errors.New("speech recognition is not supported")

// ErrListening is returned by Start while a session is live
var ErrListening = errors.New("dictation already in progress")

// Dictation runs an external recogniser that prints one JSON document per
// line, each carrying every result heard so far.
type Dictation struct {
	mu     sync.Mutex
	path   string
	args   []string
	cancel context.CancelFunc
	logger zerolog.Logger

	sessions sync.WaitGroup
}

// NewDictation prepares the recogniser command (a program name plus optional arguments)
func NewDictation(command string, logger zerolog.Logger) *Dictation {
	d := &Dictation{logger: logger.With().Str("component", "dictation").Logger()}

	fields := strings.Fields(command)
	if len(fields) == 0 {
		return d
	}

	path, err := exec.LookPath(fields[0])
	if err != nil {
		d.logger.Warn().Str("command", fields[0]).Msg("speech recognition is not available")
		return d
	}

	d.path = path
	d.args = fields[1:]
	return d
}

// Supported reports whether dictation can be started
func (d *Dictation) Supported() bool {
	return d.path != ""
}

// Listening reports whether a session is live
func (d *Dictation) Listening() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancel != nil
}

// Start launches a dictation session. The channel receives interim
// transcripts and a final Done event, then closes. After Stop, or once ctx
// ends, events nobody is reading are dropped; the channel still closes.
func (d *Dictation) Start(ctx context.Context) (<-chan Event, error) {
	if !d.Supported() {
		return nil, ErrUnsupported
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		return nil, ErrListening
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	args := append(append([]string{}, d.args...), "--lang", Locale)
	cmd := exec.CommandContext(ctx, d.path, args...)
	cmd.Env = append(os.Environ(), "DICTATION_LOCALE="+Locale)
	cmd.WaitDelay = time.Second

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open recogniser output: %w", err)
	}

	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to start recogniser: %w", err)
	}

	d.cancel = cancel
	events := make(chan Event, 1)

	d.sessions.Add(1)
	go func() {
		defer d.sessions.Done()
		defer close(events)

		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var parsed recognizerLine
			if err := json.Unmarshal(line, &parsed); err != nil {
				d.logger.Debug().Err(err).Msg("skipping malformed recogniser line")
				continue
			}

			select {
			case events <- Event{Transcript: Transcript(parsed.Results), Final: parsed.Final}:
			case <-ctx.Done():
			}
		}

		err := cmd.Wait()
		stopped := ctx.Err() != nil

		d.mu.Lock()
		d.cancel = nil
		d.mu.Unlock()
		cancel()

		if stopped {
			err = nil
		}
		if err != nil {
			d.logger.Error().Err(err).Msg("speech recognition error")
		}

		done := Event{Done: true, Err: err}
		if stopped {
			select {
			case events <- done:
			default:
			}
			return
		}
		select {
		case events <- done:
		case <-parent.Done():
		}
	}()

	return events, nil
}

// Stop ends the live session; its channel still delivers the Done event
func (d *Dictation) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
	}
}
