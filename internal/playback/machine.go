package playback

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultWordInterval is the delay between revealed words
const DefaultWordInterval = 75 * time.Millisecond

// State of the playback machine
type State int

const (
	Idle State = iota
	Playing
	Paused
	Completed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Timer arms recurring ticks. Every tick for an arm must be delivered back
// through Machine.Tick with the token passed to Arm, until Disarm(token).
type Timer interface {
	Arm(token uint64, interval time.Duration)
	Disarm(token uint64)
}

// Speaker plays a finished reply aloud
type Speaker interface {
	Speak(text string)
	Stop()
}

// Options wires a Machine to its collaborators
type Options struct {
	Timer    Timer
	Speaker  Speaker
	Commit   func(text string) // records the finished reply, called once per session
	OnChange func(State)
	Interval time.Duration
	Instant  bool
	Logger   zerolog.Logger
}

type session struct {
	id       string
	text     string
	words    []string
	revealed int
	sink     Sink
	token    uint64
}

// Machine is the typing-playback state machine. At most one session is live.
type Machine struct {
	timer    Timer
	speaker  Speaker
	commit   func(string)
	onChange func(State)
	interval time.Duration
	instant  bool
	logger   zerolog.Logger

	state     State
	current   *session
	lastToken uint64
}

// New creates an idle machine
func New(opts Options) *Machine {
	m := &Machine{
		timer:    opts.Timer,
		speaker:  opts.Speaker,
		commit:   opts.Commit,
		onChange: opts.OnChange,
		interval: opts.Interval,
		instant:  opts.Instant,
		logger:   opts.Logger.With().Str("component", "playback").Logger(),
	}
	if m.timer == nil {
		m.timer = nopTimer{}
	}
	if m.speaker == nil {
		m.speaker = nopSpeaker{}
	}
	if m.commit == nil {
		m.commit = func(string) {}
	}
	if m.interval <= 0 {
		m.interval = DefaultWordInterval
	}
	return m
}

// State returns the current state
func (m *Machine) State() State {
	return m.state
}

// Active reports whether a session is live (playing or paused)
func (m *Machine) Active() bool {
	return m.current != nil
}

// Revealed returns how many words of the live session are visible
func (m *Machine) Revealed() int {
	if m.current == nil {
		return 0
	}
	return m.current.revealed
}

// Interval returns the word interval
func (m *Machine) Interval() time.Duration {
	return m.interval
}

// Instant reports whether replies are revealed at once
func (m *Machine) Instant() bool {
	return m.instant
}

// SetInstant toggles reveal-instantly mode for sessions started afterwards
func (m *Machine) SetInstant(on bool) {
	m.instant = on
}

// Start begins revealing text into sink, cancelling any live session
// without committing its partial text.
func (m *Machine) Start(text string, sink Sink) {
	if prev := m.current; prev != nil {
		m.disarm(prev)
		m.current = nil
		m.logger.Debug().Str("session", prev.id).Int("revealed", prev.revealed).Msg("session superseded")
	}

	s := &session{
		id:    uuid.NewString(),
		text:  text,
		words: splitWords(text),
		sink:  sink,
	}
	m.current = s

	m.logger.Debug().Str("session", s.id).Int("words", len(s.words)).Bool("instant", m.instant).Msg("session started")

	if m.instant || len(s.words) == 0 {
		sink.Replace(text)
		m.complete()
		return
	}

	m.arm(s)
	m.setState(Playing)
}

// Tick reveals the next word if token belongs to the live, playing session
func (m *Machine) Tick(token uint64) {
	s := m.current
	if s == nil || m.state != Playing || token == 0 || token != s.token {
		return
	}

	if s.sink.Detached() {
		m.logger.Debug().Str("session", s.id).Msg("sink detached, abandoning session")
		m.drop()
		m.setState(Idle)
		return
	}

	s.sink.Write(s.words[s.revealed])
	s.revealed++

	if s.revealed == len(s.words) {
		m.complete()
	}
}

// Pause stops the timer and any speech, keeping the session
func (m *Machine) Pause() bool {
	if m.state != Playing || m.current == nil {
		return false
	}

	m.disarm(m.current)
	m.speaker.Stop()
	m.setState(Paused)
	return true
}

// Resume continues a paused session from the next unrevealed word
func (m *Machine) Resume() bool {
	if m.state != Paused || m.current == nil {
		return false
	}

	m.arm(m.current)
	m.setState(Playing)
	return true
}

// TogglePause is the single pause/resume control
func (m *Machine) TogglePause() bool {
	if m.state == Paused {
		return m.Resume()
	}
	return m.Pause()
}

// Skip force-completes the live session
func (m *Machine) Skip() bool {
	if m.current == nil {
		return false
	}

	m.forceComplete()
	return true
}

// Interrupt force-completes the live session if sink is its output surface
func (m *Machine) Interrupt(sink Sink) bool {
	if m.current == nil || m.current.sink != sink {
		return false
	}

	m.forceComplete()
	return true
}

// Abandon drops the live session without committing and silences speech
func (m *Machine) Abandon() {
	m.speaker.Stop()
	if m.current == nil {
		if m.state != Idle {
			m.setState(Idle)
		}
		return
	}

	m.logger.Debug().Str("session", m.current.id).Msg("session abandoned")
	m.drop()
	m.setState(Idle)
}

func (m *Machine) forceComplete() {
	s := m.current
	m.disarm(s)
	s.revealed = len(s.words)
	s.sink.Replace(s.text)
	m.complete()
}

// complete commits, speaks and clears the live session
func (m *Machine) complete() {
	s := m.current
	m.disarm(s)
	m.current = nil

	m.logger.Debug().Str("session", s.id).Msg("session completed")

	m.commit(s.text)
	m.speaker.Speak(s.text)
	m.setState(Completed)
}

func (m *Machine) drop() {
	m.disarm(m.current)
	m.current = nil
}

func (m *Machine) arm(s *session) {
	m.lastToken++
	s.token = m.lastToken
	m.timer.Arm(s.token, m.interval)
}

func (m *Machine) disarm(s *session) {
	if s.token == 0 {
		return
	}
	m.timer.Disarm(s.token)
	s.token = 0
}

func (m *Machine) setState(state State) {
	m.state = state
	if m.onChange != nil {
		m.onChange(state)
	}
}

type nopTimer struct{}

func (nopTimer) Arm(uint64, time.Duration) {}
func (nopTimer) Disarm(uint64)             {}

type nopSpeaker struct{}

func (nopSpeaker) Speak(string) {}
func (nopSpeaker) Stop()        {}
