// Package ui is the interactive chat view.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/rs/zerolog"

	"gemini-chat/internal/chat"
	"gemini-chat/internal/gemini"
	"gemini-chat/internal/history"
	"gemini-chat/internal/playback"
	"gemini-chat/internal/voice"
)

// LoadingDelay is how long after sending the loading bubble appears and the request starts
const LoadingDelay = 500 * time.Millisecond

// doubleClickWindow bounds two clicks counted as one double click
const doubleClickWindow = 400 * time.Millisecond

// threadTop is the screen row where the thread viewport starts, below the header
const threadTop = 1

// Suggestions are offered while the thread is empty
var Suggestions = []string{
	"Help me plan a weekend trip on a budget",
	"Explain how a neural network learns, simply",
	"Write a short poem about the sea",
	"Give me three ideas for a healthy dinner",
}

// Dictation is a speech-to-text source
type Dictation interface {
	Supported() bool
	Start(ctx context.Context) (<-chan voice.Event, error)
	Stop()
}

// Options wires the view to its collaborators
type Options struct {
	Conversation *chat.Conversation
	Speaker      playback.Speaker
	Dictation    Dictation
	ModelName    string
	Interval     time.Duration
	Instant      bool
	Theme        string
	Logger       zerolog.Logger
	// Clipboard writes text to the system clipboard; defaults to atotto/clipboard
	Clipboard func(string) error
}

type loadingMsg struct {
	turn int
}

type replyMsg struct {
	turn  int
	reply string
	err   error
}

type dictationMsg struct {
	ch    <-chan voice.Event
	event voice.Event
	open  bool
}

// Model is the Bubble Tea model for the chat view
type Model struct {
	conv      *chat.Conversation
	machine   *playback.Machine
	timer     *teaTimer
	speaker   playback.Speaker
	dictation Dictation
	clipboard func(string) error
	logger    zerolog.Logger
	keys      KeyMap
	theme     Theme
	modelName string

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer

	width  int
	height int
	ready  bool

	bubbles []*bubble
	live    *bubble

	// a turn is in flight from submit until its reply arrives
	turn    int
	waiting bool
	pending gemini.RequestContext
	cancel  context.CancelFunc

	// ends background work such as dictation when the view quits
	ctx  context.Context
	stop context.CancelFunc

	lastMessage  string
	confirmClear bool
	listening    bool
	lastClick    time.Time
	status       string
}

// NewModel creates the chat view and renders the saved conversation
func NewModel(opts Options) *Model {
	input := textinput.New()
	input.Placeholder = "Enter a prompt here"
	input.CharLimit = 4000
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		conv:      opts.Conversation,
		timer:     newTeaTimer(),
		speaker:   opts.Speaker,
		dictation: opts.Dictation,
		clipboard: opts.Clipboard,
		logger:    opts.Logger.With().Str("component", "ui").Logger(),
		keys:      DefaultKeyMap(),
		theme:     NewTheme(ResolveTheme(opts.Theme)),
		modelName: opts.ModelName,
		input:     input,
		spinner:   sp,
		viewport:  viewport.New(80, 20),
		width:     80,
		height:    24,
	}
	if m.speaker == nil {
		m.speaker = voice.NewSpeaker(false, "", opts.Logger)
	}
	if m.clipboard == nil {
		m.clipboard = clipboard.WriteAll
	}
	m.ctx, m.stop = context.WithCancel(context.Background())

	m.machine = playback.New(playback.Options{
		Timer:    m.timer,
		Speaker:  m.speaker,
		Commit:   m.conv.Commit,
		OnChange: m.onPlaybackChange,
		Interval: opts.Interval,
		Instant:  opts.Instant,
		Logger:   opts.Logger,
	})

	for _, e := range m.conv.Store().Entries() {
		m.bubbles = append(m.bubbles, newBubble(e.Role, e.Content, e.Timestamp))
	}
	m.setRenderer()
	m.refresh()

	return m
}

// Init starts the cursor blink
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles one message
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if cmd, handled := m.handleKey(msg); handled {
			return m, tea.Batch(cmd, m.timer.drain())
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tickMsg:
		if m.timer.isArmed(msg.token) {
			m.machine.Tick(msg.token)
			m.timer.rearm(msg.token)
			m.refresh()
		}

	case loadingMsg:
		if msg.turn == m.turn && m.waiting {
			cmds = append(cmds, m.startFetch(), m.spinner.Tick)
		}

	case replyMsg:
		if msg.turn == m.turn && m.waiting {
			m.handleReply(msg)
		}

	case spinner.TickMsg:
		if m.loadingBubble() != nil {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
			m.refresh()
		}

	case dictationMsg:
		cmds = append(cmds, m.handleDictation(msg))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)

	// the viewport's own key bindings would fire while typing
	if _, isKey := msg.(tea.KeyMsg); !isKey {
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	cmds = append(cmds, m.timer.drain())
	return m, tea.Batch(cmds...)
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	if m.confirmClear {
		m.confirmClear = false
		switch strings.ToLower(msg.String()) {
		case "y":
			m.clear()
			m.status = "Conversation cleared"
		default:
			m.status = ""
		}
		return nil, true
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.shutdown()
		return tea.Quit, true

	case key.Matches(msg, m.keys.Submit):
		text := m.input.Value()
		m.input.Reset()
		return m.submit(text), true

	case key.Matches(msg, m.keys.Pause):
		if m.machine.TogglePause() {
			if m.machine.State() == playback.Paused {
				m.status = "Paused"
			} else {
				m.status = ""
			}
		}
		m.refresh()
		return nil, true

	case key.Matches(msg, m.keys.Instant):
		m.machine.SetInstant(!m.machine.Instant())
		if m.machine.Instant() {
			m.status = "Instant replies on"
		} else {
			m.status = "Instant replies off"
		}
		return nil, true

	case key.Matches(msg, m.keys.Skip):
		m.machine.Skip()
		return nil, true

	case key.Matches(msg, m.keys.Interrupt):
		if m.live != nil {
			m.machine.Interrupt(m.live)
		}
		return nil, true

	case key.Matches(msg, m.keys.Theme):
		m.theme = m.theme.Toggle()
		m.setRenderer()
		m.refresh()
		return nil, true

	case key.Matches(msg, m.keys.Clear):
		if len(m.bubbles) > 0 {
			m.confirmClear = true
			m.status = "Clear the chat and delete its history? (y/n)"
		}
		return nil, true

	case key.Matches(msg, m.keys.Dictate):
		return m.toggleDictation(), true

	case key.Matches(msg, m.keys.Copy):
		m.copyLastReply()
		return nil, true

	case key.Matches(msg, m.keys.Suggestions):
		if len(m.bubbles) == 0 {
			if i := suggestionIndex(msg.String()); i >= 0 && i < len(Suggestions) {
				return m.submit(Suggestions[i]), true
			}
		}
		return nil, true

	case key.Matches(msg, m.keys.ScrollUp):
		m.viewport.HalfViewUp()
		return nil, true

	case key.Matches(msg, m.keys.ScrollDown):
		m.viewport.HalfViewDown()
		return nil, true
	}

	return nil, false
}

// handleMouse force-completes the live reply on a double click inside its bubble
func (m *Model) handleMouse(msg tea.MouseMsg) {
	if msg.Type != tea.MouseLeft {
		return
	}
	if !m.onLiveBubble(msg.Y) {
		m.lastClick = time.Time{}
		return
	}
	now := time.Now()
	if !m.lastClick.IsZero() && now.Sub(m.lastClick) <= doubleClickWindow {
		m.machine.Interrupt(m.live)
		m.lastClick = time.Time{}
		return
	}
	m.lastClick = now
}

// onLiveBubble reports whether screen row y shows the live reply
func (m *Model) onLiveBubble(y int) bool {
	if m.live == nil {
		return false
	}
	row := y - threadTop
	if row < 0 || row >= m.viewport.Height {
		return false
	}
	line := row + m.viewport.YOffset
	return line >= m.live.top && line < m.live.top+m.live.height
}

// busy reports whether a turn is in flight or a reply is still being revealed
func (m *Model) busy() bool {
	return m.waiting || m.machine.Active()
}

// submit records the outgoing message and schedules the loading bubble.
// A blank input re-sends the previous message.
func (m *Model) submit(text string) tea.Cmd {
	if m.busy() {
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		text = m.lastMessage
	}

	rc, ok := m.conv.Begin(text)
	if !ok {
		return nil
	}

	m.lastMessage = rc.Message
	m.bubbles = append(m.bubbles, newBubble(history.RoleUser, rc.Message, time.Now()))
	m.turn++
	m.waiting = true
	m.pending = rc
	m.status = ""
	m.refresh()

	turn := m.turn
	return tea.Tick(LoadingDelay, func(time.Time) tea.Msg {
		return loadingMsg{turn: turn}
	})
}

func (m *Model) startFetch() tea.Cmd {
	m.bubbles = append(m.bubbles, &bubble{role: history.RoleAssistant, loading: true, timestamp: time.Now()})
	m.refresh()

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel

	conv, rc, turn := m.conv, m.pending, m.turn
	return func() tea.Msg {
		reply, err := conv.Fetch(ctx, rc)
		return replyMsg{turn: turn, reply: reply, err: err}
	}
}

func (m *Model) handleReply(msg replyMsg) {
	m.waiting = false
	m.pending = gemini.RequestContext{}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	b := m.loadingBubble()
	if b == nil {
		b = &bubble{role: history.RoleAssistant, timestamp: time.Now()}
		m.bubbles = append(m.bubbles, b)
	}
	b.loading = false

	if msg.err != nil {
		b.isError = true
		b.Replace(m.conv.Fail(msg.err))
		m.refresh()
		return
	}

	b.live = true
	m.live = b
	m.machine.Start(msg.reply, b)
	m.refresh()
}

func (m *Model) onPlaybackChange(state playback.State) {
	switch state {
	case playback.Completed, playback.Idle:
		if m.live != nil {
			m.live.live = false
			m.live = nil
		}
		if m.status == "Paused" {
			m.status = ""
		}
		m.refresh()
	}
}

// clear abandons the live reply, silences speech and drops the history
func (m *Model) clear() {
	m.machine.Abandon()
	m.speaker.Stop()
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	for _, b := range m.bubbles {
		b.detached = true
	}
	m.bubbles = nil
	m.live = nil
	m.waiting = false
	m.pending = gemini.RequestContext{}
	m.turn++

	m.conv.Store().Clear()
	m.refresh()
}

func (m *Model) shutdown() {
	m.machine.Abandon()
	m.speaker.Stop()
	if m.cancel != nil {
		m.cancel()
	}
	if m.dictation != nil && m.listening {
		m.dictation.Stop()
	}
	m.stop()
}

func (m *Model) toggleDictation() tea.Cmd {
	if m.dictation == nil || !m.dictation.Supported() {
		m.status = "Dictation is not available"
		return nil
	}
	if m.listening {
		m.dictation.Stop()
		return nil
	}

	ch, err := m.dictation.Start(m.ctx)
	if err != nil {
		m.status = fmt.Sprintf("Dictation failed: %v", err)
		return nil
	}
	m.listening = true
	m.status = "Listening..."
	return waitForDictation(ch)
}

func waitForDictation(ch <-chan voice.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		return dictationMsg{ch: ch, event: ev, open: ok}
	}
}

func (m *Model) handleDictation(msg dictationMsg) tea.Cmd {
	ev := msg.event
	if ev.Transcript != "" {
		m.input.SetValue(ev.Transcript)
		m.input.CursorEnd()
	}
	if !msg.open || ev.Done {
		m.listening = false
		if ev.Err != nil {
			m.status = fmt.Sprintf("Dictation failed: %v", ev.Err)
		} else if m.status == "Listening..." {
			m.status = ""
		}
		return nil
	}
	return waitForDictation(msg.ch)
}

func (m *Model) copyLastReply() {
	entry, ok := m.conv.Store().Last(history.RoleAssistant)
	if !ok {
		m.status = "Nothing to copy"
		return
	}
	if err := m.clipboard(entry.Content); err != nil {
		m.logger.Warn().Err(err).Msg("clipboard write failed")
		m.status = "Copy failed"
		return
	}
	m.status = "Copied"
}

func (m *Model) loadingBubble() *bubble {
	for i := len(m.bubbles) - 1; i >= 0; i-- {
		if m.bubbles[i].loading {
			return m.bubbles[i]
		}
	}
	return nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.input.Width = max(width-8, 10)
	m.viewport.Width = width
	m.viewport.Height = max(height-m.chromeHeight(), 3)
	m.ready = true
	m.setRenderer()
	m.refresh()
}

// chromeHeight is the number of rows outside the thread
func (m *Model) chromeHeight() int {
	// header, status, input frame (3), help
	return 6
}

func (m *Model) setRenderer() {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(m.theme.Name),
		glamour.WithWordWrap(max(m.width-6, 20)),
	)
	if err != nil {
		m.logger.Warn().Err(err).Msg("markdown renderer unavailable")
		m.renderer = nil
		return
	}
	m.renderer = r
}

// refresh rebuilds the thread and keeps it scrolled to the newest message
func (m *Model) refresh() {
	m.viewport.SetContent(m.renderThread())
	m.viewport.GotoBottom()
}
