package ui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gemini-chat/internal/chat"
	"gemini-chat/internal/gemini"
	"gemini-chat/internal/history"
	"gemini-chat/internal/playback"
	"gemini-chat/internal/storage"
	"gemini-chat/internal/voice"
)

type stubFetcher struct {
	mu    sync.Mutex
	calls int
}

func (f *stubFetcher) Fetch(context.Context, gemini.RequestContext) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return "", nil
}

type recordingSpeaker struct {
	spoken []string
	stops  int
}

func (s *recordingSpeaker) Speak(text string) { s.spoken = append(s.spoken, text) }
func (s *recordingSpeaker) Stop()             { s.stops++ }

type fakeDictation struct {
	supported bool
	ch        chan voice.Event
	ctx       context.Context
	stopped   bool
}

func (d *fakeDictation) Supported() bool { return d.supported }

func (d *fakeDictation) Start(ctx context.Context) (<-chan voice.Event, error) {
	d.ctx = ctx
	d.ch = make(chan voice.Event, 4)
	return d.ch, nil
}

func (d *fakeDictation) Stop() { d.stopped = true }

type harness struct {
	m       *Model
	store   *history.Store
	speaker *recordingSpeaker
	copied  []string
}

func newHarness(t *testing.T, seed ...history.Entry) *harness {
	t.Helper()

	kv, err := storage.NewFileKV(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { kv.Close() })

	store := history.NewStore(kv, history.DefaultKey, zerolog.Nop())
	store.Load()
	for _, e := range seed {
		store.Append(e.Role, e.Content)
	}

	h := &harness{store: store, speaker: &recordingSpeaker{}}
	h.m = NewModel(Options{
		Conversation: chat.NewConversation(store, &stubFetcher{}, zerolog.Nop()),
		Speaker:      h.speaker,
		Dictation:    &fakeDictation{},
		ModelName:    "gemini-test",
		Theme:        ThemeDark,
		Logger:       zerolog.Nop(),
		Clipboard: func(s string) error {
			h.copied = append(h.copied, s)
			return nil
		},
	})
	h.m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return h
}

func (h *harness) key(k tea.KeyType) {
	h.m.Update(tea.KeyMsg{Type: k})
}

func (h *harness) typeText(s string) {
	h.m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// send submits text and delivers the reply as the loop would
func (h *harness) send(t *testing.T, text, reply string, err error) {
	t.Helper()
	h.typeText(text)
	h.key(tea.KeyEnter)
	require.True(t, h.m.waiting)

	turn := h.m.turn
	h.m.Update(loadingMsg{turn: turn})
	require.NotNil(t, h.m.loadingBubble())
	h.m.Update(replyMsg{turn: turn, reply: reply, err: err})
}

// armedToken returns the single live timer token
func (h *harness) armedToken(t *testing.T) uint64 {
	t.Helper()
	require.Len(t, h.m.timer.armed, 1)
	for token := range h.m.timer.armed {
		return token
	}
	return 0
}

func TestSubmitRevealsReplyWordByWord(t *testing.T) {
	h := newHarness(t)

	h.send(t, "Hello", "Hi there", nil)
	require.NotNil(t, h.m.live)
	assert.Equal(t, playback.Playing, h.m.machine.State())

	token := h.armedToken(t)
	h.m.Update(tickMsg{token: token})
	assert.Equal(t, "Hi", h.m.live.String())

	h.m.Update(tickMsg{token: token})
	assert.Nil(t, h.m.live)
	assert.Equal(t, playback.Completed, h.m.machine.State())
	assert.Empty(t, h.m.timer.armed)

	entries := h.store.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "Hello", entries[0].Content)
	assert.Equal(t, history.RoleAssistant, entries[1].Role)
	assert.Equal(t, "Hi there", entries[1].Content)
	assert.Equal(t, []string{"Hi there"}, h.speaker.spoken)
}

func TestSubmitIgnoredWhileBusy(t *testing.T) {
	h := newHarness(t)

	h.typeText("first")
	h.key(tea.KeyEnter)
	h.typeText("second")
	h.key(tea.KeyEnter)

	assert.Equal(t, 1, h.store.Len())
	assert.Equal(t, 1, h.m.turn)
}

func TestBlankSubmitResendsPreviousMessage(t *testing.T) {
	h := newHarness(t)

	h.send(t, "again please", "ok", nil)
	h.m.Update(tickMsg{token: h.armedToken(t)})
	require.False(t, h.m.busy())

	h.key(tea.KeyEnter)
	require.True(t, h.m.waiting)

	entries := h.store.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, "again please", entries[2].Content)
}

func TestFetchErrorShowsErrorBubble(t *testing.T) {
	h := newHarness(t)

	h.send(t, "Hello", "", &gemini.FetchError{Message: "request failed: no route to host"})

	assert.False(t, h.m.waiting)
	assert.Nil(t, h.m.live)
	assert.Equal(t, playback.Idle, h.m.machine.State())
	assert.Empty(t, h.m.timer.armed)

	last := h.m.bubbles[len(h.m.bubbles)-1]
	assert.True(t, last.isError)
	assert.Equal(t, "request failed: no route to host", last.String())

	entry, ok := h.store.Last(history.RoleAssistant)
	require.True(t, ok)
	assert.Equal(t, "request failed: no route to host", entry.Content)
}

func TestPauseResumeAndStaleTick(t *testing.T) {
	h := newHarness(t)
	h.send(t, "count", "one two three", nil)

	first := h.armedToken(t)
	h.m.Update(tickMsg{token: first})

	h.key(tea.KeyCtrlP)
	assert.Equal(t, playback.Paused, h.m.machine.State())
	assert.Empty(t, h.m.timer.armed)

	// a tick already in flight when paused changes nothing
	h.m.Update(tickMsg{token: first})
	assert.Equal(t, "one", h.m.live.String())

	h.key(tea.KeyCtrlP)
	assert.Equal(t, playback.Playing, h.m.machine.State())
	second := h.armedToken(t)
	assert.NotEqual(t, first, second)

	h.m.Update(tickMsg{token: first})
	assert.Equal(t, "one", h.m.live.String())

	h.m.Update(tickMsg{token: second})
	assert.Equal(t, "one two", h.m.live.String())
}

func TestSkipAndInterrupt(t *testing.T) {
	h := newHarness(t)
	h.send(t, "a", "alpha beta gamma", nil)

	h.key(tea.KeyCtrlS)
	assert.Equal(t, playback.Completed, h.m.machine.State())
	last := h.m.bubbles[len(h.m.bubbles)-1]
	assert.Equal(t, "alpha beta gamma", last.String())

	h.send(t, "b", "delta epsilon", nil)
	h.key(tea.KeyEsc)
	assert.Equal(t, playback.Completed, h.m.machine.State())

	entries := h.store.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, "delta epsilon", entries[3].Content)
}

// liveRow returns a screen row inside the live reply's bubble
func (h *harness) liveRow(t *testing.T) int {
	t.Helper()
	require.NotNil(t, h.m.live)
	require.Positive(t, h.m.live.height)
	return threadTop + h.m.live.top - h.m.viewport.YOffset
}

func TestDoubleClickInterrupts(t *testing.T) {
	h := newHarness(t)
	h.send(t, "a", "alpha beta gamma", nil)
	row := h.liveRow(t)

	h.m.Update(tea.MouseMsg{Type: tea.MouseLeft, Y: row})
	assert.Equal(t, playback.Playing, h.m.machine.State())

	h.m.Update(tea.MouseMsg{Type: tea.MouseLeft, Y: row})
	assert.Equal(t, playback.Completed, h.m.machine.State())
	assert.Equal(t, 2, h.store.Len())
}

func TestDoubleClickOutsideReplyIgnored(t *testing.T) {
	h := newHarness(t)
	h.send(t, "a", "alpha beta gamma", nil)

	// input row, bottom of the screen
	h.m.Update(tea.MouseMsg{Type: tea.MouseLeft, Y: 39})
	h.m.Update(tea.MouseMsg{Type: tea.MouseLeft, Y: 39})
	assert.Equal(t, playback.Playing, h.m.machine.State())

	// the user's own bubble
	user := threadTop + h.m.bubbles[0].top - h.m.viewport.YOffset
	h.m.Update(tea.MouseMsg{Type: tea.MouseLeft, Y: user})
	h.m.Update(tea.MouseMsg{Type: tea.MouseLeft, Y: user})
	assert.Equal(t, playback.Playing, h.m.machine.State())

	// one click outside, one inside is not a double click on the reply
	row := h.liveRow(t)
	h.m.Update(tea.MouseMsg{Type: tea.MouseLeft, Y: 39})
	h.m.Update(tea.MouseMsg{Type: tea.MouseLeft, Y: row})
	assert.Equal(t, playback.Playing, h.m.machine.State())
	assert.Equal(t, 1, h.store.Len())
}

func TestInstantToggle(t *testing.T) {
	h := newHarness(t)

	h.key(tea.KeyCtrlF)
	assert.True(t, h.m.machine.Instant())

	h.send(t, "a", "all at once", nil)
	assert.Equal(t, playback.Completed, h.m.machine.State())
	assert.Empty(t, h.m.timer.armed)

	h.key(tea.KeyCtrlF)
	assert.False(t, h.m.machine.Instant())
}

func TestClearRequiresConfirmation(t *testing.T) {
	h := newHarness(t)
	h.send(t, "count", "one two three", nil)
	token := h.armedToken(t)
	h.m.Update(tickMsg{token: token})

	h.key(tea.KeyCtrlL)
	require.True(t, h.m.confirmClear)
	h.typeText("n")
	assert.False(t, h.m.confirmClear)
	assert.Equal(t, 1, h.store.Len())

	h.key(tea.KeyCtrlL)
	live := h.m.live
	h.typeText("y")

	assert.Empty(t, h.m.bubbles)
	assert.True(t, live.Detached())
	assert.Equal(t, 0, h.store.Len())
	assert.Equal(t, playback.Idle, h.m.machine.State())
	assert.Empty(t, h.m.timer.armed)
	assert.Positive(t, h.speaker.stops)

	// nothing from the abandoned reply lands afterwards
	h.m.Update(tickMsg{token: token})
	assert.Equal(t, 0, h.store.Len())
}

func TestClearDropsPendingReply(t *testing.T) {
	h := newHarness(t)
	h.typeText("Hello")
	h.key(tea.KeyEnter)
	turn := h.m.turn

	h.key(tea.KeyCtrlL)
	h.typeText("y")

	h.m.Update(replyMsg{turn: turn, reply: "late"})
	assert.Empty(t, h.m.bubbles)
	assert.Equal(t, 0, h.store.Len())
}

func TestSavedHistoryRendered(t *testing.T) {
	h := newHarness(t,
		history.Entry{Role: history.RoleUser, Content: "old question"},
		history.Entry{Role: history.RoleAssistant, Content: "old answer"},
	)

	require.Len(t, h.m.bubbles, 2)
	assert.Equal(t, "old answer", h.m.bubbles[1].String())

	view := ansi.Strip(h.m.renderThread())
	assert.Contains(t, view, "old question")
	assert.Contains(t, view, "old answer")

	// the finished reply went through the markdown renderer
	answer := h.m.bubbles[1]
	assert.NotEmpty(t, answer.renderedKey)
	assert.Contains(t, ansi.Strip(answer.rendered), "old answer")
}

func TestSuggestionsOnlyWhenEmpty(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.m.renderThread(), Suggestions[1])
	h.key(tea.KeyF2)

	entries := h.store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, Suggestions[1], entries[0].Content)
}

func TestCopyLastReply(t *testing.T) {
	h := newHarness(t)

	h.key(tea.KeyCtrlY)
	assert.Empty(t, h.copied)
	assert.Equal(t, "Nothing to copy", h.m.status)

	h.send(t, "a", "copy me", nil)
	h.key(tea.KeyCtrlS)
	h.key(tea.KeyCtrlY)
	assert.Equal(t, []string{"copy me"}, h.copied)

	h.m.clipboard = func(string) error { return errors.New("no clipboard") }
	h.key(tea.KeyCtrlY)
	assert.Equal(t, "Copy failed", h.m.status)
}

func TestThemeToggle(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, ThemeDark, h.m.theme.Name)

	h.key(tea.KeyCtrlT)
	assert.Equal(t, ThemeLight, h.m.theme.Name)

	h.key(tea.KeyCtrlT)
	assert.Equal(t, ThemeDark, h.m.theme.Name)
}

func TestDictationFillsInput(t *testing.T) {
	h := newHarness(t)
	d := h.m.dictation.(*fakeDictation)

	h.key(tea.KeyCtrlR)
	assert.Equal(t, "Dictation is not available", h.m.status)

	d.supported = true
	h.key(tea.KeyCtrlR)
	require.True(t, h.m.listening)

	h.m.Update(dictationMsg{ch: d.ch, event: voice.Event{Transcript: "hello wor"}, open: true})
	assert.Equal(t, "hello wor", h.m.input.Value())

	h.m.Update(dictationMsg{ch: d.ch, event: voice.Event{Transcript: "hello world", Final: true}, open: true})
	assert.Equal(t, "hello world", h.m.input.Value())

	h.m.Update(dictationMsg{ch: d.ch, event: voice.Event{Done: true}, open: true})
	assert.False(t, h.m.listening)
	assert.Equal(t, "hello world", h.m.input.Value())
}

func TestQuitEndsDictationContext(t *testing.T) {
	h := newHarness(t)
	d := h.m.dictation.(*fakeDictation)
	d.supported = true

	h.key(tea.KeyCtrlR)
	require.True(t, h.m.listening)
	require.NotNil(t, d.ctx)

	h.key(tea.KeyCtrlC)
	assert.True(t, d.stopped)
	assert.Error(t, d.ctx.Err())
}

func TestTeaTimerRearmsUntilDisarmed(t *testing.T) {
	timer := newTeaTimer()

	timer.Arm(7, playback.DefaultWordInterval)
	assert.NotNil(t, timer.drain())
	assert.Nil(t, timer.drain())

	timer.rearm(7)
	assert.NotNil(t, timer.drain())

	timer.Disarm(7)
	timer.rearm(7)
	assert.Nil(t, timer.drain())
	assert.False(t, timer.isArmed(7))
}

func TestLongStatusTruncated(t *testing.T) {
	h := newHarness(t)
	h.m.Update(tea.WindowSizeMsg{Width: 30, Height: 20})

	h.m.status = strings.Repeat("x", 100)
	assert.Contains(t, h.m.renderStatus(), "…")
}
