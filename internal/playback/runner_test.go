package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type commitLog struct {
	mu      sync.Mutex
	commits []string
}

func (c *commitLog) add(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.commits = append(c.commits, text)
}

func (c *commitLog) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.commits...)
}

func startRunner(t *testing.T, log *commitLog, interval time.Duration) *Runner {
	t.Helper()
	r := NewRunner(Options{Commit: log.add, Interval: interval})

	ctx, cancel := context.WithCancel(context.Background())
	go r.Run(ctx)
	t.Cleanup(cancel)

	return r
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestRunnerPlaysToCompletion(t *testing.T) {
	log := &commitLog{}
	r := startRunner(t, log, time.Millisecond)
	sink := &Buffer{}

	done := r.Start("the runner reveals every word", sink)
	require.NoError(t, r.Wait(waitCtx(t), done))

	assert.Equal(t, "the runner reveals every word", sink.String())
	assert.Equal(t, []string{"the runner reveals every word"}, log.all())
}

func TestRunnerSkip(t *testing.T) {
	log := &commitLog{}
	r := startRunner(t, log, time.Hour)
	sink := &Buffer{}

	done := r.Start("never ticks on its own", sink)
	r.Skip()
	require.NoError(t, r.Wait(waitCtx(t), done))

	assert.Equal(t, "never ticks on its own", sink.String())
	assert.Equal(t, []string{"never ticks on its own"}, log.all())
}

func TestRunnerPauseResume(t *testing.T) {
	log := &commitLog{}
	r := startRunner(t, log, time.Millisecond)
	sink := &Buffer{}

	done := r.Start("pause me and then keep going until the end", sink)
	r.Pause()
	r.Resume()
	r.TogglePause()
	r.TogglePause()
	require.NoError(t, r.Wait(waitCtx(t), done))

	assert.Equal(t, "pause me and then keep going until the end", sink.String())
	assert.Len(t, log.all(), 1)
}

func TestRunnerSupersede(t *testing.T) {
	log := &commitLog{}
	r := startRunner(t, log, time.Hour)

	first := r.Start("first reply", &Buffer{})
	second := r.Start("second reply", &Buffer{})
	require.NoError(t, r.Wait(waitCtx(t), first))

	r.Interrupt(&Buffer{}) // not the live sink
	r.Skip()
	require.NoError(t, r.Wait(waitCtx(t), second))

	assert.Equal(t, []string{"second reply"}, log.all())
}

func TestRunnerAbandon(t *testing.T) {
	log := &commitLog{}
	r := startRunner(t, log, time.Hour)

	done := r.Start("dropped", &Buffer{})
	r.Abandon()
	require.NoError(t, r.Wait(waitCtx(t), done))

	assert.Empty(t, log.all())
}

func TestRunnerStopsWithContext(t *testing.T) {
	log := &commitLog{}
	r := NewRunner(Options{Commit: log.add, Interval: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(stopped)
	}()

	done := r.Start("interrupted by shutdown", &Buffer{})
	cancel()
	<-stopped

	require.NoError(t, r.Wait(waitCtx(t), done))
	assert.Empty(t, log.all())

	// posting after shutdown must not block
	late := r.Start("late", &Buffer{})
	require.NoError(t, r.Wait(waitCtx(t), late))
}
