// Package chat runs one conversation turn: record the outgoing message,
// fetch the reply and record what came back.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"gemini-chat/internal/gemini"
	"gemini-chat/internal/history"
)

// Fetcher obtains a reply for a request context
type Fetcher interface {
	Fetch(ctx context.Context, rc gemini.RequestContext) (string, error)
}

// Conversation ties the history store to the fetcher
type Conversation struct {
	store   *history.Store
	fetcher Fetcher
	logger  zerolog.Logger
}

// NewConversation creates a conversation over store
func NewConversation(store *history.Store, fetcher Fetcher, logger zerolog.Logger) *Conversation {
	return &Conversation{
		store:   store,
		fetcher: fetcher,
		logger:  logger.With().Str("component", "chat").Logger(),
	}
}

// Store returns the underlying history
func (c *Conversation) Store() *history.Store {
	return c.store
}

// Begin records an outgoing message. The returned context holds the history
// as it was before the message, plus the message itself.
// Blank messages are rejected and nothing is recorded.
func (c *Conversation) Begin(message string) (gemini.RequestContext, bool) {
	message = strings.TrimSpace(message)
	if message == "" {
		return gemini.RequestContext{}, false
	}

	rc := gemini.RequestContext{
		History: c.store.FormatForRemote(),
		Message: message,
	}
	c.store.Append(history.RoleUser, message)

	return rc, true
}

// Fetch asks the remote for a reply
func (c *Conversation) Fetch(ctx context.Context, rc gemini.RequestContext) (string, error) {
	start := time.Now()
	reply, err := c.fetcher.Fetch(ctx, rc)
	if err != nil {
		c.logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("fetch failed")
		return "", err
	}

	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("history", len(rc.History)).
		Int("chars", len(reply)).
		Msg("reply received")
	return reply, nil
}

// Fail records a failed turn. The message is stored as the assistant's reply
// and returned for display.
func (c *Conversation) Fail(err error) string {
	msg := ErrorMessage(err)
	c.store.Append(history.RoleAssistant, msg)
	return msg
}

// Commit records a finished reply. It is the playback commit function.
func (c *Conversation) Commit(text string) {
	c.store.Append(history.RoleAssistant, text)
}

// ErrorMessage is the text shown for a failed fetch
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, context.Canceled) {
		return "Request cancelled"
	}
	var fe *gemini.FetchError
	if errors.As(err, &fe) && fe.Message != "" {
		return fe.Message
	}
	return err.Error()
}
