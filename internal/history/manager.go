package history

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"gemini-chat/internal/gemini"
	"gemini-chat/internal/storage"
)

// DefaultKey is the storage key the conversation lives under
const DefaultKey = "chatbot_history"

// Store is the append-only conversation log. It is the only writer of persisted history.
type Store struct {
	kv      storage.KV
	key     string
	mu      sync.RWMutex
	entries []Entry
	logger  zerolog.Logger
	now     func() time.Time
}

// NewStore creates a history store persisting under key
func NewStore(kv storage.KV, key string, logger zerolog.Logger) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		kv:      kv,
		key:     key,
		entries: []Entry{},
		logger:  logger.With().Str("component", "history").Logger(),
		now:     time.Now,
	}
}

// Load reads persisted history, replacing the in-memory log. It never fails:
// missing or unparseable data yields an empty history.
func (s *Store) Load() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = []Entry{}

	data, err := s.kv.Get(s.key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("failed to read history")
		}
		return s.snapshotLocked()
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		// Corrupted value - keep a backup and start fresh
		s.logger.Warn().Err(err).Msg("history is unparseable, starting fresh")
		if err := s.kv.Set(s.key+".backup", data); err != nil {
			s.logger.Warn().Err(err).Msg("failed to back up history")
		}
		return s.snapshotLocked()
	}

	if entries != nil {
		s.entries = entries
	}
	return s.snapshotLocked()
}

// Append records a message stamped with the current time and persists the log.
// Persistence failures are logged, never returned.
func (s *Store) Append(role Role, content string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
	s.entries = append(s.entries, entry)
	s.saveLocked()

	return entry
}

// Clear empties both the in-memory and the persisted history
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = []Entry{}
	if err := s.kv.Delete(s.key); err != nil {
		s.logger.Warn().Err(err).Msg("failed to clear history")
	}
}

// Entries returns a copy of the log in send order
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len returns the number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Last returns the most recent entry with the given role
func (s *Store) Last(role Role) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.entries) - 1; i >= 0; i-- {
		if s.entries[i].Role == role {
			return s.entries[i], true
		}
	}
	return Entry{}, false
}

// FormatForRemote projects the log into API contents, preserving order.
// The API calls the assistant role "model".
func (s *Store) FormatForRemote() []gemini.Content {
	s.mu.RLock()
	defer s.mu.RUnlock()

	contents := make([]gemini.Content, 0, len(s.entries))
	for _, e := range s.entries {
		role := gemini.RoleUser
		if e.Role == RoleAssistant {
			role = gemini.RoleModel
		}
		contents = append(contents, gemini.Content{
			Role:  role,
			Parts: []gemini.Part{{Text: e.Content}},
		})
	}
	return contents
}

// saveLocked persists the log (must be called with lock held)
func (s *Store) saveLocked() {
	data, err := json.Marshal(s.entries)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to marshal history")
		return
	}

	if err := s.kv.Set(s.key, data); err != nil {
		s.logger.Warn().Err(err).Int("entries", len(s.entries)).Msg("failed to save history")
	}
}

func (s *Store) snapshotLocked() []Entry {
	return append([]Entry{}, s.entries...)
}
