package voice

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// Fixed speech parameters, relative to each engine's normal voice
const (
	SpeechRate   = 1.0
	SpeechPitch  = 1.0
	SpeechVolume = 1.0
)

// speechEngines are tried in order when no command is configured
var speechEngines = []string{"espeak-ng", "espeak", "say"}

// Speaker speaks finished replies through an external speech engine.
// Only one utterance plays at a time.
type Speaker struct {
	mu      sync.Mutex
	path    string
	current *exec.Cmd
	logger  zerolog.Logger
}

// NewSpeaker finds a speech engine. command overrides discovery; a disabled
// or missing engine yields a Speaker whose calls are logged no-ops.
func NewSpeaker(enabled bool, command string, logger zerolog.Logger) *Speaker {
	s := &Speaker{logger: logger.With().Str("component", "speech").Logger()}
	if !enabled {
		return s
	}

	candidates := speechEngines
	if command != "" {
		candidates = []string{command}
	}

	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			s.path = path
			s.logger.Debug().Str("engine", path).Msg("speech engine found")
			return s
		}
	}

	s.logger.Warn().Strs("tried", candidates).Msg("text-to-speech is not available")
	return s
}

// Available reports whether an engine was found
func (s *Speaker) Available() bool {
	return s.path != ""
}

// Speak cancels any utterance in progress and speaks text
func (s *Speaker) Speak(text string) {
	if !s.Available() {
		s.logger.Debug().Msg("speech skipped: no engine")
		return
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	cmd := exec.Command(s.path, engineArgs(filepath.Base(s.path))...)
	cmd.Stdin = strings.NewReader(text)
	if err := cmd.Start(); err != nil {
		s.logger.Error().Err(err).Msg("speech error")
		return
	}
	s.current = cmd
	s.logger.Debug().Int("pid", cmd.Process.Pid).Msg("speech started")

	go func() {
		err := cmd.Wait()

		s.mu.Lock()
		if s.current == cmd {
			s.current = nil
		}
		s.mu.Unlock()

		if err != nil && cmd.ProcessState != nil && !cmd.ProcessState.Exited() {
			// killed by Stop
			return
		}
		if err != nil {
			s.logger.Error().Err(err).Msg("speech error")
			return
		}
		s.logger.Debug().Msg("speech ended")
	}()
}

// Stop silences the current utterance
func (s *Speaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Speaking reports whether an utterance is in progress
func (s *Speaker) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

func (s *Speaker) stopLocked() {
	if s.current == nil || s.current.Process == nil {
		return
	}
	if err := s.current.Process.Kill(); err != nil {
		s.logger.Debug().Err(err).Msg("failed to stop speech")
	}
	s.current = nil
	s.logger.Debug().Msg("speech stopped")
}

// engineArgs maps the fixed rate, pitch and volume onto engine flags; text is read from stdin
func engineArgs(engine string) []string {
	switch engine {
	case "espeak", "espeak-ng":
		return []string{
			"-s", fmt.Sprint(int(175 * SpeechRate)),
			"-p", fmt.Sprint(int(50 * SpeechPitch)),
			"-a", fmt.Sprint(int(100 * SpeechVolume)),
			"--stdin",
		}
	case "say":
		return []string{"-r", fmt.Sprint(int(175 * SpeechRate)), "-f", "-"}
	default:
		return nil
	}
}
