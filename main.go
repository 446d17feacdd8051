package main

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"gemini-chat/internal/chat"
	"gemini-chat/internal/config"
	"gemini-chat/internal/gemini"
	"gemini-chat/internal/history"
	"gemini-chat/internal/logging"
	"gemini-chat/internal/storage"
	"gemini-chat/internal/terminal"
	"gemini-chat/internal/ui"
	"gemini-chat/internal/voice"
)

// flags shared by every command
type globalFlags struct {
	configPath string
	model      string
	apiKey     string
	storage    string
	logLevel   string
	noSpeech   bool
}

// app holds the components one command run needs
type app struct {
	cfg    *config.Config
	logger zerolog.Logger
	closer io.Closer
	kv     storage.KV
	store  *history.Store
	client *gemini.Client
	conv   *chat.Conversation
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "gemchat",
		Short:         "Chat with Gemini in your terminal",
		Long:          "gemchat is a terminal chat client for the Gemini API.\nReplies are revealed word by word and can be paused, skipped or read aloud.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(flags)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (default ~/.gemchat/config.toml)")
	pf.StringVarP(&flags.model, "model", "m", "", "Gemini model name")
	pf.StringVar(&flags.apiKey, "api-key", "", "Gemini API key (default $GEMINI_API_KEY)")
	pf.StringVar(&flags.storage, "storage", "", "history backend: file or sqlite")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.BoolVar(&flags.noSpeech, "no-speech", false, "do not read replies aloud")

	root.AddCommand(
		newAskCmd(flags),
		newHistoryCmd(flags),
		newClearCmd(flags),
		newModelsCmd(flags),
	)

	return root
}

// loadConfig reads the config file and environment, then applies flags
func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	if flags.model != "" {
		cfg.Gemini.Model = flags.model
	}
	if flags.apiKey != "" {
		cfg.Gemini.APIKey = flags.apiKey
	}
	if flags.storage != "" {
		cfg.Storage.Backend = flags.storage
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if flags.noSpeech {
		cfg.Voice.Speech = false
	}

	return cfg, nil
}

// newApp builds storage, history and the remote client. needKey is false
// for commands that only touch local history.
func newApp(flags *globalFlags, logToFile, needKey bool) (*app, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}

	if needKey {
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("configuration error: %w", err)
		}
	}

	logOpts := logging.Options{Level: cfg.Log.Level}
	if logToFile {
		logOpts.File = cfg.Log.File
	}
	logger, closer, err := logging.New(logOpts)
	if err != nil {
		return nil, err
	}

	kv, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Dir)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	store := history.NewStore(kv, cfg.Storage.Key, logger)
	store.Load()

	client := gemini.NewClient(gemini.Options{
		BaseURL: cfg.Gemini.BaseURL,
		Model:   cfg.Gemini.Model,
		APIKey:  cfg.Gemini.APIKey,
		Timeout: cfg.Gemini.Timeout,
		Generation: gemini.GenerationConfig{
			Temperature:     cfg.Gemini.Temperature,
			TopK:            cfg.Gemini.TopK,
			TopP:            cfg.Gemini.TopP,
			MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		},
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
	}, logger)

	return &app{
		cfg:    cfg,
		logger: logger,
		closer: closer,
		kv:     kv,
		store:  store,
		client: client,
		conv:   chat.NewConversation(store, client, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.kv.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("failed to close storage")
	}
	a.closer.Close()
}

func runInteractive(flags *globalFlags) error {
	if !terminal.IsTerminal() {
		return fmt.Errorf("the interactive chat needs a terminal; use 'gemchat ask' for scripts")
	}

	a, err := newApp(flags, true, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer a.Close()

	a.logger.Info().Str("model", a.client.Model()).Int("history", a.store.Len()).Msg("starting interactive chat")

	model := ui.NewModel(ui.Options{
		Conversation: a.conv,
		Speaker:      voice.NewSpeaker(a.cfg.Voice.Speech, a.cfg.Voice.SpeechCommand, a.logger),
		Dictation:    voice.NewDictation(a.cfg.Voice.DictationCommand, a.logger),
		ModelName:    a.client.Model(),
		Interval:     a.cfg.Playback.WordInterval,
		Instant:      a.cfg.Playback.Instant,
		Theme:        a.cfg.UI.Theme,
		Logger:       a.logger,
	})

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		a.logger.Error().Err(err).Msg("interactive chat failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
