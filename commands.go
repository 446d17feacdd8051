package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"gemini-chat/internal/chat"
	"gemini-chat/internal/gemini"
	"gemini-chat/internal/playback"
	"gemini-chat/internal/terminal"
	"gemini-chat/internal/voice"
)

func newAskCmd(flags *globalFlags) *cobra.Command {
	var instant bool

	cmd := &cobra.Command{
		Use:   "ask <message...>",
		Short: "Send one message and print the reply",
		Long: "Send one message, with the saved conversation as context, and print the reply word by word.\n" +
			"Press Ctrl+C once to show the rest of the reply at once.",
		Example: `  gemchat ask "What is the capital of France?"
  gemchat ask --instant Summarise our conversation so far`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(flags, strings.Join(args, " "), instant)
		},
	}

	cmd.Flags().BoolVar(&instant, "instant", false, "print the whole reply at once")
	return cmd
}

func runAsk(flags *globalFlags, message string, instant bool) error {
	a, err := newApp(flags, false, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	defer a.Close()

	display := terminal.NewDisplay(os.Stdout)
	defer display.Cleanup()

	rc, ok := a.conv.Begin(message)
	if !ok {
		err := errors.New("message is empty")
		display.PrintError(err.Error())
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	display.ShowSpinner("Thinking...")
	reply, err := fetchReply(ctx, a.conv, rc)
	display.StopSpinner()
	if err != nil {
		msg := a.conv.Fail(err)
		display.PrintError(msg)
		return err
	}

	speaker := voice.NewSpeaker(a.cfg.Voice.Speech, a.cfg.Voice.SpeechCommand, a.logger)
	runner := playback.NewRunner(playback.Options{
		Speaker:  speaker,
		Commit:   a.conv.Commit,
		Interval: a.cfg.Playback.WordInterval,
		Instant:  instant || a.cfg.Playback.Instant,
		Logger:   a.logger,
	})
	go runner.Run(ctx)

	display.PrintAssistantPrefix()
	done := runner.Start(reply, display)

	// Ctrl+C during playback reveals the rest of the reply
playing:
	for {
		select {
		case <-done:
			break playing
		case <-sigChan:
			runner.Interrupt(display)
		}
	}
	display.WriteNewline()

	// let the spoken reply finish; Ctrl+C silences it
	for speaker.Speaking() {
		select {
		case <-sigChan:
			speaker.Stop()
		case <-time.After(100 * time.Millisecond):
		}
	}

	return nil
}

// fetchReply runs the request; Ctrl+C abandons it. Signals are also delivered
// to every channel registered with signal.Notify, so one that lands as the
// reply arrives still reaches the playback loop.
func fetchReply(ctx context.Context, conv *chat.Conversation, rc gemini.RequestContext) (string, error) {
	fetchCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return conv.Fetch(fetchCtx, rc)
}

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, false, false)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			defer a.Close()

			displayFullHistory(a, terminal.NewDisplay(os.Stdout))
			return nil
		},
	}
}

// displayFullHistory prints every saved entry in order
func displayFullHistory(a *app, display *terminal.Display) {
	entries := a.store.Entries()
	if len(entries) == 0 {
		display.PrintInfo("No conversation history")
		return
	}
	for _, e := range entries {
		display.PrintEntry(e)
	}
}

func newClearCmd(flags *globalFlags) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete the saved conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, false, false)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			defer a.Close()

			display := terminal.NewDisplay(os.Stdout)
			if a.store.Len() == 0 {
				display.PrintInfo("No conversation history")
				return nil
			}
			if !yes && !terminal.Confirm(os.Stdin, os.Stdout, "Are you sure you want to clear the chat? This will delete your chat history.") {
				display.PrintInfo("Cancelled")
				return nil
			}

			a.store.Clear()
			display.PrintSuccess("Conversation cleared")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newModelsCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the models available to your API key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(flags, false, true)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			defer a.Close()

			display := terminal.NewDisplay(os.Stdout)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			models, err := a.client.ListModels(ctx)
			if err != nil {
				display.PrintError(chat.ErrorMessage(err))
				return err
			}

			current := a.client.Model()
			for _, name := range models {
				if name == current {
					fmt.Printf("* %s\n", name)
				} else {
					fmt.Printf("  %s\n", name)
				}
			}
			return nil
		},
	}
}
