// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - interactive line-mode chat with input history.
//
// USABILITY: liner provides arrow-key history navigation and line
// editing without taking over the whole screen the way the TUI does.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/steer-tui/internal/api"
	"github.com/jeranaias/steer-tui/internal/config"
	"github.com/jeranaias/steer-tui/internal/model"
	"github.com/jeranaias/steer-tui/internal/steering"
	"github.com/jeranaias/steer-tui/internal/util"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// ChatCLI provides input history and line editing for interactive chat.
type ChatCLI struct {
	line        *liner.State
	historyFile string
}

// NewChatCLI creates a ChatCLI with persistent input history.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}

	cli := &ChatCLI{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	cli.LoadHistory()
	return cli
}

// LoadHistory loads command history from file.
func (c *ChatCLI) LoadHistory() {
	if f, err := os.Open(c.historyFile); err == nil {
		c.line.ReadHistory(f)
		f.Close()
	}
}

// ReadInput reads a line with history navigation.
func (c *ChatCLI) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// SaveHistory persists command history with owner-only permissions.
func (c *ChatCLI) SaveHistory() {
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	c.line.WriteHistory(f)
}

// Close saves history and closes the liner.
func (c *ChatCLI) Close() {
	c.SaveHistory()
	c.line.Close()
}

// =============================================================================
// SESSION STATE
// =============================================================================

// ChatSession holds the state for a line-mode chat session.
type ChatSession struct {
	Conversation *model.Conversation
	Controller   *steering.Controller
	Client       *api.Client

	ConversationID string
	VariantLabel   string

	Quiet     bool
	StartTime time.Time

	// CancelFunc aborts the current stream; set only while one is live.
	CancelFunc context.CancelFunc

	InputCLI *ChatCLI
}

// NewChatSession creates a chat session against the backend.
func NewChatSession(args Args) (*ChatSession, error) {
	client := newClient(args)
	ctx := context.Background()

	if err := client.CheckHealth(ctx); err != nil {
		return nil, fmt.Errorf("backend not reachable: %w", err)
	}
	conv, err := client.CreateConversation(ctx)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	return &ChatSession{
		Conversation:   model.NewConversation(),
		Controller:     steering.NewController(client, conv.CurrentVariant.UUID),
		Client:         client,
		ConversationID: conv.UUID,
		VariantLabel:   conv.CurrentVariant.Label,
		Quiet:          args.Quiet,
		StartTime:      time.Now(),
		InputCLI:       NewChatCLI(),
	}, nil
}

// =============================================================================
// CHAT HANDLER
// =============================================================================

// HandleChat runs the line-mode REPL.
func HandleChat(args Args) error {
	session, err := NewChatSession(args)
	if err != nil {
		return err
	}
	defer session.InputCLI.Close()

	if !session.Quiet {
		printWelcome(session)
	}

	// First Ctrl+C cancels the in-flight stream instead of killing the
	// process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		for range sigChan {
			if session.CancelFunc != nil {
				session.CancelFunc()
				session.CancelFunc = nil
				fmt.Fprintln(os.Stderr, "\n"+warningStyle.Render("[Cancelled]"))
			}
		}
	}()

	for {
		input, err := session.InputCLI.ReadInput(promptStyle.Render("steer> "))
		if err != nil {
			// Ctrl+C at the prompt or EOF: exit gracefully.
			fmt.Println()
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			cont, err := handleSlashCommand(input, session)
			if err != nil {
				printError(err)
			}
			if !cont {
				return nil
			}
			continue
		}

		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}

		if err := processMessage(session, input); err != nil {
			printError(err)
		}
	}
}

// =============================================================================
// MESSAGE PROCESSING
// =============================================================================

// processMessage streams one response to stdout.
func processMessage(session *ChatSession, input string) error {
	session.Conversation.AddUserMessage(input)

	ctx, cancel := context.WithCancel(context.Background())
	session.CancelFunc = cancel
	defer func() {
		cancel()
		session.CancelFunc = nil
	}()

	req := newCompletionRequest(session.Conversation.ToAPIMessages(),
		session.Controller.VariantID(), session.Client.SessionID())

	assistant := session.Conversation.AddAssistantMessage()
	err := session.Client.ChatCompletionStream(ctx, req, func(chunk api.StreamChunk) {
		if chunk.Delta == "" {
			return
		}
		assistant.AppendDelta(chunk.Delta)
		fmt.Print(chunk.Delta)
	})
	fmt.Println()
	assistant.FinalizeStream(nil)

	if err != nil && ctx.Err() == context.Canceled {
		// User cancellation keeps the partial response.
		return nil
	}
	return err
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

const chatHelpText = `Commands:
  /steer <label> <value>   Apply a feature modification (0 clears)
  /features                List modified features
  /search <query>          Search features
  /status                  Session status
  /clear                   Clear conversation history
  /help                    This help
  /quit                    Exit`

// handleSlashCommand executes a REPL command. Returns false to exit.
func handleSlashCommand(input string, session *ChatSession) (bool, error) {
	fields := strings.Fields(strings.TrimPrefix(input, "/"))
	if len(fields) == 0 {
		return true, nil
	}

	switch strings.ToLower(fields[0]) {
	case "help":
		fmt.Println(chatHelpText)
		return true, nil

	case "quit", "exit", "q":
		return false, nil

	case "clear":
		session.Conversation.ClearHistory()
		fmt.Println(mutedStyle.Render("history cleared"))
		return true, nil

	case "status":
		printStatus(session)
		return true, nil

	case "steer":
		return true, chatSteer(session, fields[1:])

	case "features":
		return true, chatFeatures(session)

	case "search":
		if len(fields) < 2 {
			return true, fmt.Errorf("usage: /search <query>")
		}
		return true, chatSearch(session, strings.Join(fields[1:], " "))

	default:
		return true, fmt.Errorf("unknown command: /%s", fields[0])
	}
}

// chatSteer applies a modification immediately: unlike the TUI's staged
// compare-then-commit flow, line mode steers the session directly.
func chatSteer(session *ChatSession, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: /steer <label> <value>")
	}
	value, err := parseFloat(args[len(args)-1])
	if err != nil {
		return fmt.Errorf("bad value %q", args[len(args)-1])
	}
	label := strings.Join(args[:len(args)-1], " ")

	ctx := context.Background()
	session.Controller.StagePending(label, "", value)
	if err := session.Controller.ApplyPending(ctx); err != nil {
		return err
	}

	if value == 0 {
		fmt.Printf("%s %s\n", successStyle.Render("[cleared]"), label)
	} else {
		fmt.Printf("%s %s %s\n", successStyle.Render("[steered]"), label, util.SteerValueString(value))
	}
	return nil
}

// chatFeatures lists the variant's modified features.
func chatFeatures(session *ChatSession) error {
	ctx := context.Background()
	features, err := session.Client.ModifiedFeatures(ctx, session.Controller.VariantID())
	if err != nil {
		return err
	}
	if len(features) == 0 {
		fmt.Println(mutedStyle.Render("no modified features"))
		return nil
	}
	for _, f := range features {
		fmt.Printf("  %s %s\n",
			valueStyle.Render(util.PadRight(util.TruncateRunes(f.Label, 40), 42)),
			steeredStyle.Render(util.SteerValueString(f.Modification)))
	}
	return nil
}

// chatSearch prints semantic feature search results.
func chatSearch(session *ChatSession, query string) error {
	ctx := context.Background()
	features, err := session.Client.SearchVariantFeatures(ctx, session.Controller.VariantID(), query, config.Global().Steering.SearchTopK)
	if err != nil {
		return err
	}
	if len(features) == 0 {
		fmt.Println(mutedStyle.Render("no features matched"))
		return nil
	}
	for _, f := range features {
		fmt.Printf("  %s\n", valueStyle.Render(f.Label))
	}
	return nil
}

// =============================================================================
// DISPLAY
// =============================================================================

// printWelcome prints the session banner.
func printWelcome(session *ChatSession) {
	fmt.Println(headerStyle.Render("steer chat"))
	if session.VariantLabel != "" {
		fmt.Println(mutedStyle.Render("variant: " + session.VariantLabel))
	}
	fmt.Println(mutedStyle.Render("Type /help for commands, /quit to exit."))
	fmt.Println()
}

// printStatus prints session statistics.
func printStatus(session *ChatSession) {
	fmt.Println(headerStyle.Render("Session"))
	printKV("variant", session.VariantLabel)
	printKV("messages", util.IntToString(session.Conversation.MessageCount()))
	printKV("uptime", time.Since(session.StartTime).Round(time.Second).String())
	printKV("pending", util.IntToString(session.Controller.PendingCount()))
}
