// steer - a terminal client for feature-steered language models.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"github.com/jeranaias/steer-tui/internal/api"
	"github.com/jeranaias/steer-tui/internal/cli"
	"github.com/jeranaias/steer-tui/internal/config"
	"github.com/jeranaias/steer-tui/internal/prefs"
	"github.com/jeranaias/steer-tui/internal/ui/chat"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse(os.Args[1:])

	// Every command path reads the global config.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	switch cmd {
	case cli.CmdTUI:
		err = runTUI(cfg, args)
	case cli.CmdAsk:
		err = cli.HandleAsk(args)
	case cli.CmdChat:
		err = cli.HandleChat(args)
	case cli.CmdStatus:
		err = cli.HandleStatus(args)
	case cli.CmdFeatures:
		err = cli.HandleFeatures(args)
	case cli.CmdConfig:
		err = cli.HandleConfig(args)
	case cli.CmdVersion:
		cli.PrintVersion()
	case cli.CmdHelp:
		cli.PrintUsage()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runTUI starts the full-screen interface.
func runTUI(cfg *config.Config, args cli.Args) error {
	if !cli.IsTTY() {
		return fmt.Errorf("the TUI needs an interactive terminal; try `steer ask` for piped use")
	}

	baseURL := cfg.Server.BaseURL
	if args.ServerURL != "" {
		baseURL = args.ServerURL
	}

	client := api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:   baseURL,
		Timeout:   time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		SessionID: uuid.NewString(),
	})

	prefsPath, err := prefs.Path()
	if err != nil {
		prefsPath = ""
	}
	pr := prefs.Load(prefsPath)

	m := chat.New(client, cfg, pr, prefsPath)
	p := tea.NewProgram(m, tea.WithAltScreen())

	// Hot-reload: edits to the config file land in the running UI.
	if path, err := config.ConfigPath(); err == nil {
		watcher, werr := config.NewWatcher(path, 500*time.Millisecond, func(next *config.Config) {
			config.SetGlobal(next)
			p.Send(chat.ConfigReloadedMsg{})
		})
		if werr == nil {
			if werr = watcher.Watch(); werr == nil {
				defer watcher.Close()
			}
		}
	}

	_, err = p.Run()
	return err
}
