// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - CLI parsing and command dispatch for steer.
package cli

import (
	"fmt"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdStatus
	CmdFeatures
	CmdConfig
	CmdVersion
	CmdHelp
)

// SteerFlag is one --steer label=value occurrence.
type SteerFlag struct {
	Label string
	Value float64
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet     bool
	Verbose   bool
	JSON      bool
	ServerURL string // --server overrides the configured backend URL

	// Command-specific
	Query      string
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	AutoSteer  bool
	Steers     []SteerFlag

	// Raw args remaining after flag parsing
	Raw []string
}

const usageText = `steer %s - terminal client for feature-steered language models

Steer talks to a steerable-model backend: it inspects the features a
model activates on your conversation, lets you dial them up or down, and
shows original and steered responses side by side before you commit.

Usage:
  steer                        Start TUI (default)
  steer ask "question"         Ask a single question
    --steer LABEL=VALUE        Apply a feature modification (repeatable)
    --auto                     Let the backend suggest steering
  steer chat                   Interactive line-mode chat
  steer status, s              Show backend and variant status
  steer features [search Q]    List or search model features
  steer config [show|get|set|path]  Configuration
  steer version                Show version
  steer help                   Show this help

Global flags:
  --server URL                 Backend URL (default http://127.0.0.1:8000)
  -q, --quiet                  Suppress non-essential output
  --json                       Machine-readable output where supported

Examples:
  steer ask "explain monads" --steer "formal tone=0.5"
  steer ask "tell me a story" --auto
  steer features search "pirate"
  steer config set steering.max_value 0.8

Environment:
  STEER_SERVER_URL             Backend URL
  STEER_AUTO                   Enable auto-steer (1/true)
  STEER_THEME                  dark, light, or auto
  STEER_NO_MARKDOWN            Disable markdown rendering
`

// PrintUsage prints the usage text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("steer version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
}

// Parse parses argv (without the program name) and returns the command
// and args.
func Parse(argv []string) (Command, Args) {
	remaining, parsedArgs := parseGlobalFlags(argv)

	// No command defaults to the TUI.
	if len(remaining) == 0 {
		return CmdTUI, parsedArgs
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	parsedArgs.Raw = remaining

	switch cmd {
	case "tui":
		return CmdTUI, parsedArgs

	case "ask":
		parseAskArgs(&parsedArgs, remaining)
		return CmdAsk, parsedArgs

	case "chat":
		return CmdChat, parsedArgs

	case "status", "s":
		return CmdStatus, parsedArgs

	case "features", "feature":
		if len(remaining) > 0 {
			parsedArgs.Subcommand = strings.ToLower(remaining[0])
			parsedArgs.Query = strings.Join(remaining[1:], " ")
		}
		return CmdFeatures, parsedArgs

	case "config":
		parseConfigArgs(&parsedArgs, remaining)
		return CmdConfig, parsedArgs

	case "version", "-v", "--version":
		return CmdVersion, parsedArgs

	case "help", "-h", "--help":
		return CmdHelp, parsedArgs

	default:
		// Unknown command: treat the whole line as an ask query.
		parseAskArgs(&parsedArgs, append([]string{cmd}, remaining...))
		return CmdAsk, parsedArgs
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(args []string) ([]string, Args) {
	var remaining []string
	parsedArgs := Args{}

	i := 0
	for i < len(args) {
		arg := args[i]

		switch {
		case arg == "-q" || arg == "--quiet":
			parsedArgs.Quiet = true
		case arg == "--verbose":
			parsedArgs.Verbose = true
		case arg == "--json":
			parsedArgs.JSON = true
		case arg == "--server":
			if i+1 < len(args) {
				i++
				parsedArgs.ServerURL = args[i]
			}
		case strings.HasPrefix(arg, "--server="):
			parsedArgs.ServerURL = strings.TrimPrefix(arg, "--server=")
		default:
			remaining = append(remaining, arg)
		}
		i++
	}

	return remaining, parsedArgs
}

// parseAskArgs parses ask-specific flags; everything that is not a flag
// joins the query.
func parseAskArgs(args *Args, remaining []string) {
	var query []string

	i := 0
	for i < len(remaining) {
		arg := remaining[i]

		switch {
		case arg == "--auto":
			args.AutoSteer = true
		case arg == "--steer":
			if i+1 < len(remaining) {
				i++
				if sf, ok := parseSteerFlag(remaining[i]); ok {
					args.Steers = append(args.Steers, sf)
				}
			}
		case strings.HasPrefix(arg, "--steer="):
			if sf, ok := parseSteerFlag(strings.TrimPrefix(arg, "--steer=")); ok {
				args.Steers = append(args.Steers, sf)
			}
		default:
			query = append(query, arg)
		}
		i++
	}

	args.Query = strings.Join(query, " ")
}

// parseSteerFlag parses "label=value". The label may contain spaces and
// equals signs; the value is whatever follows the last '='.
func parseSteerFlag(s string) (SteerFlag, bool) {
	idx := strings.LastIndex(s, "=")
	if idx <= 0 || idx == len(s)-1 {
		return SteerFlag{}, false
	}
	value, err := parseFloat(s[idx+1:])
	if err != nil {
		return SteerFlag{}, false
	}
	return SteerFlag{Label: strings.TrimSpace(s[:idx]), Value: value}, true
}

// parseConfigArgs parses the config subcommand and key/value.
func parseConfigArgs(args *Args, remaining []string) {
	if len(remaining) == 0 {
		args.Subcommand = "show"
		return
	}
	args.Subcommand = strings.ToLower(remaining[0])
	if len(remaining) > 1 {
		args.ConfigKey = remaining[1]
	}
	if len(remaining) > 2 {
		args.ConfigVal = strings.Join(remaining[2:], " ")
	}
}
