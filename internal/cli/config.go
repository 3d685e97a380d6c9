// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - `steer config` subcommand handlers.
package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/steer-tui/internal/config"
)

// HandleConfig dispatches the config subcommands: show, get, set, path.
func HandleConfig(args Args) error {
	switch args.Subcommand {
	case "", "show":
		return configShow(args)
	case "get":
		return configGet(args)
	case "set":
		return configSet(args)
	case "path":
		return configPath()
	default:
		return fmt.Errorf("unknown config subcommand: %s (want show, get, set, or path)", args.Subcommand)
	}
}

// configShow prints every key and its current value.
func configShow(args Args) error {
	cfg := config.Global()

	if args.JSON {
		out := make(map[string]interface{})
		for _, key := range config.GetAllKeys() {
			if v, err := cfg.Get(key); err == nil {
				out[key] = v
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Println(headerStyle.Render("Configuration"))
	for _, key := range config.GetAllKeys() {
		v, err := cfg.Get(key)
		if err != nil {
			continue
		}
		printKV(key, fmt.Sprintf("%v", v))
	}
	return nil
}

// configGet prints one value.
func configGet(args Args) error {
	if args.ConfigKey == "" {
		return fmt.Errorf("usage: steer config get <key>")
	}
	v, err := config.Global().Get(args.ConfigKey)
	if err != nil {
		return err
	}
	fmt.Printf("%v\n", v)
	return nil
}

// configSet updates one value and writes the config file.
func configSet(args Args) error {
	if args.ConfigKey == "" || args.ConfigVal == "" {
		return fmt.Errorf("usage: steer config set <key> <value>")
	}

	cfg := config.Global()
	if err := cfg.Set(args.ConfigKey, args.ConfigVal); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rejected: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("%s %s = %s\n", successStyle.Render("[saved]"), args.ConfigKey, args.ConfigVal)
	return nil
}

// configPath prints the config file location.
func configPath() error {
	path, err := config.ConfigPath()
	if err != nil {
		return err
	}
	fmt.Println(path)
	return nil
}
