// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// helpers.go - shared helpers for CLI command handlers.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/steer-tui/internal/api"
	"github.com/jeranaias/steer-tui/internal/config"
	"github.com/jeranaias/steer-tui/internal/util"
)

// parseFloat parses a steering value, accepting a leading "+".
func parseFloat(s string) (float64, error) {
	return util.ParseSteerValue(s)
}

// newClient builds an API client from config plus CLI overrides.
func newClient(args Args) *api.Client {
	cfg := config.Global()

	baseURL := cfg.Server.BaseURL
	if args.ServerURL != "" {
		baseURL = args.ServerURL
	}

	return api.NewClientWithConfig(&api.ClientConfig{
		BaseURL:   baseURL,
		Timeout:   time.Duration(cfg.Server.TimeoutSecs) * time.Second,
		SessionID: uuid.NewString(),
	})
}

// newCompletionRequest builds a streaming chat request carrying the
// configured sampling settings.
func newCompletionRequest(messages []api.ChatMessage, variantID, sessionID string) api.ChatCompletionRequest {
	cfg := config.Global()
	return api.ChatCompletionRequest{
		Messages:            messages,
		VariantID:           variantID,
		SessionID:           sessionID,
		Stream:              true,
		MaxCompletionTokens: cfg.Chat.MaxCompletionTokens,
		Temperature:         cfg.Chat.Temperature,
		TopP:                cfg.Chat.TopP,
	}
}

// printError writes a styled error line to stderr.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("[Error]"), err)
}

// printKV prints an aligned "label: value" line.
func printKV(label, value string) {
	fmt.Printf("  %s %s\n", labelStyle.Render(util.PadRight(label+":", 18)), valueStyle.Render(value))
}
