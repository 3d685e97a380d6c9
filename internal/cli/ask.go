// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - one-shot question handler.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jeranaias/steer-tui/internal/api"
	"github.com/jeranaias/steer-tui/internal/steering"
	"github.com/jeranaias/steer-tui/internal/util"
)

// HandleAsk streams a single response to stdout. With --steer or --auto
// the staged modifications are applied for this session before the
// request; the one-shot path never commits them to the variant.
func HandleAsk(args Args) error {
	if strings.TrimSpace(args.Query) == "" {
		return errors.New("usage: steer ask \"question\" [--steer label=value] [--auto]")
	}

	client := newClient(args)
	ctx := context.Background()

	if err := client.CheckHealth(ctx); err != nil {
		return fmt.Errorf("backend not reachable: %w", err)
	}

	conv, err := client.CreateConversation(ctx)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	controller := steering.NewController(client, conv.CurrentVariant.UUID)

	applied, err := applySteering(ctx, client, controller, args)
	if err != nil {
		return err
	}
	if len(applied) > 0 && !args.Quiet {
		fmt.Fprintf(os.Stderr, "%s %s\n",
			steeredStyle.Render("[steered]"),
			mutedStyle.Render(strings.Join(applied, ", ")))
	}

	req := newCompletionRequest(
		[]api.ChatMessage{api.NewUserMessage(args.Query)},
		conv.CurrentVariant.UUID, client.SessionID())

	stats := api.NewStreamStats()
	first := true
	err = client.ChatCompletionStream(ctx, req, func(chunk api.StreamChunk) {
		if chunk.Delta == "" {
			return
		}
		if first {
			stats.RecordFirstToken()
			first = false
		}
		stats.Chunks++
		fmt.Print(chunk.Delta)
	})
	fmt.Println()
	if err != nil {
		return err
	}

	if args.Verbose {
		stats.Finalize()
		fmt.Fprintln(os.Stderr, mutedStyle.Render(stats.Format()))
	}
	return nil
}

// applySteering stages and applies the requested modifications, returning
// the applied "label value" descriptions for display.
func applySteering(ctx context.Context, client *api.Client, controller *steering.Controller, args Args) ([]string, error) {
	var applied []string

	if args.AutoSteer {
		steerer := steering.NewAutoSteerer(client, controller)
		plan, err := steerer.Run(ctx, args.Query, nil)
		if err != nil {
			return nil, fmt.Errorf("auto-steer: %w", err)
		}
		if plan.Fallback {
			if !args.Quiet && plan.Note != "" {
				fmt.Fprintln(os.Stderr, mutedStyle.Render(plan.Note))
			}
			return nil, nil
		}
		for _, s := range plan.Staged {
			applied = append(applied, s.Label+" "+util.SteerValueString(s.Value))
		}
		return applied, nil
	}

	if len(args.Steers) == 0 {
		return nil, nil
	}

	for _, s := range args.Steers {
		controller.StagePending(s.Label, "", s.Value)
		applied = append(applied, s.Label+" "+util.SteerValueString(s.Value))
	}
	if err := controller.ApplyPending(ctx); err != nil {
		return nil, fmt.Errorf("apply steering: %w", err)
	}
	return applied, nil
}
