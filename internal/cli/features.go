// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// features.go - `steer features` subcommand handlers.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jeranaias/steer-tui/internal/api"
	"github.com/jeranaias/steer-tui/internal/config"
	"github.com/jeranaias/steer-tui/internal/util"
)

// HandleFeatures lists modified features or searches the feature space.
func HandleFeatures(args Args) error {
	client := newClient(args)
	ctx := context.Background()

	if err := client.CheckHealth(ctx); err != nil {
		return fmt.Errorf("backend not reachable: %w", err)
	}
	conv, err := client.CreateConversation(ctx)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	variantID := conv.CurrentVariant.UUID

	switch args.Subcommand {
	case "", "list":
		return featuresList(ctx, client, variantID, args)
	case "search":
		if args.Query == "" {
			return fmt.Errorf("usage: steer features search <query>")
		}
		return featuresSearch(ctx, client, variantID, args)
	default:
		return fmt.Errorf("unknown features subcommand: %s (want list or search)", args.Subcommand)
	}
}

// featuresList prints the variant's modified features.
func featuresList(ctx context.Context, client *api.Client, variantID string, args Args) error {
	features, err := client.ModifiedFeatures(ctx, variantID)
	if err != nil {
		return err
	}

	if args.JSON {
		return printFeaturesJSON(features)
	}

	if len(features) == 0 {
		fmt.Println(mutedStyle.Render("no modified features"))
		return nil
	}
	fmt.Println(headerStyle.Render("Modified features"))
	for _, f := range features {
		fmt.Printf("  %s %s\n",
			valueStyle.Render(util.PadRight(util.TruncateRunes(f.Label, 48), 50)),
			steeredStyle.Render(util.SteerValueString(f.Modification)))
	}
	return nil
}

// featuresSearch prints semantic search results for the query. Search is
// session-scoped here so staged-but-unconfirmed values show up too.
func featuresSearch(ctx context.Context, client *api.Client, variantID string, args Args) error {
	features, err := client.SearchSessionFeatures(ctx, api.SearchRequest{
		Query:     args.Query,
		VariantID: variantID,
		TopK:      config.Global().Steering.SearchTopK,
	})
	if err != nil {
		return err
	}

	if args.JSON {
		return printFeaturesJSON(features)
	}

	if len(features) == 0 {
		fmt.Println(mutedStyle.Render("no features matched"))
		return nil
	}
	fmt.Println(headerStyle.Render("Features matching \"" + args.Query + "\""))
	for _, f := range features {
		line := "  " + valueStyle.Render(util.PadRight(util.TruncateRunes(f.Label, 48), 50))
		if f.Modification != 0 {
			line += " " + steeredStyle.Render(util.SteerValueString(f.Modification))
		}
		fmt.Println(line)
	}
	return nil
}

func printFeaturesJSON(features []api.Feature) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(features)
}
