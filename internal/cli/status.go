// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - backend and steering status report.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/jeranaias/steer-tui/internal/config"
	"github.com/jeranaias/steer-tui/internal/util"
)

// statusReport is the JSON shape for `steer status --json`.
type statusReport struct {
	ServerURL    string          `json:"server_url"`
	Healthy      bool            `json:"healthy"`
	Error        string          `json:"error,omitempty"`
	LatencyMS    int64           `json:"latency_ms,omitempty"`
	VariantID    string          `json:"variant_id,omitempty"`
	VariantLabel string          `json:"variant_label,omitempty"`
	Modified     []modifiedEntry `json:"modified_features,omitempty"`
}

type modifiedEntry struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// HandleStatus reports backend reachability and the current variant's
// modified features.
func HandleStatus(args Args) error {
	client := newClient(args)
	cfg := config.Global()
	ctx := context.Background()

	report := statusReport{ServerURL: cfg.Server.BaseURL}
	if args.ServerURL != "" {
		report.ServerURL = args.ServerURL
	}

	start := time.Now()
	healthErr := client.CheckHealth(ctx)
	report.LatencyMS = time.Since(start).Milliseconds()
	report.Healthy = healthErr == nil
	if healthErr != nil {
		report.Error = healthErr.Error()
	} else {
		// A fresh conversation carries the backend's default variant, which
		// is where persistent modifications live.
		if conv, err := client.CreateConversation(ctx); err == nil {
			report.VariantID = conv.CurrentVariant.UUID
			report.VariantLabel = conv.CurrentVariant.Label
			if features, err := client.ModifiedFeatures(ctx, conv.CurrentVariant.UUID); err == nil {
				for _, f := range features {
					report.Modified = append(report.Modified, modifiedEntry{Label: f.Label, Value: f.Modification})
				}
			}
		}
	}

	if args.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Println(headerStyle.Render("steer status"))
	printKV("server", report.ServerURL)
	if report.Healthy {
		printKV("backend", successStyle.Render("connected")+" ("+util.IntToString(int(report.LatencyMS))+"ms)")
	} else {
		printKV("backend", errorStyle.Render("unreachable"))
		printKV("error", report.Error)
		return fmt.Errorf("backend not reachable")
	}
	if report.VariantLabel != "" {
		printKV("variant", report.VariantLabel)
	} else if report.VariantID != "" {
		printKV("variant", report.VariantID)
	}

	if len(report.Modified) == 0 {
		printKV("steering", mutedStyle.Render("no modified features"))
		return nil
	}
	printKV("steering", util.IntToString(len(report.Modified))+" modified")
	for _, m := range report.Modified {
		fmt.Printf("    %s %s\n",
			valueStyle.Render(util.PadRight(util.TruncateRunes(m.Label, 40), 42)),
			steeredStyle.Render(util.SteerValueString(m.Value)))
	}
	return nil
}
