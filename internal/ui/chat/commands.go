// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main TUI view: the conversation transcript,
// the input line, the feature panel, and the comparison workflow.
//
// This file holds the tea.Cmd constructors and the slash command
// dispatcher. Commands run in their own goroutines; everything they
// learn comes back as a message.
package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/steer-tui/internal/api"
	"github.com/jeranaias/steer-tui/internal/model"
	"github.com/jeranaias/steer-tui/internal/prefs"
	"github.com/jeranaias/steer-tui/internal/steering"
	"github.com/jeranaias/steer-tui/internal/ui/components"
	"github.com/jeranaias/steer-tui/internal/util"
)

// healthProbeTimeout bounds a single health check.
const healthProbeTimeout = 5 * time.Second

// =============================================================================
// BACKEND COMMANDS
// =============================================================================

// createConversationCmd creates the backend conversation for this run.
func createConversationCmd(client *api.Client, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		conv, err := client.CreateConversation(ctx)
		return ConversationCreatedMsg{Conversation: conv, Err: err}
	}
}

// checkHealthCmd probes the backend once.
func checkHealthCmd(client *api.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), healthProbeTimeout)
		defer cancel()
		return HealthMsg{Err: client.CheckHealth(ctx)}
	}
}

// healthTickCmd schedules the next background probe.
func healthTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return HealthTickMsg(t)
	})
}

// loadFeaturesCmd fetches the feature table for the conversation.
func loadFeaturesCmd(client *api.Client, conversationID string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		features, err := client.TableFeatures(ctx, conversationID)
		return FeaturesLoadedMsg{Features: features, Err: err}
	}
}

// searchFeaturesCmd runs a semantic feature search against the variant.
func searchFeaturesCmd(client *api.Client, variantID, query string, topK int, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		features, err := client.SearchVariantFeatures(ctx, variantID, query, topK)
		return SearchResultMsg{Query: query, Features: features, Err: err}
	}
}

// reloadVariantCmd refreshes the local mirror of the variant edit set.
func reloadVariantCmd(client *api.Client, variantID string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		variant, err := client.GetVariant(ctx, variantID)
		return VariantReloadedMsg{Variant: variant, Err: err}
	}
}

// =============================================================================
// STREAM COMMANDS
// =============================================================================

// inspectFeaturesCmd asks which features activate on the given messages.
func inspectFeaturesCmd(client *api.Client, messages []api.ChatMessage, variantID string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		features, err := client.InspectFeatures(ctx, api.InspectRequest{
			Messages:  messages,
			VariantID: variantID,
		})
		return InspectResultMsg{Features: features, Err: err}
	}
}

// clusterFeaturesCmd groups the given feature labels into display clusters.
func clusterFeaturesCmd(client *api.Client, variantID string, labels []string, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		clusters, err := client.ClusterFeatures(ctx, api.ClusterRequest{
			VariantID: variantID,
			Labels:    labels,
		})
		return ClustersLoadedMsg{Clusters: clusters, Err: err}
	}
}

// waitForEventCmd surfaces the next stream event as a message. The
// update loop re-arms it after every event while a stream is live.
func waitForEventCmd(events <-chan steering.Event) tea.Cmd {
	return func() tea.Msg {
		return StreamEventMsg{Event: <-events}
	}
}

// runSingleCmd drives one response stream, emitting events into the
// funnel channel.
func runSingleCmd(gen *steering.Generation, client *api.Client, req api.ChatCompletionRequest, events chan<- steering.Event) tea.Cmd {
	return func() tea.Msg {
		err := steering.RunSingle(gen, client, req, steering.SlotOriginal, func(e steering.Event) {
			events <- e
		})
		return StreamFinishedMsg{GenerationID: gen.ID, Err: err}
	}
}

// runComparisonCmd applies the staged modifications and drives the
// original and steered streams concurrently.
func runComparisonCmd(gen *steering.Generation, client *api.Client, controller *steering.Controller,
	baseline, steered api.ChatCompletionRequest, previous string, events chan<- steering.Event) tea.Cmd {
	return func() tea.Msg {
		if err := controller.ApplyPending(gen.Ctx); err != nil {
			return PendingAppliedMsg{Err: err}
		}
		controller.BeginComparison(previous)

		err := steering.RunComparison(gen, client, baseline, steered, func(e steering.Event) {
			events <- e
		})
		return StreamFinishedMsg{GenerationID: gen.ID, Err: err}
	}
}

// autoSteerCmd requests and stages suggested feature deltas for a query.
func autoSteerCmd(steerer *steering.AutoSteerer, query string, history []api.ChatMessage, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		plan, err := steerer.Run(ctx, query, history)
		return AutoSteerPlanMsg{Plan: plan, Err: err}
	}
}

// confirmCmd promotes the steered response.
func confirmCmd(controller *steering.Controller, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		final, err := controller.Confirm(ctx)
		return ConfirmResultMsg{Final: final, Err: err}
	}
}

// cancelCmd discards the steered response and keeps the original.
func cancelCmd(controller *steering.Controller, timeout time.Duration) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		restored, err := controller.Cancel(ctx)
		return CancelResultMsg{Restored: restored, Err: err}
	}
}

// toastTickCmd prunes expired toasts once a second while any are live.
func toastTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return ToastTickMsg(t)
	})
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// command is one parsed slash command.
type command struct {
	Name string
	Args []string
}

// parseCommand splits a slash command line into name and arguments.
func parseCommand(line string) (command, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return command{}, false
	}
	fields := strings.Fields(strings.TrimPrefix(line, "/"))
	if len(fields) == 0 {
		return command{}, false
	}
	return command{Name: strings.ToLower(fields[0]), Args: fields[1:]}, true
}

// helpText lists the slash commands shown by /help.
const helpText = `Commands:
  /clear                 clear the transcript
  /features              toggle the feature panel
  /search <query>        semantic feature search
  /inspect               show features activating on recent messages
  /cluster               group the feature table into clusters
  /steer <label> <val>   stage a feature modification (-1.0 to 1.0, 0 clears)
  /autosteer [on|off]    toggle automatic steering suggestions
  /confirm               keep the steered response
  /cancel                keep the original response
  /regenerate            regenerate the last response
  /darkmode              toggle dark mode
  /quit                  exit`

// runCommand executes one slash command against the model.
func (m *Model) runCommand(line string) tea.Cmd {
	cmd, ok := parseCommand(line)
	if !ok {
		return nil
	}

	switch cmd.Name {
	case "help":
		m.conversation.AddMessage(model.NewSystemMessage(helpText))
		m.refreshTranscript()
		return nil

	case "clear":
		m.conversation.ClearHistory()
		m.refreshTranscript()
		return nil

	case "features":
		m.showFeatures = !m.showFeatures
		m.setSize(m.width, m.height)
		if m.showFeatures && m.conversationID != "" {
			return loadFeaturesCmd(m.client, m.conversationID, m.requestTimeout())
		}
		return nil

	case "search":
		if len(cmd.Args) == 0 {
			return m.toastError(errors.New("usage: /search <query>"))
		}
		m.showFeatures = true
		m.setSize(m.width, m.height)
		query := strings.Join(cmd.Args, " ")
		return searchFeaturesCmd(m.client, m.controller.VariantID(), query, m.cfg.Steering.SearchTopK, m.requestTimeout())

	case "inspect":
		if m.conversation.MessageCount() == 0 {
			return m.toastError(errors.New("nothing to inspect yet"))
		}
		m.showFeatures = true
		m.setSize(m.width, m.height)
		return inspectFeaturesCmd(m.client, m.conversation.ToAPIMessages(), m.controller.VariantID(), m.requestTimeout())

	case "cluster":
		if m.store.Len() == 0 {
			return m.toastError(errors.New("feature table is empty, send a message first"))
		}
		labels := make([]string, 0, m.store.Len())
		for _, f := range m.store.All() {
			labels = append(labels, f.Label)
		}
		return clusterFeaturesCmd(m.client, m.controller.VariantID(), labels, m.requestTimeout())

	case "steer":
		return m.steerCommand(cmd.Args)

	case "autosteer":
		return m.autoSteerCommand(cmd.Args)

	case "confirm":
		return m.confirmComparison()

	case "cancel":
		return m.cancelComparison()

	case "regenerate":
		return m.regenerate()

	case "darkmode":
		return m.toggleDarkMode()

	case "quit", "exit":
		return tea.Quit

	default:
		return m.toastError(errors.New("unknown command: /" + cmd.Name))
	}
}

// steerCommand stages /steer <label> <value>. The label may contain
// spaces; the value is the last argument.
func (m *Model) steerCommand(args []string) tea.Cmd {
	if len(args) < 2 {
		return m.toastError(errors.New("usage: /steer <label> <value>"))
	}

	value, err := util.ParseSteerValue(args[len(args)-1])
	if err != nil {
		return m.toastError(err)
	}
	label := strings.Join(args[:len(args)-1], " ")

	uuid := ""
	if f, ok := m.store.Get(label); ok {
		uuid = f.UUID
	}

	m.controller.StagePending(label, uuid, value)
	m.syncFeaturePanel()
	m.syncStatusBar()

	if value == 0 {
		m.toasts.Add(components.NewStatusToast("staged clear for " + label))
	} else {
		m.toasts.Add(components.NewStatusToast("staged " + label + " " + util.SteerValueString(value)))
	}
	return toastTickCmd()
}

// autoSteerCommand toggles or sets automatic steering.
func (m *Model) autoSteerCommand(args []string) tea.Cmd {
	switch {
	case len(args) == 0:
		m.cfg.Steering.AutoSteer = !m.cfg.Steering.AutoSteer
	case args[0] == "on":
		m.cfg.Steering.AutoSteer = true
	case args[0] == "off":
		m.cfg.Steering.AutoSteer = false
	default:
		return m.toastError(errors.New("usage: /autosteer [on|off]"))
	}

	m.statusBar.AutoSteer = m.cfg.Steering.AutoSteer
	state := "off"
	if m.cfg.Steering.AutoSteer {
		state = "on"
	}
	m.toasts.Add(components.NewStatusToast("auto-steer " + state))
	return toastTickCmd()
}

// regenerate drops the last assistant response and resubmits the last
// user message.
func (m *Model) regenerate() tea.Cmd {
	if m.state != StateReady {
		return m.toastError(errors.New("generation in progress"))
	}
	content, ok := m.conversation.TruncateBeforeLastUser()
	if !ok {
		return m.toastError(errors.New("nothing to regenerate"))
	}
	m.refreshTranscript()
	return m.submitContent(content)
}

// toggleDarkMode flips the theme and persists the preference.
func (m *Model) toggleDarkMode() tea.Cmd {
	m.prefs.ToggleDarkMode()
	if err := prefs.Save(m.prefs, m.prefsPath); err != nil {
		m.toasts.Add(components.NewWarningToast("could not save preferences"))
	}
	return func() tea.Msg {
		return ThemeChangedMsg{Dark: m.prefs.DarkMode}
	}
}

// toastError queues an error toast and starts the prune ticker.
func (m *Model) toastError(err error) tea.Cmd {
	m.toasts.Add(components.NewErrorToast(err.Error()))
	return toastTickCmd()
}
