// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main TUI view: the conversation transcript,
// the input line, the feature panel, and the comparison workflow.
//
// This file is the update loop.
package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/steer-tui/internal/api"
	"github.com/jeranaias/steer-tui/internal/model"
	"github.com/jeranaias/steer-tui/internal/steering"
	"github.com/jeranaias/steer-tui/internal/ui/components"
	"github.com/jeranaias/steer-tui/internal/ui/styles"
	"github.com/jeranaias/steer-tui/internal/util"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles one message.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.setSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StreamEventMsg:
		return m.handleStreamEvent(msg.Event)

	case StreamTickMsg:
		return m.handleStreamTick()

	case StreamFinishedMsg:
		return m.handleStreamFinished(msg)

	case ConversationCreatedMsg:
		return m.handleConversationCreated(msg)

	case HealthMsg:
		if msg.Err != nil {
			m.statusBar.SetConn(components.ConnDisconnected)
		} else {
			m.statusBar.SetConn(components.ConnConnected)
		}
		return m, nil

	case HealthTickMsg:
		return m, tea.Batch(checkHealthCmd(m.client), healthTickCmd(m.healthInterval()))

	case FeaturesLoadedMsg:
		if msg.Err != nil {
			return m, m.toastError(msg.Err)
		}
		m.featureReloads++
		m.store.Replace(msg.Features)
		m.syncFeaturePanel()
		return m, nil

	case SearchResultMsg:
		if msg.Err != nil {
			return m, m.toastError(msg.Err)
		}
		m.store.Merge(msg.Features)
		m.featurePanel.SetFeatures(msg.Features)
		m.toasts.Add(components.NewStatusToast("search: " + msg.Query))
		return m, toastTickCmd()

	case InspectResultMsg:
		if msg.Err != nil {
			return m, m.toastError(msg.Err)
		}
		m.store.Merge(msg.Features)
		m.featurePanel.SetFeatures(msg.Features)
		m.toasts.Add(components.NewStatusToast("inspect: " + util.IntToString(len(msg.Features)) + " features"))
		return m, toastTickCmd()

	case ClustersLoadedMsg:
		if msg.Err != nil {
			return m, m.toastError(msg.Err)
		}
		m.store.SetClusters(msg.Clusters)
		m.conversation.AddMessage(model.NewSystemMessage(formatClusters(msg.Clusters)))
		m.refreshTranscript()
		return m, nil

	case VariantReloadedMsg:
		// Fail-soft; the previous mirror stays.
		return m, nil

	case PendingAppliedMsg:
		if msg.Err != nil {
			m.state = StateReady
			m.spinner.Stop()
			m.syncStatusBar()
			return m, m.toastError(msg.Err)
		}
		return m, nil

	case AutoSteerPlanMsg:
		return m.handleAutoSteerPlan(msg)

	case ConfirmResultMsg:
		return m.handleConfirmResult(msg)

	case CancelResultMsg:
		return m.handleCancelResult(msg)

	case ToastTickMsg:
		if m.toasts.Prune() {
			return m, toastTickCmd()
		}
		return m, nil

	case ThemeChangedMsg:
		m.theme = styles.NewThemeWithMode(msg.Dark)
		prev := m.statusBar
		m.statusBar = components.NewStatusBar(m.theme)
		m.statusBar.SetConn(prev.Conn)
		m.statusBar.VariantLabel = prev.VariantLabel
		m.statusBar.AutoSteer = prev.AutoSteer
		m.featurePanel = components.NewFeaturePanel(m.theme)
		m.featurePanel.MaxSteer = m.cfg.Steering.MaxValue
		m.comparison = components.NewComparison(m.theme)
		m.comparison.SplitRatio = m.prefs.SplitSizes[0]
		m.syncFeaturePanel()
		m.syncStatusBar()
		m.setSize(m.width, m.height)
		return m, nil

	case ConfigReloadedMsg:
		m.statusBar.AutoSteer = m.cfg.Steering.AutoSteer
		m.featurePanel.MaxSteer = m.cfg.Steering.MaxValue
		m.rebuildMarkdown()
		return m, nil
	}

	// Spinner frames and other component messages.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	m.viewport, cmd = m.viewport.Update(msg)
	if cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEY HANDLING
// =============================================================================

// handleKey routes a key press by mode.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.controller.CancelGeneration()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Cancel):
		if m.state == StateStreaming || m.state == StateComparing {
			return m, m.abortGeneration()
		}
		return m, nil

	case key.Matches(msg, m.keys.Features):
		return m, m.runCommand("/features")
	}

	// Comparison decision keys shadow typing only while a decision is
	// actually awaited.
	if m.state == StateComparing && m.controller.Phase() == steering.PhaseComparing {
		switch msg.String() {
		case "y", "Y":
			return m, m.confirmComparison()
		case "n", "N":
			return m, m.cancelComparison()
		}
		return m, nil
	}

	// Feature panel navigation while open.
	if m.showFeatures {
		if cmd, handled := m.handleFeatureKey(msg); handled {
			return m, cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m, m.submit()

	case key.Matches(msg, m.keys.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// steerStep is the slider increment for keyboard editing.
const steerStep = 0.1

// handleFeatureKey handles navigation and editing inside the feature
// panel. Returns handled=false for keys that should fall through to the
// input line.
func (m *Model) handleFeatureKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "ctrl+n":
		m.featurePanel.MoveSelection(1)
		return nil, true
	case "ctrl+p":
		m.featurePanel.MoveSelection(-1)
		return nil, true
	case "ctrl+right":
		return m.nudgeSelected(steerStep), true
	case "ctrl+left":
		return m.nudgeSelected(-steerStep), true
	case "ctrl+x":
		if f, ok := m.featurePanel.SelectedFeature(); ok {
			m.controller.StagePending(f.Label, f.UUID, 0)
			m.syncFeaturePanel()
			m.syncStatusBar()
		}
		return nil, true
	}
	return nil, false
}

// nudgeSelected stages a slider step on the selected feature.
func (m *Model) nudgeSelected(delta float64) tea.Cmd {
	f, ok := m.featurePanel.SelectedFeature()
	if !ok {
		return nil
	}
	current := f.Modification
	if v, staged := m.controller.PendingValue(f.Label); staged {
		current = v
	}
	m.controller.StagePending(f.Label, f.UUID, current+delta)
	m.syncFeaturePanel()
	m.syncStatusBar()
	return nil
}

// =============================================================================
// SUBMIT AND STREAM START
// =============================================================================

// submit sends the input line: slash commands dispatch, anything else
// becomes a user message.
func (m *Model) submit() tea.Cmd {
	content := strings.TrimSpace(m.input.Value())
	if content == "" {
		return nil
	}
	m.input.Reset()

	if strings.HasPrefix(content, "/") {
		return m.runCommand(content)
	}
	if m.state != StateReady {
		return m.toastError(errors.New("response in progress, Esc to cancel"))
	}
	if m.conversationID == "" {
		return m.toastError(errors.New("not connected yet"))
	}
	return m.submitContent(content)
}

// submitContent appends the user message and starts the right kind of
// generation: a comparison when modifications are staged, an auto-steer
// round when enabled, a plain stream otherwise.
func (m *Model) submitContent(content string) tea.Cmd {
	m.conversation.AddUserMessage(content)
	history := m.conversation.ToAPIMessages()
	m.refreshTranscript()

	if m.controller.PendingCount() > 0 {
		return m.startComparison(history)
	}
	if m.cfg.Steering.AutoSteer {
		m.state = StateComparing
		m.pendingHistory = history
		m.spinner = components.NewSteeringSpinner()
		m.syncStatusBar()
		return tea.Batch(m.spinner.Start(),
			autoSteerCmd(m.autoSteerer, content, history, m.requestTimeout()))
	}
	return m.startSingle(history)
}

// startSingle begins a plain response stream.
func (m *Model) startSingle(history []api.ChatMessage) tea.Cmd {
	m.conversation.AddAssistantMessage()
	m.buffer.Reset()
	m.state = StateStreaming
	m.spinner = components.NewGeneratingSpinner()
	m.refreshTranscript()

	gen := m.controller.StartGeneration(context.Background())
	m.genID = gen.ID
	m.syncStatusBar()

	req := m.completionRequest(history)
	req.SessionID = m.client.SessionID()
	return tea.Batch(
		m.spinner.Start(),
		waitForEventCmd(m.events),
		streamTickCmd(),
		runSingleCmd(gen, m.client, req, m.events),
	)
}

// completionRequest builds a streaming chat request carrying the
// configured sampling settings.
func (m *Model) completionRequest(history []api.ChatMessage) api.ChatCompletionRequest {
	return api.ChatCompletionRequest{
		Messages:            history,
		VariantID:           m.controller.VariantID(),
		Stream:              true,
		MaxCompletionTokens: m.cfg.Chat.MaxCompletionTokens,
		Temperature:         m.cfg.Chat.Temperature,
		TopP:                m.cfg.Chat.TopP,
	}
}

// startComparison begins the dual-stream comparison: the baseline
// request omits the session id so staged session-scoped modifications do
// not apply to it, the steered request carries it.
func (m *Model) startComparison(history []api.ChatMessage) tea.Cmd {
	m.state = StateComparing
	m.spinner = components.NewSteeringSpinner()

	labels := make([]string, 0)
	for _, p := range m.controller.PendingFeatures() {
		labels = append(labels, p.Label)
	}
	m.comparison.AppliedFeatures = labels
	m.comparison.SetContent("", "")

	previous := ""
	if last := m.conversation.GetLastAssistantMessage(); last != nil {
		previous = last.GetDisplayContent()
	}

	gen := m.controller.StartGeneration(context.Background())
	m.genID = gen.ID
	m.syncStatusBar()

	baseline := m.completionRequest(history)
	steered := baseline
	steered.SessionID = m.client.SessionID()

	return tea.Batch(
		m.spinner.Start(),
		waitForEventCmd(m.events),
		runComparisonCmd(gen, m.client, m.controller, baseline, steered, previous, m.events),
	)
}

// abortGeneration cancels the in-flight generation and settles the
// transcript.
func (m *Model) abortGeneration() tea.Cmd {
	m.controller.CancelGeneration()
	if m.state == StateStreaming {
		chunk := m.buffer.ForceFlush()
		if chunk != "" {
			m.conversation.AppendToLast(chunk)
		}
		m.conversation.FinalizeLast(nil)
	}
	m.state = StateReady
	m.genID = ""
	m.spinner.Stop()
	m.refreshTranscript()
	m.syncStatusBar()
	m.toasts.Add(components.NewWarningToast("generation cancelled"))
	return toastTickCmd()
}

// =============================================================================
// STREAM EVENT HANDLING
// =============================================================================

// handleStreamEvent folds one stream event into the view. Events from a
// superseded generation are dropped without re-arming side effects.
func (m *Model) handleStreamEvent(e steering.Event) (tea.Model, tea.Cmd) {
	if !m.controller.IsCurrentGeneration(e.GenerationID) || e.GenerationID != m.genID {
		if m.state != StateReady {
			return m, waitForEventCmd(m.events)
		}
		return m, nil
	}

	if m.state == StateComparing {
		return m.handleComparisonEvent(e)
	}

	switch {
	case e.Err != nil:
		chunk := m.buffer.ForceFlush()
		if chunk != "" {
			m.conversation.AppendToLast(chunk)
		}
		m.conversation.FinalizeLast(nil)
		m.state = StateReady
		m.genID = ""
		m.spinner.Stop()
		m.refreshTranscript()
		m.syncStatusBar()
		return m, m.toastError(e.Err)

	case e.Done:
		chunk := m.buffer.ForceFlush()
		if chunk != "" {
			m.conversation.AppendToLast(chunk)
		}
		m.conversation.FinalizeLast(nil)
		m.state = StateReady
		m.genID = ""
		m.spinner.Stop()
		m.refreshTranscript()
		m.syncStatusBar()
		// One table refresh per completed response: activations shift
		// with every exchange.
		if m.conversationID != "" {
			return m, loadFeaturesCmd(m.client, m.conversationID, m.requestTimeout())
		}
		return m, nil

	default:
		if e.Delta != "" {
			m.buffer.Write(e.Delta)
		}
		return m, waitForEventCmd(m.events)
	}
}

// handleComparisonEvent folds a dual-stream event into the comparison.
func (m *Model) handleComparisonEvent(e steering.Event) (tea.Model, tea.Cmd) {
	m.controller.ApplyEvent(e)
	m.comparison.SetContent(m.controller.ComparisonBuffers())
	m.syncStatusBar()

	if e.Err != nil {
		m.state = StateReady
		m.genID = ""
		m.spinner.Stop()
		return m, m.toastError(e.Err)
	}

	if m.controller.Phase() == steering.PhaseComparing {
		// Both slots complete; await the y/n decision. No more events
		// are coming for this generation, so the reader must not be
		// re-armed: a leftover blocked reader would race the next
		// generation's reader and could enqueue its deltas out of order.
		m.spinner.Stop()
		return m, nil
	}
	return m, waitForEventCmd(m.events)
}

// handleStreamTick flushes buffered stream content into the transcript.
func (m *Model) handleStreamTick() (tea.Model, tea.Cmd) {
	if m.state != StateStreaming {
		return m, nil
	}
	if chunk, ok := m.buffer.Flush(); ok {
		m.conversation.AppendToLast(chunk)
		m.refreshTranscript()
	}
	return m, streamTickCmd()
}

// handleStreamFinished settles driver-goroutine errors that produced no
// terminal event (connection refused before the first byte).
func (m *Model) handleStreamFinished(msg StreamFinishedMsg) (tea.Model, tea.Cmd) {
	if msg.GenerationID != m.genID || msg.Err == nil {
		return m, nil
	}
	if m.state == StateReady {
		return m, nil
	}
	m.state = StateReady
	m.genID = ""
	m.spinner.Stop()
	m.conversation.FinalizeLast(nil)
	m.refreshTranscript()
	m.syncStatusBar()
	return m, m.toastError(msg.Err)
}

// =============================================================================
// WORKFLOW RESULTS
// =============================================================================

// handleConversationCreated wires the backend conversation into the
// controller and loads the initial feature table.
func (m *Model) handleConversationCreated(msg ConversationCreatedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.statusBar.SetConn(components.ConnDisconnected)
		return m, m.toastError(msg.Err)
	}
	m.conversationID = msg.Conversation.UUID
	m.controller.SetVariantID(msg.Conversation.CurrentVariant.UUID)
	m.statusBar.VariantLabel = msg.Conversation.CurrentVariant.Label
	m.statusBar.SetConn(components.ConnConnected)
	return m, loadFeaturesCmd(m.client, m.conversationID, m.requestTimeout())
}

// handleAutoSteerPlan continues a deferred submission once suggestions
// arrive. A fallback plan degrades to the plain stream.
func (m *Model) handleAutoSteerPlan(msg AutoSteerPlanMsg) (tea.Model, tea.Cmd) {
	history := m.pendingHistory
	m.pendingHistory = nil
	m.state = StateReady
	m.spinner.Stop()

	if history == nil {
		return m, nil
	}
	if msg.Err != nil || msg.Plan == nil || msg.Plan.Fallback {
		if msg.Plan != nil && msg.Plan.Note != "" {
			m.toasts.Add(components.NewStatusToast(msg.Plan.Note))
		}
		return m, tea.Batch(m.startSingle(history), toastTickCmd())
	}

	labels := make([]string, 0, len(msg.Plan.Staged))
	for _, s := range msg.Plan.Staged {
		labels = append(labels, s.Label)
	}
	m.toasts.Add(components.NewStatusToast("auto-steer: " + strings.Join(labels, ", ")))
	m.syncFeaturePanel()
	return m, tea.Batch(m.startComparison(history), toastTickCmd())
}

// confirmComparison keeps the steered response.
func (m *Model) confirmComparison() tea.Cmd {
	if m.controller.Phase() != steering.PhaseComparing {
		return m.toastError(errors.New("no comparison to confirm"))
	}
	return confirmCmd(m.controller, m.requestTimeout())
}

// cancelComparison keeps the original response. The original buffer is
// captured before Cancel resets it.
func (m *Model) cancelComparison() tea.Cmd {
	if m.controller.Phase() != steering.PhaseComparing {
		return m.toastError(errors.New("no comparison to cancel"))
	}
	original, _ := m.controller.ComparisonBuffers()
	m.cancelKeep = original
	return cancelCmd(m.controller, m.requestTimeout())
}

// handleConfirmResult promotes the steered response into the transcript.
func (m *Model) handleConfirmResult(msg ConfirmResultMsg) (tea.Model, tea.Cmd) {
	m.state = StateReady
	m.genID = ""
	m.syncStatusBar()

	if msg.Err != nil {
		return m, m.toastError(msg.Err)
	}

	am := m.conversation.AddAssistantMessage()
	am.ReplaceContent(msg.Final)
	m.refreshTranscript()
	m.syncFeaturePanel()
	m.toasts.Add(components.NewSuccessToast("steering confirmed"))

	cmds := []tea.Cmd{toastTickCmd(), reloadVariantCmd(m.client, m.controller.VariantID(), m.requestTimeout())}
	if m.conversationID != "" {
		cmds = append(cmds, loadFeaturesCmd(m.client, m.conversationID, m.requestTimeout()))
	}
	return m, tea.Batch(cmds...)
}

// handleCancelResult keeps the un-steered response in the transcript.
func (m *Model) handleCancelResult(msg CancelResultMsg) (tea.Model, tea.Cmd) {
	m.state = StateReady
	m.genID = ""
	m.syncStatusBar()

	keep := m.cancelKeep
	m.cancelKeep = ""
	if keep == "" {
		keep = msg.Restored
	}

	if msg.Err != nil {
		m.toasts.Add(components.NewErrorToast(msg.Err.Error()))
	}

	if keep != "" {
		am := m.conversation.AddAssistantMessage()
		am.AppendDelta(keep)
		am.FinalizeStream(nil)
	}
	m.refreshTranscript()
	m.syncFeaturePanel()
	m.toasts.Add(components.NewStatusToast("kept original response"))
	return m, toastTickCmd()
}

// =============================================================================
// COMPONENT SYNC
// =============================================================================

// syncStatusBar pushes steering counters into the status bar.
func (m *Model) syncStatusBar() {
	phase := ""
	if p := m.controller.Phase(); p != steering.PhaseIdle {
		phase = p.String()
	}
	confirmed := 0
	if v := m.controller.Variant(); v != nil {
		confirmed = len(v.Edits)
	}
	m.statusBar.SetSteering(m.controller.PendingCount(), confirmed, phase)
}

// syncFeaturePanel overlays staged and confirmed values onto the stored
// feature table.
func (m *Model) syncFeaturePanel() {
	features := m.store.All()
	for i := range features {
		if v, ok := m.controller.PendingValue(features[i].Label); ok {
			value := v
			features[i].PendingModification = &value
		} else {
			features[i].PendingModification = nil
		}
		if v, ok := m.controller.ConfirmedValue(features[i].Label); ok {
			features[i].Modification = v
		}
	}
	m.featurePanel.SetFeatures(features)
}

// formatClusters renders cluster names and sizes as a system note.
func formatClusters(clusters []api.Cluster) string {
	if len(clusters) == 0 {
		return "No clusters for the current feature table."
	}
	var b strings.Builder
	b.WriteString("Feature clusters:")
	for _, c := range clusters {
		b.WriteString("\n  " + c.Name + " (" + util.IntToString(len(c.Features)) + ")")
	}
	return b.String()
}
