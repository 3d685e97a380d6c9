// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main TUI view: the conversation transcript,
// the input line, the feature panel, and the comparison workflow.
//
// This file renders the view.
package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/steer-tui/internal/model"
	"github.com/jeranaias/steer-tui/internal/steering"
	"github.com/jeranaias/steer-tui/internal/ui/components"
	"github.com/jeranaias/steer-tui/internal/ui/styles"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	body := m.renderBody()
	if m.showFeatures && m.theme.GetLayoutMode() != styles.LayoutNarrow {
		panel := m.featurePanel.View()
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, " ", panel)
	}
	b.WriteString(body)
	b.WriteString("\n")

	if m.spinner.IsActive() {
		b.WriteString(m.spinner.View())
		b.WriteString("\n")
	}

	if toasts := m.toasts.View(m.width); toasts != "" {
		b.WriteString(toasts)
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputContainer.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())

	return b.String()
}

// renderHeader renders the title line.
func (m *Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("steer")
	subtitle := ""
	if m.statusBar.VariantLabel != "" {
		subtitle = m.theme.HeaderSubtitle.Render(" " + m.statusBar.VariantLabel)
	}
	return m.theme.Header.Width(m.width).Render(title + subtitle)
}

// renderBody renders the comparison when one is live, the transcript
// otherwise.
func (m *Model) renderBody() string {
	if m.state == StateComparing && m.controller.IsComparing() {
		view := m.comparison.View()
		if m.controller.Phase() == steering.PhaseComparing {
			view += "\n" + m.comparison.ActionBar()
		}
		return view
	}
	return m.viewport.View()
}

// refreshTranscript re-renders the conversation into the viewport and
// follows the tail.
func (m *Model) refreshTranscript() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderTranscript())
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// renderTranscript renders every message.
func (m *Model) renderTranscript() string {
	history := m.conversation.GetHistory()
	if len(history) == 0 {
		return m.theme.ThinkingText.Render("Start a conversation, or /help for commands.")
	}

	parts := make([]string, 0, len(history))
	for _, msg := range history {
		parts = append(parts, m.renderMessage(msg))
	}
	return strings.Join(parts, "\n\n")
}

// renderMessage renders one transcript message by role.
func (m *Model) renderMessage(msg *model.Message) string {
	width := m.transcriptWidth() - 4
	if width < 20 {
		width = 20
	}

	switch msg.Role {
	case model.RoleUser:
		label := m.theme.ShortcutKey.Render("You")
		return label + "\n" + m.theme.UserBubble.MaxWidth(width).Render(msg.GetDisplayContent())

	case model.RoleSystem:
		return m.theme.SystemMessage.MaxWidth(width).Render(msg.GetDisplayContent())

	default:
		label := m.theme.ShortcutKey.Render("Assistant")
		if msg.Steered {
			label += " " + m.theme.SteeredBadge.Render("steered")
		}
		content := msg.GetDisplayContent()
		if msg.IsStreaming && content == "" {
			return label + "\n" + m.theme.ThinkingText.Render("thinking...")
		}
		return label + "\n" + m.renderAssistantContent(content, width)
	}
}

// renderAssistantContent renders assistant text through the markdown
// pipeline when enabled, with code-fence highlighting as the fallback.
func (m *Model) renderAssistantContent(content string, width int) string {
	if m.markdown != nil {
		if out, err := m.markdown.Render(content); err == nil {
			return strings.TrimRight(out, "\n")
		}
	}
	return components.ParseCodeBlocks(content, width)
}
