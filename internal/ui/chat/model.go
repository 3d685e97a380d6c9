// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the main TUI view: the conversation transcript,
// the input line, the feature panel, and the comparison workflow.
//
// This file defines the Model and its construction.
package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/steer-tui/internal/api"
	"github.com/jeranaias/steer-tui/internal/config"
	"github.com/jeranaias/steer-tui/internal/feature"
	"github.com/jeranaias/steer-tui/internal/model"
	"github.com/jeranaias/steer-tui/internal/prefs"
	"github.com/jeranaias/steer-tui/internal/steering"
	"github.com/jeranaias/steer-tui/internal/ui/components"
	"github.com/jeranaias/steer-tui/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State is the top-level mode of the chat view.
type State int

const (
	// StateReady accepts input.
	StateReady State = iota
	// StateStreaming has a single response stream in flight.
	StateStreaming
	// StateComparing has a dual stream in flight or awaiting a
	// confirm/cancel decision.
	StateComparing
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateStreaming:
		return "streaming"
	case StateComparing:
		return "comparing"
	default:
		return "ready"
	}
}

// eventChannelSize buffers stream events between the emit goroutines and
// the listen command. Sized for a full comparison burst.
const eventChannelSize = 256

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	// Backend.
	client         *api.Client
	conversationID string

	// Domain state.
	conversation *model.Conversation
	controller   *steering.Controller
	autoSteerer  *steering.AutoSteerer
	store        *feature.Store

	// Settings.
	cfg       *config.Config
	prefs     *prefs.Prefs
	prefsPath string

	// UI state.
	state        State
	keys         KeyMap
	theme        *styles.Theme
	width        int
	height       int
	showFeatures bool
	err          error

	// Components.
	viewport     viewport.Model
	input        textinput.Model
	spinner      components.Spinner
	statusBar    *components.StatusBar
	featurePanel *components.FeaturePanel
	comparison   *components.Comparison
	toasts       *components.ToastManager

	// Streaming plumbing. genID names the generation whose events are
	// currently accepted; events is the funnel from stream goroutines
	// into the update loop.
	buffer *StreamingBuffer
	events chan steering.Event
	genID  string

	// pendingHistory holds a deferred submission while auto-steer
	// suggestions are fetched; cancelKeep holds the original comparison
	// buffer across a cancel round trip.
	pendingHistory []api.ChatMessage
	cancelKeep     string

	// markdown renders assistant messages; nil when markdown is off or
	// the renderer could not be built.
	markdown *glamour.TermRenderer

	// featureReloads counts table refreshes, one per completed response.
	featureReloads int
}

// New creates the chat model.
func New(client *api.Client, cfg *config.Config, pr *prefs.Prefs, prefsPath string) *Model {
	dark := true
	if pr.DarkModeSet {
		dark = pr.DarkMode
	} else if cfg.UI.Theme == "light" {
		dark = false
	}
	theme := styles.NewThemeWithMode(dark)

	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "Type a message, or / for commands"
	input.CharLimit = 4096
	input.Focus()

	vp := viewport.New(80, 20)

	controller := steering.NewController(client, "")

	m := &Model{
		client:       client,
		conversation: model.NewConversation(),
		controller:   controller,
		autoSteerer:  steering.NewAutoSteerer(client, controller),
		store:        feature.NewStore(),
		cfg:          cfg,
		prefs:        pr,
		prefsPath:    prefsPath,
		state:        StateReady,
		keys:         DefaultKeyMap(),
		theme:        theme,
		viewport:     vp,
		input:        input,
		spinner:      components.NewGeneratingSpinner(),
		statusBar:    components.NewStatusBar(theme),
		featurePanel: components.NewFeaturePanel(theme),
		comparison:   components.NewComparison(theme),
		toasts:       components.NewToastManager(),
		buffer:       NewStreamingBuffer(),
		events:       make(chan steering.Event, eventChannelSize),
	}
	m.featurePanel.MaxSteer = cfg.Steering.MaxValue
	m.comparison.SplitRatio = pr.SplitSizes[0]
	m.statusBar.SetConn(components.ConnConnecting)
	m.statusBar.AutoSteer = cfg.Steering.AutoSteer
	m.rebuildMarkdown()
	return m
}

// Init starts the session: conversation creation, the first health
// probe, and the cursor blink.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		createConversationCmd(m.client, m.requestTimeout()),
		checkHealthCmd(m.client),
		healthTickCmd(m.healthInterval()),
	)
}

// requestTimeout is the per-call deadline for non-streaming requests.
func (m *Model) requestTimeout() time.Duration {
	if m.cfg.Server.TimeoutSecs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(m.cfg.Server.TimeoutSecs) * time.Second
}

// healthInterval is the gap between background health probes.
func (m *Model) healthInterval() time.Duration {
	secs := m.cfg.Server.HealthIntervalSecs
	if secs < 1 {
		secs = 5
	}
	return time.Duration(secs) * time.Second
}

// rebuildMarkdown recreates the glamour renderer for the current width
// and settings.
func (m *Model) rebuildMarkdown() {
	m.markdown = nil
	if !m.cfg.UI.Markdown {
		return
	}
	wrap := m.transcriptWidth() - 2
	if wrap < 20 {
		wrap = 78
	}
	style := glamour.WithAutoStyle()
	if m.theme.IsDark {
		style = glamour.WithStandardStyle("dark")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(wrap))
	if err != nil {
		return
	}
	m.markdown = r
}

// transcriptWidth is the width available to the conversation viewport,
// accounting for the feature panel when it is open.
func (m *Model) transcriptWidth() int {
	w := m.width
	if w <= 0 {
		w = 80
	}
	if m.showFeatures && m.theme.GetLayoutMode() != styles.LayoutNarrow {
		w -= m.featurePanelWidth() + 1
	}
	if w < 20 {
		w = 20
	}
	return w
}

// featurePanelWidth sizes the side panel by layout mode.
func (m *Model) featurePanelWidth() int {
	if m.theme.GetLayoutMode() == styles.LayoutWide {
		return 52
	}
	return 40
}

// setSize propagates a terminal resize to every component.
func (m *Model) setSize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	m.width = width
	m.height = height
	m.theme.SetSize(width, height)

	// Header, input, and status bar take five rows.
	bodyHeight := height - 5
	if bodyHeight < 4 {
		bodyHeight = 4
	}

	m.viewport.Width = m.transcriptWidth()
	m.viewport.Height = bodyHeight
	m.input.Width = width - 4
	m.statusBar.SetWidth(width)
	m.featurePanel.SetSize(m.featurePanelWidth(), bodyHeight)
	m.comparison.SetSize(m.transcriptWidth(), bodyHeight)
	m.rebuildMarkdown()
	m.refreshTranscript()
}

// Err returns the last fatal error, if any.
func (m *Model) Err() error {
	return m.err
}
