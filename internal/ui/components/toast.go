// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the steer TUI.
//
// This file implements non-blocking toasts. Unlike modal error dialogs,
// toasts render above the status bar and auto-dismiss, so a failed
// steer call or dropped connection never blocks the conversation.
package components

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/steer-tui/internal/ui/styles"
)

// =============================================================================
// TOAST TYPES
// =============================================================================

// ToastKind represents the type of toast notification.
type ToastKind int

const (
	// ToastKindStatus is an informational toast (cyan)
	ToastKindStatus ToastKind = iota
	// ToastKindError is an error toast (rose)
	ToastKindError
	// ToastKindWarning is a warning toast (amber)
	ToastKindWarning
	// ToastKindSuccess is a success toast (emerald)
	ToastKindSuccess
)

// DefaultToastDuration is the auto-dismiss duration for status toasts.
const DefaultToastDuration = 4 * time.Second

// ErrorToastDuration is the auto-dismiss duration for error toasts.
const ErrorToastDuration = 8 * time.Second

// =============================================================================
// TOAST
// =============================================================================

// Toast is a non-blocking notification.
type Toast struct {
	ID        int
	Message   string
	Kind      ToastKind
	CreatedAt time.Time
	Duration  time.Duration
}

// NewErrorToast creates an error toast.
func NewErrorToast(message string) Toast {
	return Toast{
		Message:   message,
		Kind:      ToastKindError,
		CreatedAt: time.Now(),
		Duration:  ErrorToastDuration,
	}
}

// NewStatusToast creates an informational toast.
func NewStatusToast(message string) Toast {
	return Toast{
		Message:   message,
		Kind:      ToastKindStatus,
		CreatedAt: time.Now(),
		Duration:  DefaultToastDuration,
	}
}

// NewSuccessToast creates a success toast.
func NewSuccessToast(message string) Toast {
	return Toast{
		Message:   message,
		Kind:      ToastKindSuccess,
		CreatedAt: time.Now(),
		Duration:  DefaultToastDuration,
	}
}

// NewWarningToast creates a warning toast.
func NewWarningToast(message string) Toast {
	return Toast{
		Message:   message,
		Kind:      ToastKindWarning,
		CreatedAt: time.Now(),
		Duration:  DefaultToastDuration,
	}
}

// IsExpired returns true if the toast should be dismissed.
func (t *Toast) IsExpired() bool {
	return time.Since(t.CreatedAt) >= t.Duration
}

// =============================================================================
// TOAST MANAGER
// =============================================================================

// ToastManager holds the active toasts.
type ToastManager struct {
	toasts    []Toast
	nextID    int
	maxToasts int
	mutex     sync.Mutex
}

// NewToastManager creates a toast manager.
func NewToastManager() *ToastManager {
	return &ToastManager{
		nextID:    1,
		maxToasts: 5,
	}
}

// Add queues a toast, evicting the oldest when full, and returns its id.
func (m *ToastManager) Add(toast Toast) int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	toast.ID = m.nextID
	m.nextID++

	m.toasts = append(m.toasts, toast)
	if len(m.toasts) > m.maxToasts {
		m.toasts = m.toasts[len(m.toasts)-m.maxToasts:]
	}
	return toast.ID
}

// Dismiss removes a toast by id.
func (m *ToastManager) Dismiss(id int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// Prune drops expired toasts and reports whether any remain.
func (m *ToastManager) Prune() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	kept := m.toasts[:0]
	for _, t := range m.toasts {
		if !t.IsExpired() {
			kept = append(kept, t)
		}
	}
	m.toasts = kept
	return len(m.toasts) > 0
}

// Active returns a snapshot of the live toasts.
func (m *ToastManager) Active() []Toast {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	out := make([]Toast, len(m.toasts))
	copy(out, m.toasts)
	return out
}

// View renders the active toasts, newest last.
func (m *ToastManager) View(width int) string {
	active := m.Active()
	if len(active) == 0 {
		return ""
	}

	var lines []string
	for _, t := range active {
		lines = append(lines, renderToast(t, width))
	}
	return strings.Join(lines, "\n")
}

// renderToast renders one toast line with its kind's indicator.
func renderToast(t Toast, width int) string {
	var color lipgloss.AdaptiveColor
	var icon string

	switch t.Kind {
	case ToastKindError:
		color = styles.Rose
		icon = styles.StatusIndicators.Error
	case ToastKindWarning:
		color = styles.Amber
		icon = styles.StatusIndicators.Warning
	case ToastKindSuccess:
		color = styles.Emerald
		icon = styles.StatusIndicators.Success
	default:
		color = styles.Cyan
		icon = styles.StatusIndicators.Info
	}

	style := lipgloss.NewStyle().
		Foreground(color).
		Bold(true).
		MaxWidth(width)

	return style.Render(icon + " " + t.Message)
}
