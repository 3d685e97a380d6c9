// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/jeranaias/steer-tui/internal/api"
)

// MaxMessages is the maximum number of messages to keep in conversation history.
// When exceeded, old messages are pruned to prevent unbounded memory growth.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds a complete chat conversation with history and metadata.
// The transcript is append-only from the backend's point of view: the
// backend only ever contributes new assistant replies. The two local
// mutations, truncation for regenerate and tail replacement on confirmed
// steering, are explicit operations below.
type Conversation struct {
	// Identity
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// BackendID is the uuid of the backend conversation, when one exists.
	BackendID string `json:"backend_id,omitempty"`

	// VariantID names the variant replies are generated against.
	VariantID string `json:"variant_id,omitempty"`

	// Messages
	Messages []*Message `json:"messages"`

	// System prompt (optional)
	SystemPrompt string `json:"system_prompt,omitempty"`
}

// NewConversation creates a new conversation with a generated ID.
func NewConversation() *Conversation {
	return &Conversation{
		ID:        generateConversationID(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage adds a message to the conversation.
func (c *Conversation) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTitle()
	c.pruneOldMessages()
}

// AddUserMessage creates and adds a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and adds a streaming assistant message.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	msg.VariantID = c.VariantID
	c.AddMessage(msg)
	return msg
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// GetLastAssistantMessage returns the most recent assistant message.
func (c *Conversation) GetLastAssistantMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i]
		}
	}
	return nil
}

// GetLastUserMessage returns the most recent user message.
func (c *Conversation) GetLastUserMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i]
		}
	}
	return nil
}

// AppendToLast appends streamed text to the last (streaming) message.
func (c *Conversation) AppendToLast(delta string) {
	last := c.GetLastMessage()
	if last != nil && last.IsStreaming {
		last.AppendDelta(delta)
	}
}

// FinalizeLast finalizes the last streaming message with statistics.
func (c *Conversation) FinalizeLast(stats *Statistics) {
	last := c.GetLastMessage()
	if last != nil && last.IsStreaming {
		last.FinalizeStream(stats)
	}
}

// ReplaceLastAssistant replaces the content of the most recent assistant
// message. Used when the user confirms a steered response: the steered
// content supplants the original reply in history while everything before
// it stays untouched.
func (c *Conversation) ReplaceLastAssistant(content string) bool {
	last := c.GetLastAssistantMessage()
	if last == nil {
		return false
	}
	last.ReplaceContent(content)
	c.UpdatedAt = time.Now()
	return true
}

// TruncateBeforeLastUser removes the most recent user message and
// everything after it, returning the removed user message's content.
// Used by regenerate: the same request is then re-issued.
func (c *Conversation) TruncateBeforeLastUser() (string, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			content := c.Messages[i].Content
			c.Messages = c.Messages[:i]
			c.UpdatedAt = time.Now()
			return content, true
		}
	}
	return "", false
}

// ClearHistory removes all messages from the conversation.
func (c *Conversation) ClearHistory() {
	c.Messages = make([]*Message, 0)
	c.UpdatedAt = time.Now()
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// WIRE CONVERSION
// =============================================================================

// ToAPIMessages converts the conversation to the backend message format.
// Streaming messages contribute their partial content; empty messages are
// dropped.
func (c *Conversation) ToAPIMessages() []api.ChatMessage {
	messages := make([]api.ChatMessage, 0, len(c.Messages)+1)

	if c.SystemPrompt != "" {
		messages = append(messages, api.NewSystemMessage(c.SystemPrompt))
	}

	for _, msg := range c.Messages {
		content := msg.GetDisplayContent()
		if content == "" {
			continue
		}
		switch msg.Role {
		case RoleUser, RoleAssistant, RoleSystem:
			messages = append(messages, api.ChatMessage{
				Role:    msg.Role.String(),
				Content: content,
			})
		}
	}

	return messages
}

// RecentContext returns the last n turns as backend messages, for
// auto-steer suggestion context.
func (c *Conversation) RecentContext(n int) []api.ChatMessage {
	all := c.ToAPIMessages()
	if len(all) <= n {
		return all
	}
	return all[len(all)-n:]
}

// GetHistory returns the message history for display.
func (c *Conversation) GetHistory() []*Message {
	return c.Messages
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if not set.
func (c *Conversation) updateTitle() {
	if c.Title != "" {
		return
	}

	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			c.Title = msg.Preview(50)
			return
		}
	}
}

// SetTitle manually sets the conversation title.
func (c *Conversation) SetTitle(title string) {
	c.Title = title
	c.UpdatedAt = time.Now()
}

// GetTitle returns the conversation title or a default.
func (c *Conversation) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Conversation"
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateConversationID creates a unique conversation ID.
func generateConversationID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "conv_" + hex.EncodeToString(bytes)
}

// Clone creates a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	clone := &Conversation{
		ID:           c.ID,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		BackendID:    c.BackendID,
		VariantID:    c.VariantID,
		SystemPrompt: c.SystemPrompt,
		Messages:     make([]*Message, len(c.Messages)),
	}

	for i, msg := range c.Messages {
		msgCopy := *msg
		clone.Messages[i] = &msgCopy
	}

	return clone
}

// pruneOldMessages removes old messages when conversation history exceeds
// MaxMessages. Keeps system messages and the most recent MaxMessages
// others.
func (c *Conversation) pruneOldMessages() {
	if len(c.Messages) <= MaxMessages {
		return
	}

	var systemMessages []*Message
	var otherMessages []*Message
	for _, msg := range c.Messages {
		if msg.Role == RoleSystem {
			systemMessages = append(systemMessages, msg)
		} else {
			otherMessages = append(otherMessages, msg)
		}
	}

	if len(otherMessages) > MaxMessages {
		otherMessages = otherMessages[len(otherMessages)-MaxMessages:]
	}

	c.Messages = make([]*Message, 0, len(systemMessages)+len(otherMessages))
	c.Messages = append(c.Messages, systemMessages...)
	c.Messages = append(c.Messages, otherMessages...)
}
