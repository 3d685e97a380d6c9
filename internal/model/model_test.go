// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"strings"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("Hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want user", msg.Role)
	}
	if msg.Content != "Hello" {
		t.Errorf("Content = %q, want 'Hello'", msg.Content)
	}
	if msg.ID == "" {
		t.Error("ID should be generated")
	}
}

func TestNewAssistantMessage_Streaming(t *testing.T) {
	msg := NewAssistantMessage()

	if !msg.IsStreaming {
		t.Error("new assistant message should be streaming")
	}
	if !msg.IsEmpty() {
		t.Error("new assistant message should be empty")
	}
}

func TestMessage_StreamingLifecycle(t *testing.T) {
	msg := NewAssistantMessage()

	msg.AppendDelta("Hello")
	msg.AppendDelta(" world")

	if msg.GetDisplayContent() != "Hello world" {
		t.Errorf("GetDisplayContent() = %q during streaming", msg.GetDisplayContent())
	}
	if msg.Content != "" {
		t.Error("Content should stay empty until finalized")
	}

	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(2)
	msg.FinalizeStream(stats)

	if msg.IsStreaming {
		t.Error("message should no longer be streaming")
	}
	if msg.Content != "Hello world" {
		t.Errorf("Content = %q after finalize", msg.Content)
	}
	if msg.ChunkCount != 2 {
		t.Errorf("ChunkCount = %d, want 2", msg.ChunkCount)
	}
}

func TestMessage_AppendDeltaAfterFinalizeIgnored(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendDelta("done")
	msg.FinalizeStream(nil)

	msg.AppendDelta(" extra")

	if msg.Content != "done" {
		t.Errorf("Content = %q, deltas after finalize must be ignored", msg.Content)
	}
}

func TestMessage_ReplaceContent(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendDelta("original reply")
	msg.FinalizeStream(nil)

	msg.ReplaceContent("steered reply")

	if msg.Content != "steered reply" {
		t.Errorf("Content = %q", msg.Content)
	}
	if !msg.Steered {
		t.Error("Steered flag should be set")
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("This is a fairly long message that should be truncated")

	preview := msg.Preview(20)
	if len([]rune(preview)) > 20 {
		t.Errorf("Preview too long: %q", preview)
	}
	if !strings.HasSuffix(preview, "...") {
		t.Errorf("Preview = %q, want ellipsis", preview)
	}
}

func TestMessage_FormatStats(t *testing.T) {
	msg := NewAssistantMessage()
	msg.AppendDelta("x")
	msg.FinalizeStream(nil)
	msg.TotalDuration = 2 * time.Second
	msg.TTFT = 150 * time.Millisecond
	msg.ChunkCount = 10
	msg.ChunksPerSec = 5.0

	s := msg.FormatStats()
	if !strings.Contains(s, "chunks") || !strings.Contains(s, "TTFT") {
		t.Errorf("FormatStats() = %q", s)
	}

	// User messages have no stats.
	if NewUserMessage("hi").FormatStats() != "" {
		t.Error("user message should have no stats")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_AddAndRetrieve(t *testing.T) {
	conv := NewConversation()

	conv.AddUserMessage("question")
	asst := conv.AddAssistantMessage()
	asst.AppendDelta("answer")
	conv.FinalizeLast(nil)

	if conv.MessageCount() != 2 {
		t.Fatalf("MessageCount() = %d, want 2", conv.MessageCount())
	}
	if conv.GetLastUserMessage().Content != "question" {
		t.Error("GetLastUserMessage() wrong")
	}
	if conv.GetLastAssistantMessage().Content != "answer" {
		t.Error("GetLastAssistantMessage() wrong")
	}
}

func TestConversation_AppendToLast(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("hi")
	conv.AddAssistantMessage()

	conv.AppendToLast("one ")
	conv.AppendToLast("two")
	conv.FinalizeLast(nil)

	if got := conv.GetLastAssistantMessage().Content; got != "one two" {
		t.Errorf("Content = %q", got)
	}
}

func TestConversation_ReplaceLastAssistant(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("q1")
	a1 := conv.AddAssistantMessage()
	a1.AppendDelta("first")
	conv.FinalizeLast(nil)
	conv.AddUserMessage("q2")
	a2 := conv.AddAssistantMessage()
	a2.AppendDelta("second")
	conv.FinalizeLast(nil)

	if !conv.ReplaceLastAssistant("second (steered)") {
		t.Fatal("ReplaceLastAssistant() = false")
	}

	// Only the most recent assistant message changes.
	if a1.Content != "first" {
		t.Error("earlier assistant message must not change")
	}
	if a2.Content != "second (steered)" || !a2.Steered {
		t.Errorf("last assistant = %q steered=%v", a2.Content, a2.Steered)
	}
	if conv.MessageCount() != 4 {
		t.Error("replacement must not change transcript length")
	}
}

func TestConversation_ReplaceLastAssistant_Empty(t *testing.T) {
	conv := NewConversation()
	if conv.ReplaceLastAssistant("x") {
		t.Error("ReplaceLastAssistant() on empty conversation should be false")
	}
}

func TestConversation_TruncateBeforeLastUser(t *testing.T) {
	conv := NewConversation()
	conv.AddUserMessage("q1")
	a := conv.AddAssistantMessage()
	a.AppendDelta("a1")
	conv.FinalizeLast(nil)
	conv.AddUserMessage("q2")
	b := conv.AddAssistantMessage()
	b.AppendDelta("a2")
	conv.FinalizeLast(nil)

	content, ok := conv.TruncateBeforeLastUser()
	if !ok {
		t.Fatal("TruncateBeforeLastUser() = false")
	}
	if content != "q2" {
		t.Errorf("removed content = %q, want 'q2'", content)
	}
	if conv.MessageCount() != 2 {
		t.Errorf("MessageCount() = %d, want 2", conv.MessageCount())
	}
	if conv.GetLastMessage().Content != "a1" {
		t.Errorf("tail = %q, want 'a1'", conv.GetLastMessage().Content)
	}
}

func TestConversation_TruncateBeforeLastUser_NoUser(t *testing.T) {
	conv := NewConversation()
	if _, ok := conv.TruncateBeforeLastUser(); ok {
		t.Error("truncate with no user message should report false")
	}
}

func TestConversation_ToAPIMessages(t *testing.T) {
	conv := NewConversation()
	conv.SystemPrompt = "be terse"
	conv.AddUserMessage("hi")
	conv.AddAssistantMessage() // empty, still streaming, dropped

	msgs := conv.ToAPIMessages()
	if len(msgs) != 2 {
		t.Fatalf("len = %d, want 2 (system + user)", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Role != "user" {
		t.Errorf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
	}
}

func TestConversation_RecentContext(t *testing.T) {
	conv := NewConversation()
	for i := 0; i < 5; i++ {
		conv.AddUserMessage("q")
		a := conv.AddAssistantMessage()
		a.AppendDelta("a")
		conv.FinalizeLast(nil)
	}

	recent := conv.RecentContext(3)
	if len(recent) != 3 {
		t.Errorf("len = %d, want 3", len(recent))
	}
}

func TestConversation_TitleFromFirstUserMessage(t *testing.T) {
	conv := NewConversation()
	if conv.GetTitle() != "New Conversation" {
		t.Errorf("default title = %q", conv.GetTitle())
	}

	conv.AddUserMessage("Tell me about tide pools")
	if conv.GetTitle() != "Tell me about tide pools" {
		t.Errorf("title = %q", conv.GetTitle())
	}
}

func TestConversation_Clone(t *testing.T) {
	conv := NewConversation()
	conv.VariantID = "var-1"
	conv.AddUserMessage("original")

	clone := conv.Clone()
	clone.Messages[0].Content = "mutated"

	if conv.Messages[0].Content != "original" {
		t.Error("clone must not share message storage")
	}
	if clone.VariantID != "var-1" {
		t.Error("clone should carry VariantID")
	}
}

func TestConversation_PruneOldMessages(t *testing.T) {
	conv := NewConversation()
	conv.AddMessage(NewSystemMessage("sys"))
	for i := 0; i < MaxMessages+10; i++ {
		conv.AddMessage(NewUserMessage("m"))
	}

	if conv.MessageCount() != MaxMessages+1 {
		t.Errorf("MessageCount() = %d, want system + MaxMessages", conv.MessageCount())
	}
	if conv.Messages[0].Role != RoleSystem {
		t.Error("system message must survive pruning")
	}
}

// =============================================================================
// STATISTICS TESTS
// =============================================================================

func TestStatistics_Lifecycle(t *testing.T) {
	stats := NewStatistics()
	time.Sleep(time.Millisecond)
	stats.RecordFirstToken()
	first := stats.FirstTokenTime

	// Second call is a no-op.
	stats.RecordFirstToken()
	if stats.FirstTokenTime != first {
		t.Error("RecordFirstToken should only record once")
	}

	stats.Finalize(40)
	if stats.Chunks != 40 {
		t.Errorf("Chunks = %d", stats.Chunks)
	}
	if stats.TTFT <= 0 || stats.TotalDuration <= 0 {
		t.Error("durations should be positive")
	}
	if stats.ChunksPerSecond <= 0 {
		t.Error("ChunksPerSecond should be positive")
	}
}
