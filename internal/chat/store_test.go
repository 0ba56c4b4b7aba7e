package chat

import (
	"testing"
	"time"

	"voxchat/internal/domain"
)

func TestAppendFillsIdentityAndTimestamp(t *testing.T) {
	t.Parallel()

	store := NewStore()
	before := time.Now()
	msg := store.Append(domain.ChatMessage{Text: "hello", Sender: domain.SenderUser})

	if msg.ID == "" {
		t.Fatalf("expected a generated ID")
	}
	if msg.Timestamp.Before(before) {
		t.Fatalf("timestamp not filled: %v", msg.Timestamp)
	}
	if msg.Text != "hello" || msg.Sender != domain.SenderUser {
		t.Fatalf("payload mutated: %+v", msg)
	}

	// Explicit values are kept.
	stamp := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	kept := store.Append(domain.ChatMessage{ID: "fixed-id", Text: "again", Sender: domain.SenderAI, Timestamp: stamp})
	if kept.ID != "fixed-id" || !kept.Timestamp.Equal(stamp) {
		t.Fatalf("explicit identity overwritten: %+v", kept)
	}
}

func TestMessagesPreserveOrderAndIsolation(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Append(domain.ChatMessage{Text: "first", Sender: domain.SenderUser})
	store.Append(domain.ChatMessage{Text: "second", Sender: domain.SenderAI})

	got := store.Messages()
	if len(got) != 2 || got[0].Text != "first" || got[1].Text != "second" {
		t.Fatalf("unexpected order: %+v", got)
	}

	// Mutating the snapshot must not affect the store.
	got[0].Text = "mutated"
	if fresh := store.Messages(); fresh[0].Text != "first" {
		t.Fatalf("snapshot is not isolated")
	}
}

func TestRecordingFlag(t *testing.T) {
	t.Parallel()

	store := NewStore()
	if store.Recording() {
		t.Fatalf("store must start not recording")
	}
	store.SetRecording(true)
	if !store.Recording() {
		t.Fatalf("recording flag not set")
	}
	store.SetRecording(false)
	if store.Recording() {
		t.Fatalf("recording flag not cleared")
	}
}

func TestClear(t *testing.T) {
	t.Parallel()

	store := NewStore()
	store.Append(domain.ChatMessage{Text: "gone", Sender: domain.SenderUser})
	store.Clear()
	if got := store.Messages(); len(got) != 0 {
		t.Fatalf("expected empty conversation, got %+v", got)
	}
}
