package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"voxchat/internal/capture"
	"voxchat/internal/chat"
	"voxchat/internal/domain"
	"voxchat/internal/ports"
)

func TestReasonMessages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		reason domain.StateReason
		want   string
	}{
		{domain.ReasonProviderSelected, "Speech provider ready"},
		{domain.ReasonListeningStarted, "Listening..."},
		{domain.ReasonListeningRestarted, "Listening restarted; previous capture discarded"},
		{domain.ReasonListeningResumed, "Still listening..."},
		{domain.ReasonResultReceived, "Got it"},
		{domain.ReasonStoppedByUser, "Stopped listening"},
		{domain.ReasonSessionEnded, "Listening ended"},
		{domain.ReasonRecognitionFailed, "Speech recognition failed"},
		{domain.ReasonPermissionDenied, "Microphone permission is required"},
		{domain.StateReason("bogus"), ""},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.reason), func(t *testing.T) {
			t.Parallel()
			if got := reasonMessage(tc.reason); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code domain.ErrorCode
		want string
	}{
		{domain.ErrorCodePermission, "Microphone permission is required"},
		{domain.ErrorCodeStart, "Could not start listening"},
		{domain.ErrorCodeNoSpeech, "No speech was detected"},
		{domain.ErrorCodeNetwork, "Network error during speech recognition"},
		{domain.ErrorCodeRecognition, "Speech recognition error"},
		{domain.ErrorCodeSynthesis, "Speech synthesis failed"},
		{domain.ErrorCodeStop, "Could not stop listening cleanly"},
		{domain.ErrorCode("bogus"), "Unknown error"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(string(tc.code), func(t *testing.T) {
			t.Parallel()
			if got := errorMessage(tc.code); got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRecognitionTurnProducesUserThenAIMessage(t *testing.T) {
	t.Parallel()

	store := chat.NewStore()
	assistant := &stubAssistant{reply: "It looks clear all day."}
	spoken := &recordingSpeaker{}

	app := &App{
		store:      store,
		assistant:  assistant,
		speak:      spoken,
		thinkDelay: 5 * time.Millisecond,
	}

	app.RecognitionResult(domain.RecognitionResult{Transcript: "What's the weather like?", Confidence: 0.95})

	// The user message lands immediately, before the think delay.
	messages := store.Messages()
	if len(messages) != 1 {
		t.Fatalf("expected exactly one message before the reply, got %d", len(messages))
	}
	if messages[0].Sender != domain.SenderUser || messages[0].Text != "What's the weather like?" {
		t.Fatalf("unexpected user message: %+v", messages[0])
	}

	appWaitFor(t, func() bool { return len(store.Messages()) == 2 })

	messages = store.Messages()
	if messages[1].Sender != domain.SenderAI || messages[1].Text != "It looks clear all day." {
		t.Fatalf("unexpected AI message: %+v", messages[1])
	}
	appWaitFor(t, func() bool { return spoken.last() == "It looks clear all day." })
}

func TestUseSuggestionReplacesPendingReply(t *testing.T) {
	t.Parallel()

	store := chat.NewStore()
	assistant := &stubAssistant{reply: "Done, I've set that for you."}

	app := &App{
		store:      store,
		assistant:  assistant,
		speak:      &recordingSpeaker{},
		controller: disabledController(t),
		thinkDelay: 30 * time.Millisecond,
	}

	if err := app.UseSuggestion("set a timer"); err != nil {
		t.Fatalf("suggestion failed: %v", err)
	}
	if err := app.UseSuggestion("set another timer"); err != nil {
		t.Fatalf("second suggestion failed: %v", err)
	}

	// Two user messages, then a single reply for the latest one.
	appWaitFor(t, func() bool { return len(store.Messages()) == 3 })
	time.Sleep(50 * time.Millisecond)

	messages := store.Messages()
	if len(messages) != 3 {
		t.Fatalf("expected exactly one AI reply, got %d messages", len(messages))
	}
	if messages[0].Sender != domain.SenderUser || messages[1].Sender != domain.SenderUser {
		t.Fatalf("unexpected senders: %+v", messages)
	}
	if messages[2].Sender != domain.SenderAI {
		t.Fatalf("expected AI reply last: %+v", messages[2])
	}
	if assistant.calls() != 1 {
		t.Fatalf("superseded reply still generated, calls=%d", assistant.calls())
	}
}

func TestBlankRecognitionIsIgnored(t *testing.T) {
	t.Parallel()

	store := chat.NewStore()
	app := &App{
		store:      store,
		assistant:  &stubAssistant{reply: "unused"},
		thinkDelay: time.Millisecond,
	}

	app.handleRecognition("   ")
	time.Sleep(10 * time.Millisecond)
	if got := store.Messages(); len(got) != 0 {
		t.Fatalf("blank transcript must produce no messages, got %+v", got)
	}
}

func TestToggleMicWithDeniedPermission(t *testing.T) {
	t.Parallel()

	controller := deniedController(t)
	app := &App{
		controller: controller,
		store:      chat.NewStore(),
		thinkDelay: time.Millisecond,
	}

	status, err := app.ToggleMic()
	if err != nil {
		t.Fatalf("denied toggle must not return an error, got %v", err)
	}
	if status.Listening {
		t.Fatalf("denied toggle must not start listening")
	}
	if controller.Status().Listening {
		t.Fatalf("controller started despite denial")
	}
}

func TestRequireReadyGuards(t *testing.T) {
	t.Parallel()

	app := &App{}
	if _, err := app.ToggleMic(); err == nil {
		t.Fatalf("uninitialized app must refuse mic toggle")
	}
	if err := app.UseSuggestion("hello"); err == nil {
		t.Fatalf("uninitialized app must refuse suggestions")
	}
	if err := app.CopyTranscript(); err == nil {
		t.Fatalf("uninitialized app must refuse clipboard copy")
	}
}

func TestCopyTranscriptUsesClipboard(t *testing.T) {
	t.Parallel()

	clip := &fakeClipboard{}
	app := &App{
		controller: disabledController(t),
		store:      chat.NewStore(),
		clipboard:  clip,
		thinkDelay: time.Millisecond,
	}

	if err := app.CopyTranscript(); err == nil {
		t.Fatalf("copy must fail before anything is recognized")
	}
	if clip.text() != "" {
		t.Fatalf("clipboard written without a transcript: %q", clip.text())
	}

	app.mu.Lock()
	app.lastTranscript = "turn on the lights"
	app.mu.Unlock()

	if err := app.CopyTranscript(); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if clip.text() != "turn on the lights" {
		t.Fatalf("unexpected clipboard contents %q", clip.text())
	}
}

func TestClearConversation(t *testing.T) {
	t.Parallel()

	store := chat.NewStore()
	store.Append(domain.ChatMessage{Text: "hello", Sender: domain.SenderUser})

	app := &App{
		controller: disabledController(t),
		store:      store,
		thinkDelay: time.Millisecond,
	}

	if err := app.ClearConversation(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if got := app.Messages(); len(got) != 0 {
		t.Fatalf("conversation not cleared: %+v", got)
	}

	uninitialized := &App{}
	if err := uninitialized.ClearConversation(); err == nil {
		t.Fatalf("uninitialized app must refuse clearing")
	}
}

func TestSuggestionsAreCopied(t *testing.T) {
	t.Parallel()

	app := &App{}
	got := app.Suggestions()
	if len(got) == 0 {
		t.Fatalf("expected built-in suggestions")
	}
	got[0] = "mutated"
	if fresh := app.Suggestions(); fresh[0] == "mutated" {
		t.Fatalf("suggestion list must be a copy")
	}
}

func appWaitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func deniedController(t *testing.T) *capture.Controller {
	t.Helper()
	controller := capture.NewController(
		[]ports.SpeechProvider{deniedProvider{}},
		silentSpeaker{},
		nullSink{},
		capture.Config{SettleDelay: time.Millisecond},
		zerolog.Nop(),
	)
	if err := controller.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	return controller
}

// disabledController satisfies requireReady for paths that never listen.
func disabledController(t *testing.T) *capture.Controller {
	t.Helper()
	return deniedController(t)
}

type stubAssistant struct {
	mu    sync.Mutex
	reply string
	n     int
}

func (s *stubAssistant) Generate(_ context.Context, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.reply, nil
}

func (s *stubAssistant) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

type recordingSpeaker struct {
	mu     sync.Mutex
	spoken []string
}

func (r *recordingSpeaker) Speak(_ context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
	return nil
}

func (r *recordingSpeaker) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.spoken) == 0 {
		return ""
	}
	return r.spoken[len(r.spoken)-1]
}

type fakeClipboard struct {
	mu   sync.Mutex
	last string
}

func (f *fakeClipboard) SetText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.last = text
	return nil
}

func (f *fakeClipboard) text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type deniedProvider struct{}

func (deniedProvider) Kind() domain.ProviderKind { return domain.ProviderKindStreaming }

func (deniedProvider) Probe(context.Context) (domain.PermissionState, error) {
	return domain.PermissionDenied, nil
}

func (deniedProvider) Start(context.Context, ports.CaptureConfig) (ports.CaptureSession, error) {
	return nil, domain.ErrPermissionDenied
}

type silentSpeaker struct{}

func (silentSpeaker) Speak(context.Context, string, ports.SpeechOptions) error { return nil }

type nullSink struct{}

func (nullSink) ListeningChanged(bool, domain.StateReason)  {}
func (nullSink) PermissionChanged(domain.PermissionState)   {}
func (nullSink) PartialTranscript(string)                   {}
func (nullSink) RecognitionResult(domain.RecognitionResult) {}
func (nullSink) CaptureError(domain.ErrorCode, string)      {}
