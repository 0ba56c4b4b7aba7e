package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"voxchat/internal/bootstrap"
	"voxchat/internal/capture"
	"voxchat/internal/chat"
	"voxchat/internal/config"
	"voxchat/internal/domain"
	"voxchat/internal/ports"
)

const (
	eventListening  = "voxchat:listening"
	eventPermission = "voxchat:permission"
	eventPartial    = "voxchat:partial"
	eventMessage    = "voxchat:message"
	eventNavigate   = "voxchat:navigate"
	eventError      = "voxchat:error"
)

var suggestions = []string{
	"What's the weather like today?",
	"Tell me a joke.",
	"Set a timer for ten minutes.",
	"Play some relaxing music.",
}

// speaker is the slice of the capture controller the reply turn needs.
type speaker interface {
	Speak(ctx context.Context, text string) error
}

// App is the Wails application root: it binds capture state to UI actions
// and runs the recognition-to-reply turn.
type App struct {
	ctx context.Context

	controller *capture.Controller
	store      *chat.Store
	assistant  ports.ResponseGenerator
	speak      speaker
	clipboard  ports.Clipboard
	cfg        config.Config
	log        zerolog.Logger
	bootErr    error

	thinkDelay time.Duration

	mu             sync.Mutex
	thinkTimer     *time.Timer
	lastTranscript string
}

func NewApp() *App {
	return &App{thinkDelay: time.Second, clipboard: wailsClipboard{}}
}

// wailsClipboard adapts the wails runtime clipboard to ports.Clipboard.
type wailsClipboard struct{}

func (wailsClipboard) SetText(ctx context.Context, text string) error {
	return runtime.ClipboardSetText(ctx, text)
}

func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	services, err := bootstrap.Build(a)
	if err != nil {
		a.bootErr = err
		a.CaptureError(domain.ErrorCodeStart, err.Error())
		return
	}

	a.controller = services.Controller
	a.store = services.Store
	a.assistant = services.Assistant
	a.speak = services.Controller
	a.cfg = services.Config
	a.log = services.Log
	a.thinkDelay = services.Config.Assistant.ThinkDelay

	if err := a.controller.Initialize(ctx); err != nil {
		a.CaptureError(domain.ErrorCodeStart, err.Error())
	}
}

func (a *App) shutdown(_ context.Context) {
	a.mu.Lock()
	if a.thinkTimer != nil {
		a.thinkTimer.Stop()
		a.thinkTimer = nil
	}
	a.mu.Unlock()

	if a.controller != nil {
		_ = a.controller.StopListening()
	}
}

// ToggleMic handles the microphone tap. With permission explicitly denied
// it surfaces the permission message and changes nothing else.
func (a *App) ToggleMic() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}

	status := a.controller.Status()
	if !status.Listening && status.Permission == domain.PermissionDenied {
		a.CaptureError(domain.ErrorCodePermission, "microphone permission denied")
		return status, nil
	}

	if err := a.controller.Toggle(a.ctx); err != nil {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// StopMic explicitly stops listening.
func (a *App) StopMic() (domain.Status, error) {
	if err := a.requireReady(); err != nil {
		return domain.Status{}, err
	}
	if err := a.controller.StopListening(); err != nil {
		return a.controller.Status(), err
	}
	return a.controller.Status(), nil
}

// Suggestions returns tappable example phrases.
func (a *App) Suggestions() []string {
	out := make([]string, len(suggestions))
	copy(out, suggestions)
	return out
}

// UseSuggestion runs a suggestion through the same path as recognized audio.
func (a *App) UseSuggestion(text string) error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.handleRecognition(text)
	return nil
}

// Messages returns the conversation so far.
func (a *App) Messages() []domain.ChatMessage {
	if a.store == nil {
		return nil
	}
	return a.store.Messages()
}

// GetStatus returns the current capture status.
func (a *App) GetStatus() domain.Status {
	if a.controller == nil {
		return domain.Status{State: domain.CaptureStateIdle, Permission: domain.PermissionUnknown}
	}
	return a.controller.Status()
}

// GetRuntimeInfo returns non-sensitive config for the UI.
func (a *App) GetRuntimeInfo() map[string]string {
	if a.bootErr != nil {
		return map[string]string{"error": a.bootErr.Error()}
	}

	status := a.GetStatus()
	return map[string]string{
		"provider":   string(status.Provider),
		"permission": string(status.Permission),
		"language":   a.cfg.Capture.Language,
		"assistant":  a.cfg.Assistant.Mode,
		"tts":        a.cfg.Speech.Command,
	}
}

// CopyTranscript puts the last recognized transcript on the clipboard.
func (a *App) CopyTranscript() error {
	if err := a.requireReady(); err != nil {
		return err
	}

	a.mu.Lock()
	transcript := a.lastTranscript
	a.mu.Unlock()
	if transcript == "" {
		return fmt.Errorf("nothing recognized yet")
	}
	return a.clipboard.SetText(a.ctx, transcript)
}

// ClearConversation drops the chat history.
func (a *App) ClearConversation() error {
	if err := a.requireReady(); err != nil {
		return err
	}
	a.store.Clear()
	return nil
}

func (a *App) requireReady() error {
	if a.bootErr != nil {
		return a.bootErr
	}
	if a.controller == nil {
		return fmt.Errorf("application is not initialized")
	}
	return nil
}

// ListeningChanged implements ports.EventSink.
func (a *App) ListeningChanged(listening bool, reason domain.StateReason) {
	if a.store != nil {
		a.store.SetRecording(listening)
	}
	a.emit(eventListening, map[string]any{
		"listening": listening,
		"reason":    string(reason),
		"message":   reasonMessage(reason),
	})
}

// PermissionChanged implements ports.EventSink.
func (a *App) PermissionChanged(state domain.PermissionState) {
	a.emit(eventPermission, map[string]string{"permission": string(state)})
}

// PartialTranscript implements ports.EventSink.
func (a *App) PartialTranscript(text string) {
	a.emit(eventPartial, map[string]string{"text": text})
}

// RecognitionResult implements ports.EventSink: a finalized transcript
// kicks off the chat turn.
func (a *App) RecognitionResult(result domain.RecognitionResult) {
	a.mu.Lock()
	a.lastTranscript = result.Transcript
	a.mu.Unlock()

	a.handleRecognition(result.Transcript)
}

// CaptureError implements ports.EventSink.
func (a *App) CaptureError(code domain.ErrorCode, detail string) {
	a.emit(eventError, map[string]string{
		"code":    string(code),
		"message": errorMessage(code),
		"detail":  detail,
	})
}

// handleRecognition appends the user message, switches to the chat view
// and schedules the assistant reply after the think delay. Exactly one
// user message precedes the turn's AI message.
func (a *App) handleRecognition(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	user := a.store.Append(domain.ChatMessage{Text: text, Sender: domain.SenderUser})
	a.emit(eventMessage, user)
	a.navigate(domain.ScreenChat)

	a.mu.Lock()
	if a.thinkTimer != nil {
		a.thinkTimer.Stop()
	}
	a.thinkTimer = time.AfterFunc(a.thinkDelay, func() { a.reply(text) })
	a.mu.Unlock()
}

func (a *App) reply(transcript string) {
	ctx := a.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	text, err := a.assistant.Generate(ctx, transcript)
	if err != nil {
		a.CaptureError(domain.ErrorCodeRecognition, err.Error())
		return
	}

	msg := a.store.Append(domain.ChatMessage{Text: text, Sender: domain.SenderAI})
	a.emit(eventMessage, msg)

	if a.speak != nil {
		// Failures are already reported through the error callback.
		_ = a.speak.Speak(ctx, text)
	}
}

func (a *App) navigate(screen domain.Screen) {
	a.emit(eventNavigate, map[string]string{"screen": string(screen)})
}

func (a *App) emit(event string, payload any) {
	if a.ctx == nil {
		return
	}
	runtime.EventsEmit(a.ctx, event, payload)
}

func reasonMessage(reason domain.StateReason) string {
	switch reason {
	case domain.ReasonProviderSelected:
		return "Speech provider ready"
	case domain.ReasonListeningStarted:
		return "Listening..."
	case domain.ReasonListeningRestarted:
		return "Listening restarted; previous capture discarded"
	case domain.ReasonListeningResumed:
		return "Still listening..."
	case domain.ReasonResultReceived:
		return "Got it"
	case domain.ReasonStoppedByUser:
		return "Stopped listening"
	case domain.ReasonSessionEnded:
		return "Listening ended"
	case domain.ReasonRecognitionFailed:
		return "Speech recognition failed"
	case domain.ReasonPermissionDenied:
		return "Microphone permission is required"
	default:
		return ""
	}
}

func errorMessage(code domain.ErrorCode) string {
	switch code {
	case domain.ErrorCodePermission:
		return "Microphone permission is required"
	case domain.ErrorCodeStart:
		return "Could not start listening"
	case domain.ErrorCodeNoSpeech:
		return "No speech was detected"
	case domain.ErrorCodeNetwork:
		return "Network error during speech recognition"
	case domain.ErrorCodeRecognition:
		return "Speech recognition error"
	case domain.ErrorCodeSynthesis:
		return "Speech synthesis failed"
	case domain.ErrorCodeStop:
		return "Could not stop listening cleanly"
	default:
		return "Unknown error"
	}
}
