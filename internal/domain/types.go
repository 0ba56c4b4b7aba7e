package domain

import (
	"errors"
	"time"
)

// ProviderKind identifies a speech capture backend.
type ProviderKind string

const (
	// ProviderKindStreaming is a realtime websocket transcription service.
	ProviderKindStreaming ProviderKind = "streaming"
	// ProviderKindBatch records a whole utterance and transcribes it over HTTP.
	ProviderKindBatch ProviderKind = "batch"
	// ProviderKindSimulated is the scripted fallback that always works.
	ProviderKindSimulated ProviderKind = "simulated"
)

// PermissionState models microphone/provider permission.
type PermissionState string

const (
	PermissionUnknown PermissionState = "unknown"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// CaptureState models the listening lifecycle.
type CaptureState string

const (
	CaptureStateIdle      CaptureState = "idle"
	CaptureStateProbing   CaptureState = "probing"
	CaptureStateReady     CaptureState = "ready"
	CaptureStateListening CaptureState = "listening"
	CaptureStateStopping  CaptureState = "stopping"
)

// StateReason provides a structured reason for listening transitions.
type StateReason string

const (
	ReasonProviderSelected   StateReason = "provider_selected"
	ReasonListeningStarted   StateReason = "listening_started"
	ReasonListeningRestarted StateReason = "listening_restarted"
	ReasonListeningResumed   StateReason = "listening_resumed"
	ReasonResultReceived     StateReason = "result_received"
	ReasonStoppedByUser      StateReason = "stopped_by_user"
	ReasonSessionEnded       StateReason = "session_ended"
	ReasonRecognitionFailed  StateReason = "recognition_failed"
	ReasonPermissionDenied   StateReason = "permission_denied"
)

// ErrorCode identifies user-surfaced capture errors.
type ErrorCode string

const (
	ErrorCodePermission  ErrorCode = "permission_denied"
	ErrorCodeStart       ErrorCode = "start_failed"
	ErrorCodeNoSpeech    ErrorCode = "no_speech"
	ErrorCodeNetwork     ErrorCode = "network"
	ErrorCodeRecognition ErrorCode = "recognition"
	ErrorCodeSynthesis   ErrorCode = "synthesis"
	ErrorCodeStop        ErrorCode = "stop_failed"
)

// Sentinel errors shared across providers and the controller.
var (
	// ErrProviderUnavailable makes probing fall through to the next provider.
	ErrProviderUnavailable = errors.New("speech provider unavailable")
	// ErrPermissionDenied is returned when starting without permission.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrNoSpeech is reported when a session ends without usable speech.
	ErrNoSpeech = errors.New("no speech detected")
	// ErrNetwork marks transport failures talking to a speech service.
	ErrNetwork = errors.New("speech service network error")
)

// ResultKind identifies whether a recognition event is interim or final text.
type ResultKind string

const (
	ResultKindPartial ResultKind = "partial"
	ResultKindFinal   ResultKind = "final"
)

// RecognitionEvent is incremental output from a capture session.
type RecognitionEvent struct {
	Kind       ResultKind `json:"kind"`
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
}

// RecognitionResult is a finalized transcript handed to the caller.
type RecognitionResult struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

// Sender identifies who produced a chat message.
type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// ChatMessage is one entry in the conversation transcript.
type ChatMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Screen names a navigable UI view.
type Screen string

const (
	ScreenVoice Screen = "voice"
	ScreenChat  Screen = "chat"
)

// Status summarizes the current capture runtime status.
type Status struct {
	State      CaptureState    `json:"state"`
	Listening  bool            `json:"listening"`
	Provider   ProviderKind    `json:"provider,omitempty"`
	Permission PermissionState `json:"permission"`
	Transcript string          `json:"transcript,omitempty"`
}
