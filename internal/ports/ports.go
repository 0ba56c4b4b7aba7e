package ports

import (
	"context"
	"io"
	"time"

	"voxchat/internal/domain"
)

// AudioConfig describes how the microphone should be captured.
type AudioConfig struct {
	SampleRate  int
	Channels    int
	InputFormat string
	InputDevice string
}

// AudioSession is a live microphone capture session.
type AudioSession interface {
	io.ReadCloser
	Stop() error
}

// AudioCapture creates microphone capture sessions.
type AudioCapture interface {
	// Available reports whether capture can work at all on this host.
	Available() error
	Start(ctx context.Context, cfg AudioConfig) (AudioSession, error)
}

// CaptureConfig describes provider-agnostic recognition settings.
type CaptureConfig struct {
	Language       string
	SampleRate     int
	Channels       int
	InterimResults bool
	// MaxUtterance caps a single batch recording window.
	MaxUtterance time.Duration
}

// CaptureSession is one start-to-stop span of active listening.
//
// Events is closed when the session ends for any reason; Err reports the
// terminal error, if any, once Events is closed. Stop must cancel any
// pending emission so no event surfaces afterwards.
type CaptureSession interface {
	Events() <-chan domain.RecognitionEvent
	Stop() error
	Err() error
}

// SpeechProvider is a concrete backend capable of turning audio into text.
type SpeechProvider interface {
	Kind() domain.ProviderKind
	// Probe checks availability and resolves permission. A wrapped
	// domain.ErrProviderUnavailable falls through to the next provider
	// in the chain; an explicit denial does not.
	Probe(ctx context.Context) (domain.PermissionState, error)
	Start(ctx context.Context, cfg CaptureConfig) (CaptureSession, error)
}

// SpeechOptions tune text-to-speech output.
type SpeechOptions struct {
	Language string
	Pitch    float64
	Rate     float64
}

// Synthesizer speaks text out loud.
type Synthesizer interface {
	Speak(ctx context.Context, text string, opts SpeechOptions) error
}

// ResponseGenerator produces an assistant reply for a recognized transcript.
type ResponseGenerator interface {
	Generate(ctx context.Context, transcript string) (string, error)
}

// Clipboard writes text into the system clipboard.
type Clipboard interface {
	SetText(ctx context.Context, text string) error
}

// EventSink receives capture state/events from the lifecycle controller.
type EventSink interface {
	ListeningChanged(listening bool, reason domain.StateReason)
	PermissionChanged(state domain.PermissionState)
	PartialTranscript(text string)
	RecognitionResult(result domain.RecognitionResult)
	CaptureError(code domain.ErrorCode, detail string)
}
