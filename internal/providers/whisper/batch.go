// Package whisper implements the batch speech provider: it records one
// utterance window from the microphone, encodes it as WAV and transcribes
// it through the OpenAI audio API.
package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"voxchat/internal/domain"
	"voxchat/internal/ports"
)

const (
	defaultMaxUtterance = 10 * time.Second
	defaultConfidence   = 0.9
	readChunkSize       = 4096
)

// Config controls the transcription request.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Confidence is attached to results; the API does not report one.
	Confidence float64
}

type transcribeFunc func(ctx context.Context, wav []byte, language string) (string, error)

// Provider implements ports.SpeechProvider with record-then-transcribe
// semantics. A result is produced when the utterance window elapses;
// stopping mid-window discards the recording.
type Provider struct {
	cfg        Config
	audio      ports.AudioCapture
	log        zerolog.Logger
	transcribe transcribeFunc
}

func NewProvider(cfg Config, audio ports.AudioCapture, log zerolog.Logger) *Provider {
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.Confidence <= 0 || cfg.Confidence > 1 {
		cfg.Confidence = defaultConfidence
	}

	p := &Provider{cfg: cfg, audio: audio, log: log}
	p.transcribe = p.transcribeRemote
	return p
}

func (p *Provider) Kind() domain.ProviderKind {
	return domain.ProviderKindBatch
}

func (p *Provider) Probe(_ context.Context) (domain.PermissionState, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return domain.PermissionUnknown, fmt.Errorf("%w: no transcription API key configured", domain.ErrProviderUnavailable)
	}
	if err := p.audio.Available(); err != nil {
		return domain.PermissionUnknown, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return domain.PermissionGranted, nil
}

func (p *Provider) Start(ctx context.Context, cfg ports.CaptureConfig) (ports.CaptureSession, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.MaxUtterance <= 0 {
		cfg.MaxUtterance = defaultMaxUtterance
	}

	mic, err := p.audio.Start(ctx, ports.AudioConfig{
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	})
	if err != nil {
		return nil, fmt.Errorf("start microphone capture: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	s := &session{
		cancel:   cancel,
		events:   make(chan domain.RecognitionEvent, 1),
		finished: make(chan struct{}),
	}

	// Unblock a pending microphone read when the session is stopped.
	go func() {
		<-sessionCtx.Done()
		_ = mic.Stop()
	}()

	p.log.Debug().Str("provider", "whisper").Dur("window", cfg.MaxUtterance).Msg("utterance window opened")
	go s.run(sessionCtx, p, mic, cfg)
	return s, nil
}

type session struct {
	cancel   context.CancelFunc
	events   chan domain.RecognitionEvent
	finished chan struct{}

	errMu sync.Mutex
	err   error
}

func (s *session) run(ctx context.Context, p *Provider, mic ports.AudioSession, cfg ports.CaptureConfig) {
	defer close(s.finished)
	defer close(s.events)
	// Release the stop watcher when the window ends on its own.
	defer s.cancel()

	pcm, recordErr := recordWindow(ctx, mic, cfg.MaxUtterance)
	_ = mic.Stop()

	if ctx.Err() != nil {
		// Stopped before the window elapsed; the utterance is discarded
		// so no stale result can surface after stop.
		return
	}
	if recordErr != nil {
		s.setErr(fmt.Errorf("record utterance: %w", recordErr))
		return
	}
	if len(pcm) == 0 {
		s.setErr(domain.ErrNoSpeech)
		return
	}

	wav := encodeWAV(pcm, cfg.SampleRate, cfg.Channels)
	text, err := p.transcribe(ctx, wav, cfg.Language)
	if ctx.Err() != nil {
		// Stopped while the request was in flight.
		return
	}
	if err != nil {
		s.setErr(err)
		return
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.setErr(domain.ErrNoSpeech)
		return
	}

	s.events <- domain.RecognitionEvent{
		Kind:       domain.ResultKindFinal,
		Text:       text,
		Confidence: p.cfg.Confidence,
	}
}

func (s *session) Events() <-chan domain.RecognitionEvent {
	return s.events
}

func (s *session) Stop() error {
	s.cancel()
	<-s.finished
	return nil
}

func (s *session) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

// Err is safe to call as soon as Events closes: the terminal error is
// published under the mutex before the channel close.
func (s *session) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// recordWindow reads microphone PCM until the window elapses, the context
// is canceled, or capture ends on its own.
func recordWindow(ctx context.Context, mic ports.AudioSession, window time.Duration) ([]byte, error) {
	deadline := time.NewTimer(window)
	defer deadline.Stop()

	var buf bytes.Buffer
	chunk := make([]byte, readChunkSize)
	for {
		select {
		case <-ctx.Done():
			return buf.Bytes(), nil
		case <-deadline.C:
			return buf.Bytes(), nil
		default:
		}

		n, err := mic.Read(chunk)
		if n > 0 {
			buf.Write(chunk[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return buf.Bytes(), nil
			}
			return buf.Bytes(), err
		}
	}
}

func (p *Provider) transcribeRemote(ctx context.Context, wav []byte, language string) (string, error) {
	clientCfg := openai.DefaultConfig(p.cfg.APIKey)
	if p.cfg.BaseURL != "" {
		clientCfg.BaseURL = p.cfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)

	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.cfg.Model,
		Reader:   bytes.NewReader(wav),
		FilePath: "utterance.wav",
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("%w: transcription request: %v", domain.ErrNetwork, err)
	}
	return resp.Text, nil
}

// encodeWAV wraps raw 16-bit little-endian PCM in a RIFF header.
func encodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bitsPerSample = 16

	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	var out bytes.Buffer
	out.Grow(44 + len(pcm))

	out.WriteString("RIFF")
	writeUint32(&out, uint32(36+len(pcm)))
	out.WriteString("WAVE")

	out.WriteString("fmt ")
	writeUint32(&out, 16)
	writeUint16(&out, 1) // PCM
	writeUint16(&out, uint16(channels))
	writeUint32(&out, uint32(sampleRate))
	writeUint32(&out, uint32(byteRate))
	writeUint16(&out, uint16(blockAlign))
	writeUint16(&out, bitsPerSample)

	out.WriteString("data")
	writeUint32(&out, uint32(len(pcm)))
	out.Write(pcm)

	return out.Bytes()
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	buf.Write([]byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	buf.Write([]byte{byte(v), byte(v >> 8)})
}
