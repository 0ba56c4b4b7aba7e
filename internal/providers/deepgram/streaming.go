// Package deepgram implements the realtime streaming speech provider.
// Microphone PCM is pumped over a websocket and interim/final transcripts
// come back as recognition events.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"voxchat/internal/domain"
	"voxchat/internal/ports"
)

// Config controls the Deepgram websocket connection.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	SmartFormat bool
	// ChunkSize is the microphone read size in bytes.
	ChunkSize int
}

// Provider implements ports.SpeechProvider on top of Deepgram live streaming.
type Provider struct {
	cfg   Config
	audio ports.AudioCapture
	log   zerolog.Logger
}

func NewProvider(cfg Config, audio ports.AudioCapture, log zerolog.Logger) *Provider {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	if cfg.ChunkSize < 256 {
		cfg.ChunkSize = 4096
	}
	return &Provider{cfg: cfg, audio: audio, log: log}
}

func (p *Provider) Kind() domain.ProviderKind {
	return domain.ProviderKindStreaming
}

// Probe resolves to granted when an API key is configured and a recorder
// exists; anything missing is unavailability, never a denial.
func (p *Provider) Probe(_ context.Context) (domain.PermissionState, error) {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return domain.PermissionUnknown, fmt.Errorf("%w: no streaming API key configured", domain.ErrProviderUnavailable)
	}
	if err := p.audio.Available(); err != nil {
		return domain.PermissionUnknown, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	return domain.PermissionGranted, nil
}

func (p *Provider) Start(ctx context.Context, cfg ports.CaptureConfig) (ports.CaptureSession, error) {
	wsURL, err := buildListenURL(p.cfg, cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+p.cfg.APIKey)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		return nil, fmt.Errorf("%w: dial streaming endpoint: %v", domain.ErrNetwork, err)
	}

	mic, err := p.audio.Start(ctx, ports.AudioConfig{
		SampleRate: cfg.SampleRate,
		Channels:   cfg.Channels,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("start microphone capture: %w", err)
	}

	s := &streamSession{
		conn:   conn,
		mic:    mic,
		events: make(chan domain.RecognitionEvent, 64),
		done:   make(chan struct{}),
		log:    p.log,
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.pumpLoop(p.cfg.ChunkSize)
	go func() {
		s.wg.Wait()
		close(s.events)
		close(s.done)
		_ = conn.Close()
	}()
	go func() {
		<-ctx.Done()
		_ = s.Stop()
	}()

	return s, nil
}

type streamSession struct {
	conn *websocket.Conn
	mic  ports.AudioSession
	log  zerolog.Logger

	events chan domain.RecognitionEvent
	done   chan struct{}

	wg sync.WaitGroup

	errMu sync.Mutex
	err   error

	stopOnce sync.Once
	stopErr  error
}

func (s *streamSession) Events() <-chan domain.RecognitionEvent {
	return s.events
}

// Stop tears down microphone and websocket and waits for both loops.
func (s *streamSession) Stop() error {
	s.stopOnce.Do(func() {
		s.stopErr = s.mic.Stop()
		deadline := time.Now().Add(200 * time.Millisecond)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		_ = s.conn.Close()
	})
	<-s.done
	return s.stopErr
}

func (s *streamSession) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *streamSession) setErr(err error) {
	if err == nil {
		return
	}
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) {
		return
	}

	s.errMu.Lock()
	defer s.errMu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// pumpLoop forwards microphone PCM chunks to the websocket until the
// microphone session ends.
func (s *streamSession) pumpLoop(chunkSize int) {
	defer s.wg.Done()

	buf := make([]byte, chunkSize)
	for {
		n, err := s.mic.Read(buf)
		if n > 0 {
			if sendErr := s.conn.WriteMessage(websocket.BinaryMessage, buf[:n]); sendErr != nil {
				s.setErr(fmt.Errorf("%w: send audio: %v", domain.ErrNetwork, sendErr))
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) && !errors.Is(err, os.ErrClosed) {
				s.setErr(fmt.Errorf("microphone read: %w", err))
				return
			}
			break
		}
	}

	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		s.setErr(fmt.Errorf("%w: close stream: %v", domain.ErrNetwork, err))
	}
}

func (s *streamSession) readLoop() {
	defer s.wg.Done()

	sawSpeech := false
	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			if !sawSpeech {
				s.setErr(domain.ErrNoSpeech)
			}
			s.setErr(fmt.Errorf("%w: read provider event: %v", domain.ErrNetwork, err))
			return
		}

		var response listenResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			message := strings.TrimSpace(response.Message)
			if message == "" {
				message = "streaming service returned an unknown error"
			}
			s.setErr(fmt.Errorf("%w: %s", domain.ErrNetwork, message))
			return
		}

		text, confidence := extractAlternative(response)
		if text == "" {
			continue
		}
		sawSpeech = true

		event := domain.RecognitionEvent{Text: text, Confidence: confidence}
		if response.IsFinal || response.SpeechFinal {
			event.Kind = domain.ResultKindFinal
		} else {
			event.Kind = domain.ResultKindPartial
		}
		s.emit(event)
	}
}

func (s *streamSession) emit(event domain.RecognitionEvent) {
	select {
	case s.events <- event:
	case <-s.done:
	default:
		s.log.Debug().Str("provider", "deepgram").Msg("dropping recognition event, consumer is slow")
	}
}

type listenResponse struct {
	Type        string `json:"type"`
	Message     string `json:"message"`
	IsFinal     bool   `json:"is_final"`
	SpeechFinal bool   `json:"speech_final"`

	Channel struct {
		Alternatives []alternative `json:"alternatives"`
	} `json:"channel"`
}

type alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

func extractAlternative(response listenResponse) (string, float64) {
	if len(response.Channel.Alternatives) == 0 {
		return "", 0
	}
	alt := response.Channel.Alternatives[0]
	return strings.TrimSpace(alt.Transcript), alt.Confidence
}

func buildListenURL(providerCfg Config, captureCfg ports.CaptureConfig) (string, error) {
	base := strings.TrimSpace(providerCfg.APIBaseURL)
	if base == "" {
		base = "https://api.deepgram.com/v1"
	}

	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid streaming API base URL: %w", err)
	}

	if captureCfg.SampleRate <= 0 {
		captureCfg.SampleRate = 16000
	}
	if captureCfg.Channels <= 0 {
		captureCfg.Channels = 1
	}

	query := listenURL.Query()
	query.Set("model", providerCfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", fmt.Sprintf("%d", captureCfg.SampleRate))
	query.Set("channels", fmt.Sprintf("%d", captureCfg.Channels))
	query.Set("interim_results", fmt.Sprintf("%t", captureCfg.InterimResults))
	query.Set("smart_format", fmt.Sprintf("%t", providerCfg.SmartFormat))
	if captureCfg.Language != "" {
		query.Set("language", captureCfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
