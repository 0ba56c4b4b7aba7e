// Package sim implements the scripted fallback speech provider. It never
// fails probing, so the capture chain always terminates in a working
// backend even on hosts without a recorder or a configured service.
package sim

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"voxchat/internal/domain"
	"voxchat/internal/ports"
)

const (
	defaultDelay      = 2 * time.Second
	defaultConfidence = 0.95
)

var defaultPhrases = []string{
	"What's the weather like today?",
	"Set a timer for ten minutes.",
	"Tell me a joke.",
	"What's on my calendar tomorrow?",
	"Play some relaxing music.",
	"How do I get to the train station?",
}

// Config controls simulated recognition behavior.
type Config struct {
	// Phrases is the candidate set one result is drawn from.
	Phrases []string
	// Delay is how long a session waits before emitting its result.
	Delay time.Duration
	// Confidence is attached to every emitted result.
	Confidence float64
}

// Provider emits one random canned phrase per session after a fixed delay.
type Provider struct {
	cfg Config
	log zerolog.Logger
}

func NewProvider(cfg Config, log zerolog.Logger) *Provider {
	if len(cfg.Phrases) == 0 {
		cfg.Phrases = defaultPhrases
	}
	if cfg.Delay <= 0 {
		cfg.Delay = defaultDelay
	}
	if cfg.Confidence <= 0 || cfg.Confidence > 1 {
		cfg.Confidence = defaultConfidence
	}
	return &Provider{cfg: cfg, log: log}
}

func (p *Provider) Kind() domain.ProviderKind {
	return domain.ProviderKindSimulated
}

// Probe always grants: the simulated backend has nothing to ask for.
func (p *Provider) Probe(_ context.Context) (domain.PermissionState, error) {
	return domain.PermissionGranted, nil
}

func (p *Provider) Start(ctx context.Context, _ ports.CaptureConfig) (ports.CaptureSession, error) {
	sessionCtx, cancel := context.WithCancel(ctx)
	s := &session{
		cancel:   cancel,
		events:   make(chan domain.RecognitionEvent, 1),
		finished: make(chan struct{}),
	}

	phrase := p.cfg.Phrases[rand.Intn(len(p.cfg.Phrases))]
	p.log.Debug().Str("provider", "sim").Dur("delay", p.cfg.Delay).Msg("session scheduled")

	go s.run(sessionCtx, phrase, p.cfg.Delay, p.cfg.Confidence)
	return s, nil
}

type session struct {
	cancel   context.CancelFunc
	events   chan domain.RecognitionEvent
	finished chan struct{}
}

func (s *session) run(ctx context.Context, phrase string, delay time.Duration, confidence float64) {
	defer close(s.finished)
	defer close(s.events)

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		s.events <- domain.RecognitionEvent{
			Kind:       domain.ResultKindFinal,
			Text:       phrase,
			Confidence: confidence,
		}
	case <-ctx.Done():
		// Stopped during the pending delay; the scheduled emission is
		// discarded so no stale result can surface.
	}
}

func (s *session) Events() <-chan domain.RecognitionEvent {
	return s.events
}

// Stop cancels any pending emission and waits for the session goroutine.
func (s *session) Stop() error {
	s.cancel()
	<-s.finished
	return nil
}

func (s *session) Err() error { return nil }
