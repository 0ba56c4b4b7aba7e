// Package capture owns the speech-capture lifecycle: provider selection,
// permission state, start/stop sequencing and result dispatch.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voxchat/internal/domain"
	"voxchat/internal/ports"
)

// ErrNoProvider is returned when probing exhausts the provider chain.
// It cannot happen while the simulated provider terminates the chain.
var ErrNoProvider = errors.New("no speech provider available")

const defaultSettleDelay = 100 * time.Millisecond

// Config controls capture behavior.
type Config struct {
	Capture ports.CaptureConfig
	Speech  ports.SpeechOptions
	// Continuous keeps listening across results until explicitly stopped.
	Continuous bool
	// SettleDelay separates a torn-down session from its replacement so
	// two providers never emit overlapping callbacks.
	SettleDelay time.Duration
}

// Controller orchestrates listening sessions over a prioritized provider
// chain and dispatches results/errors through an EventSink.
type Controller struct {
	providers []ports.SpeechProvider
	synth     ports.Synthesizer
	events    ports.EventSink
	cfg       Config
	log       zerolog.Logger

	mu         sync.Mutex
	state      domain.CaptureState
	permission domain.PermissionState
	selected   ports.SpeechProvider
	current    *activeSession
	transcript string
}

func NewController(
	providers []ports.SpeechProvider,
	synth ports.Synthesizer,
	events ports.EventSink,
	cfg Config,
	log zerolog.Logger,
) *Controller {
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	return &Controller{
		providers:  providers,
		synth:      synth,
		events:     events,
		cfg:        cfg,
		log:        log,
		state:      domain.CaptureStateIdle,
		permission: domain.PermissionUnknown,
	}
}

// Initialize probes the provider chain once, in priority order, and
// resolves permission. Idempotent after a provider has been selected.
// Unavailable providers fall through; an explicit denial does not.
func (c *Controller) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.selected != nil {
		c.mu.Unlock()
		return nil
	}
	c.state = domain.CaptureStateProbing
	c.mu.Unlock()

	for _, provider := range c.providers {
		state, err := provider.Probe(ctx)
		if err != nil {
			c.log.Debug().
				Str("provider", string(provider.Kind())).
				Err(err).
				Msg("provider unavailable, falling through")
			continue
		}

		c.mu.Lock()
		c.selected = provider
		c.permission = state
		c.state = domain.CaptureStateReady
		c.mu.Unlock()

		c.events.PermissionChanged(state)
		c.log.Info().
			Str("provider", string(provider.Kind())).
			Str("permission", string(state)).
			Msg("speech provider selected")
		return nil
	}

	c.mu.Lock()
	c.state = domain.CaptureStateIdle
	c.mu.Unlock()
	return ErrNoProvider
}

// StartListening begins a new capture session. An active session is torn
// down first and the settle delay observed before the replacement starts.
// Failures are reported through the error callback and returned.
func (c *Controller) StartListening(ctx context.Context) error {
	if err := c.ensureInitialized(ctx); err != nil {
		c.events.CaptureError(domain.ErrorCodeStart, err.Error())
		return err
	}

	c.mu.Lock()
	permission := c.permission
	provider := c.selected
	previous := c.current
	c.current = nil
	c.mu.Unlock()

	if permission == domain.PermissionDenied {
		c.events.CaptureError(domain.ErrorCodePermission, "microphone permission denied")
		return domain.ErrPermissionDenied
	}

	if previous != nil {
		c.discard(previous)
		if err := c.settle(ctx); err != nil {
			return err
		}
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	sess, err := provider.Start(sessionCtx, c.cfg.Capture)
	if err != nil {
		cancel()
		c.mu.Lock()
		c.state = domain.CaptureStateReady
		c.mu.Unlock()
		c.events.CaptureError(startErrorCode(err), err.Error())
		return fmt.Errorf("start %s provider: %w", provider.Kind(), err)
	}

	active := newActiveSession(sessionCtx, cancel, provider.Kind(), sess)
	c.mu.Lock()
	c.current = active
	c.transcript = ""
	c.state = domain.CaptureStateListening
	c.mu.Unlock()

	go c.consume(active, provider)

	reason := domain.ReasonListeningStarted
	if previous != nil {
		reason = domain.ReasonListeningRestarted
	}
	c.events.ListeningChanged(true, reason)
	return nil
}

// StopListening ends the active session. Calling it while idle is a no-op.
// Teardown is best-effort: the controller always returns to a non-listening
// state even when provider teardown fails.
func (c *Controller) StopListening() error {
	c.mu.Lock()
	active := c.current
	c.current = nil
	if active != nil {
		c.state = domain.CaptureStateStopping
	}
	c.mu.Unlock()

	if active == nil {
		return nil
	}

	c.finish(active, domain.ReasonStoppedByUser)
	<-active.done
	return nil
}

// Toggle stops when listening, starts otherwise.
func (c *Controller) Toggle(ctx context.Context) error {
	c.mu.Lock()
	listening := c.current != nil
	c.mu.Unlock()

	if listening {
		return c.StopListening()
	}
	return c.StartListening(ctx)
}

// Speak synthesizes text out loud. Failures are reported through the
// error callback and returned, never raised further.
func (c *Controller) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := c.synth.Speak(ctx, text, c.cfg.Speech); err != nil {
		c.events.CaptureError(domain.ErrorCodeSynthesis, err.Error())
		return fmt.Errorf("synthesize speech: %w", err)
	}
	return nil
}

// Status returns the current capture runtime status.
func (c *Controller) Status() domain.Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := domain.Status{
		State:      c.state,
		Listening:  c.current != nil && c.state == domain.CaptureStateListening,
		Permission: c.permission,
		Transcript: c.transcript,
	}
	if c.selected != nil {
		status.Provider = c.selected.Kind()
	}
	return status
}

// Transcript returns the latest recognized (or interim) text.
func (c *Controller) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transcript
}

func (c *Controller) ensureInitialized(ctx context.Context) error {
	c.mu.Lock()
	selected := c.selected
	permission := c.permission
	c.mu.Unlock()

	if selected == nil {
		return c.Initialize(ctx)
	}

	// Permission may still be unresolved from a deferred prompt; re-check
	// lazily before starting.
	if permission == domain.PermissionUnknown {
		state, err := selected.Probe(ctx)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.permission = state
		c.mu.Unlock()
		c.events.PermissionChanged(state)
	}
	return nil
}

func (c *Controller) settle(ctx context.Context) error {
	timer := time.NewTimer(c.cfg.SettleDelay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type drainOutcome int

const (
	drainEnded drainOutcome = iota
	drainFinal
	drainError
	drainStopped
)

// consume pulls recognition events for the life of the session, restarting
// the provider on natural ends while continuous mode wants to keep
// listening.
func (c *Controller) consume(active *activeSession, provider ports.SpeechProvider) {
	defer close(active.done)

	for {
		sess := active.session()
		switch c.drain(active, sess) {
		case drainStopped:
			c.finish(active, domain.ReasonStoppedByUser)
			return
		case drainError:
			c.finish(active, domain.ReasonRecognitionFailed)
			return
		case drainFinal:
			c.finish(active, domain.ReasonResultReceived)
			return
		case drainEnded:
			if !c.cfg.Continuous || !c.isCurrent(active) || active.ctx.Err() != nil {
				c.finish(active, domain.ReasonSessionEnded)
				return
			}

			next, err := provider.Start(active.ctx, c.cfg.Capture)
			if err != nil {
				c.events.CaptureError(startErrorCode(err), err.Error())
				c.finish(active, domain.ReasonRecognitionFailed)
				return
			}
			active.setSession(next)
			c.events.ListeningChanged(true, domain.ReasonListeningResumed)
		}
	}
}

func (c *Controller) drain(active *activeSession, sess ports.CaptureSession) drainOutcome {
	for event := range sess.Events() {
		if active.ctx.Err() != nil {
			return drainStopped
		}
		text := strings.TrimSpace(event.Text)
		if text == "" {
			continue
		}

		c.setTranscript(text)
		if event.Kind == domain.ResultKindPartial {
			c.events.PartialTranscript(text)
			continue
		}

		c.events.RecognitionResult(domain.RecognitionResult{
			Transcript: text,
			Confidence: event.Confidence,
		})
		if !c.cfg.Continuous {
			return drainFinal
		}
	}

	if active.ctx.Err() != nil {
		return drainStopped
	}
	if err := sess.Err(); err != nil {
		c.events.CaptureError(runtimeErrorCode(err), err.Error())
		return drainError
	}
	return drainEnded
}

// finish is the single teardown path: every session exit, normal or not,
// funnels through here exactly once and leaves the controller ready again.
func (c *Controller) finish(active *activeSession, reason domain.StateReason) {
	active.finishOnce.Do(func() {
		active.cancel()
		if err := active.session().Stop(); err != nil {
			c.events.CaptureError(domain.ErrorCodeStop, err.Error())
		}

		c.mu.Lock()
		if c.current == active {
			c.current = nil
		}
		c.state = domain.CaptureStateReady
		c.mu.Unlock()

		c.log.Debug().
			Str("provider", string(active.provider)).
			Dur("duration", time.Since(active.startedAt)).
			Str("reason", string(reason)).
			Msg("capture session finished")

		if !active.isDiscarded() {
			c.events.ListeningChanged(false, reason)
		}
	})
}

// discard silently tears down a session that is being replaced.
func (c *Controller) discard(active *activeSession) {
	active.markDiscarded()
	c.finish(active, domain.ReasonListeningRestarted)
	<-active.done
}

func (c *Controller) isCurrent(active *activeSession) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == active
}

func (c *Controller) setTranscript(text string) {
	c.mu.Lock()
	c.transcript = text
	c.mu.Unlock()
}

func startErrorCode(err error) domain.ErrorCode {
	if errors.Is(err, domain.ErrNetwork) {
		return domain.ErrorCodeNetwork
	}
	return domain.ErrorCodeStart
}

func runtimeErrorCode(err error) domain.ErrorCode {
	switch {
	case errors.Is(err, domain.ErrNoSpeech):
		return domain.ErrorCodeNoSpeech
	case errors.Is(err, domain.ErrNetwork):
		return domain.ErrorCodeNetwork
	default:
		return domain.ErrorCodeRecognition
	}
}
