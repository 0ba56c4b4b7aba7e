package capture

import (
	"context"
	"sync"
	"time"

	"voxchat/internal/domain"
	"voxchat/internal/ports"
)

// activeSession is the single in-flight listening attempt. The controller
// owns exactly one at a time; done is closed once the consume goroutine
// has fully exited.
type activeSession struct {
	ctx       context.Context
	cancel    context.CancelFunc
	provider  domain.ProviderKind
	startedAt time.Time
	done      chan struct{}

	mu        sync.Mutex
	sess      ports.CaptureSession
	discarded bool

	finishOnce sync.Once
}

func newActiveSession(ctx context.Context, cancel context.CancelFunc, provider domain.ProviderKind, sess ports.CaptureSession) *activeSession {
	return &activeSession{
		ctx:       ctx,
		cancel:    cancel,
		provider:  provider,
		startedAt: time.Now(),
		done:      make(chan struct{}),
		sess:      sess,
	}
}

func (s *activeSession) session() ports.CaptureSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess
}

// setSession swaps in a fresh provider session on a continuous restart.
func (s *activeSession) setSession(sess ports.CaptureSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess = sess
}

// markDiscarded suppresses the final listening-changed event for sessions
// replaced by a restart rather than finished in their own right.
func (s *activeSession) markDiscarded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = true
}

func (s *activeSession) isDiscarded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.discarded
}
