package wa

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type SessionState string

const (
	StateDisconnected SessionState = "disconnected"
	StateConnecting   SessionState = "connecting"
	StateConnected    SessionState = "connected"
	StateReconnecting SessionState = "reconnecting"
	StateLoggedOut    SessionState = "logged_out"
)

// Lifecycle owns the session connection state machine. It is the only
// component allowed to dial: drops re-enter Connecting with capped
// exponential backoff, an explicit logout is terminal and requires a fresh
// pairing before the process is useful again.
type Lifecycle struct {
	dial      func(ctx context.Context) error
	log       *zap.Logger
	baseDelay time.Duration
	maxDelay  time.Duration

	mu      sync.Mutex
	state   SessionState
	attempt int
	onState func(state SessionState, reason string)
}

func NewLifecycle(dial func(ctx context.Context) error, base, max time.Duration, log *zap.Logger) *Lifecycle {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = 30 * time.Second
	}
	return &Lifecycle{
		dial:      dial,
		log:       log,
		baseDelay: base,
		maxDelay:  max,
		state:     StateDisconnected,
	}
}

// OnStateChange registers a single observer, called outside the lock.
func (l *Lifecycle) OnStateChange(fn func(state SessionState, reason string)) {
	l.mu.Lock()
	l.onState = fn
	l.mu.Unlock()
}

func (l *Lifecycle) State() SessionState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Lifecycle) setState(s SessionState, reason string) {
	l.mu.Lock()
	if l.state == StateLoggedOut {
		l.mu.Unlock()
		return
	}
	l.state = s
	fn := l.onState
	l.mu.Unlock()
	l.log.Info("session state", zap.String("state", string(s)), zap.String("reason", reason))
	if fn != nil {
		fn(s, reason)
	}
}

// Start dials the transport from cold. Dial failures on cold start retry on
// the same backoff schedule as drops.
func (l *Lifecycle) Start(ctx context.Context) error {
	return l.connectLoop(ctx, "startup")
}

// HandleConnected is invoked by the adapter once the transport reports an
// open, authenticated session.
func (l *Lifecycle) HandleConnected() {
	l.mu.Lock()
	l.attempt = 0
	l.mu.Unlock()
	l.setState(StateConnected, "stream open")
}

// HandleDisconnect reacts to an unsolicited close. An explicit logout is
// terminal; anything else triggers a reconnect attempt.
func (l *Lifecycle) HandleDisconnect(ctx context.Context, reason string, loggedOut bool) {
	if loggedOut {
		l.mu.Lock()
		l.state = StateLoggedOut
		fn := l.onState
		l.mu.Unlock()
		l.log.Warn("session logged out, re-pairing required", zap.String("reason", reason))
		if fn != nil {
			fn(StateLoggedOut, reason)
		}
		return
	}
	if l.State() == StateLoggedOut {
		return
	}
	l.setState(StateReconnecting, reason)
	go func() {
		if err := l.connectLoop(ctx, reason); err != nil {
			l.log.Error("reconnect abandoned", zap.Error(err))
		}
	}()
}

func (l *Lifecycle) connectLoop(ctx context.Context, reason string) error {
	for {
		if l.State() == StateLoggedOut {
			return nil
		}
		l.setState(StateConnecting, reason)
		err := l.dial(ctx)
		if err == nil {
			// Connected is reported by the transport event, not the dial
			// returning; the state stays Connecting until then.
			return nil
		}
		delay := l.nextDelay()
		l.log.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", delay))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			l.setState(StateDisconnected, "shutdown")
			return ctx.Err()
		}
	}
}

// nextDelay doubles from the base delay up to the cap.
func (l *Lifecycle) nextDelay() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := l.baseDelay << l.attempt
	if d > l.maxDelay || d <= 0 {
		d = l.maxDelay
	} else {
		l.attempt++
	}
	return d
}
