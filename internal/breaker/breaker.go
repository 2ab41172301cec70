package breaker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	customError "github.com/swissconsulthub/intake-engine/pkg/errors"
)

// State of the breaker gate.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	}
	return "unknown"
}

// Breaker stops issuing calls to the backend after maxFailures consecutive
// failures and fails fast until the cooldown has elapsed, then lets exactly
// one probe through. One instance guards the whole data-access client, so a
// single noisy endpoint trips the gate for all of them; that coarseness is
// accepted.
type Breaker struct {
	log         *zap.Logger
	maxFailures int
	cooldown    time.Duration

	mu            sync.Mutex
	state         State
	failures      int
	lastFailure   time.Time
	probeInFlight bool
	onStateChange func(State)

	now func() time.Time
}

func New(log *zap.Logger, maxFailures int, cooldown time.Duration) *Breaker {
	return &Breaker{
		log:         log,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		state:       StateClosed,
		now:         time.Now,
	}
}

// OnStateChange registers a hook invoked after every state transition. The
// hook runs while the breaker lock is held and must not call back into the
// breaker.
func (b *Breaker) OnStateChange(fn func(State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

func (b *Breaker) setState(s State) {
	if b.state == s {
		return
	}
	b.state = s
	if b.onStateChange != nil {
		b.onStateChange(s)
	}
}

// Execute runs fn through the gate. When the breaker is open the call is
// rejected immediately with the fixed circuit-open error and fn is never
// invoked.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err)
	return err
}

// State returns the current gate state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.lastFailure) < b.cooldown {
			return customError.WrapCircuitOpen()
		}
		b.setState(StateHalfOpen)
		b.probeInFlight = true
		b.log.Info("circuit breaker half-open, probing backend")
		return nil
	case StateHalfOpen:
		// Only the one probe is allowed through.
		if b.probeInFlight {
			return customError.WrapCircuitOpen()
		}
		b.probeInFlight = true
		return nil
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state != StateClosed {
			b.log.Info("circuit breaker closed after successful probe")
		}
		b.setState(StateClosed)
		b.failures = 0
		b.probeInFlight = false
		return
	}

	b.failures++
	b.lastFailure = b.now()
	b.probeInFlight = false

	if b.state == StateHalfOpen {
		b.setState(StateOpen)
		b.log.Warn("circuit breaker re-opened, probe failed")
		return
	}

	if b.failures >= b.maxFailures {
		b.setState(StateOpen)
		b.log.Warn("circuit breaker opened",
			zap.Int("consecutive_failures", b.failures),
			zap.Duration("cooldown", b.cooldown),
		)
	}
}
