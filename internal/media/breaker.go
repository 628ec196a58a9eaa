package media

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stwalsh4118/vitrine/internal/logger"
)

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	// StateClosed lets every probe through
	StateClosed CircuitState = iota
	// StateOpen rejects probes without running them
	StateOpen
	// StateHalfOpen lets a single trial probe through after the reset timeout
	StateHalfOpen
)

const (
	defaultFailureThreshold = 5
	defaultResetTimeout     = 30 * time.Second
)

// String returns the string representation of CircuitState
func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen indicates probing is suspended after repeated tool failures
var ErrCircuitOpen = errors.New("probe circuit breaker is open")

// DurationProber is the capability guarded by a Breaker
type DurationProber interface {
	ProbeDuration(ctx context.Context, src string) (int64, error)
}

// Breaker stops calling a prober whose tooling keeps failing (missing binary,
// timeouts) so that a broken installation costs one fallback per item instead of one
// timeout per item. Per-source failures such as unreadable or corrupt files do not
// count towards the threshold.
type Breaker struct {
	prober           DurationProber
	failureThreshold int
	resetTimeout     time.Duration
	now              func() time.Time
	log              zerolog.Logger

	mu              sync.Mutex
	state           CircuitState
	failures        int
	lastFailureTime time.Time
	trialInFlight   bool
}

// NewBreaker wraps prober. Non-positive arguments select defaults.
func NewBreaker(prober DurationProber, failureThreshold int, resetTimeout time.Duration) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	if resetTimeout <= 0 {
		resetTimeout = defaultResetTimeout
	}
	return &Breaker{
		prober:           prober,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
		now:              time.Now,
		log:              logger.With("probe_breaker"),
		state:            StateClosed,
	}
}

// ProbeDuration probes src unless the circuit is open
func (b *Breaker) ProbeDuration(ctx context.Context, src string) (int64, error) {
	trial, ok := b.allow()
	if !ok {
		return 0, ErrCircuitOpen
	}

	ms, err := b.prober.ProbeDuration(ctx, src)

	switch {
	case err == nil:
		b.recordSuccess()
	case countsAsToolFailure(ctx, err):
		b.recordFailure(err)
	}
	if trial {
		b.endTrial()
	}

	return ms, err
}

// State returns the current state, moving Open to HalfOpen once the reset timeout elapsed
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

// Failures returns the current consecutive tool failure count
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// allow reports whether a probe may run and whether it is the half-open trial.
// While a trial is in flight every other caller is rejected.
func (b *Breaker) allow() (trial, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()

	switch b.state {
	case StateOpen:
		return false, false
	case StateHalfOpen:
		if b.trialInFlight {
			return false, false
		}
		b.trialInFlight = true
		return true, true
	}
	return false, true
}

// endTrial releases the half-open slot. An inconclusive trial (bad source, cancelled
// generation) leaves the circuit half-open for the next caller.
func (b *Breaker) endTrial() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trialInFlight = false
}

func (b *Breaker) maybeHalfOpenLocked() {
	if b.state == StateOpen && b.now().Sub(b.lastFailureTime) >= b.resetTimeout {
		b.state = StateHalfOpen
		b.failures = 0
	}
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateHalfOpen {
		b.state = StateClosed
		b.log.Info().Msg("Probe circuit closed")
	}
}

func (b *Breaker) recordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureTime = b.now()

	if b.state != StateOpen && (b.state == StateHalfOpen || b.failures >= b.failureThreshold) {
		b.state = StateOpen
		b.log.Warn().
			Err(err).
			Int("failures", b.failures).
			Dur("reset_timeout", b.resetTimeout).
			Msg("Probe circuit opened, auto durations will use the fallback")
	}
}

// countsAsToolFailure reports whether err indicates broken probe tooling rather than a
// bad source or a cancelled generation
func countsAsToolFailure(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	return errors.Is(err, ErrFFprobeNotFound) || errors.Is(err, ErrTimeout)
}
