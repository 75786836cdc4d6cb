package errors

import (
	"errors"
	"sync"
	"time"
)

// Breaker defaults.
const (
	ErrorThreshold      = 0.5
	MinRequests         = 10
	TimeoutDuration     = 30 * time.Second
	HalfOpenMaxRequests = 3
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

var (
	ErrCircuitOpen = errors.New("circuit breaker is open")
	errProbesTaken = errors.New("circuit breaker is probing")
)

// BreakerSettings tunes a CircuitBreaker. Zero fields take the package defaults.
type BreakerSettings struct {
	ErrorThreshold      float64
	MinRequests         int
	OpenTimeout         time.Duration
	HalfOpenMaxRequests int
	// OnStateChange is called, under the breaker's lock, on every transition.
	OnStateChange func(from, to State)
}

// CircuitBreaker fails fast once the error rate over a window of calls passes
// the threshold. After OpenTimeout it lets a few probe calls through; their
// success closes the circuit and any failure reopens it.
type CircuitBreaker struct {
	cfg BreakerSettings
	now func() time.Time

	mu       sync.Mutex
	state    State
	openedAt time.Time
	calls    int
	failed   int
	probes   int
}

func NewCircuitBreaker() *CircuitBreaker {
	return NewCircuitBreakerWithSettings(BreakerSettings{})
}

func NewCircuitBreakerWithSettings(cfg BreakerSettings) *CircuitBreaker {
	if cfg.ErrorThreshold <= 0 {
		cfg.ErrorThreshold = ErrorThreshold
	}
	if cfg.MinRequests <= 0 {
		cfg.MinRequests = MinRequests
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = TimeoutDuration
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = HalfOpenMaxRequests
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Call runs fn unless the circuit is open, returning fn's own error otherwise.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if cb.now().Sub(cb.openedAt) < cb.cfg.OpenTimeout {
			return ErrCircuitOpen
		}
		cb.moveTo(StateHalfOpen)
	}
	if cb.state == StateHalfOpen {
		if cb.probes >= cb.cfg.HalfOpenMaxRequests {
			return errProbesTaken
		}
		cb.probes++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.calls++
	if err != nil {
		cb.failed++
	}

	switch cb.state {
	case StateHalfOpen:
		if err != nil {
			cb.moveTo(StateOpen)
		} else if cb.calls-cb.failed >= cb.cfg.HalfOpenMaxRequests {
			cb.moveTo(StateClosed)
		}
	case StateClosed:
		if cb.calls >= cb.cfg.MinRequests && float64(cb.failed)/float64(cb.calls) >= cb.cfg.ErrorThreshold {
			cb.moveTo(StateOpen)
		}
	}
}

// moveTo switches state and starts a fresh counting window. Caller holds mu.
func (cb *CircuitBreaker) moveTo(next State) {
	prev := cb.state
	cb.state = next
	cb.calls, cb.failed, cb.probes = 0, 0, 0
	if next == StateOpen {
		cb.openedAt = cb.now()
	}
	if cb.cfg.OnStateChange != nil && prev != next {
		cb.cfg.OnStateChange(prev, next)
	}
}
