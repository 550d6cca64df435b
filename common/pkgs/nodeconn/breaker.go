package nodeconn

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

var ErrBreakerOpen = errors.New("circuit breaker open")

const (
	breakerClosed = iota
	breakerOpen
	breakerHalfOpen
)

// Breaker short-circuits an operation class after too many consecutive
// failures. While open it rejects immediately; after the cool-down it lets
// one trial call through (half-open) and fully resets only if that succeeds.
type Breaker struct {
	clock     clock.Clock
	threshold int
	coolDown  time.Duration

	mu       sync.Mutex
	state    int
	fails    int
	openedAt time.Time
	trialing bool
}

func NewBreaker(threshold int, coolDown time.Duration) *Breaker {
	return &Breaker{
		clock:     clock.New(),
		threshold: threshold,
		coolDown:  coolDown,
	}
}

func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case breakerOpen:
		if b.clock.Now().Sub(b.openedAt) < b.coolDown {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.state = breakerHalfOpen
		b.trialing = true

	case breakerHalfOpen:
		if b.trialing {
			b.mu.Unlock()
			return ErrBreakerOpen
		}
		b.trialing = true
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.trialing = false
		if err != nil {
			b.state = breakerOpen
			b.openedAt = b.clock.Now()
		} else {
			b.state = breakerClosed
			b.fails = 0
		}
		return err
	}

	if err != nil {
		b.fails++
		if b.fails >= b.threshold {
			b.state = breakerOpen
			b.openedAt = b.clock.Now()
		}
	} else {
		b.fails = 0
	}
	return err
}
