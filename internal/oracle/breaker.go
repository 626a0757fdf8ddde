// breaker.go wraps the fallback chain's tier classification in a
// sony/gobreaker circuit breaker. The breaker trips the moment a refresh
// tick's accepted price set contains only Cached/Simulated entries (or
// none at all) and resets on the next tick that produces at least one
// live (Pyth/Backup) price.
package oracle

import (
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"oilperps/pkg/types"
)

var errTickDegraded = errors.New("oracle: tick produced no live price source")

// Breaker tracks whether the oracle's price set is currently backed by at
// least one live source.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker that opens after a single degraded tick
// and probes again on the following tick (half-open), matching the
// per-tick (not N-consecutive-failure) semantics of the fallback chain.
// Timeout is set to 1ns rather than gobreaker's 60s default: the breaker
// must re-probe on the very next Observe call, which arrives on the next
// refresh tick (as fast as every few seconds), not 60 real seconds later.
func NewBreaker() *Breaker {
	return &Breaker{
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "oracle-fallback",
			MaxRequests: 1,
			Timeout:     time.Nanosecond,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 1
			},
		}),
	}
}

// Observe records the outcome of one refresh tick given the sources of
// every price accepted during that tick.
func (b *Breaker) Observe(sources []types.PriceSource) {
	_, _ = b.cb.Execute(func() (any, error) {
		for _, src := range sources {
			if src.IsLive() {
				return nil, nil
			}
		}
		return nil, errTickDegraded
	})
}

// Tripped reports whether the breaker is currently open (no live source
// observed on the most recent tick whose outcome has propagated).
func (b *Breaker) Tripped() bool {
	return b.cb.State() != gobreaker.StateClosed
}
