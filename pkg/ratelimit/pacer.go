// Package ratelimit paces outbound requests so the sustained request rate
// stays below the provider's soft limit.
package ratelimit

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var pacingWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "tickers_pacing_waits_total",
	Help: "Total number of inter-request pacing waits",
})

// Pacer enforces a minimum interval between consecutive requests. The last
// request time is explicit state on the Pacer, with an injectable clock so
// the policy can be tested with simulated time.
//
// Page fetches are strictly sequential, so Pacer is not safe for concurrent
// use and does not need to be.
type Pacer struct {
	minInterval time.Duration
	lastRequest time.Time
	logger      zerolog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer with the given minimum inter-request interval.
// A non-positive interval disables pacing.
func NewPacer(minInterval time.Duration, logger zerolog.Logger) *Pacer {
	return &Pacer{
		minInterval: minInterval,
		logger:      logger,
		now:         time.Now,
		sleep:       sleepContext,
	}
}

// Wait blocks until the minimum interval since the previous request has
// elapsed, then marks the current request time. It returns early with the
// context error if the context is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.minInterval > 0 && !p.lastRequest.IsZero() {
		if wait := p.minInterval - p.now().Sub(p.lastRequest); wait > 0 {
			pacingWaitsTotal.Inc()
			p.logger.Debug().
				Dur("wait", wait).
				Msg("Pacing before next request")
			if err := p.sleep(ctx, wait); err != nil {
				return err
			}
		}
	}

	p.lastRequest = p.now()
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
