package client

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for retry operations.
var (
	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickers_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	retryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tickers_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickers_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})

	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickers_rate_limit_waits_total",
		Help: "Total number of rate limit cooldown waits",
	})
)

// Action is the outcome of a retry policy decision.
type Action int

const (
	// ActionSucceed means the attempt succeeded and no retry is needed.
	ActionSucceed Action = iota

	// ActionFail means the failure is fatal for this page.
	ActionFail

	// ActionRetryBackoff means retry the same request after a growing delay.
	ActionRetryBackoff

	// ActionRetryCooldown means the server signalled rate limiting; retry the
	// same request after the fixed cooldown window.
	ActionRetryCooldown
)

// Decision is a retry policy verdict plus the wait it prescribes.
type Decision struct {
	Action Action
	Wait   time.Duration
}

// RetryConfig holds the retry and pacing policy knobs.
type RetryConfig struct {
	// MaxAttempts bounds attempts for transient failures (network, 5xx),
	// counting the initial request. Rate limit cooldowns are not bounded.
	MaxAttempts int

	// InitialBackoff is the delay after the first transient failure.
	InitialBackoff time.Duration

	// MaxBackoff caps the exponential backoff.
	MaxBackoff time.Duration

	// BackoffMultiplier is the factor applied per transient failure.
	BackoffMultiplier float64

	// Cooldown is the fixed wait after a 429 response.
	Cooldown time.Duration
}

// DefaultRetryConfig returns the default retry policy.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Cooldown:          60 * time.Second,
	}
}

// Decide maps an error class and the number of transient failures so far to
// the next action. It performs no I/O, so the policy can be unit tested
// against simulated outcome sequences.
func (rc RetryConfig) Decide(errorClass ErrorClass, attempt int) Decision {
	switch errorClass {
	case "":
		return Decision{Action: ActionSucceed}
	case ErrorClassRateLimit:
		return Decision{Action: ActionRetryCooldown, Wait: rc.Cooldown}
	case ErrorClassNetwork, ErrorClassServer:
		if attempt >= rc.MaxAttempts {
			return Decision{Action: ActionFail}
		}
		return Decision{Action: ActionRetryBackoff, Wait: rc.backoff(attempt)}
	default:
		// auth, parse and other client errors are not transient.
		return Decision{Action: ActionFail}
	}
}

// backoff returns the deterministic exponential delay for the given failed
// attempt count (1-based). Jitter is applied by the executor, not here.
func (rc RetryConfig) backoff(attempt int) time.Duration {
	d := rc.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * rc.BackoffMultiplier)
		if d >= rc.MaxBackoff {
			return rc.MaxBackoff
		}
	}
	if d > rc.MaxBackoff {
		return rc.MaxBackoff
	}
	return d
}

// sleepFunc blocks for the given duration or until the context is done.
type sleepFunc func(ctx context.Context, d time.Duration) error

// sleepContext is the default sleepFunc.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// retryWithPolicy executes fn until the policy stops it. Rate limit
// cooldowns repeat without bound; transient failures count against
// MaxAttempts; everything else fails on the first occurrence.
func retryWithPolicy(ctx context.Context, cfg RetryConfig, logger zerolog.Logger, sleep sleepFunc, onWait func(time.Duration), fn func() error) error {
	attempt := 0

	for {
		err := fn()
		if err == nil {
			if attempt > 0 {
				logger.Info().
					Int("failed_attempts", attempt).
					Msg("Request succeeded after retry")
			}
			return nil
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
		}

		errorClass := Classify(err)
		if errorClass == ErrorClassNetwork || errorClass == ErrorClassServer {
			attempt++
		}

		decision := cfg.Decide(errorClass, attempt)
		switch decision.Action {
		case ActionFail:
			if shouldRetry(errorClass) {
				retryExhaustedTotal.WithLabelValues(string(errorClass)).Inc()
				logger.Warn().
					Str("error_class", string(errorClass)).
					Int("max_attempts", cfg.MaxAttempts).
					Msg("Retry attempts exhausted")
				return fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempt, err)
			}
			return err

		case ActionRetryCooldown:
			rateLimitWaitsTotal.Inc()
			logger.Warn().
				Dur("cooldown", decision.Wait).
				Msg("Rate limit hit, waiting before retrying the same page")
			if onWait != nil {
				onWait(decision.Wait)
			}
			if err := sleep(ctx, decision.Wait); err != nil {
				return fmt.Errorf("%w: %v", ErrContextCancelled, err)
			}

		case ActionRetryBackoff:
			retriesTotal.WithLabelValues(string(errorClass)).Inc()

			// ±20% jitter to avoid retrying in lockstep.
			wait := time.Duration(float64(decision.Wait) * (0.8 + rand.Float64()*0.4))
			retryBackoffSeconds.WithLabelValues(string(errorClass)).Observe(wait.Seconds())

			logger.Debug().
				Str("error_class", string(errorClass)).
				Int("attempt", attempt).
				Dur("backoff", wait).
				Msg("Retrying request after backoff")
			if err := sleep(ctx, wait); err != nil {
				return fmt.Errorf("%w: %v", ErrContextCancelled, err)
			}
		}
	}
}
