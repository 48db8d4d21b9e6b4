package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for backpressure tracking.
var (
	backpressureResponsesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "backpressure_responses_total",
		Help: "Total number of 429/503 responses by status",
	}, []string{"status"})

	backpressureBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backpressure_blocks_total",
		Help: "Total number of requests blocked during a Retry-After window",
	})

	backpressureThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backpressure_throttles_total",
		Help: "Total number of requests delayed after repeated backpressure",
	})
)

// Tracker records server backpressure and gates requests.
type Tracker struct {
	redis     *redis.Client
	namespace string
	logger    zerolog.Logger

	// throttleDelay is ThrottleDelay outside tests
	throttleDelay time.Duration
}

// NewTracker creates a new backpressure tracker for one server namespace.
func NewTracker(redisClient *redis.Client, namespace string, logger zerolog.Logger) *Tracker {
	if namespace == "" {
		namespace = "mediacache"
	}
	return &Tracker{
		redis:         redisClient,
		namespace:     namespace,
		logger:        logger,
		throttleDelay: ThrottleDelay,
	}
}

func (t *Tracker) key(suffix string) string {
	return t.namespace + ":backpressure:" + suffix
}

// GetState retrieves the current backpressure state from Redis.
// Missing keys yield a healthy zero state.
func (t *Tracker) GetState(ctx context.Context) (*State, error) {
	pipe := t.redis.Pipeline()
	retryCmd := pipe.Get(ctx, t.key(keyRetryAt))
	throttlesCmd := pipe.Get(ctx, t.key(keyThrottles))
	updateCmd := pipe.Get(ctx, t.key(keyLastUpdate))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read backpressure state: %w", err)
	}

	state := &State{}

	if ms, err := retryCmd.Int64(); err == nil {
		state.RetryAt = time.UnixMilli(ms)
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("parse retry_at: %w", err)
	}

	if n, err := throttlesCmd.Int(); err == nil {
		state.Throttles = n
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("parse throttles: %w", err)
	}

	if ms, err := updateCmd.Int64(); err == nil {
		state.LastUpdate = time.UnixMilli(ms)
	} else if !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("parse last_update: %w", err)
	}

	return state, nil
}

// UpdateFromResponse records the outcome of a server response.
// 429 and 503 open a Retry-After window and count towards throttling;
// a 2xx clears the throttle counter. Other statuses are ignored.
func (t *Tracker) UpdateFromResponse(ctx context.Context, statusCode int, headers http.Header) error {
	now := time.Now()

	switch {
	case statusCode == http.StatusTooManyRequests || statusCode == http.StatusServiceUnavailable:
		wait, ok := parseRetryAfter(headers.Get("Retry-After"), now)
		if !ok {
			wait = DefaultRetryAfter
		}
		retryAt := now.Add(wait)

		pipe := t.redis.TxPipeline()
		pipe.Set(ctx, t.key(keyRetryAt), retryAt.UnixMilli(), wait)
		throttles := pipe.Incr(ctx, t.key(keyThrottles))
		pipe.Expire(ctx, t.key(keyThrottles), ThrottleWindow)
		pipe.Set(ctx, t.key(keyLastUpdate), now.UnixMilli(), 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("store backpressure state in redis: %w", err)
		}

		backpressureResponsesTotal.WithLabelValues(strconv.Itoa(statusCode)).Inc()

		t.logger.Warn().
			Int("status", statusCode).
			Dur("retry_after", wait).
			Int64("throttles", throttles.Val()).
			Msg("Server requested backoff")

	case statusCode >= 200 && statusCode < 300:
		// Avoid a write per successful request when nothing is recorded.
		n, err := t.redis.Exists(ctx, t.key(keyThrottles)).Result()
		if err != nil {
			return fmt.Errorf("check throttle counter: %w", err)
		}
		if n == 0 {
			return nil
		}
		pipe := t.redis.Pipeline()
		pipe.Del(ctx, t.key(keyThrottles))
		pipe.Set(ctx, t.key(keyLastUpdate), now.UnixMilli(), 0)
		if _, err := pipe.Exec(ctx); err != nil {
			return fmt.Errorf("reset backpressure state: %w", err)
		}
		t.logger.Debug().Msg("Server recovered, throttle counter cleared")
	}

	return nil
}

// ShouldAllowRequest checks if a request may be sent now.
// Returns false during a Retry-After window. Returns true after
// sleeping ThrottleDelay when throttling applies.
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get backpressure state: %w", err)
	}

	if state.NeedsBlock() {
		t.logger.Warn().
			Dur("wait_duration", state.TimeUntilRetry()).
			Msg("Server backpressure active - blocking request")

		backpressureBlocksTotal.Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Debug().
			Int("throttles", state.Throttles).
			Msg("Repeated server backpressure - throttling request")

		backpressureThrottlesTotal.Inc()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(t.throttleDelay):
		}
	}

	return true, nil
}

// parseRetryAfter parses a Retry-After value given either as delay seconds
// or as an HTTP date. The result is capped at MaxRetryAfter.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}

	var wait time.Duration
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		wait = time.Duration(secs) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		wait = at.Sub(now)
		if wait < 0 {
			wait = 0
		}
	} else {
		return 0, false
	}

	if wait > MaxRetryAfter {
		wait = MaxRetryAfter
	}
	return wait, true
}
