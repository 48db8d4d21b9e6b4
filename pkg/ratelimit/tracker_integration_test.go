//go:build integration

package ratelimit

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_GetState(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, "jf", logger)
	ctx := context.Background()

	state, err := tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.IsHealthy() {
		t.Error("Empty state should be healthy")
	}

	headers := http.Header{}
	headers.Set("Retry-After", "30")
	if err := tracker.UpdateFromResponse(ctx, http.StatusTooManyRequests, headers); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	state, err = tracker.GetState(ctx)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.NeedsBlock() {
		t.Error("State should block after 429")
	}
	if d := state.TimeUntilRetry(); d < 28*time.Second || d > 30*time.Second {
		t.Errorf("TimeUntilRetry() = %v, want ~30s", d)
	}
	if state.Throttles != 1 {
		t.Errorf("Throttles = %d, want 1", state.Throttles)
	}
	if state.IsStale(time.Minute) {
		t.Error("LastUpdate should be fresh")
	}
}

func TestTracker_Integration_NamespacesAreIsolated(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	ctx := context.Background()
	jf := NewTracker(redisClient, "jf", zerolog.Nop())
	seerr := NewTracker(redisClient, "seerr", zerolog.Nop())

	if err := jf.UpdateFromResponse(ctx, http.StatusServiceUnavailable, http.Header{"Retry-After": {"60"}}); err != nil {
		t.Fatalf("UpdateFromResponse() error = %v", err)
	}

	allowed, err := seerr.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("Backpressure on one namespace must not block another")
	}
}

func TestTracker_Integration_Throttle(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, "jf", zerolog.Nop())
	tracker.throttleDelay = 200 * time.Millisecond
	ctx := context.Background()

	for i := 0; i < ThrottleThreshold; i++ {
		if err := tracker.UpdateFromResponse(ctx, http.StatusTooManyRequests, http.Header{"Retry-After": {"0"}}); err != nil {
			t.Fatalf("UpdateFromResponse() error = %v", err)
		}
	}

	start := time.Now()
	allowed, err := tracker.ShouldAllowRequest(ctx)
	duration := time.Since(start)

	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("ShouldAllowRequest() = false, want true when throttling")
	}
	if duration < 180*time.Millisecond {
		t.Errorf("ShouldAllowRequest() throttle duration = %v, want >= 200ms", duration)
	}
}

func TestTracker_Integration_IgnoresOtherStatuses(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	tracker := NewTracker(redisClient, "jf", zerolog.Nop())
	ctx := context.Background()

	for _, status := range []int{http.StatusNotFound, http.StatusInternalServerError, http.StatusNotModified} {
		if err := tracker.UpdateFromResponse(ctx, status, http.Header{"Retry-After": {"60"}}); err != nil {
			t.Fatalf("UpdateFromResponse(%d) error = %v", status, err)
		}
	}

	start := time.Now()
	allowed, err := tracker.ShouldAllowRequest(ctx)
	if err != nil {
		t.Fatalf("ShouldAllowRequest() error = %v", err)
	}
	if !allowed {
		t.Error("ShouldAllowRequest() = false, want true")
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("ShouldAllowRequest() should not throttle")
	}
}
