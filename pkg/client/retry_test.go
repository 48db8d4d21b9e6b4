package client

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fastRetry keeps backoffs in the millisecond range.
func fastRetry(ErrorClass) RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		InitialBackoff:    10 * time.Millisecond,
		MaxBackoff:        40 * time.Millisecond,
		BackoffMultiplier: 2.0,
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", config.MaxAttempts)
	}
	if config.InitialBackoff != 1*time.Second {
		t.Errorf("InitialBackoff = %v, want 1s", config.InitialBackoff)
	}
	if config.MaxBackoff != 30*time.Second {
		t.Errorf("MaxBackoff = %v, want 30s", config.MaxBackoff)
	}
	if config.BackoffMultiplier != 2.0 {
		t.Errorf("BackoffMultiplier = %v, want 2.0", config.BackoffMultiplier)
	}
}

func TestRetryConfigForErrorClass(t *testing.T) {
	tests := []struct {
		name             string
		errorClass       ErrorClass
		expectedInitial  time.Duration
		expectedMax      time.Duration
		expectedAttempts int
	}{
		{
			name:             "server error config",
			errorClass:       ErrorClassServer,
			expectedInitial:  1 * time.Second,
			expectedMax:      10 * time.Second,
			expectedAttempts: 3,
		},
		{
			name:             "rate limit config",
			errorClass:       ErrorClassRateLimit,
			expectedInitial:  5 * time.Second,
			expectedMax:      60 * time.Second,
			expectedAttempts: 3,
		},
		{
			name:             "network error config",
			errorClass:       ErrorClassNetwork,
			expectedInitial:  2 * time.Second,
			expectedMax:      30 * time.Second,
			expectedAttempts: 3,
		},
		{
			name:             "unknown error class uses default",
			errorClass:       "",
			expectedInitial:  1 * time.Second,
			expectedMax:      30 * time.Second,
			expectedAttempts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := RetryConfigForErrorClass(tt.errorClass)

			if config.InitialBackoff != tt.expectedInitial {
				t.Errorf("InitialBackoff = %v, want %v", config.InitialBackoff, tt.expectedInitial)
			}
			if config.MaxBackoff != tt.expectedMax {
				t.Errorf("MaxBackoff = %v, want %v", config.MaxBackoff, tt.expectedMax)
			}
			if config.MaxAttempts != tt.expectedAttempts {
				t.Errorf("MaxAttempts = %d, want %d", config.MaxAttempts, tt.expectedAttempts)
			}
		})
	}
}

func TestRetryWithBackoff_Success(t *testing.T) {
	callCount := 0
	fn := func() error {
		callCount++
		return nil
	}

	err := retryWithBackoff(context.Background(), fn, func(error) ErrorClass {
		return ErrorClassServer
	})

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithConfig_SuccessAfterRetry(t *testing.T) {
	callCount := 0
	fn := func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	}

	start := time.Now()
	err := retryWithConfig(context.Background(), fastRetry, fn, func(error) ErrorClass {
		return ErrorClassServer
	})
	duration := time.Since(start)

	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
	// 10ms + 20ms with -20% jitter
	if duration < 20*time.Millisecond {
		t.Errorf("Expected some backoff delay, got %v", duration)
	}
}

func TestRetryWithConfig_MaxAttemptsExhausted(t *testing.T) {
	sentinel := errors.New("persistent error")
	callCount := 0
	fn := func() error {
		callCount++
		return sentinel
	}

	err := retryWithConfig(context.Background(), fastRetry, fn, func(error) ErrorClass {
		return ErrorClassServer
	})

	if !errors.Is(err, ErrRetryExhausted) {
		t.Errorf("Expected ErrRetryExhausted, got %v", err)
	}
	if !errors.Is(err, sentinel) {
		t.Errorf("Expected last error to be wrapped, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("Expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithConfig_ClientErrorNoRetry(t *testing.T) {
	sentinel := errors.New("bad request")
	callCount := 0
	fn := func() error {
		callCount++
		return sentinel
	}

	err := retryWithConfig(context.Background(), fastRetry, fn, func(error) ErrorClass {
		return ErrorClassClient
	})

	if err != sentinel {
		t.Errorf("Expected original error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call (no retry for client errors), got %d", callCount)
	}
}

func TestRetryWithConfig_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	callCount := 0
	fn := func() error {
		callCount++
		if callCount == 1 {
			cancel()
		}
		return errors.New("server error")
	}

	slow := func(ErrorClass) RetryConfig {
		return RetryConfig{MaxAttempts: 5, InitialBackoff: time.Second, MaxBackoff: time.Second, BackoffMultiplier: 1}
	}

	err := retryWithConfig(ctx, slow, fn, func(error) ErrorClass {
		return ErrorClassServer
	})

	if !errors.Is(err, ErrContextCancelled) {
		t.Errorf("Expected ErrContextCancelled, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled to be wrapped, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("Expected 1 call, got %d", callCount)
	}
}

func TestRetryWithConfig_ExponentialBackoff(t *testing.T) {
	timestamps := []time.Time{}
	fn := func() error {
		timestamps = append(timestamps, time.Now())
		return errors.New("error")
	}

	resolve := func(ErrorClass) RetryConfig {
		return RetryConfig{MaxAttempts: 3, InitialBackoff: 50 * time.Millisecond, MaxBackoff: time.Second, BackoffMultiplier: 2}
	}
	_ = retryWithConfig(context.Background(), resolve, fn, func(error) ErrorClass { return ErrorClassServer })

	if len(timestamps) != 3 {
		t.Fatalf("Expected 3 timestamps, got %d", len(timestamps))
	}

	firstDelay := timestamps[1].Sub(timestamps[0])
	secondDelay := timestamps[2].Sub(timestamps[1])

	// ±20% jitter around 50ms and 100ms
	if firstDelay < 40*time.Millisecond {
		t.Errorf("First retry delay %v below expected range", firstDelay)
	}
	if secondDelay < 80*time.Millisecond {
		t.Errorf("Second retry delay %v below expected range", secondDelay)
	}
}

func TestRetryWithConfig_ClassPicksConfig(t *testing.T) {
	var seen []ErrorClass
	resolve := func(class ErrorClass) RetryConfig {
		seen = append(seen, class)
		return fastRetry(class)
	}

	callCount := 0
	classes := []ErrorClass{ErrorClassNetwork, ErrorClassRateLimit}
	fn := func() error {
		callCount++
		if callCount <= len(classes) {
			return errors.New("failure")
		}
		return nil
	}

	err := retryWithConfig(context.Background(), resolve, fn, func(error) ErrorClass {
		return classes[callCount-1]
	})
	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}

	if len(seen) != 2 || seen[0] != ErrorClassNetwork || seen[1] != ErrorClassRateLimit {
		t.Errorf("resolved classes = %v", seen)
	}
}

func TestRetryWithConfig_MaxBackoffCap(t *testing.T) {
	resolve := func(ErrorClass) RetryConfig {
		return RetryConfig{
			MaxAttempts:       4,
			InitialBackoff:    10 * time.Millisecond,
			MaxBackoff:        15 * time.Millisecond,
			BackoffMultiplier: 10.0,
		}
	}

	timestamps := []time.Time{}
	fn := func() error {
		timestamps = append(timestamps, time.Now())
		return errors.New("error")
	}
	_ = retryWithConfig(context.Background(), resolve, fn, func(error) ErrorClass { return ErrorClassServer })

	if len(timestamps) != 4 {
		t.Fatalf("Expected 4 timestamps, got %d", len(timestamps))
	}
	// uncapped the last delay would be ~1s
	if last := timestamps[3].Sub(timestamps[2]); last > 200*time.Millisecond {
		t.Errorf("Last delay %v not capped", last)
	}
}
