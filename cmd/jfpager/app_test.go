package main

import (
	"context"
	"testing"
	"time"

	"github.com/Sternrassler/jellyfin-pager/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_PerServerClientSettings(t *testing.T) {
	mock := testutil.NewMockServer(10)
	defer mock.Close()
	mock.SetDelay(300 * time.Millisecond)

	cfg := DefaultConfig()
	cfg.Jellyfin.URL = mock.URL()
	cfg.Jellyfin.UserID = "user-1"
	cfg.Seerr.URL = mock.URL()
	cfg.Seerr.Timeout = 50 * time.Millisecond
	cfg.Seerr.MaxRetries = 1
	require.NoError(t, cfg.Validate())

	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close()

	requests, err := a.open(ctx, selector{Kind: kindRequests})
	require.NoError(t, err)
	defer requests.Close()

	start := time.Now()
	require.Error(t, requests.Init(ctx, 0))
	assert.Less(t, time.Since(start), 250*time.Millisecond)
	assert.Equal(t, 1, mock.GetRequestCount(), "seerr max_retries 1 means a single attempt")

	items, err := a.open(ctx, selector{Kind: kindItems})
	require.NoError(t, err)
	defer items.Close()

	require.NoError(t, items.Init(ctx, 0), "jellyfin keeps its own timeout")
	assert.Equal(t, 10, items.TotalCount())
}
