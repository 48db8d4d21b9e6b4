package jellyfin

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Sternrassler/jellyfin-pager/pkg/client"
	"github.com/Sternrassler/jellyfin-pager/pkg/logging"
	"github.com/rs/zerolog"
)

// API is a Jellyfin user session on top of the HTTP client.
type API struct {
	client *client.Client
	userID string
	logger zerolog.Logger
}

// NewAPI binds c to a Jellyfin user.
func NewAPI(c *client.Client, userID string) (*API, error) {
	if c == nil {
		return nil, fmt.Errorf("client is required")
	}
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	return &API{
		client: c,
		userID: userID,
		logger: logging.NewLogger(logging.ComponentJF).With().Str("user_id", userID).Logger(),
	}, nil
}

// UserID returns the bound user.
func (a *API) UserID() string {
	return a.userID
}

// FetchItem loads one item for the bound user. The response cache is
// bypassed so refreshed items reflect the latest user data, and the user's
// cached listings are dropped since they may still hold the old copy.
func (a *API) FetchItem(ctx context.Context, id string) (BaseItemDto, error) {
	var item BaseItemDto
	path := "/Users/" + a.userID + "/Items/" + id
	if err := a.client.GetJSON(ctx, path, nil, &item, client.WithNoCache()); err != nil {
		return BaseItemDto{}, fmt.Errorf("fetch item %s: %w", id, err)
	}

	if _, err := a.client.InvalidateCache(ctx); err != nil {
		a.logger.Warn().Err(err).Str("item_id", id).Msg("Failed to invalidate cached listings")
	}
	return item, nil
}

// query runs one listing request.
func (a *API) query(ctx context.Context, path string, values url.Values) (ItemsResult, error) {
	var result ItemsResult
	if err := a.client.GetJSON(ctx, path, values, &result); err != nil {
		return ItemsResult{}, err
	}
	a.logger.Trace().
		Str("endpoint", path).
		Int("items", len(result.Items)).
		Int("total_count", result.TotalRecordCount).
		Msg("Listing fetched")
	return result, nil
}
