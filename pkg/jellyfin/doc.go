// Package jellyfin adapts Jellyfin listing endpoints to the pagination
// package.
//
// Each listing endpoint has a query type (ItemsQuery, EpisodesQuery,
// ResumeQuery, ...) that embeds Paging. Fetcher turns any of them into a
// pagination.PageFetcher, API implements pagination.ItemFetcher, and Mapper
// converts raw BaseItemDto records into Item values.
//
//	c, _ := client.New(client.DefaultConfig("http://jellyfin.local:8096", token))
//	api, _ := jellyfin.NewAPI(c, userID)
//
//	list, err := jellyfin.NewList(ctx, api, jellyfin.ItemsQuery{
//		ParentID:  libraryID,
//		Recursive: true,
//		SortBy:    []string{"SortName"},
//	}, pagination.DefaultConfig())
package jellyfin
