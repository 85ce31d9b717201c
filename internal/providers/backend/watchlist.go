package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"moviesvault/catalog/internal/domain"
)

func (c *Client) ListWatchlist(ctx context.Context, status domain.WatchStatus) (domain.Watchlist, error) {
	var params url.Values
	if status != "" {
		params = url.Values{"status": {string(status)}}
	}
	var list domain.Watchlist
	if err := c.getJSON(ctx, opWatchlist, "/watchlist/", params, &list); err != nil {
		return domain.Watchlist{}, err
	}
	if list.Items == nil {
		list.Items = []domain.WatchlistItem{}
	}
	return list, nil
}

func (c *Client) AddToWatchlist(ctx context.Context, request domain.WatchlistAddRequest) (domain.WatchlistItem, error) {
	data, err := c.do(ctx, opWatchAdd, http.MethodPost, "/watchlist/add/", nil, request)
	if err != nil {
		return domain.WatchlistItem{}, err
	}
	var payload struct {
		Item domain.WatchlistItem `json:"watchlist_item"`
	}
	if err := decodeJSON(opWatchAdd, data, &payload); err != nil {
		return domain.WatchlistItem{}, err
	}
	return payload.Item, nil
}

func (c *Client) RemoveFromWatchlist(ctx context.Context, movieID int) error {
	_, err := c.do(ctx, opWatchRemove, http.MethodDelete, fmt.Sprintf("/watchlist/remove/%d/", movieID), nil, nil)
	return err
}

func (c *Client) CheckWatchlist(ctx context.Context, movieID int) (domain.WatchlistStatus, error) {
	var status domain.WatchlistStatus
	if err := c.getJSON(ctx, opWatchCheck, fmt.Sprintf("/watchlist/check/%d/", movieID), nil, &status); err != nil {
		return domain.WatchlistStatus{}, err
	}
	return status, nil
}

func (c *Client) MarkWatched(ctx context.Context, movieID int, request domain.MarkWatchedRequest) (domain.WatchlistItem, error) {
	data, err := c.do(ctx, opWatchMark, http.MethodPut, fmt.Sprintf("/watchlist/mark-watched/%d/", movieID), nil, request)
	if err != nil {
		return domain.WatchlistItem{}, err
	}
	var payload struct {
		Item domain.WatchlistItem `json:"watchlist_item"`
	}
	if err := decodeJSON(opWatchMark, data, &payload); err != nil {
		return domain.WatchlistItem{}, err
	}
	return payload.Item, nil
}
