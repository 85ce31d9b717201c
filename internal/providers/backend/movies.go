package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"moviesvault/catalog/internal/domain"
)

func (c *Client) FetchTrending(ctx context.Context, page int) (domain.PageResponse, error) {
	return c.fetchPage(ctx, opTrending, "/movies/trending/", pageQuery(page))
}

func (c *Client) FetchPopular(ctx context.Context, page int) (domain.PageResponse, error) {
	return c.fetchPage(ctx, opPopular, "/movies/popular/", pageQuery(page))
}

func (c *Client) FetchTopRated(ctx context.Context, page int) (domain.PageResponse, error) {
	return c.fetchPage(ctx, opTopRated, "/movies/top-rated/", pageQuery(page))
}

func (c *Client) FetchSearch(ctx context.Context, query string, page int) (domain.PageResponse, error) {
	params := pageQuery(page)
	params.Set("query", strings.TrimSpace(query))
	return c.fetchPage(ctx, opSearch, "/movies/search/", params)
}

func (c *Client) FetchNowPlaying(ctx context.Context, page int) (domain.PageResponse, error) {
	return c.fetchPage(ctx, opNowPlaying, "/movies/now-playing/", pageQuery(page))
}

func (c *Client) FetchUpcoming(ctx context.Context, page int) (domain.PageResponse, error) {
	return c.fetchPage(ctx, opUpcoming, "/movies/upcoming/", pageQuery(page))
}

func (c *Client) fetchPage(ctx context.Context, op operation, path string, params url.Values) (domain.PageResponse, error) {
	data, err := c.do(ctx, op, http.MethodGet, path, params, nil)
	if err != nil {
		return domain.PageResponse{}, err
	}
	if err := validatePage(data); err != nil {
		return domain.PageResponse{}, malformedError(op, err)
	}
	var page domain.PageResponse
	if err := decodeJSON(op, data, &page); err != nil {
		return domain.PageResponse{}, err
	}
	if page.Results == nil {
		page.Results = []domain.MovieSummary{}
	}
	return page, nil
}

func (c *Client) FetchGenres(ctx context.Context) ([]domain.Genre, error) {
	var payload struct {
		Genres []domain.Genre `json:"genres"`
	}
	if err := c.getJSON(ctx, opGenres, "/movies/genres/", nil, &payload); err != nil {
		return nil, err
	}
	if payload.Genres == nil {
		return []domain.Genre{}, nil
	}
	return payload.Genres, nil
}

func (c *Client) FetchMovieDetails(ctx context.Context, movieID int) (domain.MovieDetails, error) {
	if movieID <= 0 {
		return domain.MovieDetails{}, fmt.Errorf("invalid movie id %d", movieID)
	}
	var details domain.MovieDetails
	if err := c.getJSON(ctx, opDetails, fmt.Sprintf("/movies/%d/", movieID), nil, &details); err != nil {
		return domain.MovieDetails{}, err
	}
	return details, nil
}

// Health returns the backend's health document as-is.
func (c *Client) Health(ctx context.Context) (map[string]any, error) {
	payload := map[string]any{}
	if err := c.getJSON(ctx, opHealth, "/core/health/", nil, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
