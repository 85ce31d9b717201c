package apihttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"moviesvault/catalog/internal/domain"
)

type fakeWatchlistService struct {
	lastStatus  domain.WatchStatus
	lastAdd     domain.WatchlistAddRequest
	lastMark    domain.MarkWatchedRequest
	lastMovieID int
	removed     []int
	err         error
}

func (f *fakeWatchlistService) ListWatchlist(ctx context.Context, status domain.WatchStatus) (domain.Watchlist, error) {
	f.lastStatus = status
	if f.err != nil {
		return domain.Watchlist{}, f.err
	}
	return domain.Watchlist{Items: []domain.WatchlistItem{{MovieID: 603, MovieTitle: "The Matrix"}}, Count: 1}, nil
}

func (f *fakeWatchlistService) AddToWatchlist(ctx context.Context, request domain.WatchlistAddRequest) (domain.WatchlistItem, error) {
	f.lastAdd = request
	if f.err != nil {
		return domain.WatchlistItem{}, f.err
	}
	return domain.WatchlistItem{ID: "w1", MovieID: domain.MovieID(request.MovieID), MovieTitle: request.MovieTitle}, nil
}

func (f *fakeWatchlistService) RemoveFromWatchlist(ctx context.Context, movieID int) error {
	f.removed = append(f.removed, movieID)
	return f.err
}

func (f *fakeWatchlistService) CheckWatchlist(ctx context.Context, movieID int) (domain.WatchlistStatus, error) {
	f.lastMovieID = movieID
	if f.err != nil {
		return domain.WatchlistStatus{}, f.err
	}
	return domain.WatchlistStatus{InWatchlist: true}, nil
}

func (f *fakeWatchlistService) MarkWatched(ctx context.Context, movieID int, request domain.MarkWatchedRequest) (domain.WatchlistItem, error) {
	f.lastMovieID = movieID
	f.lastMark = request
	if f.err != nil {
		return domain.WatchlistItem{}, f.err
	}
	return domain.WatchlistItem{MovieID: domain.MovieID(movieID), IsWatched: true, UserRating: request.Rating}, nil
}

func newWatchlistServer(fake *fakeWatchlistService) http.Handler {
	return NewServer(&fakeCatalogService{}, WithWatchlist(fake)).Handler()
}

func TestWatchlistListFiltersByStatus(t *testing.T) {
	fake := &fakeWatchlistService{}
	rec := serve(newWatchlistServer(fake), httptest.NewRequest(http.MethodGet, "/watchlist?status=watched", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if fake.lastStatus != domain.WatchStatusWatched {
		t.Fatalf("unexpected status filter %q", fake.lastStatus)
	}
	var payload domain.Watchlist
	decodeBody(t, rec, &payload)
	if payload.Count != 1 || payload.Items[0].MovieID != 603 {
		t.Fatalf("unexpected payload %+v", payload)
	}

	rec = serve(newWatchlistServer(fake), httptest.NewRequest(http.MethodGet, "/watchlist?status=maybe", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown status, got %d", rec.Code)
	}
}

func TestWatchlistAddValidatesBody(t *testing.T) {
	fake := &fakeWatchlistService{}
	handler := newWatchlistServer(fake)

	body := `{"movie_id":603,"movie_title":"  The Matrix ","movie_rating":8.2,"movie_poster":"/m.jpg"}`
	rec := serve(handler, httptest.NewRequest(http.MethodPost, "/watchlist", strings.NewReader(body)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if fake.lastAdd.MovieID != 603 || fake.lastAdd.MovieTitle != "The Matrix" || fake.lastAdd.MoviePoster != "/m.jpg" {
		t.Fatalf("unexpected add request %+v", fake.lastAdd)
	}

	rec = serve(handler, httptest.NewRequest(http.MethodPost, "/watchlist", strings.NewReader(`{"movie_title":"x"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing movie_id, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "movie_id") {
		t.Fatalf("expected validation message to name movie_id, got %s", rec.Body.String())
	}

	rec = serve(handler, httptest.NewRequest(http.MethodPost, "/watchlist", strings.NewReader(`{"movie_id":1,"movie_rating":11}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range rating, got %d", rec.Code)
	}

	rec = serve(handler, httptest.NewRequest(http.MethodPost, "/watchlist", strings.NewReader(`{"movie_id":1,"bogus":true}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}

func TestWatchlistAddPassesUpstreamRejection(t *testing.T) {
	fake := &fakeWatchlistService{err: &domain.UpstreamError{
		Kind:    domain.KindUpstreamUnavailable,
		Status:  400,
		Message: "Movie already in watchlist",
	}}
	rec := serve(newWatchlistServer(fake), httptest.NewRequest(http.MethodPost, "/watchlist", strings.NewReader(`{"movie_id":5}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "upstream_rejected" {
		t.Fatalf("unexpected code %q", code)
	}
	if !strings.Contains(rec.Body.String(), "Movie already in watchlist") {
		t.Fatalf("expected upstream message, got %s", rec.Body.String())
	}
}

func TestWatchlistItemCheckAndRemove(t *testing.T) {
	fake := &fakeWatchlistService{}
	handler := newWatchlistServer(fake)

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/watchlist/603", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"in_watchlist":true`) {
		t.Fatalf("unexpected check response %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(handler, httptest.NewRequest(http.MethodDelete, "/watchlist/603", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if len(fake.removed) != 1 || fake.removed[0] != 603 {
		t.Fatalf("unexpected removals %v", fake.removed)
	}

	rec = serve(handler, httptest.NewRequest(http.MethodPatch, "/watchlist/603", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestWatchlistUnauthenticated(t *testing.T) {
	fake := &fakeWatchlistService{err: &domain.UpstreamError{
		Kind:    domain.KindUpstreamUnavailable,
		Status:  401,
		Message: "Authentication credentials were not provided.",
	}}
	rec := serve(newWatchlistServer(fake), httptest.NewRequest(http.MethodGet, "/watchlist", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "unauthenticated" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestMarkWatched(t *testing.T) {
	fake := &fakeWatchlistService{}
	handler := newWatchlistServer(fake)

	rec := serve(handler, httptest.NewRequest(http.MethodPost, "/watchlist/603/watched", strings.NewReader(`{"rating":9,"review":" great "}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if fake.lastMovieID != 603 || fake.lastMark.Rating == nil || *fake.lastMark.Rating != 9 || fake.lastMark.Review != "great" {
		t.Fatalf("unexpected mark request %d %+v", fake.lastMovieID, fake.lastMark)
	}

	rec = serve(handler, httptest.NewRequest(http.MethodPost, "/watchlist/603/watched", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected empty body to be accepted, got %d", rec.Code)
	}

	rec = serve(handler, httptest.NewRequest(http.MethodPost, "/watchlist/603/watched", strings.NewReader(`{"rating":0.5}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for rating below 1, got %d", rec.Code)
	}
}
