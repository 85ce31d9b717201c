package apihttp

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"moviesvault/catalog/internal/catalog"
	"moviesvault/catalog/internal/providers/backend"
	"moviesvault/catalog/internal/session"
)

// fakeBackend serves the movie-listing proxy endpoints and records the
// Authorization header of every call.
type fakeBackend struct {
	mu          sync.Mutex
	authHeaders []string
	paths       []string
	failPopular bool
}

func (b *fakeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.authHeaders = append(b.authHeaders, r.Header.Get("Authorization"))
		b.paths = append(b.paths, r.URL.Path+"?"+r.URL.RawQuery)
		b.mu.Unlock()

		switch r.URL.Path {
		case "/movies/trending/":
			writeBackendPage(w, 1, []int{1, 2, 3})
		case "/movies/popular/":
			if b.failPopular {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = io.WriteString(w, `{"error":"TMDB is down"}`)
				return
			}
			writeBackendPage(w, 1, []int{2, 4})
		case "/movies/top-rated/":
			page := r.URL.Query().Get("page")
			if page == "1" {
				writeBackendPage(w, 5, rangeIDs(100, 20))
				return
			}
			writeBackendPage(w, 5, rangeIDs(120, 20))
		case "/movies/search/":
			writeBackendPage(w, 1, []int{4, 1, 5})
		default:
			t.Errorf("unexpected backend path %q", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func rangeIDs(start, count int) []int {
	ids := make([]int, 0, count)
	for i := 0; i < count; i++ {
		ids = append(ids, start+i)
	}
	return ids
}

func writeBackendPage(w http.ResponseWriter, totalPages int, ids []int) {
	results := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		results = append(results, map[string]any{
			"id":           id,
			"title":        fmt.Sprintf("Movie %d", id),
			"popularity":   float64(id),
			"vote_average": 7.0,
			"poster_path":  nil,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"page":          1,
		"results":       results,
		"total_pages":   totalPages,
		"total_results": totalPages * 20,
	})
}

func newFlowServer(t *testing.T, upstream *fakeBackend, staticToken string) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	backendServer := httptest.NewServer(upstream.handler(t))
	t.Cleanup(backendServer.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	client := backend.NewClient(backend.Config{
		BaseURL: backendServer.URL,
		Client:  backendServer.Client(),
		Tokens:  session.ContextTokens{Fallback: staticToken},
	})
	server := NewServer(catalog.NewService(client),
		WithMovieDirectory(client),
		WithWatchlist(client),
		WithSessions(session.NewRedisStore(redisClient, ""), "sid"),
	)
	return server.Handler(), mr
}

func TestFlowSearchRanksAgainstBaseline(t *testing.T) {
	upstream := &fakeBackend{}
	handler, _ := newFlowServer(t, upstream, "")

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/movies/search?query="+url.QueryEscape("  star   wars "), nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Results []struct {
			ID            int     `json:"id"`
			IsTrending    bool    `json:"is_trending"`
			TrendingScore float64 `json:"trending_score"`
			PopularScore  float64 `json:"popular_score"`
			PosterURL     string  `json:"poster_url"`
		} `json:"results"`
		TotalResults int `json:"total_results"`
		TotalPages   int `json:"total_pages"`
	}
	decodeBody(t, rec, &payload)
	if len(payload.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(payload.Results))
	}
	gotIDs := []int{payload.Results[0].ID, payload.Results[1].ID, payload.Results[2].ID}
	if gotIDs[0] != 1 || gotIDs[1] != 4 || gotIDs[2] != 5 {
		t.Fatalf("unexpected order %v", gotIDs)
	}
	if payload.Results[1].PopularScore != 49 || payload.Results[0].TrendingScore != 100 {
		t.Fatalf("unexpected scores %+v", payload.Results)
	}
	if payload.Results[0].PosterURL != "/no-movie.png" {
		t.Fatalf("expected placeholder poster, got %q", payload.Results[0].PosterURL)
	}
	if payload.TotalPages != 1 || payload.TotalResults != 20 {
		t.Fatalf("unexpected totals %+v", payload)
	}

	upstream.mu.Lock()
	defer upstream.mu.Unlock()
	foundQuery := false
	for _, path := range upstream.paths {
		if strings.HasPrefix(path, "/movies/search/") && strings.Contains(path, "query=star+wars") {
			foundQuery = true
		}
	}
	if !foundQuery {
		t.Fatalf("expected normalized query upstream, got %v", upstream.paths)
	}
}

func TestFlowSearchFailsWhenBaselineFails(t *testing.T) {
	upstream := &fakeBackend{failPopular: true}
	handler, _ := newFlowServer(t, upstream, "")

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/movies/search?query=x", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "TMDB is down") {
		t.Fatalf("expected upstream message, got %s", rec.Body.String())
	}
}

func TestFlowTopRatedAggregatesTwoPages(t *testing.T) {
	upstream := &fakeBackend{}
	handler, _ := newFlowServer(t, upstream, "")

	rec := serve(handler, httptest.NewRequest(http.MethodGet, "/movies/top-rated", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var payload struct {
		Results      []json.RawMessage `json:"results"`
		TotalResults int               `json:"total_results"`
		TotalPages   int               `json:"total_pages"`
	}
	decodeBody(t, rec, &payload)
	if len(payload.Results) != 40 || payload.TotalResults != 100 || payload.TotalPages != 1 {
		t.Fatalf("unexpected payload: %d results, total %d, pages %d", len(payload.Results), payload.TotalResults, payload.TotalPages)
	}
}

func TestFlowTokenResolution(t *testing.T) {
	upstream := &fakeBackend{}
	handler, mr := newFlowServer(t, upstream, "static-token")
	mr.Set("moviesvault:session:abc", "cookie-token")

	req := httptest.NewRequest(http.MethodGet, "/movies/trending", nil)
	req.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
	if rec := serve(handler, req); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if rec := serve(handler, httptest.NewRequest(http.MethodGet, "/movies/trending", nil)); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	upstream.mu.Lock()
	defer upstream.mu.Unlock()
	if len(upstream.authHeaders) != 2 {
		t.Fatalf("expected two upstream calls, got %d", len(upstream.authHeaders))
	}
	if upstream.authHeaders[0] != "Bearer cookie-token" {
		t.Fatalf("expected cookie token, got %q", upstream.authHeaders[0])
	}
	if upstream.authHeaders[1] != "Bearer static-token" {
		t.Fatalf("expected static fallback, got %q", upstream.authHeaders[1])
	}
}
