package apihttp

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"moviesvault/catalog/internal/domain"
)

type pageFetcher func(ctx context.Context, page int) (domain.PageResponse, error)

type movieView struct {
	domain.MovieSummary
	PosterURL string `json:"poster_url"`
}

type rankedMovieView struct {
	domain.RankedMovie
	PosterURL string `json:"poster_url"`
}

type movieDetailsView struct {
	domain.MovieDetails
	PosterURL   string `json:"poster_url"`
	BackdropURL string `json:"backdrop_url"`
}

type pageView struct {
	Page         int         `json:"page"`
	Results      []movieView `json:"results"`
	TotalResults int         `json:"total_results"`
	TotalPages   int         `json:"total_pages"`
}

func movieViews(items []domain.MovieSummary) []movieView {
	views := make([]movieView, 0, len(items))
	for _, item := range items {
		views = append(views, movieView{MovieSummary: item, PosterURL: item.PosterURL()})
	}
	return views
}

func rankedMovieViews(items []domain.RankedMovie) []rankedMovieView {
	views := make([]rankedMovieView, 0, len(items))
	for _, item := range items {
		views = append(views, rankedMovieView{RankedMovie: item, PosterURL: item.PosterURL()})
	}
	return views
}

func envelopeView[T, V any](envelope domain.ResultEnvelope[T], convert func([]T) []V) domain.ResultEnvelope[V] {
	return domain.ResultEnvelope[V]{
		Results:      convert(envelope.Results),
		TotalResults: envelope.TotalResults,
		TotalPages:   envelope.TotalPages,
		Page:         envelope.Page,
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.catalog == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "catalog service is not configured")
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}

	envelope, err := s.catalog.Search(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, r, "search", err)
		return
	}
	s.logger.Debug("search served",
		slog.String("query", truncate(query, 80)),
		slog.Int("results", len(envelope.Results)),
		slog.Int("totalResults", envelope.TotalResults),
	)
	writeJSON(w, http.StatusOK, envelopeView(envelope, rankedMovieViews))
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.catalog == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "catalog service is not configured")
		return
	}
	category, ok := domain.ParseCategory(path.Base(r.URL.Path))
	if !ok {
		http.NotFound(w, r)
		return
	}

	envelope, err := s.catalog.FetchCategory(r.Context(), category)
	if err != nil {
		s.writeServiceError(w, r, "category "+string(category), err)
		return
	}
	writeJSON(w, http.StatusOK, envelopeView(envelope, movieViews))
}

func (s *Server) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	s.handleDirectoryPage(w, r, "now playing", func(d MovieDirectory) pageFetcher { return d.FetchNowPlaying })
}

func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) {
	s.handleDirectoryPage(w, r, "upcoming", func(d MovieDirectory) pageFetcher { return d.FetchUpcoming })
}

func (s *Server) handleDirectoryPage(w http.ResponseWriter, r *http.Request, operation string, pick func(MovieDirectory) pageFetcher) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.directory == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "movie directory is not configured")
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}

	response, err := pick(s.directory)(r.Context(), page)
	if err != nil {
		s.writeServiceError(w, r, operation, err)
		return
	}
	writeJSON(w, http.StatusOK, pageView{
		Page:         response.Page,
		Results:      movieViews(response.Results),
		TotalResults: response.TotalResults,
		TotalPages:   response.TotalPages,
	})
}

func (s *Server) handleGenres(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.directory == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "movie directory is not configured")
		return
	}
	genres, err := s.directory.FetchGenres(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "genres", err)
		return
	}
	if genres == nil {
		genres = []domain.Genre{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"genres": genres})
}

func (s *Server) handleMovieDetails(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.directory == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "movie directory is not configured")
		return
	}
	movieID, err := parseMovieID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	details, err := s.directory.FetchMovieDetails(r.Context(), movieID)
	if err != nil {
		s.writeServiceError(w, r, "movie details", err)
		return
	}
	writeJSON(w, http.StatusOK, movieDetailsView{
		MovieDetails: details,
		PosterURL:    details.PosterURL(),
		BackdropURL:  details.BackdropURL(),
	})
}
