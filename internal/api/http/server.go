package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"moviesvault/catalog/internal/catalog"
	"moviesvault/catalog/internal/domain"
)

type CatalogService interface {
	Search(ctx context.Context, query string) (domain.ResultEnvelope[domain.RankedMovie], error)
	FetchCategory(ctx context.Context, category domain.Category) (domain.ResultEnvelope[domain.MovieSummary], error)
}

// MovieDirectory serves the single-page listings and lookups that bypass the
// catalog aggregation.
type MovieDirectory interface {
	FetchNowPlaying(ctx context.Context, page int) (domain.PageResponse, error)
	FetchUpcoming(ctx context.Context, page int) (domain.PageResponse, error)
	FetchGenres(ctx context.Context) ([]domain.Genre, error)
	FetchMovieDetails(ctx context.Context, movieID int) (domain.MovieDetails, error)
	Health(ctx context.Context) (map[string]any, error)
}

type WatchlistService interface {
	ListWatchlist(ctx context.Context, status domain.WatchStatus) (domain.Watchlist, error)
	AddToWatchlist(ctx context.Context, request domain.WatchlistAddRequest) (domain.WatchlistItem, error)
	RemoveFromWatchlist(ctx context.Context, movieID int) error
	CheckWatchlist(ctx context.Context, movieID int) (domain.WatchlistStatus, error)
	MarkWatched(ctx context.Context, movieID int, request domain.MarkWatchedRequest) (domain.WatchlistItem, error)
}

// SessionStore resolves a session cookie value to an upstream bearer token.
type SessionStore interface {
	Lookup(ctx context.Context, sessionID string) (string, bool, error)
}

type Server struct {
	catalog       CatalogService
	directory     MovieDirectory
	watchlist     WatchlistService
	sessions      SessionStore
	sessionCookie string
	images        *http.Client
	validate      *validator.Validate
	logger        *slog.Logger
	rateRPS       float64
	rateBurst     int
}

const (
	maxQueryLength      = 500
	clientClosedRequest = 499
)

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

func WithMovieDirectory(directory MovieDirectory) ServerOption {
	return func(s *Server) {
		s.directory = directory
	}
}

func WithWatchlist(watchlist WatchlistService) ServerOption {
	return func(s *Server) {
		s.watchlist = watchlist
	}
}

// WithSessions enables cookie-based token resolution for requests that carry
// no Authorization header.
func WithSessions(store SessionStore, cookieName string) ServerOption {
	return func(s *Server) {
		s.sessions = store
		if name := strings.TrimSpace(cookieName); name != "" {
			s.sessionCookie = name
		}
	}
}

func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.rateRPS = rps
			s.rateBurst = burst
		}
	}
}

// WithImageClient sets the client used by the poster proxy.
func WithImageClient(client *http.Client) ServerOption {
	return func(s *Server) {
		if client != nil {
			s.images = client
		}
	}
}

func NewServer(catalogService CatalogService, options ...ServerOption) *Server {
	server := &Server{
		catalog:       catalogService,
		sessionCookie: "moviesvault_session",
		images:        &http.Client{Timeout: 12 * time.Second},
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        slog.Default(),
		rateRPS:       50,
		rateBurst:     100,
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	server.validate.RegisterTagNameFunc(jsonFieldName)
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/upstream", s.handleUpstreamHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/movies/search", s.handleSearch)
	mux.HandleFunc("/movies/trending", s.handleCategory)
	mux.HandleFunc("/movies/popular", s.handleCategory)
	mux.HandleFunc("/movies/top-rated", s.handleCategory)
	mux.HandleFunc("/movies/now-playing", s.handleNowPlaying)
	mux.HandleFunc("/movies/upcoming", s.handleUpcoming)
	mux.HandleFunc("/movies/genres", s.handleGenres)
	mux.HandleFunc("/movies/{id}", s.handleMovieDetails)
	mux.HandleFunc("/images/{size}/{file}", s.handlePosterProxy)
	mux.HandleFunc("/watchlist", s.handleWatchlist)
	mux.HandleFunc("/watchlist/{id}", s.handleWatchlistItem)
	mux.HandleFunc("/watchlist/{id}/watched", s.handleMarkWatched)

	traced := otelhttp.NewMiddleware("moviesvault-catalog",
		otelhttp.WithFilter(func(r *http.Request) bool { return !infraPaths[r.URL.Path] }),
	)
	return chain(mux,
		withRecovery(s.logger),
		withRateLimit(s.rateRPS, s.rateBurst),
		withRequestMetrics,
		traced,
		withRequestID,
		withAccessLog(s.logger),
		withSession(s.sessions, s.sessionCookie, s.logger),
	)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleUpstreamHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.directory == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "movie directory is not configured")
		return
	}
	payload, err := s.directory.Health(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "upstream health", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"upstream": payload,
	})
}

// writeServiceError maps catalog and upstream failures onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status, code, message := classifyError(err)
	level := slog.LevelWarn
	if status == clientClosedRequest {
		level = slog.LevelDebug
	}
	s.logger.LogAttrs(r.Context(), level, operation+" failed",
		slog.Int("status", status),
		slog.String("requestId", requestIDFromContext(r.Context())),
		slog.String("error", err.Error()),
	)
	writeError(w, status, code, message)
}

func classifyError(err error) (int, string, string) {
	var upstreamErr *domain.UpstreamError
	switch {
	case errors.Is(err, catalog.ErrEmptyQuery), errors.Is(err, catalog.ErrUnknownCategory):
		return http.StatusBadRequest, "invalid_request", err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout", "upstream request timed out"
	case errors.Is(err, context.Canceled):
		return clientClosedRequest, "canceled", "request canceled"
	case errors.Is(err, domain.ErrNetworkUnavailable):
		return http.StatusServiceUnavailable, "network_unavailable", domain.NetworkUnavailableMessage
	case errors.Is(err, domain.ErrMalformedResponse):
		return http.StatusBadGateway, "malformed_response", "upstream returned an unexpected response"
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated", upstreamMessage(err)
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", upstreamMessage(err)
	case errors.As(err, &upstreamErr):
		if upstreamErr.Status >= 400 && upstreamErr.Status < 500 {
			return upstreamErr.Status, "upstream_rejected", upstreamErr.Message
		}
		return http.StatusBadGateway, "upstream_unavailable", upstreamErr.Message
	default:
		return http.StatusInternalServerError, "internal_error", "internal server error"
	}
}

func upstreamMessage(err error) string {
	var upstreamErr *domain.UpstreamError
	if errors.As(err, &upstreamErr) && upstreamErr.Message != "" {
		return upstreamErr.Message
	}
	return err.Error()
}

func (s *Server) validationError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	parts := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		if fieldErr.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fieldErr.Field(), fieldErr.Tag(), fieldErr.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s is %s", fieldErr.Field(), fieldErr.Tag()))
	}
	writeError(w, http.StatusBadRequest, "invalid_request", strings.Join(parts, "; "))
}

func decodeJSONBody(r *http.Request, dest any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func parseMovieID(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.PathValue("id"))
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid movie id")
	}
	return parsed, nil
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "-" || name == "" {
		return field.Name
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
