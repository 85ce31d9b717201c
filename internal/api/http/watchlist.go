package apihttp

import (
	"net/http"
	"strings"

	"moviesvault/catalog/internal/domain"
)

func (s *Server) handleWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.watchlist == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "watchlist service is not configured")
		return
	}
	switch r.Method {
	case http.MethodGet:
		status, ok := domain.NormalizeWatchStatus(strings.TrimSpace(r.URL.Query().Get("status")))
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_request", "status must be want_to_watch or watched")
			return
		}
		list, err := s.watchlist.ListWatchlist(r.Context(), status)
		if err != nil {
			s.writeServiceError(w, r, "watchlist list", err)
			return
		}
		if list.Items == nil {
			list.Items = []domain.WatchlistItem{}
		}
		writeJSON(w, http.StatusOK, list)
	case http.MethodPost:
		var request domain.WatchlistAddRequest
		if err := decodeJSONBody(r, &request); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		request.MovieTitle = strings.TrimSpace(request.MovieTitle)
		if err := s.validate.Struct(request); err != nil {
			s.validationError(w, err)
			return
		}
		item, err := s.watchlist.AddToWatchlist(r.Context(), request)
		if err != nil {
			s.writeServiceError(w, r, "watchlist add", err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"watchlist_item": item})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleWatchlistItem(w http.ResponseWriter, r *http.Request) {
	if s.watchlist == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "watchlist service is not configured")
		return
	}
	movieID, err := parseMovieID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	switch r.Method {
	case http.MethodGet:
		status, err := s.watchlist.CheckWatchlist(r.Context(), movieID)
		if err != nil {
			s.writeServiceError(w, r, "watchlist check", err)
			return
		}
		writeJSON(w, http.StatusOK, status)
	case http.MethodDelete:
		if err := s.watchlist.RemoveFromWatchlist(r.Context(), movieID); err != nil {
			s.writeServiceError(w, r, "watchlist remove", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMarkWatched(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.watchlist == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "watchlist service is not configured")
		return
	}
	movieID, err := parseMovieID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	var request domain.MarkWatchedRequest
	if err := decodeJSONBody(r, &request); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	request.Review = strings.TrimSpace(request.Review)
	if err := s.validate.Struct(request); err != nil {
		s.validationError(w, err)
		return
	}

	item, err := s.watchlist.MarkWatched(r.Context(), movieID, request)
	if err != nil {
		s.writeServiceError(w, r, "watchlist mark watched", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"watchlist_item": item})
}
