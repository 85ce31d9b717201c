package domain

type WatchStatus string

const (
	WatchStatusWantToWatch WatchStatus = "want_to_watch"
	WatchStatusWatched     WatchStatus = "watched"
)

func NormalizeWatchStatus(raw string) (WatchStatus, bool) {
	switch WatchStatus(raw) {
	case "":
		return "", true
	case WatchStatusWantToWatch, WatchStatusWatched:
		return WatchStatus(raw), true
	default:
		return "", false
	}
}

type WatchlistItem struct {
	ID               string   `json:"id,omitempty"`
	MovieID          MovieID  `json:"movie_id"`
	MovieTitle       string   `json:"movie_title,omitempty"`
	MoviePoster      string   `json:"movie_poster,omitempty"`
	MovieOverview    string   `json:"movie_overview,omitempty"`
	MovieReleaseDate string   `json:"movie_release_date,omitempty"`
	MovieRating      float64  `json:"movie_rating,omitempty"`
	IsWatched        bool     `json:"is_watched"`
	UserRating       *float64 `json:"user_rating,omitempty"`
	UserReview       string   `json:"user_review,omitempty"`
	DateAdded        string   `json:"date_added,omitempty"`
	DateWatched      string   `json:"date_watched,omitempty"`
}

type Watchlist struct {
	Items []WatchlistItem `json:"watchlist"`
	Count int             `json:"count"`
}

type WatchlistStatus struct {
	InWatchlist bool `json:"in_watchlist"`
	IsWatched   bool `json:"is_watched"`
}

// WatchlistAddRequest is the body sent to the backend when adding a movie.
type WatchlistAddRequest struct {
	MovieID          int     `json:"movie_id" validate:"required,gt=0"`
	MovieTitle       string  `json:"movie_title" validate:"max=255"`
	MoviePoster      string  `json:"movie_poster,omitempty"`
	MovieOverview    string  `json:"movie_overview,omitempty"`
	MovieReleaseDate string  `json:"movie_release_date,omitempty"`
	MovieRating      float64 `json:"movie_rating,omitempty" validate:"gte=0,lte=10"`
}

// WatchlistAddRequestFromMovie mirrors a listing record into an add request.
func WatchlistAddRequestFromMovie(movie MovieSummary) WatchlistAddRequest {
	return WatchlistAddRequest{
		MovieID:          movie.ID,
		MovieTitle:       movie.Title,
		MoviePoster:      movie.PosterPath,
		MovieOverview:    movie.Overview,
		MovieReleaseDate: movie.ReleaseDate,
		MovieRating:      movie.VoteAverage,
	}
}

type MarkWatchedRequest struct {
	Rating *float64 `json:"rating,omitempty" validate:"omitempty,gte=1,lte=10"`
	Review string   `json:"review,omitempty" validate:"max=2000"`
}
