package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const (
	imageBaseURL     = "https://image.tmdb.org/t/p/"
	defaultImageSize = "w500"
	missingPosterURL = "/no-movie.png"
)

type Category string

const (
	CategoryTrending Category = "trending"
	CategoryPopular  Category = "popular"
	CategoryTopRated Category = "top_rated"
)

// ParseCategory accepts the canonical names plus the dashed URL form ("top-rated").
func ParseCategory(raw string) (Category, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.ReplaceAll(value, "-", "_")
	switch Category(value) {
	case CategoryTrending, CategoryPopular, CategoryTopRated:
		return Category(value), true
	default:
		return "", false
	}
}

// MovieSummary is a listing record as returned by the upstream proxy.
// Optional fields are left at their zero value when absent or null.
type MovieSummary struct {
	ID               int     `json:"id"`
	Title            string  `json:"title"`
	PosterPath       string  `json:"poster_path,omitempty"`
	ReleaseDate      string  `json:"release_date,omitempty"`
	VoteAverage      float64 `json:"vote_average,omitempty"`
	OriginalLanguage string  `json:"original_language,omitempty"`
	Overview         string  `json:"overview,omitempty"`
	Popularity       float64 `json:"popularity,omitempty"`
}

func (m MovieSummary) PosterURL() string {
	return ImageURL(m.PosterPath, "")
}

// Year returns the release year, or 0 when the release date is missing or malformed.
func (m MovieSummary) Year() int {
	if len(m.ReleaseDate) < 4 {
		return 0
	}
	year, err := strconv.Atoi(m.ReleaseDate[:4])
	if err != nil {
		return 0
	}
	return year
}

// ImageURL builds a full image URL for an upstream image path.
func ImageURL(path, size string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return missingPosterURL
	}
	if size == "" {
		size = defaultImageSize
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return imageBaseURL + size + path
}

// BaselineEntry holds the trending/popular signal for one movie id.
// It only lives for the duration of a single search.
type BaselineEntry struct {
	TrendingScore float64
	PopularScore  float64
	IsTrending    bool
}

type RankedMovie struct {
	MovieSummary
	TrendingScore float64 `json:"trending_score"`
	PopularScore  float64 `json:"popular_score"`
	IsTrending    bool    `json:"is_trending"`
	CombinedScore float64 `json:"combined_score"`
}

// PageResponse is one upstream page of a listing or search.
type PageResponse struct {
	Page         int            `json:"page"`
	Results      []MovieSummary `json:"results"`
	TotalResults int            `json:"total_results"`
	TotalPages   int            `json:"total_pages"`
}

// ResultEnvelope is the shape every catalog operation returns. Catalog
// operations pre-aggregate, so Page and TotalPages are always 1.
type ResultEnvelope[T any] struct {
	Results      []T `json:"results"`
	TotalResults int `json:"total_results"`
	TotalPages   int `json:"total_pages"`
	Page         int `json:"page"`
}

func NewEnvelope[T any](results []T, totalResults int) ResultEnvelope[T] {
	if results == nil {
		results = []T{}
	}
	return ResultEnvelope[T]{
		Results:      results,
		TotalResults: totalResults,
		TotalPages:   1,
		Page:         1,
	}
}

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type MovieDetails struct {
	MovieSummary
	BackdropPath string  `json:"backdrop_path,omitempty"`
	Tagline      string  `json:"tagline,omitempty"`
	Runtime      int     `json:"runtime,omitempty"`
	Status       string  `json:"status,omitempty"`
	VoteCount    int     `json:"vote_count,omitempty"`
	Genres       []Genre `json:"genres,omitempty"`
	IMDbID       string  `json:"imdb_id,omitempty"`
}

func (d MovieDetails) BackdropURL() string {
	return ImageURL(d.BackdropPath, "w1280")
}

// MovieID is a movie identifier that the watchlist backend sends either as a
// JSON number or as a string.
type MovieID int

func (id *MovieID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*id = 0
			return nil
		}
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid movie id %q", raw)
		}
		*id = MovieID(parsed)
		return nil
	}
	var parsed int
	if err := json.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("invalid movie id %s", string(data))
	}
	*id = MovieID(parsed)
	return nil
}
