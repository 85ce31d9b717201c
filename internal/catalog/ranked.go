package catalog

import (
	"context"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"moviesvault/catalog/internal/domain"
)

const (
	// SearchResultLimit caps the ranked search output.
	SearchResultLimit = 20

	trendingBaseScore = 100
	popularBaseScore  = 50
	popularityDivisor = 100
)

// RankedFetcher re-ranks upstream search hits against the current trending
// and popular listings.
type RankedFetcher struct {
	upstream Upstream
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewRankedFetcher(upstream Upstream, opts ...Option) *RankedFetcher {
	o := buildOptions(opts)
	return &RankedFetcher{
		upstream: upstream,
		logger:   o.logger,
		tracer:   o.tracer,
	}
}

// Search fetches trending, popular and search page 1 concurrently, scores
// each search hit against the trending/popular baseline and returns the top
// SearchResultLimit hits. Any failed fetch fails the whole search.
func (f *RankedFetcher) Search(ctx context.Context, query string) (envelope domain.ResultEnvelope[domain.RankedMovie], err error) {
	query = NormalizeQuery(query)
	if query == "" {
		return domain.ResultEnvelope[domain.RankedMovie]{}, ErrEmptyQuery
	}

	ctx, span := f.tracer.Start(ctx, "catalog.Search", trace.WithAttributes(attribute.String("catalog.query", query)))
	defer func() { finishOperation(span, "search", err) }()

	var trending, popular, hits domain.PageResponse
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		page, err := f.upstream.FetchTrending(groupCtx, 1)
		if err != nil {
			return err
		}
		trending = page
		return nil
	})
	group.Go(func() error {
		page, err := f.upstream.FetchPopular(groupCtx, 1)
		if err != nil {
			return err
		}
		popular = page
		return nil
	})
	group.Go(func() error {
		page, err := f.upstream.FetchSearch(groupCtx, query, 1)
		if err != nil {
			return err
		}
		hits = page
		return nil
	})
	if err := group.Wait(); err != nil {
		f.logger.Debug("ranked search failed",
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return domain.ResultEnvelope[domain.RankedMovie]{}, err
	}

	baseline := BuildBaseline(trending.Results, popular.Results)
	ranked := RankHits(hits.Results, baseline)
	if len(ranked) > SearchResultLimit {
		ranked = ranked[:SearchResultLimit]
	}

	span.SetAttributes(
		attribute.Int("catalog.baseline_size", len(baseline)),
		attribute.Int("catalog.hits", len(hits.Results)),
	)
	return domain.NewEnvelope(ranked, hits.TotalResults), nil
}

// BuildBaseline maps movie ids to their trending/popular scores. Trending
// entries go in first; popular entries extend an existing entry or add a
// non-trending one. A repeated id within one list keeps its first position.
func BuildBaseline(trending, popular []domain.MovieSummary) map[int]domain.BaselineEntry {
	baseline := make(map[int]domain.BaselineEntry, len(trending)+len(popular))
	for i, movie := range trending {
		if _, exists := baseline[movie.ID]; exists {
			continue
		}
		baseline[movie.ID] = domain.BaselineEntry{
			TrendingScore: float64(trendingBaseScore - i),
			IsTrending:    true,
		}
	}

	seenPopular := make(map[int]struct{}, len(popular))
	for i, movie := range popular {
		if _, seen := seenPopular[movie.ID]; seen {
			continue
		}
		seenPopular[movie.ID] = struct{}{}
		entry := baseline[movie.ID]
		entry.PopularScore = float64(popularBaseScore - i)
		baseline[movie.ID] = entry
	}
	return baseline
}

// RankHits joins baseline scores onto hits and stable-sorts them by trending
// flag, combined score and vote average, all descending.
func RankHits(hits []domain.MovieSummary, baseline map[int]domain.BaselineEntry) []domain.RankedMovie {
	ranked := make([]domain.RankedMovie, 0, len(hits))
	for _, hit := range hits {
		entry := baseline[hit.ID]
		ranked = append(ranked, domain.RankedMovie{
			MovieSummary:  hit,
			TrendingScore: entry.TrendingScore,
			PopularScore:  entry.PopularScore,
			IsTrending:    entry.IsTrending,
			CombinedScore: entry.TrendingScore + entry.PopularScore + hit.Popularity/popularityDivisor,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return compareRanked(ranked[i], ranked[j]) < 0
	})
	return ranked
}

func compareRanked(left, right domain.RankedMovie) int {
	if left.IsTrending != right.IsTrending {
		if left.IsTrending {
			return -1
		}
		return 1
	}
	if cmp := compareFloatDesc(left.CombinedScore, right.CombinedScore); cmp != 0 {
		return cmp
	}
	return compareFloatDesc(left.VoteAverage, right.VoteAverage)
}

func compareFloatDesc(left, right float64) int {
	switch {
	case left > right:
		return -1
	case left < right:
		return 1
	default:
		return 0
	}
}
