package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"moviesvault/catalog/internal/domain"
	"moviesvault/catalog/internal/metrics"
)

const (
	// CategoryResultLimit caps a flattened category listing.
	CategoryResultLimit = 40
	// maxCategoryPages is a fixed cap, not adaptive to upstream totals.
	maxCategoryPages = 2
)

type pageFetch func(ctx context.Context, page int) (domain.PageResponse, error)

// PageAggregator flattens up to maxCategoryPages upstream pages of a category
// into a single capped list.
type PageAggregator struct {
	upstream Upstream
	logger   *slog.Logger
	tracer   trace.Tracer
}

func NewPageAggregator(upstream Upstream, opts ...Option) *PageAggregator {
	o := buildOptions(opts)
	return &PageAggregator{
		upstream: upstream,
		logger:   o.logger,
		tracer:   o.tracer,
	}
}

func (a *PageAggregator) fetcherFor(category domain.Category) (pageFetch, bool) {
	switch category {
	case domain.CategoryTrending:
		return a.upstream.FetchTrending, true
	case domain.CategoryPopular:
		return a.upstream.FetchPopular, true
	case domain.CategoryTopRated:
		return a.upstream.FetchTopRated, true
	default:
		return nil, false
	}
}

// FetchCategory fetches page 1, then page 2 only when the upstream reports
// more pages and fewer than CategoryResultLimit results are in hand. A failed
// page fails the call and discards earlier pages.
func (a *PageAggregator) FetchCategory(ctx context.Context, category domain.Category) (envelope domain.ResultEnvelope[domain.MovieSummary], err error) {
	fetch, ok := a.fetcherFor(category)
	if !ok {
		return domain.ResultEnvelope[domain.MovieSummary]{}, fmt.Errorf("%w: %q", ErrUnknownCategory, string(category))
	}

	ctx, span := a.tracer.Start(ctx, "catalog.FetchCategory", trace.WithAttributes(attribute.String("catalog.category", string(category))))
	defer func() { finishOperation(span, "category", err) }()

	var (
		results      []domain.MovieSummary
		totalPages   = 1
		totalResults int
		pagesFetched int
	)
	for page := 1; page <= maxCategoryPages; page++ {
		response, err := fetch(ctx, page)
		if err != nil {
			a.logger.Debug("category page fetch failed",
				slog.String("category", string(category)),
				slog.Int("page", page),
				slog.String("error", err.Error()),
			)
			return domain.ResultEnvelope[domain.MovieSummary]{}, err
		}
		pagesFetched++
		if page == 1 {
			totalPages = response.TotalPages
			totalResults = response.TotalResults
		}
		results = append(results, response.Results...)
		if page >= totalPages || len(results) >= CategoryResultLimit {
			break
		}
	}

	if len(results) > CategoryResultLimit {
		results = results[:CategoryResultLimit]
	}
	metrics.CategoryPagesFetched.WithLabelValues(string(category)).Observe(float64(pagesFetched))
	span.SetAttributes(attribute.Int("catalog.pages_fetched", pagesFetched))
	return domain.NewEnvelope(results, totalResults), nil
}
