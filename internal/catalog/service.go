package catalog

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"moviesvault/catalog/internal/domain"
	"moviesvault/catalog/internal/metrics"
)

var (
	ErrEmptyQuery      = errors.New("query is required")
	ErrUnknownCategory = errors.New("unknown category")
)

// Upstream is the subset of the movie-listing proxy the catalog reads from.
type Upstream interface {
	FetchTrending(ctx context.Context, page int) (domain.PageResponse, error)
	FetchPopular(ctx context.Context, page int) (domain.PageResponse, error)
	FetchTopRated(ctx context.Context, page int) (domain.PageResponse, error)
	FetchSearch(ctx context.Context, query string, page int) (domain.PageResponse, error)
}

type Option func(*options)

type options struct {
	logger *slog.Logger
	tracer trace.Tracer
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger: slog.Default(),
		tracer: otel.Tracer("moviesvault/catalog"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// Service exposes ranked search and category listings over one upstream.
type Service struct {
	*RankedFetcher
	*PageAggregator
}

func NewService(upstream Upstream, opts ...Option) *Service {
	return &Service{
		RankedFetcher:  NewRankedFetcher(upstream, opts...),
		PageAggregator: NewPageAggregator(upstream, opts...),
	}
}

func finishOperation(span trace.Span, operation string, err error) {
	defer span.End()
	if err == nil {
		metrics.CatalogOperationsTotal.WithLabelValues(operation, "ok").Inc()
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.CatalogOperationsTotal.WithLabelValues(operation, operationResult(err)).Inc()
}

func operationResult(err error) string {
	if kind, ok := domain.KindOf(err); ok {
		return string(kind)
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.Is(err, ErrEmptyQuery), errors.Is(err, ErrUnknownCategory):
		return "invalid"
	default:
		return "error"
	}
}
