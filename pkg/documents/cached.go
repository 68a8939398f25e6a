package documents

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// TextCache is the key/value store CachedSource keeps fetched text in
type TextCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, expiration time.Duration) error
}

// CachedSource caches fetched transcript text in front of another Source.
// Cache errors are logged and never fail a fetch.
type CachedSource struct {
	next   Source
	cache  TextCache
	ttl    time.Duration
	logger ectologger.Logger
}

func NewCachedSource(next Source, cache TextCache, ttl time.Duration, logger ectologger.Logger) *CachedSource {
	return &CachedSource{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (s *CachedSource) ListCandidates(ctx context.Context, folder string, window models.TimeRange) ([]models.DocumentCandidate, error) {
	return s.next.ListCandidates(ctx, folder, window)
}

func (s *CachedSource) FetchText(ctx context.Context, documentID string) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "documents.CachedSource.FetchText")
	defer span.End()

	key := "transcript:" + documentID

	text, ok, err := s.cache.Get(ctx, key)
	switch {
	case err != nil:
		s.logger.WithContext(ctx).WithError(err).WithField("document_id", documentID).Warn("Transcript cache lookup failed")
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
	case ok:
		metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
		return text, nil
	default:
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
	}

	text, err = s.next.FetchText(ctx, documentID)
	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, key, text, s.ttl); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("document_id", documentID).Warn("Failed to cache transcript text")
	}

	return text, nil
}

// DocumentIDFromURL delegates to the wrapped source when it resolves URLs
func (s *CachedSource) DocumentIDFromURL(rawURL string) (string, bool) {
	if r, ok := s.next.(URLResolver); ok {
		return r.DocumentIDFromURL(rawURL)
	}
	return "", false
}
