// Package documents provides the transcript document sources the resolution
// pipeline lists candidates from and fetches text through.
package documents

import (
	"context"
	"errors"

	"github.com/Ramsey-B/fern/pkg/models"
)

// ErrNotFound is returned by FetchText when the document has no retrievable text
var ErrNotFound = errors.New("document not found")

// Source lists transcript candidates and fetches their text
type Source interface {
	ListCandidates(ctx context.Context, folder string, window models.TimeRange) ([]models.DocumentCandidate, error)
	FetchText(ctx context.Context, documentID string) (string, error)
}

// URLResolver turns a document viewer URL into a document ID
type URLResolver interface {
	DocumentIDFromURL(rawURL string) (string, bool)
}

// ChainResolver tries each resolver in order
type ChainResolver []URLResolver

func (c ChainResolver) DocumentIDFromURL(rawURL string) (string, bool) {
	for _, resolver := range c {
		if resolver == nil {
			continue
		}
		if id, ok := resolver.DocumentIDFromURL(rawURL); ok {
			return id, true
		}
	}
	return "", false
}
