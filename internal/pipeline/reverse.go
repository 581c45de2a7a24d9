package pipeline

import (
	"context"

	"github.com/aromalbiju/truthlens-go/internal/analysis"
)

// ReverseSearcher finds prior appearances of the media on the web.
type ReverseSearcher interface {
	Search(ctx context.Context) ([]analysis.ProvenanceRecord, error)
}

// MockSearcher returns canned provenance records.
// TODO: replace with a SerpAPI-backed searcher once an API key budget exists.
type MockSearcher struct{}

// Search implements ReverseSearcher with fixed development data.
func (MockSearcher) Search(context.Context) ([]analysis.ProvenanceRecord, error) {
	return []analysis.ProvenanceRecord{
		{
			URL:   "https://example.com/original-photo",
			Title: "Possible original source found",
			Date:  "2024-03-10",
		},
		{
			URL:   "https://socialmedia.example.com/post/123",
			Title: "Shared on social media",
			Date:  "2024-05-22",
		},
	}, nil
}
