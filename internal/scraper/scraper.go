package scraper

import (
	"context"

	"torrentbot/internal/domain"
)

// Searcher defines the interface for querying the torrent index.
type Searcher interface {
	// Search returns at most MaxResults results whose size lies within
	// [minSize, maxSize] bytes. Failures are logged and yield an empty slice.
	Search(ctx context.Context, query string, minSize, maxSize float64) []domain.SearchResult
}

// Fetcher retrieves the raw HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}
