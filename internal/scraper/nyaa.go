package scraper

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"torrentbot/internal/domain"
	"torrentbot/internal/metrics"
)

// MaxResults caps how many qualifying rows a single search returns.
const MaxResults = 5

// NyaaScraper implements Searcher against a Nyaa-style index.
type NyaaScraper struct {
	baseURL string
	fetcher Fetcher
	log     logrus.FieldLogger
}

// NewNyaaScraper creates a scraper for the index at baseURL.
func NewNyaaScraper(baseURL string, fetcher Fetcher, logger logrus.FieldLogger) *NyaaScraper {
	return &NyaaScraper{
		baseURL: baseURL,
		fetcher: fetcher,
		log:     logger.WithField("component", "scraper"),
	}
}

// SearchURL builds the results URL for query, sorted by seeders descending.
func (s *NyaaScraper) SearchURL(query string) string {
	params := url.Values{}
	params.Set("f", "0")
	params.Set("c", "0_0")
	params.Set("q", query)
	params.Set("s", "seeders")
	params.Set("o", "desc")
	return strings.TrimRight(s.baseURL, "?") + "?" + params.Encode()
}

// Search fetches and parses the results page. Any failure is logged and
// reported as no results.
func (s *NyaaScraper) Search(ctx context.Context, query string, minSize, maxSize float64) []domain.SearchResult {
	log := s.log.WithField("query", query)

	results, err := s.search(ctx, query, minSize, maxSize)
	if err != nil {
		log.WithError(err).Error("Search failed")
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		return []domain.SearchResult{}
	}

	status := "ok"
	if len(results) == 0 {
		status = "empty"
	}
	metrics.SearchesTotal.WithLabelValues(status).Inc()
	log.WithField("result_count", len(results)).Info("Search completed")
	return results
}

func (s *NyaaScraper) search(ctx context.Context, query string, minSize, maxSize float64) ([]domain.SearchResult, error) {
	body, err := s.fetcher.Fetch(ctx, s.SearchURL(query))
	if err != nil {
		return nil, err
	}
	return s.parse(body, minSize, maxSize)
}

// parse extracts result rows in page order, keeping at most MaxResults rows
// within the size range.
func (s *NyaaScraper) parse(body []byte, minSize, maxSize float64) ([]domain.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	results := make([]domain.SearchResult, 0, MaxResults)
	doc.Find("tr.default, tr.success, tr.danger").EachWithBreak(func(i int, row *goquery.Selection) bool {
		result := extractRow(row)

		size, err := ParseSize(result.SizeText)
		if err != nil {
			s.log.WithError(err).WithField("row", i).Debug("Skipping row with unreadable size")
			return true
		}
		result.SizeBytes = size

		if size >= minSize && size <= maxSize {
			results = append(results, result)
		}
		return len(results) < MaxResults
	})

	return results, nil
}

// extractRow reads a single result row; missing fields become domain.Placeholder.
func extractRow(row *goquery.Selection) domain.SearchResult {
	result := domain.SearchResult{
		Title:      domain.Placeholder,
		MagnetLink: domain.Placeholder,
		SizeText:   domain.Placeholder,
	}

	if title := rowTitle(row); title != "" {
		result.Title = title
	}

	magnet := row.Find(`a[title="Magnet Link"]`).First()
	if magnet.Length() == 0 {
		magnet = row.Find(`a[href^="magnet:"]`).First()
	}
	if href, ok := magnet.Attr("href"); ok && href != "" {
		result.MagnetLink = href
	}

	if cells := row.Find("td.text-center"); cells.Length() > 1 {
		if size := strings.TrimSpace(cells.Eq(1).Text()); size != "" {
			result.SizeText = size
		}
	}

	return result
}

func rowTitle(row *goquery.Selection) string {
	if link := row.Find("a.title").First(); link.Length() > 0 {
		return strings.TrimSpace(link.Text())
	}

	// Live pages put the title in the last non-comment link of the name cell.
	link := row.Find(`td[colspan="2"] a:not(.comments)`).Last()
	if link.Length() == 0 {
		return ""
	}
	if title, ok := link.Attr("title"); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	return strings.TrimSpace(link.Text())
}
