package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"torrentbot/internal/apperrors"
	"torrentbot/internal/testutil"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestScraper(t *testing.T, handler http.HandlerFunc) *NyaaScraper {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewNyaaScraper(server.URL+"/", NewHTTPFetcher(5*time.Second, testLogger()), testLogger())
}

func servePage(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, page)
	}
}

func TestNyaaScraper_SearchURL(t *testing.T) {
	s := NewNyaaScraper("https://nyaa.si/", nil, testLogger())
	got := s.SearchURL("naruto shippuden")
	assert.Equal(t, "https://nyaa.si/?c=0_0&f=0&o=desc&q=naruto+shippuden&s=seeders", got)
}

func TestNyaaScraper_Search_SendsQuery(t *testing.T) {
	var gotQuery string
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, testutil.ResultsPage(nil))
	})

	results := s.Search(context.Background(), "one piece", 0, 1e18)
	assert.Empty(t, results)
	assert.Contains(t, gotQuery, "q=one+piece")
	assert.Contains(t, gotQuery, "s=seeders")
	assert.Contains(t, gotQuery, "o=desc")
	assert.Contains(t, gotQuery, "f=0")
	assert.Contains(t, gotQuery, "c=0_0")
}

func TestNyaaScraper_Search_CapsAtFiveInPageOrder(t *testing.T) {
	var rows []testutil.ResultRow
	for i := 1; i <= 8; i++ {
		rows = append(rows, testutil.ResultRow{
			Class:  "default",
			Title:  fmt.Sprintf("Show %d", i),
			Magnet: fmt.Sprintf("magnet:?xt=urn:btih:%d", i),
			Size:   fmt.Sprintf("%d MiB", i*100),
		})
	}
	s := newTestScraper(t, servePage(testutil.ResultsPage(rows)))

	results := s.Search(context.Background(), "show", 0, 1e18)
	require.Len(t, results, MaxResults)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("Show %d", i+1), r.Title)
		assert.Equal(t, fmt.Sprintf("magnet:?xt=urn:btih:%d", i+1), r.MagnetLink)
		assert.Equal(t, float64((i+1)*100*1024*1024), r.SizeBytes)
	}
}

func TestNyaaScraper_Search_FiltersBySize(t *testing.T) {
	rows := []testutil.ResultRow{
		{Class: "default", Title: "Tiny", Magnet: "magnet:?a", Size: "50 MiB"},
		{Class: "success", Title: "Low edge", Magnet: "magnet:?b", Size: "100 MiB"},
		{Class: "default", Title: "Middle", Magnet: "magnet:?c", Size: "300 MiB"},
		{Class: "danger", Title: "High edge", Magnet: "magnet:?d", Size: "500 MiB"},
		{Class: "default", Title: "Huge", Magnet: "magnet:?e", Size: "1.5 GiB"},
	}
	s := newTestScraper(t, servePage(testutil.ResultsPage(rows)))

	minSize := float64(100 * 1024 * 1024)
	maxSize := float64(500 * 1024 * 1024)
	results := s.Search(context.Background(), "x", minSize, maxSize)

	require.Len(t, results, 3)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.SizeBytes, minSize)
		assert.LessOrEqual(t, r.SizeBytes, maxSize)
	}
	assert.Equal(t, "Low edge", results[0].Title)
	assert.Equal(t, "High edge", results[2].Title)
}

func TestNyaaScraper_Search_MissingFieldsDegrade(t *testing.T) {
	rows := []testutil.ResultRow{
		{Class: "default", Title: "", Magnet: "", Size: "1 GiB"},
		{Class: "default", Title: "No size", Magnet: "magnet:?x", Size: ""},
	}
	s := newTestScraper(t, servePage(testutil.ResultsPage(rows)))

	results := s.Search(context.Background(), "x", 0, 1e18)
	require.Len(t, results, 1)
	assert.Equal(t, "N/A", results[0].Title)
	assert.Equal(t, "N/A", results[0].MagnetLink)
	assert.Equal(t, "1 GiB", results[0].SizeText)
}

func TestNyaaScraper_Search_LiveMarkupFallbacks(t *testing.T) {
	page := `<table><tbody><tr class="default">
		<td><a href="/?c=1_2">cat</a></td>
		<td colspan="2"><a href="/view/9#comments" class="comments">3</a><a href="/view/9" title="[Group] Live Title">[Group] Live Title</a></td>
		<td class="text-center"><a href="/download/9.torrent">t</a><a href="magnet:?xt=urn:btih:live">m</a></td>
		<td class="text-center">700.0 MiB</td>
	</tr></tbody></table>`
	s := newTestScraper(t, servePage(page))

	results := s.Search(context.Background(), "live", 0, 1e18)
	require.Len(t, results, 1)
	assert.Equal(t, "[Group] Live Title", results[0].Title)
	assert.Equal(t, "magnet:?xt=urn:btih:live", results[0].MagnetLink)
	assert.Equal(t, "700.0 MiB", results[0].SizeText)
}

func TestNyaaScraper_Search_ServerErrorReturnsEmpty(t *testing.T) {
	s := newTestScraper(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	results := s.Search(context.Background(), "x", 0, 1e18)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	_, err := s.search(context.Background(), "x", 0, 1e18)
	var serverErr *apperrors.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusServiceUnavailable, serverErr.StatusCode)
}

func TestNyaaScraper_Search_NetworkFailureReturnsEmpty(t *testing.T) {
	server := httptest.NewServer(servePage(testutil.ResultsPage(nil)))
	baseURL := server.URL + "/"
	server.Close()

	s := NewNyaaScraper(baseURL, NewHTTPFetcher(time.Second, testLogger()), testLogger())

	assert.NotPanics(t, func() {
		results := s.Search(context.Background(), "x", 0, 1e18)
		assert.Empty(t, results)
	})

	_, err := s.search(context.Background(), "x", 0, 1e18)
	assert.ErrorIs(t, err, apperrors.ErrTransport)
}
