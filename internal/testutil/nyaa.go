package testutil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// ResultRow describes one row of a fake index results page.
type ResultRow struct {
	Class  string
	Title  string
	Magnet string
	Size   string
}

// ResultsPage renders rows with the markup of the index results table.
// Empty fields are left out of the row entirely.
func ResultsPage(rows []ResultRow) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="torrent-list"><tbody>`)
	for _, r := range rows {
		class := r.Class
		if class == "" {
			class = "default"
		}
		fmt.Fprintf(&b, `<tr class="%s">`, class)
		b.WriteString(`<td><a href="/?c=1_2" title="Anime - English-translated">cat</a></td>`)
		b.WriteString(`<td colspan="2">`)
		if r.Title != "" {
			fmt.Fprintf(&b, `<a class="title" href="/view/1">%s</a>`, r.Title)
		}
		b.WriteString(`</td><td class="text-center">`)
		if r.Magnet != "" {
			fmt.Fprintf(&b, `<a href="%s" title="Magnet Link"><i class="fa fa-magnet"></i></a>`, r.Magnet)
		}
		b.WriteString(`</td>`)
		fmt.Fprintf(&b, `<td class="text-center">%s</td>`, r.Size)
		b.WriteString(`<td class="text-center">2024-01-01 00:00</td>`)
		b.WriteString(`<td class="text-center">100</td></tr>`)
	}
	b.WriteString(`</tbody></table></body></html>`)
	return b.String()
}

// NewIndexServer serves page for every request and records the last query string.
func NewIndexServer(t *testing.T, page string) (*httptest.Server, func() string) {
	t.Helper()

	queries := make(chan string, 64)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case queries <- r.URL.Query().Get("q"):
		default:
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, page)
	}))
	t.Cleanup(server.Close)

	var last string
	lastQuery := func() string {
		for {
			select {
			case q := <-queries:
				last = q
			default:
				return last
			}
		}
	}
	return server, lastQuery
}
