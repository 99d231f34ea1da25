// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>Attention Mechanisms
      in Deep Learning</title>
    <summary>  A survey of attention. </summary>
    <published>2023-01-17T12:00:00Z</published>
    <author><name>A. Author</name></author>
    <author><name>B. Author</name></author>
    <category term="cs.LG"/>
    <category term="cs.AI"/>
    <link href="http://arxiv.org/pdf/2301.07041v1" title="pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2302.00001v2</id>
    <title>Second Paper</title>
    <summary>Another abstract.</summary>
    <published>2023-02-01T00:00:00Z</published>
    <author><name>C. Author</name></author>
  </entry>
  <entry>
    <id>http://example.org/not-an-arxiv-id</id>
    <title>Broken Entry</title>
  </entry>
</feed>`

func testArxivClient(t *testing.T, handler http.HandlerFunc) (*ArxivClient, *int64) {
	t.Helper()
	var calls int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	orig := arxivAPIBase
	arxivAPIBase = srv.URL
	t.Cleanup(func() { arxivAPIBase = orig })

	cfg := types.ArxivConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test/0.1"},
		MaxResults: 100,
	}
	return NewArxivClient(cfg, zerolog.Nop()), &calls
}

func serveArxivFixture(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/atom+xml")
	w.Write([]byte(arxivFixture))
}

func TestArxivSearchParsesFeed(t *testing.T) {
	client, _ := testArxivClient(t, serveArxivFixture)

	records, err := client.Search(context.Background(), "attention", 10, "relevance")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	// The entry without an extractable arXiv ID is skipped, not fatal.
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	first := records[0]
	if first.ID != "2301.07041" {
		t.Errorf("ID = %q, want version-stripped id", first.ID)
	}
	if first.Title != "Attention Mechanisms in Deep Learning" {
		t.Errorf("Title = %q, want whitespace-normalized title", first.Title)
	}
	if first.Source != "arxiv" {
		t.Errorf("Source = %q, want arxiv", first.Source)
	}
	if len(first.Authors) != 2 {
		t.Errorf("len(Authors) = %d, want 2", len(first.Authors))
	}
	if abs, ok := first.TextField("abstract"); !ok || abs != "A survey of attention." {
		t.Errorf("abstract = %q, %v", abs, ok)
	}
	if cats, _ := first.TextField("categories"); cats != "cs.LG, cs.AI" {
		t.Errorf("categories = %q", cats)
	}
	if pdf, _ := first.TextField("pdf_url"); pdf != "http://arxiv.org/pdf/2301.07041v1" {
		t.Errorf("pdf_url = %q", pdf)
	}

	// Provider order preserved.
	if records[1].ID != "2302.00001" {
		t.Errorf("records[1].ID = %q, want 2302.00001", records[1].ID)
	}
	// Missing pdf link falls back to the derived URL.
	if pdf, _ := records[1].TextField("pdf_url"); pdf != "https://arxiv.org/pdf/2302.00001" {
		t.Errorf("fallback pdf_url = %q", pdf)
	}
}

func TestArxivSearchValidation(t *testing.T) {
	client, calls := testArxivClient(t, serveArxivFixture)

	tests := []struct {
		name       string
		query      string
		maxResults int
		sortBy     string
	}{
		{"empty query", "  ", 10, "relevance"},
		{"max_results too small", "x", 0, "relevance"},
		{"max_results too large", "x", 101, "relevance"},
		{"bad sort order", "x", 10, "citations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Search(context.Background(), tt.query, tt.maxResults, tt.sortBy)
			var verr *types.ValidationError
			if !errorsAs(err, &verr) {
				t.Fatalf("error = %v, want ValidationError", err)
			}
		})
	}
	if *calls != 0 {
		t.Errorf("network calls = %d, want 0 for validation failures", *calls)
	}
}

func TestArxivGetByIDMalformed(t *testing.T) {
	client, calls := testArxivClient(t, serveArxivFixture)

	for _, id := range []string{"", "abc", "23.1", "2301.07041v", "../etc"} {
		_, err := client.GetByID(context.Background(), id)
		var verr *types.ValidationError
		if !errorsAs(err, &verr) {
			t.Errorf("GetByID(%q) error = %v, want ValidationError", id, err)
		}
	}
	if *calls != 0 {
		t.Errorf("network calls = %d, want 0 for malformed ids", *calls)
	}
}

func TestArxivGetByIDFound(t *testing.T) {
	client, _ := testArxivClient(t, serveArxivFixture)

	rec, err := client.GetByID(context.Background(), "2301.07041v1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if rec.ID != "2301.07041" {
		t.Errorf("ID = %q", rec.ID)
	}
}

func TestArxivGetByIDNotFound(t *testing.T) {
	client, _ := testArxivClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<feed xmlns="http://www.w3.org/2005/Atom"></feed>`))
	})

	_, err := client.GetByID(context.Background(), "2301.99999")
	var nf *types.NotFoundError
	if !errorsAs(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
}

func TestArxivSearchHTTPError(t *testing.T) {
	client, _ := testArxivClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	_, err := client.Search(context.Background(), "x", 5, "relevance")
	var nerr *types.NetworkError
	if !errorsAs(err, &nerr) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if nerr.Status != http.StatusServiceUnavailable {
		t.Errorf("Status = %d", nerr.Status)
	}
}

func TestArxivSearchParseError(t *testing.T) {
	client, _ := testArxivClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<not-xml"))
	})

	_, err := client.Search(context.Background(), "x", 5, "relevance")
	var perr *types.ParseError
	if !errorsAs(err, &perr) {
		t.Fatalf("error = %v, want ParseError", err)
	}
}

func TestValidateArxivID(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		valid bool
	}{
		{"2301.07041", "2301.07041", true},
		{"2301.07041v3", "2301.07041", true},
		{"cs.AI/0001001", "cs.AI/0001001", true},
		{"hep-th/9901001v2", "hep-th/9901001", true},
		{"2301.7041x", "", false},
		{"not-an-id", "", false},
	}
	for _, tt := range tests {
		got, err := ValidateArxivID(tt.in)
		if tt.valid && (err != nil || got != tt.want) {
			t.Errorf("ValidateArxivID(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
		if !tt.valid && err == nil {
			t.Errorf("ValidateArxivID(%q) accepted invalid id", tt.in)
		}
	}
}

func errorsAs(err error, target any) bool {
	return errors.As(err, target)
}
