// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

func testScholarClient(t *testing.T, apiKey string, handler http.HandlerFunc) (*ScholarClient, *int) {
	t.Helper()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	orig := scholarAPIBase
	scholarAPIBase = srv.URL
	t.Cleanup(func() { scholarAPIBase = orig })

	cfg := types.ScholarConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test/0.1"},
		MaxResults: 20,
	}
	return NewScholarClient(cfg, apiKey, zerolog.Nop()), &calls
}

func TestScholarSearch(t *testing.T) {
	client, _ := testScholarClient(t, "serp-key", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("engine") != "google_scholar" {
			t.Errorf("engine = %q", q.Get("engine"))
		}
		if q.Get("api_key") != "serp-key" {
			t.Errorf("api_key = %q", q.Get("api_key"))
		}
		if q.Get("as_ylo") != "2020" || q.Get("as_yhi") != "2024" {
			t.Errorf("year bounds = %q..%q", q.Get("as_ylo"), q.Get("as_yhi"))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"organic_results": [
		  {"result_id": "abc123", "title": "Lithium extraction from brines",
		   "link": "https://example.org/paper", "snippet": "We review extraction methods.",
		   "publication_info": {"summary": "A Author, B Author - J. Mining, 2022",
		     "authors": [{"name": "A Author"}, {"name": "B Author"}]},
		   "inline_links": {"cited_by": {"total": 42}}},
		  {"result_id": "def456", "title": ""},
		  {"title": "Untracked result", "link": "https://example.org/other"}
		]}`)
	})

	records, err := client.Search(context.Background(), "lithium brine extraction", 2020, 2024, 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	// The title-less result is skipped.
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}

	first := records[0]
	if first.ID != "abc123" || first.Source != "scholar" {
		t.Errorf("record = %+v", first)
	}
	if len(first.Authors) != 2 || first.Authors[0] != "A Author" {
		t.Errorf("Authors = %v", first.Authors)
	}
	if cited, ok := first.StatField("cited_by"); !ok || cited != 42 {
		t.Errorf("cited_by = %v, %v", cited, ok)
	}

	// No result_id falls back to the link.
	if records[1].ID != "https://example.org/other" {
		t.Errorf("fallback ID = %q", records[1].ID)
	}
}

func TestScholarMissingKeyFailsBeforeNetwork(t *testing.T) {
	client, calls := testScholarClient(t, "", func(w http.ResponseWriter, r *http.Request) {})

	_, err := client.Search(context.Background(), "anything", 0, 0, 10)
	var aerr *types.AuthError
	if !errorsAs(err, &aerr) {
		t.Fatalf("error = %v, want AuthError", err)
	}
	if *calls != 0 {
		t.Errorf("network calls = %d, want 0", *calls)
	}
}

func TestScholarValidation(t *testing.T) {
	client, calls := testScholarClient(t, "k", func(w http.ResponseWriter, r *http.Request) {})

	tests := []struct {
		name                        string
		query                       string
		yearFrom, yearTo, numWanted int
	}{
		{"empty query", "   ", 0, 0, 10},
		{"num too small", "x", 0, 0, 0},
		{"num too large", "x", 0, 0, 21},
		{"inverted years", "x", 2024, 2020, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Search(context.Background(), tt.query, tt.yearFrom, tt.yearTo, tt.numWanted)
			var verr *types.ValidationError
			if !errorsAs(err, &verr) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
	if *calls != 0 {
		t.Errorf("network calls = %d, want 0", *calls)
	}
}

func TestScholarInBandError(t *testing.T) {
	client, _ := testScholarClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"error": "Google Scholar hasn't returned any results for this query."}`)
	})

	_, err := client.Search(context.Background(), "zxqvw", 0, 0, 10)
	var perr *types.ProviderError
	if !errorsAs(err, &perr) {
		t.Fatalf("error = %v, want ProviderError", err)
	}
}
