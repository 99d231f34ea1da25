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

func testEDXClient(t *testing.T, apiKey string, handler http.HandlerFunc) (*EDXClient, *int) {
	t.Helper()
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	orig := edxAPIBase
	edxAPIBase = srv.URL
	t.Cleanup(func() { edxAPIBase = orig })

	cfg := types.EDXConfig{
		HTTPConfig: types.HTTPConfig{Timeout: 5 * time.Second, UserAgent: "test/0.1"},
		MaxResults: 100,
	}
	return NewEDXClient(cfg, apiKey, zerolog.Nop()), &calls
}

func TestEDXSearchResources(t *testing.T) {
	client, _ := testEDXClient(t, "test-key", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-CKAN-API-Key"); got != "test-key" {
			t.Errorf("X-CKAN-API-Key = %q", got)
		}
		if got := r.URL.Query().Get("query"); got != "name:tailings format:CSV" {
			t.Errorf("query = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success": true, "result": {"count": 2, "results": [
		  {"id": "res-1", "name": "Mine Tailings Survey", "description": "Survey data.",
		   "format": "CSV", "size": 1048576, "url": "https://edx.example/res-1.csv", "package_id": "pkg-1"},
		  {"id": "", "name": "broken"}
		]}}`)
	})

	records, count, err := client.SearchResources(context.Background(), "tailings", "CSV", 20, 0)
	if err != nil {
		t.Fatalf("SearchResources() error = %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	// The id-less resource is skipped.
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}

	rec := records[0]
	if rec.ID != "res-1" || rec.Title != "Mine Tailings Survey" || rec.Source != "edx" {
		t.Errorf("record = %+v", rec)
	}
	if size, ok := rec.StatField("size_bytes"); !ok || size != 1048576 {
		t.Errorf("size_bytes = %v, %v", size, ok)
	}
	if format, _ := rec.TextField("format"); format != "CSV" {
		t.Errorf("format = %q", format)
	}
}

func TestEDXMissingKeyFailsBeforeNetwork(t *testing.T) {
	client, calls := testEDXClient(t, "", func(w http.ResponseWriter, r *http.Request) {})

	_, _, err := client.SearchResources(context.Background(), "x", "", 10, 0)
	var aerr *types.AuthError
	if !errorsAs(err, &aerr) {
		t.Fatalf("error = %v, want AuthError", err)
	}
	if *calls != 0 {
		t.Errorf("network calls = %d, want 0", *calls)
	}
}

func TestEDXSearchLimitValidation(t *testing.T) {
	client, calls := testEDXClient(t, "k", func(w http.ResponseWriter, r *http.Request) {})

	for _, limit := range []int{0, 101} {
		_, _, err := client.SearchResources(context.Background(), "x", "", limit, 0)
		var verr *types.ValidationError
		if !errorsAs(err, &verr) {
			t.Errorf("limit %d: error = %v, want ValidationError", limit, err)
		}
	}
	if *calls != 0 {
		t.Errorf("network calls = %d, want 0", *calls)
	}
}

func TestEDXEnvelopeFailure(t *testing.T) {
	client, _ := testEDXClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success": false, "error": {"message": "Not found", "__type": "Not Found Error"}}`)
	})

	_, err := client.GetResource(context.Background(), "res-404")
	var perr *types.ProviderError
	if !errorsAs(err, &perr) {
		t.Fatalf("error = %v, want ProviderError", err)
	}
	if perr.Reason != "Not found" {
		t.Errorf("reason = %q", perr.Reason)
	}
}

func TestEDXGetDataset(t *testing.T) {
	client, _ := testEDXClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id"); got != "pkg-1" {
			t.Errorf("id = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success": true, "result": {
		  "id": "pkg-1", "name": "claimm-tailings", "title": "CLAIMM Tailings Collection",
		  "notes": "Characterization of mine waste.",
		  "tags": [{"name": "tailings"}, {"name": "critical-minerals"}],
		  "resources": [
		    {"id": "res-1", "name": "survey.csv", "format": "CSV"},
		    {"id": "res-2", "name": "report.pdf", "format": "PDF"}
		  ]}}`)
	})

	dataset, resources, err := client.GetDataset(context.Background(), "pkg-1")
	if err != nil {
		t.Fatalf("GetDataset() error = %v", err)
	}
	if dataset.Title != "CLAIMM Tailings Collection" {
		t.Errorf("Title = %q", dataset.Title)
	}
	if tags, _ := dataset.TextField("tags"); tags != "tailings, critical-minerals" {
		t.Errorf("tags = %q", tags)
	}
	if n, _ := dataset.StatField("resource_count"); n != 2 {
		t.Errorf("resource_count = %v", n)
	}
	if len(resources) != 2 || resources[1].ID != "res-2" {
		t.Errorf("resources = %+v", resources)
	}
}

func TestEDXGetDatasetNotFound(t *testing.T) {
	client, _ := testEDXClient(t, "k", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success": true, "result": {}}`)
	})

	_, _, err := client.GetDataset(context.Background(), "missing")
	var nf *types.NotFoundError
	if !errorsAs(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
}
