// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package workflow

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/internal/llm"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

type fakeSearcher struct {
	records []types.Record
	err     error
	gotMax  int
}

func (f *fakeSearcher) Search(ctx context.Context, query string, maxResults int, sortBy string) ([]types.Record, error) {
	f.gotMax = maxResults
	return f.records, f.err
}

type fakeSummarizer struct {
	mu     sync.Mutex
	calls  []string
	failOn string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, req llm.Request) (llm.Summary, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req.Text)
	f.mu.Unlock()
	if req.Text == f.failOn {
		return llm.Summary{}, &types.ProviderError{Provider: "openai", Reason: "refused"}
	}
	return llm.Summary{Text: "summary of: " + req.Text, Provider: "openai", Model: "gpt-4o"}, nil
}

func paperRecord(id, abstract string) types.Record {
	rec := types.Record{ID: id, Title: "Paper " + id, Source: "arxiv"}
	if abstract != "" {
		rec.SetText("abstract", abstract)
	}
	return rec
}

func TestSearchAndSummarize(t *testing.T) {
	searcher := &fakeSearcher{records: []types.Record{
		paperRecord("2301.00001", "first abstract"),
		paperRecord("2301.00002", "second abstract"),
		paperRecord("2301.00003", "third abstract"),
	}}
	summarizer := &fakeSummarizer{}
	composer := NewComposer(searcher, summarizer, zerolog.Nop())

	result, err := composer.SearchAndSummarize(context.Background(), "lithium batteries", 3, "", "")
	if err != nil {
		t.Fatalf("SearchAndSummarize() error = %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(result.Items))
	}

	// Order follows the search, whatever order summaries finished in.
	for i, want := range []string{"2301.00001", "2301.00002", "2301.00003"} {
		if result.Items[i].Record.ID != want {
			t.Errorf("Items[%d].Record.ID = %q, want %q", i, result.Items[i].Record.ID, want)
		}
		if result.Items[i].Summary == nil {
			t.Errorf("Items[%d].Summary = nil", i)
		}
	}
	if result.Items[0].Summary.Text != "summary of: first abstract" {
		t.Errorf("Items[0].Summary.Text = %q", result.Items[0].Summary.Text)
	}
}

func TestSearchAndSummarizeTruncatesOverfullSearch(t *testing.T) {
	// A source that ignores its max-results hint must not inflate the
	// output: only the first maxItems hits are kept and summarized.
	searcher := &fakeSearcher{records: []types.Record{
		paperRecord("a", "alpha"),
		paperRecord("b", "beta"),
		paperRecord("c", "gamma"),
		paperRecord("d", "delta"),
		paperRecord("e", "epsilon"),
	}}
	summarizer := &fakeSummarizer{}
	composer := NewComposer(searcher, summarizer, zerolog.Nop())

	result, err := composer.SearchAndSummarize(context.Background(), "q", 3, "", "")
	if err != nil {
		t.Fatalf("SearchAndSummarize() error = %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(result.Items))
	}
	for i, want := range []string{"a", "b", "c"} {
		if result.Items[i].Record.ID != want {
			t.Errorf("Items[%d].Record.ID = %q, want %q", i, result.Items[i].Record.ID, want)
		}
	}
	if len(summarizer.calls) != 3 {
		t.Errorf("summarizer calls = %d, want 3", len(summarizer.calls))
	}
}

func TestSearchAndSummarizePartialFailure(t *testing.T) {
	searcher := &fakeSearcher{records: []types.Record{
		paperRecord("a", "alpha"),
		paperRecord("b", "beta"),
		paperRecord("c", "gamma"),
	}}
	summarizer := &fakeSummarizer{failOn: "beta"}
	composer := NewComposer(searcher, summarizer, zerolog.Nop())

	result, err := composer.SearchAndSummarize(context.Background(), "q", 3, "", "")
	if err != nil {
		t.Fatalf("SearchAndSummarize() error = %v", err)
	}
	// One item failing keeps all three entries.
	if len(result.Items) != 3 {
		t.Fatalf("len(Items) = %d, want 3", len(result.Items))
	}
	if result.Items[0].Summary == nil || result.Items[2].Summary == nil {
		t.Error("healthy items lost their summaries")
	}
	if result.Items[1].Summary != nil {
		t.Error("failed item has a summary")
	}
	var perr *types.ProviderError
	if !errors.As(result.Items[1].Err, &perr) {
		t.Errorf("Items[1].Err = %v, want ProviderError", result.Items[1].Err)
	}
	if result.Items[1].ErrText == "" {
		t.Error("ErrText not populated for serialized output")
	}
}

func TestSearchAndSummarizeMissingAbstract(t *testing.T) {
	searcher := &fakeSearcher{records: []types.Record{
		paperRecord("a", ""),
	}}
	summarizer := &fakeSummarizer{}
	composer := NewComposer(searcher, summarizer, zerolog.Nop())

	result, err := composer.SearchAndSummarize(context.Background(), "q", 1, "", "")
	if err != nil {
		t.Fatalf("SearchAndSummarize() error = %v", err)
	}
	if len(summarizer.calls) != 0 {
		t.Errorf("summarizer calls = %d, want 0 for abstract-less record", len(summarizer.calls))
	}
	if result.Items[0].Err == nil {
		t.Error("item without abstract has no error")
	}
}

func TestSearchAndSummarizeSearchFailureIsFatal(t *testing.T) {
	searcher := &fakeSearcher{err: &types.NetworkError{Source: "arxiv", Status: 503}}
	summarizer := &fakeSummarizer{}
	composer := NewComposer(searcher, summarizer, zerolog.Nop())

	_, err := composer.SearchAndSummarize(context.Background(), "q", 3, "", "")
	var nerr *types.NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if len(summarizer.calls) != 0 {
		t.Errorf("summarizer calls = %d, want 0 when search fails", len(summarizer.calls))
	}
}

func TestSearchAndSummarizeItemBounds(t *testing.T) {
	searcher := &fakeSearcher{}
	composer := NewComposer(searcher, &fakeSummarizer{}, zerolog.Nop())

	_, err := composer.SearchAndSummarize(context.Background(), "q", 6, "", "")
	var verr *types.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error = %v, want ValidationError for max_items > 5", err)
	}

	// Zero falls back to the default.
	if _, err := composer.SearchAndSummarize(context.Background(), "q", 0, "", ""); err != nil {
		t.Fatalf("default items: error = %v", err)
	}
	if searcher.gotMax != DefaultItems {
		t.Errorf("search max = %d, want %d", searcher.gotMax, DefaultItems)
	}
}
