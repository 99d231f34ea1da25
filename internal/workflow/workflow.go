// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package workflow composes source clients and the summarizer into
// multi-step operations. Composition is fire-all/await-all: every item
// gets its own goroutine and its own slot in the result, so one item's
// failure never hides another's summary.
package workflow

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/cmm-toolserver/internal/llm"
	"github.com/pdiddy/cmm-toolserver/pkg/types"
)

// MaxItems caps how many search hits one composed call will summarize.
const MaxItems = 5

// DefaultItems is used when the caller does not say how many.
const DefaultItems = 3

// PaperSearcher is the slice of the arXiv client the composer needs.
type PaperSearcher interface {
	Search(ctx context.Context, query string, maxResults int, sortBy string) ([]types.Record, error)
}

// Summarizer is the slice of the LLM client the composer needs.
type Summarizer interface {
	Summarize(ctx context.Context, req llm.Request) (llm.Summary, error)
}

// Composer runs multi-step operations over the injected clients.
type Composer struct {
	papers     PaperSearcher
	summarizer Summarizer
	log        zerolog.Logger
}

// NewComposer builds a Composer over the given clients.
func NewComposer(papers PaperSearcher, summarizer Summarizer, log zerolog.Logger) *Composer {
	return &Composer{
		papers:     papers,
		summarizer: summarizer,
		log:        log.With().Str("component", "workflow").Logger(),
	}
}

// Item is one paper with its summarization outcome. Exactly one of
// Summary and Err is meaningful.
type Item struct {
	Record  types.Record `json:"record"`
	Summary *llm.Summary `json:"summary,omitempty"`
	Err     error        `json:"-"`

	// ErrText mirrors Err for serialized output.
	ErrText string `json:"error,omitempty"`
}

// Result is the output of SearchAndSummarize. Items keep search order.
type Result struct {
	Query string `json:"query"`
	Items []Item `json:"items"`
}

// SearchAndSummarize searches arXiv and summarizes each hit's abstract
// concurrently. The search failing is fatal; a single summarization
// failing marks only its own item.
func (c *Composer) SearchAndSummarize(ctx context.Context, query string, maxItems int, provider, model string) (Result, error) {
	if maxItems <= 0 {
		maxItems = DefaultItems
	}
	if maxItems > MaxItems {
		return Result{}, &types.ValidationError{
			Param:  "max_items",
			Reason: "must be at most 5",
		}
	}

	records, err := c.papers.Search(ctx, query, maxItems, "relevance")
	if err != nil {
		return Result{}, err
	}
	// The source may return more than requested; only the first maxItems
	// hits are summarized.
	if len(records) > maxItems {
		records = records[:maxItems]
	}

	items := make([]Item, len(records))
	var wg sync.WaitGroup
	for i, rec := range records {
		items[i].Record = rec

		abstract, ok := rec.TextField("abstract")
		if !ok || abstract == "" {
			items[i].Err = &types.ParseError{Source: rec.Source, Reason: "record has no abstract to summarize"}
			continue
		}

		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			summary, err := c.summarizer.Summarize(ctx, llm.Request{
				Text:     text,
				Provider: provider,
				Model:    model,
			})
			if err != nil {
				c.log.Warn().Err(err).Str("paper", items[i].Record.ID).Msg("summarization failed")
				items[i].Err = err
				return
			}
			items[i].Summary = &summary
		}(i, abstract)
	}
	wg.Wait()

	for i := range items {
		if items[i].Err != nil {
			items[i].ErrText = items[i].Err.Error()
		}
	}
	return Result{Query: query, Items: items}, nil
}
